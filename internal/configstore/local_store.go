package configstore

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/banshee-data/counting-scale/internal/fsutil"
	"github.com/banshee-data/counting-scale/internal/monitoring"
	"github.com/banshee-data/counting-scale/internal/timeutil"
)

// StorageKey is the fixed key the local store keeps its array under.
const StorageKey = "weight-configurations"

// LocalStore is a single-client key/value store holding an array of
// configurations under StorageKey. Saves append, so one name may have
// several revisions distinguished by timestamp.
type LocalStore struct {
	mu    sync.Mutex
	fs    fsutil.FileSystem
	clock timeutil.Clock
	path  string
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore returns a store backed by the key/value file at path.
// Nothing is written until the first save.
func NewLocalStore(fsys fsutil.FileSystem, clock timeutil.Clock, path string) *LocalStore {
	return &LocalStore{fs: fsys, clock: clock, path: path}
}

// Load returns every stored revision. Any read or parse failure is logged
// and yields an empty slice.
func (s *LocalStore) Load() []StoredConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// List implements Store. It never fails.
func (s *LocalStore) List() ([]StoredConfig, error) {
	return s.Load(), nil
}

// Get returns the newest revision stored under name.
func (s *LocalStore) Get(name string) (StoredConfig, error) {
	configs := s.Load()
	var (
		latest StoredConfig
		found  bool
	)
	for _, c := range configs {
		if c.Name == name && (!found || c.Timestamp >= latest.Timestamp) {
			latest, found = c, true
		}
	}
	if !found {
		return StoredConfig{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return latest, nil
}

// Save appends cfg. Existing revisions with the same name are kept.
func (s *LocalStore) Save(cfg StoredConfig) (StoredConfig, error) {
	if err := cfg.Validate(); err != nil {
		return StoredConfig{}, err
	}
	cfg.Timestamp = s.clock.Now().UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	configs := append(s.load(), cfg)
	if err := s.store(configs); err != nil {
		monitoring.Logf("error saving configuration: %v", err)
		return StoredConfig{}, err
	}
	return cfg, nil
}

// Delete removes every revision whose name matches exactly.
func (s *LocalStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs := s.load()
	kept := configs[:0]
	for _, c := range configs {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	if err := s.store(kept); err != nil {
		monitoring.Logf("error deleting configuration: %v", err)
		return err
	}
	return nil
}

// readItems returns the raw key/value map, tolerating a missing file.
func (s *LocalStore) readItems() (map[string]json.RawMessage, error) {
	items := map[string]json.RawMessage{}
	if !s.fs.Exists(s.path) {
		return items, nil
	}
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *LocalStore) load() []StoredConfig {
	items, err := s.readItems()
	if err != nil {
		monitoring.Logf("error loading configurations: %v", err)
		return []StoredConfig{}
	}
	raw, ok := items[StorageKey]
	if !ok {
		return []StoredConfig{}
	}
	var configs []StoredConfig
	if err := json.Unmarshal(raw, &configs); err != nil {
		monitoring.Logf("error loading configurations: %v", err)
		return []StoredConfig{}
	}
	if configs == nil {
		configs = []StoredConfig{}
	}
	return configs
}

func (s *LocalStore) store(configs []StoredConfig) error {
	items, err := s.readItems()
	if err != nil {
		// A corrupt store is replaced rather than blocking every save.
		items = map[string]json.RawMessage{}
	}
	raw, err := json.Marshal(configs)
	if err != nil {
		return fmt.Errorf("failed to encode configurations: %w", err)
	}
	items[StorageKey] = raw

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode local storage: %w", err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	return fsutil.WriteFileAtomic(s.fs, s.path, data, 0o644)
}
