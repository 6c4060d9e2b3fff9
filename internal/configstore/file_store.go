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

// FileStore keeps configurations as a JSON array in a single file. Saving
// replaces an existing entry with the same name (case-sensitive) or
// appends a new one.
type FileStore struct {
	mu    sync.Mutex
	fs    fsutil.FileSystem
	clock timeutil.Clock
	path  string
}

var _ Store = (*FileStore)(nil)

// NewFileStore opens the store at path, creating the parent directory and
// an empty array file when they do not exist.
func NewFileStore(fsys fsutil.FileSystem, clock timeutil.Clock, path string) (*FileStore, error) {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if !fsys.Exists(path) {
		if err := fsutil.WriteFileAtomic(fsys, path, []byte("[]"), 0o644); err != nil {
			return nil, fmt.Errorf("failed to initialise %s: %w", path, err)
		}
		monitoring.Logf("initialised configuration file %s", path)
	}
	return &FileStore{fs: fsys, clock: clock, path: path}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// List returns every stored configuration in file order.
func (s *FileStore) List() ([]StoredConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Get returns the first configuration with the given name.
func (s *FileStore) Get(name string) (StoredConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs, err := s.read()
	if err != nil {
		return StoredConfig{}, err
	}
	for _, c := range configs {
		if c.Name == name {
			return c, nil
		}
	}
	return StoredConfig{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Save upserts cfg by name. A zero Timestamp is stamped with the current time.
func (s *FileStore) Save(cfg StoredConfig) (StoredConfig, error) {
	if err := cfg.Validate(); err != nil {
		return StoredConfig{}, err
	}
	if cfg.Timestamp == 0 {
		cfg.Timestamp = s.clock.Now().UnixMilli()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	configs, err := s.read()
	if err != nil {
		return StoredConfig{}, err
	}
	replaced := false
	for i := range configs {
		if configs[i].Name == cfg.Name {
			configs[i] = cfg
			replaced = true
			break
		}
	}
	if !replaced {
		configs = append(configs, cfg)
	}
	if err := s.write(configs); err != nil {
		return StoredConfig{}, err
	}
	return cfg, nil
}

// Delete removes every configuration with the given name.
func (s *FileStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs, err := s.read()
	if err != nil {
		return err
	}
	kept := configs[:0]
	for _, c := range configs {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	return s.write(kept)
}

func (s *FileStore) read() ([]StoredConfig, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configurations: %w", err)
	}
	configs := []StoredConfig{}
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse configurations: %w", err)
	}
	return configs, nil
}

func (s *FileStore) write(configs []StoredConfig) error {
	data, err := json.MarshalIndent(configs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode configurations: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save configurations: %w", err)
	}
	return nil
}
