package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/counting-scale/internal/configstore"
	"github.com/banshee-data/counting-scale/internal/scale"
)

// ConfigStore is the sqlite backend for named configurations. Saves
// upsert on the name primary key.
type ConfigStore struct {
	db  *DB
	now func() time.Time
}

var _ configstore.Store = (*ConfigStore)(nil)

// ConfigStore returns a configuration store backed by db.
func (db *DB) ConfigStore() *ConfigStore {
	return &ConfigStore{db: db, now: time.Now}
}

// List returns every configuration ordered by name.
func (s *ConfigStore) List() ([]configstore.StoredConfig, error) {
	rows, err := s.db.Query(`SELECT name, groups_json, timestamp_ms FROM configurations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query configurations: %w", err)
	}
	defer rows.Close()

	configs := []configstore.StoredConfig{}
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return configs, nil
}

// Get returns the named configuration or configstore.ErrNotFound.
func (s *ConfigStore) Get(name string) (configstore.StoredConfig, error) {
	row := s.db.QueryRow(`SELECT name, groups_json, timestamp_ms FROM configurations WHERE name = ?`, name)
	c, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return configstore.StoredConfig{}, fmt.Errorf("%w: %q", configstore.ErrNotFound, name)
	}
	return c, err
}

// Save upserts cfg by name.
func (s *ConfigStore) Save(cfg configstore.StoredConfig) (configstore.StoredConfig, error) {
	if err := cfg.Validate(); err != nil {
		return configstore.StoredConfig{}, err
	}
	if cfg.Timestamp == 0 {
		cfg.Timestamp = s.now().UnixMilli()
	}
	if cfg.Groups == nil {
		cfg.Groups = []scale.WeightGroup{}
	}

	groups, err := json.Marshal(cfg.Groups)
	if err != nil {
		return configstore.StoredConfig{}, fmt.Errorf("failed to encode groups: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO configurations (name, groups_json, timestamp_ms)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			groups_json = excluded.groups_json,
			timestamp_ms = excluded.timestamp_ms`,
		cfg.Name, string(groups), cfg.Timestamp,
	)
	if err != nil {
		return configstore.StoredConfig{}, fmt.Errorf("failed to save configuration %q: %w", cfg.Name, err)
	}
	return cfg, nil
}

// Delete removes the named configuration if present.
func (s *ConfigStore) Delete(name string) error {
	if _, err := s.db.Exec(`DELETE FROM configurations WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete configuration %q: %w", name, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(r rowScanner) (configstore.StoredConfig, error) {
	var (
		c      configstore.StoredConfig
		groups string
	)
	if err := r.Scan(&c.Name, &groups, &c.Timestamp); err != nil {
		return configstore.StoredConfig{}, err
	}
	if err := json.Unmarshal([]byte(groups), &c.Groups); err != nil {
		return configstore.StoredConfig{}, fmt.Errorf("failed to decode groups for %q: %w", c.Name, err)
	}
	return c, nil
}
