// Package configstore persists named production configurations.
//
// Two flavours exist. FileStore backs the configuration service: a JSON
// array on disk where saving upserts by name. LocalStore mirrors a
// single-client store keyed under a fixed storage key, where saving
// appends a new timestamped revision. The sqlite-backed store lives in
// internal/db and satisfies the same Store interface.
package configstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/counting-scale/internal/scale"
)

// ErrNotFound is returned when no configuration has the requested name.
var ErrNotFound = errors.New("configuration not found")

// ErrInvalidName is returned when saving a configuration without a name.
var ErrInvalidName = errors.New("configuration name is required")

// StoredConfig is one named set of weight groups.
type StoredConfig struct {
	Name   string              `json:"name"`
	Groups []scale.WeightGroup `json:"groups"`
	// Timestamp is the save time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Validate checks that the configuration can be stored.
func (c StoredConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidName
	}
	return nil
}

// Production validates every group so the configuration can be fed to
// scale.Generator.GenerateGroups.
func (c StoredConfig) Production() ([]scale.WeightGroup, error) {
	if len(c.Groups) == 0 {
		return nil, fmt.Errorf("configuration %q: %w: no weight groups", c.Name, scale.ErrInvalidConfiguration)
	}
	for i, g := range c.Groups {
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("configuration %q group %d: %w", c.Name, i, err)
		}
	}
	return c.Groups, nil
}

// Store is the CRUD contract shared by every configuration backend.
type Store interface {
	// List returns every stored configuration.
	List() ([]StoredConfig, error)
	// Get returns the configuration with the given name.
	Get(name string) (StoredConfig, error)
	// Save persists cfg and returns the stored record.
	Save(cfg StoredConfig) (StoredConfig, error)
	// Delete removes every configuration with the given name. Deleting a
	// name that does not exist is not an error.
	Delete(name string) error
}
