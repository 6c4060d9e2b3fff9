package config

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Env holds the environment overrides applied on top of the JSON config.
type Env struct {
	Port    string `env:"PORT"`
	DataDir string `env:"COUNTING_SCALE_DATA_DIR"`
	Store   string `env:"COUNTING_SCALE_STORE"`
	DB      string `env:"COUNTING_SCALE_DB"`
}

// LoadEnv reads the environment overrides.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return e, nil
}

// ApplyEnv overlays the non-empty environment values onto c and
// revalidates the result. COUNTING_SCALE_DATA_DIR relocates both the JSON
// store and the sqlite database, replacing any paths from the config file;
// COUNTING_SCALE_DB then overrides the database path alone.
func (c *ScaleConfig) ApplyEnv(e Env) error {
	if e.Port != "" {
		c.Listen = ptrString(":" + e.Port)
	}
	if e.DataDir != "" {
		c.DataFile = ptrString(filepath.Join(e.DataDir, "configurations.json"))
		c.SQLitePath = ptrString(filepath.Join(e.DataDir, "counting_scale.db"))
	}
	if e.Store != "" {
		c.StoreBackend = ptrString(e.Store)
	}
	if e.DB != "" {
		c.SQLitePath = ptrString(e.DB)
	}
	return c.Validate()
}
