package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical scale defaults file.
const DefaultConfigPath = "config/scale.defaults.json"

// Store backends accepted by StoreBackend.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// ScaleConfig is the server configuration. Every field is optional; the
// Get* methods supply defaults for anything the file leaves out.
type ScaleConfig struct {
	// Listen address for the HTTP server, e.g. ":3001".
	Listen *string `json:"listen,omitempty"`

	// Persistence
	StoreBackend *string `json:"store_backend,omitempty"` // "file" or "sqlite"
	DataFile     *string `json:"data_file,omitempty"`
	SQLitePath   *string `json:"sqlite_path,omitempty"`

	// Simulated machine delays, as duration strings like "1500ms".
	ProductionDelay  *string `json:"production_delay,omitempty"`
	CalibrationDelay *string `json:"calibration_delay,omitempty"`
	WeighingDelay    *string `json:"weighing_delay,omitempty"`

	// Defaults used when a request omits the value.
	ReferenceCount *int `json:"reference_count,omitempty"`
	SampleSize     *int `json:"sample_size,omitempty"`

	// Seed for the part generator. Zero seeds from entropy.
	Seed *uint64 `json:"seed,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyScaleConfig returns a ScaleConfig with all fields unset.
func EmptyScaleConfig() *ScaleConfig {
	return &ScaleConfig{}
}

// LoadScaleConfig loads a ScaleConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadScaleConfig(path string) (*ScaleConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyScaleConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configured values are usable.
func (c *ScaleConfig) Validate() error {
	if c.StoreBackend != nil {
		switch *c.StoreBackend {
		case StoreFile, StoreSQLite:
		default:
			return fmt.Errorf("store_backend must be %q or %q, got %q", StoreFile, StoreSQLite, *c.StoreBackend)
		}
	}

	for name, v := range map[string]*string{
		"production_delay":  c.ProductionDelay,
		"calibration_delay": c.CalibrationDelay,
		"weighing_delay":    c.WeighingDelay,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, d)
		}
	}

	if c.ReferenceCount != nil && *c.ReferenceCount < 1 {
		return fmt.Errorf("reference_count must be positive, got %d", *c.ReferenceCount)
	}
	if c.SampleSize != nil && *c.SampleSize < 1 {
		return fmt.Errorf("sample_size must be positive, got %d", *c.SampleSize)
	}

	return nil
}

// GetListen returns the listen address or the default.
func (c *ScaleConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return ":3001"
	}
	return *c.Listen
}

// GetStoreBackend returns the configuration store backend or the default.
func (c *ScaleConfig) GetStoreBackend() string {
	if c.StoreBackend == nil || *c.StoreBackend == "" {
		return StoreFile
	}
	return *c.StoreBackend
}

// GetDataFile returns the JSON configuration file path or the default.
func (c *ScaleConfig) GetDataFile() string {
	if c.DataFile == nil || *c.DataFile == "" {
		return filepath.Join("data", "configurations.json")
	}
	return *c.DataFile
}

// GetSQLitePath returns the sqlite database path or the default.
func (c *ScaleConfig) GetSQLitePath() string {
	if c.SQLitePath == nil || *c.SQLitePath == "" {
		return filepath.Join("data", "counting_scale.db")
	}
	return *c.SQLitePath
}

func parseDelay(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// GetProductionDelay returns the simulated production time.
func (c *ScaleConfig) GetProductionDelay() time.Duration {
	return parseDelay(c.ProductionDelay, 1000*time.Millisecond)
}

// GetCalibrationDelay returns the simulated calibration time.
func (c *ScaleConfig) GetCalibrationDelay() time.Duration {
	return parseDelay(c.CalibrationDelay, 1500*time.Millisecond)
}

// GetWeighingDelay returns the simulated weighing time.
func (c *ScaleConfig) GetWeighingDelay() time.Duration {
	return parseDelay(c.WeighingDelay, 1500*time.Millisecond)
}

// GetReferenceCount returns the default calibration reference count.
func (c *ScaleConfig) GetReferenceCount() int {
	if c.ReferenceCount == nil {
		return 50
	}
	return *c.ReferenceCount
}

// GetSampleSize returns the default weighing sample size.
func (c *ScaleConfig) GetSampleSize() int {
	if c.SampleSize == nil {
		return 200
	}
	return *c.SampleSize
}

// GetSeed returns the generator seed, zero meaning random.
func (c *ScaleConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 0
	}
	return *c.Seed
}
