// Package config provides configuration management for issuecluster.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
)

const (
	// DefaultWorkerPort is the default HTTP port for the worker service.
	DefaultWorkerPort = 38080

	// DefaultThreshold is the default merge-stop distance. Best results
	// for issue exports are around 0.5.
	DefaultThreshold = 0.50

	// DefaultSortKey is the default cluster ordering.
	DefaultSortKey = "size"

	// DefaultCSVDelimiter matches issue-tracker exports, which use
	// semicolon-separated files.
	DefaultCSVDelimiter = ";"
)

// Config holds the application configuration.
type Config struct {
	// Worker settings
	WorkerPort int `json:"worker_port"`

	// Embedding service settings (OpenAI-compatible endpoint)
	EmbeddingBaseURL    string `json:"embedding_base_url"`
	EmbeddingAPIKey     string `json:"embedding_api_key"`
	EmbeddingModel      string `json:"embedding_model"`
	EmbeddingDimensions int    `json:"embedding_dimensions"`

	// Pipeline defaults
	PrimaryColumn    string  `json:"primary_column"`
	CSVDelimiter     string  `json:"csv_delimiter"`
	DefaultThreshold float64 `json:"default_threshold"`
	DefaultSortKey   string  `json:"default_sort_key"`

	// Report settings
	TrackerBaseURL string `json:"tracker_base_url"`

	// CacheDir holds spilled embedding sets; empty disables the spill.
	CacheDir string `json:"cache_dir"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// DataDir returns the data directory path (~/.issuecluster).
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".issuecluster")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0o750)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		WorkerPort:       DefaultWorkerPort,
		PrimaryColumn:    "Summary",
		CSVDelimiter:     DefaultCSVDelimiter,
		DefaultThreshold: DefaultThreshold,
		DefaultSortKey:   DefaultSortKey,
		CacheDir:         filepath.Join(DataDir(), "cache"),
	}
}

// Load loads configuration from the settings file and environment,
// merging with defaults. Environment variables win over the file.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if len(data) > 0 {
		// Load settings into a map to preserve unknown fields.
		var settings map[string]interface{}
		if err := json.Unmarshal(data, &settings); err == nil {
			applySettings(cfg, settings)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applySettings(cfg *Config, settings map[string]interface{}) {
	if v, ok := settings["ISSUECLUSTER_WORKER_PORT"].(float64); ok && v > 0 {
		cfg.WorkerPort = int(v)
	}
	if v, ok := settings["ISSUECLUSTER_EMBEDDING_BASE_URL"].(string); ok && v != "" {
		cfg.EmbeddingBaseURL = v
	}
	if v, ok := settings["ISSUECLUSTER_EMBEDDING_API_KEY"].(string); ok && v != "" {
		cfg.EmbeddingAPIKey = v
	}
	if v, ok := settings["ISSUECLUSTER_EMBEDDING_MODEL"].(string); ok && v != "" {
		cfg.EmbeddingModel = v
	}
	if v, ok := settings["ISSUECLUSTER_EMBEDDING_DIMENSIONS"].(float64); ok && v > 0 {
		cfg.EmbeddingDimensions = int(v)
	}
	if v, ok := settings["ISSUECLUSTER_PRIMARY_COLUMN"].(string); ok && v != "" {
		cfg.PrimaryColumn = v
	}
	if v, ok := settings["ISSUECLUSTER_CSV_DELIMITER"].(string); ok && v != "" {
		cfg.CSVDelimiter = v
	}
	if v, ok := settings["ISSUECLUSTER_DEFAULT_THRESHOLD"].(float64); ok && v >= 0 {
		cfg.DefaultThreshold = v
	}
	if v, ok := settings["ISSUECLUSTER_DEFAULT_SORTING"].(string); ok && v != "" {
		cfg.DefaultSortKey = v
	}
	if v, ok := settings["ISSUECLUSTER_TRACKER_BASE_URL"].(string); ok && v != "" {
		cfg.TrackerBaseURL = v
	}
	if v, ok := settings["ISSUECLUSTER_CACHE_DIR"].(string); ok {
		cfg.CacheDir = v
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ISSUECLUSTER_WORKER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.WorkerPort = p
		}
	}
	if v := os.Getenv("ISSUECLUSTER_EMBEDDING_BASE_URL"); v != "" {
		cfg.EmbeddingBaseURL = v
	}
	if v := os.Getenv("ISSUECLUSTER_EMBEDDING_API_KEY"); v != "" {
		cfg.EmbeddingAPIKey = v
	}
	if v := os.Getenv("ISSUECLUSTER_EMBEDDING_MODEL"); v != "" {
		cfg.EmbeddingModel = v
	}
	if v := os.Getenv("ISSUECLUSTER_EMBEDDING_DIMENSIONS"); v != "" {
		if d, err := strconv.Atoi(v); err == nil && d > 0 {
			cfg.EmbeddingDimensions = d
		}
	}
	if v := os.Getenv("ISSUECLUSTER_PRIMARY_COLUMN"); v != "" {
		cfg.PrimaryColumn = v
	}
	if v := os.Getenv("ISSUECLUSTER_CSV_DELIMITER"); v != "" {
		cfg.CSVDelimiter = v
	}
	if v := os.Getenv("ISSUECLUSTER_TRACKER_BASE_URL"); v != "" {
		cfg.TrackerBaseURL = v
	}
	if v := os.Getenv("ISSUECLUSTER_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	configOnce.Do(func() {
		var err error
		globalConfig, err = Load()
		if err != nil {
			globalConfig = Default()
		}
	})

	return globalConfig
}

// Delimiter returns the configured CSV delimiter as a rune.
func (c *Config) Delimiter() rune {
	if c.CSVDelimiter == "" {
		return ';'
	}
	return []rune(c.CSVDelimiter)[0]
}
