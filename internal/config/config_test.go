package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefault tests the default configuration values.
func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultWorkerPort, cfg.WorkerPort)
	assert.Equal(t, "Summary", cfg.PrimaryColumn)
	assert.Equal(t, ";", cfg.CSVDelimiter)
	assert.Equal(t, 0.50, cfg.DefaultThreshold)
	assert.Equal(t, "size", cfg.DefaultSortKey)
}

// TestApplyEnv tests that environment variables override defaults.
func TestApplyEnv(t *testing.T) {
	t.Setenv("ISSUECLUSTER_WORKER_PORT", "40123")
	t.Setenv("ISSUECLUSTER_EMBEDDING_BASE_URL", "http://localhost:4000/v1")
	t.Setenv("ISSUECLUSTER_EMBEDDING_API_KEY", "test-key")
	t.Setenv("ISSUECLUSTER_PRIMARY_COLUMN", "Title")
	t.Setenv("ISSUECLUSTER_CSV_DELIMITER", ",")

	cfg := Default()
	applyEnv(cfg)

	assert.Equal(t, 40123, cfg.WorkerPort)
	assert.Equal(t, "http://localhost:4000/v1", cfg.EmbeddingBaseURL)
	assert.Equal(t, "test-key", cfg.EmbeddingAPIKey)
	assert.Equal(t, "Title", cfg.PrimaryColumn)
	assert.Equal(t, ',', cfg.Delimiter())
}

// TestApplyEnv_InvalidPort tests that a malformed port is ignored.
func TestApplyEnv_InvalidPort(t *testing.T) {
	t.Setenv("ISSUECLUSTER_WORKER_PORT", "not-a-port")

	cfg := Default()
	applyEnv(cfg)
	assert.Equal(t, DefaultWorkerPort, cfg.WorkerPort)
}

// TestApplySettings tests merging a settings map over defaults.
func TestApplySettings(t *testing.T) {
	cfg := Default()
	applySettings(cfg, map[string]interface{}{
		"ISSUECLUSTER_WORKER_PORT":       float64(39999),
		"ISSUECLUSTER_DEFAULT_THRESHOLD": 0.35,
		"ISSUECLUSTER_DEFAULT_SORTING":   "coherence",
		"ISSUECLUSTER_TRACKER_BASE_URL":  "https://jira.example.com",
		"ISSUECLUSTER_CACHE_DIR":         "",
	})

	assert.Equal(t, 39999, cfg.WorkerPort)
	assert.Equal(t, 0.35, cfg.DefaultThreshold)
	assert.Equal(t, "coherence", cfg.DefaultSortKey)
	assert.Equal(t, "https://jira.example.com", cfg.TrackerBaseURL)
	assert.Equal(t, "", cfg.CacheDir)
}

// TestDelimiter tests the delimiter accessor fallback.
func TestDelimiter(t *testing.T) {
	cfg := Default()
	require.Equal(t, ';', cfg.Delimiter())

	cfg.CSVDelimiter = ""
	assert.Equal(t, ';', cfg.Delimiter())

	cfg.CSVDelimiter = "\t"
	assert.Equal(t, '\t', cfg.Delimiter())
}
