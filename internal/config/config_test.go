package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songrec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
  rate_limit: 0
ranker:
  threshold: 0.75
  strategy: heap
generator:
  url: http://tf-serving:8501
  timeout: 2s
`), 0o600))

	t.Setenv("SONGREC_RANKER_DEFAULT_K", "25")
	t.Setenv("SONGREC_GENERATOR_MODEL", "latent")
	t.Setenv("SONGREC_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 0, cfg.Server.RateLimit)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "defaults survive")
	assert.InDelta(t, 0.75, cfg.Ranker.Threshold, 1e-9)
	assert.Equal(t, "heap", cfg.Ranker.Strategy)
	assert.Equal(t, 25, cfg.Ranker.DefaultK)
	assert.Equal(t, "http://tf-serving:8501", cfg.Generator.URL)
	assert.Equal(t, 2*time.Second, cfg.Generator.Timeout)
	assert.Equal(t, "latent", cfg.Generator.Model)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("SONGREC_RANKER_STRATEGY", "bubble")
	_, err := Load(writeEmpty(t))
	assert.Error(t, err)
}

func writeEmpty(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))
	return path
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"threshold above one", func(c *Config) { c.Ranker.Threshold = 1.5 }, false},
		{"k above max", func(c *Config) { c.Ranker.DefaultK = 101 }, false},
		{"bad generator url", func(c *Config) { c.Generator.URL = "not a url" }, false},
		{"s3 without bucket", func(c *Config) { c.Store.Kind = "s3" }, false},
		{"s3 with bucket", func(c *Config) { c.Store.Kind = "s3"; c.Store.Bucket = "songs" }, true},
		{"minio without endpoint", func(c *Config) { c.Store.Kind = "minio"; c.Store.Bucket = "songs" }, false},
		{"pointer table on local", func(c *Config) { c.Store.PointerTable = "pointers" }, false},
		{"unknown store", func(c *Config) { c.Store.Kind = "ftp" }, false},
		{"rate limit without window", func(c *Config) { c.Server.RateWindow = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	assert.Equal(t, "server.addr", envTransformFunc("SONGREC_SERVER_ADDR"))
	assert.Equal(t, "limits.max_concurrent_queries", envTransformFunc("SONGREC_LIMITS_MAX_CONCURRENT_QUERIES"))
	assert.Equal(t, "", envTransformFunc("SONGREC_CONFIG"))
}
