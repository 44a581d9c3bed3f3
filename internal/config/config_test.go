// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "skillgraph", cfg.Logger().ServiceName)
	assert.Equal(t, "~/.skillgraph/graph.skg", cfg.Graph().SnapshotPath)
	assert.True(t, cfg.Graph().Autosave)
	assert.Equal(t, 4, cfg.Ingest().Concurrency)
	assert.Equal(t, "ingested", cfg.Ingest().Provenance)
	assert.Equal(t, ":8080", cfg.Server().Addr)
	assert.Equal(t, "release", cfg.Server().Mode)
	assert.NoError(t, cfg.Validate())
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetGraphSnapshotPath("/tmp/kg")
	cfg.SetGraphAutosave(false)
	cfg.SetIngestConcurrency(9)
	cfg.SetIngestProvenance("file")
	cfg.SetServerAddr("127.0.0.1:0")

	assert.Equal(t, "/tmp/kg", cfg.Graph().SnapshotPath)
	assert.False(t, cfg.Graph().Autosave)
	assert.Equal(t, 9, cfg.Ingest().Concurrency)
	assert.Equal(t, "file", cfg.Ingest().Provenance)
	assert.Equal(t, "127.0.0.1:0", cfg.Server().Addr)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"empty snapshot path", func(c *Config) { c.GraphCfg.SnapshotPath = " " }, "graph.snapshot_path is a required configuration field"},
		{"zero concurrency", func(c *Config) { c.IngestCfg.Concurrency = 0 }, "ingest.concurrency must be a positive integer"},
		{"negative concurrency", func(c *Config) { c.IngestCfg.Concurrency = -2 }, "ingest.concurrency must be a positive integer"},
		{"unknown provenance", func(c *Config) { c.IngestCfg.Provenance = "llm" }, "ingest.provenance must be one of"},
		{"file provenance", func(c *Config) { c.IngestCfg.Provenance = "file" }, ""},
		{"unknown server mode", func(c *Config) { c.ServerCfg.Mode = "prod" }, "server.mode must be one of"},
		{"empty server addr", func(c *Config) { c.ServerCfg.Addr = "" }, "server.addr is a required configuration field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
graph:
  snapshot_path: "/data/kg"
  autosave: false
ingest:
  concurrency: 8
  provenance: file
`)
		v := viper.New()
		SetDefaults(v) // Set defaults first
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "/data/kg", cfg.Graph().SnapshotPath)
		assert.False(t, cfg.Graph().Autosave)
		assert.Equal(t, 8, cfg.Ingest().Concurrency)
		assert.Equal(t, "file", cfg.Ingest().Provenance)
		// Check a default value was also loaded
		assert.Equal(t, "info", cfg.Logger().Level)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("ingest.concurrency", 0) // Intentionally invalid

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "ingest.concurrency must be a positive integer")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		BindEnv(v)

		yamlConfig := []byte(`
graph:
  snapshot_path: "/from/config/file"
`)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

		t.Setenv("SKILLGRAPH_GRAPH_SNAPSHOT_PATH", "/from/env")
		t.Setenv("SKILLGRAPH_INGEST_CONCURRENCY", "12")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		// The env var overrides the value from the config buffer.
		assert.Equal(t, "/from/env", cfg.Graph().SnapshotPath)
		assert.Equal(t, 12, cfg.Ingest().Concurrency)
	})
}

// -- Struct and Mapping Tests --

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  log_file: /var/log/skillgraph.log
  colors:
    info: blue
server:
  addr: "127.0.0.1:9090"
  mode: debug
`
	v := viper.New()
	SetDefaults(v) // Set defaults first
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlInput)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "debug", cfg.Logger().Level)
	assert.Equal(t, "/var/log/skillgraph.log", cfg.Logger().LogFile)
	assert.Equal(t, "blue", cfg.Logger().Colors.Info)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server().Addr)
	assert.Equal(t, "debug", cfg.Server().Mode)
}
