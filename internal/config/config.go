// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Graph() GraphConfig
	Ingest() IngestConfig
	Server() ServerConfig

	// Graph Setters
	SetGraphSnapshotPath(string)
	SetGraphAutosave(bool)

	// Ingest Setters
	SetIngestConcurrency(int)
	SetIngestProvenance(string)

	// Server Setters
	SetServerAddr(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg LoggerConfig `mapstructure:"logger" yaml:"logger"`
	GraphCfg  GraphConfig  `mapstructure:"graph" yaml:"graph"`
	IngestCfg IngestConfig `mapstructure:"ingest" yaml:"ingest"`
	ServerCfg ServerConfig `mapstructure:"server" yaml:"server"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig { return c.LoggerCfg }
func (c *Config) Graph() GraphConfig   { return c.GraphCfg }
func (c *Config) Ingest() IngestConfig { return c.IngestCfg }
func (c *Config) Server() ServerConfig { return c.ServerCfg }

// --- Interface Method Implementations (Setters) ---

// Graph Setters
func (c *Config) SetGraphSnapshotPath(p string) { c.GraphCfg.SnapshotPath = p }
func (c *Config) SetGraphAutosave(b bool)       { c.GraphCfg.Autosave = b }

// Ingest Setters
func (c *Config) SetIngestConcurrency(n int)    { c.IngestCfg.Concurrency = n }
func (c *Config) SetIngestProvenance(p string) { c.IngestCfg.Provenance = p }

// Server Setters
func (c *Config) SetServerAddr(addr string) { c.ServerCfg.Addr = addr }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// GraphConfig controls where the knowledge graph is persisted.
type GraphConfig struct {
	// SnapshotPath is a file or directory; "~" is expanded.
	SnapshotPath string `mapstructure:"snapshot_path" yaml:"snapshot_path"`
	// Autosave writes the snapshot back after every mutating command.
	Autosave bool `mapstructure:"autosave" yaml:"autosave"`
}

// IngestConfig tunes the batch ingest pipeline.
type IngestConfig struct {
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
	Provenance  string `mapstructure:"provenance" yaml:"provenance"`
}

// ServerConfig configures the HTTP query server.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	Mode string `mapstructure:"mode" yaml:"mode"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "skillgraph")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Graph --
	v.SetDefault("graph.snapshot_path", "~/.skillgraph/graph.skg")
	v.SetDefault("graph.autosave", true)

	// -- Ingest --
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.provenance", "ingested")

	// -- Server --
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
}

// EnvPrefix is the prefix for environment overrides, e.g. SKILLGRAPH_INGEST_CONCURRENCY.
const EnvPrefix = "SKILLGRAPH"

// BindEnv makes every configuration key overridable from the environment.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GraphCfg.SnapshotPath) == "" {
		return fmt.Errorf("graph.snapshot_path is a required configuration field")
	}
	if c.IngestCfg.Concurrency <= 0 {
		return fmt.Errorf("ingest.concurrency must be a positive integer")
	}
	switch c.IngestCfg.Provenance {
	case "ingested", "file":
	default:
		return fmt.Errorf("ingest.provenance must be one of 'ingested' or 'file', got %q", c.IngestCfg.Provenance)
	}
	switch c.ServerCfg.Mode {
	case "release", "debug", "test":
	default:
		return fmt.Errorf("server.mode must be one of 'release', 'debug' or 'test', got %q", c.ServerCfg.Mode)
	}
	if strings.TrimSpace(c.ServerCfg.Addr) == "" {
		return fmt.Errorf("server.addr is a required configuration field")
	}
	return nil
}
