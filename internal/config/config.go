package config

import (
	"fmt"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/folio/internal/config/loader"
)

// Config holds every folio setting.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	History HistoryConfig `yaml:"history"`
	Upload  UploadConfig  `yaml:"upload"`
	Store   StoreConfig   `yaml:"store"`
	Plugins PluginConfig  `yaml:"plugins"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// HistoryConfig configures undo history.
type HistoryConfig struct {
	// MaxEntries caps undo entries; 0 keeps every entry.
	MaxEntries int `yaml:"maxEntries"`
}

// UploadConfig configures the media upload backend.
type UploadConfig struct {
	// Backend is "none" or "minio".
	Backend       string        `yaml:"backend"`
	Endpoint      string        `yaml:"endpoint"`
	Bucket        string        `yaml:"bucket"`
	AccessKey     string        `yaml:"accessKey"`
	SecretKey     string        `yaml:"secretKey"`
	UseSSL        bool          `yaml:"useSsl"`
	PublicURL     string        `yaml:"publicUrl"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxConcurrent int           `yaml:"maxConcurrent"`
}

// StoreConfig configures the document store.
type StoreConfig struct {
	// Driver is sqlite or postgres.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// PluginConfig configures Lua slash-command plugins.
type PluginConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log:     LogConfig{Level: "info", Format: "text"},
		Upload:  UploadConfig{Backend: "none", Timeout: 2 * time.Minute, MaxConcurrent: 4},
		Store:   StoreConfig{Driver: "sqlite", DSN: "folio.db"},
		Plugins: PluginConfig{Dir: "plugins"},
		Metrics: MetricsConfig{Addr: ":9090"},
	}
}

// Validate checks every setting.
func (c *Config) Validate() error {
	switch {
	case !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level):
		return &ValidationError{Path: "log.level", Value: c.Log.Level, Message: "must be debug, info, warn or error"}
	case c.Log.Format != "text" && c.Log.Format != "json":
		return &ValidationError{Path: "log.format", Value: c.Log.Format, Message: "must be text or json"}
	case c.History.MaxEntries < 0:
		return &ValidationError{Path: "history.maxEntries", Value: c.History.MaxEntries, Message: "must not be negative"}
	case c.Upload.Backend != "none" && c.Upload.Backend != "minio":
		return &ValidationError{Path: "upload.backend", Value: c.Upload.Backend, Message: "must be none or minio"}
	case c.Upload.Backend == "minio" && (c.Upload.Endpoint == "" || c.Upload.Bucket == ""):
		return &ValidationError{Path: "upload", Value: c.Upload.Endpoint, Message: "minio needs an endpoint and a bucket"}
	case c.Upload.MaxConcurrent < 1:
		return &ValidationError{Path: "upload.maxConcurrent", Value: c.Upload.MaxConcurrent, Message: "must be at least 1"}
	case c.Upload.Timeout <= 0:
		return &ValidationError{Path: "upload.timeout", Value: c.Upload.Timeout, Message: "must be positive"}
	case c.Store.Driver != "sqlite" && c.Store.Driver != "postgres":
		return &ValidationError{Path: "store.driver", Value: c.Store.Driver, Message: "must be sqlite or postgres"}
	}
	return nil
}

// Load builds the configuration from defaults, the file at path and the
// environment. An empty path skips the file; a missing file is not an
// error.
func Load(path string) (*Config, error) {
	return load(loader.DefaultFS(), path, loader.NewEnvLoader(loader.EnvPrefix))
}

func load(fsys loader.FileSystem, path string, env loader.Loader) (*Config, error) {
	sources := make([]loader.Loader, 0, 2)
	if path != "" {
		fl, err := loader.ForPath(fsys, path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, fl)
	}
	if env != nil {
		sources = append(sources, env)
	}

	merged := map[string]any{}
	for _, src := range sources {
		m, err := src.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, m)
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode applies the merged settings map over the defaults. The map goes
// through YAML so struct tags and duration strings decode the same way
// for every source.
func decode(settings map[string]any) (*Config, error) {
	cfg := Default()
	if len(settings) == 0 {
		return cfg, nil
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("config: encoding settings: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}
