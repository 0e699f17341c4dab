package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/bizmap/internal/model"
	"github.com/sells-group/bizmap/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Dataset DatasetConfig `yaml:"dataset" mapstructure:"dataset"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Map     MapConfig     `yaml:"map" mapstructure:"map"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DatasetConfig locates the company dataset. Location is a local path,
// a file:// URL, or an http(s):// or ftp:// URL ending in .xlsx, .csv,
// or .json.
type DatasetConfig struct {
	Location   string `yaml:"location" mapstructure:"location"`
	SheetName  string `yaml:"sheet_name" mapstructure:"sheet_name"`
	SheetIndex int    `yaml:"sheet_index" mapstructure:"sheet_index"`
	// RevalidateSecs is how long a loaded dataset is served before its
	// version is checked again. 0 checks only on first load and reload.
	RevalidateSecs int `yaml:"revalidate_secs" mapstructure:"revalidate_secs"`
}

// RevalidateAfter returns the revalidation window as a duration.
func (d DatasetConfig) RevalidateAfter() time.Duration {
	return time.Duration(d.RevalidateSecs) * time.Second
}

// FetchConfig configures remote dataset downloads.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TempDir     string  `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// Timeout returns the fetch timeout as a duration.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// StoreConfig configures the load-run audit store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// PoolConfig returns the Postgres pool sizing.
func (s StoreConfig) PoolConfig() *store.PoolConfig {
	return &store.PoolConfig{MaxConns: s.MaxConns, MinConns: s.MinConns}
}

// ServerConfig configures the query API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// MapConfig holds the marker clustering defaults handed to the renderer.
type MapConfig struct {
	Clustering     bool `yaml:"clustering" mapstructure:"clustering"`
	ClusterRadius  int  `yaml:"cluster_radius" mapstructure:"cluster_radius"`
	MinClusterSize int  `yaml:"min_cluster_size" mapstructure:"min_cluster_size"`
}

// ClusterOptions converts the map settings into renderer options.
func (m MapConfig) ClusterOptions() model.ClusterOptions {
	opts := model.DefaultClusterOptions()
	opts.Enabled = m.Clustering
	opts.Radius = m.ClusterRadius
	opts.MinClusterSize = m.MinClusterSize
	return opts
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BIZMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dataset.location", "data/companies.xlsx")
	v.SetDefault("dataset.sheet_index", 0)
	v.SetDefault("dataset.revalidate_secs", 300)
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "bizmap/1.0")
	v.SetDefault("fetch.rate_limit", 5.0)
	v.SetDefault("store.driver", store.DriverSQLite)
	v.SetDefault("store.database_url", "bizmap.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("map.clustering", true)
	v.SetDefault("map.cluster_radius", 50)
	v.SetDefault("map.min_cluster_size", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is "serve" or
// "query"; "query" covers every command that only reads the dataset.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case "query":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if strings.TrimSpace(c.Dataset.Location) == "" {
		errs = append(errs, "dataset.location is required")
	}
	if c.Dataset.SheetIndex < 0 {
		errs = append(errs, "dataset.sheet_index must be >= 0")
	}
	if c.Dataset.RevalidateSecs < 0 {
		errs = append(errs, "dataset.revalidate_secs must be >= 0")
	}
	if c.Fetch.MaxRetries < 0 {
		errs = append(errs, "fetch.max_retries must be >= 0")
	}

	switch c.Store.Driver {
	case store.DriverSQLite, store.DriverPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for driver "+c.Store.Driver)
		}
	case store.DriverNone, "":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be one of sqlite, postgres, none (got %q)", c.Store.Driver))
	}

	if err := c.Map.ClusterOptions().Validate(); err != nil {
		errs = append(errs, "map: "+strings.TrimPrefix(err.Error(), "model: "))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
