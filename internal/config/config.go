package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Census    CensusConfig    `yaml:"census" mapstructure:"census"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Apportion ApportionConfig `yaml:"apportion" mapstructure:"apportion"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CensusConfig configures where the census extract is loaded from.
type CensusConfig struct {
	Source          string `yaml:"source" mapstructure:"source"`
	Encoding        string `yaml:"encoding" mapstructure:"encoding"`
	LoadTimeoutSecs int    `yaml:"load_timeout_secs" mapstructure:"load_timeout_secs"`
	FailOnLoadError bool   `yaml:"fail_on_load_error" mapstructure:"fail_on_load_error"`
	TempDir         string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// FetchConfig configures remote (HTTP/FTP) census sources.
type FetchConfig struct {
	UserAgent  string  `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRetries int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// StoreConfig configures the database used by import and database-backed sources.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// ApportionConfig configures the province apportioner's random source.
// A zero seed draws a fresh stream per query.
type ApportionConfig struct {
	Seed uint64 `yaml:"seed" mapstructure:"seed"`
}

// ServerConfig configures the HTTP view server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from ./config.yaml (optional) and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path and environment. An empty path
// looks for an optional config.yaml in the working directory; an explicit
// path must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.SetConfigType("yaml")

	// Environment
	v.SetEnvPrefix("CENSUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("census.source", "data.csv")
	v.SetDefault("census.encoding", "utf-8")
	v.SetDefault("census.load_timeout_secs", 30)
	v.SetDefault("census.fail_on_load_error", false)
	v.SetDefault("census.temp_dir", "/tmp/census-cli")
	v.SetDefault("fetch.user_agent", "census-cli/1.0")
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_per_sec", 5.0)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "census.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("apportion.seed", 0)
	v.SetDefault("server.port", 8050)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by the given command mode
// ("view", "serve", or "import") and reports every problem at once.
func (c *Config) Validate(mode string) error {
	var errs []string

	if strings.TrimSpace(c.Census.Source) == "" {
		errs = append(errs, "census.source is required")
	}
	if c.Census.LoadTimeoutSecs <= 0 {
		errs = append(errs, "census.load_timeout_secs must be > 0")
	}
	switch strings.ToLower(c.Census.Encoding) {
	case "", "utf-8", "utf8", "latin1", "iso-8859-1", "windows-1252":
	default:
		errs = append(errs, fmt.Sprintf("census.encoding %q is not supported", c.Census.Encoding))
	}

	switch mode {
	case "view":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case "import":
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
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
