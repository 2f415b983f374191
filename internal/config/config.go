package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quotelane/exchange-cli/internal/db"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Events  EventsConfig  `yaml:"events" mapstructure:"events"`
	Expiry  ExpiryConfig  `yaml:"expiry" mapstructure:"expiry"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string    `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string    `yaml:"database_url" mapstructure:"database_url"`
	Pool        db.Config `yaml:"pool" mapstructure:"pool"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	CORSOrigins    []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// CatalogConfig points at an optional carrier catalog override file.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// EventsConfig configures the optional AMQP event publisher. Events are
// disabled when URL is empty.
type EventsConfig struct {
	URL      string `yaml:"url" mapstructure:"url"`
	Exchange string `yaml:"exchange" mapstructure:"exchange"`
}

// ExpiryConfig configures the stale-lead sweep that serve mode schedules.
type ExpiryConfig struct {
	Schedule    string `yaml:"schedule" mapstructure:"schedule"`
	MaxAgeHours int    `yaml:"max_age_hours" mapstructure:"max_age_hours"`
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
	v.SetEnvPrefix("EXCHANGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Empty-string defaults register the key so env-only values
	// still bind through Unmarshal.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 10)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("catalog.path", "")
	v.SetDefault("events.url", "")
	v.SetDefault("events.exchange", "quotelane.events")
	v.SetDefault("expiry.schedule", "0 * * * *")
	v.SetDefault("expiry.max_age_hours", 72)
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

// Validate checks the fields the given command mode depends on. Modes:
// "quote" runs in memory, "store" needs a reachable database, "serve" needs
// the database plus server and expiry settings.
func (c *Config) Validate(mode string) error {
	var problems []string

	storeChecks := func() {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	}

	switch mode {
	case "quote":
		// Rating needs no external collaborators.
	case "store":
		storeChecks()
	case "serve":
		storeChecks()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.RateLimitRPS <= 0 {
			problems = append(problems, "server.rate_limit_rps must be > 0")
		}
		if c.Server.RateLimitBurst < 1 {
			problems = append(problems, "server.rate_limit_burst must be >= 1")
		}
		if c.Expiry.MaxAgeHours < 1 {
			problems = append(problems, "expiry.max_age_hours must be >= 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
