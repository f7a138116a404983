// Package config loads the announcer server configuration.
//
// Settings come from an optional YAML file, overridden by environment
// variables named after the setting path (database.host -> DATABASE_HOST).
package config

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"github.com/coregx/announcer/retry"
)

// Config holds all configuration for the announcer server.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Announcer AnnouncerConfig `mapstructure:"announcer"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host                string `mapstructure:"host"`
	Port                int    `mapstructure:"port"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ReadTimeout returns the read timeout.
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the write timeout.
func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // mysql, postgres, sqlite3
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"` // database name, or file path for sqlite3
	SSLMode  string `mapstructure:"sslmode"`
	Prefix   string `mapstructure:"prefix"` // table prefix
}

// AnnouncerConfig holds dispatch settings.
type AnnouncerConfig struct {
	ProjectName     string   `mapstructure:"project_name"`
	ProjectURL      string   `mapstructure:"project_url"`
	DefaultDomain   string   `mapstructure:"default_domain"` // appended to session ids without an address
	DefaultAdverb   string   `mapstructure:"default_adverb"` // accept or deny
	IgnoreCCChanges bool     `mapstructure:"ignore_cc_changes"`
	IgnoreAuthor    bool     `mapstructure:"ignore_author"` // never announce a change to its author
	Notifications   bool     `mapstructure:"notifications"`
	Distributors    []string `mapstructure:"distributors"`

	// Delivery retries; RetryAttempts counts the first attempt.
	RetryAttempts    int `mapstructure:"retry_attempts"`
	RetryBaseDelayMS int `mapstructure:"retry_base_delay_ms"`
	RetryMaxDelayMS  int `mapstructure:"retry_max_delay_ms"`
}

// RetryStrategy returns the delivery retry strategy.
func (c AnnouncerConfig) RetryStrategy() retry.Strategy {
	return retry.Strategy{
		MaxAttempts:     c.RetryAttempts,
		BaseDelay:       time.Duration(c.RetryBaseDelayMS) * time.Millisecond,
		MaxDelay:        time.Duration(c.RetryMaxDelayMS) * time.Millisecond,
		ExponentialBase: 2.0,
	}
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Drivers supported by the server.
var Drivers = []interface{}{"mysql", "postgres", "sqlite3"}

// setDefaults registers every key, which AutomaticEnv needs to see
// environment overrides during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 15)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "announcer")
	v.SetDefault("database.name", "announcer.db")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.prefix", "")

	v.SetDefault("announcer.project_name", "Project")
	v.SetDefault("announcer.project_url", "")
	v.SetDefault("announcer.default_domain", "")
	v.SetDefault("announcer.default_adverb", "deny")
	v.SetDefault("announcer.ignore_cc_changes", false)
	v.SetDefault("announcer.ignore_author", false)
	v.SetDefault("announcer.notifications", true)
	v.SetDefault("announcer.distributors", []string{"email"})
	v.SetDefault("announcer.retry_attempts", 3)
	v.SetDefault("announcer.retry_base_delay_ms", 500)
	v.SetDefault("announcer.retry_max_delay_ms", 5000)

	v.SetDefault("logging.level", "info")
}

// Load reads the configuration. configFile may be empty, in which case
// only defaults and environment variables apply.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Errors{
		"server.port": validation.Validate(c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		"database":    c.Database.Validate(),
		"announcer.default_adverb": validation.Validate(c.Announcer.DefaultAdverb,
			validation.Required, validation.In("accept", "deny", "always", "never")),
		"announcer.distributors":   validation.Validate(c.Announcer.Distributors, validation.Required),
		"announcer.retry_attempts": validation.Validate(c.Announcer.RetryAttempts, validation.Min(1), validation.Max(10)),
		"logging.level":            validation.Validate(c.Logging.Level, validation.In("debug", "info", "warn", "error")),
	}.Filter()
}

// Validate checks the database settings.
func (c DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In(Drivers...)),
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Host, validation.When(c.Driver != "sqlite3", validation.Required)),
		validation.Field(&c.Password, validation.When(c.Driver != "sqlite3", validation.Required)),
	)
}

// GetDSN returns the database connection string based on driver.
func (c *DatabaseConfig) GetDSN() string {
	switch strings.ToLower(c.Driver) {
	case "mysql":
		// multiStatements lets migrations carry several statements per file.
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
			c.User, c.Password, c.Host, c.Port, c.Name)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	case "sqlite3":
		return c.Name
	default:
		return ""
	}
}
