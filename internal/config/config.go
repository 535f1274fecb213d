// Package config loads service configuration from defaults, an optional
// config.yaml and TRIPMAP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable: TRIPMAP_PLANNER_API_KEY → planner.api_key.
const EnvPrefix = "TRIPMAP"

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Map       MapConfig       `mapstructure:"map"`
	Session   SessionConfig   `mapstructure:"session"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	Port       int    `mapstructure:"port"`
	Env        string `mapstructure:"env"`
	RequireTLS bool   `mapstructure:"require_tls"`
}

// IsProduction reports whether the service runs in production.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

type PlannerConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  uint64        `mapstructure:"max_retries"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

type ValkeyConfig struct {
	// Addr of the Valkey server. Empty disables the planner cache.
	Addr string `mapstructure:"addr"`
}

type MapConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	LoadTimeout       time.Duration `mapstructure:"load_timeout"`
	NavigationBaseURL string        `mapstructure:"navigation_base_url"`
}

type SessionConfig struct {
	IdleTTL         time.Duration `mapstructure:"idle_ttl"`
	MaxSessions     int           `mapstructure:"max_sessions"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type PubSubConfig struct {
	ProjectID    string `mapstructure:"project_id"`
	Topic        string `mapstructure:"topic"`
	Subscription string `mapstructure:"subscription"`
}

// Enabled reports whether asynchronous generation jobs are configured.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != ""
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// LoadDotEnv loads the given .env files, or ".env" when none are named, into the
// process environment. Missing files are ignored and existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.env", "development")
	v.SetDefault("app.require_tls", false)

	v.SetDefault("database.enabled", true)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tripmap")
	v.SetDefault("database.password", "localdev")
	v.SetDefault("database.dbname", "tripmap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "authenticated")

	v.SetDefault("planner.api_key", "")
	v.SetDefault("planner.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("planner.model", "qwen-turbo-2025-07-15")
	v.SetDefault("planner.temperature", 0.5)
	v.SetDefault("planner.timeout", 60*time.Second)
	v.SetDefault("planner.max_retries", 2)
	v.SetDefault("planner.cache_ttl", time.Hour)

	v.SetDefault("valkey.addr", "")

	v.SetDefault("map.api_key", "")
	v.SetDefault("map.load_timeout", 5*time.Second)
	v.SetDefault("map.navigation_base_url", "https://uri.amap.com/marker")

	v.SetDefault("session.idle_ttl", 30*time.Minute)
	v.SetDefault("session.max_sessions", 1000)
	v.SetDefault("session.cleanup_interval", time.Minute)

	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "itinerary-jobs")
	v.SetDefault("pubsub.subscription", "itinerary-jobs-worker")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Sprintf("app.port must be 1-65535, got %d", c.App.Port))
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	}

	if c.App.IsProduction() && c.Auth.JWTSecret == "" {
		errs = append(errs, "auth.jwt_secret is required in production")
	}

	if c.Planner.Temperature < 0 || c.Planner.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("planner.temperature must be 0-2, got %g", c.Planner.Temperature))
	}
	if c.Planner.Timeout <= 0 {
		errs = append(errs, "planner.timeout must be positive")
	}
	if !absoluteHTTPURL(c.Planner.BaseURL) {
		errs = append(errs, "planner.base_url must be an absolute http(s) URL")
	}

	if !absoluteHTTPURL(c.Map.NavigationBaseURL) {
		errs = append(errs, "map.navigation_base_url must be an absolute http(s) URL")
	}

	if c.Session.IdleTTL <= 0 {
		errs = append(errs, "session.idle_ttl must be positive")
	}
	if c.Session.MaxSessions <= 0 {
		errs = append(errs, "session.max_sessions must be positive")
	}

	if c.PubSub.Enabled() && c.PubSub.Topic == "" {
		errs = append(errs, "pubsub.topic is required when pubsub.project_id is set")
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Sprintf("telemetry.sample_ratio must be 0-1, got %g", c.Telemetry.SampleRatio))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func absoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
