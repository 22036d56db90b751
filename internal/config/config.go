// Package config defines the top-level configuration for the vending
// simulator and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by VENDBOT_* environment
// variables.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Oracle   OracleConfig   `toml:"oracle"`
	Sim      SimConfig      `toml:"sim"`
	Scoring  ScoringConfig  `toml:"scoring"`
	Restock  RestockConfig  `toml:"restock"`
	Retry    RetryConfig    `toml:"retry"`
	Seed     SeedConfig     `toml:"seed"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters. When Enabled is
// false the in-memory store is used instead, which only makes sense for
// dry runs.
type DatabaseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the commit lock and
// the oracle rate limiter.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for day-report
// archiving.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	GuidanceKey    string `toml:"guidance_key"`
}

// OracleConfig selects and tunes the decision oracle. Provider "local" uses
// the deterministic scorer; "llm" posts to a chat-completion endpoint.
type OracleConfig struct {
	Provider    string  `toml:"provider"`
	Endpoint    string  `toml:"endpoint"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
}

// SimConfig drives the day simulation loop.
type SimConfig struct {
	Date      string   `toml:"date"`       // YYYY-MM-DD; empty means today
	StartTime string   `toml:"start_time"` // HH:MM:SS
	EventStep duration `toml:"event_step"`
	Shuffle   bool     `toml:"shuffle"`
	RandSeed  int64    `toml:"rand_seed"`
	LoopDays  int      `toml:"loop_days"`
}

// ScoringConfig tunes the utility scorer.
type ScoringConfig struct {
	PriceScale    float64 `toml:"price_scale"`
	ThresholdBase float64 `toml:"threshold_base"`
	HungerBonus   float64 `toml:"hunger_bonus"`
	Epsilon       float64 `toml:"epsilon"`
}

// RestockConfig tunes restock plan validation.
type RestockConfig struct {
	// OverCapacity is "clamp" or "reject".
	OverCapacity             string   `toml:"over_capacity"`
	NewProductsNeedEmptySlot bool     `toml:"new_products_need_empty_slot"`
	LockTTL                  duration `toml:"lock_ttl"`
}

// RetryConfig bounds retries against external collaborators.
type RetryConfig struct {
	MaxAttempts int      `toml:"max_attempts"`
	Initial     duration `toml:"initial"`
	MaxInterval duration `toml:"max_interval"`
}

// SeedConfig drives the seed mode.
type SeedConfig struct {
	Customers      int     `toml:"customers"`
	InitialBalance float64 `toml:"initial_balance"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration so TOML values like "90s" parse directly.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

var validModes = map[string]bool{
	"day":     true,
	"restock": true,
	"loop":    true,
	"seed":    true,
	"serve":   true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Defaults returns the built-in configuration a TOML file is merged onto.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Enabled:       true,
			Host:          "localhost",
			Port:          5432,
			Database:      "vendbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "vendbot-data",
			ForcePathStyle: true,
		},
		Oracle: OracleConfig{
			Provider:    "local",
			Model:       "gpt-4o-mini",
			Temperature: 0.4,
		},
		Sim: SimConfig{
			StartTime: "09:00:00",
			EventStep: duration{90 * time.Second},
			Shuffle:   true,
			RandSeed:  1,
			LoopDays:  1,
		},
		Scoring: ScoringConfig{
			PriceScale:    1.0,
			ThresholdBase: 0.0,
			HungerBonus:   0.25,
			Epsilon:       0.0,
		},
		Restock: RestockConfig{
			OverCapacity: "clamp",
			LockTTL:      duration{time.Minute},
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Initial:     duration{time.Second},
			MaxInterval: duration{30 * time.Second},
		},
		Seed: SeedConfig{
			Customers:      24,
			InitialBalance: 100,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Mode:     "day",
		LogLevel: "info",
	}
}

// Validate checks the configuration for problems, collecting every issue
// rather than stopping at the first.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: day, restock, loop, seed, serve)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Database.Enabled {
		if strings.TrimSpace(c.Database.DSN) == "" {
			if c.Database.Host == "" {
				errs = append(errs, "database: host must not be empty (or set database.dsn)")
			}
			if c.Database.Port <= 0 || c.Database.Port > 65535 {
				errs = append(errs, fmt.Sprintf("database: port %d out of range", c.Database.Port))
			}
		}
		if c.Database.PoolMinConns > c.Database.PoolMaxConns {
			errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
		}
	}

	switch strings.ToLower(c.Oracle.Provider) {
	case "local":
	case "llm":
		if c.Oracle.Endpoint == "" {
			errs = append(errs, "oracle: endpoint is required for provider llm")
		}
	default:
		errs = append(errs, fmt.Sprintf("oracle: unknown provider %q (valid: local, llm)", c.Oracle.Provider))
	}

	if c.Sim.Date != "" {
		if _, err := time.Parse("2006-01-02", c.Sim.Date); err != nil {
			errs = append(errs, fmt.Sprintf("sim: date %q is not YYYY-MM-DD", c.Sim.Date))
		}
	}
	if c.Sim.EventStep.Duration < 0 {
		errs = append(errs, "sim: event_step must not be negative")
	}
	if c.Sim.LoopDays < 1 {
		errs = append(errs, "sim: loop_days must be at least 1")
	}

	switch strings.ToLower(c.Restock.OverCapacity) {
	case "clamp", "reject":
	default:
		errs = append(errs, fmt.Sprintf("restock: over_capacity %q must be clamp or reject", c.Restock.OverCapacity))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, "retry: max_attempts must be at least 1")
	}

	if c.Scoring.Epsilon < 0 || c.Scoring.Epsilon > 1 {
		errs = append(errs, "scoring: epsilon must be in [0,1]")
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port %d out of range", c.Server.Port))
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
