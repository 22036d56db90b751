package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the TOML file at path, layers it over the defaults, then
// applies VENDBOT_* environment overrides. A .env file in the working
// directory is loaded first if present so local runs need no exported
// variables.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr("VENDBOT_MODE", &cfg.Mode)
	setStr("VENDBOT_LOG_LEVEL", &cfg.LogLevel)

	setBool("VENDBOT_DB_ENABLED", &cfg.Database.Enabled)
	setStr("VENDBOT_DB_DSN", &cfg.Database.DSN)
	setStr("VENDBOT_DB_HOST", &cfg.Database.Host)
	setInt("VENDBOT_DB_PORT", &cfg.Database.Port)
	setStr("VENDBOT_DB_NAME", &cfg.Database.Database)
	setStr("VENDBOT_DB_USER", &cfg.Database.User)
	setStr("VENDBOT_DB_PASSWORD", &cfg.Database.Password)
	setStr("VENDBOT_DB_SSL_MODE", &cfg.Database.SSLMode)
	setBool("VENDBOT_DB_RUN_MIGRATIONS", &cfg.Database.RunMigrations)

	setBool("VENDBOT_REDIS_ENABLED", &cfg.Redis.Enabled)
	setStr("VENDBOT_REDIS_ADDR", &cfg.Redis.Addr)
	setStr("VENDBOT_REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("VENDBOT_REDIS_DB", &cfg.Redis.DB)
	setBool("VENDBOT_REDIS_TLS", &cfg.Redis.TLSEnabled)

	setBool("VENDBOT_S3_ENABLED", &cfg.S3.Enabled)
	setStr("VENDBOT_S3_ENDPOINT", &cfg.S3.Endpoint)
	setStr("VENDBOT_S3_REGION", &cfg.S3.Region)
	setStr("VENDBOT_S3_BUCKET", &cfg.S3.Bucket)
	setStr("VENDBOT_S3_ACCESS_KEY", &cfg.S3.AccessKey)
	setStr("VENDBOT_S3_SECRET_KEY", &cfg.S3.SecretKey)
	setStr("VENDBOT_S3_GUIDANCE_KEY", &cfg.S3.GuidanceKey)

	setStr("VENDBOT_ORACLE_PROVIDER", &cfg.Oracle.Provider)
	setStr("VENDBOT_ORACLE_ENDPOINT", &cfg.Oracle.Endpoint)
	setStr("VENDBOT_ORACLE_API_KEY", &cfg.Oracle.APIKey)
	setStr("VENDBOT_ORACLE_MODEL", &cfg.Oracle.Model)
	setFloat64("VENDBOT_ORACLE_TEMPERATURE", &cfg.Oracle.Temperature)

	setStr("VENDBOT_SIM_DATE", &cfg.Sim.Date)
	setStr("VENDBOT_SIM_START_TIME", &cfg.Sim.StartTime)
	setDuration("VENDBOT_SIM_EVENT_STEP", &cfg.Sim.EventStep)
	setBool("VENDBOT_SIM_SHUFFLE", &cfg.Sim.Shuffle)
	setInt64("VENDBOT_SIM_RAND_SEED", &cfg.Sim.RandSeed)
	setInt("VENDBOT_SIM_LOOP_DAYS", &cfg.Sim.LoopDays)

	setStr("VENDBOT_RESTOCK_OVER_CAPACITY", &cfg.Restock.OverCapacity)
	setBool("VENDBOT_RESTOCK_NEED_EMPTY_SLOT", &cfg.Restock.NewProductsNeedEmptySlot)

	setInt("VENDBOT_RETRY_MAX_ATTEMPTS", &cfg.Retry.MaxAttempts)

	setInt("VENDBOT_SEED_CUSTOMERS", &cfg.Seed.Customers)
	setFloat64("VENDBOT_SEED_INITIAL_BALANCE", &cfg.Seed.InitialBalance)

	setBool("VENDBOT_SERVER_ENABLED", &cfg.Server.Enabled)
	setInt("VENDBOT_SERVER_PORT", &cfg.Server.Port)
	setStringSlice("VENDBOT_SERVER_CORS_ORIGINS", &cfg.Server.CORSOrigins)
	setStr("VENDBOT_SERVER_API_KEY", &cfg.Server.APIKey)

	setStr("VENDBOT_TELEGRAM_TOKEN", &cfg.Notify.TelegramToken)
	setStr("VENDBOT_TELEGRAM_CHAT_ID", &cfg.Notify.TelegramChatID)
	setStr("VENDBOT_DISCORD_WEBHOOK_URL", &cfg.Notify.DiscordWebhookURL)
	setStringSlice("VENDBOT_NOTIFY_EVENTS", &cfg.Notify.Events)
}

func setStr(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(key string, dst *int64) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(key string, dst *duration) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(key string, dst *[]string) {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}
