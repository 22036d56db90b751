package config

// RedactedConfig returns a copy safe for logging, with credentials masked.
func (c *Config) RedactedConfig() Config {
	redacted := *c
	redacted.Database.DSN = redact(c.Database.DSN)
	redacted.Database.Password = redact(c.Database.Password)
	redacted.Redis.Password = redact(c.Redis.Password)
	redacted.S3.AccessKey = redact(c.S3.AccessKey)
	redacted.S3.SecretKey = redact(c.S3.SecretKey)
	redacted.Oracle.APIKey = redact(c.Oracle.APIKey)
	redacted.Server.APIKey = redact(c.Server.APIKey)
	redacted.Notify.TelegramToken = redact(c.Notify.TelegramToken)
	redacted.Notify.DiscordWebhookURL = redact(c.Notify.DiscordWebhookURL)
	return redacted
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
