package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "colegio",
			Database: "colegio",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Checkout: CheckoutConfig{
			Currency:       "USD",
			SessionTimeout: 10 * time.Second,
		},
		Notify: NotifyConfig{
			SendTimeout: 10 * time.Second,
		},
		Webhook: WebhookConfig{
			RateLimitPerMinute: 120,
		},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_InvalidServerPort(t *testing.T) {
	for _, port := range []int{0, -1, 99999} {
		cfg := validConfig()
		cfg.Server.Port = port

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "server.port")
	}
}

func TestConfig_Validate_MissingDatabaseHost(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database.host")
}

func TestConfig_Validate_InvalidTimeouts(t *testing.T) {
	cfg := validConfig()
	cfg.Checkout.SessionTimeout = 0
	cfg.Notify.SendTimeout = 0

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "checkout.session_timeout")
	assert.Contains(t, err.Error(), "notify.send_timeout")
}

func TestConfig_Validate_ShortJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "tooshort"

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestConfig_Validate_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENV", "production")

	cfg := validConfig()
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "webhook.secret")
	assert.Contains(t, err.Error(), "checkout.secret_key")
}

func TestConfig_Validate_InvalidWebhookRateLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Webhook.RateLimitPerMinute = 0

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit_per_minute")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "USD", cfg.Checkout.Currency)
	assert.Equal(t, 120, cfg.Webhook.RateLimitPerMinute)
	assert.Equal(t, 24*time.Hour, cfg.Webhook.DedupCacheTTL)
}
