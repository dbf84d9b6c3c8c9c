package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
)

func validConfig() *Config {
	cfg := defaults()
	cfg.Redis.URL = "redis://localhost:6379/0"
	cfg.SMTP.Host = "smtp.example.com"
	cfg.SMTP.From = "oncall@example.com"
	cfg.JWT.Secret = "secret"
	cfg.Admin.Email = "admin@example.com"
	cfg.Admin.PasswordHash = "$2a$10$hash"
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaults()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 8081, cfg.Server.HealthPort)
	assert.Equal(t, 9, cfg.Schedule.DispatchHour)
	assert.Equal(t, "America/Chicago", cfg.Schedule.Timezone)
	assert.Equal(t, 24, cfg.JWT.ExpiryHours)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	mutations := map[string]func(*Config){
		"redis url":      func(c *Config) { c.Redis.URL = "" },
		"smtp host":      func(c *Config) { c.SMTP.Host = "" },
		"smtp from":      func(c *Config) { c.SMTP.From = "" },
		"jwt secret":     func(c *Config) { c.JWT.Secret = "" },
		"admin email":    func(c *Config) { c.Admin.Email = "" },
		"admin password": func(c *Config) { c.Admin.PasswordHash = "" },
		"timezone":       func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			err := cfg.Validate()
			assert.True(t, apperrors.Is(err, apperrors.ErrConfiguration))
		})
	}
}
