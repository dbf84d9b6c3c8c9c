package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
)

type ServerConfig struct {
	Port            int           `mapstructure:"port" envconfig:"SERVER_PORT"`
	HealthPort      int           `mapstructure:"health_port" envconfig:"SERVER_HEALTH_PORT"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" envconfig:"SERVER_SHUTDOWN_TIMEOUT"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url" envconfig:"REDIS_URL"`
	MaxRetries   int    `mapstructure:"max_retries" envconfig:"REDIS_MAX_RETRIES"`
	PoolSize     int    `mapstructure:"pool_size" envconfig:"REDIS_POOL_SIZE"`
	MinIdleConns int    `mapstructure:"min_idle_conns" envconfig:"REDIS_MIN_IDLE_CONNS"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host" envconfig:"SMTP_HOST"`
	Port     int    `mapstructure:"port" envconfig:"SMTP_PORT"`
	Username string `mapstructure:"username" envconfig:"SMTP_USERNAME"`
	Password string `mapstructure:"password" envconfig:"SMTP_PASSWORD"`
	From     string `mapstructure:"from" envconfig:"SMTP_FROM"`
}

type SMSConfig struct {
	GatewayURL string        `mapstructure:"gateway_url" envconfig:"SMS_GATEWAY_URL"`
	Token      string        `mapstructure:"token" envconfig:"SMS_TOKEN"`
	From       string        `mapstructure:"from" envconfig:"SMS_FROM"`
	Timeout    time.Duration `mapstructure:"timeout" envconfig:"SMS_TIMEOUT"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret" envconfig:"JWT_SECRET"`
	ExpiryHours int    `mapstructure:"expiry_hours" envconfig:"JWT_EXPIRY_HOURS"`
}

type AdminConfig struct {
	Email        string   `mapstructure:"email" envconfig:"ADMIN_EMAIL"`
	PasswordHash string   `mapstructure:"password_hash" envconfig:"ADMIN_PASSWORD_HASH"`
	NotifyEmails []string `mapstructure:"notify_emails" envconfig:"ADMIN_NOTIFY_EMAILS"`
}

type ScheduleConfig struct {
	Timezone     string `mapstructure:"timezone" envconfig:"SCHEDULE_TIMEZONE"`
	PublicURL    string `mapstructure:"public_url" envconfig:"SCHEDULE_PUBLIC_URL"`
	DispatchHour int    `mapstructure:"dispatch_hour" envconfig:"SCHEDULE_DISPATCH_HOUR"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	SMS      SMSConfig      `mapstructure:"sms"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

// LoadConfig reads the YAML config file and applies ONCALL_* environment
// overrides on top, so secrets never have to live in the file.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := defaults()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("ONCALL", cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			HealthPort:      8081,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			MaxRetries:   3,
			PoolSize:     10,
			MinIdleConns: 2,
		},
		SMTP: SMTPConfig{Port: 587},
		SMS:  SMSConfig{Timeout: 10 * time.Second},
		JWT:  JWTConfig{ExpiryHours: 24},
		Schedule: ScheduleConfig{
			Timezone:     "America/Chicago",
			DispatchHour: 9,
		},
	}
}

// Validate fails closed when required external bindings are absent.
func (c *Config) Validate() error {
	required := map[string]string{
		"redis.url":           c.Redis.URL,
		"smtp.host":           c.SMTP.Host,
		"smtp.from":           c.SMTP.From,
		"jwt.secret":          c.JWT.Secret,
		"admin.email":         c.Admin.Email,
		"admin.password_hash": c.Admin.PasswordHash,
	}
	for name, value := range required {
		if value == "" {
			return apperrors.Configuration(fmt.Sprintf("missing required config: %s", name), nil)
		}
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return apperrors.Configuration(fmt.Sprintf("invalid timezone %q", c.Schedule.Timezone), err)
	}
	return nil
}
