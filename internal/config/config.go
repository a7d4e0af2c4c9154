/**
 * @description
 * This package handles the configuration management for the ledger-service. It uses the
 * Viper library to read configuration from environment variables (and an optional .env
 * file), providing a centralized way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: configuration loading.
 * - github.com/robfig/cron/v3: validates the reconciliation schedule.
 * - github.com/sirupsen/logrus: warnings for coerced values.
 */

package config

import (
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	defaultServerPort        = "8080"
	defaultExchange          = "troop.events"
	defaultRedisLockPrefix   = "troopledger:lock"
	defaultLockTTLSeconds    = 60
	defaultThrottlePrefix    = "troopledger:throttle"
	defaultPayoutRequests    = 3
	defaultReconcileSchedule = "0 3 * * *"
	defaultLogLevel          = "info"
	defaultLogFormat         = "text"
)

// Config holds all the configuration variables for the ledger-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort              string `mapstructure:"SERVER_PORT"`
	DatabaseURL             string `mapstructure:"DATABASE_URL"`
	RunMigrations           bool   `mapstructure:"RUN_MIGRATIONS"`
	RabbitMQURL             string `mapstructure:"RABBITMQ_URL"`
	NotificationExchange    string `mapstructure:"NOTIFICATION_EXCHANGE"`
	RedisURL                string `mapstructure:"REDIS_URL"`
	RedisLockPrefix         string `mapstructure:"REDIS_LOCK_PREFIX"`
	OperationLockTTLSeconds int    `mapstructure:"OPERATION_LOCK_TTL_SECONDS"`
	RedisThrottlePrefix     string `mapstructure:"REDIS_THROTTLE_PREFIX"`
	PayoutRequestsPerHour   int    `mapstructure:"PAYOUT_REQUESTS_PER_HOUR"`
	JWKSURL                 string `mapstructure:"JWKS_URL"`
	JWTSecret               string `mapstructure:"JWT_SECRET"`
	CORSAllowedOrigins      string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	SMTPHost                string `mapstructure:"SMTP_HOST"`
	SMTPPort                int    `mapstructure:"SMTP_PORT"`
	SMTPUsername            string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword            string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom                string `mapstructure:"SMTP_FROM"`
	LeadershipEmail         string `mapstructure:"LEADERSHIP_EMAIL"`
	ReconcileSchedule       string `mapstructure:"RECONCILE_SCHEDULE"`
	ReconcileAutoRepair     bool   `mapstructure:"RECONCILE_AUTO_REPAIR"`
	LogLevel                string `mapstructure:"LOG_LEVEL"`
	LogFormat               string `mapstructure:"LOG_FORMAT"`
}

// LoadConfig reads configuration from environment variables and an optional .env file in path.
func LoadConfig(path string) (config Config, err error) {
	log := logrus.WithField("component", "config")

	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", defaultServerPort)
	viper.SetDefault("RUN_MIGRATIONS", true)
	viper.SetDefault("NOTIFICATION_EXCHANGE", defaultExchange)
	viper.SetDefault("REDIS_LOCK_PREFIX", defaultRedisLockPrefix)
	viper.SetDefault("OPERATION_LOCK_TTL_SECONDS", defaultLockTTLSeconds)
	viper.SetDefault("REDIS_THROTTLE_PREFIX", defaultThrottlePrefix)
	viper.SetDefault("PAYOUT_REQUESTS_PER_HOUR", defaultPayoutRequests)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("RECONCILE_SCHEDULE", defaultReconcileSchedule)
	viper.SetDefault("RECONCILE_AUTO_REPAIR", false)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("LOG_FORMAT", defaultLogFormat)

	// Bind environment variables explicitly so they appear in Unmarshal.
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RUN_MIGRATIONS")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("NOTIFICATION_EXCHANGE")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "LEDGER_REDIS_URL")
	_ = viper.BindEnv("REDIS_LOCK_PREFIX")
	_ = viper.BindEnv("OPERATION_LOCK_TTL_SECONDS")
	_ = viper.BindEnv("REDIS_THROTTLE_PREFIX")
	_ = viper.BindEnv("PAYOUT_REQUESTS_PER_HOUR")
	_ = viper.BindEnv("JWKS_URL", "JWKS_URL", "CLERK_JWKS_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("SMTP_HOST")
	_ = viper.BindEnv("SMTP_PORT")
	_ = viper.BindEnv("SMTP_USERNAME")
	_ = viper.BindEnv("SMTP_PASSWORD")
	_ = viper.BindEnv("SMTP_FROM")
	_ = viper.BindEnv("LEADERSHIP_EMAIL")
	_ = viper.BindEnv("RECONCILE_SCHEDULE")
	_ = viper.BindEnv("RECONCILE_AUTO_REPAIR")
	_ = viper.BindEnv("LOG_LEVEL")
	_ = viper.BindEnv("LOG_FORMAT")

	// The .env file is optional.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.WithError(err).Warn("failed to read config file; using environment values")
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	config.RabbitMQURL = strings.TrimSpace(config.RabbitMQURL)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.JWKSURL = strings.TrimSpace(config.JWKSURL)
	config.SMTPHost = strings.TrimSpace(config.SMTPHost)

	config.NotificationExchange = strings.TrimSpace(config.NotificationExchange)
	if config.NotificationExchange == "" {
		config.NotificationExchange = defaultExchange
	}
	config.RedisLockPrefix = strings.TrimSpace(config.RedisLockPrefix)
	if config.RedisLockPrefix == "" {
		config.RedisLockPrefix = defaultRedisLockPrefix
	}
	if config.OperationLockTTLSeconds <= 0 {
		log.WithField("ttl_seconds", config.OperationLockTTLSeconds).Warn("non-positive operation lock ttl configured; using default")
		config.OperationLockTTLSeconds = defaultLockTTLSeconds
	}
	config.RedisThrottlePrefix = strings.TrimSpace(config.RedisThrottlePrefix)
	if config.RedisThrottlePrefix == "" {
		config.RedisThrottlePrefix = defaultThrottlePrefix
	}
	if config.PayoutRequestsPerHour < 0 {
		log.WithField("limit", config.PayoutRequestsPerHour).Warn("negative payout request limit configured; throttle disabled")
		config.PayoutRequestsPerHour = 0
	}
	if config.SMTPPort < 0 {
		log.WithField("smtp_port", config.SMTPPort).Warn("negative smtp port configured; disabling mail")
		config.SMTPPort = 0
	}

	config.ReconcileSchedule = strings.TrimSpace(config.ReconcileSchedule)
	if _, parseErr := cron.ParseStandard(config.ReconcileSchedule); parseErr != nil {
		log.WithError(parseErr).WithField("schedule", config.ReconcileSchedule).Warn("invalid reconcile schedule; using default")
		config.ReconcileSchedule = defaultReconcileSchedule
	}

	config.LogFormat = strings.ToLower(strings.TrimSpace(config.LogFormat))
	if config.LogFormat != "json" && config.LogFormat != "text" {
		log.WithField("log_format", config.LogFormat).Warn("unknown log format; using text")
		config.LogFormat = defaultLogFormat
	}
	return
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// LeadershipRecipients splits LEADERSHIP_EMAIL on commas.
func (c Config) LeadershipRecipients() []string {
	return splitList(c.LeadershipEmail)
}

func (c Config) OperationLockTTL() time.Duration {
	return time.Duration(c.OperationLockTTLSeconds) * time.Second
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
