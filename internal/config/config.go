/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the savings service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                string `mapstructure:"SERVER_PORT"`
	DatabaseURL               string `mapstructure:"DATABASE_URL"`
	RunMigrations             bool   `mapstructure:"RUN_MIGRATIONS"`
	MigrationsPath            string `mapstructure:"MIGRATIONS_PATH"`
	RedisURL                  string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix      string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL               string `mapstructure:"RABBITMQ_URL"`
	NotificationEventExchange string `mapstructure:"NOTIFICATION_EVENT_EXCHANGE"`
	CatalogServiceURL         string `mapstructure:"CATALOG_SERVICE_URL"`
	InternalAPIKey            string `mapstructure:"INTERNAL_API_KEY"`
	JWTSecret                 string `mapstructure:"JWT_SECRET"`
	AutomationCronSchedule    string `mapstructure:"AUTOMATION_CRON_SCHEDULE"`
	DefaultCurrency           string `mapstructure:"DEFAULT_CURRENCY"`
	WalletRateLimitPerMinute  int    `mapstructure:"WALLET_RATE_LIMIT_PER_MINUTE"`
	FundingRateLimitPerMinute int    `mapstructure:"FUNDING_RATE_LIMIT_PER_MINUTE"`
	LedgerMaxRetries          int    `mapstructure:"LEDGER_MAX_RETRIES"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("RUN_MIGRATIONS", true)
	viper.SetDefault("MIGRATIONS_PATH", "migrations")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "savegoal:rate_limit")
	viper.SetDefault("NOTIFICATION_EVENT_EXCHANGE", "savegoal.notifications")
	viper.SetDefault("AUTOMATION_CRON_SCHEDULE", "15 1 * * *")
	viper.SetDefault("DEFAULT_CURRENCY", "GHS")
	viper.SetDefault("WALLET_RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("FUNDING_RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("LEDGER_MAX_RETRIES", 3)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RUN_MIGRATIONS")
	_ = viper.BindEnv("MIGRATIONS_PATH")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("NOTIFICATION_EVENT_EXCHANGE")
	_ = viper.BindEnv("CATALOG_SERVICE_URL")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "SAVINGS_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("AUTOMATION_CRON_SCHEDULE")
	_ = viper.BindEnv("DEFAULT_CURRENCY")
	_ = viper.BindEnv("WALLET_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("FUNDING_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("LEDGER_MAX_RETRIES")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("SAVINGS_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "savegoal:rate_limit"
	}
	config.DefaultCurrency = strings.ToUpper(strings.TrimSpace(config.DefaultCurrency))
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "GHS"
	}

	if config.WalletRateLimitPerMinute <= 0 {
		config.WalletRateLimitPerMinute = 60
	}
	if config.FundingRateLimitPerMinute <= 0 {
		config.FundingRateLimitPerMinute = 30
	}
	if config.LedgerMaxRetries <= 0 {
		config.LedgerMaxRetries = 3
	}

	return
}
