package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Business  BusinessConfig  `mapstructure:"business"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Rate      RateConfig      `mapstructure:"rate"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

type ServerConfig struct {
	Port string `mapstructure:"SERVER_PORT"`
	Host string `mapstructure:"SERVER_HOST"`
	Env  string `mapstructure:"ENV"`
}

type DatabaseConfig struct {
	URL          string `mapstructure:"DATABASE_URL"`
	MaxOpenConns int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type SchedulerConfig struct {
	AggregationSpec string `mapstructure:"AGGREGATION_CRON_SPEC"`
	IncludeInactive bool   `mapstructure:"AGGREGATION_INCLUDE_INACTIVE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

// BusinessConfig carries the named constants that drifted between code paths
// in earlier revisions of this system. They are resolved here once; handlers
// must not restate them as literals.
type BusinessConfig struct {
	DailyInstallmentCount  int    `mapstructure:"DAILY_INSTALLMENT_COUNT"`
	WeeklyInstallmentCount int    `mapstructure:"WEEKLY_INSTALLMENT_COUNT"`
	ApplicationFee         string `mapstructure:"APPLICATION_FEE"`
	DefaultInterestRate    string `mapstructure:"DEFAULT_INTEREST_RATE"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"JWT_SECRET"`
}

type RateConfig struct {
	ProviderURL string `mapstructure:"RATE_PROVIDER_URL"`
	CacheTTL    string `mapstructure:"RATE_CACHE_TTL"`
}

type StorageConfig struct {
	UploadDir string `mapstructure:"UPLOAD_DIR"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("DAILY_INSTALLMENT_COUNT", 22)
	viper.SetDefault("WEEKLY_INSTALLMENT_COUNT", 5)
	viper.SetDefault("APPLICATION_FEE", "500")
	viper.SetDefault("DEFAULT_INTEREST_RATE", "0.15")
	viper.SetDefault("AGGREGATION_CRON_SPEC", "0 0 1 * * *")
	viper.SetDefault("AGGREGATION_INCLUDE_INACTIVE", false)
	viper.SetDefault("RATE_CACHE_TTL", "1h")
	viper.SetDefault("UPLOAD_DIR", "./uploads")

	viper.AutomaticEnv()

	// Optional .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Business.DailyInstallmentCount != 22 && c.Business.DailyInstallmentCount != 23 {
		return fmt.Errorf("DAILY_INSTALLMENT_COUNT must be 22 or 23")
	}

	if c.Business.WeeklyInstallmentCount <= 0 {
		return fmt.Errorf("WEEKLY_INSTALLMENT_COUNT must be greater than 0")
	}

	if _, err := decimal.NewFromString(c.Business.ApplicationFee); err != nil {
		return fmt.Errorf("APPLICATION_FEE must be a valid decimal: %w", err)
	}

	if _, err := decimal.NewFromString(c.Business.DefaultInterestRate); err != nil {
		return fmt.Errorf("DEFAULT_INTEREST_RATE must be a valid decimal: %w", err)
	}

	if _, err := time.ParseDuration(c.Rate.CacheTTL); err != nil {
		return fmt.Errorf("RATE_CACHE_TTL must be a valid duration: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetApplicationFee returns the application fee as a decimal
func (c *Config) GetApplicationFee() decimal.Decimal {
	fee, _ := decimal.NewFromString(c.Business.ApplicationFee)
	return fee
}

// GetDefaultInterestRate returns the fallback interest rate as a decimal
func (c *Config) GetDefaultInterestRate() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.Business.DefaultInterestRate)
	return rate
}

// GetRateCacheTTL returns the rate-provider cache TTL as a duration
func (c *Config) GetRateCacheTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Rate.CacheTTL)
	return ttl
}
