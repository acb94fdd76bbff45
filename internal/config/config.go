package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Ledger   Ledger   `mapstructure:"ledger"`
	Vision   Vision   `mapstructure:"vision"`
}

// Server holds the configuration for the dashboard web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Ledger holds the bookkeeping configuration.
type Ledger struct {
	// Balance of the profile seeded on first start.
	DefaultBalance  float64 `mapstructure:"default_balance"`
	DefaultUsername string  `mapstructure:"default_username"`
	DefaultPassword string  `mapstructure:"default_password"`
	// When set, closing a running trade refunds its size before crediting the PnL.
	ReturnStakeOnClose bool   `mapstructure:"return_stake_on_close"`
	Currency           string `mapstructure:"currency"`
}

// Vision holds the configuration for the chart analysis API.
type Vision struct {
	// Backend selects the client: "rest" (resty) or "sdk" (genai).
	Backend        string  `mapstructure:"backend"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	MaxRetries     int     `mapstructure:"max_retries"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults and the environment apply.
func LoadConfig(path string) (config Config, err error) {
	// A .env file next to the binary is optional.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	config.Ledger.Currency = strings.ToUpper(strings.TrimSpace(config.Ledger.Currency))
	if money.GetCurrency(config.Ledger.Currency) == nil {
		err = fmt.Errorf("unknown ledger currency %q", config.Ledger.Currency)
	}
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("server.port", 5001)
	v.SetDefault("database.dsn", "journal.db")

	v.SetDefault("ledger.default_balance", 10000.0)
	v.SetDefault("ledger.default_username", "admin")
	v.SetDefault("ledger.default_password", "admin")
	v.SetDefault("ledger.return_stake_on_close", false)
	v.SetDefault("ledger.currency", "USD")

	v.SetDefault("vision.backend", "rest")
	v.SetDefault("vision.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("vision.model", "gemini-flash-latest")
	v.SetDefault("vision.rate_limit", 1)       // requests per second
	v.SetDefault("vision.rate_limit_burst", 2) // burst size
	v.SetDefault("vision.max_retries", 3)
}
