package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Exchange ExchangeConfig
	Orders   OrdersConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ExchangeConfig configures the external rate source and the cache that
// fronts it.
type ExchangeConfig struct {
	SourceURL       string
	QuoteName       string
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
}

// OrdersConfig holds order-engine policy knobs. InvalidQuantityPolicy is
// "reject" (fail the request) or "skip" (drop non-positive lines silently).
type OrdersConfig struct {
	InvalidQuantityPolicy string
}

func Load() *Config {
	// .env is optional; environment variables always win.
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("EXCHANGE_SOURCE_URL", "https://www.dolarsi.com/api/api.php?type=valoresprincipales")
	viper.SetDefault("EXCHANGE_QUOTE_NAME", "Dolar Blue")
	viper.SetDefault("EXCHANGE_REFRESH_INTERVAL", "2h")
	viper.SetDefault("EXCHANGE_FETCH_TIMEOUT", "10s")
	viper.SetDefault("ORDERS_INVALID_QUANTITY_POLICY", "reject")

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Exchange: ExchangeConfig{
			SourceURL:       viper.GetString("EXCHANGE_SOURCE_URL"),
			QuoteName:       viper.GetString("EXCHANGE_QUOTE_NAME"),
			RefreshInterval: viper.GetDuration("EXCHANGE_REFRESH_INTERVAL"),
			FetchTimeout:    viper.GetDuration("EXCHANGE_FETCH_TIMEOUT"),
		},
		Orders: OrdersConfig{
			InvalidQuantityPolicy: viper.GetString("ORDERS_INVALID_QUANTITY_POLICY"),
		},
	}

	if cfg.Exchange.RefreshInterval <= 0 {
		log.Printf("Warning: invalid EXCHANGE_REFRESH_INTERVAL, falling back to 2h")
		cfg.Exchange.RefreshInterval = 2 * time.Hour
	}

	return cfg
}
