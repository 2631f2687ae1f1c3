// Package config provides runtime configuration for all four binaries.
package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"` // "debug", "info", "warn", "error"

	// Listen addresses, one per binary.
	GatewayAddr   string `mapstructure:"GATEWAY_ADDR"`
	ProductAddr   string `mapstructure:"PRODUCT_ADDR"`
	InventoryAddr string `mapstructure:"INVENTORY_ADDR"`
	SalesAddr     string `mapstructure:"SALES_ADDR"`

	// Upstream base URLs the gateway forwards to.
	ProductServiceURL   string `mapstructure:"PRODUCT_SERVICE_URL"`
	InventoryServiceURL string `mapstructure:"INVENTORY_SERVICE_URL"`
	SalesServiceURL     string `mapstructure:"SALES_SERVICE_URL"`

	// GatewayTimeout bounds a single forwarding attempt.
	GatewayTimeout time.Duration `mapstructure:"GATEWAY_TIMEOUT"`

	// StorageDriver selects "postgres" or "memory". The memory driver is only
	// coherent within one process and exists for tests and demo runs.
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`

	// PostgreSQL configuration
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     int    `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSL_MODE"` // "disable", "require", "verify-full"

	// RabbitMQ configuration. An empty URL disables event publishing.
	RabbitMQURL   string `mapstructure:"RABBITMQ_URL"`
	EventExchange string `mapstructure:"EVENT_EXCHANGE"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")

	viper.AutomaticEnv()

	viper.SetDefault("LOG_LEVEL", "info")

	viper.SetDefault("GATEWAY_ADDR", ":8000")
	viper.SetDefault("PRODUCT_ADDR", ":8001")
	viper.SetDefault("INVENTORY_ADDR", ":8002")
	viper.SetDefault("SALES_ADDR", ":8003")

	viper.SetDefault("PRODUCT_SERVICE_URL", "http://localhost:8001")
	viper.SetDefault("INVENTORY_SERVICE_URL", "http://localhost:8002")
	viper.SetDefault("SALES_SERVICE_URL", "http://localhost:8003")
	viper.SetDefault("GATEWAY_TIMEOUT", 10*time.Second)

	viper.SetDefault("STORAGE_DRIVER", DriverPostgres)

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "inventorydb")
	viper.SetDefault("DB_SSL_MODE", "disable")

	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("EVENT_EXCHANGE", "inventory.events")

	if err = viper.ReadInConfig(); err == nil {
		log.Info().Str("file", viper.ConfigFileUsed()).Msg("Using config file")
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
		log.Info().Msg("No config file found, using environment variables and defaults.")
	} else {
		log.Error().Err(err).Msg("Error reading config file")
		return
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	err = viper.Unmarshal(&config)
	return
}
