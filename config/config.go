package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Service  ServiceConfig
	Server   ServerConfig
	Database DatabaseConfig
	Balance  BalanceConfig
	Catalog  CatalogConfig
}

type ServiceConfig struct {
	Name string
	Env  string
}

type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// BalanceConfig points at the remote balance-management API and carries the
// retry budget applied to its transient failures.
type BalanceConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

type CatalogConfig struct {
	CacheTTL time.Duration
}

// Load reads configuration from defaults, an optional config file, and the
// environment (PAYMENTD_ prefix, dots replaced by underscores), in that
// order of increasing precedence.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("service.name", "payment-integration")
	v.SetDefault("service.env", "dev")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.dsn", "payments:payments@tcp(localhost:3306)/payments?charset=utf8mb4&parseTime=True&loc=UTC")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("balance.base_url", "http://localhost:9090")
	v.SetDefault("balance.timeout", 10*time.Second)
	v.SetDefault("balance.max_retries", 3)
	v.SetDefault("balance.retry_delay", 2*time.Second)
	v.SetDefault("catalog.cache_ttl", 10*time.Minute)

	v.SetEnvPrefix("PAYMENTD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{
		Service: ServiceConfig{
			Name: v.GetString("service.name"),
			Env:  v.GetString("service.env"),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("database.dsn"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Balance: BalanceConfig{
			BaseURL:    v.GetString("balance.base_url"),
			Timeout:    v.GetDuration("balance.timeout"),
			MaxRetries: v.GetInt("balance.max_retries"),
			RetryDelay: v.GetDuration("balance.retry_delay"),
		},
		Catalog: CatalogConfig{
			CacheTTL: v.GetDuration("catalog.cache_ttl"),
		},
	}
	return cfg, nil
}
