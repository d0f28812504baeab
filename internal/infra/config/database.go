package config

import "time"

// DatabaseConfig represents the Postgres connection configuration.
type DatabaseConfig struct {
	URL        string             `mapstructure:"url" validate:"required"`
	Connection DBConnectionConfig `mapstructure:"connection"`
}

// DBConnectionConfig represents the connection pool configuration.
type DBConnectionConfig struct {
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}
