package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Xray     XrayConfig     `mapstructure:"xray"     validate:"required"`
	Link     LinkConfig     `mapstructure:"link"     validate:"required"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen" validate:"required_if=Enabled true"`
}

func Load(path string) (*Config, error) {
	vip := viper.New()
	if path != "" {
		vip.SetConfigFile(path)
	} else {
		vip.SetConfigName("config")
		vip.AddConfigPath("./configs")
		vip.AddConfigPath(".")
	}

	vip.SetConfigType("yaml")
	vip.SetEnvPrefix("provisiond")
	vip.AutomaticEnv()
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	vip.SetDefault("xray.config_path", "/usr/local/etc/xray/config.json")
	vip.SetDefault("xray.protocol", "vless")
	vip.SetDefault("xray.port_floor", 10000)
	vip.SetDefault("xray.port_ceiling", 65535)
	vip.SetDefault("xray.reload_command", []string{"systemctl", "reload", "xray"})
	vip.SetDefault("xray.reload_timeout", "10s")
	vip.SetDefault("xray.sync_interval", "5m")
	vip.SetDefault("link.port", 0)
	vip.SetDefault("link.path", "/vless")
	vip.SetDefault("link.remark", "Server24")
	vip.SetDefault("billing.price_per_gb", 5000)
	vip.SetDefault("metrics.listen", ":9464")

	if err := vip.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
