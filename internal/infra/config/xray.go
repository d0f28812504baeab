package config

import "time"

// XrayConfig locates the proxy daemon's own config document and
// describes how to make it pick up changes.
type XrayConfig struct {
	ConfigPath    string        `mapstructure:"config_path"  validate:"required"`
	Protocol      string        `mapstructure:"protocol"     validate:"required"`
	PortFloor     int           `mapstructure:"port_floor"   validate:"required,gte=1024,lte=65535"`
	PortCeiling   int           `mapstructure:"port_ceiling" validate:"required,gte=1024,lte=65535,gtefield=PortFloor"`
	ReloadCommand []string      `mapstructure:"reload_command" validate:"required,min=1"`
	ReloadTimeout time.Duration `mapstructure:"reload_timeout"`
	SyncInterval  time.Duration `mapstructure:"sync_interval"`
}

// LinkConfig controls how deliverable connection URIs are rendered.
// Port 0 means "use the credential's allocated listener port".
type LinkConfig struct {
	Host   string `mapstructure:"host" validate:"required,hostname|ip"`
	Port   int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	Path   string `mapstructure:"path"`
	Remark string `mapstructure:"remark"`
}

// BillingConfig prices purchases made against subscriber balances.
type BillingConfig struct {
	PricePerGB int64 `mapstructure:"price_per_gb" validate:"gte=0"`
}
