// Package config loads the track server's runtime configuration with
// github.com/spf13/viper. billglover-go-adsb-console's go.mod carries
// viper as a dependency but its main.go never calls into it (it uses
// flag directly); this package follows viper's own documented
// Bind/Unmarshal pattern.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// NetListener describes one inbound network service (Beast/AVR/SBS-in,
// or a raw listener accepting any of them).
type NetListener struct {
	Name     string `mapstructure:"name"`
	Addr     string `mapstructure:"addr"`
	Protocol string `mapstructure:"protocol"` // "beast", "avr", "sbs"
}

// NetConnector describes one outbound connection (dialing a remote
// Beast/AVR/SBS feed, with async name resolution and reconnect).
type NetConnector struct {
	Name     string `mapstructure:"name"`
	Addr     string `mapstructure:"addr"`
	Protocol string `mapstructure:"protocol"`
}

// Config is the track server's fully-resolved runtime configuration.
type Config struct {
	ReceiverID uint64 `mapstructure:"receiver_id"`

	HaveUserPosition bool    `mapstructure:"have_user_position"`
	UserLat          float64 `mapstructure:"user_lat"`
	UserLon          float64 `mapstructure:"user_lon"`

	MaxRangeM          float64       `mapstructure:"max_range_m"`
	ReduceInterval     time.Duration `mapstructure:"reduce_interval"`
	StaleWindow        time.Duration `mapstructure:"stale_window"`
	ReceiverIdleTTL    time.Duration `mapstructure:"receiver_idle_ttl"`
	JSONReliableThr    int           `mapstructure:"json_reliable_threshold"`
	MaintenanceTick    time.Duration `mapstructure:"maintenance_tick"`
	MaintenanceWorkers int           `mapstructure:"maintenance_workers"`

	Listeners  []NetListener  `mapstructure:"listeners"`
	Connectors []NetConnector `mapstructure:"connectors"`

	OutputDir string `mapstructure:"output_dir"`

	AMQP struct {
		Enabled  bool   `mapstructure:"enabled"`
		URL      string `mapstructure:"url"`
		Exchange string `mapstructure:"exchange"`
	} `mapstructure:"amqp"`

	Console struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"console"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("max_range_m", 500_000)
	v.SetDefault("reduce_interval", "1s")
	v.SetDefault("stale_window", "60s")
	v.SetDefault("receiver_idle_ttl", "1h")
	v.SetDefault("json_reliable_threshold", 0)
	v.SetDefault("maintenance_tick", "1s")
	v.SetDefault("maintenance_workers", 4)
	v.SetDefault("output_dir", "./data")
	v.SetDefault("amqp.exchange", "adsb-fan-exchange")
}

// Load reads configuration from path (if non-empty) plus
// TRACKSERVER_-prefixed environment variables, following viper's
// standard precedence (explicit Set > flag > env > config file >
// default).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("trackserver")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
