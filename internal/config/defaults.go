package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigFile is probed when no argument is given.
	DefaultConfigFile = "statichost.json"

	// DefaultIndex is served for directory requests unless overridden.
	DefaultIndex = "index.html"

	// DefaultPort matches the original tool.
	DefaultPort = 8081
)

// setDefaults registers server-section defaults with viper so a bare config
// file (or none at all) yields a runnable configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen.host", "0.0.0.0")
	v.SetDefault("listen.port", DefaultPort)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("proxy.dial_timeout", "10s")
	v.SetDefault("proxy.response_header_timeout", "30s")
	v.SetDefault("proxy.max_idle_conns", 100)
	v.SetDefault("proxy.max_idle_conns_per_host", 10)
	v.SetDefault("proxy.idle_conn_timeout", "90s")

	v.SetDefault("ratelimit.rps", 100)
	v.SetDefault("ratelimit.burst", 200)

	v.SetDefault("tls.port", 8443)
	v.SetDefault("tls.cache_dir", ".statichost/certs")
}

// ApplyDefaults normalizes values that validation treats case-sensitively.
// Mount-entry defaults (path, index, dir) are applied during conversion in
// MountPoints, where the prefix they derive from is at hand.
func ApplyDefaults(cfg *Config) {
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
}
