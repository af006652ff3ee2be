// Package config loads and validates the statichost configuration.
//
// The configuration source is resolved the same way the CLI argument is
// interpreted:
//
//  1. a JSON file mapping URL prefixes to mount entries, plus optional
//     server sections (listen, logging, proxy, ratelimit, cors, tls);
//  2. a directory, served whole at "/";
//  3. nothing: "./statichost.json" if it exists, otherwise the current
//     directory served at "/".
//
// Mount entries are an untagged variant keyed by shape: {"proxy_to": url}
// forwards to an upstream, anything else serves a directory with optional
// "path", "index" and "dir" keys. Mount prefixes may appear either under a
// "mounts" section or directly at the top level (any key starting with "/").
//
// Environment variables with the STATICHOST_ prefix override the server
// sections, e.g. STATICHOST_LISTEN_PORT=9090.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the complete statichost configuration. It is produced once at
// startup; everything that reaches the serving path is derived from it and
// immutable afterwards.
type Config struct {
	Listen    ListenConfig    `mapstructure:"listen"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	TLS       TLSConfig       `mapstructure:"tls"`

	// Mounts maps a URL path prefix to its entry. Decoded from the raw
	// JSON rather than through viper so prefix case is preserved.
	Mounts map[string]Entry `mapstructure:"-"`
}

// ListenConfig controls the plain HTTP listener.
type ListenConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// ProxyConfig tunes the shared upstream transport.
type ProxyConfig struct {
	DialTimeout           time.Duration `mapstructure:"dial_timeout" validate:"required,gt=0"`
	ResponseHeaderTimeout time.Duration `mapstructure:"response_header_timeout" validate:"required,gt=0"`
	MaxIdleConns          int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost   int           `mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout       time.Duration `mapstructure:"idle_conn_timeout"`
}

// RateLimitConfig configures the optional per-IP rate limiter.
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	RPS     int  `mapstructure:"rps"`
	Burst   int  `mapstructure:"burst"`
}

// CORSConfig configures the optional CORS middleware.
type CORSConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	AllowOrigins []string `mapstructure:"allow_origins"`
	AllowMethods []string `mapstructure:"allow_methods"`
	AllowHeaders []string `mapstructure:"allow_headers"`
}

// TLSConfig configures optional HTTPS with ACME certificates.
type TLSConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Port         int      `mapstructure:"port" validate:"required,min=1,max=65535"`
	AutoRedirect bool     `mapstructure:"auto_redirect"`
	ACMEEmail    string   `mapstructure:"acme_email"`
	Domains      []string `mapstructure:"domains"`
	CacheDir     string   `mapstructure:"cache_dir"`
}

// Entry is one mount in the configuration file. The two variants are
// distinguished by which keys are present: "proxy_to" makes a proxy entry,
// everything else is a directory entry. Mixing the two is a config error.
type Entry struct {
	// Path is the directory served at this prefix. Defaults to the
	// prefix itself, relative to the working directory.
	Path string `mapstructure:"path"`

	// Index is the file served when a request names a directory
	// containing it. Defaults to "index.html".
	Index string `mapstructure:"index"`

	// Dir controls directory listings. Defaults to true.
	Dir *bool `mapstructure:"dir"`

	// ProxyTo is the absolute upstream URL for a proxy entry.
	ProxyTo string `mapstructure:"proxy_to"`
}

type sourceKind int

const (
	sourceFile sourceKind = iota
	sourceDir
)

// Load resolves, reads and validates the configuration. Any failure here is
// startup-fatal; the process must not begin serving with a broken mount map.
func Load(arg string) (*Config, error) {
	source, kind, err := resolveSource(arg)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix("STATICHOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if kind == sourceFile {
		v.SetConfigFile(source)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", source, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if kind == sourceFile {
		mounts, err := parseMounts(source)
		if err != nil {
			return nil, err
		}
		cfg.Mounts = mounts
	} else {
		cfg.Mounts = map[string]Entry{"/": {Path: source}}
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveSource maps the CLI argument onto a config file or a directory to
// serve, following the discovery rules documented on the package.
func resolveSource(arg string) (string, sourceKind, error) {
	if arg == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			return DefaultConfigFile, sourceFile, nil
		}
		return ".", sourceDir, nil
	}
	info, err := os.Stat(arg)
	if err != nil {
		return "", 0, fmt.Errorf("config %s: %w", arg, err)
	}
	if info.IsDir() {
		return arg, sourceDir, nil
	}
	return arg, sourceFile, nil
}

// parseMounts extracts mount entries from the raw JSON file. Viper lowercases
// all keys, which would corrupt case-sensitive URL prefixes, so mounts are
// decoded directly from the file bytes.
func parseMounts(path string) (map[string]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	raw := make(map[string]map[string]any)
	if section, ok := top["mounts"]; ok {
		if err := json.Unmarshal(section, &raw); err != nil {
			return nil, fmt.Errorf("parse mounts section: %w", err)
		}
	}
	for key, val := range top {
		if !strings.HasPrefix(key, "/") {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal(val, &entry); err != nil {
			return nil, fmt.Errorf("parse mount %q: %w", key, err)
		}
		raw[key] = entry
	}

	mounts := make(map[string]Entry, len(raw))
	for prefix, fields := range raw {
		entry, err := decodeEntry(fields)
		if err != nil {
			return nil, fmt.Errorf("mount %q: %w", prefix, err)
		}
		mounts[prefix] = entry
	}
	return mounts, nil
}

// decodeEntry decodes one mount entry, rejecting unknown keys so a typo like
// "proxyto" fails at startup instead of silently serving a directory.
func decodeEntry(fields map[string]any) (Entry, error) {
	var entry Entry
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &entry,
		ErrorUnused: true,
	})
	if err != nil {
		return Entry{}, err
	}
	if err := dec.Decode(fields); err != nil {
		return Entry{}, err
	}
	return entry, nil
}
