package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/statichost/statichost/internal/mount"
)

// validate is the singleton validator instance.
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the configuration: declarative rules via struct tags, then
// the cross-field rules tags cannot express. Any error returned here must
// abort startup.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if len(cfg.Mounts) == 0 {
		return fmt.Errorf("mounts: at least one mount must be configured")
	}

	normalized := make(map[string]string, len(cfg.Mounts))
	for prefix, entry := range cfg.Mounts {
		if !strings.HasPrefix(prefix, "/") {
			return fmt.Errorf("mount %q: prefix must start with '/'", prefix)
		}
		norm := mount.NormalizePrefix(prefix)
		if other, dup := normalized[norm]; dup {
			return fmt.Errorf("mount %q: duplicate prefix (normalizes to %q, same as %q)", prefix, norm, other)
		}
		normalized[norm] = prefix

		if err := validateEntry(prefix, entry); err != nil {
			return err
		}
	}

	if cfg.RateLimit.Enabled && (cfg.RateLimit.RPS <= 0 || cfg.RateLimit.Burst <= 0) {
		return fmt.Errorf("ratelimit: rps and burst must be positive when enabled")
	}

	if cfg.TLS.Enabled {
		if len(cfg.TLS.Domains) == 0 {
			return fmt.Errorf("tls: at least one domain is required when enabled")
		}
		if cfg.TLS.ACMEEmail == "" {
			return fmt.Errorf("tls: acme_email is required when enabled")
		}
	}

	return nil
}

func validateEntry(prefix string, entry Entry) error {
	if entry.ProxyTo == "" {
		return nil
	}
	if entry.Path != "" || entry.Index != "" || entry.Dir != nil {
		return fmt.Errorf("mount %q: proxy_to cannot be combined with directory keys", prefix)
	}
	u, err := url.Parse(entry.ProxyTo)
	if err != nil {
		return fmt.Errorf("mount %q: invalid proxy_to URL: %w", prefix, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("mount %q: proxy_to must be an absolute URL", prefix)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("mount %q: proxy_to scheme must be http or https, got %q", prefix, u.Scheme)
	}
	return nil
}

// formatValidationError converts validator errors into a readable message.
func formatValidationError(err error) error {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		e := errs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
