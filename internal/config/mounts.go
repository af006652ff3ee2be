package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/statichost/statichost/internal/mount"
)

// MountPoints converts the configured entries into mount points, applying
// entry-level defaults: path derived from the prefix, index.html, listings
// enabled. Prefixes are emitted in sorted order for deterministic builds;
// mount.Build does the final longest-first ordering.
func (c *Config) MountPoints() ([]mount.Point, error) {
	prefixes := make([]string, 0, len(c.Mounts))
	for prefix := range c.Mounts {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	points := make([]mount.Point, 0, len(prefixes))
	for _, prefix := range prefixes {
		entry := c.Mounts[prefix]

		if entry.ProxyTo != "" {
			base, err := url.Parse(entry.ProxyTo)
			if err != nil {
				return nil, fmt.Errorf("mount %q: invalid proxy_to URL: %w", prefix, err)
			}
			points = append(points, mount.Point{
				Prefix: prefix,
				Kind:   mount.KindRemote,
				Remote: mount.RemoteTarget{BaseURL: base},
			})
			continue
		}

		root := entry.Path
		if root == "" {
			root = strings.TrimPrefix(mount.NormalizePrefix(prefix), "/")
			if root == "" {
				root = "."
			}
		}
		index := entry.Index
		if index == "" {
			index = DefaultIndex
		}
		list := true
		if entry.Dir != nil {
			list = *entry.Dir
		}
		points = append(points, mount.Point{
			Prefix: prefix,
			Kind:   mount.KindLocal,
			Local: mount.LocalTarget{
				Root:          root,
				Index:         index,
				ListDirectory: list,
			},
		})
	}
	return points, nil
}
