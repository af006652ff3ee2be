package mount

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Table is an ordered, immutable collection of mount points. It is built once
// at startup and shared read-only across all request goroutines; Match never
// mutates it, so no locking is needed.
type Table struct {
	points []Point
}

// Resolved is the per-request result of a table lookup.
type Resolved struct {
	// Mount is the matched mount point.
	Mount *Point

	// Remainder is the request path with the mount prefix stripped. It is
	// empty when the path equals the prefix exactly; otherwise it begins
	// with "/".
	Remainder string
}

// Build validates and orders mount points into a Table. Prefixes are
// normalized (cleaned, no trailing slash except "/") and must be unique after
// normalization. Entries are stored longest-first so the first match wins.
func Build(points []Point) (*Table, error) {
	ordered := make([]Point, len(points))
	copy(ordered, points)

	seen := make(map[string]struct{}, len(ordered))
	for i := range ordered {
		p := NormalizePrefix(ordered[i].Prefix)
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("duplicate mount prefix %q", p)
		}
		seen[p] = struct{}{}
		ordered[i].Prefix = p
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := segmentCount(ordered[i].Prefix), segmentCount(ordered[j].Prefix)
		if si != sj {
			return si > sj
		}
		return len(ordered[i].Prefix) > len(ordered[j].Prefix)
	})

	return &Table{points: ordered}, nil
}

// Len reports the number of mount points in the table.
func (t *Table) Len() int { return len(t.points) }

// Points returns the mount points in match order.
func (t *Table) Points() []Point {
	out := make([]Point, len(t.points))
	copy(out, t.points)
	return out
}

// Match returns the mount point whose prefix is the longest segment-wise
// prefix of reqPath, along with the remaining path. Matching is on whole
// path segments: "/public/x" matches mount "/public" but never "/pub" or
// "/publicity". Returns false when no mount applies.
func (t *Table) Match(reqPath string) (Resolved, bool) {
	p := path.Clean("/" + reqPath)
	for i := range t.points {
		mp := &t.points[i]
		if rem, ok := stripPrefix(mp.Prefix, p); ok {
			return Resolved{Mount: mp, Remainder: rem}, true
		}
	}
	return Resolved{}, false
}

// NormalizePrefix cleans a mount prefix: leading slash enforced, "." and ".."
// collapsed, trailing slash dropped except for the root prefix "/".
func NormalizePrefix(prefix string) string {
	return path.Clean("/" + strings.Trim(prefix, "/"))
}

// stripPrefix reports whether prefix is a segment-wise prefix of p and, if
// so, returns the remainder.
func stripPrefix(prefix, p string) (string, bool) {
	if prefix == "/" {
		if p == "/" {
			return "", true
		}
		return p, true
	}
	if p == prefix {
		return "", true
	}
	if strings.HasPrefix(p, prefix) && p[len(prefix)] == '/' {
		return p[len(prefix):], true
	}
	return "", false
}

func segmentCount(prefix string) int {
	if prefix == "/" {
		return 0
	}
	return strings.Count(prefix, "/")
}
