// Package mount defines mount points and the immutable table that routes
// request paths to them.
package mount

import "net/url"

// Kind discriminates the two mount target variants. The set is closed:
// a mount either serves a local directory or forwards to a remote upstream.
type Kind int

const (
	KindLocal Kind = iota
	KindRemote
)

// LocalTarget serves a directory tree from the local filesystem.
type LocalTarget struct {
	// Root is the directory served at the mount prefix.
	Root string

	// Index is the file served when a request resolves to a directory
	// containing it (e.g. "index.html").
	Index string

	// ListDirectory enables HTML listings for directories without an
	// index file. When false, directory requests are forbidden; files
	// under the directory remain reachable by exact path.
	ListDirectory bool
}

// RemoteTarget forwards matching requests to an upstream base URL.
type RemoteTarget struct {
	BaseURL *url.URL
}

// Point binds a URL path prefix to a local directory or a remote upstream.
// Exactly one of Local/Remote is meaningful, selected by Kind.
//
// Points are created once from configuration and never mutated afterwards.
type Point struct {
	Prefix string
	Kind   Kind
	Local  LocalTarget
	Remote RemoteTarget
}
