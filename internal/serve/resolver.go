package serve

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type resolvedKind int

const (
	resolvedFile resolvedKind = iota
	resolvedDir
)

// resolved is the outcome of mapping a request remainder onto the filesystem.
type resolved struct {
	kind resolvedKind
	// path is the canonical (absolute, symlink-free) filesystem path.
	path string
	info os.FileInfo
}

// resolve joins root and remainder, canonicalizes the result and verifies it
// is the root or a descendant of it. The containment check runs after symlink
// resolution: a symlink inside root pointing outside it is rejected even when
// the target exists, so a lexical check on remainder would not be enough.
func resolve(root, remainder string) (resolved, error) {
	canonRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			return resolved{}, ErrResourceNotFound
		}
		return resolved{}, fmt.Errorf("canonicalize root %s: %w", root, err)
	}
	canonRoot, err = filepath.Abs(canonRoot)
	if err != nil {
		return resolved{}, fmt.Errorf("canonicalize root %s: %w", root, err)
	}

	candidate := filepath.Join(canonRoot, filepath.FromSlash(remainder))
	canon, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if os.IsNotExist(err) {
			return resolved{}, ErrResourceNotFound
		}
		return resolved{}, fmt.Errorf("canonicalize %s: %w", candidate, err)
	}

	if !contains(canonRoot, canon) {
		return resolved{}, ErrPathForbidden
	}

	info, err := os.Stat(canon)
	if err != nil {
		if os.IsNotExist(err) {
			return resolved{}, ErrResourceNotFound
		}
		return resolved{}, fmt.Errorf("stat %s: %w", canon, err)
	}

	kind := resolvedFile
	if info.IsDir() {
		kind = resolvedDir
	}
	return resolved{kind: kind, path: canon, info: info}, nil
}

// contains reports whether p equals root or lies underneath it.
func contains(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
