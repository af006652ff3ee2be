package serve

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/statichost/statichost/internal/mount"
)

const fallbackContentType = "application/octet-stream"

// serveLocal handles a request against a local mount: resolve the remainder
// under the mount root, then serve a file, an index file, or a listing.
func (d *Dispatcher) serveLocal(w http.ResponseWriter, r *http.Request, mp *mount.Point, remainder string) error {
	res, err := resolve(mp.Local.Root, remainder)
	if err != nil {
		return err
	}

	if res.kind == resolvedFile {
		return serveFile(w, r, res.path, res.info)
	}

	// Directory endpoints get a trailing slash so relative links in the
	// index or listing resolve against the directory.
	if !strings.HasSuffix(r.URL.Path, "/") {
		redirectSlash(w, r)
		return nil
	}

	if mp.Local.Index != "" {
		// The index candidate goes through the same canonicalize-and-
		// contain resolution as any other path; the escape check is
		// unconditional, so a symlinked index pointing outside the
		// root is forbidden, not served.
		idx, err := resolve(mp.Local.Root, path.Join(remainder, mp.Local.Index))
		switch {
		case err == nil && idx.kind == resolvedFile:
			return serveFile(w, r, idx.path, idx.info)
		case errors.Is(err, ErrPathForbidden):
			return err
		}
	}

	if !mp.Local.ListDirectory {
		return ErrListingDisabled
	}
	return serveListing(w, r, res.path)
}

// serveFile streams a regular file. Status and Content-Length are fixed
// before the first body byte; a read failure after that point cannot be
// remapped and surfaces as a mid-stream abort.
func serveFile(w http.ResponseWriter, r *http.Request, name string, info os.FileInfo) error {
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrResourceNotFound
		}
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	// Size from the open handle, not the earlier stat, so the advertised
	// length matches what is actually streamed.
	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}

	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = fallbackContentType
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Length", strconv.FormatInt(fi.Size(), 10))
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return nil
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("stream %s: %w", name, err)
	}
	return nil
}

// redirectSlash redirects a directory request to its trailing-slash form,
// preserving the query string.
func redirectSlash(w http.ResponseWriter, r *http.Request) {
	target := &url.URL{Path: r.URL.Path + "/", RawQuery: r.URL.RawQuery}
	http.Redirect(w, r, target.String(), http.StatusMovedPermanently)
}
