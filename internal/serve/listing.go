package serve

import (
	"bytes"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
)

// serveListing renders the immediate children of dir as a minimal HTML page
// with relative links, ordered case-insensitively. Dot-entries are excluded
// from listings everywhere; requesting a hidden file by exact path still
// serves it.
func serveListing(w http.ResponseWriter, r *http.Request, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrResourceNotFound
		}
		return fmt.Errorf("read dir %s: %w", dir, err)
	}

	visible := entries[:0]
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			visible = append(visible, e)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		ni, nj := strings.ToLower(visible[i].Name()), strings.ToLower(visible[j].Name())
		if ni != nj {
			return ni < nj
		}
		return visible[i].Name() < visible[j].Name()
	})

	title := html.EscapeString(r.URL.Path)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html>\n<head><title>Index of %s</title></head>\n<body>\n", title)
	fmt.Fprintf(&buf, "<h1>Index of %s</h1>\n<ul>\n", title)
	for _, e := range visible {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		fmt.Fprintf(&buf, "<li><a href=%q>%s</a></li>\n",
			(&url.URL{Path: name}).String(), html.EscapeString(name))
	}
	buf.WriteString("</ul>\n</body>\n</html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return nil
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write listing: %w", err)
	}
	return nil
}
