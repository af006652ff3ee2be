package serve

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statichost/statichost/internal/mount"
)

func remotePoint(t *testing.T, prefix, upstream string) mount.Point {
	t.Helper()
	base, err := url.Parse(upstream)
	require.NoError(t, err)
	return mount.Point{Prefix: prefix, Kind: mount.KindRemote, Remote: mount.RemoteTarget{BaseURL: base}}
}

func TestForward_RewritesPathAndQuery(t *testing.T) {
	var gotPath, gotQuery, gotMethod string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotMethod = r.Method
		w.Header().Set("X-Upstream", "yes")
		io.WriteString(w, "upstream body")
	}))
	defer upstream.Close()

	d := newTestDispatcher(t, remotePoint(t, "/api/get", upstream.URL+"/get"))
	front := httptest.NewServer(d)
	defer front.Close()

	resp, err := http.Get(front.URL + "/api/get?x=1")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, "/get", gotPath)
	assert.Equal(t, "x=1", gotQuery)
	assert.Equal(t, "GET", gotMethod)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "upstream body", string(body))
	assert.Equal(t, "yes", resp.Header.Get("X-Upstream"))
}

func TestForward_SubPathAppended(t *testing.T) {
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer upstream.Close()

	d := newTestDispatcher(t, remotePoint(t, "/api", upstream.URL+"/v1"))
	front := httptest.NewServer(d)
	defer front.Close()

	resp, err := http.Get(front.URL + "/api/users/42")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "/v1/users/42", gotPath)
}

func TestForward_MethodAndBodyUnmodified(t *testing.T) {
	var gotMethod, gotBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotMethod = r.Method
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	}))
	defer upstream.Close()

	d := newTestDispatcher(t, remotePoint(t, "/api", upstream.URL))
	front := httptest.NewServer(d)
	defer front.Close()

	resp, err := http.Post(front.URL+"/api/things", "application/json", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, `{"a":1}`, gotBody)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestForward_StatusPassthrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer upstream.Close()

	d := newTestDispatcher(t, remotePoint(t, "/api", upstream.URL))
	front := httptest.NewServer(d)
	defer front.Close()

	resp, err := http.Get(front.URL + "/api/brew")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestForward_ForwardedHeaders(t *testing.T) {
	var gotProto, gotHost string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProto = r.Header.Get("X-Forwarded-Proto")
		gotHost = r.Header.Get("X-Forwarded-Host")
	}))
	defer upstream.Close()

	d := newTestDispatcher(t, remotePoint(t, "/api", upstream.URL))
	front := httptest.NewServer(d)
	defer front.Close()

	resp, err := http.Get(front.URL + "/api/x")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "http", gotProto)
	assert.NotEmpty(t, gotHost)
}

func TestForward_UpstreamUnreachable(t *testing.T) {
	// Grab a port that refuses connections by closing the listener.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead := upstream.URL
	upstream.Close()

	d := newTestDispatcher(t, remotePoint(t, "/api", dead))
	front := httptest.NewServer(d)
	defer front.Close()

	resp, err := http.Get(front.URL + "/api/x")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestForward_ResponseHeaderTimeout(t *testing.T) {
	// The upstream accepts the connection but never sends headers.
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		upstream.Close()
	}()

	cfg := testProxyConfig()
	cfg.ResponseHeaderTimeout = 100 * time.Millisecond

	table, err := mount.Build([]mount.Point{remotePoint(t, "/api", upstream.URL)})
	require.NoError(t, err)
	logger := testLogger()
	d := NewDispatcher(table, NewForwarder(cfg, logger), logger)

	front := httptest.NewServer(d)
	defer front.Close()

	start := time.Now()
	resp, err := http.Get(front.URL + "/api/slow")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestJoinUpstreamPath(t *testing.T) {
	cases := []struct {
		base, remainder, want string
	}{
		{"/get", "", "/get"},
		{"", "", "/"},
		{"/v1", "/users", "/v1/users"},
		{"/v1/", "/users", "/v1/users"},
		{"", "/users", "/users"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, joinUpstreamPath(c.base, c.remainder), "base=%q remainder=%q", c.base, c.remainder)
	}
}
