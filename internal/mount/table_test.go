package mount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func local(prefix string) Point {
	return Point{Prefix: prefix, Kind: KindLocal, Local: LocalTarget{Root: ".", Index: "index.html", ListDirectory: true}}
}

func TestBuild_DuplicatePrefix(t *testing.T) {
	_, err := Build([]Point{local("/public"), local("/public/")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate mount prefix")
}

func TestBuild_NormalizesPrefixes(t *testing.T) {
	table, err := Build([]Point{local("/public/"), local("//"), local("/a/b/")})
	require.NoError(t, err)

	got := make([]string, 0, table.Len())
	for _, p := range table.Points() {
		got = append(got, p.Prefix)
	}
	// Longest (most segments) first, root last.
	assert.Equal(t, []string{"/a/b", "/public", "/"}, got)
}

func TestMatch_SegmentExact(t *testing.T) {
	table, err := Build([]Point{local("/pub"), local("/public")})
	require.NoError(t, err)

	res, ok := table.Match("/public/x")
	require.True(t, ok)
	assert.Equal(t, "/public", res.Mount.Prefix)
	assert.Equal(t, "/x", res.Remainder)

	// "/publicity" shares bytes with "/public" but not a segment boundary.
	_, ok = table.Match("/publicity/x")
	assert.False(t, ok)

	res, ok = table.Match("/pub/y")
	require.True(t, ok)
	assert.Equal(t, "/pub", res.Mount.Prefix)
}

func TestMatch_LongestWins(t *testing.T) {
	table, err := Build([]Point{local("/"), local("/api"), local("/api/v2")})
	require.NoError(t, err)

	res, ok := table.Match("/api/v2/users")
	require.True(t, ok)
	assert.Equal(t, "/api/v2", res.Mount.Prefix)
	assert.Equal(t, "/users", res.Remainder)

	res, ok = table.Match("/api/v1/users")
	require.True(t, ok)
	assert.Equal(t, "/api", res.Mount.Prefix)

	res, ok = table.Match("/other")
	require.True(t, ok)
	assert.Equal(t, "/", res.Mount.Prefix)
	assert.Equal(t, "/other", res.Remainder)
}

func TestMatch_ExactPrefixHasEmptyRemainder(t *testing.T) {
	table, err := Build([]Point{local("/public")})
	require.NoError(t, err)

	res, ok := table.Match("/public")
	require.True(t, ok)
	assert.Equal(t, "", res.Remainder)

	// Trailing slash cleans down to the same mount.
	res, ok = table.Match("/public/")
	require.True(t, ok)
	assert.Equal(t, "", res.Remainder)
}

func TestMatch_NoRoute(t *testing.T) {
	table, err := Build([]Point{local("/public")})
	require.NoError(t, err)

	_, ok := table.Match("/private/secret")
	assert.False(t, ok)

	_, ok = table.Match("/")
	assert.False(t, ok)
}

func TestMatch_CleansRequestPath(t *testing.T) {
	table, err := Build([]Point{local("/public")})
	require.NoError(t, err)

	res, ok := table.Match("/other/../public/x")
	require.True(t, ok)
	assert.Equal(t, "/x", res.Remainder)
}
