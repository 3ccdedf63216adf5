package resolverfile

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taihen/resolvrank/internal/model"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "resolvers.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestParse_BasicIPv4(t *testing.T) {
	path := writeTemp(t, "1.1.1.1\n9.9.9.9:53\n")
	resolvers, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, resolvers, 2)
	assert.Equal(t, "1.1.1.1:53", resolvers[0].Addr)
	assert.Equal(t, "9.9.9.9:53", resolvers[1].Addr)
}

func TestParse_IPv6WithBrackets(t *testing.T) {
	path := writeTemp(t, "[2606:4700:4700::1111]:53\n")
	resolvers, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, resolvers, 1)
	host, _, err := net.SplitHostPort(resolvers[0].Addr)
	require.NoError(t, err)
	assert.Equal(t, "2606:4700:4700::1111", host)
}

func TestParse_IPv6WithoutPort(t *testing.T) {
	path := writeTemp(t, "2606:4700:4700::1111\n")
	resolvers, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, resolvers, 1)
}

func TestParse_TrailingLabelComment(t *testing.T) {
	path := writeTemp(t, "9.9.9.9:53 # Quad9\n")
	resolvers, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, resolvers, 1)
	assert.Equal(t, "Quad9", resolvers[0].Label)
}

func TestParse_SkipsBlankAndCommentLines(t *testing.T) {
	path := writeTemp(t, "\n# a full-line comment\n1.1.1.1\n   \n")
	resolvers, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, resolvers, 1)
}

func TestParse_InvalidIPReturnsError(t *testing.T) {
	path := writeTemp(t, "not-an-ip\n")
	_, err := Parse(path)
	assert.Error(t, err)
}

func TestParse_EmptyFileReturnsError(t *testing.T) {
	path := writeTemp(t, "# only comments\n")
	_, err := Parse(path)
	assert.Error(t, err)
}

func TestParse_MissingFileReturnsError(t *testing.T) {
	_, err := Parse("/nonexistent/path/to/resolvers.txt")
	assert.Error(t, err)
}

func TestDedup_KeepsFirstOccurrence(t *testing.T) {
	in := []model.Resolver{
		{Addr: "1.1.1.1:53", Label: "first"},
		{Addr: "1.1.1.1:53", Label: "second"},
		{Addr: "9.9.9.9:53", Label: "quad9"},
	}
	out := Dedup(in)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Label)
}
