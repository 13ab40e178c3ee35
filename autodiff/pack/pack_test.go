package pack

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func read(t *testing.T, r io.Reader) map[string]string {
	t.Helper()
	ret := make(map[string]string)
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return ret
		}
		require.NoError(t, err)
		b, err := io.ReadAll(tr)
		require.NoError(t, err)
		ret[hdr.Name] = string(b)
	}
}

func TestWrite(t *testing.T) {
	pages := []Page{
		{Path: "index.html", MimeType: "text/html; charset=utf-8", Data: []byte("<html>\n  <body>\n    <p>hi</p>\n  </body>\n</html>\n")},
		{Path: "changes.json", MimeType: "application/json", Data: []byte("{\n  \"kind\": \"MoveItem\"\n}\n")},
		{Path: "report.md", MimeType: "text/markdown", Data: []byte("# report\n")},
		{Path: "/feeds/feed.atom", MimeType: "application/atom+xml", Data: []byte("<feed>\n  <title>x</title>\n</feed>\n")},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, pages))

	got := read(t, &buf)

	var names []string
	for name := range got {
		names = append(names, name)
	}
	slices.Sort(names)
	wantNames := []string{"./changes.json", "./feeds/", "./feeds/feed.atom", "./index.html", "./report.md"}
	if diff := cmp.Diff(wantNames, names); diff != "" {
		t.Errorf("archive has different files (-want, +got):\n%s", diff)
	}

	require.Equal(t, `{"kind":"MoveItem"}`, got["./changes.json"])
	require.Equal(t, "# report\n", got["./report.md"], "unknown types are not minified")
	for _, name := range []string{"./index.html", "./feeds/feed.atom"} {
		require.NotContains(t, got[name], "\n  ", "%s is not minified", name)
	}
	require.Contains(t, got["./index.html"], "<p>hi")
	require.Contains(t, got["./feeds/feed.atom"], "<title>x</title>")
}

func TestPack(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "report.tar")
	require.NoError(t, os.WriteFile(filename, []byte("previous content that is longer"), 0o644))
	require.NoError(t, Pack(filename, []Page{{Path: "a.txt", MimeType: "text/plain", Data: []byte("a")}}))

	f, err := os.Open(filename)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, map[string]string{"./a.txt": "a"}, read(t, f))
}

func TestWriteInvalidMimeType(t *testing.T) {
	err := Write(io.Discard, []Page{{Path: "a", MimeType: ""}})
	require.Error(t, err)
}
