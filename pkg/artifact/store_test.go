package artifact

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tarEntry describes one file for buildArchive.
type tarEntry struct {
	name string
	body string
	mode int64
	link string
	dir  bool
}

// buildArchive produces a gzip tar stream from entries.
func buildArchive(t *testing.T, entries []tarEntry) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: e.mode}
		if hdr.Mode == 0 {
			hdr.Mode = 0644
		}
		switch {
		case e.dir:
			hdr.Typeflag = tar.TypeDir
		case e.link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.link
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.body))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return &buf
}

func TestMaterialize_UnpacksArchive(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	archive := buildArchive(t, []tarEntry{
		{name: "bin/", dir: true, mode: 0755},
		{name: "bin/app", body: "#!/bin/sh\n", mode: 0755},
		{name: "static/index.html", body: "<html></html>"},
	})

	dir, err := store.Materialize("v1", archive)
	require.NoError(t, err)
	assert.Equal(t, store.Path("v1"), dir)
	assert.True(t, store.Exists("v1"))

	data, err := os.ReadFile(filepath.Join(dir, "bin", "app"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(data))

	info, err := os.Stat(filepath.Join(dir, "bin", "app"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm(), "entrypoint mode must survive extraction")

	_, err = os.Stat(filepath.Join(dir, "static", "index.html"))
	assert.NoError(t, err)
}

func TestMaterialize_ReplacesPreviousContents(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	first := buildArchive(t, []tarEntry{
		{name: "old.txt", body: "old"},
		{name: "kept.txt", body: "one"},
	})
	_, err = store.Materialize("v1", first)
	require.NoError(t, err)

	second := buildArchive(t, []tarEntry{
		{name: "kept.txt", body: "two"},
	})
	dir, err := store.Materialize("v1", second)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "old.txt"))
	assert.True(t, os.IsNotExist(err), "files absent from the new archive must not survive")

	data, err := os.ReadFile(filepath.Join(dir, "kept.txt"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestMaterialize_SkipsPaxGlobalHeader(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	// git archive prefixes its output with a pax_global_header entry.
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:       "pax_global_header",
		Typeflag:   tar.TypeXGlobalHeader,
		PAXRecords: map[string]string{"comment": "0123456789abcdef"},
	}))
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "bin/app", Typeflag: tar.TypeReg, Mode: 0755, Size: 10,
	}))
	_, err = tw.Write([]byte("#!/bin/sh\n"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	dir, err := store.Materialize("v1", &buf)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "bin", "app"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(data))
	assert.NoFileExists(t, filepath.Join(dir, "pax_global_header"))
}

func TestMaterialize_InvalidArchive(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Materialize("v1", strings.NewReader("definitely not gzip"))
	assert.ErrorIs(t, err, ErrBadArchive)
	assert.False(t, store.Exists("v1"), "failed extraction must leave nothing behind")

	entries, err := os.ReadDir(store.Root())
	require.NoError(t, err)
	assert.Empty(t, entries, "no staging leftovers expected")
}

func TestMaterialize_TruncatedArchive(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	full := buildArchive(t, []tarEntry{{name: "a.txt", body: strings.Repeat("x", 4096)}})
	truncated := bytes.NewReader(full.Bytes()[:full.Len()/2])

	_, err = store.Materialize("v1", truncated)
	assert.ErrorIs(t, err, ErrBadArchive)
	assert.False(t, store.Exists("v1"))
}

func TestMaterialize_RejectsPathTraversal(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../escape.txt", "/etc/passwd", "a/../../escape.txt"} {
		archive := buildArchive(t, []tarEntry{{name: name, body: "x"}})
		_, err = store.Materialize("v1", archive)
		assert.ErrorIs(t, err, ErrBadArchive, "entry %q must be rejected", name)
	}
}

func TestMaterialize_RejectsEscapingSymlink(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	archive := buildArchive(t, []tarEntry{{name: "evil", link: "../../outside"}})
	_, err = store.Materialize("v1", archive)
	assert.ErrorIs(t, err, ErrBadArchive)

	archive = buildArchive(t, []tarEntry{{name: "abs", link: "/etc"}})
	_, err = store.Materialize("v1", archive)
	assert.ErrorIs(t, err, ErrBadArchive)
}

func TestMaterialize_AllowsInternalSymlink(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	archive := buildArchive(t, []tarEntry{
		{name: "data/real.txt", body: "hello"},
		{name: "alias", link: "data/real.txt"},
	})
	dir, err := store.Materialize("v1", archive)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "alias"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestMaterialize_RejectsBadVersions(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, version := range []string{"", ".", "..", "a/b", `a\b`, "../up", "v1.partial"} {
		archive := buildArchive(t, []tarEntry{{name: "f", body: "x"}})
		_, err = store.Materialize(version, archive)
		assert.ErrorIs(t, err, ErrBadVersion, "version %q must be rejected", version)
	}
}

func TestPack_Roundtrip(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "bin"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "bin", "app"), []byte("#!/bin/sh\nexit 0\n"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "README.md"), []byte("readme"), 0644))

	var buf bytes.Buffer
	require.NoError(t, Pack(src, &buf))

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	dir, err := store.Materialize("v1", &buf)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "bin", "app"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	data, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "readme", string(data))
}

func TestPack_RejectsNonDirectory(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	var buf bytes.Buffer
	assert.Error(t, Pack(file, &buf))
	assert.Error(t, Pack(filepath.Join(t.TempDir(), "missing"), &buf))
}
