package snapshot

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackExtract_RoundTrip(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.txt"), []byte("top"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "deep", "leaf.txt"), []byte("leaf"), 0o600))

	archive := filepath.Join(t.TempDir(), "data.tar.gz")
	require.NoError(t, PackDir(archive, src))

	dst := t.TempDir()
	require.NoError(t, ExtractDir(archive, dst))

	got, err := os.ReadFile(filepath.Join(dst, "top.txt"))
	require.NoError(t, err)
	assert.Equal(t, "top", string(got))

	got, err = os.ReadFile(filepath.Join(dst, "nested", "deep", "leaf.txt"))
	require.NoError(t, err)
	assert.Equal(t, "leaf", string(got))
}

func TestExtract_IsAdditive(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "from-archive.txt"), []byte("new"), 0o644))
	archive := filepath.Join(t.TempDir(), "data.tar.gz")
	require.NoError(t, PackDir(archive, src))

	dst := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dst, "preexisting.txt"), []byte("keep me"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "from-archive.txt"), []byte("old"), 0o644))

	require.NoError(t, ExtractDir(archive, dst))

	// Files in the archive overwrite, files outside it survive
	got, err := os.ReadFile(filepath.Join(dst, "from-archive.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	got, err = os.ReadFile(filepath.Join(dst, "preexisting.txt"))
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(got))
}

func TestExtract_RejectsPathTraversal(t *testing.T) {
	// Hand-craft an archive with an escaping entry
	archive := filepath.Join(t.TempDir(), "evil.tar.gz")
	f, err := os.Create(archive)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "../escape.txt",
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     4,
	}))
	_, err = tw.Write([]byte("evil"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	dst := t.TempDir()
	err = ExtractDir(archive, dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")

	_, statErr := os.Stat(filepath.Join(filepath.Dir(dst), "escape.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGzipFile_RemovesSource(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "database.sql")
	require.NoError(t, os.WriteFile(raw, []byte(testDump), 0o644))

	dst := filepath.Join(dir, "database.sql.gz")
	require.NoError(t, gzipFile(dst, raw))

	_, err := os.Stat(raw)
	assert.True(t, os.IsNotExist(err), "raw dump removed after compression")

	// Decompresses back to the original bytes
	var out []byte
	{
		tmp := filepath.Join(dir, "roundtrip.sql")
		f, err := os.Create(tmp)
		require.NoError(t, err)
		require.NoError(t, gunzipTo(f, dst))
		require.NoError(t, f.Close())
		out, err = os.ReadFile(tmp)
		require.NoError(t, err)
	}
	assert.Equal(t, testDump, string(out))
}

func TestFileSHA256_Stable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	sum, err := FileSHA256(path)
	require.NoError(t, err)
	// Well-known digest of "abc"
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
}
