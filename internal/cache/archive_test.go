package cache

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

// makeQtTree creates a minimal installed tree: <root>/6.10.0/gcc_64/bin/qmake.
func makeQtTree(t *testing.T, root string) {
	t.Helper()
	bin := filepath.Join(root, "6.10.0", "gcc_64", "bin")
	require.NoError(t, os.MkdirAll(bin, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "qmake"), []byte("#!/bin/sh\necho qmake\n"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "components.xml"), []byte("<Packages/>"), 0644))
}

func TestArchive_RoundTrip(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "Qt")
	makeQtTree(t, src)
	if runtime.GOOS != "windows" {
		require.NoError(t, os.Symlink("qmake", filepath.Join(src, "6.10.0", "gcc_64", "bin", "qmake6")))
	}

	var buf bytes.Buffer
	require.NoError(t, WriteArchive(&buf, []string{src, filepath.Join(t.TempDir(), "missing")}))

	dst := filepath.Join(t.TempDir(), "Qt")
	require.NoError(t, ExtractArchive(&buf, []string{dst, filepath.Join(t.TempDir(), "other")}))

	content, err := os.ReadFile(filepath.Join(dst, "6.10.0", "gcc_64", "bin", "qmake"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho qmake\n", string(content))

	info, err := os.Stat(filepath.Join(dst, "6.10.0", "gcc_64", "bin", "qmake"))
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

		link, err := os.Readlink(filepath.Join(dst, "6.10.0", "gcc_64", "bin", "qmake6"))
		require.NoError(t, err)
		assert.Equal(t, "qmake", link)
	}

	_, err = os.Stat(filepath.Join(dst, "components.xml"))
	require.NoError(t, err)
}

func TestArchive_OverwritesExisting(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "Qt")
	makeQtTree(t, src)

	var buf bytes.Buffer
	require.NoError(t, WriteArchive(&buf, []string{src}))

	dst := filepath.Join(t.TempDir(), "Qt")
	require.NoError(t, os.MkdirAll(dst, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "components.xml"), []byte("stale"), 0644))

	require.NoError(t, ExtractArchive(&buf, []string{dst}))

	content, err := os.ReadFile(filepath.Join(dst, "components.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<Packages/>", string(content))
}

func writeRawArchive(t *testing.T, headers ...*tar.Header) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	tw := tar.NewWriter(xw)
	for _, hdr := range headers {
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Size > 0 {
			_, err := tw.Write(bytes.Repeat([]byte("x"), int(hdr.Size)))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, xw.Close())
	return &buf
}

func TestExtractArchive_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers []*tar.Header
		outside string
	}{
		{
			name:    "path traversal",
			headers: []*tar.Header{{Name: "0/../../evil", Typeflag: tar.TypeReg, Mode: 0644, Size: 1}},
		},
		{
			name:    "unknown root index",
			headers: []*tar.Header{{Name: "3/file", Typeflag: tar.TypeReg, Mode: 0644, Size: 1}},
		},
		{
			name:    "non numeric prefix",
			headers: []*tar.Header{{Name: "Qt/file", Typeflag: tar.TypeReg, Mode: 0644, Size: 1}},
		},
		{
			name:    "symlink escaping root",
			headers: []*tar.Header{{Name: "0/link", Typeflag: tar.TypeSymlink, Linkname: "../../etc/passwd"}},
		},
		{
			name:    "absolute symlink",
			headers: []*tar.Header{{Name: "0/link", Typeflag: tar.TypeSymlink, Linkname: "/etc/passwd"}},
		},
		{
			name: "chained symlinks escaping root",
			headers: []*tar.Header{
				{Name: "0/d/", Typeflag: tar.TypeDir, Mode: 0755},
				{Name: "0/d/l", Typeflag: tar.TypeSymlink, Linkname: ".."},
				{Name: "0/d/l/l2", Typeflag: tar.TypeSymlink, Linkname: ".."},
				{Name: "0/d/l/l2/evil", Typeflag: tar.TypeReg, Mode: 0644, Size: 1},
			},
			outside: "evil",
		},
		{
			name: "file below a symlinked directory",
			headers: []*tar.Header{
				{Name: "0/lib", Typeflag: tar.TypeSymlink, Linkname: "."},
				{Name: "0/lib/evil", Typeflag: tar.TypeReg, Mode: 0644, Size: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			base := t.TempDir()
			buf := writeRawArchive(t, tt.headers...)
			err := ExtractArchive(buf, []string{filepath.Join(base, "Qt")})
			require.Error(t, err)
			if tt.outside != "" {
				assert.NoFileExists(t, filepath.Join(base, tt.outside))
			}
		})
	}
}

func TestIsInsideDir(t *testing.T) {
	t.Parallel()

	base := filepath.Join("/", "home", "runner", "Qt")
	assert.True(t, isInsideDir(base, base))
	assert.True(t, isInsideDir(base, filepath.Join(base, "6.10.0")))
	assert.True(t, isInsideDir(base, filepath.Join(base, "..hidden")))
	assert.False(t, isInsideDir(base, filepath.Join(base, "..")))
	assert.False(t, isInsideDir(base, filepath.Join(base, "..", "other")))
}
