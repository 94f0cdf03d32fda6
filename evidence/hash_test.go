package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestKnownContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bin/abc", []byte("abc"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/bin/empty", nil, 0o644))

	tests := []struct {
		name string
		path string
		want string
	}{
		{"abc", "/bin/abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"empty", "/bin/empty", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Digest(fs, tt.path)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, 64)
		})
	}
}

func TestDigestLargerThanChunk(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := []byte(strings.Repeat("evidence", chunkSize/2))
	require.NoError(t, afero.WriteFile(fs, "/big", content, 0o644))

	sum := sha256.Sum256(content)
	got, n, err := SHA256File(fs, "/big")
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
	assert.Equal(t, int64(len(content)), n)
}

func TestDigestFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/some/dir", 0o755))

	assert.True(t, strings.HasPrefix(Digest(fs, "/does/not/exist.exe"), "ERROR_HASH: "))
	assert.True(t, strings.HasPrefix(Digest(fs, "/some/dir"), "ERROR_HASH: "))
}

func TestIsFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.exe", []byte("MZ"), 0o644))
	require.NoError(t, fs.MkdirAll("/dir", 0o755))

	assert.True(t, IsFile(fs, "/a.exe"))
	assert.False(t, IsFile(fs, "/dir"))
	assert.False(t, IsFile(fs, "/missing"))
	assert.False(t, IsFile(fs, ""))
}
