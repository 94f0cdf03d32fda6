// Package evidence hashes, preserves and inventories the files of a collection.
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// chunkSize bounds the memory used while hashing regardless of file size.
const chunkSize = 64 * 1024

// SHA256File returns the hex SHA-256 of path and the number of bytes read.
func SHA256File(fs afero.Fs, path string) (string, int64, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, err
	}
	if info.IsDir() {
		return "", 0, errors.Errorf("%s is a directory", path)
	}

	h := sha256.New()
	n, err := io.CopyBuffer(h, f, make([]byte, chunkSize))
	if err != nil {
		return "", 0, errors.Wrapf(err, "read %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Digest is SHA256File for report text: it returns the hex digest or an
// "ERROR_HASH: <cause>" line and never fails.
func Digest(fs afero.Fs, path string) string {
	sum, _, err := SHA256File(fs, path)
	if err != nil {
		return "ERROR_HASH: " + err.Error()
	}
	return sum
}

// IsFile reports whether path names an existing regular file.
func IsFile(fs afero.Fs, path string) bool {
	if path == "" {
		return false
	}
	info, err := fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
