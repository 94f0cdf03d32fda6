package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"livecollect/collectors"
)

// Vault holds verbatim copies of source files that are unsafe to read in
// place. Every destination lies directly inside the vault directory.
type Vault struct {
	fs        afero.Fs
	dir       string
	rel       string
	artifacts []collectors.Artifact
}

// NewVault creates the vault directory. rel is the vault's path relative to
// the output directory, used when recording artifacts.
func NewVault(fs afero.Fs, dir, rel string) (*Vault, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create vault")
	}
	return &Vault{fs: fs, dir: dir, rel: rel}, nil
}

func (v *Vault) Dir() string { return v.dir }

// Artifacts lists the copies made so far, in copy order.
func (v *Vault) Artifacts() []collectors.Artifact {
	return append([]collectors.Artifact(nil), v.artifacts...)
}

// Copy copies src into the vault as "<label>_copy". A label already used in
// this vault gets a numeric suffix ("<label>_copy_1", ...), so no copy is ever
// overwritten. A source that cannot be opened leaves no vault entry behind.
func (v *Vault) Copy(src, label, collector string) (collectors.Artifact, error) {
	in, err := v.fs.Open(src)
	if err != nil {
		return collectors.Artifact{}, errors.Wrap(err, "open source")
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return collectors.Artifact{}, errors.Wrap(err, "stat source")
	}
	if info.IsDir() {
		return collectors.Artifact{}, errors.Errorf("%s is a directory", src)
	}

	name, err := v.freeName(sanitizeLabel(label) + "_copy")
	if err != nil {
		return collectors.Artifact{}, err
	}
	dst := filepath.Join(v.dir, name)

	out, err := v.fs.Create(dst)
	if err != nil {
		return collectors.Artifact{}, errors.Wrap(err, "create copy")
	}

	h := sha256.New()
	n, err := io.CopyBuffer(io.MultiWriter(out, h), in, make([]byte, chunkSize))
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = v.fs.Remove(dst)
		return collectors.Artifact{}, errors.Wrap(err, "copy")
	}

	mtime := info.ModTime()
	mtimeErr := v.fs.Chtimes(dst, mtime, mtime)

	a := collectors.Artifact{
		RelativePath: filepath.ToSlash(filepath.Join(v.rel, name)),
		Collector:    collector,
		CollectedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		SizeBytes:    n,
		SHA256:       hex.EncodeToString(h.Sum(nil)),
		Metadata: map[string]string{
			"source":      src,
			"label":       label,
			"source_time": mtime.UTC().Format(time.RFC3339Nano),
			"dest":        dst,
		},
	}
	if mtimeErr != nil {
		a.Metadata["mtime_error"] = mtimeErr.Error()
	}
	v.artifacts = append(v.artifacts, a)
	return a, nil
}

func (v *Vault) freeName(name string) (string, error) {
	candidate := name
	for i := 1; ; i++ {
		exists, err := afero.Exists(v.fs, filepath.Join(v.dir, candidate))
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", name, i)
	}
}

// sanitizeLabel keeps a label to a single path element.
func sanitizeLabel(label string) string {
	label = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, label)
	label = strings.Trim(label, ". ")
	if label == "" {
		return "artifact"
	}
	return label
}
