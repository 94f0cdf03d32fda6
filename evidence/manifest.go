package evidence

import (
	"encoding/json"
	"path/filepath"

	"github.com/spf13/afero"

	"livecollect/collectors"
)

const ManifestName = "manifest.json"

type Manifest struct {
	CaseID    string                `json:"case_id"`
	CreatedAt string                `json:"created_at"`
	Report    collectors.Artifact   `json:"report"`
	Artifacts []collectors.Artifact `json:"artifacts"`
	Metadata  map[string]string     `json:"metadata,omitempty"`
}

func WriteManifest(fs afero.Fs, outputDir string, m Manifest) error {
	if m.Artifacts == nil {
		m.Artifacts = []collectors.Artifact{}
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(fs, filepath.Join(outputDir, ManifestName), b, 0o600)
}

// ReadManifest loads the manifest of an output directory.
func ReadManifest(fs afero.Fs, outputDir string) (Manifest, error) {
	var m Manifest
	b, err := afero.ReadFile(fs, filepath.Join(outputDir, ManifestName))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}
