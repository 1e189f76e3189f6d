package adapter

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	m "rvmk.dev/pkg/rvmk/internal/model"
)

// manifestFileName is the build manifest written next to the ELF images.
const manifestFileName = ".rvmk-build.yaml"

// ManifestStore persists the build manifest inside a build output directory.
// The manifest records which variant last compiled into the directory, since
// the directory itself is keyed only by (triple, mode) and is shared across
// variants.
type ManifestStore interface {
	// Load reads the manifest from outputDir. A missing manifest is not an
	// error; it returns (nil, nil).
	Load(outputDir m.Path) (*m.Manifest, error)

	// Save writes the manifest into outputDir atomically.
	Save(outputDir m.Path, manifest *m.Manifest) error
}

// YAMLManifestStore stores the manifest as YAML through a SourceFSAdapter.
type YAMLManifestStore struct {
	fs SourceFSAdapter
}

// NewYAMLManifestStore constructs a YAMLManifestStore backed by the provided
// filesystem adapter.
func NewYAMLManifestStore(fs SourceFSAdapter) *YAMLManifestStore {
	return &YAMLManifestStore{fs: fs}
}

// Load reads and decodes the manifest, if present.
func (s *YAMLManifestStore) Load(outputDir m.Path) (*m.Manifest, error) {
	path := manifestPath(outputDir)

	content, err := s.fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var manifest m.Manifest
	if err := yaml.Unmarshal(content, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}

	return &manifest, nil
}

// Save encodes and atomically writes the manifest.
func (s *YAMLManifestStore) Save(outputDir m.Path, manifest *m.Manifest) error {
	content, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	path := manifestPath(outputDir)
	if err := s.fs.WriteFileAtomic(path, content, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}

	return nil
}

func manifestPath(outputDir m.Path) m.Path {
	return m.Path(filepath.Join(string(outputDir), manifestFileName))
}
