package model

// ManifestVersion is bumped when the manifest schema changes.
const ManifestVersion = 1

// Manifest records what the last compiler invocation put into a build output
// directory. The directory is keyed by (target triple, optimization mode),
// not by variant, so ELF images from different variants can silently shadow
// each other there; the manifest exists to detect that and warn.
type Manifest struct {
	Version  int             `yaml:"version"`
	Variant  string          `yaml:"variant"`
	Features []string        `yaml:"features"`
	Entries  []ManifestEntry `yaml:"entries"`
}

// ManifestEntry is one compiled entry point and the fingerprint of its ELF
// image at compile time.
type ManifestEntry struct {
	Name   EntryPoint `yaml:"name"`
	SHA256 string     `yaml:"sha256"`
}

// Entry returns the manifest entry for the named entry point, or nil.
func (m *Manifest) Entry(name EntryPoint) *ManifestEntry {
	for i := range m.Entries {
		if m.Entries[i].Name == name {
			return &m.Entries[i]
		}
	}

	return nil
}
