package repository

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest describes a push: which files to write, which to remove, and the commit to record them in
type Manifest struct {
	Message string          `yaml:"message"`
	Branch  string          `yaml:"branch"`
	Files   []ManifestEntry `yaml:"files"`
	Delete  []string        `yaml:"delete"`
}

// ManifestEntry is one file. Exactly one of Content and Source is set; Source is a local path, relative to the
// manifest's directory unless absolute
type ManifestEntry struct {
	Path    string  `yaml:"path"`
	Content *string `yaml:"content"`
	Source  string  `yaml:"source"`
}

// LoadManifest decodes a manifest and checks that every entry is well formed. Unknown keys are rejected
func LoadManifest(r io.Reader) (Manifest, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var manifest Manifest
	if err := decoder.Decode(&manifest); err != nil {
		if errors.Is(err, io.EOF) {
			return Manifest{}, errors.New("push manifest is empty")
		}
		return Manifest{}, fmt.Errorf("failed to parse push manifest: %w", err)
	}

	for i, entry := range manifest.Files {
		if strings.TrimSpace(entry.Path) == "" {
			return Manifest{}, fmt.Errorf("manifest file %d has no path", i+1)
		}
		if (entry.Content == nil) == (entry.Source == "") {
			return Manifest{}, fmt.Errorf("manifest file '%s' must set exactly one of content or source", entry.Path)
		}
	}
	if len(manifest.Files) == 0 && len(manifest.Delete) == 0 {
		return Manifest{}, errors.New("push manifest lists no files")
	}
	return manifest, nil
}

// LoadManifestFile reads a manifest from disk
func LoadManifestFile(path string) (Manifest, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, "", fmt.Errorf("failed to open push manifest: %w", err)
	}
	defer f.Close()

	manifest, err := LoadManifest(f)
	if err != nil {
		return Manifest{}, "", err
	}
	return manifest, filepath.Dir(path), nil
}

// ResolveFiles returns the files to push, reading Source entries relative to baseDir
func (m Manifest) ResolveFiles(baseDir string) ([]File, error) {
	files := make([]File, 0, len(m.Files))
	for _, entry := range m.Files {
		if entry.Content != nil {
			files = append(files, File{Path: entry.Path, Content: *entry.Content})
			continue
		}
		source := entry.Source
		if !filepath.IsAbs(source) {
			source = filepath.Join(baseDir, source)
		}
		content, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read source of '%s': %w", entry.Path, err)
		}
		files = append(files, File{Path: entry.Path, Content: string(content)})
	}
	return files, nil
}
