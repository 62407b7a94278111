package repository

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "local.go"), []byte("package x\n"), 0o644))
	path := filepath.Join(dir, "push.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
message: Add scaffolding
branch: dev
files:
  - path: README.md
    content: "# hello"
  - path: empty.txt
    content: ""
  - path: pkg/x.go
    source: local.go
delete:
  - old.txt
`), 0o644))

	manifest, baseDir, err := LoadManifestFile(path)
	require.NoError(t, err)
	require.Equal(t, "Add scaffolding", manifest.Message)
	require.Equal(t, "dev", manifest.Branch)
	require.Equal(t, []string{"old.txt"}, manifest.Delete)

	files, err := manifest.ResolveFiles(baseDir)
	require.NoError(t, err)
	require.Equal(t, []File{
		{Path: "README.md", Content: "# hello"},
		{Path: "empty.txt", Content: ""},
		{Path: "pkg/x.go", Content: "package x\n"},
	}, files)
}

func TestLoadManifest_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		errText  string
	}{
		{name: "empty", manifest: "", errText: "empty"},
		{name: "no files", manifest: "message: m\n", errText: "no files"},
		{name: "missing path", manifest: "files:\n  - content: x\n", errText: "no path"},
		{name: "content and source", manifest: "files:\n  - path: a\n    content: x\n    source: b\n", errText: "exactly one"},
		{name: "neither", manifest: "files:\n  - path: a\n", errText: "exactly one"},
		{name: "unknown key", manifest: "files:\n  - path: a\n    contents: x\n", errText: "contents"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadManifest(strings.NewReader(tt.manifest))
			require.ErrorContains(t, err, tt.errText)
		})
	}
}

func TestResolveFiles_MissingSource(t *testing.T) {
	manifest := Manifest{Files: []ManifestEntry{{Path: "a", Source: "does-not-exist"}}}
	_, err := manifest.ResolveFiles(t.TempDir())
	require.ErrorContains(t, err, "failed to read source of 'a'")
}
