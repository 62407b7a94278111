// Package templates loads issue and pull request body templates from a local directory.
package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultName selects the unsuffixed template file
const DefaultName = "default"

// Kind is the type of body a template fills
type Kind string

const (
	Issue       Kind = "issue"
	PullRequest Kind = "pr"
)

// Store reads templates from Dir. Template files are named <kind>_template.md, with named variants
// <kind>_template_<name>.md. A variant that does not exist falls back to the default file, and a missing default
// yields an empty body
type Store struct {
	Dir string
}

func NewStore(dir string) Store {
	return Store{Dir: dir}
}

// Load returns the body for the named template of the given kind
func (s Store) Load(kind Kind, name string) (string, error) {
	if name != "" && name != DefaultName {
		body, found, err := s.read(fmt.Sprintf("%s_template_%s.md", kind, name))
		if err != nil || found {
			return body, err
		}
	}
	body, _, err := s.read(fmt.Sprintf("%s_template.md", kind))
	return body, err
}

func (s Store) read(file string) (string, bool, error) {
	content, err := os.ReadFile(filepath.Join(s.Dir, file))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read template %s: %w", file, err)
	}
	return string(content), true, nil
}
