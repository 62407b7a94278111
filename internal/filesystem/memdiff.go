package filesystem

import (
	"context"
	"errors"
	"fmt"

	"github.com/cchalm/ghops/internal/git"
)

// MemDiffFileSystem sits on top of a ReadOnlyFileSystem and tracks changes in-memory
type MemDiffFileSystem struct {
	baseFileSystem ReadOnlyFileSystem

	changes *git.MemChangelist
}

// NewMemDiffFileSystem creates a new in-memory diff file system
func NewMemDiffFileSystem(baseFileSystem ReadOnlyFileSystem) *MemDiffFileSystem {
	return &MemDiffFileSystem{
		baseFileSystem: baseFileSystem,
		changes:        git.NewMemChangelist(),
	}
}

// Read reads a file with any in-memory changes applied
func (mdfs *MemDiffFileSystem) Read(ctx context.Context, path string) (string, error) {
	if mdfs.changes.IsDeleted(path) {
		return "", fmt.Errorf("file is deleted: %w", ErrFileNotFound)
	}

	var content string
	found := false
	_ = mdfs.changes.ForEachModified(func(p string, c string) error {
		if p == path {
			content, found = c, true
		}
		return nil
	})
	if found {
		return content, nil
	}

	// Fall back to base file system
	return mdfs.baseFileSystem.Read(ctx, path)
}

// Write records new content for a file in-memory. A path that is a directory cannot be written
func (mdfs *MemDiffFileSystem) Write(ctx context.Context, path string, content string) error {
	isDir, err := mdfs.IsDir(ctx, path)
	if err != nil {
		return err
	}
	if isDir {
		return fmt.Errorf("cannot write '%s': %w", path, ErrIsDir)
	}
	mdfs.changes.Write(path, content)
	return nil
}

// Delete marks a file as deleted in-memory. The file must exist
func (mdfs *MemDiffFileSystem) Delete(ctx context.Context, path string) error {
	exists, err := mdfs.FileExists(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("cannot delete '%s': %w", path, ErrFileNotFound)
	}
	mdfs.changes.Delete(path)
	return nil
}

// FileExists checks if a file exists in the current state
func (mdfs *MemDiffFileSystem) FileExists(ctx context.Context, path string) (bool, error) {
	_, err := mdfs.Read(ctx, path)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) || errors.Is(err, ErrIsDir) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IsDir reports whether dir is a directory in the base file system. Paths written in-memory are files
func (mdfs *MemDiffFileSystem) IsDir(ctx context.Context, dir string) (bool, error) {
	if mdfs.changes.IsModified(dir) {
		return false, nil
	}
	return mdfs.baseFileSystem.IsDir(ctx, dir)
}

// GetChangelist returns the changes tracked in this filesystem, in the order they were first made
func (mdfs *MemDiffFileSystem) GetChangelist() *git.MemChangelist {
	return mdfs.changes
}
