// Package filesystem provides file system views over repository contents.
package filesystem

import (
	"context"
	"fmt"
)

var (
	ErrFileNotFound error = fmt.Errorf("file not found")
	ErrIsDir        error = fmt.Errorf("path is a directory")
)

// ReadOnlyFileSystem is a basic interface for reading files
type ReadOnlyFileSystem interface {
	// Read reads the content of a file at the given path
	Read(ctx context.Context, path string) (string, error)

	// IsDir returns true if the given path is a directory, false otherwise
	IsDir(ctx context.Context, dir string) (bool, error)
}

// FileSystem is a basic interface for reading and writing files
type FileSystem interface {
	ReadOnlyFileSystem

	// Write writes the content to a file at the given path, creating the file if it doesn't exist
	Write(ctx context.Context, path string, content string) error

	// Delete deletes a file at the given path
	Delete(ctx context.Context, path string) error
}

// Entry describes one item in a remote directory
type Entry struct {
	Name    string
	Path    string
	Type    string // file, dir, symlink or submodule
	SHA     string
	Size    int
	HTMLURL string
}

// File is a remote file with its decoded content
type File struct {
	Entry
	Content string
}
