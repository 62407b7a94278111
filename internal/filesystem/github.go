package filesystem

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v72/github"

	githubpkg "github.com/cchalm/ghops/internal/github"
)

// GithubFileSystem provides a read-only view into the contents of a particular ref of a GitHub repository. An empty
// ref means the repository's default branch
type GithubFileSystem struct {
	repos githubpkg.RepositoriesService
	owner string
	repo  string
	ref   string
}

func NewGithubFileSystem(repos githubpkg.RepositoriesService, repo githubpkg.RepoName, ref string) GithubFileSystem {
	return GithubFileSystem{
		repos: repos,
		owner: repo.Owner,
		repo:  repo.Name,
		ref:   ref,
	}
}

// Lookup returns the file at path, or the directory listing when path is a directory. Exactly one of the two
// results is non-nil on success
func (gfs GithubFileSystem) Lookup(ctx context.Context, path string) (*File, []Entry, error) {
	fileContent, dirContents, _, err := gfs.repos.GetContents(ctx, gfs.owner, gfs.repo, path, &github.RepositoryContentGetOptions{
		Ref: gfs.ref,
	})
	if err != nil {
		if githubpkg.IsNotFound(err) {
			return nil, nil, fmt.Errorf("%s: %w", path, ErrFileNotFound)
		}
		return nil, nil, fmt.Errorf("failed to get contents of '%s': %w", path, err)
	}

	if fileContent != nil {
		content, err := fileContent.GetContent()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decode file content: %w", err)
		}
		return &File{Entry: toEntry(fileContent), Content: content}, nil, nil
	}

	entries := make([]Entry, 0, len(dirContents))
	for _, c := range dirContents {
		entries = append(entries, toEntry(c))
	}
	return nil, entries, nil
}

func toEntry(c *github.RepositoryContent) Entry {
	return Entry{
		Name:    c.GetName(),
		Path:    c.GetPath(),
		Type:    c.GetType(),
		SHA:     c.GetSHA(),
		Size:    c.GetSize(),
		HTMLURL: c.GetHTMLURL(),
	}
}

// Stat returns metadata for the file at path, including its blob SHA
func (gfs GithubFileSystem) Stat(ctx context.Context, path string) (Entry, error) {
	file, _, err := gfs.Lookup(ctx, path)
	if err != nil {
		return Entry{}, err
	}
	if file == nil {
		return Entry{}, fmt.Errorf("%s: %w", path, ErrIsDir)
	}
	return file.Entry, nil
}

// Read reads the content of a file at the given path
func (gfs GithubFileSystem) Read(ctx context.Context, path string) (string, error) {
	file, _, err := gfs.Lookup(ctx, path)
	if err != nil {
		return "", err
	}
	if file == nil {
		return "", fmt.Errorf("%s: %w", path, ErrIsDir)
	}
	return file.Content, nil
}

// IsDir returns true if the given path is a directory, false otherwise
func (gfs GithubFileSystem) IsDir(ctx context.Context, dir string) (bool, error) {
	file, _, err := gfs.Lookup(ctx, dir)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if path '%s' is a directory: %w", dir, err)
	}
	return file == nil, nil
}
