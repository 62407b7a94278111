// Package git implements branch and commit plumbing on top of the GitHub git data API.
package git

import (
	"context"
	"errors"

	"github.com/google/go-github/v72/github"
)

var (
	// ErrStaleRef means a ref no longer points where the caller expected, either because an expected SHA did
	// not match or because the remote rejected a non fast-forward update
	ErrStaleRef = errors.New("ref has moved")
	// ErrEmptyChangelist is returned when committing a changelist with nothing in it
	ErrEmptyChangelist = errors.New("changelist is empty")
)

// Changelist represents a set of changes to be committed. Iteration order is the order in which paths were first
// changed
type Changelist interface {
	ForEachModified(fn func(path string, content string) error) error
	ForEachDeleted(fn func(path string) error) error
	IsModified(path string) bool
	IsDeleted(path string) bool
	IsEmpty() bool
}

// GitRepo provides porcelain git commands against a single remote repository
type GitRepo interface {
	// Head returns the commit SHA the branch points at
	Head(ctx context.Context, branch string) (string, error)
	// DefaultBranch returns the name of the repository's default branch
	DefaultBranch(ctx context.Context) (string, error)
	// CreateBranch creates newBranch at the head of baseBranch. If expectedSHA is not empty and baseBranch does not
	// point at it, ErrStaleRef is returned and nothing is written
	CreateBranch(ctx context.Context, baseBranch string, newBranch string, expectedSHA string) (*github.Reference, error)
	// CommitChanges commits the changelist to branch as a single commit and moves the branch to it without forcing
	CommitChanges(ctx context.Context, branch string, changelist Changelist, commitMessage string, expectedSHA string) (*github.Commit, error)
	// DeleteBranch deletes the branch ref
	DeleteBranch(ctx context.Context, branch string) error
}
