package git

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v72/github"
	"go.uber.org/zap"

	githubpkg "github.com/cchalm/ghops/internal/github"
)

// githubGitRepo implements a handful of porcelain git commands using the GitHub API. It manipulates a remote git
// repository directly; e.g. commits appear on the remote without a push
type githubGitRepo struct {
	git          githubpkg.GitService          // For low-level git operations
	reposService githubpkg.RepositoriesService // For repository metadata

	owner  string
	repo   string
	logger *zap.Logger
}

// NewGithubGitRepo creates a new GitHub-backed Git repository
func NewGithubGitRepo(client *githubpkg.Client, repo githubpkg.RepoName, logger *zap.Logger) GitRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &githubGitRepo{
		git:          client.Git,
		reposService: client.Repositories,
		owner:        repo.Owner,
		repo:         repo.Name,
		logger:       logger,
	}
}

func branchRef(branch string) string {
	return fmt.Sprintf("refs/heads/%s", branch)
}

func (ggr *githubGitRepo) Head(ctx context.Context, branch string) (string, error) {
	ref, _, err := ggr.git.GetRef(ctx, ggr.owner, ggr.repo, branchRef(branch))
	if err != nil {
		return "", fmt.Errorf("failed to get reference for branch '%s': %w", branch, err)
	}
	return ref.GetObject().GetSHA(), nil
}

func (ggr *githubGitRepo) DefaultBranch(ctx context.Context) (string, error) {
	repository, _, err := ggr.reposService.Get(ctx, ggr.owner, ggr.repo)
	if err != nil {
		return "", fmt.Errorf("failed to get repository %s/%s: %w", ggr.owner, ggr.repo, err)
	}
	return repository.GetDefaultBranch(), nil
}

// CreateBranch creates a new branch pointing at the current head of baseBranch
func (ggr *githubGitRepo) CreateBranch(ctx context.Context, baseBranch string, newBranch string, expectedSHA string) (*github.Reference, error) {
	// Get the base branch reference
	baseSHA, err := ggr.Head(ctx, baseBranch)
	if err != nil {
		return nil, err
	}
	if expectedSHA != "" && expectedSHA != baseSHA {
		return nil, fmt.Errorf("%w: branch '%s' is at %s, expected %s", ErrStaleRef, baseBranch, baseSHA, expectedSHA)
	}

	// Create the new branch
	newRef := &github.Reference{
		Ref: github.Ptr(branchRef(newBranch)),
		Object: &github.GitObject{
			SHA: github.Ptr(baseSHA),
		},
	}

	created, _, err := ggr.git.CreateRef(ctx, ggr.owner, ggr.repo, newRef)
	if err != nil {
		return nil, fmt.Errorf("failed to create branch: %w", err)
	}
	ggr.logger.Debug("created branch",
		zap.String("branch", newBranch),
		zap.String("from", baseBranch),
		zap.String("sha", baseSHA),
	)

	return created, nil
}

// CommitChanges commits the given changelist to the specified branch
func (ggr *githubGitRepo) CommitChanges(ctx context.Context, branch string, changelist Changelist, commitMessage string, expectedSHA string) (*github.Commit, error) {
	if changelist.IsEmpty() {
		return nil, ErrEmptyChangelist
	}

	// Get the current branch reference
	headSHA, err := ggr.Head(ctx, branch)
	if err != nil {
		return nil, err
	}
	if expectedSHA != "" && expectedSHA != headSHA {
		return nil, fmt.Errorf("%w: branch '%s' is at %s, expected %s", ErrStaleRef, branch, headSHA, expectedSHA)
	}

	// Get the commit object that the branch currently points to
	currentCommit, _, err := ggr.git.GetCommit(ctx, ggr.owner, ggr.repo, headSHA)
	if err != nil {
		return nil, fmt.Errorf("failed to get current commit: %w", err)
	}

	// Get the tree that the current commit points to
	baseTree, _, err := ggr.git.GetTree(ctx, ggr.owner, ggr.repo, currentCommit.GetTree().GetSHA(), false)
	if err != nil {
		return nil, fmt.Errorf("failed to get base tree: %w", err)
	}

	// Create tree entries for all modified files. Content is sent inline, the API creates the blobs
	var entries []*github.TreeEntry
	err = changelist.ForEachModified(func(path string, content string) error {
		entries = append(entries, &github.TreeEntry{
			Path:    github.Ptr(path),
			Mode:    github.Ptr("100644"), // Regular file mode
			Type:    github.Ptr("blob"),
			Content: github.Ptr(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Add entries for deleted files (with nil SHA to indicate deletion)
	err = changelist.ForEachDeleted(func(path string) error {
		entries = append(entries, &github.TreeEntry{
			Path: github.Ptr(path),
			Mode: github.Ptr("100644"),
			Type: github.Ptr("blob"),
			SHA:  nil, // nil SHA indicates deletion
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Create a new tree with our changes
	newTree, _, err := ggr.git.CreateTree(ctx, ggr.owner, ggr.repo, baseTree.GetSHA(), entries)
	if err != nil {
		return nil, fmt.Errorf("failed to create tree: %w", err)
	}

	// Create a new commit
	newCommit, _, err := ggr.git.CreateCommit(ctx, ggr.owner, ggr.repo, &github.Commit{
		Message: github.Ptr(commitMessage),
		Tree:    &github.Tree{SHA: newTree.SHA},
		Parents: []*github.Commit{{SHA: github.Ptr(headSHA)}},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create commit: %w", err)
	}

	// Update the branch reference to point to the new commit. Never forced, so a branch that moved since we read
	// it is rejected by the remote instead of being overwritten
	_, _, err = ggr.git.UpdateRef(ctx, ggr.owner, ggr.repo, &github.Reference{
		Ref: github.Ptr(branchRef(branch)),
		Object: &github.GitObject{
			SHA: newCommit.SHA,
		},
	}, false)
	if err != nil {
		switch githubpkg.StatusCode(err) {
		case http.StatusUnprocessableEntity, http.StatusConflict:
			return nil, fmt.Errorf("%w: branch '%s' moved from %s during commit: %w", ErrStaleRef, branch, headSHA, err)
		}
		return nil, fmt.Errorf("failed to update branch reference: %w", err)
	}
	ggr.logger.Debug("committed changes",
		zap.String("branch", branch),
		zap.String("parent", headSHA),
		zap.String("commit", newCommit.GetSHA()),
		zap.Int("entries", len(entries)),
	)

	return newCommit, nil
}

// DeleteBranch removes refs/heads/<branch>
func (ggr *githubGitRepo) DeleteBranch(ctx context.Context, branch string) error {
	_, err := ggr.git.DeleteRef(ctx, ggr.owner, ggr.repo, fmt.Sprintf("heads/%s", branch))
	if err != nil {
		return fmt.Errorf("failed to delete branch '%s': %w", branch, err)
	}
	return nil
}

// ShortSHA abbreviates a commit or blob SHA for display
func ShortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
