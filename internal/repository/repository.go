// Package repository creates repositories and branches, pushes multi-file commits, and reads remote contents,
// branches and trees.
package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v72/github"
	"go.uber.org/zap"

	"github.com/cchalm/ghops/internal/filesystem"
	"github.com/cchalm/ghops/internal/git"
	githubpkg "github.com/cchalm/ghops/internal/github"
	"github.com/cchalm/ghops/internal/ui"
)

const perPage = 100

// File is one file to write in a push
type File struct {
	Path    string
	Content string
}

// Service performs repository operations against one GitHub client
type Service struct {
	client   *githubpkg.Client
	reporter *ui.Reporter
	logger   *zap.Logger
}

func NewService(client *githubpkg.Client, reporter *ui.Reporter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:   client,
		reporter: reporter,
		logger:   logger,
	}
}

func (s *Service) gitRepo(repo githubpkg.RepoName) git.GitRepo {
	return git.NewGithubGitRepo(s.client, repo, s.logger)
}

// resolveBranch returns branch, or the repository's default branch when branch is empty
func (s *Service) resolveBranch(ctx context.Context, repo githubpkg.RepoName, branch string) (string, error) {
	if branch != "" {
		return branch, nil
	}
	return s.gitRepo(repo).DefaultBranch(ctx)
}

// CreateOptions describes a new repository
type CreateOptions struct {
	Name              string
	Description       string
	Private           bool
	AutoInit          bool
	GitignoreTemplate string // e.g. Go, Python
	LicenseTemplate   string // e.g. mit, apache-2.0
	// Organization owns the repository when set; otherwise the authenticated user does
	Organization string
}

// CreateRepository creates a repository. A remote failure is printed and then returned
func (s *Service) CreateRepository(ctx context.Context, opts CreateOptions) (*github.Repository, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return nil, errors.New("repository name must not be empty")
	}
	req := &github.Repository{
		Name:        github.Ptr(opts.Name),
		Description: github.Ptr(opts.Description),
		Private:     github.Ptr(opts.Private),
		AutoInit:    github.Ptr(opts.AutoInit),
	}
	if opts.GitignoreTemplate != "" {
		req.GitignoreTemplate = github.Ptr(opts.GitignoreTemplate)
	}
	if opts.LicenseTemplate != "" {
		req.LicenseTemplate = github.Ptr(opts.LicenseTemplate)
	}

	created, _, err := s.client.Repositories.Create(ctx, opts.Organization, req)
	if err != nil {
		s.reporter.Failure("Error creating repository: %s", githubpkg.ErrorMessage(err))
		return nil, fmt.Errorf("failed to create repository '%s': %w", opts.Name, err)
	}
	s.logger.Debug("created repository", zap.String("repo", created.GetFullName()))
	s.reporter.Success("Created repository: %s", created.GetFullName())
	s.reporter.Detail("URL: %s", created.GetHTMLURL())
	return created, nil
}

// CreateBranch creates branch name at the head of from, or of the default branch when from is empty. When
// expectedSHA is set and the source head differs, git.ErrStaleRef is returned before anything is written
func (s *Service) CreateBranch(ctx context.Context, repo githubpkg.RepoName, name string, from string, expectedSHA string) (*github.Reference, error) {
	if name == "" {
		return nil, errors.New("branch name must not be empty")
	}
	source, err := s.resolveBranch(ctx, repo, from)
	if err != nil {
		return nil, err
	}
	ref, err := s.gitRepo(repo).CreateBranch(ctx, source, name, expectedSHA)
	if err != nil {
		return nil, err
	}
	s.reporter.Success("Created branch '%s' from '%s'", name, source)
	return ref, nil
}

// PushOptions controls a multi-file push
type PushOptions struct {
	// Branch defaults to the repository's default branch
	Branch string
	// ExpectedSHA, when set, must equal the branch head before anything is written
	ExpectedSHA string
	// Delete lists paths to remove in the same commit
	Delete []string
}

// PushFiles writes all files, and removes opts.Delete, in a single commit on top of the branch head. The branch is
// only moved forward: if it changed since it was read, git.ErrStaleRef is returned and nothing is overwritten.
// A path given more than once takes its last content
func (s *Service) PushFiles(ctx context.Context, repo githubpkg.RepoName, files []File, message string, opts PushOptions) (*github.Commit, error) {
	if len(files) == 0 && len(opts.Delete) == 0 {
		return nil, git.ErrEmptyChangelist
	}
	branch, err := s.resolveBranch(ctx, repo, opts.Branch)
	if err != nil {
		return nil, err
	}

	fs := filesystem.NewMemDiffFileSystem(filesystem.NewGithubFileSystem(s.client.Repositories, repo, branch))
	for _, f := range files {
		if f.Path == "" {
			return nil, errors.New("file path must not be empty")
		}
		if err := fs.Write(ctx, f.Path, f.Content); err != nil {
			return nil, err
		}
	}
	for _, path := range opts.Delete {
		if err := fs.Delete(ctx, path); err != nil {
			return nil, err
		}
	}

	changelist := fs.GetChangelist()
	commit, err := s.gitRepo(repo).CommitChanges(ctx, branch, changelist, message, opts.ExpectedSHA)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("pushed files", zap.Stringer("repo", repo), zap.String("branch", branch), zap.Strings("paths", changelist.Paths()))
	if len(files) > 0 {
		s.reporter.Success("Pushed %d files to %s", len(files), branch)
	}
	if len(opts.Delete) > 0 {
		s.reporter.Success("Deleted %d files from %s", len(opts.Delete), branch)
	}
	s.reporter.Detail("Commit: %s - %s", git.ShortSHA(commit.GetSHA()), s.reporter.Fit(message))
	return commit, nil
}

// DeleteFile removes one file in its own commit. Without expectedSHA the current blob SHA is read first; either
// way the remote rejects the delete if the file changed, which surfaces as git.ErrStaleRef
func (s *Service) DeleteFile(ctx context.Context, repo githubpkg.RepoName, path string, message string, branch string, expectedSHA string) (*github.RepositoryContentResponse, error) {
	branch, err := s.resolveBranch(ctx, repo, branch)
	if err != nil {
		return nil, err
	}

	sha := expectedSHA
	if sha == "" {
		entry, err := filesystem.NewGithubFileSystem(s.client.Repositories, repo, branch).Stat(ctx, path)
		if err != nil {
			return nil, err
		}
		sha = entry.SHA
	}

	result, _, err := s.client.Repositories.DeleteFile(ctx, repo.Owner, repo.Name, path, &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		SHA:     github.Ptr(sha),
		Branch:  github.Ptr(branch),
	})
	if err != nil {
		if githubpkg.StatusCode(err) == http.StatusConflict {
			return nil, fmt.Errorf("%w: '%s' on '%s' no longer matches %s: %w", git.ErrStaleRef, path, branch, sha, err)
		}
		return nil, fmt.Errorf("failed to delete '%s': %w", path, err)
	}
	s.reporter.Success("Deleted %s from %s", path, branch)
	return result, nil
}

// Contents is either a decoded file or a directory listing
type Contents struct {
	Path    string
	IsDir   bool
	Content string
	Entries []filesystem.Entry
}

// GetFileContents reads path at ref, or at the default branch when ref is empty
func (s *Service) GetFileContents(ctx context.Context, repo githubpkg.RepoName, path string, ref string) (Contents, error) {
	file, entries, err := filesystem.NewGithubFileSystem(s.client.Repositories, repo, ref).Lookup(ctx, path)
	if err != nil {
		return Contents{}, err
	}
	if file != nil {
		s.reporter.Success("Retrieved %s", path)
		return Contents{Path: file.Path, Content: file.Content}, nil
	}
	s.reporter.Success("Retrieved directory %s (%d items)", path, len(entries))
	return Contents{Path: path, IsDir: true, Entries: entries}, nil
}

// SearchCode runs a GitHub code search, limited to repo when it is not nil, and returns every page of results
func (s *Service) SearchCode(ctx context.Context, query string, repo *githubpkg.RepoName) ([]*github.CodeResult, error) {
	fullQuery := query
	if repo != nil {
		fullQuery = fmt.Sprintf("%s repo:%s", query, repo)
	}

	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	var all []*github.CodeResult
	total := 0
	for {
		result, resp, err := s.client.Search.Code(ctx, fullQuery, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to search code: %w", err)
		}
		if total == 0 {
			total = result.GetTotal()
		}
		all = append(all, result.CodeResults...)
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	s.reporter.Info("Found %d code results for: %s", total, fullQuery)
	return all, nil
}

// Fork forks repo into organization, or into the authenticated user's account when organization is empty. GitHub
// creates forks asynchronously; an accepted fork is returned as a success
func (s *Service) Fork(ctx context.Context, repo githubpkg.RepoName, organization string) (*github.Repository, error) {
	fork, _, err := s.client.Repositories.CreateFork(ctx, repo.Owner, repo.Name, &github.RepositoryCreateForkOptions{
		Organization: organization,
	})
	if err != nil {
		var accepted *github.AcceptedError
		if !errors.As(err, &accepted) {
			return nil, fmt.Errorf("failed to fork %s: %w", repo, err)
		}
		s.logger.Debug("fork scheduled", zap.Stringer("repo", repo))
	}
	s.reporter.Success("Forked %s to %s", repo, fork.GetFullName())
	s.reporter.Detail("URL: %s", fork.GetHTMLURL())
	return fork, nil
}

// Branch is a branch head
type Branch struct {
	Name    string
	SHA     string
	Default bool
}

// ListBranches returns every branch, marking the default one
func (s *Service) ListBranches(ctx context.Context, repo githubpkg.RepoName) ([]Branch, error) {
	defaultBranch, err := s.gitRepo(repo).DefaultBranch(ctx)
	if err != nil {
		return nil, err
	}

	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	var branches []Branch
	for {
		page, resp, err := s.client.Repositories.ListBranches(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list branches of %s: %w", repo, err)
		}
		for _, b := range page {
			branches = append(branches, Branch{
				Name:    b.GetName(),
				SHA:     b.GetCommit().GetSHA(),
				Default: b.GetName() == defaultBranch,
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	s.reporter.Info("Found %d branches in %s", len(branches), repo)
	for _, b := range branches {
		marker := ""
		if b.Default {
			marker = " (default)"
		}
		s.reporter.Detail("- %s%s", b.Name, marker)
	}
	return branches, nil
}

// TreeOptions selects the tree to read
type TreeOptions struct {
	// SHA is a tree SHA, commit SHA or branch name; the default branch when empty
	SHA       string
	Recursive bool
	// PathPrefix keeps only entries whose path starts with it
	PathPrefix string
}

// GetTree reads a tree
func (s *Service) GetTree(ctx context.Context, repo githubpkg.RepoName, opts TreeOptions) ([]*github.TreeEntry, error) {
	sha, err := s.resolveBranch(ctx, repo, opts.SHA)
	if err != nil {
		return nil, err
	}
	tree, _, err := s.client.Git.GetTree(ctx, repo.Owner, repo.Name, sha, opts.Recursive)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree '%s': %w", sha, err)
	}
	if tree.GetTruncated() {
		s.logger.Warn("tree listing truncated by GitHub", zap.Stringer("repo", repo), zap.String("sha", sha))
	}

	entries := tree.Entries
	if opts.PathPrefix != "" {
		entries = nil
		for _, e := range tree.Entries {
			if strings.HasPrefix(e.GetPath(), opts.PathPrefix) {
				entries = append(entries, e)
			}
		}
	}
	s.reporter.Info("Retrieved tree with %d items", len(entries))
	return entries, nil
}
