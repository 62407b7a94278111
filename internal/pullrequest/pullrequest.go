// Package pullrequest creates, edits and merges GitHub pull requests.
package pullrequest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/google/go-github/v72/github"
	"go.uber.org/zap"

	"github.com/cchalm/ghops/internal/git"
	githubpkg "github.com/cchalm/ghops/internal/github"
	"github.com/cchalm/ghops/internal/templates"
	"github.com/cchalm/ghops/internal/ui"
)

var (
	ErrEmptyTitle         = errors.New("pull request title must not be empty")
	ErrMissingHead        = errors.New("head branch is required")
	ErrInvalidMergeMethod = errors.New("invalid merge method")
)

// MergeMethods are the accepted values of MergeOptions.Method
var MergeMethods = []string{"merge", "squash", "rebase"}

// DefaultBase is the base branch used when none is given or configured
const DefaultBase = "main"

// TemplateLoader supplies default bodies
type TemplateLoader interface {
	Load(kind templates.Kind, name string) (string, error)
}

// Service performs pull request operations against one GitHub client
type Service struct {
	client      *githubpkg.Client
	templates   TemplateLoader
	reporter    *ui.Reporter
	logger      *zap.Logger
	defaultBase string
}

func NewService(client *githubpkg.Client, templates TemplateLoader, reporter *ui.Reporter, logger *zap.Logger, defaultBase string) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultBase == "" {
		defaultBase = DefaultBase
	}
	return &Service{
		client:      client,
		templates:   templates,
		reporter:    reporter,
		logger:      logger,
		defaultBase: defaultBase,
	}
}

// CreateOptions describes a new pull request
type CreateOptions struct {
	Title string
	Head  string
	// Base defaults to the service's default base branch
	Base string
	// Body is used verbatim when not nil; otherwise Template names the body template, if any
	Body     *string
	Template string
	Draft    bool
	// MaintainerCanModify defaults to true when nil
	MaintainerCanModify *bool
	Reviewers           []string
	TeamReviewers       []string
	Labels              []string
	Assignees           []string
}

// Create opens a pull request, then requests reviews, adds labels and assigns users in separate calls. If one of
// those follow-up calls fails, the created pull request is returned together with the error
func (s *Service) Create(ctx context.Context, repo githubpkg.RepoName, opts CreateOptions) (*github.PullRequest, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return nil, ErrEmptyTitle
	}
	if opts.Head == "" {
		return nil, ErrMissingHead
	}
	base := opts.Base
	if base == "" {
		base = s.defaultBase
	}

	body := ""
	if opts.Body != nil {
		body = *opts.Body
	} else if opts.Template != "" && s.templates != nil {
		var err error
		body, err = s.templates.Load(templates.PullRequest, opts.Template)
		if err != nil {
			return nil, err
		}
	}

	maintainerCanModify := opts.MaintainerCanModify
	if maintainerCanModify == nil {
		maintainerCanModify = github.Ptr(true)
	}

	pr, _, err := s.client.PullRequests.Create(ctx, repo.Owner, repo.Name, &github.NewPullRequest{
		Title:               github.Ptr(opts.Title),
		Head:                github.Ptr(opts.Head),
		Base:                github.Ptr(base),
		Body:                github.Ptr(body),
		Draft:               github.Ptr(opts.Draft),
		MaintainerCanModify: maintainerCanModify,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", err)
	}
	number := pr.GetNumber()
	s.logger.Debug("created pull request", zap.Stringer("repo", repo), zap.Int("number", number))
	s.reporter.Success("Created PR #%d: %s", number, s.reporter.Fit(opts.Title))
	s.reporter.Detail("URL: %s", pr.GetHTMLURL())

	if len(opts.Reviewers) > 0 || len(opts.TeamReviewers) > 0 {
		if err := s.requestReviewers(ctx, repo, number, opts.Reviewers, opts.TeamReviewers); err != nil {
			return pr, err
		}
	}
	if len(opts.Labels) > 0 {
		if err := s.addLabels(ctx, repo, number, opts.Labels); err != nil {
			return pr, err
		}
	}
	if len(opts.Assignees) > 0 {
		_, _, err := s.client.Issues.AddAssignees(ctx, repo.Owner, repo.Name, number, opts.Assignees)
		if err != nil {
			return pr, fmt.Errorf("pull request #%d created but assigning failed: %w", number, err)
		}
		s.reporter.Success("Assigned to: %s", ui.Join(opts.Assignees))
	}

	return pr, nil
}

func (s *Service) requestReviewers(ctx context.Context, repo githubpkg.RepoName, number int, reviewers []string, teams []string) error {
	_, _, err := s.client.PullRequests.RequestReviewers(ctx, repo.Owner, repo.Name, number, github.ReviewersRequest{
		Reviewers:     nonNil(reviewers),
		TeamReviewers: nonNil(teams),
	})
	if err != nil {
		return fmt.Errorf("requesting reviews on pull request #%d failed: %w", number, err)
	}
	if len(reviewers) > 0 {
		s.reporter.Success("Requested reviews from: %s", ui.Join(reviewers))
	}
	if len(teams) > 0 {
		s.reporter.Success("Requested reviews from teams: %s", ui.Join(teams))
	}
	return nil
}

func (s *Service) addLabels(ctx context.Context, repo githubpkg.RepoName, number int, labels []string) error {
	_, _, err := s.client.Issues.AddLabelsToIssue(ctx, repo.Owner, repo.Name, number, labels)
	if err != nil {
		return fmt.Errorf("labelling pull request #%d failed: %w", number, err)
	}
	s.reporter.Success("Added labels: %s", ui.Join(labels))
	return nil
}

// UpdateOptions lists the fields to change. Empty strings leave the remote value untouched. Reviewers, team
// reviewers, labels and assignees are added to the existing ones
type UpdateOptions struct {
	Title         string
	Body          string
	State         string
	Base          string
	Reviewers     []string
	TeamReviewers []string
	Labels        []string
	Assignees     []string
}

// Update edits a pull request and adds reviewers, labels and assignees
func (s *Service) Update(ctx context.Context, repo githubpkg.RepoName, number int, opts UpdateOptions) (*github.PullRequest, error) {
	edit := &github.PullRequest{}
	changed := false
	if opts.Title != "" {
		edit.Title = github.Ptr(opts.Title)
		changed = true
	}
	if opts.Body != "" {
		edit.Body = github.Ptr(opts.Body)
		changed = true
	}
	if opts.State != "" {
		edit.State = github.Ptr(opts.State)
		changed = true
	}
	if opts.Base != "" {
		edit.Base = &github.PullRequestBranch{Ref: github.Ptr(opts.Base)}
		changed = true
	}

	var pr *github.PullRequest
	var err error
	if changed {
		pr, _, err = s.client.PullRequests.Edit(ctx, repo.Owner, repo.Name, number, edit)
		if err != nil {
			return nil, fmt.Errorf("failed to update pull request #%d: %w", number, err)
		}
		s.reporter.Success("Updated PR #%d", number)
	}

	if len(opts.Reviewers) > 0 || len(opts.TeamReviewers) > 0 {
		if err := s.requestReviewers(ctx, repo, number, opts.Reviewers, opts.TeamReviewers); err != nil {
			return pr, err
		}
	}
	if len(opts.Labels) > 0 {
		if err := s.addLabels(ctx, repo, number, opts.Labels); err != nil {
			return pr, err
		}
	}
	if len(opts.Assignees) > 0 {
		_, _, err := s.client.Issues.AddAssignees(ctx, repo.Owner, repo.Name, number, opts.Assignees)
		if err != nil {
			return pr, fmt.Errorf("assigning pull request #%d failed: %w", number, err)
		}
		s.reporter.Success("Assigned to: %s", ui.Join(opts.Assignees))
	}

	if pr == nil {
		pr, _, err = s.client.PullRequests.Get(ctx, repo.Owner, repo.Name, number)
		if err != nil {
			return nil, fmt.Errorf("failed to get pull request #%d: %w", number, err)
		}
	}
	return pr, nil
}

// MergeOptions controls how a pull request is merged
type MergeOptions struct {
	Method        string // merge, squash or rebase; squash when empty
	CommitTitle   string
	CommitMessage string
	// DeleteBranch deletes the head branch after a successful merge, when it lives in the same repository
	DeleteBranch bool
}

// MergeResult reports the outcome of a merge. A refused merge is not an error; check Merged
type MergeResult struct {
	Merged        bool
	SHA           string
	Message       string
	BranchDeleted bool
}

// Merge merges a pull request. The head branch is only deleted when the merge succeeded, and a failure to delete it
// is reported as a warning rather than returned
func (s *Service) Merge(ctx context.Context, repo githubpkg.RepoName, number int, opts MergeOptions) (MergeResult, error) {
	method := opts.Method
	if method == "" {
		method = "squash"
	}
	if !slices.Contains(MergeMethods, method) {
		return MergeResult{}, fmt.Errorf("%w '%s', must be one of %s", ErrInvalidMergeMethod, method, strings.Join(MergeMethods, ", "))
	}

	pr, _, err := s.client.PullRequests.Get(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return MergeResult{}, fmt.Errorf("failed to get pull request #%d: %w", number, err)
	}

	merge, _, err := s.client.PullRequests.Merge(ctx, repo.Owner, repo.Name, number, opts.CommitMessage, &github.PullRequestOptions{
		CommitTitle: opts.CommitTitle,
		MergeMethod: method,
	})
	if err != nil {
		switch githubpkg.StatusCode(err) {
		case http.StatusMethodNotAllowed, http.StatusConflict:
			// Not mergeable, or the head moved
			merge = &github.PullRequestMergeResult{Merged: github.Ptr(false), Message: github.Ptr(githubpkg.ErrorMessage(err))}
		default:
			return MergeResult{}, fmt.Errorf("failed to merge pull request #%d: %w", number, err)
		}
	}

	result := MergeResult{
		Merged:  merge.GetMerged(),
		SHA:     merge.GetSHA(),
		Message: merge.GetMessage(),
	}
	if !result.Merged {
		s.reporter.Failure("Failed to merge PR #%d: %s", number, result.Message)
		return result, nil
	}

	s.reporter.Success("Merged PR #%d using %s method", number, method)
	s.reporter.Detail("Commit SHA: %s", result.SHA)

	if opts.DeleteBranch {
		result.BranchDeleted = s.deleteHead(ctx, repo, pr)
	}
	return result, nil
}

func (s *Service) deleteHead(ctx context.Context, repo githubpkg.RepoName, pr *github.PullRequest) bool {
	head := pr.GetHead().GetRef()
	headRepo := pr.GetHead().GetRepo().GetFullName()
	if headRepo != "" && !strings.EqualFold(headRepo, repo.String()) {
		s.reporter.Warn("Could not delete branch: %s lives in %s", head, headRepo)
		return false
	}

	gitRepo := git.NewGithubGitRepo(s.client, repo, s.logger)
	if err := gitRepo.DeleteBranch(ctx, head); err != nil {
		s.logger.Debug("branch deletion after merge failed", zap.String("branch", head), zap.Error(err))
		s.reporter.Warn("Could not delete branch: %s", githubpkg.ErrorMessage(err))
		return false
	}
	s.reporter.Success("Deleted branch: %s", head)
	return true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
