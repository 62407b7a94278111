// Package issue creates, edits, comments on, closes, searches and lists GitHub issues.
package issue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/go-github/v72/github"
	"go.uber.org/zap"

	githubpkg "github.com/cchalm/ghops/internal/github"
	"github.com/cchalm/ghops/internal/templates"
	"github.com/cchalm/ghops/internal/ui"
)

var (
	ErrEmptyTitle         = errors.New("issue title must not be empty")
	ErrEmptyComment       = errors.New("comment body must not be empty")
	ErrInvalidStateReason = errors.New("invalid state reason")
)

const (
	ReasonCompleted  = "completed"
	ReasonNotPlanned = "not_planned"
	ReasonReopened   = "reopened"
)

const perPage = 100

// TemplateLoader supplies default bodies
type TemplateLoader interface {
	Load(kind templates.Kind, name string) (string, error)
}

// Service performs issue operations against one GitHub client
type Service struct {
	client    *githubpkg.Client
	templates TemplateLoader
	reporter  *ui.Reporter
	logger    *zap.Logger
}

func NewService(client *githubpkg.Client, templates TemplateLoader, reporter *ui.Reporter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:    client,
		templates: templates,
		reporter:  reporter,
		logger:    logger,
	}
}

// CreateOptions describes a new issue
type CreateOptions struct {
	Title string
	// Body is used verbatim when not nil, even if empty
	Body *string
	// Template names the body template used when Body is nil. Empty means no template
	Template  string
	Labels    []string
	Assignees []string
	// Milestone is a milestone number; 0 means none
	Milestone int
}

// Create opens a new issue. Repeated calls create duplicate issues
func (s *Service) Create(ctx context.Context, repo githubpkg.RepoName, opts CreateOptions) (*github.Issue, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return nil, ErrEmptyTitle
	}

	body := ""
	if opts.Body != nil {
		body = *opts.Body
	} else if opts.Template != "" && s.templates != nil {
		var err error
		body, err = s.templates.Load(templates.Issue, opts.Template)
		if err != nil {
			return nil, err
		}
	}

	labels := nonNil(opts.Labels)
	assignees := nonNil(opts.Assignees)
	req := &github.IssueRequest{
		Title:     github.Ptr(opts.Title),
		Body:      github.Ptr(body),
		Labels:    &labels,
		Assignees: &assignees,
	}

	if opts.Milestone != 0 {
		milestone, err := s.resolveMilestone(ctx, repo, opts.Milestone)
		if err != nil {
			return nil, err
		}
		req.Milestone = milestone.Number
	}

	issue, _, err := s.client.Issues.Create(ctx, repo.Owner, repo.Name, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create issue in %s: %w", repo, err)
	}
	s.logger.Debug("created issue", zap.Stringer("repo", repo), zap.Int("number", issue.GetNumber()))

	s.reporter.Success("Created issue #%d: %s", issue.GetNumber(), s.reporter.Fit(opts.Title))
	s.reporter.Detail("URL: %s", issue.GetHTMLURL())
	if len(opts.Labels) > 0 {
		s.reporter.Success("Added labels: %s", ui.Join(opts.Labels))
	}
	if len(opts.Assignees) > 0 {
		s.reporter.Success("Assigned to: %s", ui.Join(opts.Assignees))
	}

	return issue, nil
}

func (s *Service) resolveMilestone(ctx context.Context, repo githubpkg.RepoName, number int) (*github.Milestone, error) {
	milestone, _, err := s.client.Issues.GetMilestone(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get milestone %d: %w", number, err)
	}
	return milestone, nil
}

// UpdateOptions lists the fields to change. Empty strings and a zero milestone leave the remote value untouched.
// Labels and Assignees replace the existing values when not nil; an empty non-nil slice clears them
type UpdateOptions struct {
	Title       string
	Body        string
	State       string
	StateReason string
	Labels      []string
	Assignees   []string
	Milestone   int
}

// Update edits an issue. When no field is set, nothing is edited and the current issue is returned
func (s *Service) Update(ctx context.Context, repo githubpkg.RepoName, number int, opts UpdateOptions) (*github.Issue, error) {
	if opts.StateReason != "" && !slices.Contains([]string{ReasonCompleted, ReasonNotPlanned, ReasonReopened}, opts.StateReason) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStateReason, opts.StateReason)
	}

	req := &github.IssueRequest{}
	changed := false
	if opts.Title != "" {
		req.Title = github.Ptr(opts.Title)
		changed = true
	}
	if opts.Body != "" {
		req.Body = github.Ptr(opts.Body)
		changed = true
	}
	if opts.State != "" {
		req.State = github.Ptr(opts.State)
		changed = true
	}
	if opts.StateReason != "" {
		req.StateReason = github.Ptr(opts.StateReason)
		changed = true
	}
	if opts.Labels != nil {
		labels := opts.Labels
		req.Labels = &labels
		changed = true
	}
	if opts.Assignees != nil {
		assignees := opts.Assignees
		req.Assignees = &assignees
		changed = true
	}
	if opts.Milestone != 0 {
		milestone, err := s.resolveMilestone(ctx, repo, opts.Milestone)
		if err != nil {
			return nil, err
		}
		req.Milestone = milestone.Number
		changed = true
	}

	if !changed {
		issue, _, err := s.client.Issues.Get(ctx, repo.Owner, repo.Name, number)
		if err != nil {
			return nil, fmt.Errorf("failed to get issue #%d: %w", number, err)
		}
		return issue, nil
	}

	issue, _, err := s.client.Issues.Edit(ctx, repo.Owner, repo.Name, number, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update issue #%d: %w", number, err)
	}
	s.reporter.Success("Updated issue #%d", number)
	return issue, nil
}

// Comment posts a comment on an issue
func (s *Service) Comment(ctx context.Context, repo githubpkg.RepoName, number int, body string) (*github.IssueComment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyComment
	}
	comment, _, err := s.client.Issues.CreateComment(ctx, repo.Owner, repo.Name, number, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to comment on issue #%d: %w", number, err)
	}
	s.reporter.Success("Added comment to issue #%d", number)
	return comment, nil
}

// Close closes an issue with the given reason, completed when empty. A non-empty comment is posted first
func (s *Service) Close(ctx context.Context, repo githubpkg.RepoName, number int, reason string, comment string) (*github.Issue, error) {
	if reason == "" {
		reason = ReasonCompleted
	}
	if reason != ReasonCompleted && reason != ReasonNotPlanned {
		return nil, fmt.Errorf("%w: %s, must be %s or %s", ErrInvalidStateReason, reason, ReasonCompleted, ReasonNotPlanned)
	}

	if comment != "" {
		_, _, err := s.client.Issues.CreateComment(ctx, repo.Owner, repo.Name, number, &github.IssueComment{
			Body: github.Ptr(comment),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to comment on issue #%d: %w", number, err)
		}
	}

	issue, _, err := s.client.Issues.Edit(ctx, repo.Owner, repo.Name, number, &github.IssueRequest{
		State:       github.Ptr("closed"),
		StateReason: github.Ptr(reason),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to close issue #%d: %w", number, err)
	}
	s.reporter.Success("Closed issue #%d (%s)", number, reason)
	return issue, nil
}

// SearchOptions narrows an issue search
type SearchOptions struct {
	// Repo limits the search to one repository when set
	Repo  *githubpkg.RepoName
	Sort  string // comments, created or updated; created when empty
	Order string // asc or desc; desc when empty
}

// Search runs a GitHub issue search and returns every page of results
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) ([]*github.Issue, error) {
	fullQuery := query
	if opts.Repo != nil {
		fullQuery = fmt.Sprintf("%s repo:%s", query, opts.Repo)
	}
	sort := opts.Sort
	if sort == "" {
		sort = "created"
	}
	order := opts.Order
	if order == "" {
		order = "desc"
	}

	searchOpts := &github.SearchOptions{
		Sort:        sort,
		Order:       order,
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	var all []*github.Issue
	total := 0
	for {
		result, resp, err := s.client.Search.Issues(ctx, fullQuery, searchOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to search issues: %w", err)
		}
		if total == 0 {
			total = result.GetTotal()
		}
		all = append(all, result.Issues...)
		if resp == nil || resp.NextPage == 0 {
			break
		}
		searchOpts.Page = resp.NextPage
	}

	s.reporter.Info("Found %d issues matching: %s", total, fullQuery)
	return all, nil
}

// ListOptions filters a repository's issues
type ListOptions struct {
	State    string // open, closed or all; open when empty
	Labels   []string
	Assignee string
	Since    time.Time
}

// List returns every issue in the repository matching the filters
func (s *Service) List(ctx context.Context, repo githubpkg.RepoName, opts ListOptions) ([]*github.Issue, error) {
	state := opts.State
	if state == "" {
		state = "open"
	}
	listOpts := &github.IssueListByRepoOptions{
		State:       state,
		Labels:      opts.Labels,
		Assignee:    opts.Assignee,
		Since:       opts.Since,
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var all []*github.Issue
	for {
		issues, resp, err := s.client.Issues.ListByRepo(ctx, repo.Owner, repo.Name, listOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to list issues in %s: %w", repo, err)
		}
		all = append(all, issues...)
		if resp == nil || resp.NextPage == 0 {
			break
		}
		listOpts.ListOptions.Page = resp.NextPage
	}

	s.reporter.Info("Found %d issues in %s (%s)", len(all), repo, state)
	return all, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
