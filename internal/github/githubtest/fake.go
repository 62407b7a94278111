// Package githubtest provides an in-memory fake of the GitHub capabilities used by ghops. The fake records every
// call in order so tests can assert on ordering and on the absence of calls.
package githubtest

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/go-github/v72/github"

	githubpkg "github.com/cchalm/ghops/internal/github"
)

// Call is a single recorded call, e.g. Name "Git.UpdateRef"
type Call struct {
	Name string
	Args []any
}

// Fake holds the state of any number of repositories. Zero values are not usable; call New
type Fake struct {
	Calls []Call

	// Failures maps a call name to the error it should return instead of succeeding
	Failures map[string]error
	// MergeResult, if set, is returned by PullRequests.Merge instead of a successful merge
	MergeResult *github.PullRequestMergeResult
	// ForkAccepted makes CreateFork respond like an asynchronous fork (202 Accepted)
	ForkAccepted bool
	// IssueSearchResults and CodeSearchResults are returned by the Search service
	IssueSearchResults []*github.Issue
	CodeSearchResults  []*github.CodeResult
	// Now stamps created and edited issues
	Now func() time.Time

	repos      map[string]*github.Repository
	issues     map[string]*github.Issue
	comments   map[string][]*github.IssueComment
	pulls      map[string]*github.PullRequest
	milestones map[string]*github.Milestone
	refs       map[string]string // "owner/repo refs/heads/x" -> commit SHA
	commits    map[string]*github.Commit
	trees      map[string]map[string]string // tree SHA -> path -> content
	blobs      map[string]string            // blob SHA -> content
	nextNumber map[string]int
	nextSHA    int
}

// New returns an empty fake
func New() *Fake {
	return &Fake{
		Failures:   map[string]error{},
		repos:      map[string]*github.Repository{},
		issues:     map[string]*github.Issue{},
		comments:   map[string][]*github.IssueComment{},
		pulls:      map[string]*github.PullRequest{},
		milestones: map[string]*github.Milestone{},
		refs:       map[string]string{},
		commits:    map[string]*github.Commit{},
		trees:      map[string]map[string]string{},
		blobs:      map[string]string{},
		nextNumber: map[string]int{},
		Now:        time.Now,
	}
}

// Client returns a capability handle backed by the fake
func (f *Fake) Client() *githubpkg.Client {
	return &githubpkg.Client{
		Issues:       &fakeIssues{f},
		PullRequests: &fakePullRequests{f},
		Repositories: &fakeRepositories{f},
		Git:          &fakeGit{f},
		Search:       &fakeSearch{f},
	}
}

// AddRepo creates a repository whose default branch holds a single commit with the given files
func (f *Fake) AddRepo(fullName string, defaultBranch string, files map[string]string) *github.Repository {
	owner, name, _ := strings.Cut(fullName, "/")
	repo := &github.Repository{
		Owner:         &github.User{Login: github.Ptr(owner)},
		Name:          github.Ptr(name),
		FullName:      github.Ptr(fullName),
		DefaultBranch: github.Ptr(defaultBranch),
		HTMLURL:       github.Ptr("https://github.com/" + fullName),
	}
	f.repos[fullName] = repo

	tree := map[string]string{}
	for path, content := range files {
		tree[path] = content
		f.blobs[blobSHA(content)] = content
	}
	treeSHA := f.newSHA()
	f.trees[treeSHA] = tree
	commitSHA := f.newSHA()
	f.commits[commitSHA] = &github.Commit{
		SHA:     github.Ptr(commitSHA),
		Message: github.Ptr("initial commit"),
		Tree:    &github.Tree{SHA: github.Ptr(treeSHA)},
	}
	f.refs[refKey(owner, name, "refs/heads/"+defaultBranch)] = commitSHA
	return repo
}

// AddMilestone registers a milestone that issues can reference
func (f *Fake) AddMilestone(fullName string, number int, title string) {
	f.milestones[fmt.Sprintf("%s#%d", fullName, number)] = &github.Milestone{
		Number: github.Ptr(number),
		Title:  github.Ptr(title),
	}
}

// AddPullRequest registers an open pull request from head into base
func (f *Fake) AddPullRequest(fullName string, head string, base string) *github.PullRequest {
	owner, name, _ := strings.Cut(fullName, "/")
	number := f.allocateNumber(fullName)
	pr := &github.PullRequest{
		Number:  github.Ptr(number),
		Title:   github.Ptr(fmt.Sprintf("PR %d", number)),
		State:   github.Ptr("open"),
		HTMLURL: github.Ptr(fmt.Sprintf("https://github.com/%s/pull/%d", fullName, number)),
		Head: &github.PullRequestBranch{
			Ref:  github.Ptr(head),
			Repo: f.repos[fullName],
		},
		Base: &github.PullRequestBranch{Ref: github.Ptr(base)},
	}
	f.pulls[issueKey(owner, name, number)] = pr
	f.issues[issueKey(owner, name, number)] = &github.Issue{Number: github.Ptr(number), Title: pr.Title, State: pr.State}
	return pr
}

// Head returns the commit SHA a branch points at, or "" if the branch does not exist
func (f *Fake) Head(fullName string, branch string) string {
	owner, name, _ := strings.Cut(fullName, "/")
	return f.refs[refKey(owner, name, "refs/heads/"+branch)]
}

// SetHead moves a branch to a new commit containing the given files on top of its current tree, simulating a
// concurrent push by someone else
func (f *Fake) SetHead(fullName string, branch string, files map[string]string) string {
	owner, name, _ := strings.Cut(fullName, "/")
	parentSHA := f.Head(fullName, branch)
	tree := map[string]string{}
	if parent, ok := f.commits[parentSHA]; ok {
		for path, content := range f.trees[parent.GetTree().GetSHA()] {
			tree[path] = content
		}
	}
	for path, content := range files {
		tree[path] = content
		f.blobs[blobSHA(content)] = content
	}
	treeSHA := f.newSHA()
	f.trees[treeSHA] = tree
	commitSHA := f.newSHA()
	f.commits[commitSHA] = &github.Commit{
		SHA:     github.Ptr(commitSHA),
		Tree:    &github.Tree{SHA: github.Ptr(treeSHA)},
		Parents: []*github.Commit{{SHA: github.Ptr(parentSHA)}},
	}
	f.refs[refKey(owner, name, "refs/heads/"+branch)] = commitSHA
	return commitSHA
}

// File returns the content of path at the head of branch
func (f *Fake) File(fullName string, branch string, path string) (string, bool) {
	tree := f.treeAt(f.Head(fullName, branch))
	content, ok := tree[path]
	return content, ok
}

// Issue returns the stored issue
func (f *Fake) Issue(fullName string, number int) *github.Issue {
	owner, name, _ := strings.Cut(fullName, "/")
	return f.issues[issueKey(owner, name, number)]
}

// Comments returns the comments posted on an issue or pull request
func (f *Fake) Comments(fullName string, number int) []*github.IssueComment {
	owner, name, _ := strings.Cut(fullName, "/")
	return f.comments[issueKey(owner, name, number)]
}

// CallNames lists the names of all recorded calls in order
func (f *Fake) CallNames() []string {
	names := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		names = append(names, c.Name)
	}
	return names
}

// Count returns how many times the named call was made
func (f *Fake) Count(name string) int {
	n := 0
	for _, c := range f.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Last returns the most recent call with the given name
func (f *Fake) Last(name string) (Call, bool) {
	for i := len(f.Calls) - 1; i >= 0; i-- {
		if f.Calls[i].Name == name {
			return f.Calls[i], true
		}
	}
	return Call{}, false
}

// BlobSHA is the SHA the fake assigns to file content
func BlobSHA(content string) string {
	return blobSHA(content)
}

func (f *Fake) record(name string, args ...any) error {
	f.Calls = append(f.Calls, Call{Name: name, Args: args})
	return f.Failures[name]
}

func (f *Fake) newSHA() string {
	f.nextSHA++
	return fmt.Sprintf("%040x", f.nextSHA)
}

func (f *Fake) allocateNumber(fullName string) int {
	f.nextNumber[fullName]++
	return f.nextNumber[fullName]
}

func (f *Fake) treeAt(commitSHA string) map[string]string {
	commit, ok := f.commits[commitSHA]
	if !ok {
		return nil
	}
	return f.trees[commit.GetTree().GetSHA()]
}

func (f *Fake) resolveRef(owner, repo, ref string) (string, bool) {
	if ref == "" {
		r, ok := f.repos[owner+"/"+repo]
		if !ok {
			return "", false
		}
		ref = r.GetDefaultBranch()
	}
	if sha, ok := f.refs[refKey(owner, repo, "refs/heads/"+ref)]; ok {
		return sha, true
	}
	if _, ok := f.commits[ref]; ok {
		return ref, true
	}
	return "", false
}

func refKey(owner, repo, ref string) string {
	return owner + "/" + repo + " " + ref
}

func issueKey(owner, repo string, number int) string {
	return fmt.Sprintf("%s/%s#%d", owner, repo, number)
}

func normalizeRef(ref string) string {
	return "refs/" + strings.TrimPrefix(ref, "refs/")
}

func blobSHA(content string) string {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(content); i++ {
		h ^= uint64(content[i])
		h *= 1099511628211
	}
	return fmt.Sprintf("b%039x", h)
}

// ErrorResponse builds an API error with the given status, for use in Failures
func ErrorResponse(status int, message string) error {
	_, err := apiError(http.MethodGet, "/", status, message)
	return err
}

// defaultPerPage is GitHub's page size when per_page is not sent
const defaultPerPage = 30

// paginate returns the requested page of items, setting NextPage the way go-github does from the Link header
func paginate[T any](items []T, opts github.ListOptions) ([]T, *github.Response) {
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	start := min((page-1)*perPage, len(items))
	end := min(start+perPage, len(items))
	resp := ok()
	if end < len(items) {
		resp.NextPage = page + 1
	}
	return items[start:end], resp
}

func ok() *github.Response {
	return &github.Response{Response: &http.Response{StatusCode: http.StatusOK}}
}

func apiError(method string, path string, status int, message string) (*github.Response, error) {
	httpResp := &http.Response{
		StatusCode: status,
		Request:    &http.Request{Method: method, URL: &url.URL{Path: path}},
	}
	return &github.Response{Response: httpResp}, &github.ErrorResponse{Response: httpResp, Message: message}
}

type fakeIssues struct{ f *Fake }

func (fi *fakeIssues) Create(_ context.Context, owner, repo string, req *github.IssueRequest) (*github.Issue, *github.Response, error) {
	f := fi.f
	if err := f.record("Issues.Create", owner, repo, req); err != nil {
		return nil, nil, err
	}
	if _, exists := f.repos[owner+"/"+repo]; !exists {
		resp, err := apiError(http.MethodPost, "/repos/"+owner+"/"+repo+"/issues", http.StatusNotFound, "Not Found")
		return nil, resp, err
	}
	number := f.allocateNumber(owner + "/" + repo)
	issue := &github.Issue{
		Number:  github.Ptr(number),
		Title:   req.Title,
		Body:    req.Body,
		State:   github.Ptr("open"),
		HTMLURL: github.Ptr(fmt.Sprintf("https://github.com/%s/%s/issues/%d", owner, repo, number)),
	}
	applyIssueRequest(f, owner, repo, issue, req)
	issue.CreatedAt = issue.UpdatedAt
	f.issues[issueKey(owner, repo, number)] = issue
	return issue, ok(), nil
}

func (fi *fakeIssues) Get(_ context.Context, owner, repo string, number int) (*github.Issue, *github.Response, error) {
	f := fi.f
	if err := f.record("Issues.Get", owner, repo, number); err != nil {
		return nil, nil, err
	}
	issue, exists := f.issues[issueKey(owner, repo, number)]
	if !exists {
		resp, err := apiError(http.MethodGet, fmt.Sprintf("/repos/%s/%s/issues/%d", owner, repo, number), http.StatusNotFound, "Not Found")
		return nil, resp, err
	}
	return issue, ok(), nil
}

func (fi *fakeIssues) Edit(_ context.Context, owner, repo string, number int, req *github.IssueRequest) (*github.Issue, *github.Response, error) {
	f := fi.f
	if err := f.record("Issues.Edit", owner, repo, number, req); err != nil {
		return nil, nil, err
	}
	issue, exists := f.issues[issueKey(owner, repo, number)]
	if !exists {
		resp, err := apiError(http.MethodPatch, fmt.Sprintf("/repos/%s/%s/issues/%d", owner, repo, number), http.StatusNotFound, "Not Found")
		return nil, resp, err
	}
	if req.Title != nil {
		issue.Title = req.Title
	}
	if req.Body != nil {
		issue.Body = req.Body
	}
	if req.State != nil {
		issue.State = req.State
	}
	if req.StateReason != nil {
		issue.StateReason = req.StateReason
	}
	applyIssueRequest(f, owner, repo, issue, req)
	return issue, ok(), nil
}

func applyIssueRequest(f *Fake, owner, repo string, issue *github.Issue, req *github.IssueRequest) {
	issue.UpdatedAt = &github.Timestamp{Time: f.Now()}
	if req.Labels != nil {
		issue.Labels = nil
		for _, l := range *req.Labels {
			issue.Labels = append(issue.Labels, &github.Label{Name: github.Ptr(l)})
		}
	}
	if req.Assignees != nil {
		issue.Assignees = nil
		for _, a := range *req.Assignees {
			issue.Assignees = append(issue.Assignees, &github.User{Login: github.Ptr(a)})
		}
	}
	if req.Milestone != nil {
		issue.Milestone = f.milestones[issueKey(owner, repo, *req.Milestone)]
	}
}

func (fi *fakeIssues) CreateComment(_ context.Context, owner, repo string, number int, comment *github.IssueComment) (*github.IssueComment, *github.Response, error) {
	f := fi.f
	if err := f.record("Issues.CreateComment", owner, repo, number, comment); err != nil {
		return nil, nil, err
	}
	key := issueKey(owner, repo, number)
	if _, exists := f.issues[key]; !exists {
		resp, err := apiError(http.MethodPost, fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number), http.StatusNotFound, "Not Found")
		return nil, resp, err
	}
	stored := &github.IssueComment{
		ID:   github.Ptr(int64(len(f.comments[key]) + 1)),
		Body: comment.Body,
	}
	f.comments[key] = append(f.comments[key], stored)
	return stored, ok(), nil
}

func (fi *fakeIssues) ListByRepo(_ context.Context, owner, repo string, opts *github.IssueListByRepoOptions) ([]*github.Issue, *github.Response, error) {
	f := fi.f
	if err := f.record("Issues.ListByRepo", owner, repo, opts); err != nil {
		return nil, nil, err
	}
	prefix := owner + "/" + repo + "#"
	var result []*github.Issue
	for key, issue := range f.issues {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if opts != nil && opts.State != "" && opts.State != "all" && issue.GetState() != opts.State {
			continue
		}
		if opts != nil && opts.Assignee != "" && !hasAssignee(issue, opts.Assignee) {
			continue
		}
		if opts != nil && !hasLabels(issue, opts.Labels) {
			continue
		}
		if opts != nil && !opts.Since.IsZero() && issue.GetUpdatedAt().Before(opts.Since) {
			continue
		}
		result = append(result, issue)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GetNumber() < result[j].GetNumber() })
	var list github.ListOptions
	if opts != nil {
		list = opts.ListOptions
	}
	page, resp := paginate(result, list)
	return page, resp, nil
}

func hasAssignee(issue *github.Issue, login string) bool {
	for _, a := range issue.Assignees {
		if a.GetLogin() == login {
			return true
		}
	}
	return false
}

func hasLabels(issue *github.Issue, labels []string) bool {
	for _, want := range labels {
		found := false
		for _, l := range issue.Labels {
			if l.GetName() == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (fi *fakeIssues) GetMilestone(_ context.Context, owner, repo string, number int) (*github.Milestone, *github.Response, error) {
	f := fi.f
	if err := f.record("Issues.GetMilestone", owner, repo, number); err != nil {
		return nil, nil, err
	}
	m, exists := f.milestones[issueKey(owner, repo, number)]
	if !exists {
		resp, err := apiError(http.MethodGet, fmt.Sprintf("/repos/%s/%s/milestones/%d", owner, repo, number), http.StatusNotFound, "Not Found")
		return nil, resp, err
	}
	return m, ok(), nil
}

func (fi *fakeIssues) AddLabelsToIssue(_ context.Context, owner, repo string, number int, labels []string) ([]*github.Label, *github.Response, error) {
	f := fi.f
	if err := f.record("Issues.AddLabelsToIssue", owner, repo, number, labels); err != nil {
		return nil, nil, err
	}
	issue, exists := f.issues[issueKey(owner, repo, number)]
	if !exists {
		resp, err := apiError(http.MethodPost, fmt.Sprintf("/repos/%s/%s/issues/%d/labels", owner, repo, number), http.StatusNotFound, "Not Found")
		return nil, resp, err
	}
	for _, l := range labels {
		if !hasLabels(issue, []string{l}) {
			issue.Labels = append(issue.Labels, &github.Label{Name: github.Ptr(l)})
		}
	}
	return issue.Labels, ok(), nil
}

func (fi *fakeIssues) AddAssignees(_ context.Context, owner, repo string, number int, assignees []string) (*github.Issue, *github.Response, error) {
	f := fi.f
	if err := f.record("Issues.AddAssignees", owner, repo, number, assignees); err != nil {
		return nil, nil, err
	}
	issue, exists := f.issues[issueKey(owner, repo, number)]
	if !exists {
		resp, err := apiError(http.MethodPost, fmt.Sprintf("/repos/%s/%s/issues/%d/assignees", owner, repo, number), http.StatusNotFound, "Not Found")
		return nil, resp, err
	}
	for _, a := range assignees {
		if !hasAssignee(issue, a) {
			issue.Assignees = append(issue.Assignees, &github.User{Login: github.Ptr(a)})
		}
	}
	return issue, ok(), nil
}

type fakePullRequests struct{ f *Fake }

func (fp *fakePullRequests) Create(_ context.Context, owner, repo string, pull *github.NewPullRequest) (*github.PullRequest, *github.Response, error) {
	f := fp.f
	if err := f.record("PullRequests.Create", owner, repo, pull); err != nil {
		return nil, nil, err
	}
	if f.Head(owner+"/"+repo, pull.GetHead()) == "" {
		resp, err := apiError(http.MethodPost, "/repos/"+owner+"/"+repo+"/pulls", http.StatusUnprocessableEntity, "Validation Failed")
		return nil, resp, err
	}
	pr := f.AddPullRequest(owner+"/"+repo, pull.GetHead(), pull.GetBase())
	pr.Title = pull.Title
	pr.Body = pull.Body
	pr.Draft = pull.Draft
	pr.MaintainerCanModify = pull.MaintainerCanModify
	f.issues[issueKey(owner, repo, pr.GetNumber())].Title = pull.Title
	return pr, ok(), nil
}

func (fp *fakePullRequests) Get(_ context.Context, owner, repo string, number int) (*github.PullRequest, *github.Response, error) {
	f := fp.f
	if err := f.record("PullRequests.Get", owner, repo, number); err != nil {
		return nil, nil, err
	}
	pr, exists := f.pulls[issueKey(owner, repo, number)]
	if !exists {
		resp, err := apiError(http.MethodGet, fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number), http.StatusNotFound, "Not Found")
		return nil, resp, err
	}
	return pr, ok(), nil
}

func (fp *fakePullRequests) Edit(_ context.Context, owner, repo string, number int, pull *github.PullRequest) (*github.PullRequest, *github.Response, error) {
	f := fp.f
	if err := f.record("PullRequests.Edit", owner, repo, number, pull); err != nil {
		return nil, nil, err
	}
	pr, exists := f.pulls[issueKey(owner, repo, number)]
	if !exists {
		resp, err := apiError(http.MethodPatch, fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number), http.StatusNotFound, "Not Found")
		return nil, resp, err
	}
	if pull.Title != nil {
		pr.Title = pull.Title
	}
	if pull.Body != nil {
		pr.Body = pull.Body
	}
	if pull.State != nil {
		pr.State = pull.State
	}
	if pull.Base != nil {
		pr.Base = pull.Base
	}
	return pr, ok(), nil
}

func (fp *fakePullRequests) Merge(_ context.Context, owner, repo string, number int, commitMessage string, options *github.PullRequestOptions) (*github.PullRequestMergeResult, *github.Response, error) {
	f := fp.f
	if err := f.record("PullRequests.Merge", owner, repo, number, commitMessage, options); err != nil {
		return nil, nil, err
	}
	pr, exists := f.pulls[issueKey(owner, repo, number)]
	if !exists {
		resp, err := apiError(http.MethodPut, fmt.Sprintf("/repos/%s/%s/pulls/%d/merge", owner, repo, number), http.StatusNotFound, "Not Found")
		return nil, resp, err
	}
	if f.MergeResult != nil {
		return f.MergeResult, ok(), nil
	}
	pr.Merged = github.Ptr(true)
	pr.State = github.Ptr("closed")
	return &github.PullRequestMergeResult{
		SHA:     github.Ptr(f.newSHA()),
		Merged:  github.Ptr(true),
		Message: github.Ptr("Pull Request successfully merged"),
	}, ok(), nil
}

func (fp *fakePullRequests) RequestReviewers(_ context.Context, owner, repo string, number int, reviewers github.ReviewersRequest) (*github.PullRequest, *github.Response, error) {
	f := fp.f
	if err := f.record("PullRequests.RequestReviewers", owner, repo, number, reviewers); err != nil {
		return nil, nil, err
	}
	pr, exists := f.pulls[issueKey(owner, repo, number)]
	if !exists {
		resp, err := apiError(http.MethodPost, fmt.Sprintf("/repos/%s/%s/pulls/%d/requested_reviewers", owner, repo, number), http.StatusNotFound, "Not Found")
		return nil, resp, err
	}
	for _, r := range reviewers.Reviewers {
		pr.RequestedReviewers = append(pr.RequestedReviewers, &github.User{Login: github.Ptr(r)})
	}
	for _, t := range reviewers.TeamReviewers {
		pr.RequestedTeams = append(pr.RequestedTeams, &github.Team{Slug: github.Ptr(t)})
	}
	return pr, ok(), nil
}

type fakeRepositories struct{ f *Fake }

func (fr *fakeRepositories) Get(_ context.Context, owner, repo string) (*github.Repository, *github.Response, error) {
	f := fr.f
	if err := f.record("Repositories.Get", owner, repo); err != nil {
		return nil, nil, err
	}
	r, exists := f.repos[owner+"/"+repo]
	if !exists {
		resp, err := apiError(http.MethodGet, "/repos/"+owner+"/"+repo, http.StatusNotFound, "Not Found")
		return nil, resp, err
	}
	return r, ok(), nil
}

func (fr *fakeRepositories) Create(_ context.Context, org string, repo *github.Repository) (*github.Repository, *github.Response, error) {
	f := fr.f
	if err := f.record("Repositories.Create", org, repo); err != nil {
		return nil, nil, err
	}
	owner := org
	if owner == "" {
		owner = "me"
	}
	fullName := owner + "/" + repo.GetName()
	if _, exists := f.repos[fullName]; exists {
		resp, err := apiError(http.MethodPost, "/user/repos", http.StatusUnprocessableEntity, "name already exists on this account")
		return nil, resp, err
	}
	created := f.AddRepo(fullName, "main", map[string]string{})
	created.Description = repo.Description
	created.Private = repo.Private
	return created, ok(), nil
}

func (fr *fakeRepositories) ListBranches(_ context.Context, owner, repo string, opts *github.BranchListOptions) ([]*github.Branch, *github.Response, error) {
	f := fr.f
	if err := f.record("Repositories.ListBranches", owner, repo, opts); err != nil {
		return nil, nil, err
	}
	prefix := refKey(owner, repo, "refs/heads/")
	var branches []*github.Branch
	for key, sha := range f.refs {
		if name, found := strings.CutPrefix(key, prefix); found {
			branches = append(branches, &github.Branch{
				Name:   github.Ptr(name),
				Commit: &github.RepositoryCommit{SHA: github.Ptr(sha)},
			})
		}
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].GetName() < branches[j].GetName() })
	var list github.ListOptions
	if opts != nil {
		list = opts.ListOptions
	}
	page, resp := paginate(branches, list)
	return page, resp, nil
}

func (fr *fakeRepositories) GetContents(_ context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error) {
	f := fr.f
	if err := f.record("Repositories.GetContents", owner, repo, path, opts); err != nil {
		return nil, nil, nil, err
	}
	ref := ""
	if opts != nil {
		ref = opts.Ref
	}
	notFound := func() (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error) {
		resp, err := apiError(http.MethodGet, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, path), http.StatusNotFound, "Not Found")
		return nil, nil, resp, err
	}
	commitSHA, found := f.resolveRef(owner, repo, ref)
	if !found {
		return notFound()
	}
	tree := f.treeAt(commitSHA)
	path = strings.Trim(path, "/")
	if content, exists := tree[path]; exists {
		return &github.RepositoryContent{
			Type:     github.Ptr("file"),
			Name:     github.Ptr(baseName(path)),
			Path:     github.Ptr(path),
			SHA:      github.Ptr(blobSHA(content)),
			Size:     github.Ptr(len(content)),
			Encoding: github.Ptr("base64"),
			Content:  github.Ptr(base64.StdEncoding.EncodeToString([]byte(content))),
		}, nil, ok(), nil
	}

	children := map[string]*github.RepositoryContent{}
	dirPrefix := ""
	if path != "" {
		dirPrefix = path + "/"
	}
	for p, content := range tree {
		rest, isChild := strings.CutPrefix(p, dirPrefix)
		if !isChild {
			continue
		}
		if first, _, nested := strings.Cut(rest, "/"); nested {
			children[first] = &github.RepositoryContent{Type: github.Ptr("dir"), Name: github.Ptr(first), Path: github.Ptr(dirPrefix + first)}
		} else {
			children[rest] = &github.RepositoryContent{Type: github.Ptr("file"), Name: github.Ptr(rest), Path: github.Ptr(p), SHA: github.Ptr(blobSHA(content))}
		}
	}
	if len(children) == 0 {
		return notFound()
	}
	var entries []*github.RepositoryContent
	for _, c := range children {
		entries = append(entries, c)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].GetPath() < entries[j].GetPath() })
	return nil, entries, ok(), nil
}

func (fr *fakeRepositories) DeleteFile(_ context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error) {
	f := fr.f
	if err := f.record("Repositories.DeleteFile", owner, repo, path, opts); err != nil {
		return nil, nil, err
	}
	branch := opts.GetBranch()
	if branch == "" {
		branch = f.repos[owner+"/"+repo].GetDefaultBranch()
	}
	headSHA := f.Head(owner+"/"+repo, branch)
	tree := f.treeAt(headSHA)
	content, exists := tree[path]
	if !exists {
		resp, err := apiError(http.MethodDelete, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, path), http.StatusNotFound, "Not Found")
		return nil, resp, err
	}
	if opts.GetSHA() != blobSHA(content) {
		resp, err := apiError(http.MethodDelete, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, path), http.StatusConflict, fmt.Sprintf("%s does not match %s", path, opts.GetSHA()))
		return nil, resp, err
	}

	newTree := map[string]string{}
	for p, c := range tree {
		if p != path {
			newTree[p] = c
		}
	}
	treeSHA := f.newSHA()
	f.trees[treeSHA] = newTree
	commitSHA := f.newSHA()
	commit := &github.Commit{
		SHA:     github.Ptr(commitSHA),
		Message: opts.Message,
		Tree:    &github.Tree{SHA: github.Ptr(treeSHA)},
		Parents: []*github.Commit{{SHA: github.Ptr(headSHA)}},
	}
	f.commits[commitSHA] = commit
	f.refs[refKey(owner, repo, "refs/heads/"+branch)] = commitSHA
	return &github.RepositoryContentResponse{Commit: *commit}, ok(), nil
}

func (fr *fakeRepositories) CreateFork(_ context.Context, owner, repo string, opts *github.RepositoryCreateForkOptions) (*github.Repository, *github.Response, error) {
	f := fr.f
	if err := f.record("Repositories.CreateFork", owner, repo, opts); err != nil {
		return nil, nil, err
	}
	source, exists := f.repos[owner+"/"+repo]
	if !exists {
		resp, err := apiError(http.MethodPost, "/repos/"+owner+"/"+repo+"/forks", http.StatusNotFound, "Not Found")
		return nil, resp, err
	}
	forkOwner := "me"
	if opts != nil && opts.Organization != "" {
		forkOwner = opts.Organization
	}
	fork := f.AddRepo(forkOwner+"/"+repo, source.GetDefaultBranch(), map[string]string{})
	if f.ForkAccepted {
		return fork, &github.Response{Response: &http.Response{StatusCode: http.StatusAccepted}}, &github.AcceptedError{}
	}
	return fork, ok(), nil
}

type fakeGit struct{ f *Fake }

func (fg *fakeGit) GetRef(_ context.Context, owner, repo, ref string) (*github.Reference, *github.Response, error) {
	f := fg.f
	if err := f.record("Git.GetRef", owner, repo, ref); err != nil {
		return nil, nil, err
	}
	full := normalizeRef(ref)
	sha, exists := f.refs[refKey(owner, repo, full)]
	if !exists {
		resp, err := apiError(http.MethodGet, fmt.Sprintf("/repos/%s/%s/git/%s", owner, repo, full), http.StatusNotFound, "Not Found")
		return nil, resp, err
	}
	return &github.Reference{
		Ref:    github.Ptr(full),
		Object: &github.GitObject{Type: github.Ptr("commit"), SHA: github.Ptr(sha)},
	}, ok(), nil
}

func (fg *fakeGit) CreateRef(_ context.Context, owner, repo string, ref *github.Reference) (*github.Reference, *github.Response, error) {
	f := fg.f
	if err := f.record("Git.CreateRef", owner, repo, ref); err != nil {
		return nil, nil, err
	}
	full := normalizeRef(ref.GetRef())
	key := refKey(owner, repo, full)
	if _, exists := f.refs[key]; exists {
		resp, err := apiError(http.MethodPost, fmt.Sprintf("/repos/%s/%s/git/refs", owner, repo), http.StatusUnprocessableEntity, "Reference already exists")
		return nil, resp, err
	}
	sha := ref.GetObject().GetSHA()
	if _, known := f.commits[sha]; !known {
		resp, err := apiError(http.MethodPost, fmt.Sprintf("/repos/%s/%s/git/refs", owner, repo), http.StatusUnprocessableEntity, "Object does not exist")
		return nil, resp, err
	}
	f.refs[key] = sha
	return &github.Reference{
		Ref:    github.Ptr(full),
		Object: &github.GitObject{Type: github.Ptr("commit"), SHA: github.Ptr(sha)},
	}, ok(), nil
}

func (fg *fakeGit) UpdateRef(_ context.Context, owner, repo string, ref *github.Reference, force bool) (*github.Reference, *github.Response, error) {
	f := fg.f
	if err := f.record("Git.UpdateRef", owner, repo, ref, force); err != nil {
		return nil, nil, err
	}
	full := normalizeRef(ref.GetRef())
	key := refKey(owner, repo, full)
	current, exists := f.refs[key]
	if !exists {
		resp, err := apiError(http.MethodPatch, fmt.Sprintf("/repos/%s/%s/git/%s", owner, repo, full), http.StatusUnprocessableEntity, "Reference does not exist")
		return nil, resp, err
	}
	newSHA := ref.GetObject().GetSHA()
	if !force && !f.isDescendant(newSHA, current) {
		resp, err := apiError(http.MethodPatch, fmt.Sprintf("/repos/%s/%s/git/%s", owner, repo, full), http.StatusUnprocessableEntity, "Update is not a fast forward")
		return nil, resp, err
	}
	f.refs[key] = newSHA
	return &github.Reference{
		Ref:    github.Ptr(full),
		Object: &github.GitObject{Type: github.Ptr("commit"), SHA: github.Ptr(newSHA)},
	}, ok(), nil
}

func (f *Fake) isDescendant(sha string, ancestor string) bool {
	if sha == ancestor {
		return true
	}
	commit, ok := f.commits[sha]
	if !ok {
		return false
	}
	for _, p := range commit.Parents {
		if f.isDescendant(p.GetSHA(), ancestor) {
			return true
		}
	}
	return false
}

func (fg *fakeGit) DeleteRef(_ context.Context, owner, repo, ref string) (*github.Response, error) {
	f := fg.f
	if err := f.record("Git.DeleteRef", owner, repo, ref); err != nil {
		return nil, err
	}
	key := refKey(owner, repo, normalizeRef(ref))
	if _, exists := f.refs[key]; !exists {
		return apiError(http.MethodDelete, fmt.Sprintf("/repos/%s/%s/git/%s", owner, repo, ref), http.StatusUnprocessableEntity, "Reference does not exist")
	}
	delete(f.refs, key)
	return ok(), nil
}

func (fg *fakeGit) GetCommit(_ context.Context, owner, repo, sha string) (*github.Commit, *github.Response, error) {
	f := fg.f
	if err := f.record("Git.GetCommit", owner, repo, sha); err != nil {
		return nil, nil, err
	}
	commit, exists := f.commits[sha]
	if !exists {
		resp, err := apiError(http.MethodGet, fmt.Sprintf("/repos/%s/%s/git/commits/%s", owner, repo, sha), http.StatusNotFound, "Not Found")
		return nil, resp, err
	}
	return commit, ok(), nil
}

func (fg *fakeGit) GetTree(_ context.Context, owner, repo, sha string, recursive bool) (*github.Tree, *github.Response, error) {
	f := fg.f
	if err := f.record("Git.GetTree", owner, repo, sha, recursive); err != nil {
		return nil, nil, err
	}
	treeSHA := sha
	if commitSHA, found := f.resolveRef(owner, repo, sha); found {
		treeSHA = f.commits[commitSHA].GetTree().GetSHA()
	}
	files, exists := f.trees[treeSHA]
	if !exists {
		resp, err := apiError(http.MethodGet, fmt.Sprintf("/repos/%s/%s/git/trees/%s", owner, repo, sha), http.StatusNotFound, "Not Found")
		return nil, resp, err
	}

	dirs := map[string]struct{}{}
	var entries []*github.TreeEntry
	for path, content := range files {
		if !recursive && strings.Contains(path, "/") {
			dir, _, _ := strings.Cut(path, "/")
			dirs[dir] = struct{}{}
			continue
		}
		if recursive {
			parts := strings.Split(path, "/")
			for i := 1; i < len(parts); i++ {
				dirs[strings.Join(parts[:i], "/")] = struct{}{}
			}
		}
		entries = append(entries, &github.TreeEntry{
			Path: github.Ptr(path),
			Mode: github.Ptr("100644"),
			Type: github.Ptr("blob"),
			SHA:  github.Ptr(blobSHA(content)),
			Size: github.Ptr(len(content)),
		})
	}
	for dir := range dirs {
		entries = append(entries, &github.TreeEntry{
			Path: github.Ptr(dir),
			Mode: github.Ptr("040000"),
			Type: github.Ptr("tree"),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].GetPath() < entries[j].GetPath() })
	return &github.Tree{SHA: github.Ptr(treeSHA), Entries: entries, Truncated: github.Ptr(false)}, ok(), nil
}

func (fg *fakeGit) CreateTree(_ context.Context, owner, repo, baseTree string, entries []*github.TreeEntry) (*github.Tree, *github.Response, error) {
	f := fg.f
	if err := f.record("Git.CreateTree", owner, repo, baseTree, entries); err != nil {
		return nil, nil, err
	}
	tree := map[string]string{}
	if baseTree != "" {
		base, exists := f.trees[baseTree]
		if !exists {
			resp, err := apiError(http.MethodPost, fmt.Sprintf("/repos/%s/%s/git/trees", owner, repo), http.StatusUnprocessableEntity, "base_tree is not a valid tree")
			return nil, resp, err
		}
		for p, c := range base {
			tree[p] = c
		}
	}
	for _, e := range entries {
		switch {
		case e.Content != nil:
			tree[e.GetPath()] = e.GetContent()
			f.blobs[blobSHA(e.GetContent())] = e.GetContent()
		case e.SHA != nil:
			tree[e.GetPath()] = f.blobs[e.GetSHA()]
		default:
			delete(tree, e.GetPath())
		}
	}
	treeSHA := f.newSHA()
	f.trees[treeSHA] = tree
	return &github.Tree{SHA: github.Ptr(treeSHA)}, ok(), nil
}

func (fg *fakeGit) CreateCommit(_ context.Context, owner, repo string, commit *github.Commit, opts *github.CreateCommitOptions) (*github.Commit, *github.Response, error) {
	f := fg.f
	if err := f.record("Git.CreateCommit", owner, repo, commit, opts); err != nil {
		return nil, nil, err
	}
	if _, exists := f.trees[commit.GetTree().GetSHA()]; !exists {
		resp, err := apiError(http.MethodPost, fmt.Sprintf("/repos/%s/%s/git/commits", owner, repo), http.StatusUnprocessableEntity, "Tree SHA does not exist")
		return nil, resp, err
	}
	sha := f.newSHA()
	created := &github.Commit{
		SHA:     github.Ptr(sha),
		Message: commit.Message,
		Tree:    &github.Tree{SHA: commit.GetTree().SHA},
	}
	for _, p := range commit.Parents {
		created.Parents = append(created.Parents, &github.Commit{SHA: p.SHA})
	}
	f.commits[sha] = created
	return created, ok(), nil
}

type fakeSearch struct{ f *Fake }

func (fs *fakeSearch) Issues(_ context.Context, query string, opts *github.SearchOptions) (*github.IssuesSearchResult, *github.Response, error) {
	f := fs.f
	if err := f.record("Search.Issues", query, opts); err != nil {
		return nil, nil, err
	}
	page, resp := paginate(f.IssueSearchResults, searchListOptions(opts))
	return &github.IssuesSearchResult{
		Total:             github.Ptr(len(f.IssueSearchResults)),
		IncompleteResults: github.Ptr(false),
		Issues:            page,
	}, resp, nil
}

func (fs *fakeSearch) Code(_ context.Context, query string, opts *github.SearchOptions) (*github.CodeSearchResult, *github.Response, error) {
	f := fs.f
	if err := f.record("Search.Code", query, opts); err != nil {
		return nil, nil, err
	}
	page, resp := paginate(f.CodeSearchResults, searchListOptions(opts))
	return &github.CodeSearchResult{
		Total:             github.Ptr(len(f.CodeSearchResults)),
		IncompleteResults: github.Ptr(false),
		CodeResults:       page,
	}, resp, nil
}

func searchListOptions(opts *github.SearchOptions) github.ListOptions {
	if opts == nil {
		return github.ListOptions{}
	}
	return opts.ListOptions
}

func baseName(path string) string {
	if i := strings.LastIndex(path, "/"); i != -1 {
		return path[i+1:]
	}
	return path
}
