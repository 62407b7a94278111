package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/go-github/v72/github"
	"github.com/spf13/cobra"

	githubpkg "github.com/cchalm/ghops/internal/github"
	"github.com/cchalm/ghops/internal/issue"
	"github.com/cchalm/ghops/internal/templates"
	"github.com/cchalm/ghops/internal/ui"
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Create, update, comment on, close, search and list issues",
}

var issueOpts = struct {
	template    string
	labels      []string
	assignees   []string
	milestone   int
	title       string
	body        string
	state       string
	listState   string
	stateReason string
	reason      string
	comment     string
	repo        string
	sort        string
	order       string
	assignee    string
	since       string
}{}

var issueCreateCmd = &cobra.Command{
	Use:   "create <repo> <title> [body]",
	Short: "Create an issue",
	Long: `Creates an issue. Without a body the named template is used, if one exists in the
templates directory; otherwise the body is empty.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runIssueCreate,
}

var issueUpdateCmd = &cobra.Command{
	Use:   "update <repo> <number>",
	Short: "Update an issue; only the given fields change",
	Args:  cobra.ExactArgs(2),
	RunE:  runIssueUpdate,
}

var issueCommentCmd = &cobra.Command{
	Use:   "comment <repo> <number> <body>",
	Short: "Comment on an issue",
	Args:  cobra.ExactArgs(3),
	RunE:  runIssueComment,
}

var issueCloseCmd = &cobra.Command{
	Use:   "close <repo> <number>",
	Short: "Close an issue, optionally commenting first",
	Args:  cobra.ExactArgs(2),
	RunE:  runIssueClose,
}

var issueSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search issues with GitHub search syntax",
	Args:  cobra.ExactArgs(1),
	RunE:  runIssueSearch,
}

var issueListCmd = &cobra.Command{
	Use:   "list <repo>",
	Short: "List issues in a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runIssueList,
}

func init() {
	f := issueCreateCmd.Flags()
	f.StringVar(&issueOpts.template, "template", templates.DefaultName, "Body template used when no body is given; empty for none")
	f.StringSliceVar(&issueOpts.labels, "label", nil, "Label to add (repeatable); defaults to issues.default_labels")
	f.StringSliceVar(&issueOpts.assignees, "assignee", nil, "User to assign (repeatable)")
	f.IntVar(&issueOpts.milestone, "milestone", 0, "Milestone number")

	f = issueUpdateCmd.Flags()
	f.StringVar(&issueOpts.title, "title", "", "New title")
	f.StringVar(&issueOpts.body, "body", "", "New body")
	ui.AddChoiceFlag(f, &issueOpts.state, "state", "", []string{"open", "closed"}, "New state")
	ui.AddChoiceFlag(f, &issueOpts.stateReason, "state-reason", "", []string{issue.ReasonCompleted, issue.ReasonNotPlanned, issue.ReasonReopened}, "Reason for the state change")
	f.StringSliceVar(&issueOpts.labels, "label", nil, "Replace labels (repeatable); pass --label= to clear")
	f.StringSliceVar(&issueOpts.assignees, "assignee", nil, "Replace assignees (repeatable); pass --assignee= to clear")
	f.IntVar(&issueOpts.milestone, "milestone", 0, "Milestone number")

	f = issueCloseCmd.Flags()
	ui.AddChoiceFlag(f, &issueOpts.reason, "reason", issue.ReasonCompleted, []string{issue.ReasonCompleted, issue.ReasonNotPlanned}, "Why the issue is closed")
	f.StringVar(&issueOpts.comment, "comment", "", "Comment to post before closing")

	f = issueSearchCmd.Flags()
	f.StringVar(&issueOpts.repo, "repo", "", "Limit the search to owner/repo")
	ui.AddChoiceFlag(f, &issueOpts.sort, "sort", "created", []string{"comments", "created", "updated"}, "Sort field")
	ui.AddChoiceFlag(f, &issueOpts.order, "order", "desc", []string{"asc", "desc"}, "Sort order")

	f = issueListCmd.Flags()
	ui.AddChoiceFlag(f, &issueOpts.listState, "state", "open", []string{"open", "closed", "all"}, "Issue state")
	f.StringSliceVar(&issueOpts.labels, "label", nil, "Only issues with this label (repeatable)")
	f.StringVar(&issueOpts.assignee, "assignee", "", "Only issues assigned to this user")
	f.StringVar(&issueOpts.since, "since", "", "Only issues updated at or after this time (RFC 3339 or YYYY-MM-DD)")

	issueCmd.AddCommand(issueCreateCmd, issueUpdateCmd, issueCommentCmd, issueCloseCmd, issueSearchCmd, issueListCmd)
	rootCmd.AddCommand(issueCmd)
}

func issueService(op operation) *issue.Service {
	return issue.NewService(op.client, op.templates(), op.reporter, op.logger)
}

func runIssueCreate(cmd *cobra.Command, args []string) error {
	repo, err := parseRepoArg(args[0])
	if err != nil {
		return err
	}
	opts := issue.CreateOptions{
		Title:     args[1],
		Template:  issueOpts.template,
		Labels:    issueOpts.labels,
		Assignees: issueOpts.assignees,
		Milestone: issueOpts.milestone,
	}
	if len(args) == 3 {
		opts.Body = github.Ptr(args[2])
	}
	if !cmd.Flags().Changed("label") {
		opts.Labels = app.cfg.Issues.DefaultLabels
	}

	return runOperation(cmd, "issue.create", repoAttrs(repo), func(ctx context.Context, op operation) error {
		_, err := issueService(op).Create(ctx, repo, opts)
		return err
	})
}

func runIssueUpdate(cmd *cobra.Command, args []string) error {
	repo, number, err := parseRepoAndNumber(args)
	if err != nil {
		return err
	}
	opts := issue.UpdateOptions{
		Title:       issueOpts.title,
		Body:        issueOpts.body,
		State:       issueOpts.state,
		StateReason: issueOpts.stateReason,
		Milestone:   issueOpts.milestone,
	}
	if cmd.Flags().Changed("label") {
		opts.Labels = nonNilSlice(issueOpts.labels)
	}
	if cmd.Flags().Changed("assignee") {
		opts.Assignees = nonNilSlice(issueOpts.assignees)
	}

	return runOperation(cmd, "issue.update", repoAttrs(repo), func(ctx context.Context, op operation) error {
		_, err := issueService(op).Update(ctx, repo, number, opts)
		return err
	})
}

func runIssueComment(cmd *cobra.Command, args []string) error {
	repo, number, err := parseRepoAndNumber(args)
	if err != nil {
		return err
	}
	return runOperation(cmd, "issue.comment", repoAttrs(repo), func(ctx context.Context, op operation) error {
		_, err := issueService(op).Comment(ctx, repo, number, args[2])
		return err
	})
}

func runIssueClose(cmd *cobra.Command, args []string) error {
	repo, number, err := parseRepoAndNumber(args)
	if err != nil {
		return err
	}
	return runOperation(cmd, "issue.close", repoAttrs(repo), func(ctx context.Context, op operation) error {
		_, err := issueService(op).Close(ctx, repo, number, issueOpts.reason, issueOpts.comment)
		return err
	})
}

func runIssueSearch(cmd *cobra.Command, args []string) error {
	opts := issue.SearchOptions{Sort: issueOpts.sort, Order: issueOpts.order}
	if issueOpts.repo != "" {
		repo, err := parseRepoArg(issueOpts.repo)
		if err != nil {
			return err
		}
		opts.Repo = &repo
	}
	return runOperation(cmd, "issue.search", nil, func(ctx context.Context, op operation) error {
		issues, err := issueService(op).Search(ctx, args[0], opts)
		if err != nil {
			return err
		}
		return renderIssues(op, issues)
	})
}

func runIssueList(cmd *cobra.Command, args []string) error {
	repo, err := parseRepoArg(args[0])
	if err != nil {
		return err
	}
	opts := issue.ListOptions{
		State:    issueOpts.listState,
		Labels:   issueOpts.labels,
		Assignee: issueOpts.assignee,
	}
	if issueOpts.since != "" {
		opts.Since, err = parseSince(issueOpts.since)
		if err != nil {
			return err
		}
	}
	return runOperation(cmd, "issue.list", repoAttrs(repo), func(ctx context.Context, op operation) error {
		issues, err := issueService(op).List(ctx, repo, opts)
		if err != nil {
			return err
		}
		return renderIssues(op, issues)
	})
}

func renderIssues(op operation, issues []*github.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	table := op.table("NUMBER", "STATE", "TITLE", "URL")
	for _, i := range issues {
		table.Row("#"+strconv.Itoa(i.GetNumber()), i.GetState(), i.GetTitle(), i.GetHTMLURL())
	}
	return table.Render()
}

func parseRepoAndNumber(args []string) (githubpkg.RepoName, int, error) {
	repo, err := parseRepoArg(args[0])
	if err != nil {
		return githubpkg.RepoName{}, 0, err
	}
	number, err := parseNumberArg(args[1])
	if err != nil {
		return githubpkg.RepoName{}, 0, err
	}
	return repo, number, nil
}

func parseSince(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --since '%s', expected RFC 3339 or YYYY-MM-DD", s)
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
