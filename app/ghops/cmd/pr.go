package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v72/github"
	"github.com/spf13/cobra"

	"github.com/cchalm/ghops/internal/pullrequest"
	"github.com/cchalm/ghops/internal/templates"
	"github.com/cchalm/ghops/internal/ui"
)

var prCmd = &cobra.Command{
	Use:   "pr",
	Short: "Create, update and merge pull requests",
}

var prOpts = struct {
	body             string
	template         string
	draft            bool
	noMaintainerEdit bool
	reviewers        []string
	teamReviewers    []string
	labels           []string
	assignees        []string
	title            string
	state            string
	base             string
	method           string
	commitTitle      string
	commitMessage    string
	deleteBranch     bool
	yes              bool
}{}

var prCreateCmd = &cobra.Command{
	Use:   "create <repo> <title> <head> [base]",
	Short: "Open a pull request",
	Long: `Opens a pull request from head into base (pull_requests.default_base when omitted), then
requests reviews, adds labels and assigns users. If one of those follow-up steps fails the
pull request stays open and the error is reported.`,
	Args: cobra.RangeArgs(3, 4),
	RunE: runPRCreate,
}

var prUpdateCmd = &cobra.Command{
	Use:   "update <repo> <number>",
	Short: "Update a pull request; reviewers, labels and assignees are added",
	Args:  cobra.ExactArgs(2),
	RunE:  runPRUpdate,
}

var prMergeCmd = &cobra.Command{
	Use:   "merge <repo> <number>",
	Short: "Merge a pull request",
	Long: `Merges a pull request with the chosen method. With --delete-branch the head branch is
deleted after a successful merge; a failure to delete it is only a warning.`,
	Args: cobra.ExactArgs(2),
	RunE: runPRMerge,
}

func init() {
	f := prCreateCmd.Flags()
	f.StringVar(&prOpts.body, "body", "", "Body; the template is used when omitted")
	f.StringVar(&prOpts.template, "template", templates.DefaultName, "Body template used when --body is omitted; empty for none")
	f.BoolVar(&prOpts.draft, "draft", false, "Open as a draft")
	f.BoolVar(&prOpts.noMaintainerEdit, "no-maintainer-edit", false, "Do not let maintainers push to the head branch")
	addPRFollowUpFlags(prCreateCmd)

	f = prUpdateCmd.Flags()
	f.StringVar(&prOpts.title, "title", "", "New title")
	f.StringVar(&prOpts.body, "body", "", "New body")
	ui.AddChoiceFlag(f, &prOpts.state, "state", "", []string{"open", "closed"}, "New state")
	f.StringVar(&prOpts.base, "base", "", "New base branch")
	addPRFollowUpFlags(prUpdateCmd)

	f = prMergeCmd.Flags()
	ui.AddChoiceFlag(f, &prOpts.method, "method", "", pullrequest.MergeMethods, "Merge method; defaults to pull_requests.merge_method")
	f.StringVar(&prOpts.commitTitle, "commit-title", "", "Title of the merge commit")
	f.StringVar(&prOpts.commitMessage, "commit-message", "", "Extra detail for the merge commit")
	f.BoolVar(&prOpts.deleteBranch, "delete-branch", false, "Delete the head branch after merging; defaults to pull_requests.delete_branch (true)")
	f.BoolVarP(&prOpts.yes, "yes", "y", false, "Merge without asking for confirmation")

	prCmd.AddCommand(prCreateCmd, prUpdateCmd, prMergeCmd)
	rootCmd.AddCommand(prCmd)
}

func addPRFollowUpFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVar(&prOpts.reviewers, "reviewer", nil, "User to request a review from (repeatable)")
	f.StringSliceVar(&prOpts.teamReviewers, "team-reviewer", nil, "Team slug to request a review from (repeatable)")
	f.StringSliceVar(&prOpts.labels, "label", nil, "Label to add (repeatable)")
	f.StringSliceVar(&prOpts.assignees, "assignee", nil, "User to assign (repeatable)")
}

func prService(op operation) *pullrequest.Service {
	return pullrequest.NewService(op.client, op.templates(), op.reporter, op.logger, app.cfg.PullRequests.DefaultBase)
}

func runPRCreate(cmd *cobra.Command, args []string) error {
	repo, err := parseRepoArg(args[0])
	if err != nil {
		return err
	}
	opts := pullrequest.CreateOptions{
		Title:               args[1],
		Head:                args[2],
		Template:            prOpts.template,
		Draft:               prOpts.draft,
		MaintainerCanModify: github.Ptr(!prOpts.noMaintainerEdit),
		Reviewers:           prOpts.reviewers,
		TeamReviewers:       prOpts.teamReviewers,
		Labels:              prOpts.labels,
		Assignees:           prOpts.assignees,
	}
	if len(args) == 4 {
		opts.Base = args[3]
	}
	if cmd.Flags().Changed("body") {
		opts.Body = github.Ptr(prOpts.body)
	}

	return runOperation(cmd, "pr.create", repoAttrs(repo), func(ctx context.Context, op operation) error {
		pr, err := prService(op).Create(ctx, repo, opts)
		if err != nil && pr != nil {
			op.reporter.Warn("PR #%d was created, but a follow-up step failed", pr.GetNumber())
		}
		return err
	})
}

func runPRUpdate(cmd *cobra.Command, args []string) error {
	repo, number, err := parseRepoAndNumber(args)
	if err != nil {
		return err
	}
	opts := pullrequest.UpdateOptions{
		Title:         prOpts.title,
		Body:          prOpts.body,
		State:         prOpts.state,
		Base:          prOpts.base,
		Reviewers:     prOpts.reviewers,
		TeamReviewers: prOpts.teamReviewers,
		Labels:        prOpts.labels,
		Assignees:     prOpts.assignees,
	}
	return runOperation(cmd, "pr.update", repoAttrs(repo), func(ctx context.Context, op operation) error {
		_, err := prService(op).Update(ctx, repo, number, opts)
		return err
	})
}

// errMergeRefused is returned when GitHub declined the merge, so the command exits non-zero
var errMergeRefused = errors.New("pull request was not merged")

func runPRMerge(cmd *cobra.Command, args []string) error {
	repo, number, err := parseRepoAndNumber(args)
	if err != nil {
		return err
	}
	opts := pullrequest.MergeOptions{
		Method:        prOpts.method,
		CommitTitle:   prOpts.commitTitle,
		CommitMessage: prOpts.commitMessage,
		DeleteBranch:  app.cfg.PullRequests.DeleteBranch,
	}
	if opts.Method == "" {
		opts.Method = app.cfg.PullRequests.MergeMethod
	}
	if cmd.Flags().Changed("delete-branch") {
		opts.DeleteBranch = prOpts.deleteBranch
	}

	return runOperation(cmd, "pr.merge", repoAttrs(repo), func(ctx context.Context, op operation) error {
		ok, err := confirm(prOpts.yes, fmt.Sprintf("Merge PR #%d in %s using %s", number, repo, opts.Method))
		if err != nil {
			return err
		}
		if !ok {
			op.reporter.Info("Aborted")
			return nil
		}

		result, err := prService(op).Merge(ctx, repo, number, opts)
		if err != nil {
			return err
		}
		if !result.Merged {
			return errMergeRefused
		}
		return nil
	})
}
