package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cchalm/ghops/internal/git"
	githubpkg "github.com/cchalm/ghops/internal/github"
	"github.com/cchalm/ghops/internal/repository"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Create repositories and branches, push files, and read contents",
}

var repoOpts = struct {
	description string
	private     bool
	autoInit    bool
	gitignore   string
	license     string
	org         string
	expectedSHA string
	message     string
	branch      string
	ref         string
	repo        string
	sha         string
	recursive   bool
	prefix      string
	yes         bool
}{}

var repoCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a repository for the authenticated user or an organization",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepoCreate,
}

var repoBranchCmd = &cobra.Command{
	Use:   "branch <repo> <branch> [from]",
	Short: "Create a branch from another branch, or from the default branch",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runRepoBranch,
}

var repoPushCmd = &cobra.Command{
	Use:   "push <repo> <manifest>",
	Short: "Push the files listed in a YAML manifest as one commit",
	Long: `Writes every file listed in the manifest, and removes the paths under delete, in a single
commit on top of the branch head. The branch is only fast-forwarded: if someone else pushed
while the commit was being built, nothing is overwritten and the command fails.

Manifest format:

  message: Add scaffolding
  branch: main            # optional, defaults to the repository's default branch
  files:
    - path: README.md
      content: "# Hello"
    - path: cmd/main.go
      source: ./main.go   # read from disk, relative to the manifest
  delete:
    - old.txt`,
	Args: cobra.ExactArgs(2),
	RunE: runRepoPush,
}

var repoDeleteFileCmd = &cobra.Command{
	Use:   "delete-file <repo> <path>",
	Short: "Delete one file in its own commit",
	Args:  cobra.ExactArgs(2),
	RunE:  runRepoDeleteFile,
}

var repoContentsCmd = &cobra.Command{
	Use:   "contents <repo> <path>",
	Short: "Print a file, or list a directory",
	Args:  cobra.ExactArgs(2),
	RunE:  runRepoContents,
}

var repoSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search code with GitHub search syntax",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepoSearch,
}

var repoForkCmd = &cobra.Command{
	Use:   "fork <repo>",
	Short: "Fork a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepoFork,
}

var repoBranchesCmd = &cobra.Command{
	Use:   "branches <repo>",
	Short: "List branches",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepoBranches,
}

var repoTreeCmd = &cobra.Command{
	Use:   "tree <repo>",
	Short: "List the files of a tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepoTree,
}

func init() {
	f := repoCreateCmd.Flags()
	f.StringVar(&repoOpts.description, "description", "", "Repository description")
	f.BoolVar(&repoOpts.private, "private", false, "Create a private repository")
	f.BoolVar(&repoOpts.autoInit, "auto-init", true, "Initialize with a README")
	f.StringVar(&repoOpts.gitignore, "gitignore", "", "Gitignore template, e.g. Go")
	f.StringVar(&repoOpts.license, "license", "", "License template, e.g. mit")
	f.StringVar(&repoOpts.org, "org", "", "Organization to create the repository in")

	repoBranchCmd.Flags().StringVar(&repoOpts.expectedSHA, "expected-sha", "", "Fail unless the source branch is at this commit")

	f = repoPushCmd.Flags()
	f.StringVarP(&repoOpts.message, "message", "m", "", "Commit message, overriding the manifest")
	f.StringVar(&repoOpts.branch, "branch", "", "Branch, overriding the manifest")
	f.StringVar(&repoOpts.expectedSHA, "expected-sha", "", "Fail unless the branch is at this commit")

	f = repoDeleteFileCmd.Flags()
	f.StringVarP(&repoOpts.message, "message", "m", "", "Commit message; defaults to 'Delete <path>'")
	f.StringVar(&repoOpts.branch, "branch", "", "Branch; defaults to the repository's default branch")
	f.StringVar(&repoOpts.expectedSHA, "expected-sha", "", "Fail unless the file's blob SHA is this")
	f.BoolVarP(&repoOpts.yes, "yes", "y", false, "Delete without asking for confirmation")

	repoContentsCmd.Flags().StringVar(&repoOpts.ref, "ref", "", "Branch, tag or commit; defaults to the default branch")

	repoSearchCmd.Flags().StringVar(&repoOpts.repo, "repo", "", "Limit the search to owner/repo")

	repoForkCmd.Flags().StringVar(&repoOpts.org, "org", "", "Organization to fork into")

	f = repoTreeCmd.Flags()
	f.StringVar(&repoOpts.sha, "sha", "", "Tree SHA, commit SHA or branch; defaults to the default branch")
	f.BoolVar(&repoOpts.recursive, "recursive", true, "Include nested entries")
	f.StringVar(&repoOpts.prefix, "prefix", "", "Only entries whose path starts with this")

	repoCmd.AddCommand(repoCreateCmd, repoBranchCmd, repoPushCmd, repoDeleteFileCmd, repoContentsCmd, repoSearchCmd, repoForkCmd, repoBranchesCmd, repoTreeCmd)
	rootCmd.AddCommand(repoCmd)
}

func repoService(op operation) *repository.Service {
	return repository.NewService(op.client, op.reporter, op.logger)
}

func runRepoCreate(cmd *cobra.Command, args []string) error {
	opts := repository.CreateOptions{
		Name:              args[0],
		Description:       repoOpts.description,
		Private:           repoOpts.private,
		AutoInit:          repoOpts.autoInit,
		GitignoreTemplate: repoOpts.gitignore,
		LicenseTemplate:   repoOpts.license,
		Organization:      repoOpts.org,
	}
	return runOperation(cmd, "repo.create", nil, func(ctx context.Context, op operation) error {
		_, err := repoService(op).CreateRepository(ctx, opts)
		return err
	})
}

func runRepoBranch(cmd *cobra.Command, args []string) error {
	repo, err := parseRepoArg(args[0])
	if err != nil {
		return err
	}
	from := ""
	if len(args) == 3 {
		from = args[2]
	}
	return runOperation(cmd, "repo.branch", repoAttrs(repo), func(ctx context.Context, op operation) error {
		_, err := repoService(op).CreateBranch(ctx, repo, args[1], from, repoOpts.expectedSHA)
		return err
	})
}

func runRepoPush(cmd *cobra.Command, args []string) error {
	repo, err := parseRepoArg(args[0])
	if err != nil {
		return err
	}
	manifest, baseDir, err := repository.LoadManifestFile(args[1])
	if err != nil {
		return err
	}
	files, err := manifest.ResolveFiles(baseDir)
	if err != nil {
		return err
	}
	message := manifest.Message
	if repoOpts.message != "" {
		message = repoOpts.message
	}
	if message == "" {
		return fmt.Errorf("a commit message is required, set message in the manifest or pass --message")
	}
	opts := repository.PushOptions{
		Branch:      manifest.Branch,
		ExpectedSHA: repoOpts.expectedSHA,
		Delete:      manifest.Delete,
	}
	if repoOpts.branch != "" {
		opts.Branch = repoOpts.branch
	}

	return runOperation(cmd, "repo.push", repoAttrs(repo), func(ctx context.Context, op operation) error {
		_, err := repoService(op).PushFiles(ctx, repo, files, message, opts)
		return err
	})
}

func runRepoDeleteFile(cmd *cobra.Command, args []string) error {
	repo, err := parseRepoArg(args[0])
	if err != nil {
		return err
	}
	path := args[1]
	message := repoOpts.message
	if message == "" {
		message = "Delete " + path
	}

	return runOperation(cmd, "repo.delete_file", repoAttrs(repo), func(ctx context.Context, op operation) error {
		ok, err := confirm(repoOpts.yes, fmt.Sprintf("Delete %s from %s", path, repo))
		if err != nil {
			return err
		}
		if !ok {
			op.reporter.Info("Aborted")
			return nil
		}
		_, err = repoService(op).DeleteFile(ctx, repo, path, message, repoOpts.branch, repoOpts.expectedSHA)
		return err
	})
}

func runRepoContents(cmd *cobra.Command, args []string) error {
	repo, err := parseRepoArg(args[0])
	if err != nil {
		return err
	}
	return runOperation(cmd, "repo.contents", repoAttrs(repo), func(ctx context.Context, op operation) error {
		contents, err := repoService(op).GetFileContents(ctx, repo, args[1], repoOpts.ref)
		if err != nil {
			return err
		}
		if !contents.IsDir {
			_, err := fmt.Fprint(cmd.OutOrStdout(), contents.Content)
			return err
		}
		table := op.table("TYPE", "SIZE", "PATH")
		for _, e := range contents.Entries {
			table.Row(e.Type, strconv.Itoa(e.Size), e.Path)
		}
		return table.Render()
	})
}

func runRepoSearch(cmd *cobra.Command, args []string) error {
	var limit *githubpkg.RepoName
	if repoOpts.repo != "" {
		repo, err := parseRepoArg(repoOpts.repo)
		if err != nil {
			return err
		}
		limit = &repo
	}
	return runOperation(cmd, "repo.search", nil, func(ctx context.Context, op operation) error {
		results, err := repoService(op).SearchCode(ctx, args[0], limit)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return nil
		}
		table := op.table("REPOSITORY", "PATH")
		for _, r := range results {
			table.Row(r.GetRepository().GetFullName(), r.GetPath())
		}
		return table.Render()
	})
}

func runRepoFork(cmd *cobra.Command, args []string) error {
	repo, err := parseRepoArg(args[0])
	if err != nil {
		return err
	}
	return runOperation(cmd, "repo.fork", repoAttrs(repo), func(ctx context.Context, op operation) error {
		_, err := repoService(op).Fork(ctx, repo, repoOpts.org)
		return err
	})
}

func runRepoBranches(cmd *cobra.Command, args []string) error {
	repo, err := parseRepoArg(args[0])
	if err != nil {
		return err
	}
	return runOperation(cmd, "repo.branches", repoAttrs(repo), func(ctx context.Context, op operation) error {
		_, err := repoService(op).ListBranches(ctx, repo)
		return err
	})
}

func runRepoTree(cmd *cobra.Command, args []string) error {
	repo, err := parseRepoArg(args[0])
	if err != nil {
		return err
	}
	opts := repository.TreeOptions{
		SHA:        repoOpts.sha,
		Recursive:  repoOpts.recursive,
		PathPrefix: repoOpts.prefix,
	}
	return runOperation(cmd, "repo.tree", repoAttrs(repo), func(ctx context.Context, op operation) error {
		entries, err := repoService(op).GetTree(ctx, repo, opts)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		table := op.table("MODE", "TYPE", "SHA", "PATH")
		for _, e := range entries {
			table.Row(e.GetMode(), e.GetType(), git.ShortSHA(e.GetSHA()), e.GetPath())
		}
		return table.Render()
	})
}
