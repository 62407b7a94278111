package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	githubpkg "github.com/cchalm/ghops/internal/github"
	"github.com/cchalm/ghops/internal/templates"
	"github.com/cchalm/ghops/internal/transport"
	"github.com/cchalm/ghops/internal/ui"
)

var (
	// newClient builds the GitHub client for one command
	newClient = createGithubClient
	// newConfirmer decides how destructive commands ask for approval
	newConfirmer = func(yes bool) ui.Confirmer {
		if yes {
			return ui.AutoConfirmer{}
		}
		return ui.PromptConfirmer{Stdin: os.Stdin, Stdout: os.Stdout}
	}
)

func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup graceful shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		fmt.Fprintln(os.Stderr, "Interrupt signal detected, cancelling...")
		cancel()
		<-interrupt
		os.Exit(130)
	}()

	return ctx, cancel
}

func createGithubClient(ctx context.Context) (*githubpkg.Client, error) {
	return githubpkg.NewClientFromEnv(ctx, githubpkg.ClientOptions{
		TokenEnv:  app.cfg.GitHub.TokenEnv,
		BaseURL:   app.cfg.GitHub.BaseURL,
		UploadURL: app.cfg.GitHub.UploadURL,
		Transport: transport.WithInstrumentation(nil, app.telemetry.Tracer(), app.logger),
	})
}

// operation is what a command body needs to talk to GitHub and to the user
type operation struct {
	client   *githubpkg.Client
	reporter *ui.Reporter
	logger   *zap.Logger
	cmd      *cobra.Command
}

// runOperation traces one command as a named operation and hands it an authenticated client. A missing
// credential fails here, before any request
func runOperation(cmd *cobra.Command, name string, attrs []attribute.KeyValue, body func(ctx context.Context, op operation) error) (err error) {
	ctx, traced := app.telemetry.StartOperation(cmd.Context(), name, attrs...)
	defer func() { traced.End(err) }()

	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	terminal := ui.TerminalFromEnv()
	return body(ctx, operation{
		client:   client,
		reporter: ui.NewReporter(cmd.OutOrStdout(), terminal.Width),
		logger:   traced.Logger(),
		cmd:      cmd,
	})
}

func (op operation) table(headers ...string) *ui.Table {
	return ui.NewTable(op.cmd.OutOrStdout(), ui.TerminalFromEnv(), headers...)
}

func (op operation) templates() templates.Store {
	return templates.NewStore(app.cfg.Templates.Dir)
}

func parseRepoArg(arg string) (githubpkg.RepoName, error) {
	return githubpkg.ParseRepoName(arg)
}

func parseNumberArg(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid number '%s', expected a positive integer", arg)
	}
	return n, nil
}

func repoAttrs(repo githubpkg.RepoName) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String("github.repository", repo.String())}
}

// confirm asks before a destructive action. It returns false when the user declines
func confirm(yes bool, label string) (bool, error) {
	return newConfirmer(yes).Confirm(label)
}
