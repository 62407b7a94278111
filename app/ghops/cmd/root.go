package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cchalm/ghops/internal/config"
	"github.com/cchalm/ghops/internal/logging"
	"github.com/cchalm/ghops/internal/telemetry"
	"github.com/cchalm/ghops/internal/ui"
)

var rootCmd = &cobra.Command{
	Use:   "ghops",
	Short: "Manage GitHub issues, pull requests and repositories",
	Long: `ghops wraps the GitHub REST API for everyday issue, pull request and repository work:
creating and closing issues, opening and merging pull requests, creating branches, and
pushing several files in a single commit.

The access token is read from the environment variable named by github.token_env
(GITHUB_PERSONAL_ACCESS_TOKEN by default). A .env file in the working directory is loaded first.`,
	PersistentPreRunE:  loadRootConfig,
	PersistentPostRunE: shutdownRoot,
}

// Execute runs the command named on the command line
func Execute() error {
	ctx, cancel := setupContext()
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootOpts.configPath, "config", "", "Path to a ghops.yaml configuration file")
	ui.AddChoiceFlag(flags, &rootOpts.logLevel, "log-level", "", logging.Levels, "Log level, overriding the configuration")
	ui.AddChoiceFlag(flags, &rootOpts.logFormat, "log-format", "", logging.Formats, "Log format, overriding the configuration")
}

// loadRootConfig runs after argument validation, so usage is only printed for usage errors
func loadRootConfig(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	// Load .env file
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	loaded, err := config.Load(rootOpts.configPath, configSearchPaths()...)
	if err != nil {
		return err
	}
	cfg := loaded.Config
	if rootOpts.logLevel != "" {
		cfg.Log.Level = rootOpts.logLevel
	}
	if rootOpts.logFormat != "" {
		cfg.Log.Format = rootOpts.logFormat
	}

	logger, err := logging.NewLoggerTo(logging.Level(cfg.Log.Level), logging.Format(cfg.Log.Format), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if loaded.FileUsed != "" {
		logger.Debug("loaded configuration", zap.String("file", loaded.FileUsed))
	}

	provider, err := telemetry.NewProvider(cmd.Context(), telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceVersion: versionInfo.version,
	}, logger)
	if err != nil {
		return err
	}

	app = appState{
		cfg:       cfg,
		logger:    logger,
		telemetry: provider,
	}
	return nil
}

func shutdownRoot(_ *cobra.Command, _ []string) error {
	if app.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Telemetry.ShutdownTimeout)
		defer cancel()
		if err := app.telemetry.Shutdown(ctx); err != nil {
			app.logger.Warn("failed to flush traces", zap.Error(err))
		}
	}
	if app.logger != nil {
		_ = app.logger.Sync()
	}
	return nil
}

func configSearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ghops"))
	}
	return paths
}
