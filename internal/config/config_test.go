package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	loaded, err := Load("", t.TempDir())
	require.NoError(t, err)
	require.Empty(t, loaded.FileUsed)

	require.Equal(t, "GITHUB_PERSONAL_ACCESS_TOKEN", loaded.GitHub.TokenEnv)
	require.Equal(t, "assets", loaded.Templates.Dir)
	require.Equal(t, "main", loaded.PullRequests.DefaultBase)
	require.Equal(t, "squash", loaded.PullRequests.MergeMethod)
	require.True(t, loaded.PullRequests.DeleteBranch)
	require.Equal(t, 5*time.Second, loaded.Telemetry.ShutdownTimeout)
	require.Empty(t, loaded.Issues.DefaultLabels)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	content := `
github:
  token_env: MY_TOKEN
pull_requests:
  default_base: develop
  merge_method: rebase
  delete_branch: false
issues:
  default_labels: [triage, bug]
telemetry:
  shutdown_timeout: 2s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ghops.yaml"), []byte(content), 0o644))

	loaded, err := Load("", dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "ghops.yaml"), loaded.FileUsed)
	require.Equal(t, "MY_TOKEN", loaded.GitHub.TokenEnv)
	require.Equal(t, "develop", loaded.PullRequests.DefaultBase)
	require.Equal(t, "rebase", loaded.PullRequests.MergeMethod)
	require.False(t, loaded.PullRequests.DeleteBranch)
	require.Equal(t, []string{"triage", "bug"}, loaded.Issues.DefaultLabels)
	require.Equal(t, 2*time.Second, loaded.Telemetry.ShutdownTimeout)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("GHOPS_PULL_REQUESTS_MERGE_METHOD", "merge")
	t.Setenv("GHOPS_ISSUES_DEFAULT_LABELS", "a,b")
	t.Setenv("GHOPS_TELEMETRY_SHUTDOWN_TIMEOUT", "250ms")

	loaded, err := Load("", t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "merge", loaded.PullRequests.MergeMethod)
	require.Equal(t, []string{"a", "b"}, loaded.Issues.DefaultLabels)
	require.Equal(t, 250*time.Millisecond, loaded.Telemetry.ShutdownTimeout)
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidMergeMethod(t *testing.T) {
	t.Setenv("GHOPS_PULL_REQUESTS_MERGE_METHOD", "octopus")

	_, err := Load("", t.TempDir())
	require.ErrorContains(t, err, "merge_method")
}

func TestValidate_TelemetryEndpoint(t *testing.T) {
	cfg := Config{
		GitHub:       GitHubConfig{TokenEnv: "T"},
		PullRequests: PullRequestsConfig{DefaultBase: "main", MergeMethod: "merge"},
		Telemetry:    TelemetryConfig{Enabled: true},
	}
	require.Error(t, cfg.Validate())

	cfg.Telemetry.Endpoint = "collector:4318"
	require.NoError(t, cfg.Validate())
}
