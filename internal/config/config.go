// Package config loads ghops configuration from a YAML file, GHOPS_* environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	fileName  = "ghops"
	fileType  = "yaml"
	envPrefix = "GHOPS"
)

var MergeMethods = []string{"merge", "squash", "rebase"}

// Config holds the configuration for the CLI
type Config struct {
	GitHub       GitHubConfig       `mapstructure:"github"`
	Templates    TemplatesConfig    `mapstructure:"templates"`
	Issues       IssuesConfig       `mapstructure:"issues"`
	PullRequests PullRequestsConfig `mapstructure:"pull_requests"`
	Log          LogConfig          `mapstructure:"log"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
}

type GitHubConfig struct {
	TokenEnv  string `mapstructure:"token_env"` // Name of the environment variable holding the token
	BaseURL   string `mapstructure:"base_url"`
	UploadURL string `mapstructure:"upload_url"`
}

type TemplatesConfig struct {
	Dir string `mapstructure:"dir"`
}

type IssuesConfig struct {
	DefaultLabels []string `mapstructure:"default_labels"`
}

type PullRequestsConfig struct {
	DefaultBase  string `mapstructure:"default_base"`
	MergeMethod  string `mapstructure:"merge_method"`
	DeleteBranch bool   `mapstructure:"delete_branch"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoint        string        `mapstructure:"endpoint"`
	Insecure        bool          `mapstructure:"insecure"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Defaults returns the value of every key when nothing overrides it
func Defaults() map[string]any {
	return map[string]any{
		"github.token_env":            "GITHUB_PERSONAL_ACCESS_TOKEN",
		"github.base_url":             "",
		"github.upload_url":           "",
		"templates.dir":               "assets",
		"issues.default_labels":       []string{},
		"pull_requests.default_base":  "main",
		"pull_requests.merge_method":  "squash",
		"pull_requests.delete_branch": true,
		"log.level":                   "warn",
		"log.format":                  "console",
		"telemetry.enabled":           false,
		"telemetry.endpoint":          "localhost:4318",
		"telemetry.insecure":          true,
		"telemetry.shutdown_timeout":  "5s",
	}
}

// Loaded is a configuration together with where it came from
type Loaded struct {
	Config
	FileUsed string
}

// Load reads configuration. With an empty path, ghops.yaml is searched for in searchPaths and its absence is not an
// error. An explicit path must exist
func Load(path string, searchPaths ...string) (Loaded, error) {
	v := viper.New()
	v.SetConfigName(fileName)
	v.SetConfigType(fileType)
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Loaded{}, fmt.Errorf("failed to read configuration: %w", err)
		}
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Loaded{}, fmt.Errorf("failed to read configuration: %w", err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return Loaded{}, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Loaded{}, err
	}

	return Loaded{Config: cfg, FileUsed: v.ConfigFileUsed()}, nil
}

// Validate checks that enumerated values are known and required values are present
func (c Config) Validate() error {
	if strings.TrimSpace(c.GitHub.TokenEnv) == "" {
		return fmt.Errorf("github.token_env must not be empty")
	}
	if !slices.Contains(MergeMethods, c.PullRequests.MergeMethod) {
		return fmt.Errorf("invalid pull_requests.merge_method '%s', must be one of %s", c.PullRequests.MergeMethod, strings.Join(MergeMethods, ", "))
	}
	if c.PullRequests.DefaultBase == "" {
		return fmt.Errorf("pull_requests.default_base must not be empty")
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}
	return nil
}
