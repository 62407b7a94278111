package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/go-github/v72/github"
	"golang.org/x/oauth2"
)

// DefaultTokenEnv is the environment variable holding the personal access token unless configured otherwise
const DefaultTokenEnv = "GITHUB_PERSONAL_ACCESS_TOKEN"

// ErrMissingCredential is returned when the credential environment variable is unset or blank. It is always
// returned before any request is sent
var ErrMissingCredential = errors.New("missing GitHub credential")

// ClientOptions controls how NewClientFromEnv builds the client
type ClientOptions struct {
	// TokenEnv names the environment variable holding the token. Defaults to DefaultTokenEnv
	TokenEnv string
	// BaseURL and UploadURL point the client at a GitHub Enterprise Server instance when set
	BaseURL   string
	UploadURL string
	// Transport is the round tripper underneath the oauth2 layer. Defaults to http.DefaultTransport
	Transport http.RoundTripper
	// LookupEnv replaces os.LookupEnv, mostly for tests
	LookupEnv func(key string) (string, bool)
}

// ResolveToken reads the credential from the configured environment variable
func ResolveToken(opts ClientOptions) (string, error) {
	key := opts.TokenEnv
	if key == "" {
		key = DefaultTokenEnv
	}
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	value, _ := lookup(key)
	token := strings.TrimSpace(value)
	if token == "" {
		return "", fmt.Errorf("%w: environment variable %s not set", ErrMissingCredential, key)
	}
	return token, nil
}

// NewClientFromEnv resolves the credential and returns an authenticated Client. No network activity happens
// here; a missing credential fails immediately
func NewClientFromEnv(ctx context.Context, opts ClientOptions) (*Client, error) {
	token, err := ResolveToken(opts)
	if err != nil {
		return nil, err
	}

	gh, err := newGithubClient(ctx, token, opts)
	if err != nil {
		return nil, err
	}
	return NewClient(gh), nil
}

func newGithubClient(ctx context.Context, token string, opts ClientOptions) (*github.Client, error) {
	if opts.Transport != nil {
		// oauth2 layers its token transport over the client found in the context
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: opts.Transport})
	}
	tokenSource := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	httpClient := oauth2.NewClient(ctx, tokenSource)
	gh := github.NewClient(httpClient)

	if opts.BaseURL == "" {
		return gh, nil
	}
	uploadURL := opts.UploadURL
	if uploadURL == "" {
		uploadURL = opts.BaseURL
	}
	gh, err := gh.WithEnterpriseURLs(opts.BaseURL, uploadURL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure enterprise URLs: %w", err)
	}
	return gh, nil
}
