package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/go-github/v72/github"
	"github.com/stretchr/testify/require"
)

func envWith(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func countingServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"full_name":"o/r","default_branch":"main"}`))
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestNewClientFromEnv_MissingCredentialMakesNoRequests(t *testing.T) {
	server, requests := countingServer(t)

	for _, env := range []map[string]string{
		{},
		{DefaultTokenEnv: ""},
		{DefaultTokenEnv: "   "},
	} {
		client, err := NewClientFromEnv(context.Background(), ClientOptions{
			BaseURL:   server.URL + "/",
			LookupEnv: envWith(env),
		})
		require.ErrorIs(t, err, ErrMissingCredential)
		require.ErrorContains(t, err, DefaultTokenEnv)
		require.Nil(t, client)
	}
	require.Zero(t, requests.Load())
}

func TestNewClientFromEnv_SendsToken(t *testing.T) {
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"full_name":"o/r","default_branch":"trunk"}`))
	}))
	defer server.Close()

	client, err := NewClientFromEnv(context.Background(), ClientOptions{
		TokenEnv:  "CUSTOM_TOKEN",
		BaseURL:   server.URL + "/",
		LookupEnv: envWith(map[string]string{"CUSTOM_TOKEN": " secret \n"}),
	})
	require.NoError(t, err)

	repo, _, err := client.Repositories.Get(context.Background(), "o", "r")
	require.NoError(t, err)
	require.Equal(t, "trunk", repo.GetDefaultBranch())
	require.Equal(t, "Bearer secret", authHeader)
}

func TestNewClientFromEnv_UsesTransport(t *testing.T) {
	server, requests := countingServer(t)
	var seen atomic.Int32
	transport := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		seen.Add(1)
		return http.DefaultTransport.RoundTrip(req)
	})

	client, err := NewClientFromEnv(context.Background(), ClientOptions{
		BaseURL:   server.URL + "/",
		Transport: transport,
		LookupEnv: envWith(map[string]string{DefaultTokenEnv: "t"}),
	})
	require.NoError(t, err)

	_, _, err = client.Repositories.Get(context.Background(), "o", "r")
	require.NoError(t, err)
	require.Equal(t, int32(1), seen.Load())
	require.Equal(t, int32(1), requests.Load())
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestParseRepoName(t *testing.T) {
	tests := []struct {
		input string
		owner string
		name  string
	}{
		{input: "o/r", owner: "o", name: "r"},
		{input: "github.com/cli/go-gh", owner: "cli", name: "go-gh"},
		{input: "https://github.com/google/go-github", owner: "google", name: "go-github"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			repo, err := ParseRepoName(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.owner, repo.Owner)
			require.Equal(t, tt.name, repo.Name)
			require.Equal(t, tt.owner+"/"+tt.name, repo.String())
		})
	}

	_, err := ParseRepoName("just-a-name")
	require.Error(t, err)
}

func TestStatusCode(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusConflict, Request: &http.Request{Method: http.MethodPut}}
	err := &github.ErrorResponse{Response: resp, Message: "Head branch was modified"}

	require.Equal(t, http.StatusConflict, StatusCode(err))
	require.Equal(t, "Head branch was modified", ErrorMessage(err))
	require.False(t, IsNotFound(err))
	require.Equal(t, http.StatusAccepted, StatusCode(&github.AcceptedError{}))
	require.Zero(t, StatusCode(context.Canceled))
	require.Equal(t, "context canceled", ErrorMessage(context.Canceled))
}
