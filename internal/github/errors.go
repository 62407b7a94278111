package github

import (
	"errors"
	"net/http"

	"github.com/google/go-github/v72/github"
)

// StatusCode returns the HTTP status of a failed GitHub API call, or 0 if err did not come from the API
func StatusCode(err error) int {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	var acceptedErr *github.AcceptedError
	if errors.As(err, &acceptedErr) {
		return http.StatusAccepted
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// ErrorMessage extracts the API's message from err, falling back to err.Error()
func ErrorMessage(err error) string {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Message != "" {
		return ghErr.Message
	}
	return err.Error()
}
