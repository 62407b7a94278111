package github

import (
	"fmt"

	"github.com/cli/go-gh/v2/pkg/repository"
)

// RepoName identifies a repository by owner and name
type RepoName struct {
	Owner string
	Name  string
}

// ParseRepoName accepts "owner/repo", "host/owner/repo" or a repository URL
func ParseRepoName(s string) (RepoName, error) {
	r, err := repository.Parse(s)
	if err != nil {
		return RepoName{}, fmt.Errorf("invalid repository '%s', expected owner/repo: %w", s, err)
	}
	return RepoName{Owner: r.Owner, Name: r.Name}, nil
}

// MustParseRepoName is ParseRepoName for literals known to be valid
func MustParseRepoName(s string) RepoName {
	r, err := ParseRepoName(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r RepoName) String() string {
	return r.Owner + "/" + r.Name
}
