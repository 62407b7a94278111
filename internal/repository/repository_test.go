package repository

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/google/go-github/v72/github"
	"github.com/stretchr/testify/require"

	"github.com/cchalm/ghops/internal/filesystem"
	"github.com/cchalm/ghops/internal/git"
	githubpkg "github.com/cchalm/ghops/internal/github"
	"github.com/cchalm/ghops/internal/github/githubtest"
	"github.com/cchalm/ghops/internal/ui"
)

var repo = githubpkg.MustParseRepoName("o/r")

func newService(t *testing.T) (*githubtest.Fake, *Service, *bytes.Buffer) {
	t.Helper()
	fake := githubtest.New()
	fake.AddRepo("o/r", "main", map[string]string{
		"README.md":   "# r",
		"src/main.go": "package main",
		"src/util.go": "package main\n",
	})
	var out bytes.Buffer
	return fake, NewService(fake.Client(), ui.NewReporter(&out, 0), nil), &out
}

func TestCreateRepository(t *testing.T) {
	fake, svc, out := newService(t)

	created, err := svc.CreateRepository(context.Background(), CreateOptions{Name: "tool", Description: "d", Private: true, AutoInit: true, Organization: "acme"})
	require.NoError(t, err)
	require.Equal(t, "acme/tool", created.GetFullName())

	call, ok := fake.Last("Repositories.Create")
	require.True(t, ok)
	require.Equal(t, "acme", call.Args[0])
	req := call.Args[1].(*github.Repository)
	require.True(t, req.GetPrivate())
	require.True(t, req.GetAutoInit())
	require.Nil(t, req.GitignoreTemplate)
	require.Contains(t, out.String(), "✓ Created repository: acme/tool\n")
}

func TestCreateRepository_ErrorIsPrintedAndReturned(t *testing.T) {
	_, svc, out := newService(t)
	_, err := svc.CreateRepository(context.Background(), CreateOptions{Name: "dup"})
	require.NoError(t, err)

	_, err = svc.CreateRepository(context.Background(), CreateOptions{Name: "dup"})
	require.Error(t, err)
	require.Equal(t, 422, githubpkg.StatusCode(err))
	require.Contains(t, out.String(), "✗ Error creating repository: name already exists on this account\n")
}

func TestCreateBranch_DefaultsToDefaultBranchHead(t *testing.T) {
	fake, svc, out := newService(t)
	mainHead := fake.Head("o/r", "main")

	ref, err := svc.CreateBranch(context.Background(), repo, "feat-1", "", "")
	require.NoError(t, err)
	require.Equal(t, "refs/heads/feat-1", ref.GetRef())
	require.Equal(t, mainHead, ref.GetObject().GetSHA())
	require.Equal(t, mainHead, fake.Head("o/r", "feat-1"))

	call, ok := fake.Last("Git.CreateRef")
	require.True(t, ok)
	require.Equal(t, "refs/heads/feat-1", call.Args[2].(*github.Reference).GetRef())
	require.Contains(t, out.String(), "✓ Created branch 'feat-1' from 'main'\n")
}

func TestCreateBranch_StaleSource(t *testing.T) {
	fake, svc, _ := newService(t)

	_, err := svc.CreateBranch(context.Background(), repo, "feat-1", "main", "0000000")
	require.ErrorIs(t, err, git.ErrStaleRef)
	require.Zero(t, fake.Count("Git.CreateRef"))
}

func TestPushFiles_OneCommitOneRefUpdate(t *testing.T) {
	fake, svc, out := newService(t)
	before := fake.Head("o/r", "main")

	commit, err := svc.PushFiles(context.Background(), repo, []File{
		{Path: "a.txt", Content: "first"},
		{Path: "docs/b.md", Content: "b"},
		{Path: "a.txt", Content: "second"},
	}, "Add files", PushOptions{})
	require.NoError(t, err)

	require.Equal(t, 1, fake.Count("Git.CreateCommit"))
	require.Equal(t, 1, fake.Count("Git.UpdateRef"))
	update, _ := fake.Last("Git.UpdateRef")
	require.Equal(t, false, update.Args[3])
	require.Equal(t, commit.GetSHA(), fake.Head("o/r", "main"))
	require.Equal(t, before, commit.Parents[0].GetSHA())

	tree, _ := fake.Last("Git.CreateTree")
	entries := tree.Args[3].([]*github.TreeEntry)
	require.Len(t, entries, 2)
	require.Equal(t, "a.txt", entries[0].GetPath())
	require.Equal(t, "second", entries[0].GetContent())
	require.Equal(t, "100644", entries[0].GetMode())

	for path, want := range map[string]string{"a.txt": "second", "docs/b.md": "b", "README.md": "# r"} {
		got, ok := fake.File("o/r", "main", path)
		require.True(t, ok, path)
		require.Equal(t, want, got)
	}
	require.Contains(t, out.String(), "✓ Pushed 3 files to main\n")
	require.Contains(t, out.String(), "  Commit: "+commit.GetSHA()[:7]+" - Add files\n")
}

func TestPushFiles_WithDeletions(t *testing.T) {
	fake, svc, _ := newService(t)

	_, err := svc.PushFiles(context.Background(), repo, []File{{Path: "NEW.md", Content: "n"}}, "Replace readme", PushOptions{
		Branch: "main",
		Delete: []string{"README.md"},
	})
	require.NoError(t, err)
	_, ok := fake.File("o/r", "main", "README.md")
	require.False(t, ok)
	_, ok = fake.File("o/r", "main", "NEW.md")
	require.True(t, ok)
}

func TestPushFiles_DeletingMissingFileWritesNothing(t *testing.T) {
	fake, svc, _ := newService(t)

	_, err := svc.PushFiles(context.Background(), repo, nil, "Remove", PushOptions{Branch: "main", Delete: []string{"nope.txt"}})
	require.ErrorIs(t, err, filesystem.ErrFileNotFound)
	require.Zero(t, fake.Count("Git.CreateTree"))
}

func TestPushFiles_WriteOntoDirectoryIsRejected(t *testing.T) {
	fake, svc, _ := newService(t)

	_, err := svc.PushFiles(context.Background(), repo, []File{{Path: "src", Content: "x"}}, "Clobber", PushOptions{Branch: "main"})
	require.ErrorIs(t, err, filesystem.ErrIsDir)
	require.Zero(t, fake.Count("Git.CreateTree"))
	require.Zero(t, fake.Count("Git.CreateCommit"))

	content, ok := fake.File("o/r", "main", "src/main.go")
	require.True(t, ok)
	require.Equal(t, "package main", content)
}

func TestPushFiles_Empty(t *testing.T) {
	fake, svc, _ := newService(t)

	_, err := svc.PushFiles(context.Background(), repo, nil, "Nothing", PushOptions{})
	require.ErrorIs(t, err, git.ErrEmptyChangelist)
	require.Empty(t, fake.Calls)
}

func TestPushFiles_ExpectedSHAMismatch(t *testing.T) {
	fake, svc, _ := newService(t)

	_, err := svc.PushFiles(context.Background(), repo, []File{{Path: "a", Content: "a"}}, "m", PushOptions{Branch: "main", ExpectedSHA: "deadbeef"})
	require.ErrorIs(t, err, git.ErrStaleRef)
	require.Zero(t, fake.Count("Git.CreateTree"))
	require.Zero(t, fake.Count("Git.UpdateRef"))
}

// movingGit simulates another client pushing to the branch while a commit is being built
type movingGit struct {
	githubpkg.GitService
	onCreateCommit func()
}

func (mg *movingGit) CreateCommit(ctx context.Context, owner, repo string, commit *github.Commit, opts *github.CreateCommitOptions) (*github.Commit, *github.Response, error) {
	mg.onCreateCommit()
	return mg.GitService.CreateCommit(ctx, owner, repo, commit, opts)
}

func TestPushFiles_ConcurrentPushIsNotOverwritten(t *testing.T) {
	fake, _, _ := newService(t)
	client := fake.Client()
	var concurrent string
	client.Git = &movingGit{GitService: client.Git, onCreateCommit: func() {
		concurrent = fake.SetHead("o/r", "main", map[string]string{"theirs.txt": "theirs"})
	}}
	svc := NewService(client, ui.Discard(), nil)

	_, err := svc.PushFiles(context.Background(), repo, []File{{Path: "ours.txt", Content: "ours"}}, "m", PushOptions{Branch: "main"})
	require.ErrorIs(t, err, git.ErrStaleRef)
	require.Equal(t, concurrent, fake.Head("o/r", "main"))
	_, ok := fake.File("o/r", "main", "theirs.txt")
	require.True(t, ok)
}

func TestDeleteFile(t *testing.T) {
	fake, svc, out := newService(t)

	result, err := svc.DeleteFile(context.Background(), repo, "README.md", "Remove readme", "", "")
	require.NoError(t, err)
	require.Equal(t, fake.Head("o/r", "main"), result.Commit.GetSHA())
	_, ok := fake.File("o/r", "main", "README.md")
	require.False(t, ok)

	call, _ := fake.Last("Repositories.DeleteFile")
	opts := call.Args[3].(*github.RepositoryContentFileOptions)
	require.Equal(t, githubtest.BlobSHA("# r"), opts.GetSHA())
	require.Equal(t, "main", opts.GetBranch())
	require.Contains(t, out.String(), "✓ Deleted README.md from main\n")
}

func TestDeleteFile_ChangedSinceRead(t *testing.T) {
	fake, svc, _ := newService(t)

	_, err := svc.DeleteFile(context.Background(), repo, "README.md", "Remove", "main", githubtest.BlobSHA("old content"))
	require.ErrorIs(t, err, git.ErrStaleRef)
	_, ok := fake.File("o/r", "main", "README.md")
	require.True(t, ok)
}

func TestDeleteFile_Missing(t *testing.T) {
	fake, svc, _ := newService(t)

	_, err := svc.DeleteFile(context.Background(), repo, "missing.txt", "Remove", "main", "")
	require.ErrorIs(t, err, filesystem.ErrFileNotFound)
	require.Zero(t, fake.Count("Repositories.DeleteFile"))
}

func TestGetFileContents(t *testing.T) {
	_, svc, out := newService(t)

	file, err := svc.GetFileContents(context.Background(), repo, "src/main.go", "")
	require.NoError(t, err)
	require.False(t, file.IsDir)
	require.Equal(t, "package main", file.Content)

	dir, err := svc.GetFileContents(context.Background(), repo, "src", "main")
	require.NoError(t, err)
	require.True(t, dir.IsDir)
	require.Len(t, dir.Entries, 2)
	require.Equal(t, "src/main.go", dir.Entries[0].Path)

	require.Contains(t, out.String(), "✓ Retrieved src/main.go\n")
	require.Contains(t, out.String(), "✓ Retrieved directory src (2 items)\n")
}

func TestSearchCode(t *testing.T) {
	fake, svc, out := newService(t)
	fake.CodeSearchResults = []*github.CodeResult{{Path: github.Ptr("src/main.go")}}

	results, err := svc.SearchCode(context.Background(), "func main", &repo)
	require.NoError(t, err)
	require.Len(t, results, 1)

	call, _ := fake.Last("Search.Code")
	require.Equal(t, "func main repo:o/r", call.Args[0])
	require.Contains(t, out.String(), "Found 1 code results for: func main repo:o/r\n")
}

func TestSearchCode_FollowsPages(t *testing.T) {
	fake, svc, out := newService(t)
	total := perPage + 3
	for i := range total {
		fake.CodeSearchResults = append(fake.CodeSearchResults, &github.CodeResult{Path: github.Ptr(fmt.Sprintf("f%d.go", i))})
	}

	results, err := svc.SearchCode(context.Background(), "TODO", nil)
	require.NoError(t, err)
	require.Len(t, results, total)
	require.Equal(t, fmt.Sprintf("f%d.go", total-1), results[total-1].GetPath())
	require.Equal(t, 2, fake.Count("Search.Code"))
	require.Contains(t, out.String(), fmt.Sprintf("Found %d code results for: TODO\n", total))
}

func TestFork_AcceptedIsSuccess(t *testing.T) {
	fake, svc, out := newService(t)
	fake.ForkAccepted = true

	fork, err := svc.Fork(context.Background(), repo, "acme")
	require.NoError(t, err)
	require.Equal(t, "acme/r", fork.GetFullName())
	require.Contains(t, out.String(), "✓ Forked o/r to acme/r\n")
}

func TestListBranches_MarksDefault(t *testing.T) {
	fake, svc, out := newService(t)
	fake.SetHead("o/r", "dev", map[string]string{"x": "y"})

	branches, err := svc.ListBranches(context.Background(), repo)
	require.NoError(t, err)
	require.Equal(t, []Branch{
		{Name: "dev", SHA: fake.Head("o/r", "dev")},
		{Name: "main", SHA: fake.Head("o/r", "main"), Default: true},
	}, branches)
	require.Contains(t, out.String(), "Found 2 branches in o/r\n  - dev\n  - main (default)\n")
}

func TestListBranches_FollowsPages(t *testing.T) {
	fake, svc, _ := newService(t)
	for i := range perPage {
		fake.SetHead("o/r", fmt.Sprintf("b%03d", i), map[string]string{"x": "y"})
	}

	branches, err := svc.ListBranches(context.Background(), repo)
	require.NoError(t, err)
	require.Len(t, branches, perPage+1)
	require.Equal(t, 2, fake.Count("Repositories.ListBranches"))
	last := branches[len(branches)-1]
	require.Equal(t, "main", last.Name)
	require.True(t, last.Default)
}

func TestGetTree_PrefixFilter(t *testing.T) {
	fake, svc, out := newService(t)

	entries, err := svc.GetTree(context.Background(), repo, TreeOptions{Recursive: true, PathPrefix: "src/"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.Contains(t, e.GetPath(), "src/")
	}

	call, _ := fake.Last("Git.GetTree")
	require.Equal(t, "main", call.Args[2])
	require.Equal(t, true, call.Args[3])
	require.Contains(t, out.String(), "Retrieved tree with 2 items\n")
}
