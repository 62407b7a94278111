package git

import (
	"context"
	"testing"

	"github.com/google/go-github/v72/github"
	"github.com/stretchr/testify/require"

	githubpkg "github.com/cchalm/ghops/internal/github"
	"github.com/cchalm/ghops/internal/github/githubtest"
)

func newTestRepo(t *testing.T) (*githubtest.Fake, GitRepo) {
	t.Helper()
	fake := githubtest.New()
	fake.AddRepo("o/r", "main", map[string]string{
		"README.md":   "hello",
		"src/main.go": "package main",
	})
	return fake, NewGithubGitRepo(fake.Client(), githubpkg.MustParseRepoName("o/r"), nil)
}

func TestCreateBranch_PointsAtBaseHead(t *testing.T) {
	ctx := context.Background()
	fake, repo := newTestRepo(t)

	ref, err := repo.CreateBranch(ctx, "main", "feat-1", "")
	require.NoError(t, err)
	require.Equal(t, "refs/heads/feat-1", ref.GetRef())
	require.Equal(t, fake.Head("o/r", "main"), fake.Head("o/r", "feat-1"))
}

func TestCreateBranch_ExpectedSHAMismatch(t *testing.T) {
	ctx := context.Background()
	fake, repo := newTestRepo(t)

	_, err := repo.CreateBranch(ctx, "main", "feat-1", "deadbeef")
	require.ErrorIs(t, err, ErrStaleRef)
	require.Zero(t, fake.Count("Git.CreateRef"))
	require.Empty(t, fake.Head("o/r", "feat-1"))
}

func TestCreateBranch_AlreadyExists(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestRepo(t)

	_, err := repo.CreateBranch(ctx, "main", "feat-1", "")
	require.NoError(t, err)
	_, err = repo.CreateBranch(ctx, "main", "feat-1", "")
	require.Error(t, err)
	require.Equal(t, 422, githubpkg.StatusCode(err))
}

func TestCommitChanges_SingleCommitAndRefUpdate(t *testing.T) {
	ctx := context.Background()
	fake, repo := newTestRepo(t)
	parent := fake.Head("o/r", "main")

	cl := NewMemChangelist()
	cl.Write("a.txt", "A")
	cl.Write("dir/b.txt", "B")
	cl.Write("README.md", "updated")

	commit, err := repo.CommitChanges(ctx, "main", cl, "add files", "")
	require.NoError(t, err)
	require.Equal(t, 1, fake.Count("Git.CreateCommit"))
	require.Equal(t, 1, fake.Count("Git.UpdateRef"))
	require.Equal(t, 1, fake.Count("Git.CreateTree"))
	require.Equal(t, commit.GetSHA(), fake.Head("o/r", "main"))
	require.Len(t, commit.Parents, 1)
	require.Equal(t, parent, commit.Parents[0].GetSHA())

	for path, want := range map[string]string{
		"a.txt":       "A",
		"dir/b.txt":   "B",
		"README.md":   "updated",
		"src/main.go": "package main",
	} {
		got, ok := fake.File("o/r", "main", path)
		require.True(t, ok, path)
		require.Equal(t, want, got, path)
	}

	update, ok := fake.Last("Git.UpdateRef")
	require.True(t, ok)
	require.Equal(t, false, update.Args[3])
}

func TestCommitChanges_EntriesFollowChangelistOrder(t *testing.T) {
	ctx := context.Background()
	fake, repo := newTestRepo(t)

	cl := NewMemChangelist()
	cl.Write("z.txt", "1")
	cl.Write("a.txt", "2")
	cl.Write("z.txt", "3")
	cl.Delete("src/main.go")

	_, err := repo.CommitChanges(ctx, "main", cl, "ordered", "")
	require.NoError(t, err)

	call, ok := fake.Last("Git.CreateTree")
	require.True(t, ok)
	entries := call.Args[3].([]*github.TreeEntry)
	require.Len(t, entries, 3)
	require.Equal(t, "z.txt", entries[0].GetPath())
	require.Equal(t, "3", entries[0].GetContent())
	require.Equal(t, "a.txt", entries[1].GetPath())
	require.Equal(t, "src/main.go", entries[2].GetPath())
	require.Nil(t, entries[2].SHA)
	require.Nil(t, entries[2].Content)

	_, exists := fake.File("o/r", "main", "src/main.go")
	require.False(t, exists)
}

func TestCommitChanges_Empty(t *testing.T) {
	ctx := context.Background()
	fake, repo := newTestRepo(t)

	_, err := repo.CommitChanges(ctx, "main", NewMemChangelist(), "nothing", "")
	require.ErrorIs(t, err, ErrEmptyChangelist)
	require.Empty(t, fake.Calls)
}

func TestCommitChanges_ExpectedSHAMismatch(t *testing.T) {
	ctx := context.Background()
	fake, repo := newTestRepo(t)

	cl := NewMemChangelist()
	cl.Write("a.txt", "A")
	_, err := repo.CommitChanges(ctx, "main", cl, "msg", "0000")
	require.ErrorIs(t, err, ErrStaleRef)
	require.Zero(t, fake.Count("Git.CreateTree"))
	require.Zero(t, fake.Count("Git.CreateCommit"))
}

func TestCommitChanges_RefMovedDuringCommit(t *testing.T) {
	ctx := context.Background()
	fake, repo := newTestRepo(t)

	// Someone else pushes after we read the branch head
	moved := false
	cl := &hookChangelist{MemChangelist: NewMemChangelist(), onIterate: func() {
		if !moved {
			fake.SetHead("o/r", "main", map[string]string{"other.txt": "theirs"})
			moved = true
		}
	}}
	cl.Write("a.txt", "A")

	_, err := repo.CommitChanges(ctx, "main", cl, "msg", "")
	require.ErrorIs(t, err, ErrStaleRef)

	// Their work survives
	content, ok := fake.File("o/r", "main", "other.txt")
	require.True(t, ok)
	require.Equal(t, "theirs", content)
	_, ok = fake.File("o/r", "main", "a.txt")
	require.False(t, ok)
}

func TestDeleteBranch(t *testing.T) {
	ctx := context.Background()
	fake, repo := newTestRepo(t)

	_, err := repo.CreateBranch(ctx, "main", "feat-1", "")
	require.NoError(t, err)
	require.NoError(t, repo.DeleteBranch(ctx, "feat-1"))
	require.Empty(t, fake.Head("o/r", "feat-1"))

	call, ok := fake.Last("Git.DeleteRef")
	require.True(t, ok)
	require.Equal(t, "heads/feat-1", call.Args[2])
}

func TestDefaultBranch(t *testing.T) {
	_, repo := newTestRepo(t)
	branch, err := repo.DefaultBranch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "main", branch)
}

func TestShortSHA(t *testing.T) {
	require.Equal(t, "0123456", ShortSHA("0123456789abcdef"))
	require.Equal(t, "abc", ShortSHA("abc"))
	require.Equal(t, "", ShortSHA(""))
}

// hookChangelist runs onIterate when the committer first walks the modified files
type hookChangelist struct {
	*MemChangelist
	onIterate func()
}

func (hc *hookChangelist) ForEachModified(fn func(path string, content string) error) error {
	hc.onIterate()
	return hc.MemChangelist.ForEachModified(fn)
}
