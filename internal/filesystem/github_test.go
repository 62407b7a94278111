package filesystem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	githubpkg "github.com/cchalm/ghops/internal/github"
	"github.com/cchalm/ghops/internal/github/githubtest"
)

func newGithubFS(t *testing.T, ref string) (*githubtest.Fake, GithubFileSystem) {
	t.Helper()
	fake := githubtest.New()
	fake.AddRepo("o/r", "main", map[string]string{
		"README.md":       "hello",
		"docs/guide.md":   "guide",
		"docs/api/ref.md": "ref",
	})
	return fake, NewGithubFileSystem(fake.Client().Repositories, githubpkg.MustParseRepoName("o/r"), ref)
}

func TestGithubFileSystem_Read(t *testing.T) {
	ctx := context.Background()
	_, fs := newGithubFS(t, "main")

	content, err := fs.Read(ctx, "docs/guide.md")
	require.NoError(t, err)
	require.Equal(t, "guide", content)

	_, err = fs.Read(ctx, "missing.md")
	require.ErrorIs(t, err, ErrFileNotFound)

	_, err = fs.Read(ctx, "docs")
	require.ErrorIs(t, err, ErrIsDir)
}

func TestGithubFileSystem_Stat(t *testing.T) {
	_, fs := newGithubFS(t, "")

	entry, err := fs.Stat(context.Background(), "README.md")
	require.NoError(t, err)
	require.Equal(t, githubtest.BlobSHA("hello"), entry.SHA)
	require.Equal(t, "file", entry.Type)
}

func TestGithubFileSystem_IsDir(t *testing.T) {
	ctx := context.Background()
	_, fs := newGithubFS(t, "main")

	isDir, err := fs.IsDir(ctx, "README.md")
	require.NoError(t, err)
	require.False(t, isDir)

	isDir, err = fs.IsDir(ctx, "docs/api")
	require.NoError(t, err)
	require.True(t, isDir)

	isDir, err = fs.IsDir(ctx, "nope")
	require.NoError(t, err)
	require.False(t, isDir)
}

func TestGithubFileSystem_UnderMemDiff(t *testing.T) {
	ctx := context.Background()
	fake, fs := newGithubFS(t, "main")
	mem := NewMemDiffFileSystem(fs)

	require.NoError(t, mem.Delete(ctx, "README.md"))
	require.ErrorIs(t, mem.Delete(ctx, "missing.md"), ErrFileNotFound)
	require.Equal(t, []string{"README.md"}, mem.GetChangelist().Paths())
	require.Zero(t, fake.Count("Git.CreateTree"))

	require.ErrorIs(t, mem.Write(ctx, "docs", "x"), ErrIsDir)
	require.NoError(t, mem.Write(ctx, "docs/new.md", "x"))
	require.Equal(t, []string{"README.md", "docs/new.md"}, mem.GetChangelist().Paths())
}
