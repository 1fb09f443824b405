package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestRepo(t *testing.T, dir string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	for _, args := range [][]string{
		{"init", "-b", "main"},
		{"config", "user.email", "test@test.com"},
		{"config", "user.name", "Test User"},
		{"config", "commit.gpgsign", "false"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		require.NoError(t, cmd.Run(), "git %v", args)
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Test Repo"), 0o644))
	for _, args := range [][]string{{"add", "."}, {"commit", "-m", "initial"}} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		require.NoError(t, cmd.Run(), "git %v", args)
	}
}

func TestResolveRepoInfo(t *testing.T) {
	dir := t.TempDir()
	repo := filepath.Join(dir, "my-project")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, "src"), 0o755))
	createTestRepo(t, repo)

	info := ResolveRepoInfo(context.Background(), filepath.Join(repo, "src"))
	require.False(t, info.IsZero())

	wantRoot, err := filepath.EvalSymlinks(repo)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(info.Root)
	require.NoError(t, err)
	assert.Equal(t, wantRoot, gotRoot)
	assert.Equal(t, "my-project", info.Name)
	assert.Equal(t, "main", info.Branch)
	assert.NotEmpty(t, info.SHA)

	sha, err := GetShortSHA(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, info.SHA, sha)
}

func TestResolveRepoInfoWithoutCommits(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	repo := filepath.Join(t.TempDir(), "fresh")
	require.NoError(t, os.MkdirAll(repo, 0o755))
	cmd := exec.Command("git", "init", "-b", "main")
	cmd.Dir = repo
	require.NoError(t, cmd.Run())

	info := ResolveRepoInfo(context.Background(), repo)
	assert.Equal(t, "fresh", info.Name)
	assert.NotEmpty(t, info.Root)
	assert.Empty(t, info.SHA)

	_, err := GetShortSHA(context.Background(), repo)
	assert.Error(t, err)
}

func TestResolveRepoInfoOutsideRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	assert.True(t, ResolveRepoInfo(context.Background(), dir).IsZero())
	assert.True(t, Resolver{}.Resolve(context.Background(), filepath.Join(dir, "missing")).IsZero())
	assert.True(t, ResolveRepoInfo(context.Background(), "").IsZero())

	_, err := GetRepoRoot(context.Background(), dir)
	assert.Error(t, err)
	_, err = GetCurrentBranch(context.Background(), dir)
	assert.Error(t, err)
}
