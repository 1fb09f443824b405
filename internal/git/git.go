// Package git resolves repository metadata for session working directories
// by shelling out to the git binary.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds every git invocation.
const DefaultTimeout = 5 * time.Second

// RepoInfo describes the repository containing a directory. All fields are
// empty when the directory is not inside a repository.
type RepoInfo struct {
	Root   string
	Name   string
	Branch string
	SHA    string
}

// IsZero reports whether no repository was found.
func (r RepoInfo) IsZero() bool {
	return r.Root == ""
}

func run(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// GetRepoRoot returns the root directory of the git repository containing dir
func GetRepoRoot(ctx context.Context, dir string) (string, error) {
	root, err := run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	if root == "" {
		return "", fmt.Errorf("not a git repository: %s", dir)
	}
	return root, nil
}

// GetCurrentBranch returns the current branch name for the repository at dir
func GetCurrentBranch(ctx context.Context, dir string) (string, error) {
	branch, err := run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	return branch, nil
}

// GetShortSHA returns the abbreviated HEAD commit for the repository at dir
func GetShortSHA(ctx context.Context, dir string) (string, error) {
	sha, err := run(ctx, dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD commit: %w", err)
	}
	return sha, nil
}

// ResolveRepoInfo returns repository metadata for dir. Any git failure
// yields empty values; a repository without commits keeps its root and name.
func ResolveRepoInfo(ctx context.Context, dir string) RepoInfo {
	if strings.TrimSpace(dir) == "" {
		return RepoInfo{}
	}
	root, err := GetRepoRoot(ctx, dir)
	if err != nil {
		return RepoInfo{}
	}
	info := RepoInfo{Root: root, Name: filepath.Base(root)}
	if branch, err := GetCurrentBranch(ctx, dir); err == nil {
		info.Branch = branch
	}
	if sha, err := GetShortSHA(ctx, dir); err == nil {
		info.SHA = sha
	}
	return info
}

// Resolver resolves repository metadata with the git binary.
type Resolver struct{}

// Resolve implements the repository resolver used by the indexer.
func (Resolver) Resolve(ctx context.Context, dir string) RepoInfo {
	return ResolveRepoInfo(ctx, dir)
}
