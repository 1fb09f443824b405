package pack

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
)

var (
	ErrGHNotFound  = errors.New("gh not found")
	ErrGHNotAuthed = errors.New("gh not authenticated")
)

// Runner executes an external command and captures its output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err := cmd.Run()
	return out.String(), errOut.String(), err
}

// Gist publishes packs as private GitHub gists through the gh CLI.
type Gist struct {
	Runner Runner
}

func NewGist() *Gist {
	return &Gist{Runner: ExecRunner{}}
}

// Check reports ErrGHNotFound or ErrGHNotAuthed when gists cannot be
// created.
func (g *Gist) Check(ctx context.Context) error {
	if _, _, err := g.Runner.Run(ctx, "gh", "--version"); err != nil {
		return ErrGHNotFound
	}
	if _, _, err := g.Runner.Run(ctx, "gh", "auth", "status"); err != nil {
		return ErrGHNotAuthed
	}
	return nil
}

// Available is Check without the reason.
func (g *Gist) Available(ctx context.Context) bool {
	return g.Check(ctx) == nil
}

// Create uploads path as a private gist and returns its URL, which may be
// empty if gh printed nothing.
func (g *Gist) Create(ctx context.Context, title, path string) (string, error) {
	stdout, stderr, err := g.Runner.Run(ctx, "gh", "gist", "create", "--private", "--desc", title, path)
	if err != nil {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = "failed to create gist"
		}
		packLog.Warn("gist_create_failed", slog.String("path", path), slog.String("error", msg))
		return "", errors.New(msg)
	}
	url := strings.TrimSpace(stdout)
	packLog.Info("gist_created", slog.String("url", url))
	return url, nil
}
