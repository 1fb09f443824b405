// Package pack serializes one indexed session into a portable snapshot
// for export, fork, share and import.
package pack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/asheshgoplani/codex-sessions/internal/logging"
	"github.com/asheshgoplani/codex-sessions/internal/statedb"
)

var packLog = logging.ForComponent(logging.CompPack)

// Schema is the pack format version written to JSON.
const Schema = 1

const timeLayout = "2006-01-02 15:04"

type Repo struct {
	Root   string `json:"root"`
	Name   string `json:"name"`
	Branch string `json:"branch"`
	SHA    string `json:"sha"`
}

type Annotations struct {
	Pinned bool   `json:"pinned"`
	Tags   string `json:"tags"`
	Note   string `json:"note"`
}

// Pack is a serialized session snapshot.
type Pack struct {
	Schema      int         `json:"schema"`
	CreatedAt   int64       `json:"created_at"`
	UpdatedAt   int64       `json:"updated_at"`
	SessionID   string      `json:"session_id"`
	Cwd         string      `json:"cwd"`
	FilePath    string      `json:"file_path"`
	Repo        Repo        `json:"repo"`
	Annotations Annotations `json:"annotations"`
	Content     string      `json:"content"`
	Redacted    bool        `json:"redacted"`
}

// Build snapshots d. With a redactor, content, cwd, file path, repo root
// and note are scrubbed.
func Build(d *statedb.SessionDetail, r *Redactor) *Pack {
	scrub := func(s string) string {
		if r == nil {
			return s
		}
		return r.Redact(s)
	}
	return &Pack{
		Schema:    Schema,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		SessionID: d.SessionID,
		Cwd:       scrub(d.Cwd),
		FilePath:  scrub(d.FilePath),
		Repo: Repo{
			Root:   scrub(d.Repo.Root),
			Name:   d.Repo.Name,
			Branch: d.Repo.Branch,
			SHA:    d.Repo.SHA,
		},
		Annotations: Annotations{
			Pinned: d.Annotation.Pinned,
			Tags:   d.Annotation.Tags,
			Note:   scrub(d.Annotation.Note),
		},
		Content:  scrub(d.Content),
		Redacted: r != nil,
	}
}

// JSON encodes the pack indented, without HTML escaping.
func (p *Pack) JSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("pack: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatTime(epoch int64) string {
	return time.Unix(epoch, 0).Format(timeLayout)
}

type mdHeader struct {
	title                  string
	created, updated       int64
	repo                   Repo
	cwd, tags, note        string
	redacted, showRedacted bool
}

func renderMarkdown(h mdHeader, content string) string {
	lines := []string{
		h.title,
		"",
		"- Created: " + formatTime(h.created),
		"- Updated: " + formatTime(h.updated),
		fmt.Sprintf("- Repo: %s (%s @ %s)", dash(h.repo.Name), dash(h.repo.Branch), dash(h.repo.SHA)),
		"- CWD: " + dash(h.cwd),
		"- Tags: " + dash(h.tags),
		"- Note: " + dash(h.note),
	}
	if h.showRedacted {
		lines = append(lines, fmt.Sprintf("- Redacted: %t", h.redacted))
	}
	lines = append(lines, "", "## Transcript", "", "```", content, "```", "")
	return strings.Join(lines, "\n")
}

// Markdown renders the pack for humans.
func (p *Pack) Markdown() string {
	return renderMarkdown(mdHeader{
		title:        "# Codex session pack: " + p.SessionID,
		created:      p.CreatedAt,
		updated:      p.UpdatedAt,
		repo:         p.Repo,
		cwd:          p.Cwd,
		tags:         p.Annotations.Tags,
		note:         p.Annotations.Note,
		redacted:     p.Redacted,
		showRedacted: true,
	}, p.Content)
}

// ExportMarkdown renders a session for the export command. Only the
// transcript is redacted.
func ExportMarkdown(d *statedb.SessionDetail, r *Redactor) string {
	content := d.Content
	if r != nil {
		content = r.Redact(content)
	}
	return renderMarkdown(mdHeader{
		title:   "# Codex session " + d.SessionID,
		created: d.CreatedAt,
		updated: d.UpdatedAt,
		repo:    Repo{Name: d.Repo.Name, Branch: d.Repo.Branch, SHA: d.Repo.SHA},
		cwd:     d.Cwd,
		tags:    d.Annotation.Tags,
		note:    d.Annotation.Note,
	}, content)
}

// Paths returns the JSON and Markdown file names for a session in dir.
func Paths(dir, sessionID string) (jsonPath, mdPath string) {
	base := filepath.Join(dir, "codex-session-"+sessionID)
	return base + ".json", base + ".md"
}

// Write stores the pack as JSON and Markdown in dir, creating it with
// private permissions. Each file is replaced atomically.
func Write(p *Pack, dir string) (jsonPath, mdPath string, err error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", "", fmt.Errorf("pack: create %s: %w", dir, err)
	}
	data, err := p.JSON()
	if err != nil {
		return "", "", err
	}
	jsonPath, mdPath = Paths(dir, p.SessionID)
	if err := atomic.WriteFile(jsonPath, bytes.NewReader(data)); err != nil {
		return "", "", fmt.Errorf("pack: write %s: %w", jsonPath, err)
	}
	if err := atomic.WriteFile(mdPath, strings.NewReader(p.Markdown())); err != nil {
		return "", "", fmt.Errorf("pack: write %s: %w", mdPath, err)
	}
	packLog.Info("pack_written",
		slog.String("session_id", p.SessionID),
		slog.String("path", mdPath),
		slog.Bool("redacted", p.Redacted))
	return jsonPath, mdPath, nil
}

// WriteFile atomically writes text to path.
func WriteFile(path, text string) error {
	if err := atomic.WriteFile(path, strings.NewReader(text)); err != nil {
		return fmt.Errorf("pack: write %s: %w", path, err)
	}
	return nil
}
