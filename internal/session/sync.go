package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/asheshgoplani/codex-sessions/internal/git"
	"github.com/asheshgoplani/codex-sessions/internal/logging"
	"github.com/asheshgoplani/codex-sessions/internal/statedb"
	"github.com/asheshgoplani/codex-sessions/internal/transcript"
)

var syncLog = logging.ForComponent(logging.CompSync)

// Sync reason codes recorded in meta.last_index_reason.
const (
	ReasonForced      = "forced"
	ReasonParserBump  = "parser_bump"
	ReasonIncremental = "incremental"
)

// RepoResolver maps a working directory to repository metadata. Failures
// are reported as zero values.
type RepoResolver interface {
	Resolve(ctx context.Context, dir string) git.RepoInfo
}

// NopResolver never finds a repository.
type NopResolver struct{}

// Resolve implements RepoResolver.
func (NopResolver) Resolve(context.Context, string) git.RepoInfo { return git.RepoInfo{} }

// Syncer brings the index up to date with the transcripts under CodexDir.
type Syncer struct {
	Store    *statedb.StateDB
	CodexDir string
	Resolver RepoResolver

	// ParserVersion defaults to transcript.Version.
	ParserVersion int
	// Now defaults to time.Now.
	Now func() time.Time
}

// SyncResult describes one sync run.
type SyncResult struct {
	Reason   string
	Scanned  int
	Parsed   int
	Changed  int
	Skipped  int
	Failed   int
	Duration time.Duration
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Syncer) parserVersion() int {
	if s.ParserVersion > 0 {
		return s.ParserVersion
	}
	return transcript.Version
}

// Sync re-parses every transcript whose (mtime, size) fingerprint changed.
// A parser version change or force re-parses everything. Unreadable or
// id-less transcripts are skipped without failing the run. Changed counts
// documents written to the index.
func (s *Syncer) Sync(ctx context.Context, force bool) (SyncResult, error) {
	started := s.now()
	res := SyncResult{Reason: ReasonIncremental}

	stored, ok, err := s.Store.GetMetaInt(statedb.MetaParserVersion)
	if err != nil {
		return res, err
	}
	bumped := !ok || stored != int64(s.parserVersion())
	full := force || bumped
	switch {
	case force:
		res.Reason = ReasonForced
	case bumped:
		res.Reason = ReasonParserBump
	}

	if err := s.Store.SetMeta(statedb.MetaIndexStartedAt, strconv.FormatInt(started.Unix(), 10)); err != nil {
		return res, err
	}
	if err := s.Store.SetMeta(statedb.MetaIndexReason, res.Reason); err != nil {
		return res, err
	}

	files, err := ListTranscripts(s.CodexDir)
	if err != nil {
		return res, err
	}

	resolver := s.Resolver
	if resolver == nil {
		resolver = NopResolver{}
	}
	repos := make(map[string]git.RepoInfo)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Scanned++

		info, err := os.Stat(path)
		if err != nil {
			res.Failed++
			continue
		}
		fp := statedb.FileRecord{Path: path, MtimeNs: info.ModTime().UnixNano(), SizeBytes: info.Size()}

		if !full {
			prev, found, err := s.Store.GetFile(path)
			if err != nil {
				return res, err
			}
			if found && prev.Same(fp) {
				res.Skipped++
				continue
			}
		}

		res.Parsed++
		doc, stats, err := transcript.ParseFile(path)
		if err != nil {
			res.Failed++
			syncLog.Warn("transcript_unreadable", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		if doc == nil {
			logging.Aggregate(logging.CompSync, "transcript_without_session_id", slog.String("path", path))
			if err := s.Store.RecordFile(fp, s.now()); err != nil {
				return res, err
			}
			continue
		}

		repo, cached := repos[doc.Cwd]
		if !cached && doc.Cwd != "" {
			repo = resolver.Resolve(ctx, doc.Cwd)
			repos[doc.Cwd] = repo
		}

		if err := s.Store.IndexSession(rowFromDocument(doc, repo), doc.Content, fp, s.now()); err != nil {
			return res, fmt.Errorf("index %s: %w", path, err)
		}
		res.Changed++
		syncLog.Debug("transcript_indexed",
			slog.String("session_id", doc.SessionID),
			slog.String("path", path),
			slog.Int("lines", stats.Lines),
			slog.Int("malformed", stats.Malformed))
	}

	if bumped {
		if err := s.Store.SetMeta(statedb.MetaParserVersion, strconv.Itoa(s.parserVersion())); err != nil {
			return res, err
		}
	}
	finished := s.now()
	if err := s.Store.SetMeta(statedb.MetaIndexFinishedAt, strconv.FormatInt(finished.Unix(), 10)); err != nil {
		return res, err
	}
	res.Duration = finished.Sub(started)

	syncLog.Info("sync_finished",
		slog.String("reason", res.Reason),
		slog.Int("scanned", res.Scanned),
		slog.Int("changed", res.Changed),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed),
		slog.Duration("duration", res.Duration))
	return res, nil
}

func rowFromDocument(doc *transcript.Document, repo git.RepoInfo) statedb.SessionRow {
	return statedb.SessionRow{
		SessionID:  doc.SessionID,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
		Cwd:        doc.Cwd,
		CLIVersion: doc.CLIVersion,
		FilePath:   doc.FilePath,
		Title:      doc.Title,
		Preview:    doc.Preview,
		Repo: statedb.RepoInfo{
			Root:   repo.Root,
			Name:   repo.Name,
			Branch: repo.Branch,
			SHA:    repo.SHA,
		},
	}
}

// ListTranscripts returns every *.jsonl file below <codexDir>/sessions in
// lexical order. A missing sessions directory yields no files.
func ListTranscripts(codexDir string) ([]string, error) {
	root := SessionsDir(codexDir)
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			syncLog.Debug("walk_error", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// LastIndexed returns the finish time of the last sync, or the zero time.
func LastIndexed(store *statedb.StateDB) time.Time {
	ts, ok, err := store.GetMetaInt(statedb.MetaIndexFinishedAt)
	if err != nil || !ok {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}
