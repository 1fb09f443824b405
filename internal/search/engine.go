package search

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/asheshgoplani/codex-sessions/internal/logging"
	"github.com/asheshgoplani/codex-sessions/internal/statedb"
)

var searchLog = logging.ForComponent(logging.CompSearch)

// DefaultLimit caps result sets when the caller does not set one.
const DefaultLimit = 200

// Index is the subset of the store the engine queries.
type Index interface {
	Search(p statedb.SearchParams) ([]statedb.ResultRow, error)
	Browse(limit int) ([]statedb.ResultRow, error)
}

// Engine runs ranked queries against an Index.
type Engine struct {
	Index         Index
	Limit         int
	RecencyWeight float64
	// Fuzzy enables a fuzzy title match over recent sessions when a
	// prefix query finds nothing.
	Fuzzy bool
	Now   func() time.Time
}

// NewEngine returns an engine with default limit and recency weight.
func NewEngine(idx Index) *Engine {
	return &Engine{
		Index:         idx,
		Limit:         DefaultLimit,
		RecencyWeight: RecencyWeight,
		Now:           time.Now,
	}
}

func (e *Engine) limit() int {
	if e.Limit <= 0 {
		return DefaultLimit
	}
	return e.Limit
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// Browse lists sessions pinned first, then most recent.
func (e *Engine) Browse() ([]statedb.ResultRow, error) {
	return e.Index.Browse(e.limit())
}

// Match runs a raw FTS5 expression. Syntax errors are returned.
func (e *Engine) Match(expr string) ([]statedb.ResultRow, error) {
	return e.Index.Search(statedb.SearchParams{
		Match:         expr,
		Limit:         e.limit(),
		Now:           e.now(),
		RecencyWeight: e.RecencyWeight,
	})
}

// Query treats text as typed input: browse when it is empty or "*",
// otherwise a prefix query built from its tokens.
func (e *Engine) Query(text string) ([]statedb.ResultRow, error) {
	text = strings.TrimSpace(text)
	if IsBrowse(text) {
		return e.Browse()
	}
	expr := BuildQuery(text)
	if expr == "" {
		return e.Browse()
	}
	rows, err := e.Match(expr)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 && e.Fuzzy {
		return e.fuzzyTitles(text)
	}
	return rows, nil
}

// Fetch is the browser path: Query followed by filters. Engine errors,
// such as a locked database, yield no rows.
func (e *Engine) Fetch(text string, f Filters) []statedb.ResultRow {
	rows, err := e.Query(text)
	if err != nil {
		searchLog.Warn("query_failed",
			slog.String("query", text),
			slog.String("error", err.Error()))
		return nil
	}
	return f.Apply(rows)
}

type titleSource []statedb.ResultRow

func (s titleSource) String(i int) string { return s[i].Title }
func (s titleSource) Len() int            { return len(s) }

func (e *Engine) fuzzyTitles(text string) ([]statedb.ResultRow, error) {
	recent, err := e.Browse()
	if err != nil {
		return nil, err
	}
	matches := fuzzy.FindFrom(text, titleSource(recent))
	out := make([]statedb.ResultRow, 0, len(matches))
	for _, m := range matches {
		r := recent[m.Index]
		r.Score = -float64(m.Score)
		out = append(out, r)
	}
	// Pinned rows lead, fuzzy score order within each group.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pinned && !out[j].Pinned })
	searchLog.Debug("fuzzy_fallback",
		slog.String("query", text),
		slog.Int("matches", len(out)))
	return out, nil
}
