package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/asheshgoplani/codex-sessions/internal/statedb"
)

// Filters narrow a result set after ranking. All set fields must match.
type Filters struct {
	Repo       string
	Cwd        string
	Tag        string
	PinnedOnly bool
	Group      bool
}

// Active reports whether any filter or grouping is on.
func (f Filters) Active() bool {
	return f.Repo != "" || f.Cwd != "" || f.Tag != "" || f.PinnedOnly || f.Group
}

// Summary renders the active filters for a status line.
func (f Filters) Summary() string {
	if !f.Active() {
		return "no filters"
	}
	var parts []string
	if f.Repo != "" {
		parts = append(parts, "repo~"+f.Repo)
	}
	if f.Cwd != "" {
		parts = append(parts, "cwd~"+f.Cwd)
	}
	if f.Tag != "" {
		parts = append(parts, "tag~"+f.Tag)
	}
	if f.PinnedOnly {
		parts = append(parts, "pinned")
	}
	if f.Group {
		parts = append(parts, "grouped")
	}
	return strings.Join(parts, " | ")
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Apply keeps rows matching every filter (case-insensitive substrings),
// then groups them when Group is set.
func (f Filters) Apply(rows []statedb.ResultRow) []statedb.ResultRow {
	out := make([]statedb.ResultRow, 0, len(rows))
	for _, r := range rows {
		if f.PinnedOnly && !r.Pinned {
			continue
		}
		if f.Repo != "" && !containsFold(r.RepoName, f.Repo) {
			continue
		}
		if f.Cwd != "" && !containsFold(r.Cwd, f.Cwd) {
			continue
		}
		if f.Tag != "" && !containsFold(r.Tags, f.Tag) {
			continue
		}
		out = append(out, r)
	}
	if f.Group {
		return Group(out)
	}
	return out
}

// GroupKey normalizes a title for grouping: lowercase with whitespace runs
// folded to one space. Untitled rows group by session id.
func GroupKey(r statedb.ResultRow) string {
	key := strings.Join(strings.Fields(strings.ToLower(r.Title)), " ")
	if key == "" {
		return r.SessionID
	}
	return key
}

// Group collapses rows sharing a GroupKey into the most recently updated
// one, suffixing its title with the number of hidden duplicates. The
// result is ordered pinned first, then by update time.
func Group(rows []statedb.ResultRow) []statedb.ResultRow {
	type entry struct {
		best statedb.ResultRow
		n    int
	}
	index := make(map[string]int)
	var groups []entry
	for _, r := range rows {
		key := GroupKey(r)
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, entry{best: r, n: 1})
			continue
		}
		if r.UpdatedAt >= groups[i].best.UpdatedAt {
			groups[i].best = r
		}
		groups[i].n++
	}

	out := make([]statedb.ResultRow, 0, len(groups))
	for _, g := range groups {
		r := g.best
		if g.n > 1 {
			r.Title = fmt.Sprintf("%s (+%d)", r.Title, g.n-1)
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		return out[i].UpdatedAt > out[j].UpdatedAt
	})
	return out
}
