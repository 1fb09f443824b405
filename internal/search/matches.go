package search

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Match is a line/column location of the earliest query term on a line.
// Col counts runes.
type Match struct {
	Line int
	Col  int
}

// FindMatches scans lines for terms and returns one match per line that
// contains at least one term. Lines matching more distinct terms come
// first, then earlier lines, then earlier columns.
func FindMatches(lines []string, terms []string) []Match {
	ts := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			ts = append(ts, t)
		}
	}
	if len(ts) == 0 {
		return nil
	}

	type hit struct {
		Match
		n int
	}
	var hits []hit
	for i, line := range lines {
		s := strings.ToLower(line)
		n, first := 0, -1
		for _, t := range ts {
			pos := strings.Index(s, t)
			if pos < 0 {
				continue
			}
			n++
			if first < 0 || pos < first {
				first = pos
			}
		}
		if n > 0 {
			hits = append(hits, hit{Match{Line: i, Col: utf8.RuneCountInString(s[:first])}, n})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].n != hits[b].n {
			return hits[a].n > hits[b].n
		}
		if hits[a].Line != hits[b].Line {
			return hits[a].Line < hits[b].Line
		}
		return hits[a].Col < hits[b].Col
	})

	out := make([]Match, len(hits))
	for i, h := range hits {
		out[i] = h.Match
	}
	return out
}
