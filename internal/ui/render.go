package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const tabWidth = 4

// SplitLines breaks content into raw preview lines with carriage returns
// dropped and tabs expanded.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.ReplaceAll(content, "\r", "")
	content = strings.ReplaceAll(content, "\t", strings.Repeat(" ", tabWidth))
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

// BuildRenderLines lays raw lines out for a pane width cells wide. With
// wrap each line is split into width-sized chunks and an empty line keeps
// one empty render line; x is ignored. Without wrap each line is shifted
// left by x cells and cut to width. The second result maps each raw line
// index to its first render line.
func BuildRenderLines(raw []string, width int, wrap bool, x int) ([]string, []int) {
	if width < 1 {
		width = 1
	}
	if x < 0 {
		x = 0
	}

	render := make([]string, 0, len(raw))
	rawToRender := make([]int, 0, len(raw))
	for _, line := range raw {
		rawToRender = append(rawToRender, len(render))
		if wrap {
			render = append(render, wrapCells(line, width)...)
			continue
		}
		render = append(render, runewidth.Truncate(skipCells(line, x), width, ""))
	}
	return render, rawToRender
}

// wrapCells splits s into chunks no wider than width cells. A rune wider
// than width gets a chunk of its own.
func wrapCells(s string, width int) []string {
	if s == "" {
		return []string{""}
	}
	var out []string
	var b strings.Builder
	w := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if w > 0 && w+rw > width {
			out = append(out, b.String())
			b.Reset()
			w = 0
		}
		b.WriteRune(r)
		w += rw
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

// skipCells drops the first x display cells of s.
func skipCells(s string, x int) string {
	if x == 0 {
		return s
	}
	w := 0
	for i, r := range s {
		if w >= x {
			return s[i:]
		}
		w += runewidth.RuneWidth(r)
	}
	return ""
}
