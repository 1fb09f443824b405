package ui

import (
	"slices"

	"github.com/asheshgoplani/codex-sessions/internal/search"
)

// Preview holds the scroll, wrap and match state of the preview pane and
// caches its layout. Raw lines are split again only when the document
// changes. The render buffer is rebuilt when the document, width, wrap
// mode or horizontal offset changes.
type Preview struct {
	Wrap bool
	Tail bool
	X    int
	Y    int

	width  int
	height int

	docID string
	raw   []string

	render      []string
	rawToRender []int
	built       layoutKey

	terms      []string
	matches    []search.Match
	hitLines   []int
	matchIdx   int
	scrollDoc  string
	scrollTerm []string
}

type layoutKey struct {
	docID string
	width int
	wrap  bool
	x     int
	ok    bool
}

// NewPreview returns a preview that starts at the tail of documents.
func NewPreview(wrap, tail bool) *Preview {
	return &Preview{Wrap: wrap, Tail: tail}
}

// Sync brings the cached layout up to date with the selected document,
// pane size and query terms. Selecting a new document or changing the
// terms jumps to the best match, or to the tail when there is none and
// Tail is on.
func (p *Preview) Sync(docID, content string, terms []string, width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	p.width, p.height = width, height

	if docID == "" {
		*p = Preview{Wrap: p.Wrap, Tail: p.Tail, X: p.X, width: width, height: height}
		return
	}

	docChanged := docID != p.docID
	if docChanged {
		p.docID = docID
		p.raw = SplitLines(content)
	}
	if p.Wrap {
		p.X = 0
	}
	if p.X < 0 {
		p.X = 0
	}

	key := layoutKey{docID: docID, width: width, wrap: p.Wrap, x: p.X, ok: true}
	rebuilt := key != p.built
	if rebuilt {
		p.render, p.rawToRender = BuildRenderLines(p.raw, width, p.Wrap, p.X)
		p.built = key
	}

	termsChanged := !slices.Equal(terms, p.terms)
	if docChanged || termsChanged || rebuilt {
		p.terms = slices.Clone(terms)
		p.matches = search.FindMatches(p.raw, terms)
		p.hitLines = p.hitLines[:0]
		for _, m := range p.matches {
			if m.Line < len(p.rawToRender) {
				p.hitLines = append(p.hitLines, p.rawToRender[m.Line])
			}
		}
	}

	if docID != p.scrollDoc || !slices.Equal(terms, p.scrollTerm) {
		p.scrollDoc = docID
		p.scrollTerm = slices.Clone(terms)
		p.matchIdx = 0
		switch {
		case len(terms) > 0 && len(p.hitLines) > 0:
			p.Y = p.hitLines[0] - 2
		case p.Tail:
			p.Y = len(p.render) - height
		default:
			p.Y = 0
		}
	}

	p.clamp()
}

func (p *Preview) maxY() int {
	return max(0, len(p.render)-max(1, p.height))
}

func (p *Preview) clamp() {
	p.Y = max(0, min(p.Y, p.maxY()))
	if len(p.hitLines) == 0 {
		p.matchIdx = 0
		return
	}
	p.matchIdx = max(0, min(p.matchIdx, len(p.hitLines)-1))
}

// Scroll moves the viewport by delta render lines.
func (p *Preview) Scroll(delta int) {
	p.Y += delta
	p.clamp()
}

// PageDown and PageUp scroll by one viewport height.
func (p *Preview) PageDown() { p.Scroll(p.height) }
func (p *Preview) PageUp()   { p.Scroll(-p.height) }

// Home jumps to the top.
func (p *Preview) Home() { p.Y = 0 }

// End jumps to the last full page.
func (p *Preview) End() { p.Y = p.maxY() }

// Pan shifts the horizontal offset. It has no effect while wrapping.
func (p *Preview) Pan(delta int) {
	if p.Wrap {
		return
	}
	p.X = max(0, p.X+delta)
}

// ToggleWrap flips wrap mode, resetting the horizontal offset when
// wrapping turns on.
func (p *Preview) ToggleWrap() {
	p.Wrap = !p.Wrap
	if p.Wrap {
		p.X = 0
	}
}

// ToggleTail flips tail mode. Turning it on without query terms jumps to
// the end.
func (p *Preview) ToggleTail() {
	p.Tail = !p.Tail
	if p.Tail && len(p.terms) == 0 {
		p.End()
	}
}

// NextHit moves to the next match, wrapping around, and scrolls it two
// lines below the top of the viewport.
func (p *Preview) NextHit(step int) bool {
	n := len(p.hitLines)
	if n == 0 {
		return false
	}
	p.matchIdx = ((p.matchIdx+step)%n + n) % n
	p.Y = p.hitLines[p.matchIdx] - 2
	p.clamp()
	return true
}

// Visible returns the render lines in the viewport and the index of the
// first one.
func (p *Preview) Visible() ([]string, int) {
	end := min(len(p.render), p.Y+p.height)
	if p.Y >= end {
		return nil, p.Y
	}
	return p.render[p.Y:end], p.Y
}

// CurrentHitLine is the render line of the selected match, or -1.
func (p *Preview) CurrentHitLine() int {
	if len(p.hitLines) == 0 {
		return -1
	}
	return p.hitLines[p.matchIdx]
}

// Terms returns the query terms the matches were computed for.
func (p *Preview) Terms() []string { return p.terms }

// Hits returns the 1-based selected match and the match count.
func (p *Preview) Hits() (int, int) {
	if len(p.hitLines) == 0 {
		return 0, 0
	}
	return p.matchIdx + 1, len(p.hitLines)
}

// Lines returns the full render buffer.
func (p *Preview) Lines() []string { return p.render }

// Matches returns the raw-line matches ranked best first.
func (p *Preview) Matches() []search.Match { return p.matches }
