package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/asheshgoplani/codex-sessions/internal/statedb"
)

// TimeLayout is used for every timestamp the browser shows.
const TimeLayout = "2006-01-02 15:04"

const (
	listTop      = 3
	fixedColumns = 43 // created(16) + updated(16) + id(8) + separators
)

// FormatTime renders epoch seconds in local time.
func FormatTime(epoch int64) string {
	return time.Unix(epoch, 0).Format(TimeLayout)
}

// layout returns the list width, the preview column width and the number
// of visible list rows.
func (b *Browser) layout() (leftW, rightW, visible int) {
	leftW = max(60, int(float64(b.width)*0.56))
	rightW = max(1, b.width-leftW-1)
	listH := max(1, (b.height-2)-listTop)
	visible = max(1, listH-2)
	return leftW, rightW, visible
}

// metaLines is the detail block above the preview text.
func metaLines(d *statedb.SessionDetail) []string {
	dash := func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	}
	return []string{
		"id: " + d.SessionID,
		fmt.Sprintf("created: %s  updated: %s", FormatTime(d.CreatedAt), FormatTime(d.UpdatedAt)),
		fmt.Sprintf("repo: %s  branch: %s  sha: %s", dash(d.Repo.Name), dash(d.Repo.Branch), dash(d.Repo.SHA)),
		"cwd: " + dash(d.Cwd),
		"tags: " + dash(d.Annotation.Tags),
		"note: " + dash(d.Annotation.Note),
	}
}

// previewMeta wraps the meta lines to the preview width and cuts them at
// the bottom of the pane.
func (b *Browser) previewMeta(d *statedb.SessionDetail, w int) []string {
	room := (b.height - 2) - (listTop + 2)
	var out []string
	for _, ml := range metaLines(d) {
		for _, line := range wrapCells(ml, w) {
			if len(out) >= room {
				return out
			}
			out = append(out, line)
		}
	}
	return out
}

// previewSize is the width and height of the scrolling text region.
func (b *Browser) previewSize(d *statedb.SessionDetail) (int, int) {
	_, rightW, _ := b.layout()
	w := max(1, rightW-1)
	y := listTop + 2 + len(b.previewMeta(d, w))
	if y < b.height-2 {
		y++ // separator
	}
	return w, max(1, (b.height-2)-y)
}

// fit truncates s to w cells and pads it to exactly w.
func fit(s string, w int) string {
	if w <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\n", " ")
	return runewidth.FillRight(runewidth.Truncate(s, w, "…"), w)
}

func titleWidth(width int) int {
	remaining := max(0, width-1-fixedColumns)
	return min(80, max(22, remaining))
}

// FormatRow renders one result as fixed columns for a list width cells
// wide.
func FormatRow(r statedb.ResultRow, width int) string {
	id := r.SessionID
	if runewidth.StringWidth(id) > 7 {
		id = runewidth.Truncate(id, 7, "")
	}
	if r.Pinned {
		id += "★"
	}
	return fmt.Sprintf("%s %s %s %s",
		FormatTime(r.CreatedAt),
		FormatTime(r.UpdatedAt),
		runewidth.FillRight(id, 8),
		runewidth.Truncate(r.Title, titleWidth(width), "…"),
	)
}

func formatHeader() string {
	return fmt.Sprintf("%-16s %-16s %s %s", "CREATED", "UPDATED", runewidth.FillRight("ID★", 8), "TITLE")
}

// statusLine summarizes position, filters, index age and preview mode.
func (b *Browser) statusLine() string {
	pos := "0/0"
	if len(b.rows) > 0 {
		pos = fmt.Sprintf("%d/%d", b.idx+1, len(b.rows))
	}
	indexed := "?"
	if !b.indexedAt.IsZero() {
		indexed = b.indexedAt.Format(TimeLayout)
	}
	parts := []string{pos, b.filters.Summary(), "indexed " + indexed}

	if b.Selected() != nil && b.preview.docID != "" {
		bits := []string{"nowrap"}
		if b.preview.Wrap {
			bits[0] = "wrap"
		} else if b.preview.X > 0 {
			bits = append(bits, fmt.Sprintf("x%d", b.preview.X))
		}
		if len(b.preview.Terms()) > 0 {
			if i, n := b.preview.Hits(); n > 0 {
				bits = append(bits, fmt.Sprintf("hits %d/%d", i, n))
			} else {
				bits = append(bits, "hits 0")
			}
		}
		parts = append(parts, "preview "+strings.Join(bits, " "))
	}
	return strings.Join(parts, " | ")
}

// highlightTerms marks every case-insensitive occurrence of terms in a
// plain line.
func highlightTerms(line string, terms []string, base lipgloss.Style) string {
	lower := strings.ToLower(line)
	if len(terms) == 0 || len(lower) != len(line) {
		return base.Render(line)
	}

	marked := make([]bool, len(line))
	found := false
	for _, t := range terms {
		for from := 0; ; {
			i := strings.Index(lower[from:], t)
			if i < 0 {
				break
			}
			for j := from + i; j < from+i+len(t); j++ {
				marked[j] = true
			}
			found = true
			from += i + len(t)
		}
	}
	if !found {
		return base.Render(line)
	}

	var sb strings.Builder
	start := 0
	for start < len(line) {
		end := start
		for end < len(line) && marked[end] == marked[start] {
			end++
		}
		if marked[start] {
			sb.WriteString(SearchMatchStyle.Render(line[start:end]))
		} else {
			sb.WriteString(base.Render(line[start:end]))
		}
		start = end
	}
	return sb.String()
}

// View implements tea.Model.
func (b *Browser) View() string {
	if b.width == 0 || b.height == 0 {
		return ""
	}
	if b.tooSmall() {
		return ErrorStyle.Render(TooSmallMessage)
	}

	leftW, rightW, visible := b.layout()
	lines := make([]string, 0, b.height)

	lines = append(lines, HelpStyle.Render(fit(HelpLine, b.width-1)))

	prompt := fmt.Sprintf("Query(%s): ", b.focus)
	queryW := max(0, leftW-runewidth.StringWidth(prompt)-1)
	b.query.Width = queryW
	lines = append(lines, PromptStyle.Render(prompt)+QueryStyle.Render(b.query.View()))

	status := StatusStyle.Render(fit(b.statusLine(), max(0, b.width-1-runewidth.StringWidth(b.status)-3)))
	if b.status != "" {
		msgStyle := StatusMsgStyle
		if b.statusErr {
			msgStyle = ErrorStyle
		}
		status += StatusStyle.Render(" | ") + msgStyle.Render(b.status)
	}
	lines = append(lines, status)

	left := b.listColumn(leftW, visible)
	right := b.previewColumn(rightW)
	sep := SeparatorStyle.Render("│")
	for i := 0; i < len(left) || i < len(right); i++ {
		l := strings.Repeat(" ", leftW)
		if i < len(left) {
			l = left[i]
		}
		r := ""
		if i < len(right) {
			r = right[i]
		}
		lines = append(lines, l+sep+r)
	}

	if b.prompt != nil {
		lines = append(lines, PromptStyle.Render(b.prompt.label())+b.prompt.input.View())
	}
	return strings.Join(lines, "\n")
}

func (b *Browser) listColumn(leftW, visible int) []string {
	rows := b.height - 2 - listTop
	out := make([]string, 0, rows)
	out = append(out, HeaderStyle.Render(fit(formatHeader(), leftW)))
	out = append(out, SeparatorStyle.Render(strings.Repeat("-", leftW)))

	for i := 0; i < visible; i++ {
		n := b.offset + i
		if n >= len(b.rows) {
			break
		}
		line := fit(FormatRow(b.rows[n], leftW), leftW)
		if n == b.idx {
			out = append(out, RowSelectedStyle.Render(line))
		} else {
			out = append(out, RowStyle.Render(line))
		}
	}
	for len(out) < rows {
		out = append(out, strings.Repeat(" ", leftW))
	}
	return out
}

func (b *Browser) previewColumn(rightW int) []string {
	w := max(1, rightW-1)
	label := "PREVIEW"
	if b.focus == FocusPreview {
		label = "PREVIEW*"
	}
	out := []string{
		" " + PreviewLabelStyle.Render(fit(label, w)),
		" " + SeparatorStyle.Render(strings.Repeat("-", w)),
	}

	sel := b.Selected()
	if sel == nil {
		return append(out, " "+DimStyle.Render(fit("(no selection)", w)))
	}
	d := b.details[sel.SessionID]
	if d == nil {
		return append(out, " "+DimStyle.Render(fit("(no detail)", w)))
	}

	for _, ml := range b.previewMeta(d, w) {
		out = append(out, " "+PreviewMetaStyle.Render(fit(ml, w)))
	}
	if len(out) < b.height-2-listTop {
		out = append(out, " "+SeparatorStyle.Render(strings.Repeat("-", w)))
	}

	lines, first := b.preview.Visible()
	cur := b.preview.CurrentHitLine()
	terms := b.preview.Terms()
	for i, line := range lines {
		style := PreviewTextStyle
		if first+i == cur {
			style = PreviewCurHitStyle
		}
		out = append(out, " "+highlightTerms(fit(line, w), terms, style))
	}
	return out
}
