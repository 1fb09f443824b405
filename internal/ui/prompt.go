package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/asheshgoplani/codex-sessions/internal/statedb"
)

type promptKind int

const (
	promptTags promptKind = iota
	promptNote
	promptRepo
	promptCwd
	promptTag
)

var promptLabels = map[promptKind]string{
	promptTags: "tags (space/comma separated): ",
	promptNote: "note: ",
	promptRepo: "filter repo (empty clears): ",
	promptCwd:  "filter cwd contains (empty clears): ",
	promptTag:  "filter tag contains (empty clears): ",
}

// prompt is a one-line editor for an annotation or a filter.
type prompt struct {
	kind      promptKind
	sessionID string
	input     textinput.Model
}

func (p *prompt) label() string {
	return promptLabels[p.kind]
}

func (b *Browser) openPrompt(kind promptKind, sessionID, current string) {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 1024
	ti.SetValue(current)
	ti.CursorEnd()
	ti.Focus()
	b.prompt = &prompt{kind: kind, sessionID: sessionID, input: ti}
}

// handlePrompt edits the open prompt. Enter applies the value, Esc
// discards it.
func (b *Browser) handlePrompt(msg tea.KeyMsg) tea.Cmd {
	p := b.prompt
	switch msg.Type {
	case tea.KeyEsc:
		b.prompt = nil
		return nil
	case tea.KeyCtrlC:
		b.prompt = nil
		return b.exit(ExitAction{})
	case tea.KeyEnter:
		b.prompt = nil
		b.applyPrompt(p.kind, p.sessionID, p.input.Value())
		return nil
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

func (b *Browser) applyPrompt(kind promptKind, id, value string) {
	switch kind {
	case promptTags:
		if err := b.store.SetTags(id, value, b.now()); err != nil {
			b.setError("tags", err)
			return
		}
		b.evict(id)
		b.patchRow(id, func(r *statedb.ResultRow) { r.Tags = value })
		b.setStatus("tags saved")
	case promptNote:
		if err := b.store.SetNote(id, value, b.now()); err != nil {
			b.setError("note", err)
			return
		}
		b.evict(id)
		b.patchRow(id, func(r *statedb.ResultRow) { r.Note = value })
		b.setStatus("note saved")
	case promptRepo:
		b.filters.Repo = value
		b.refresh(true)
	case promptCwd:
		b.filters.Cwd = value
		b.refresh(true)
	case promptTag:
		b.filters.Tag = value
		b.refresh(true)
	}
}

// patchRow updates the listed copy of a row without requerying.
func (b *Browser) patchRow(id string, fn func(*statedb.ResultRow)) {
	for i := range b.rows {
		if b.rows[i].SessionID == id {
			fn(&b.rows[i])
		}
	}
}
