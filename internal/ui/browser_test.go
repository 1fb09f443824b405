package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asheshgoplani/codex-sessions/internal/search"
	"github.com/asheshgoplani/codex-sessions/internal/statedb"
)

type fakeSearcher struct {
	rows    []statedb.ResultRow
	calls   int
	queries []string
}

func (f *fakeSearcher) Fetch(text string, filters search.Filters) []statedb.ResultRow {
	f.calls++
	f.queries = append(f.queries, text)
	var out []statedb.ResultRow
	for _, r := range f.rows {
		if text == "" || strings.Contains(strings.ToLower(r.Title), strings.ToLower(text)) {
			out = append(out, r)
		}
	}
	return filters.Apply(out)
}

type fakeStore struct {
	details map[string]*statedb.SessionDetail
	loads   map[string]int
	tags    map[string]string
	notes   map[string]string
	pinned  map[string]bool
	search  *fakeSearcher
	failPin bool
}

func (f *fakeStore) GetSession(id string) (*statedb.SessionDetail, error) {
	f.loads[id]++
	d, ok := f.details[id]
	if !ok {
		return nil, statedb.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeStore) TogglePinned(id string, now time.Time) (bool, error) {
	if f.failPin {
		return false, errors.New("database is locked")
	}
	f.pinned[id] = !f.pinned[id]
	for i := range f.search.rows {
		if f.search.rows[i].SessionID == id {
			f.search.rows[i].Pinned = f.pinned[id]
		}
	}
	return f.pinned[id], nil
}

func (f *fakeStore) SetTags(id, tags string, now time.Time) error {
	f.tags[id] = tags
	return nil
}

func (f *fakeStore) SetNote(id, note string, now time.Time) error {
	f.notes[id] = note
	return nil
}

type fakeClipboard struct {
	copied []string
	err    error
}

func (f *fakeClipboard) Copy(text string) error {
	if f.err != nil {
		return f.err
	}
	f.copied = append(f.copied, text)
	return nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyType(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

// send feeds messages through Update and returns the last command.
func send(b *Browser, msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, m := range msgs {
		_, cmd = b.Update(m)
	}
	return cmd
}

type harness struct {
	b     *Browser
	srch  *fakeSearcher
	store *fakeStore
	clip  *fakeClipboard
	clock *fakeClock
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	srch := &fakeSearcher{rows: []statedb.ResultRow{
		{SessionID: "s1-aaaaaaaa", Title: "Fix the build", UpdatedAt: 300, RepoName: "deck", FilePath: "/logs/s1.jsonl"},
		{SessionID: "s2-bbbbbbbb", Title: "fix the build", UpdatedAt: 200, RepoName: "deck", Tags: "ci"},
		{SessionID: "s3-cccccccc", Title: "Write docs", UpdatedAt: 100, RepoName: "site"},
	}}
	details := make(map[string]*statedb.SessionDetail)
	for _, r := range srch.rows {
		details[r.SessionID] = &statedb.SessionDetail{
			SessionRow: statedb.SessionRow{SessionID: r.SessionID, Title: r.Title, FilePath: r.FilePath},
			Annotation: statedb.Annotation{SessionID: r.SessionID, Tags: r.Tags},
			Content:    "user:\n" + r.Title + "\n\nassistant:\nlooking at the build now",
		}
	}
	store := &fakeStore{
		details: details,
		loads:   make(map[string]int),
		tags:    make(map[string]string),
		notes:   make(map[string]string),
		pinned:  make(map[string]bool),
		search:  srch,
	}
	clip := &fakeClipboard{}
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	opts.Now = clock.Now
	b := NewBrowser(srch, store, clip, opts)
	send(b, tea.WindowSizeMsg{Width: 140, Height: 40})
	return &harness{b: b, srch: srch, store: store, clip: clip, clock: clock}
}

func TestBrowserInitialState(t *testing.T) {
	h := newHarness(t, Options{})
	assert.Equal(t, FocusQuery, h.b.focus)
	assert.Len(t, h.b.Rows(), 3)
	assert.Equal(t, 1, h.srch.calls)
	require.NotNil(t, h.b.Selected())
	assert.Equal(t, "s1-aaaaaaaa", h.b.Selected().SessionID)
	assert.Equal(t, 1, h.store.loads["s1-aaaaaaaa"])
}

func TestBrowserDebouncesTyping(t *testing.T) {
	h := newHarness(t, Options{})

	cmd := send(h.b, keyRunes("w"), keyRunes("r"), keyRunes("i"))
	assert.NotNil(t, cmd, "edits schedule a debounce tick")
	assert.Equal(t, "wri", h.b.query.Value())
	assert.Equal(t, 1, h.srch.calls, "no query per keystroke")

	h.clock.Advance(50 * time.Millisecond)
	send(h.b, debounceMsg{})
	assert.Equal(t, 1, h.srch.calls, "still inside the window")

	h.clock.Advance(100 * time.Millisecond)
	send(h.b, debounceMsg{})
	assert.Equal(t, 2, h.srch.calls)
	assert.Equal(t, "wri", h.srch.queries[1])
	require.Len(t, h.b.Rows(), 1)
	assert.Equal(t, "s3-cccccccc", h.b.Selected().SessionID)

	send(h.b, debounceMsg{})
	assert.Equal(t, 2, h.srch.calls, "fires once per pause")
}

func TestBrowserQueryEditing(t *testing.T) {
	h := newHarness(t, Options{State: State{Query: "abc"}})

	send(h.b, keyType(tea.KeyLeft), keyType(tea.KeyBackspace))
	assert.Equal(t, "ac", h.b.query.Value())
	send(h.b, keyRunes("q"), keyRunes("j"))
	assert.Equal(t, "aqjc", h.b.query.Value(), "q and j are text while typing")
	assert.Equal(t, ActionNone, h.b.Action().Kind)

	send(h.b, keyType(tea.KeyCtrlU))
	assert.Equal(t, "", h.b.query.Value())

	send(h.b, keyRunes("docs"), keyType(tea.KeyEsc))
	assert.Equal(t, "", h.b.query.Value())
	assert.False(t, h.b.debounce.pending, "esc requeries immediately")
}

func TestBrowserFocusCycle(t *testing.T) {
	h := newHarness(t, Options{})
	send(h.b, keyType(tea.KeyTab))
	assert.Equal(t, FocusList, h.b.focus)
	send(h.b, keyType(tea.KeyTab))
	assert.Equal(t, FocusPreview, h.b.focus)
	send(h.b, keyType(tea.KeyTab))
	assert.Equal(t, FocusQuery, h.b.focus)

	send(h.b, keyType(tea.KeyTab), keyRunes("/"))
	assert.Equal(t, FocusQuery, h.b.focus)
	send(h.b, keyType(tea.KeyDown))
	assert.Equal(t, FocusQuery, h.b.focus, "arrows never change focus")
}

func TestBrowserListNavigation(t *testing.T) {
	h := newHarness(t, Options{})

	send(h.b, keyType(tea.KeyDown))
	assert.Equal(t, 1, h.b.idx, "arrows work while typing")

	send(h.b, keyType(tea.KeyTab), keyRunes("j"), keyRunes("j"))
	assert.Equal(t, 2, h.b.idx, "clamped at the end")
	send(h.b, keyType(tea.KeyCtrlP))
	assert.Equal(t, 1, h.b.idx)
	send(h.b, keyType(tea.KeyHome))
	assert.Equal(t, 0, h.b.idx)
	send(h.b, keyType(tea.KeyEnd))
	assert.Equal(t, 2, h.b.idx)
	send(h.b, keyType(tea.KeyPgUp))
	assert.Equal(t, 0, h.b.idx)

	send(h.b, keyType(tea.KeyDown), keyType(tea.KeyUp), keyType(tea.KeyDown))
	assert.Equal(t, 1, h.store.loads["s2-bbbbbbbb"], "details are cached per session")
}

func TestBrowserExitActions(t *testing.T) {
	tests := []struct {
		name string
		keys []tea.Msg
		want ExitAction
	}{
		{"resume", []tea.Msg{keyType(tea.KeyEnter)}, ExitAction{Kind: ActionResume, SessionID: "s1-aaaaaaaa"}},
		{"open", []tea.Msg{keyType(tea.KeyTab), keyRunes("o")}, ExitAction{Kind: ActionOpen, SessionID: "s1-aaaaaaaa", Path: "/logs/s1.jsonl"}},
		{"fork", []tea.Msg{keyType(tea.KeyTab), keyRunes("j"), keyRunes("K")}, ExitAction{Kind: ActionFork, SessionID: "s2-bbbbbbbb"}},
		{"share", []tea.Msg{keyType(tea.KeyTab), keyRunes("S")}, ExitAction{Kind: ActionShare, SessionID: "s1-aaaaaaaa"}},
		{"reindex", []tea.Msg{keyType(tea.KeyTab), keyRunes("R")}, ExitAction{Kind: ActionReindex}},
		{"quit", []tea.Msg{keyType(tea.KeyTab), keyRunes("q")}, ExitAction{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{})
			cmd := send(h.b, tt.keys...)
			require.NotNil(t, cmd)
			assert.Equal(t, tea.QuitMsg{}, cmd())
			assert.Equal(t, tt.want, h.b.Action())
		})
	}
}

func TestBrowserOpenWithoutPath(t *testing.T) {
	h := newHarness(t, Options{})
	cmd := send(h.b, keyType(tea.KeyTab), keyRunes("j"), keyRunes("o"))
	assert.Nil(t, cmd)
	assert.Equal(t, "no file_path", h.b.status)
}

func TestBrowserCopy(t *testing.T) {
	h := newHarness(t, Options{})
	send(h.b, keyType(tea.KeyTab), keyRunes("y"))
	assert.Equal(t, "copied id", h.b.status)
	send(h.b, keyRunes("c"))
	assert.Equal(t, "copied cmd", h.b.status)
	assert.Equal(t, []string{"s1-aaaaaaaa", "codex resume s1-aaaaaaaa"}, h.clip.copied)

	h.clip.err = errors.New("no clipboard tool")
	send(h.b, keyRunes("y"))
	assert.True(t, h.b.statusErr)
	assert.Contains(t, h.b.status, "no clipboard tool")

	send(h.b, keyType(tea.KeyDown))
	assert.Empty(t, h.b.status, "status clears on the next key")
}

func TestBrowserPinRequeries(t *testing.T) {
	h := newHarness(t, Options{})
	send(h.b, keyType(tea.KeyTab), keyRunes("j"))
	calls := h.srch.calls

	send(h.b, keyRunes("x"))
	assert.Equal(t, "pinned", h.b.status)
	assert.True(t, h.store.pinned["s2-bbbbbbbb"])
	assert.Equal(t, calls+1, h.srch.calls)
	assert.Equal(t, 2, h.store.loads["s2-bbbbbbbb"], "detail evicted and reloaded")

	send(h.b, keyRunes("x"))
	assert.Equal(t, "unpinned", h.b.status)

	h.store.failPin = true
	send(h.b, keyRunes("x"))
	assert.True(t, h.b.statusErr)
}

func TestBrowserTagAndNotePrompts(t *testing.T) {
	h := newHarness(t, Options{})
	send(h.b, keyType(tea.KeyTab), keyRunes("j"), keyRunes("t"))
	require.NotNil(t, h.b.prompt)
	assert.Equal(t, "ci", h.b.prompt.input.Value(), "prefilled with current tags")

	calls := h.srch.calls
	send(h.b, keyRunes(" release"), keyType(tea.KeyEnter))
	assert.Nil(t, h.b.prompt)
	assert.Equal(t, "ci release", h.store.tags["s2-bbbbbbbb"])
	assert.Equal(t, "ci release", h.b.Selected().Tags)
	assert.Equal(t, calls, h.srch.calls, "tag edits do not requery")

	send(h.b, keyRunes("m"), keyRunes("flaky"), keyType(tea.KeyEsc))
	assert.Empty(t, h.store.notes, "esc discards")

	send(h.b, keyRunes("m"), keyRunes("flaky"), keyType(tea.KeyEnter))
	assert.Equal(t, "flaky", h.store.notes["s2-bbbbbbbb"])
	assert.Equal(t, "note saved", h.b.status)
}

func TestBrowserFilters(t *testing.T) {
	h := newHarness(t, Options{})
	send(h.b, keyType(tea.KeyTab), keyRunes("f"), keyRunes("site"), keyType(tea.KeyEnter))
	assert.Equal(t, "site", h.b.filters.Repo)
	require.Len(t, h.b.Rows(), 1)
	assert.Equal(t, "s3-cccccccc", h.b.Selected().SessionID)

	send(h.b, keyRunes("f"), keyType(tea.KeyCtrlU), keyType(tea.KeyEnter))
	assert.Len(t, h.b.Rows(), 3)

	send(h.b, keyRunes("g"))
	require.Len(t, h.b.Rows(), 2)
	assert.Equal(t, "Fix the build (+1)", h.b.Rows()[0].Title)
	assert.Contains(t, h.b.statusLine(), "grouped")

	send(h.b, keyRunes("g"), keyRunes("P"))
	assert.Empty(t, h.b.Rows())
	assert.True(t, strings.HasPrefix(h.b.statusLine(), "0/0 | pinned"))
}

func TestBrowserPreviewFocusKeys(t *testing.T) {
	h := newHarness(t, Options{State: State{Wrap: false, Tail: true}})
	send(h.b, keyType(tea.KeyTab), keyType(tea.KeyTab))
	require.Equal(t, FocusPreview, h.b.focus)

	send(h.b, keyType(tea.KeyRight), keyType(tea.KeyRight))
	assert.Equal(t, 2, h.b.preview.X)
	assert.Equal(t, 0, h.b.idx, "arrows scroll the preview, not the list")
	assert.Contains(t, h.b.statusLine(), "preview nowrap x2")

	send(h.b, keyRunes("w"))
	assert.True(t, h.b.preview.Wrap)
	assert.Equal(t, 0, h.b.preview.X)
	assert.Contains(t, h.b.statusLine(), "preview wrap")
}

func TestBrowserStatusShowsHits(t *testing.T) {
	h := newHarness(t, Options{State: State{Query: "build"}})
	assert.Contains(t, h.b.statusLine(), "hits 1/2")

	h = newHarness(t, Options{State: State{Query: "docs"}})
	send(h.b, keyType(tea.KeyBackspace), keyType(tea.KeyBackspace))
	h.clock.Advance(time.Second)
	send(h.b, debounceMsg{})
	assert.Equal(t, "do", h.b.query.Value())
	assert.Contains(t, h.b.statusLine(), "hits")
}

func TestBrowserTooSmall(t *testing.T) {
	h := newHarness(t, Options{})
	send(h.b, tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Equal(t, ErrorStyle.Render(TooSmallMessage), h.b.View())

	assert.Nil(t, send(h.b, keyType(tea.KeyDown)))
	assert.Equal(t, 0, h.b.idx)

	cmd := send(h.b, keyRunes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, ActionNone, h.b.Action().Kind)
}

func TestBrowserViewRenders(t *testing.T) {
	h := newHarness(t, Options{Status: "reindexed"})
	view := h.b.View()
	assert.Contains(t, view, HelpLine[:40])
	assert.Contains(t, view, "Query(query): ")
	assert.Contains(t, view, "reindexed")
	assert.Contains(t, view, "Fix the build")
	assert.Contains(t, view, "PREVIEW")
	assert.Contains(t, view, "id: s1-aaaaaaaa")
	assert.Contains(t, view, "looking at the build now")
}

func TestBrowserStateRoundTrip(t *testing.T) {
	st := State{Query: "build", Filters: search.Filters{Repo: "deck"}, Focus: FocusList, Wrap: true}
	h := newHarness(t, Options{State: st})
	assert.Equal(t, st, h.b.State())
}

func TestFormatRow(t *testing.T) {
	r := statedb.ResultRow{SessionID: "0199abcd-ef", Title: "hello", Pinned: true, CreatedAt: 0, UpdatedAt: 0}
	row := FormatRow(r, 100)
	assert.Contains(t, row, "0199abc★")
	assert.True(t, strings.HasSuffix(row, "hello"))
}
