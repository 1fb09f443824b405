package ui

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/asheshgoplani/codex-sessions/internal/logging"
	"github.com/asheshgoplani/codex-sessions/internal/search"
	"github.com/asheshgoplani/codex-sessions/internal/statedb"
)

var uiLog = logging.ForComponent(logging.CompUI)

// Minimum terminal size the browser can lay out.
const (
	MinWidth  = 110
	MinHeight = 12
)

// TooSmallMessage replaces the browser on undersized terminals.
const TooSmallMessage = "Terminal too small (need ~110x12). Press q to quit."

// Focus is the pane that receives navigation keys.
type Focus int

const (
	FocusQuery Focus = iota
	FocusList
	FocusPreview
)

func (f Focus) String() string {
	switch f {
	case FocusList:
		return "list"
	case FocusPreview:
		return "preview"
	default:
		return "query"
	}
}

func (f Focus) next() Focus {
	return (f + 1) % 3
}

// Searcher produces the filtered result rows for typed text.
type Searcher interface {
	Fetch(text string, f search.Filters) []statedb.ResultRow
}

// AnnotationStore loads session details and persists user annotations.
type AnnotationStore interface {
	GetSession(id string) (*statedb.SessionDetail, error)
	TogglePinned(id string, now time.Time) (bool, error)
	SetTags(id, tags string, now time.Time) error
	SetNote(id, note string, now time.Time) error
}

// Clipboard copies text for the y and c keys.
type Clipboard interface {
	Copy(text string) error
}

// Options seed a browser. State carries a previous browser's query,
// filters and view toggles across a relaunch.
type Options struct {
	State
	Status    string
	Debounce  time.Duration
	IndexedAt time.Time
	// ThemeChanges delivers OS appearance changes (true = dark).
	ThemeChanges <-chan bool
	Now          func() time.Time
}

// State is the part of the browser that survives a relaunch.
type State struct {
	Query   string
	Filters search.Filters
	Focus   Focus
	Wrap    bool
	Tail    bool
}

type debounceMsg struct{}

// Browser is the interactive session list with a preview pane.
type Browser struct {
	keys   KeyMap
	search Searcher
	store  AnnotationStore
	clip   Clipboard
	now    func() time.Time

	width  int
	height int

	focus    Focus
	query    textinput.Model
	debounce Debounce
	filters  search.Filters

	rows   []statedb.ResultRow
	idx    int
	offset int

	details map[string]*statedb.SessionDetail
	preview *Preview

	prompt    *prompt
	status    string
	statusErr bool
	indexedAt time.Time
	themeCh   <-chan bool

	action ExitAction
}

// NewBrowser builds a browser and runs the initial query.
func NewBrowser(s Searcher, store AnnotationStore, clip Clipboard, opts Options) *Browser {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 512
	ti.SetValue(opts.Query)
	ti.CursorEnd()

	delay := opts.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	b := &Browser{
		keys:      DefaultKeyMap(),
		search:    s,
		store:     store,
		clip:      clip,
		now:       now,
		query:     ti,
		debounce:  Debounce{Delay: delay},
		filters:   opts.Filters,
		details:   make(map[string]*statedb.SessionDetail),
		preview:   NewPreview(opts.Wrap, opts.Tail),
		status:    opts.Status,
		indexedAt: opts.IndexedAt,
		themeCh:   opts.ThemeChanges,
	}
	b.setFocus(opts.Focus)
	b.refresh(true)
	return b
}

// Init implements tea.Model.
func (b *Browser) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForTheme(b.themeCh))
}

// Action returns the exit action chosen by the user, if any.
func (b *Browser) Action() ExitAction {
	return b.action
}

// State snapshots the browser for a relaunch.
func (b *Browser) State() State {
	return State{
		Query:   b.query.Value(),
		Filters: b.filters,
		Focus:   b.focus,
		Wrap:    b.preview.Wrap,
		Tail:    b.preview.Tail,
	}
}

// Rows returns the current result rows.
func (b *Browser) Rows() []statedb.ResultRow {
	return b.rows
}

// Selected returns the highlighted row, or nil when the list is empty.
func (b *Browser) Selected() *statedb.ResultRow {
	if len(b.rows) == 0 {
		return nil
	}
	return &b.rows[b.idx]
}

// Update implements tea.Model. A pending query edit is applied first
// whenever it has become due, whatever the message.
func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if b.debounce.Due(b.now()) {
		b.debounce.Clear()
		b.refresh(true)
	}

	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
	case debounceMsg:
	case themeChangedMsg:
		if msg.dark {
			InitTheme(string(ThemeDark))
		} else {
			InitTheme(string(ThemeLight))
		}
		cmd = waitForTheme(b.themeCh)
	case tea.KeyMsg:
		cmd = b.handleKey(msg)
	}

	b.syncView()
	return b, cmd
}

func (b *Browser) tooSmall() bool {
	return b.width < MinWidth || b.height < MinHeight
}

func (b *Browser) setFocus(f Focus) {
	b.focus = f
	if f == FocusQuery {
		b.query.Focus()
	} else {
		b.query.Blur()
	}
}

func (b *Browser) setStatus(msg string) {
	b.status = msg
	b.statusErr = false
}

func (b *Browser) setError(op string, err error) {
	uiLog.Warn("action_failed", slog.String("op", op), slog.String("error", err.Error()))
	b.status = fmt.Sprintf("%s failed: %v", op, err)
	b.statusErr = true
}

func (b *Browser) exit(a ExitAction) tea.Cmd {
	b.action = a
	return tea.Quit
}

// refresh reruns the query with the current filters.
func (b *Browser) refresh(resetSelection bool) {
	b.rows = b.search.Fetch(b.query.Value(), b.filters)
	if resetSelection {
		b.idx, b.offset = 0, 0
	}
	b.clampSelection()
}

func (b *Browser) clampSelection() {
	if len(b.rows) == 0 {
		b.idx = 0
	} else {
		b.idx = max(0, min(b.idx, len(b.rows)-1))
	}
	if b.idx < b.offset {
		b.offset = b.idx
	}
}

func (b *Browser) moveSelection(delta int) {
	if len(b.rows) == 0 {
		return
	}
	b.idx += delta
	b.clampSelection()
}

// detail returns the cached detail for id, loading it on first use.
func (b *Browser) detail(id string) *statedb.SessionDetail {
	if d, ok := b.details[id]; ok {
		return d
	}
	d, err := b.store.GetSession(id)
	if err != nil {
		uiLog.Warn("detail_load_failed", slog.String("session_id", id), slog.String("error", err.Error()))
		return nil
	}
	b.details[id] = d
	return d
}

func (b *Browser) evict(id string) {
	delete(b.details, id)
}

func (b *Browser) handleKey(msg tea.KeyMsg) tea.Cmd {
	if b.prompt != nil {
		return b.handlePrompt(msg)
	}

	b.status = ""
	b.statusErr = false

	if key.Matches(msg, b.keys.ForceQuit) {
		return b.exit(ExitAction{})
	}
	if b.tooSmall() {
		if key.Matches(msg, b.keys.Quit, b.keys.Clear) {
			return b.exit(ExitAction{})
		}
		return nil
	}

	switch {
	case key.Matches(msg, b.keys.Quit) && b.focus != FocusQuery:
		return b.exit(ExitAction{})
	case key.Matches(msg, b.keys.Clear):
		b.query.SetValue("")
		b.debounce.Clear()
		b.refresh(true)
		return nil
	case key.Matches(msg, b.keys.Focus):
		b.setFocus(b.focus.next())
		return nil
	case key.Matches(msg, b.keys.Query) && b.focus != FocusQuery:
		b.setFocus(FocusQuery)
		return nil
	}

	if b.focus == FocusPreview && b.Selected() != nil && b.previewKey(msg) {
		return nil
	}
	if b.focus != FocusPreview && b.listKey(msg) {
		return nil
	}

	sel := b.Selected()
	if key.Matches(msg, b.keys.Resume) {
		if sel != nil {
			return b.exit(ExitAction{Kind: ActionResume, SessionID: sel.SessionID})
		}
		return nil
	}

	if b.focus == FocusQuery {
		return b.editQuery(msg)
	}
	return b.actionKey(msg)
}

func (b *Browser) previewKey(msg tea.KeyMsg) bool {
	p := b.preview
	switch {
	case key.Matches(msg, b.keys.Up, b.keys.VimUp):
		p.Scroll(-1)
	case key.Matches(msg, b.keys.Down, b.keys.VimDown):
		p.Scroll(1)
	case key.Matches(msg, b.keys.PageUp):
		p.PageUp()
	case key.Matches(msg, b.keys.PageDown):
		p.PageDown()
	case key.Matches(msg, b.keys.Home):
		p.Home()
	case key.Matches(msg, b.keys.End):
		p.End()
	case key.Matches(msg, b.keys.Left):
		p.Pan(-1)
	case key.Matches(msg, b.keys.Right):
		p.Pan(1)
	default:
		return false
	}
	return true
}

func (b *Browser) listKey(msg tea.KeyMsg) bool {
	_, _, visible := b.layout()
	switch {
	case key.Matches(msg, b.keys.Up):
		b.moveSelection(-1)
	case key.Matches(msg, b.keys.Down):
		b.moveSelection(1)
	case key.Matches(msg, b.keys.VimUp) && b.focus != FocusQuery:
		b.moveSelection(-1)
	case key.Matches(msg, b.keys.VimDown) && b.focus != FocusQuery:
		b.moveSelection(1)
	case key.Matches(msg, b.keys.PageUp):
		b.moveSelection(-visible)
	case key.Matches(msg, b.keys.PageDown):
		b.moveSelection(visible)
	case key.Matches(msg, b.keys.Home):
		b.idx, b.offset = 0, 0
	case key.Matches(msg, b.keys.End):
		b.moveSelection(len(b.rows))
	default:
		return false
	}
	return true
}

// editQuery applies a key to the query field. Edits only mark the
// debounce; the requery happens once typing pauses.
func (b *Browser) editQuery(msg tea.KeyMsg) tea.Cmd {
	before := b.query.Value()

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, b.keys.ClearQuery):
		b.query.SetValue("")
	case msg.Type == tea.KeyRunes, msg.Type == tea.KeySpace,
		msg.Type == tea.KeyBackspace, msg.Type == tea.KeyDelete,
		msg.Type == tea.KeyLeft, msg.Type == tea.KeyRight:
		b.query, cmd = b.query.Update(msg)
	default:
		return nil
	}

	if b.query.Value() == before {
		return cmd
	}
	b.debounce.Mark(b.now())
	delay := b.debounce.Delay
	tick := tea.Tick(delay, func(time.Time) tea.Msg { return debounceMsg{} })
	return tea.Batch(cmd, tick)
}

func (b *Browser) actionKey(msg tea.KeyMsg) tea.Cmd {
	p := b.preview
	switch {
	case key.Matches(msg, b.keys.Wrap):
		p.ToggleWrap()
		return nil
	case key.Matches(msg, b.keys.Tail):
		p.ToggleTail()
		return nil
	case key.Matches(msg, b.keys.NextHit):
		p.NextHit(1)
		return nil
	case key.Matches(msg, b.keys.PrevHit):
		p.NextHit(-1)
		return nil
	case key.Matches(msg, b.keys.Repo):
		b.openPrompt(promptRepo, "", b.filters.Repo)
		return textinput.Blink
	case key.Matches(msg, b.keys.Cwd):
		b.openPrompt(promptCwd, "", b.filters.Cwd)
		return textinput.Blink
	case key.Matches(msg, b.keys.Tag):
		b.openPrompt(promptTag, "", b.filters.Tag)
		return textinput.Blink
	case key.Matches(msg, b.keys.Pinned):
		b.filters.PinnedOnly = !b.filters.PinnedOnly
		b.refresh(true)
		return nil
	case key.Matches(msg, b.keys.Group):
		b.filters.Group = !b.filters.Group
		b.refresh(true)
		return nil
	case key.Matches(msg, b.keys.Reindex):
		return b.exit(ExitAction{Kind: ActionReindex})
	}

	sel := b.Selected()
	if sel == nil {
		return nil
	}
	id := sel.SessionID

	switch {
	case key.Matches(msg, b.keys.CopyID):
		b.copy(id, "copied id")
	case key.Matches(msg, b.keys.CopyCmd):
		b.copy(ResumeCommand(id), "copied cmd")
	case key.Matches(msg, b.keys.Open):
		path := sel.FilePath
		if d := b.detail(id); d != nil && d.FilePath != "" {
			path = d.FilePath
		}
		if path == "" {
			b.setStatus("no file_path")
			return nil
		}
		return b.exit(ExitAction{Kind: ActionOpen, SessionID: id, Path: path})
	case key.Matches(msg, b.keys.Fork):
		return b.exit(ExitAction{Kind: ActionFork, SessionID: id})
	case key.Matches(msg, b.keys.Share):
		return b.exit(ExitAction{Kind: ActionShare, SessionID: id})
	case key.Matches(msg, b.keys.Pin):
		pinned, err := b.store.TogglePinned(id, b.now())
		if err != nil {
			b.setError("pin", err)
			return nil
		}
		b.evict(id)
		b.refresh(false)
		if pinned {
			b.setStatus("pinned")
		} else {
			b.setStatus("unpinned")
		}
	case key.Matches(msg, b.keys.Tags):
		current := sel.Tags
		if d := b.detail(id); d != nil {
			current = d.Annotation.Tags
		}
		b.openPrompt(promptTags, id, current)
		return textinput.Blink
	case key.Matches(msg, b.keys.Note):
		current := sel.Note
		if d := b.detail(id); d != nil {
			current = d.Annotation.Note
		}
		b.openPrompt(promptNote, id, current)
		return textinput.Blink
	}
	return nil
}

// ResumeCommand is the shell command that resumes a session.
func ResumeCommand(id string) string {
	return "codex resume " + id
}

func (b *Browser) copy(text, done string) {
	if b.clip == nil {
		b.setStatus("clipboard unavailable")
		return
	}
	if err := b.clip.Copy(text); err != nil {
		b.setError("copy", err)
		return
	}
	b.setStatus(done)
}

// syncView keeps the list scrolled to the selection and the preview
// layout current, so View only reads state.
func (b *Browser) syncView() {
	if b.tooSmall() {
		return
	}
	_, _, visible := b.layout()
	if b.idx < b.offset {
		b.offset = b.idx
	}
	if b.idx >= b.offset+visible {
		b.offset = b.idx - visible + 1
	}

	sel := b.Selected()
	if sel == nil {
		b.preview.Sync("", "", nil, 1, 1)
		return
	}
	d := b.detail(sel.SessionID)
	if d == nil {
		b.preview.Sync("", "", nil, 1, 1)
		return
	}
	w, h := b.previewSize(d)
	b.preview.Sync(d.SessionID, d.Content, search.Terms(b.query.Value()), w, h)
}
