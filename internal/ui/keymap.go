package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists the browser bindings. Action keys only fire outside the
// query field so they can be typed as text.
type KeyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Clear     key.Binding
	Focus     key.Binding
	Query     key.Binding
	Resume    key.Binding

	Up       key.Binding
	Down     key.Binding
	VimUp    key.Binding
	VimDown  key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
	Left     key.Binding
	Right    key.Binding

	ClearQuery key.Binding

	Wrap    key.Binding
	Tail    key.Binding
	NextHit key.Binding
	PrevHit key.Binding

	CopyID  key.Binding
	CopyCmd key.Binding
	Open    key.Binding
	Fork    key.Binding
	Share   key.Binding
	Pin     key.Binding
	Tags    key.Binding
	Note    key.Binding
	Repo    key.Binding
	Cwd     key.Binding
	Tag     key.Binding
	Pinned  key.Binding
	Group   key.Binding
	Reindex key.Binding
}

// DefaultKeyMap returns the standard browser bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
		Clear:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "clear")),
		Focus:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("Tab", "focus q/l/p")),
		Query:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "query")),
		Resume:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "resume")),

		Up:       key.NewBinding(key.WithKeys("up")),
		Down:     key.NewBinding(key.WithKeys("down")),
		VimUp:    key.NewBinding(key.WithKeys("k", "ctrl+p")),
		VimDown:  key.NewBinding(key.WithKeys("j", "ctrl+n")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		Home:     key.NewBinding(key.WithKeys("home")),
		End:      key.NewBinding(key.WithKeys("end")),
		Left:     key.NewBinding(key.WithKeys("left")),
		Right:    key.NewBinding(key.WithKeys("right")),

		ClearQuery: key.NewBinding(key.WithKeys("ctrl+u")),

		Wrap:    key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "wrap")),
		Tail:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "tail")),
		NextHit: key.NewBinding(key.WithKeys("n"), key.WithHelp("n/N", "hit")),
		PrevHit: key.NewBinding(key.WithKeys("N")),

		CopyID:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "id")),
		CopyCmd: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cmd")),
		Open:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open")),
		Fork:    key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "fork")),
		Share:   key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "share")),
		Pin:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "pin")),
		Tags:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tags")),
		Note:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "note")),
		Repo:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "repo")),
		Cwd:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "cwd")),
		Tag:     key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "tag")),
		Pinned:  key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "pinned")),
		Group:   key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "group")),
		Reindex: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reindex")),
	}
}

// HelpLine is the one-line key summary shown at the top of the browser.
const HelpLine = "Enter resume | Tab focus q/l/p | / query | arrows/Pg: list or preview | " +
	"x pin | t tags | m note | f repo | d cwd | F tag | P pinned | g group | n/N hit | " +
	"w wrap | v tail | y id | c cmd | o open | S share | K fork | R reindex | Esc clear | q quit"
