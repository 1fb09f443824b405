package ui

// ActionKind names what the shell should do after the browser exits.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionResume
	ActionOpen
	ActionFork
	ActionShare
	ActionReindex
)

func (k ActionKind) String() string {
	switch k {
	case ActionResume:
		return "resume"
	case ActionOpen:
		return "open"
	case ActionFork:
		return "fork"
	case ActionShare:
		return "share"
	case ActionReindex:
		return "reindex"
	default:
		return "none"
	}
}

// ExitAction is returned by the browser instead of being carried out.
// Path is set for ActionOpen, SessionID for the session actions.
type ExitAction struct {
	Kind      ActionKind
	SessionID string
	Path      string
}
