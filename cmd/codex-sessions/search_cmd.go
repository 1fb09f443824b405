package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/asheshgoplani/codex-sessions/internal/search"
	"github.com/asheshgoplani/codex-sessions/internal/session"
	"github.com/asheshgoplani/codex-sessions/internal/statedb"
	"github.com/asheshgoplani/codex-sessions/internal/ui"
)

func (a *app) engine(store *statedb.StateDB, limit int) *search.Engine {
	eng := search.NewEngine(store)
	eng.Limit = limit
	eng.RecencyWeight = a.cfg.GetRecencyWeight()
	eng.Fuzzy = a.cfg.GetFuzzyFallback()
	return eng
}

// formatResultLine is the plain-text form of a result: tab separated id,
// created, updated, title and snippet.
func formatResultLine(r statedb.ResultRow) string {
	clean := func(s string) string {
		return strings.NewReplacer("\t", " ", "\n", " ").Replace(s)
	}
	return strings.Join([]string{
		r.SessionID,
		ui.FormatTime(r.CreatedAt),
		ui.FormatTime(r.UpdatedAt),
		clean(r.Title),
		clean(r.Snippet),
	}, "\t")
}

func (a *app) cmdSearch(args []string) int {
	fs := newFlagSet("search", a.stderr)
	var f indexFlags
	a.addIndexFlags(fs, &f, true)
	limit := fs.Int("limit", a.cfg.GetLimit(), "maximum number of results")
	all := fs.Bool("all", false, "browse most recent sessions (ignore query)")
	noUI := fs.Bool("no-ui", false, "print results instead of opening the browser")
	copyID := fs.Bool("copy", false, "copy the resumed session id to the clipboard")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	query := strings.Join(fs.Args(), " ")

	store, _, err := a.openIndex(&f)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()
	eng := a.engine(store, *limit)

	if *noUI || !a.isTTY() {
		var rows []statedb.ResultRow
		if *all || search.IsBrowse(query) {
			rows, err = eng.Browse()
		} else {
			rows, err = eng.Match(query)
		}
		if err != nil {
			fmt.Fprintf(a.stderr, "search failed: %v\n", err)
			return 2
		}
		for _, r := range rows {
			fmt.Fprintln(a.stdout, formatResultLine(r))
		}
		return 0
	}

	if *all {
		query = ""
	}
	return a.browse(store, &f, eng, a.initialState(query), *copyID)
}

func (a *app) cmdLive(args []string) int {
	fs := newFlagSet("live", a.stderr)
	var f indexFlags
	a.addIndexFlags(fs, &f, true)
	limit := fs.Int("limit", a.cfg.GetLimit(), "maximum number of results")
	copyID := fs.Bool("copy", false, "copy the resumed session id to the clipboard")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	store, _, err := a.openIndex(&f)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	return a.browse(store, &f, a.engine(store, *limit), a.initialState(strings.Join(fs.Args(), " ")), *copyID)
}

func (a *app) initialState(query string) ui.State {
	return ui.State{
		Query: query,
		Focus: ui.FocusQuery,
		Wrap:  a.cfg.UI.Wrap,
		Tail:  a.cfg.GetTail(),
	}
}

// browse runs the browser until it exits with something other than a
// reindex. A reindex runs a forced sync and reopens the browser where it
// left off.
func (a *app) browse(store *statedb.StateDB, f *indexFlags, eng *search.Engine, st ui.State, copyID bool) int {
	status := ""
	for {
		var tw *ui.ThemeWatcher
		if a.cfg.GetTheme() == "system" {
			tw = ui.NewThemeWatcher(a.ctx)
		}
		b := ui.NewBrowser(eng, store, a.clip, ui.Options{
			State:        st,
			Status:       status,
			Debounce:     a.cfg.GetDebounce(),
			IndexedAt:    session.LastIndexed(store),
			ThemeChanges: tw.Changes(),
		})
		final, err := tea.NewProgram(b, tea.WithAltScreen()).Run()
		tw.Close()
		if err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
		if fb, ok := final.(*ui.Browser); ok {
			b = fb
		}

		act := b.Action()
		if act.Kind != ui.ActionReindex {
			return a.runAction(store, act, copyID)
		}
		st = b.State()
		res, err := a.syncer(store, f.codexDir).Sync(a.ctx, true)
		if err != nil {
			cliLog.Error("reindex_failed", slog.String("error", err.Error()))
			status = "reindex failed"
			continue
		}
		status = "reindexed"
		cliLog.Info("reindexed", slog.Int("changed", res.Changed))
	}
}

// runAction carries out what the browser asked for on exit.
func (a *app) runAction(store *statedb.StateDB, act ui.ExitAction, copyID bool) int {
	cliLog.Info("browser_exit", slog.String("action", act.Kind.String()), slog.String("session_id", act.SessionID))
	switch act.Kind {
	case ui.ActionResume:
		if copyID {
			_ = a.clip.Copy(act.SessionID)
		}
		return a.handOff("codex", "resume", act.SessionID)
	case ui.ActionOpen:
		editor := strings.Fields(os.Getenv("EDITOR"))
		if len(editor) == 0 {
			editor = []string{"vi"}
		}
		return a.handOff(editor[0], append(editor[1:], act.Path)...)
	case ui.ActionFork:
		return a.fork(store, forkOptions{
			sessionID: act.SessionID,
			outDir:    a.cfg.GetForkDir(),
			maxChars:  a.cfg.GetForkMaxChars(),
			cd:        true,
		})
	case ui.ActionShare:
		method := "file"
		if a.gist.Available(a.ctx) {
			method = "gist"
		}
		return a.share(store, shareOptions{
			sessionID: act.SessionID,
			outDir:    a.cfg.GetShareDir(),
			method:    method,
		})
	}
	return 1
}

// handOff replaces the process with name. It returns only when that
// fails, or when replace is a test double.
func (a *app) handOff(name string, args ...string) int {
	cliLog.Info("exec", slog.String("program", name), slog.Int("args", len(args)))
	if err := a.replace(name, args); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
