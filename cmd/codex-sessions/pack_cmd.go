package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/asheshgoplani/codex-sessions/internal/pack"
	"github.com/asheshgoplani/codex-sessions/internal/session"
	"github.com/asheshgoplani/codex-sessions/internal/statedb"
)

// loadSession prints "session not found" for unknown ids.
func (a *app) loadSession(store *statedb.StateDB, id string) (*statedb.SessionDetail, bool) {
	d, err := store.GetSession(id)
	if errors.Is(err, statedb.ErrNotFound) {
		fmt.Fprintln(a.stderr, "session not found")
		return nil, false
	}
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return nil, false
	}
	return d, true
}

func (a *app) redactor() *pack.Redactor {
	return &pack.Redactor{Home: a.home}
}

// startCodex hands off to a new Codex session seeded with prompt, inside
// cwd when cd is set and the directory still exists.
func (a *app) startCodex(cwd string, cd bool, prompt string) int {
	var args []string
	if cd && cwd != "" {
		if _, err := os.Stat(cwd); err == nil {
			args = append(args, "-C", cwd)
		}
	}
	return a.handOff("codex", append(args, prompt)...)
}

func (a *app) cmdExport(args []string) int {
	fs := newFlagSet("export <id>", a.stderr)
	var f indexFlags
	fs.StringVar(&f.db, "db", a.cfg.GetDBPath(), "index database path")
	out := fs.String("out", "", "output path (defaults to stdout)")
	redact := fs.Bool("redact", false, "best-effort redaction of secrets and personal paths")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	f.noIndex = true
	store, _, err := a.openIndex(&f)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	d, ok := a.loadSession(store, fs.Arg(0))
	if !ok {
		return 2
	}
	var r *pack.Redactor
	if *redact {
		r = a.redactor()
	}
	text := pack.ExportMarkdown(d, r)

	if *out != "" {
		if err := pack.WriteFile(session.ExpandPath(*out), text); err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = io.WriteString(a.stdout, text)
	return 0
}

type forkOptions struct {
	sessionID  string
	outDir     string
	userPrompt string
	maxChars   int
	cd         bool
}

func (a *app) cmdFork(args []string) int {
	fs := newFlagSet("fork <id> [prompt]", a.stderr)
	var f indexFlags
	a.addIndexFlags(fs, &f, true)
	var o forkOptions
	fs.StringVar(&o.outDir, "out-dir", a.cfg.GetForkDir(), "directory for the private pack")
	fs.IntVar(&o.maxChars, "max-chars", a.cfg.GetForkMaxChars(), "max transcript characters in the prompt")
	fs.BoolVar(&o.cd, "cd", false, "start Codex in the session's cwd when it exists")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}
	o.sessionID = fs.Arg(0)
	o.userPrompt = strings.Join(fs.Args()[1:], " ")

	store, _, err := a.openIndex(&f)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()
	return a.fork(store, o)
}

// fork writes an unredacted pack and starts Codex with its transcript.
func (a *app) fork(store *statedb.StateDB, o forkOptions) int {
	d, ok := a.loadSession(store, o.sessionID)
	if !ok {
		return 2
	}
	p := pack.Build(d, nil)
	_, mdPath, err := pack.Write(p, session.ExpandPath(o.outDir))
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	prompt := pack.ForkPrompt(o.sessionID, mdPath, p.Content, o.maxChars, o.userPrompt)
	return a.startCodex(p.Cwd, o.cd, prompt)
}

type shareOptions struct {
	sessionID string
	outDir    string
	method    string
	title     string
	noRedact  bool
}

func (a *app) cmdShare(args []string) int {
	fs := newFlagSet("share <id>", a.stderr)
	var f indexFlags
	a.addIndexFlags(fs, &f, true)
	var o shareOptions
	fs.StringVar(&o.outDir, "out-dir", a.cfg.GetShareDir(), "directory for the shared pack")
	fs.StringVar(&o.method, "method", a.cfg.GetShareMethod(), "file or gist")
	fs.StringVar(&o.title, "title", "", "gist description")
	fs.BoolVar(&o.noRedact, "no-redact", false, "disable redaction (not recommended)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	o.sessionID = fs.Arg(0)

	store, _, err := a.openIndex(&f)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()
	return a.share(store, o)
}

// share writes a pack and publishes it as a file path or a private gist.
// A missing or unauthenticated gh falls back to the file.
func (a *app) share(store *statedb.StateDB, o shareOptions) int {
	if o.method != "file" && o.method != "gist" {
		fmt.Fprintln(a.stderr, "unknown share method")
		return 2
	}
	d, ok := a.loadSession(store, o.sessionID)
	if !ok {
		return 2
	}
	var r *pack.Redactor
	if !o.noRedact {
		r = a.redactor()
	}
	_, mdPath, err := pack.Write(pack.Build(d, r), session.ExpandPath(o.outDir))
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}

	if o.method == "file" {
		fmt.Fprintln(a.stdout, mdPath)
		return 0
	}

	switch err := a.gist.Check(a.ctx); {
	case errors.Is(err, pack.ErrGHNotFound):
		fmt.Fprintln(a.stderr, "gh not found; falling back to local file")
		fmt.Fprintln(a.stdout, mdPath)
		return 0
	case err != nil:
		fmt.Fprintln(a.stderr, "gh not authenticated; run `gh auth login` then retry. Falling back to local file.")
		fmt.Fprintln(a.stdout, mdPath)
		return 0
	}

	title := o.title
	if title == "" {
		title = "codex-session-" + o.sessionID
	}
	url, err := a.gist.Create(a.ctx, title, mdPath)
	if err != nil {
		fmt.Fprintln(a.stderr, err)
		fmt.Fprintln(a.stdout, mdPath)
		return 2
	}
	if url == "" {
		fmt.Fprintln(a.stdout, mdPath)
		return 0
	}
	_ = a.clip.Copy(url)
	fmt.Fprintln(a.stdout, url)
	return 0
}

func (a *app) cmdImport(args []string) int {
	fs := newFlagSet("import <path> [prompt]", a.stderr)
	maxChars := fs.Int("max-chars", a.cfg.GetForkMaxChars(), "max transcript characters in the prompt")
	cd := fs.Bool("cd", false, "start Codex in the pack's cwd when it exists")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}

	path := session.ExpandPath(fs.Arg(0))
	p, err := pack.LoadImport(path)
	if errors.Is(err, pack.ErrImportNotFound) {
		fmt.Fprintln(a.stderr, "file not found")
		return 2
	}
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 2
	}
	prompt := pack.ImportPrompt(path, p.Content, *maxChars, strings.Join(fs.Args()[1:], " "))
	return a.startCodex(p.Cwd, *cd, prompt)
}
