package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/asheshgoplani/codex-sessions/internal/git"
	"github.com/asheshgoplani/codex-sessions/internal/session"
	"github.com/asheshgoplani/codex-sessions/internal/statedb"
)

// indexFlags are shared by every command that reads the index.
type indexFlags struct {
	codexDir string
	db       string
	noIndex  bool
	reindex  bool
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: codex-sessions %s [flags]\n\nFlags:\n", name)
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags reports whether the command should run, and the exit code
// when it should not.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func (a *app) addIndexFlags(fs *flag.FlagSet, f *indexFlags, autoIndex bool) {
	fs.StringVar(&f.codexDir, "codex-dir", a.cfg.GetCodexDir(), "Codex home holding sessions/")
	fs.StringVar(&f.db, "db", a.cfg.GetDBPath(), "index database path")
	fs.BoolVar(&f.reindex, "reindex", false, "force re-parse of all sessions")
	if autoIndex {
		fs.BoolVar(&f.noIndex, "no-index", false, "skip automatic indexing")
	}
}

func (f *indexFlags) expand() {
	f.codexDir = session.ExpandPath(f.codexDir)
	f.db = session.ExpandPath(f.db)
}

func (a *app) syncer(store *statedb.StateDB, codexDir string) *session.Syncer {
	return &session.Syncer{Store: store, CodexDir: codexDir, Resolver: git.Resolver{}}
}

// openIndex opens the store and, unless disabled, brings it up to date.
func (a *app) openIndex(f *indexFlags) (*statedb.StateDB, session.SyncResult, error) {
	f.expand()
	store, err := statedb.Open(f.db)
	if err != nil {
		return nil, session.SyncResult{}, err
	}
	if f.noIndex {
		return store, session.SyncResult{}, nil
	}
	res, err := a.syncer(store, f.codexDir).Sync(a.ctx, f.reindex)
	if err != nil {
		store.Close()
		return nil, res, fmt.Errorf("index: %w", err)
	}
	return store, res, nil
}

func (a *app) cmdIndex(args []string) int {
	fs := newFlagSet("index", a.stderr)
	var f indexFlags
	a.addIndexFlags(fs, &f, false)
	quiet := fs.Bool("quiet", false, "print nothing")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	store, res, err := a.openIndex(&f)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	if !*quiet {
		fmt.Fprintf(a.stdout, "Indexed %d updated/new session file(s) into %s\n", res.Changed, f.db)
	}
	return 0
}
