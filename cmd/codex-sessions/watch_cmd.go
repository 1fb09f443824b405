package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asheshgoplani/codex-sessions/internal/platform"
	"github.com/asheshgoplani/codex-sessions/internal/session"
	"github.com/asheshgoplani/codex-sessions/internal/ui"
)

func (a *app) cmdWatch(args []string) int {
	fs := newFlagSet("watch", a.stderr)
	var f indexFlags
	a.addIndexFlags(fs, &f, false)
	quiet := fs.Bool("quiet", false, "print nothing after each sync")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	f.noIndex = true
	store, _, err := a.openIndex(&f)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	root := session.SessionsDir(f.codexDir)
	if warning := platform.CheckFsnotifySupport(root); warning != "" {
		fmt.Fprintf(a.stderr, "warning: %s\n", warning)
	}

	s := a.syncer(store, f.codexDir)
	if f.reindex {
		if _, err := s.Sync(a.ctx, true); err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
	}

	w := &session.Watcher{
		Syncer:   s,
		Interval: a.cfg.GetWatchInterval(),
		Settle:   a.cfg.GetWatchSettle(),
		OnSync: func(res session.SyncResult, err error) {
			if *quiet {
				return
			}
			now := time.Now().Format(ui.TimeLayout)
			if err != nil {
				fmt.Fprintf(a.stderr, "%s sync failed: %v\n", now, err)
				return
			}
			if res.Changed > 0 {
				fmt.Fprintf(a.stdout, "%s indexed %d updated/new session file(s)\n", now, res.Changed)
			}
		},
	}

	ctx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !*quiet {
		fmt.Fprintf(a.stdout, "Watching %s (Ctrl-C to stop)\n", root)
	}
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

