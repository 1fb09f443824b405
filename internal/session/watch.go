package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/asheshgoplani/codex-sessions/internal/logging"
)

var watchLog = logging.ForComponent(logging.CompWatch)

// Watcher keeps the index fresh by re-running Sync when transcripts
// change. Syncs never overlap: one goroutine runs them in order.
type Watcher struct {
	Syncer *Syncer

	// Interval is the minimum time between two syncs.
	Interval time.Duration
	// Settle is how long a burst of events must be quiet before a sync.
	Settle time.Duration
	// OnSync is called after every sync. Optional.
	OnSync func(SyncResult, error)
}

// Run watches until ctx is cancelled. It syncs once at startup.
func (w *Watcher) Run(ctx context.Context) error {
	root := SessionsDir(w.Syncer.CodexDir)
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	if err := addTree(fw, root); err != nil {
		return err
	}

	interval := w.Interval
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	trigger := make(chan struct{}, 1)
	trigger <- struct{}{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.eventLoop(ctx, fw, trigger) })
	g.Go(func() error { return w.syncLoop(ctx, limiter, trigger) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// addTree watches dir and every directory below it.
func addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return strings.HasSuffix(ev.Name, ".jsonl")
}

func (w *Watcher) eventLoop(ctx context.Context, fw *fsnotify.Watcher, trigger chan<- struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					// Day directories appear as sessions start.
					if err := addTree(fw, ev.Name); err != nil {
						watchLog.Warn("watch_add_failed", slog.String("path", ev.Name), slog.String("error", err.Error()))
					}
					select {
					case trigger <- struct{}{}:
					default:
					}
					continue
				}
			}
			if !relevant(ev) {
				continue
			}
			logging.Aggregate(logging.CompWatch, "transcript_event", slog.String("op", ev.Op.String()))
			select {
			case trigger <- struct{}{}:
			default:
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			watchLog.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) syncLoop(ctx context.Context, limiter *rate.Limiter, trigger chan struct{}) error {
	settle := w.Settle
	if settle <= 0 {
		settle = DefaultWatchSettle
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-trigger:
		}

		// Let writers finish their burst; later events fold into this sync.
		timer := time.NewTimer(settle)
		for quiet := false; !quiet; {
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-trigger:
				timer.Reset(settle)
			case <-timer.C:
				quiet = true
			}
		}

		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		res, err := w.Syncer.Sync(ctx, false)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			watchLog.Error("watch_sync_failed", slog.String("error", err.Error()))
		}
		if w.OnSync != nil {
			w.OnSync(res, err)
		}
	}
}
