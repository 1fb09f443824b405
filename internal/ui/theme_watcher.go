package ui

import (
	"context"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	dark "github.com/thiagokokada/dark-mode-go"
)

// ThemeWatcher follows OS dark mode changes for theme = "system".
type ThemeWatcher struct {
	changeCh  chan bool // true=dark, false=light; closed when forwarding stops
	closeCh   chan struct{}
	closeOnce sync.Once
}

// themeChangedMsg carries an OS appearance change into the browser.
type themeChangedMsg struct {
	dark bool
}

// NewThemeWatcher creates and starts a theme watcher.
// Returns nil if the platform cannot report appearance changes.
func NewThemeWatcher(parentCtx context.Context) *ThemeWatcher {
	ctx, cancel := context.WithCancel(parentCtx)

	events, errs, err := dark.WatchDarkMode(ctx)
	if err != nil {
		cancel()
		uiLog.Warn("theme_watcher_init_failed", slog.String("error", err.Error()))
		return nil
	}
	return startThemeWatcher(cancel, events, errs)
}

func startThemeWatcher(cancel context.CancelFunc, events <-chan bool, errs <-chan error) *ThemeWatcher {
	tw := &ThemeWatcher{
		changeCh: make(chan bool, 1),
		closeCh:  make(chan struct{}),
	}
	go tw.forward(cancel, events, errs)
	return tw
}

// forward relays appearance events until Close or until events ends.
// changeCh is closed on return so pending waitForTheme commands finish.
func (tw *ThemeWatcher) forward(cancel context.CancelFunc, events <-chan bool, errs <-chan error) {
	defer close(tw.changeCh)
	defer cancel()
	for events != nil {
		select {
		case <-tw.closeCh:
			return
		case isDark, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			// Keep only the latest appearance.
			select {
			case <-tw.changeCh:
			default:
			}
			tw.changeCh <- isDark
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				uiLog.Warn("theme_watcher_error", slog.String("error", err.Error()))
			}
		}
	}
}

// Changes returns the channel that receives dark mode changes.
func (tw *ThemeWatcher) Changes() <-chan bool {
	if tw == nil {
		return nil
	}
	return tw.changeCh
}

// Close stops the watcher goroutine and closes Changes. Safe to call
// multiple times.
func (tw *ThemeWatcher) Close() {
	if tw == nil {
		return
	}
	tw.closeOnce.Do(func() {
		close(tw.closeCh)
	})
}

// waitForTheme blocks on ch and reports the next change. A nil channel
// yields no command.
func waitForTheme(ch <-chan bool) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		isDark, ok := <-ch
		if !ok {
			return nil
		}
		return themeChangedMsg{dark: isDark}
	}
}
