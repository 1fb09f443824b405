package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThemeWatcherForwardsAfterErrorsClose(t *testing.T) {
	events := make(chan bool)
	errs := make(chan error, 1)
	cancelled := make(chan struct{})
	tw := startThemeWatcher(func() { close(cancelled) }, events, errs)

	errs <- errors.New("appearance query failed")
	close(errs)

	events <- true
	select {
	case isDark := <-tw.Changes():
		assert.True(t, isDark)
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	tw.Close()
	tw.Close()
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("watch context not cancelled")
	}
}

func TestThemeWatcherCloseReleasesWaiters(t *testing.T) {
	tw := startThemeWatcher(func() {}, make(chan bool), make(chan error))
	cmd := waitForTheme(tw.Changes())
	require.NotNil(t, cmd)

	got := make(chan any, 1)
	go func() { got <- cmd() }()

	tw.Close()
	select {
	case msg := <-got:
		assert.Nil(t, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("waitForTheme still blocked after Close")
	}
}

func TestThemeWatcherStopsWhenEventsEnd(t *testing.T) {
	events := make(chan bool)
	tw := startThemeWatcher(func() {}, events, nil)
	close(events)

	select {
	case _, ok := <-tw.Changes():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("changes not closed")
	}
}

func TestNilThemeWatcher(t *testing.T) {
	var tw *ThemeWatcher
	assert.Nil(t, tw.Changes())
	assert.Nil(t, waitForTheme(tw.Changes()))
	tw.Close()
}
