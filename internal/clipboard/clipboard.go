// Package clipboard copies text to the system clipboard with the best
// tool the platform offers, falling back to an OSC 52 escape sequence.
package clipboard

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"

	"github.com/asheshgoplani/codex-sessions/internal/platform"
)

// ErrUnavailable is returned when no clipboard method works.
var ErrUnavailable = errors.New("no clipboard method available (install pbcopy, xclip, xsel, or wl-copy)")

// CopyResult contains metadata about a successful clipboard copy operation.
type CopyResult struct {
	Method    string // "pbcopy", "xclip", "osc52", ...
	ByteSize  int
	LineCount int
}

// tool is a clipboard command reading the text on stdin.
type tool struct {
	name string
	args []string
}

// System copies through platform tools. OSC52 enables the terminal
// escape fallback.
type System struct {
	OSC52 bool

	platform platform.Platform
	lookPath func(string) (string, error)
	run      func(name string, args []string, stdin string) error
	tty      func(seq string) error
	env      func(string) string
}

// New returns a System for the current platform. The OSC 52 fallback is
// enabled when stdout is a terminal.
func New() *System {
	return &System{
		OSC52:    term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("TERM") != "dumb",
		platform: platform.Detect(),
		lookPath: exec.LookPath,
		run:      runClipCmd,
		tty:      writeTTY,
		env:      os.Getenv,
	}
}

// Copy implements the browser's clipboard interface.
func (s *System) Copy(text string) error {
	_, err := s.CopyText(text)
	return err
}

// CopyText copies text, trying native tools first and OSC 52 last.
func (s *System) CopyText(text string) (*CopyResult, error) {
	if text == "" {
		return nil, fmt.Errorf("clipboard: no content to copy")
	}
	res := &CopyResult{ByteSize: len(text), LineCount: countLines(text)}

	var lastErr error
	for _, t := range s.tools() {
		path, err := s.lookPath(t.name)
		if err != nil {
			continue
		}
		if err := s.run(path, t.args, text); err != nil {
			lastErr = fmt.Errorf("clipboard: %s: %w", t.name, err)
			continue
		}
		res.Method = t.name
		return res, nil
	}

	if s.OSC52 {
		seq := generateOSC52(base64.StdEncoding.EncodeToString([]byte(text)), s.env("TMUX") != "")
		if err := s.tty(seq); err != nil {
			return nil, fmt.Errorf("clipboard: osc52: %w", err)
		}
		res.Method = "osc52"
		return res, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrUnavailable
}

// tools lists candidate commands for the platform in preference order.
func (s *System) tools() []tool {
	switch s.platform {
	case platform.PlatformMacOS:
		return []tool{{name: "pbcopy"}}
	case platform.PlatformWSL1, platform.PlatformWSL2, platform.PlatformWindows:
		return []tool{{name: "clip.exe"}}
	case platform.PlatformLinux:
		var out []tool
		if s.env("WAYLAND_DISPLAY") != "" {
			out = append(out, tool{name: "wl-copy"})
		}
		return append(out,
			tool{name: "xclip", args: []string{"-selection", "clipboard"}},
			tool{name: "xsel", args: []string{"--clipboard", "--input"}},
		)
	default:
		return nil
	}
}

// runClipCmd executes a clipboard command, piping text to its stdin.
func runClipCmd(name string, args []string, text string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}

// writeTTY writes to /dev/tty to bypass stdout redirection.
func writeTTY(seq string) error {
	tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("cannot open /dev/tty: %w", err)
	}
	defer tty.Close()
	_, err = tty.WriteString(seq)
	return err
}

// generateOSC52 builds the OSC 52 escape sequence, wrapped in a DCS
// passthrough inside tmux.
func generateOSC52(base64Content string, inTmux bool) string {
	osc := "\x1b]52;c;" + base64Content + "\x07"
	if inTmux {
		return "\x1bPtmux;\x1b" + osc + "\x1b\\"
	}
	return osc
}

// countLines counts lines; a trailing newline does not add one.
func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
