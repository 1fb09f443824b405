package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/asheshgoplani/codex-sessions/internal/clipboard"
	"github.com/asheshgoplani/codex-sessions/internal/logging"
	"github.com/asheshgoplani/codex-sessions/internal/pack"
	"github.com/asheshgoplani/codex-sessions/internal/session"
	"github.com/asheshgoplani/codex-sessions/internal/ui"
)

const Version = "0.4.0"

var cliLog = logging.ForComponent(logging.CompCLI)

// init sets up color profile for consistent terminal colors across environments
func init() {
	initColorProfile()
}

// initColorProfile configures lipgloss color profile based on terminal capabilities.
// Prefers TrueColor, falls back to ANSI256.
func initColorProfile() {
	// CODEX_SESSIONS_COLOR: truecolor, 256, 16, none
	if colorEnv := os.Getenv("CODEX_SESSIONS_COLOR"); colorEnv != "" {
		switch strings.ToLower(colorEnv) {
		case "truecolor", "true", "24bit":
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		case "256", "ansi256":
			lipgloss.SetColorProfile(termenv.ANSI256)
			return
		case "16", "ansi", "basic":
			lipgloss.SetColorProfile(termenv.ANSI)
			return
		case "none", "off", "ascii":
			lipgloss.SetColorProfile(termenv.Ascii)
			return
		}
	}

	colorTerm := os.Getenv("COLORTERM")
	if colorTerm == "truecolor" || colorTerm == "24bit" {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}

	termName := os.Getenv("TERM")
	for _, t := range []string{"xterm-256color", "screen-256color", "tmux-256color", "xterm-direct", "alacritty", "kitty", "wezterm"} {
		if strings.Contains(termName, t) {
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		}
	}

	if os.Getenv("WT_SESSION") != "" || // Windows Terminal
		os.Getenv("ITERM_SESSION_ID") != "" || // iTerm2
		os.Getenv("TERMINAL_EMULATOR") != "" || // JetBrains terminals
		os.Getenv("KONSOLE_VERSION") != "" { // Konsole
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}

	lipgloss.SetColorProfile(termenv.ANSI256)
}

func main() {
	cfg, err := session.LoadUserConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (using defaults)\n", err)
	}
	ui.InitTheme(cfg.ResolveTheme())

	stopLogging := setupLogging(cfg)
	code := newApp(cfg).run(os.Args[1:])
	stopLogging()
	os.Exit(code)
}

// setupLogging starts file logging when enabled in config or by
// CODEX_SESSIONS_DEBUG, and dumps the ring buffer on SIGUSR1.
func setupLogging(cfg *session.UserConfig) func() {
	debugMode := os.Getenv("CODEX_SESSIONS_DEBUG") != ""
	logCfg := cfg.LoggingConfig(debugMode)
	if err := logging.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
		return func() {}
	}
	if !logCfg.Enabled {
		return logging.Shutdown
	}

	usr1Chan := make(chan os.Signal, 1)
	signal.Notify(usr1Chan, syscall.SIGUSR1)
	go func() {
		for range usr1Chan {
			dumpPath := filepath.Join(logCfg.LogDir, fmt.Sprintf("crash-dump-%d.jsonl", time.Now().Unix()))
			if err := logging.DumpRingBuffer(dumpPath); err != nil {
				cliLog.Error("crash_dump_failed", slog.String("error", err.Error()))
			} else {
				cliLog.Info("crash_dump_written", slog.String("path", dumpPath))
			}
		}
	}()

	cliLog.Info("started", slog.Int("pid", os.Getpid()), slog.String("version", Version))
	return func() {
		signal.Stop(usr1Chan)
		logging.Shutdown()
	}
}

// clipboardWriter is the clipboard as the shell layer sees it.
type clipboardWriter interface {
	Copy(text string) error
}

// app carries the configuration and the process-level collaborators of
// one invocation.
type app struct {
	cfg    *session.UserConfig
	stdout io.Writer
	stderr io.Writer
	clip   clipboardWriter
	gist   *pack.Gist
	home   string

	// replace hands the process over to another program. It only returns
	// on failure.
	replace func(name string, args []string) error
	isTTY   func() bool
	ctx     context.Context
}

func newApp(cfg *session.UserConfig) *app {
	home, _ := os.UserHomeDir()
	return &app{
		cfg:     cfg,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		clip:    clipboard.New(),
		gist:    pack.NewGist(),
		home:    home,
		replace: execProgram,
		isTTY: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		},
		ctx: context.Background(),
	}
}

// execProgram replaces the current process with name, looked up in PATH.
func execProgram(name string, args []string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", name)
	}
	// syscall.Exec skips deferred cleanup; flush logs first.
	logging.Shutdown()
	return syscall.Exec(path, append([]string{name}, args...), os.Environ())
}

func (a *app) run(args []string) int {
	if len(args) == 0 {
		a.printHelp()
		return 2
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version", "--version", "-v":
		fmt.Fprintf(a.stdout, "codex-sessions v%s\n", Version)
		return 0
	case "help", "--help", "-h":
		a.printHelp()
		return 0
	case "index":
		return a.cmdIndex(rest)
	case "search":
		return a.cmdSearch(rest)
	case "live":
		return a.cmdLive(rest)
	case "export":
		return a.cmdExport(rest)
	case "fork":
		return a.cmdFork(rest)
	case "share":
		return a.cmdShare(rest)
	case "import":
		return a.cmdImport(rest)
	case "watch":
		return a.cmdWatch(rest)
	case "config":
		return a.cmdConfig(rest)
	}
	fmt.Fprintf(a.stderr, "unknown command %q\n\n", cmd)
	a.printHelp()
	return 2
}

func (a *app) printHelp() {
	fmt.Fprintf(a.stdout, `codex-sessions v%s
Full-text search over Codex sessions, with a live browser.

Usage: codex-sessions <command> [flags]

Commands:
  index                 Index Codex sessions into the search database
  search [query]        Search sessions (interactive browser by default)
  live [query]          Live browser: results update as you type
  export <id>           Export a session to Markdown
  fork <id> [prompt]    Start a new Codex session from a private pack
  share <id>            Share a redacted session pack (file or private gist)
  import <path> [prompt]
                        Start a new Codex session from a pack file
  watch                 Keep the index fresh while transcripts change
  config init|path      Create or locate config.toml
  config set <key> <value>
                        Change one setting in config.toml
  version               Show version

Run 'codex-sessions <command> --help' for command flags.
`, Version)
}
