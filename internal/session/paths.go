// Package session keeps the session index in sync with the assistant's
// transcript directory and holds the user configuration.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DataDirEnv overrides the data directory (~/.codex-user).
const DataDirEnv = "CODEX_SESSIONS_HOME"

// DBFileName is the index file name inside the data directory.
const DBFileName = "codex_sessions.db"

// GetDataDir returns the directory holding the index, config, packs and logs.
func GetDataDir() (string, error) {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return ExpandPath(dir), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".codex-user"), nil
}

// DefaultCodexDir returns ~/.codex, honoring CODEX_HOME like the assistant CLI.
func DefaultCodexDir() string {
	if dir := os.Getenv("CODEX_HOME"); dir != "" {
		return ExpandPath(dir)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".codex"
	}
	return filepath.Join(homeDir, ".codex")
}

// dataPath joins name onto the data directory, falling back to a relative
// path when the home directory is unknown.
func dataPath(name string) string {
	dir, err := GetDataDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, name)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// SessionsDir returns the transcript root under a codex directory.
func SessionsDir(codexDir string) string {
	return filepath.Join(codexDir, "sessions")
}
