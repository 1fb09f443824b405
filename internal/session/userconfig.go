package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/natefinch/atomic"
	dark "github.com/thiagokokada/dark-mode-go"

	"github.com/asheshgoplani/codex-sessions/internal/logging"
)

// UserConfigFileName is the config file inside the data directory.
const UserConfigFileName = "config.toml"

// UserConfig is the contents of config.toml. Zero values mean "use the
// default"; read settings through the Get* helpers.
type UserConfig struct {
	Index  IndexSettings  `toml:"index"`
	Search SearchSettings `toml:"search"`
	UI     UISettings     `toml:"ui"`
	Fork   ForkSettings   `toml:"fork"`
	Share  ShareSettings  `toml:"share"`
	Logs   LogSettings    `toml:"logs"`
	Watch  WatchSettings  `toml:"watch"`
}

// IndexSettings locates the transcripts and the index.
type IndexSettings struct {
	// CodexDir is the assistant home holding sessions/ (default: ~/.codex)
	CodexDir string `toml:"codex_dir"`

	// DBPath is the index database (default: ~/.codex-user/codex_sessions.db)
	DBPath string `toml:"db_path"`
}

// SearchSettings tunes queries and ranking.
type SearchSettings struct {
	// Limit is the maximum number of rows per query (default: 200)
	Limit int `toml:"limit"`

	// RecencyWeight is the score penalty per day since the last update
	// (default: 0.15). Set a negative value to disable the recency term.
	RecencyWeight float64 `toml:"recency_weight"`

	// FuzzyFallback matches titles fuzzily when a keyword query finds
	// nothing (default: true)
	FuzzyFallback *bool `toml:"fuzzy_fallback"`
}

// UISettings configures the live browser.
type UISettings struct {
	// Theme is "dark" (default), "light" or "system"
	Theme string `toml:"theme"`

	// DebounceMs is the typing pause before a query runs (default: 120)
	DebounceMs int `toml:"debounce_ms"`

	// Wrap starts the preview in wrap mode (default: false)
	Wrap bool `toml:"wrap"`

	// Tail scrolls the preview to the end when there is no query (default: true)
	Tail *bool `toml:"tail"`
}

// ForkSettings configures fork packs and prompts.
type ForkSettings struct {
	// OutDir receives private packs (default: ~/.codex-user/forks)
	OutDir string `toml:"out_dir"`

	// MaxChars keeps the last N transcript characters in the prompt (default: 200000)
	MaxChars int `toml:"max_chars"`
}

// ShareSettings configures shared packs.
type ShareSettings struct {
	// OutDir receives redacted packs (default: ~/.codex-user/shares)
	OutDir string `toml:"out_dir"`

	// Method is "file" (default) or "gist"
	Method string `toml:"method"`
}

// LogSettings configures the debug log.
type LogSettings struct {
	// Enabled writes debug.log into the data directory (default: false)
	Enabled bool `toml:"enabled"`

	// Level is "debug", "info" (default), "warn" or "error"
	Level string `toml:"level"`

	// Format is "json" (default) or "text"
	Format string `toml:"format"`

	MaxSizeMB  int  `toml:"max_size_mb"`
	MaxBackups int  `toml:"max_backups"`
	MaxAgeDays int  `toml:"max_age_days"`
	Compress   bool `toml:"compress"`
}

// WatchSettings configures the watch command.
type WatchSettings struct {
	// MinIntervalMs is the minimum time between two syncs (default: 1000)
	MinIntervalMs int `toml:"min_interval_ms"`

	// SettleMs waits for writes to settle before syncing (default: 300)
	SettleMs int `toml:"settle_ms"`
}

// Defaults.
const (
	DefaultLimit         = 200
	DefaultRecencyWeight = 0.15
	DefaultDebounce      = 120 * time.Millisecond
	DefaultForkMaxChars  = 200_000
	DefaultWatchInterval = time.Second
	DefaultWatchSettle   = 300 * time.Millisecond
)

var (
	userConfigCache   *UserConfig
	userConfigCacheMu sync.RWMutex
)

// GetUserConfigPath returns the path to config.toml.
func GetUserConfigPath() (string, error) {
	dir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, UserConfigFileName), nil
}

// LoadUserConfig loads config.toml once and caches it. A missing file yields
// the defaults; a malformed file yields the defaults and the parse error.
func LoadUserConfig() (*UserConfig, error) {
	userConfigCacheMu.RLock()
	if userConfigCache != nil {
		defer userConfigCacheMu.RUnlock()
		return userConfigCache, nil
	}
	userConfigCacheMu.RUnlock()

	userConfigCacheMu.Lock()
	defer userConfigCacheMu.Unlock()
	if userConfigCache != nil {
		return userConfigCache, nil
	}

	path, err := GetUserConfigPath()
	if err != nil {
		userConfigCache = &UserConfig{}
		return userConfigCache, nil
	}
	cfg, err := LoadUserConfigFrom(path)
	userConfigCache = cfg
	return cfg, err
}

// LoadUserConfigFrom decodes the config at path without caching.
func LoadUserConfigFrom(path string) (*UserConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &UserConfig{}, nil
	}
	var cfg UserConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return &UserConfig{}, fmt.Errorf("config.toml parse error: %w", err)
	}
	return &cfg, nil
}

// ClearUserConfigCache drops the cached config so the next load re-reads it.
func ClearUserConfigCache() {
	userConfigCacheMu.Lock()
	userConfigCache = nil
	userConfigCacheMu.Unlock()
}

// SaveUserConfig writes cfg atomically and clears the cache.
func SaveUserConfig(cfg *UserConfig) error {
	path, err := GetUserConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	ClearUserConfigCache()
	return nil
}

func cachedConfig() *UserConfig {
	cfg, _ := LoadUserConfig()
	if cfg == nil {
		return &UserConfig{}
	}
	return cfg
}

// GetCodexDir returns the configured assistant home.
func (c *UserConfig) GetCodexDir() string {
	if c.Index.CodexDir != "" {
		return ExpandPath(c.Index.CodexDir)
	}
	return DefaultCodexDir()
}

// GetDBPath returns the configured index path.
func (c *UserConfig) GetDBPath() string {
	if c.Index.DBPath != "" {
		return ExpandPath(c.Index.DBPath)
	}
	return dataPath(DBFileName)
}

// GetLimit returns the query row limit.
func (c *UserConfig) GetLimit() int {
	if c.Search.Limit > 0 {
		return c.Search.Limit
	}
	return DefaultLimit
}

// GetRecencyWeight returns the per-day ranking penalty.
func (c *UserConfig) GetRecencyWeight() float64 {
	switch {
	case c.Search.RecencyWeight < 0:
		return 0
	case c.Search.RecencyWeight == 0:
		return DefaultRecencyWeight
	default:
		return c.Search.RecencyWeight
	}
}

// GetFuzzyFallback reports whether title fuzzy matching backs up empty
// keyword results.
func (c *UserConfig) GetFuzzyFallback() bool {
	if c.Search.FuzzyFallback == nil {
		return true
	}
	return *c.Search.FuzzyFallback
}

// GetDebounce returns the query debounce delay.
func (c *UserConfig) GetDebounce() time.Duration {
	if c.UI.DebounceMs > 0 {
		return time.Duration(c.UI.DebounceMs) * time.Millisecond
	}
	return DefaultDebounce
}

// GetTail reports whether the preview starts at the end of the transcript.
func (c *UserConfig) GetTail() bool {
	if c.UI.Tail == nil {
		return true
	}
	return *c.UI.Tail
}

// GetTheme returns the configured theme, defaulting to "dark".
func (c *UserConfig) GetTheme() string {
	switch c.UI.Theme {
	case "dark", "light", "system":
		return c.UI.Theme
	default:
		return "dark"
	}
}

// ResolveTheme resolves the configured theme to "dark" or "light". "system"
// asks the OS and falls back to dark.
func (c *UserConfig) ResolveTheme() string {
	theme := c.GetTheme()
	if theme != "system" {
		return theme
	}
	isDark, err := dark.IsDarkMode()
	if err != nil || isDark {
		return "dark"
	}
	return "light"
}

// GetForkDir returns the private pack directory.
func (c *UserConfig) GetForkDir() string {
	if c.Fork.OutDir != "" {
		return ExpandPath(c.Fork.OutDir)
	}
	return dataPath("forks")
}

// GetForkMaxChars returns the transcript budget of fork and import prompts.
func (c *UserConfig) GetForkMaxChars() int {
	if c.Fork.MaxChars > 0 {
		return c.Fork.MaxChars
	}
	return DefaultForkMaxChars
}

// GetShareDir returns the shared pack directory.
func (c *UserConfig) GetShareDir() string {
	if c.Share.OutDir != "" {
		return ExpandPath(c.Share.OutDir)
	}
	return dataPath("shares")
}

// GetShareMethod returns "file" or "gist".
func (c *UserConfig) GetShareMethod() string {
	if c.Share.Method == "gist" {
		return "gist"
	}
	return "file"
}

// GetWatchInterval returns the minimum time between watch-triggered syncs.
func (c *UserConfig) GetWatchInterval() time.Duration {
	if c.Watch.MinIntervalMs > 0 {
		return time.Duration(c.Watch.MinIntervalMs) * time.Millisecond
	}
	return DefaultWatchInterval
}

// GetWatchSettle returns how long the watcher waits for writes to settle.
func (c *UserConfig) GetWatchSettle() time.Duration {
	if c.Watch.SettleMs > 0 {
		return time.Duration(c.Watch.SettleMs) * time.Millisecond
	}
	return DefaultWatchSettle
}

// LoggingConfig maps [logs] onto the logging package. debug forces logging on.
func (c *UserConfig) LoggingConfig(debug bool) logging.Config {
	dir, _ := GetDataDir()
	return logging.Config{
		Enabled:    c.Logs.Enabled || debug,
		LogDir:     dir,
		Level:      c.Logs.Level,
		Format:     c.Logs.Format,
		MaxSizeMB:  c.Logs.MaxSizeMB,
		MaxBackups: c.Logs.MaxBackups,
		MaxAgeDays: c.Logs.MaxAgeDays,
		Compress:   c.Logs.Compress,
	}
}

// GetTheme returns the theme of the cached user config.
func GetTheme() string {
	return cachedConfig().GetTheme()
}

// ResolveTheme resolves the theme of the cached user config.
func ResolveTheme() string {
	return cachedConfig().ResolveTheme()
}

const exampleConfig = `# codex-sessions configuration

[index]
# codex_dir = "~/.codex"
# db_path = "~/.codex-user/codex_sessions.db"

[search]
# limit = 200
# Score penalty per day since the session was last updated.
# recency_weight = 0.15
# fuzzy_fallback = true

[ui]
# theme = "dark"        # dark, light or system
# debounce_ms = 120
# wrap = false
# tail = true

[fork]
# out_dir = "~/.codex-user/forks"
# max_chars = 200000

[share]
# out_dir = "~/.codex-user/shares"
# method = "file"       # file or gist

[logs]
# enabled = false
# level = "info"
# format = "json"

[watch]
# min_interval_ms = 1000
# settle_ms = 300
`

// CreateExampleConfig writes a commented config.toml unless one exists. It
// returns the path and whether a file was written.
func CreateExampleConfig() (string, bool, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", false, fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewBufferString(exampleConfig)); err != nil {
		return "", false, fmt.Errorf("failed to write example config: %w", err)
	}
	return path, true, nil
}

// Set assigns one setting by its dotted key, such as "ui.theme" or
// "search.limit". Values are parsed for the field's type.
func (c *UserConfig) Set(key, value string) error {
	setter, ok := configSetters[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	if err := setter(c, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

// ConfigKeys lists the keys accepted by Set, sorted.
func ConfigKeys() []string {
	keys := make([]string, 0, len(configSetters))
	for k := range configSetters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var configSetters = map[string]func(*UserConfig, string) error{
	"index.codex_dir": func(c *UserConfig, v string) error { c.Index.CodexDir = v; return nil },
	"index.db_path":   func(c *UserConfig, v string) error { c.Index.DBPath = v; return nil },
	"search.limit":    intSetter(func(c *UserConfig) *int { return &c.Search.Limit }),
	"search.recency_weight": func(c *UserConfig, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.Search.RecencyWeight = f
		return nil
	},
	"search.fuzzy_fallback": func(c *UserConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Search.FuzzyFallback = &b
		return nil
	},
	"ui.theme":       oneOf(func(c *UserConfig) *string { return &c.UI.Theme }, "dark", "light", "system"),
	"ui.debounce_ms": intSetter(func(c *UserConfig) *int { return &c.UI.DebounceMs }),
	"ui.wrap":        boolSetter(func(c *UserConfig) *bool { return &c.UI.Wrap }),
	"ui.tail": func(c *UserConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.UI.Tail = &b
		return nil
	},
	"fork.out_dir":          func(c *UserConfig, v string) error { c.Fork.OutDir = v; return nil },
	"fork.max_chars":        intSetter(func(c *UserConfig) *int { return &c.Fork.MaxChars }),
	"share.out_dir":         func(c *UserConfig, v string) error { c.Share.OutDir = v; return nil },
	"share.method":          oneOf(func(c *UserConfig) *string { return &c.Share.Method }, "file", "gist"),
	"logs.enabled":          boolSetter(func(c *UserConfig) *bool { return &c.Logs.Enabled }),
	"logs.level":            oneOf(func(c *UserConfig) *string { return &c.Logs.Level }, "debug", "info", "warn", "error"),
	"logs.format":           oneOf(func(c *UserConfig) *string { return &c.Logs.Format }, "json", "text"),
	"watch.min_interval_ms": intSetter(func(c *UserConfig) *int { return &c.Watch.MinIntervalMs }),
	"watch.settle_ms":       intSetter(func(c *UserConfig) *int { return &c.Watch.SettleMs }),
}

func intSetter(field func(*UserConfig) *int) func(*UserConfig, string) error {
	return func(c *UserConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		if n < 0 {
			return errors.New("must not be negative")
		}
		*field(c) = n
		return nil
	}
}

func boolSetter(field func(*UserConfig) *bool) func(*UserConfig, string) error {
	return func(c *UserConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func oneOf(field func(*UserConfig) *string, allowed ...string) func(*UserConfig, string) error {
	return func(c *UserConfig, v string) error {
		for _, a := range allowed {
			if v == a {
				*field(c) = v
				return nil
			}
		}
		return fmt.Errorf("want one of %v", allowed)
	}
}
