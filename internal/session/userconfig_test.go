package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(DataDirEnv, dir)
	ClearUserConfigCache()
	t.Cleanup(ClearUserConfigCache)
	return dir
}

func TestUserConfigDefaults(t *testing.T) {
	dir := withDataDir(t)

	cfg, err := LoadUserConfig()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DBFileName), cfg.GetDBPath())
	assert.Equal(t, DefaultLimit, cfg.GetLimit())
	assert.InDelta(t, 0.15, cfg.GetRecencyWeight(), 1e-9)
	assert.Equal(t, 120*time.Millisecond, cfg.GetDebounce())
	assert.True(t, cfg.GetTail())
	assert.True(t, cfg.GetFuzzyFallback())
	assert.Equal(t, "dark", cfg.GetTheme())
	assert.Equal(t, filepath.Join(dir, "forks"), cfg.GetForkDir())
	assert.Equal(t, filepath.Join(dir, "shares"), cfg.GetShareDir())
	assert.Equal(t, 200_000, cfg.GetForkMaxChars())
	assert.Equal(t, "file", cfg.GetShareMethod())
	assert.Equal(t, time.Second, cfg.GetWatchInterval())
	assert.False(t, cfg.LoggingConfig(false).Enabled)
	assert.True(t, cfg.LoggingConfig(true).Enabled)
}

func TestUserConfigOverrides(t *testing.T) {
	dir := withDataDir(t)
	content := `
[index]
codex_dir = "~/alt-codex"
db_path = "/tmp/x.db"

[search]
limit = 50
recency_weight = -1
fuzzy_fallback = false

[ui]
theme = "light"
debounce_ms = 300
tail = false

[share]
method = "gist"

[logs]
enabled = true
level = "debug"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, UserConfigFileName), []byte(content), 0o600))

	cfg, err := LoadUserConfig()
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "alt-codex"), cfg.GetCodexDir())
	assert.Equal(t, "/tmp/x.db", cfg.GetDBPath())
	assert.Equal(t, 50, cfg.GetLimit())
	assert.Zero(t, cfg.GetRecencyWeight())
	assert.False(t, cfg.GetFuzzyFallback())
	assert.Equal(t, "light", cfg.ResolveTheme())
	assert.Equal(t, 300*time.Millisecond, cfg.GetDebounce())
	assert.False(t, cfg.GetTail())
	assert.Equal(t, "gist", cfg.GetShareMethod())

	lc := cfg.LoggingConfig(false)
	assert.True(t, lc.Enabled)
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, dir, lc.LogDir)
}

func TestUserConfigParseError(t *testing.T) {
	dir := withDataDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, UserConfigFileName), []byte("[search\nlimit ="), 0o600))

	cfg, err := LoadUserConfig()
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultLimit, cfg.GetLimit())

	// Cached: the second load does not report the error again.
	_, err = LoadUserConfig()
	assert.NoError(t, err)
}

func TestSaveAndExampleConfig(t *testing.T) {
	withDataDir(t)

	path, written, err := CreateExampleConfig()
	require.NoError(t, err)
	assert.True(t, written)
	cfg, err := LoadUserConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, cfg.GetLimit())

	_, written, err = CreateExampleConfig()
	require.NoError(t, err)
	assert.False(t, written)

	cfg.Search.Limit = 25
	require.NoError(t, SaveUserConfig(cfg))
	loaded, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, 25, loaded.GetLimit())
}

func TestUserConfigSet(t *testing.T) {
	cfg := &UserConfig{}
	require.NoError(t, cfg.Set("search.fuzzy_fallback", "false"))
	require.NoError(t, cfg.Set("ui.tail", "false"))
	require.NoError(t, cfg.Set("share.method", "gist"))
	require.NoError(t, cfg.Set("watch.settle_ms", "50"))
	require.NoError(t, cfg.Set("search.recency_weight", "0.5"))

	assert.False(t, cfg.GetFuzzyFallback())
	assert.Equal(t, "gist", cfg.Share.Method)
	assert.Equal(t, 50, cfg.Watch.SettleMs)
	assert.InDelta(t, 0.5, cfg.GetRecencyWeight(), 1e-9)

	assert.Error(t, cfg.Set("share.method", "email"))
	assert.Error(t, cfg.Set("search.limit", "-1"))
	assert.Error(t, cfg.Set("ui.wrap", "sometimes"))
	assert.Error(t, cfg.Set("nope", "x"))
	assert.Contains(t, ConfigKeys(), "logs.level")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "a", "b"), ExpandPath("~/a/b"))
	assert.Equal(t, "/abs", ExpandPath("/abs"))
	assert.Equal(t, "~user/x", ExpandPath("~user/x"))
}
