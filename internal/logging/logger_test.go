package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLogLines(t *testing.T, dir string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		out = append(out, rec)
	}
	return out
}

func TestInitWritesJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Config{Enabled: true, LogDir: dir}))
	defer Shutdown()

	Logger().Info("index_finished", slog.Int("changed", 3))
	Shutdown()

	recs := readLogLines(t, dir)
	require.NotEmpty(t, recs)
	assert.Equal(t, "index_finished", recs[0]["msg"])
	assert.Equal(t, float64(3), recs[0]["changed"])
}

func TestInitDisabledDiscards(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Config{Enabled: false, LogDir: dir}))
	defer Shutdown()

	Logger().Info("nowhere")
	_, err := os.Stat(filepath.Join(dir, LogFileName))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, DumpRingBuffer(filepath.Join(dir, "dump")))
}

func TestForComponentBeforeInit(t *testing.T) {
	Shutdown()
	early := ForComponent(CompStore)

	dir := t.TempDir()
	require.NoError(t, Init(Config{Enabled: true, LogDir: dir, Level: "debug"}))
	early.With(slog.String("db", "x.db")).Debug("store_opened")
	Shutdown()

	recs := readLogLines(t, dir)
	require.Len(t, recs, 1)
	assert.Equal(t, CompStore, recs[0]["component"])
	assert.Equal(t, "x.db", recs[0]["db"])
	assert.Equal(t, "DEBUG", recs[0]["level"])
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Config{Enabled: true, LogDir: dir, Level: "warn"}))
	ForComponent(CompUI).Info("dropped")
	ForComponent(CompUI).Warn("kept")
	Shutdown()

	recs := readLogLines(t, dir)
	require.Len(t, recs, 1)
	assert.Equal(t, "kept", recs[0]["msg"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestDumpRingBuffer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Config{Enabled: true, LogDir: dir}))
	defer Shutdown()

	Logger().Warn("before_crash")
	dump := filepath.Join(dir, "crash.log")
	require.NoError(t, DumpRingBuffer(dump))

	data, err := os.ReadFile(dump)
	require.NoError(t, err)
	assert.Contains(t, string(data), "before_crash")
}
