package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorFlush(t *testing.T) {
	var buf bytes.Buffer
	agg := NewAggregator(slog.New(slog.NewJSONHandler(&buf, nil)), 60)

	agg.Record(CompParser, "malformed_lines", slog.String("path", "/a.jsonl"))
	agg.Record(CompParser, "malformed_lines", slog.String("path", "/b.jsonl"))
	agg.Record(CompSync, "file_skipped")
	assert.Equal(t, int64(2), agg.pending(CompParser, "malformed_lines"))

	agg.Flush()
	assert.Zero(t, agg.pending(CompParser, "malformed_lines"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "event_summary", first["msg"])
	assert.Equal(t, CompParser, first["component"])
	assert.Equal(t, "malformed_lines", first["event"])
	assert.Equal(t, float64(2), first["count"])
	assert.Equal(t, "/b.jsonl", first["path"])
}

func TestAggregatorNilLoggerDrops(t *testing.T) {
	agg := NewAggregator(nil, 1)
	agg.Record(CompSync, "x")
	assert.Zero(t, agg.pending(CompSync, "x"))
	agg.Stop()
	agg.Stop()
}

func TestAggregatorStopFlushes(t *testing.T) {
	var buf bytes.Buffer
	agg := NewAggregator(slog.New(slog.NewJSONHandler(&buf, nil)), 3600)
	agg.Start()
	agg.Record(CompWatch, "event_dropped")
	agg.Stop()
	assert.Contains(t, buf.String(), `"event":"event_dropped"`)
}
