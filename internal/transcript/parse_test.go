package transcript

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rollout-2025-11-03T08-59-27-abc.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

const metaLine = `{"timestamp":"2025-11-03T08:59:27.319Z","type":"session_meta","payload":{"id":"sess-1","timestamp":"2025-11-03T08:59:27.000Z","cwd":"/work/app","cli_version":"0.50.0"}}`

func TestParseFile_Document(t *testing.T) {
	path := writeTranscript(t,
		metaLine,
		`{"timestamp":"2025-11-03T09:00:00Z","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"<environment_context>cwd: /work/app</environment_context>"}]}}`,
		`{"timestamp":"2025-11-03T09:00:01Z","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"please fix the login form"}]}}`,
		`{"timestamp":"2025-11-03T09:00:02Z","type":"response_item","payload":{"type":"message","role":"assistant","content":[{"type":"output_text","text":"Looking at it."}]}}`,
		`{"timestamp":"2025-11-03T09:00:03Z","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"ok"}]}}`,
		`{"timestamp":"2025-11-03T09:05:00Z","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"now add tests for it"}]}}`,
	)

	doc, stats, err := ParseFile(path)
	require.NoError(t, err)
	require.NotNil(t, doc)

	want := &Document{
		SessionID:  "sess-1",
		CreatedAt:  time.Date(2025, 11, 3, 8, 59, 27, 0, time.UTC).Unix(),
		UpdatedAt:  time.Date(2025, 11, 3, 9, 5, 0, 0, time.UTC).Unix(),
		Cwd:        "/work/app",
		CLIVersion: "0.50.0",
		FilePath:   path,
		Title:      "please fix the login form",
		Preview:    "now add tests for it",
		Content: "user: please fix the login form\n\n" +
			"assistant: Looking at it.\n\n" +
			"user: ok\n\n" +
			"user: now add tests for it",
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 6, stats.Lines)
	assert.Zero(t, stats.Malformed)
}

func TestParseFile_NoSessionMeta(t *testing.T) {
	path := writeTranscript(t,
		`{"timestamp":"2025-11-03T09:00:01Z","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"hello there friend"}]}}`,
	)
	doc, _, err := ParseFile(path)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestParseFile_NonStringID(t *testing.T) {
	path := writeTranscript(t,
		`{"timestamp":"2025-11-03T08:59:27Z","type":"session_meta","payload":{"id":42,"cwd":"/x"}}`,
	)
	doc, _, err := ParseFile(path)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestParseFile_MissingFile(t *testing.T) {
	doc, _, err := ParseFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
	assert.Nil(t, doc)
}

func TestParseFile_SkipsMalformedLines(t *testing.T) {
	path := writeTranscript(t,
		`{not json`,
		metaLine,
		`[1,2,3]`,
		`{"timestamp":"2025-11-03T09:00:01Z","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"still indexed after garbage"}]}}`,
	)
	doc, stats, err := ParseFile(path)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "sess-1", doc.SessionID)
	assert.Contains(t, doc.Content, "still indexed after garbage")
	assert.Equal(t, 2, stats.Malformed)
}

func TestParseFile_ExecCommandAndOutput(t *testing.T) {
	path := writeTranscript(t,
		metaLine,
		`{"timestamp":"2025-11-03T09:00:01Z","type":"response_item","payload":{"type":"function_call","name":"exec_command","call_id":"c1","arguments":"{\"cmd\":\"rg -n foo.py src\"}"}}`,
		`{"timestamp":"2025-11-03T09:00:02Z","type":"response_item","payload":{"type":"function_call_output","call_id":"c1","output":"src/foo.py:1:print('hi')"}}`,
	)
	doc, _, err := ParseFile(path)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Contains(t, doc.Content, "tool_call exec_command: rg -n foo.py src")
	assert.Contains(t, doc.Content, "tool_output exec_command: src/foo.py:1:print('hi')")
}

func TestParseFile_CustomToolUnwrapsOutput(t *testing.T) {
	path := writeTranscript(t,
		metaLine,
		`{"timestamp":"2025-11-03T09:00:01Z","type":"response_item","payload":{"type":"custom_tool_call","name":"apply_patch","call_id":"p1","input":"*** Begin Patch\n*** Update File: README.md\n*** End Patch"}}`,
		`{"timestamp":"2025-11-03T09:00:02Z","type":"response_item","payload":{"type":"custom_tool_call_output","call_id":"p1","output":"{\"output\":\"Success. Updated the following files\",\"metadata\":{\"exit_code\":0}}"}}`,
	)
	doc, _, err := ParseFile(path)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Contains(t, doc.Content, "Update File: README.md")
	assert.Contains(t, doc.Content, "tool_output apply_patch: Success. Updated the following files")
	assert.NotContains(t, doc.Content, `"metadata"`)
}

func TestParseFile_UnknownToolNameLabel(t *testing.T) {
	path := writeTranscript(t,
		metaLine,
		`{"timestamp":"2025-11-03T09:00:01Z","type":"response_item","payload":{"type":"function_call","arguments":"{\"q\":1}"}}`,
		`{"timestamp":"2025-11-03T09:00:02Z","type":"response_item","payload":{"type":"function_call_output","call_id":"zz","output":"done"}}`,
	)
	doc, _, err := ParseFile(path)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Contains(t, doc.Content, `tool_call unknown: {"q":1}`)
	assert.Contains(t, doc.Content, "tool_output: done")
}

func TestParse_TimestampFallbacks(t *testing.T) {
	mtime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("no timestamps uses mtime", func(t *testing.T) {
		r := strings.NewReader(`{"type":"session_meta","payload":{"id":"s"}}`)
		doc, _ := Parse(r, "/tmp/s.jsonl", mtime)
		require.NotNil(t, doc)
		assert.Equal(t, mtime.Unix(), doc.CreatedAt)
		assert.Equal(t, mtime.Unix(), doc.UpdatedAt)
		assert.Equal(t, "s.jsonl", doc.Title)
	})

	t.Run("created falls back to updated", func(t *testing.T) {
		r := strings.NewReader(`{"timestamp":"2025-01-01T00:00:10Z","type":"session_meta","payload":{"id":"s"}}`)
		doc, _ := Parse(r, "/tmp/s.jsonl", mtime)
		require.NotNil(t, doc)
		assert.Equal(t, doc.UpdatedAt, doc.CreatedAt)
	})

	t.Run("updated never precedes created", func(t *testing.T) {
		r := strings.NewReader(`{"timestamp":"2025-01-01T00:00:00Z","type":"session_meta","payload":{"id":"s","timestamp":"2025-06-01T00:00:00Z"}}`)
		doc, _ := Parse(r, "/tmp/s.jsonl", mtime)
		require.NotNil(t, doc)
		assert.GreaterOrEqual(t, doc.UpdatedAt, doc.CreatedAt)
	})
}

func TestParse_FirstSessionMetaWins(t *testing.T) {
	r := strings.NewReader(strings.Join([]string{
		`{"type":"session_meta","payload":{"id":"first","cwd":""}}`,
		`{"type":"session_meta","payload":{"id":"second","cwd":"/later"}}`,
	}, "\n"))
	doc, _ := Parse(r, "/tmp/x.jsonl", time.Now())
	require.NotNil(t, doc)
	assert.Equal(t, "first", doc.SessionID)
	assert.Equal(t, "/later", doc.Cwd)
}

func TestParse_TitleAndPreviewTruncation(t *testing.T) {
	long := strings.Repeat("a", 300)
	r := strings.NewReader(strings.Join([]string{
		`{"type":"session_meta","payload":{"id":"s"}}`,
		`{"type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"` + long + `"}]}}`,
	}, "\n"))
	doc, _ := Parse(r, "/tmp/x.jsonl", time.Now())
	require.NotNil(t, doc)
	assert.Len(t, doc.Title, 200)
	assert.Len(t, doc.Preview, 240)
}

func TestParse_TitleLengthCountsCharacters(t *testing.T) {
	userLine := func(text string) string {
		return `{"type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"` + text + `"}]}}`
	}

	t.Run("short multibyte turn is skipped", func(t *testing.T) {
		r := strings.NewReader(strings.Join([]string{
			`{"type":"session_meta","payload":{"id":"s"}}`,
			userLine("日本語です"),
		}, "\n"))
		doc, _ := Parse(r, "/tmp/x.jsonl", time.Now())
		require.NotNil(t, doc)
		assert.Equal(t, "x.jsonl", doc.Title)
		assert.Empty(t, doc.Preview)
	})

	t.Run("eight or more characters qualify", func(t *testing.T) {
		r := strings.NewReader(strings.Join([]string{
			`{"type":"session_meta","payload":{"id":"s"}}`,
			userLine("日本語のテストです"),
		}, "\n"))
		doc, _ := Parse(r, "/tmp/x.jsonl", time.Now())
		require.NotNil(t, doc)
		assert.Equal(t, "日本語のテストです", doc.Title)
	})
}

func TestParse_OversizedLineIsSkipped(t *testing.T) {
	huge := `{"type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"` +
		strings.Repeat("x", 4096) + `"}]}}`
	r := strings.NewReader(strings.Join([]string{
		`{"type":"session_meta","payload":{"id":"s"}}`,
		huge,
		`{"type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"read after the long line"}]}}`,
	}, "\n"))

	doc, stats := parse(r, "/tmp/x.jsonl", time.Now(), 1024)
	require.NotNil(t, doc)
	assert.Equal(t, "read after the long line", doc.Title)
	assert.NotContains(t, doc.Content, "xxxx")
	assert.Equal(t, 3, stats.Lines)
	assert.Equal(t, 1, stats.Malformed)
}

func TestLineReader(t *testing.T) {
	lr := &lineReader{r: bufio.NewReaderSize(strings.NewReader("ab\r\n"+strings.Repeat("z", 40)+"\nlast"), 16), limit: 8}

	line, tooLong, err := lr.next()
	require.NoError(t, err)
	assert.False(t, tooLong)
	assert.Equal(t, "ab", string(line))

	_, tooLong, err = lr.next()
	require.NoError(t, err)
	assert.True(t, tooLong)

	line, tooLong, err = lr.next()
	require.NoError(t, err)
	assert.False(t, tooLong)
	assert.Equal(t, "last", string(line))

	_, _, err = lr.next()
	assert.Equal(t, io.EOF, err)
}

func TestParse_IgnoresOtherRoles(t *testing.T) {
	r := strings.NewReader(strings.Join([]string{
		`{"type":"session_meta","payload":{"id":"s"}}`,
		`{"type":"response_item","payload":{"type":"message","role":"developer","content":[{"type":"input_text","text":"system prompt text"}]}}`,
		`{"type":"event_msg","payload":{"type":"token_count"}}`,
		`{"type":"response_item","payload":{"type":"reasoning"}}`,
	}, "\n"))
	doc, stats := Parse(r, "/tmp/x.jsonl", time.Now())
	require.NotNil(t, doc)
	assert.Empty(t, doc.Content)
	assert.Equal(t, 3, stats.Ignored)
}

func TestStripBoilerplate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"env context only", "<environment_context>\n  <cwd>/x</cwd>\n</environment_context>", ""},
		{"mixed case tags", "<USER_INSTRUCTIONS>be terse</USER_INSTRUCTIONS>\nfix bug", "fix bug"},
		{"agents header", "# AGENTS.md instructions for /repo\nreal question", "real question"},
		{"collapse blank lines", "a\r\n\n\n\n\nb   ", "a\n\nb"},
		{"plain", "  keep me  ", "keep me"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripBoilerplate(tt.in))
		})
	}
}

func TestDecode_ClosedUnion(t *testing.T) {
	tests := []struct {
		rec  Record
		want Event
	}{
		{Record{Type: "turn_context"}, Ignored{Type: "turn_context"}},
		{Record{Type: "response_item", Payload: []byte(`{"type":"web_search_call"}`)}, Ignored{Type: "web_search_call"}},
		{Record{Type: "response_item", Payload: []byte(`{"type":"function_call_output","call_id":"c","output":"x"}`)}, ToolOutput{CallID: "c", Text: "x"}},
		{Record{Type: "response_item", Payload: []byte(`{"type":"custom_tool_call_output","call_id":"c","output":"plain"}`)}, ToolOutput{CallID: "c", Text: "plain", Custom: true}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Decode(tt.rec))
	}
}
