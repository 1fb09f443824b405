// Package transcript turns assistant session logs (one JSON record per line)
// into normalized documents ready for indexing.
package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/asheshgoplani/codex-sessions/internal/logging"
)

// Version identifies the parsing rules. Bumping it makes the next sync
// re-parse every transcript.
const Version = 6

const (
	minTitleLen    = 8
	maxTitleLen    = 200
	maxPreviewLen  = 240
	maxLineBytes   = 64 * 1024 * 1024
	initialLineBuf = 256 * 1024
)

var parserLog = logging.ForComponent(logging.CompParser)

// Document is the normalized form of one session transcript.
type Document struct {
	SessionID  string
	CreatedAt  int64
	UpdatedAt  int64
	Cwd        string
	CLIVersion string
	FilePath   string
	Title      string
	Preview    string
	Content    string
}

// Stats describes what happened while reading a transcript.
type Stats struct {
	Lines     int
	Malformed int
	Ignored   int
}

// ParseFile parses the transcript at path. It returns a nil document (and a
// nil error) when the file carries no session id.
func ParseFile(path string) (*Document, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("transcript: open: %w", err)
	}
	defer f.Close()

	var mtime time.Time
	if info, err := f.Stat(); err == nil {
		mtime = info.ModTime()
	}
	doc, stats := Parse(f, path, mtime)
	return doc, stats, nil
}

type entry struct {
	label string
	text  string
}

// Parse reads records from r. Lines that are not JSON objects are skipped.
// modTime is the fallback creation time when no record carries a timestamp.
func Parse(r io.Reader, path string, modTime time.Time) (*Document, Stats) {
	return parse(r, path, modTime, maxLineBytes)
}

func parse(r io.Reader, path string, modTime time.Time, lineLimit int) (*Document, Stats) {
	var (
		stats      Stats
		meta       SessionMeta
		updatedAt  int64
		hasUpdated bool
		entries    []entry
		toolNames  = make(map[string]string)
	)

	lr := &lineReader{r: bufio.NewReaderSize(r, initialLineBuf), limit: lineLimit}

	for {
		raw, tooLong, err := lr.next()
		if err != nil {
			if err != io.EOF {
				parserLog.Warn("transcript_read_truncated",
					slog.String("path", path),
					slog.String("error", err.Error()))
			}
			break
		}
		if tooLong {
			stats.Lines++
			stats.Malformed++
			parserLog.Warn("transcript_line_too_long",
				slog.String("path", path),
				slog.Int("limit", lineLimit))
			continue
		}
		line := strings.TrimSpace(string(raw))
		if line == "" {
			continue
		}
		stats.Lines++

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			stats.Malformed++
			continue
		}

		var ts string
		if err := json.Unmarshal(rec.Timestamp, &ts); err == nil {
			if t, ok := ParseTimestamp(ts); ok && (!hasUpdated || t > updatedAt) {
				updatedAt, hasUpdated = t, true
			}
		}

		switch ev := Decode(rec).(type) {
		case SessionMeta:
			mergeMeta(&meta, ev)

		case Message:
			text := ev.Text
			if ev.Role == "user" {
				text = StripBoilerplate(text)
			}
			if text == "" {
				continue
			}
			entries = append(entries, entry{label: ev.Role, text: text})

		case ToolCall:
			if ev.CallID != "" && ev.Name != "" {
				toolNames[ev.CallID] = ev.Name
			}
			if ev.Text == "" {
				continue
			}
			name := ev.Name
			if name == "" {
				name = "unknown"
			}
			entries = append(entries, entry{label: "tool_call " + name, text: ev.Text})

		case ToolOutput:
			if ev.Text == "" {
				continue
			}
			label := "tool_output"
			if name := toolNames[ev.CallID]; name != "" {
				label += " " + name
			}
			entries = append(entries, entry{label: label, text: ev.Text})

		case Ignored:
			stats.Ignored++
		}
	}
	if stats.Malformed > 0 {
		logging.Aggregate(logging.CompParser, "malformed_lines",
			slog.String("path", path),
			slog.Int("count", stats.Malformed))
	}

	if meta.ID == "" {
		return nil, stats
	}

	createdAt, hasCreated := meta.CreatedAt, meta.HasCreated
	if !hasCreated {
		if hasUpdated {
			createdAt = updatedAt
		} else {
			createdAt = modTime.Unix()
		}
	}
	if !hasUpdated || updatedAt < createdAt {
		updatedAt = createdAt
	}

	doc := &Document{
		SessionID:  meta.ID,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
		Cwd:        meta.Cwd,
		CLIVersion: meta.CLIVersion,
		FilePath:   path,
	}

	var userTexts []string
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.label+": "+e.text)
		if e.label == "user" && utf8.RuneCountInString(e.text) >= minTitleLen {
			userTexts = append(userTexts, e.text)
		}
	}
	doc.Content = strings.TrimSpace(strings.Join(lines, "\n\n"))

	if len(userTexts) > 0 {
		doc.Title = truncate(userTexts[0], maxTitleLen)
		doc.Preview = truncate(userTexts[len(userTexts)-1], maxPreviewLen)
	} else {
		doc.Title = filepath.Base(path)
	}
	return doc, stats
}

// lineReader yields newline-delimited lines. A line longer than limit is
// consumed and reported as too long instead of ending the read.
type lineReader struct {
	r     *bufio.Reader
	limit int
	buf   []byte
}

// next returns the next line without its terminator, or io.EOF once the
// input is exhausted.
func (lr *lineReader) next() (line []byte, tooLong bool, err error) {
	lr.buf = lr.buf[:0]
	sawData := false
	for {
		chunk, rerr := lr.r.ReadSlice('\n')
		if len(chunk) > 0 {
			sawData = true
		}
		if !tooLong {
			if len(lr.buf)+len(bytes.TrimRight(chunk, "\r\n")) > lr.limit {
				tooLong = true
				lr.buf = lr.buf[:0]
			} else {
				lr.buf = append(lr.buf, chunk...)
			}
		}
		switch {
		case rerr == bufio.ErrBufferFull:
			continue
		case rerr == io.EOF:
			if !sawData {
				return nil, false, io.EOF
			}
		case rerr != nil:
			return nil, false, rerr
		}
		return bytes.TrimRight(lr.buf, "\r\n"), tooLong, nil
	}
}

// mergeMeta fills fields of dst that are still empty. The first record to
// provide a field wins.
func mergeMeta(dst *SessionMeta, src SessionMeta) {
	if dst.ID == "" {
		dst.ID = src.ID
	}
	if !dst.HasCreated && src.HasCreated {
		dst.CreatedAt, dst.HasCreated = src.CreatedAt, true
	}
	if dst.Cwd == "" {
		dst.Cwd = src.Cwd
	}
	if dst.CLIVersion == "" {
		dst.CLIVersion = src.CLIVersion
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp converts an ISO-8601 timestamp to epoch seconds. Values
// without a zone are read as local time.
func ParseTimestamp(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.Unix(), true
		}
	}
	return 0, false
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
