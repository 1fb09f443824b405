package pack

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrImportNotFound is returned by LoadImport for a missing file.
var ErrImportNotFound = errors.New("file not found")

// TailChars returns the last n runes of s. A non-positive n yields "".
func TailChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func transcriptBlock(intro, content string, maxChars int, userLabel, userPrompt string) string {
	var sb strings.Builder
	sb.WriteString(intro)
	sb.WriteString("\nUse the transcript below as full context.\n\n")
	sb.WriteString("=== TRANSCRIPT (verbatim) ===\n")
	sb.WriteString(TailChars(content, maxChars))
	sb.WriteString("\n=== END TRANSCRIPT ===\n")
	if p := strings.TrimSpace(userPrompt); p != "" {
		fmt.Fprintf(&sb, "\n%s\n%s\n", userLabel, p)
	}
	return sb.String()
}

// ForkPrompt is the initial prompt for a new agent continuing sessionID,
// whose pack was saved at mdPath.
func ForkPrompt(sessionID, mdPath, content string, maxChars int, userPrompt string) string {
	intro := fmt.Sprintf("You are continuing work from a forked Codex session.\nOriginal session id: %s\nPack saved at: %s\n",
		sessionID, mdPath)
	return transcriptBlock(intro, content, maxChars, "User request for this fork:", userPrompt)
}

// ImportPrompt is the initial prompt for a new agent continuing a pack
// loaded from source.
func ImportPrompt(source, content string, maxChars int, userPrompt string) string {
	intro := fmt.Sprintf("You are continuing work from an imported Codex session pack.\nSource: %s\n", source)
	return transcriptBlock(intro, content, maxChars, "User request:", userPrompt)
}

// LoadImport reads a pack from path. Files ending in .json are decoded as
// packs; anything else is taken as raw transcript text.
func LoadImport(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrImportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pack: read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var p Pack
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("pack: decode %s: %w", path, err)
		}
		return &p, nil
	}
	return &Pack{Schema: Schema, SessionID: "imported", Content: string(data)}, nil
}
