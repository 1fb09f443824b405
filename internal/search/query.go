// Package search turns typed text into full-text queries against the
// session index and post-processes the ranked rows for display.
package search

import (
	"regexp"
	"strings"
)

// RecencyWeight is the default score penalty per day since a session was
// last updated.
const RecencyWeight = 0.15

// MinTermLen is the shortest query term used for preview highlighting.
const MinTermLen = 2

var tokenRe = regexp.MustCompile(`[A-Za-z0-9_]+`)

// reserved FTS5 operators must be quoted to be matched literally.
var reserved = map[string]bool{
	"AND":  true,
	"OR":   true,
	"NOT":  true,
	"NEAR": true,
}

// IsBrowse reports whether text should list sessions instead of searching.
func IsBrowse(text string) bool {
	t := strings.TrimSpace(text)
	return t == "" || t == "*"
}

// Tokens splits text on anything that is not a letter, digit or underscore
// and drops repeated tokens, keeping first-seen order.
func Tokens(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range tokenRe.FindAllString(text, -1) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// BuildQuery converts free text into an FTS5 MATCH expression where every
// token is a prefix term. "TaskModal.tsx" becomes "TaskModal* tsx*".
// An empty result means the caller should browse.
func BuildQuery(text string) string {
	toks := Tokens(text)
	parts := make([]string, 0, len(toks))
	for _, tok := range toks {
		if reserved[strings.ToUpper(tok)] {
			parts = append(parts, `"`+tok+`"`)
			continue
		}
		parts = append(parts, tok+"*")
	}
	return strings.Join(parts, " ")
}

// Terms returns the lowercase query terms used to locate matches in a
// preview: at least MinTermLen characters, no duplicates.
func Terms(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range tokenRe.FindAllString(text, -1) {
		t := strings.ToLower(tok)
		if len(t) < MinTermLen || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
