package pack

import (
	"regexp"
	"strings"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

// rules are applied in order.
var rules = []rule{
	{regexp.MustCompile(`(?i)/Users/[^/\s]+`), "/Users/<REDACTED>"},
	{regexp.MustCompile(`(?i)/home/[^/\s]+`), "/home/<REDACTED>"},

	{regexp.MustCompile(`ghp_[A-Za-z0-9]{30,}`), "ghp_<REDACTED>"},
	{regexp.MustCompile(`gho_[A-Za-z0-9_]{20,}`), "gho_<REDACTED>"},
	{regexp.MustCompile(`github_pat_[A-Za-z0-9_]{20,}`), "github_pat_<REDACTED>"},
	{regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`), "sk-<REDACTED>"},
	{regexp.MustCompile(`xox[baprs]-[A-Za-z0-9-]{20,}`), "xox<REDACTED>"},
	{regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`), "AIza<REDACTED>"},
	{regexp.MustCompile(`AKIA[0-9A-Z]{16}`), "AKIA<REDACTED>"},
	{regexp.MustCompile(`ASIA[0-9A-Z]{16}`), "ASIA<REDACTED>"},

	{regexp.MustCompile(`(?i)Authorization:\s*Bearer\s+\S+`), "Authorization: Bearer <REDACTED>"},
	{regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._\-]{20,}\b`), "Bearer <REDACTED>"},

	{regexp.MustCompile(`(?i)\b(secret|token|password|passwd|api[_-]?key|access[_-]?key|session[_-]?token)\b\s*[:=]\s*[^\s"']+`), "${1}=<REDACTED>"},

	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "<REDACTED_EMAIL>"},
	{regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`), "<REDACTED_IP>"},
}

// Redactor scrubs secrets and personal data from free text.
type Redactor struct {
	// Home is replaced by "~" before the pattern rules run.
	Home string
}

// Redact replaces the home directory, user path segments, well-known
// credential formats, bearer headers, key=value secrets, email addresses
// and IPv4 addresses with placeholders.
func (r Redactor) Redact(text string) string {
	if text == "" {
		return text
	}
	if r.Home != "" && r.Home != "/" {
		text = strings.ReplaceAll(text, r.Home, "~")
	}
	for _, rl := range rules {
		text = rl.re.ReplaceAllString(text, rl.repl)
	}
	return text
}
