package transcript

import (
	"regexp"
	"strings"
)

var (
	boilerplateBlocks = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<environment_context>.*?</environment_context>`),
		regexp.MustCompile(`(?is)<user_instructions>.*?</user_instructions>`),
		regexp.MustCompile(`(?is)<instructions>.*?</instructions>`),
		regexp.MustCompile(`(?im)^#\s*AGENTS\.md.*$`),
	}
	extraBlankLines = regexp.MustCompile(`\n{3,}`)
)

// StripBoilerplate removes the environment and instruction wrappers the
// assistant injects into user turns, then normalizes whitespace. An empty
// result means the turn held nothing the user typed.
func StripBoilerplate(text string) string {
	s := text
	for _, re := range boilerplateBlocks {
		s = re.ReplaceAllString(s, "")
	}
	s = strings.ReplaceAll(s, "\r", "")
	s = extraBlankLines.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\f\v")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
