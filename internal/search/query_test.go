package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"punctuation only", "./-", ""},
		{"filename and path", "TaskModal.tsx /Users/alice/foo-bar", "TaskModal* tsx* Users* alice* foo* bar*"},
		{"dedupe keeps order", "foo bar foo", "foo* bar*"},
		{"reserved words quoted", "cats and OR dogs", `cats* "and" "OR" dogs*`},
		{"near", "near miss", `"near" miss*`},
		{"underscore and digits", "snake_case v2", "snake_case* v2*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.in))
		})
	}
}

func TestIsBrowse(t *testing.T) {
	assert.True(t, IsBrowse(""))
	assert.True(t, IsBrowse("   "))
	assert.True(t, IsBrowse(" * "))
	assert.False(t, IsBrowse("foo"))
	assert.False(t, IsBrowse("**"))
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"taskmodal", "tsx", "go"}, Terms("TaskModal.tsx a go GO taskmodal"))
	assert.Empty(t, Terms("a b c"))
}

func TestFindMatches(t *testing.T) {
	t.Run("line with all terms first", func(t *testing.T) {
		lines := []string{"hello world", "foo bar baz", "bar only"}
		got := FindMatches(lines, []string{"foo", "bar"})
		assert.Equal(t, []Match{{Line: 1, Col: 0}, {Line: 2, Col: 0}}, got)
	})

	t.Run("ties break on line then column", func(t *testing.T) {
		lines := []string{"xx bar", "bar", "  foo"}
		got := FindMatches(lines, []string{"foo", "bar"})
		assert.Equal(t, []Match{{Line: 0, Col: 3}, {Line: 1, Col: 0}, {Line: 2, Col: 2}}, got)
	})

	t.Run("case insensitive rune columns", func(t *testing.T) {
		got := FindMatches([]string{"héllo FOO"}, []string{"foo"})
		assert.Equal(t, []Match{{Line: 0, Col: 6}}, got)
	})

	t.Run("no terms", func(t *testing.T) {
		assert.Nil(t, FindMatches([]string{"foo"}, nil))
		assert.Nil(t, FindMatches([]string{"foo"}, []string{" "}))
	})
}
