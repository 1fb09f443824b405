package ui

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Theme represents the current color scheme
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

type palette struct {
	Bg, Surface, Border, Text, TextDim lipgloss.Color
	Accent, Purple, Cyan, Green        lipgloss.Color
	Yellow, Red                        lipgloss.Color
}

// Dark Theme - Tokyo Night
var darkColors = palette{
	Bg:      lipgloss.Color("#1a1b26"),
	Surface: lipgloss.Color("#24283b"),
	Border:  lipgloss.Color("#414868"),
	Text:    lipgloss.Color("#c0caf5"),
	TextDim: lipgloss.Color("#787fa0"),
	Accent:  lipgloss.Color("#7aa2f7"),
	Purple:  lipgloss.Color("#bb9af7"),
	Cyan:    lipgloss.Color("#7dcfff"),
	Green:   lipgloss.Color("#9ece6a"),
	Yellow:  lipgloss.Color("#e0af68"),
	Red:     lipgloss.Color("#f7768e"),
}

// Light Theme - Tokyo Night Light variant
var lightColors = palette{
	Bg:      lipgloss.Color("#d5d6db"),
	Surface: lipgloss.Color("#e9e9ec"),
	Border:  lipgloss.Color("#9699a3"),
	Text:    lipgloss.Color("#343b58"),
	TextDim: lipgloss.Color("#6a6d7c"),
	Accent:  lipgloss.Color("#34548a"),
	Purple:  lipgloss.Color("#7847bd"),
	Cyan:    lipgloss.Color("#166775"),
	Green:   lipgloss.Color("#485e30"),
	Yellow:  lipgloss.Color("#8f5e15"),
	Red:     lipgloss.Color("#8c4351"),
}

// Active color variables (set by InitTheme)
var (
	ColorBg      lipgloss.Color
	ColorSurface lipgloss.Color
	ColorBorder  lipgloss.Color
	ColorText    lipgloss.Color
	ColorTextDim lipgloss.Color
	ColorAccent  lipgloss.Color
	ColorPurple  lipgloss.Color
	ColorCyan    lipgloss.Color
	ColorGreen   lipgloss.Color
	ColorYellow  lipgloss.Color
	ColorRed     lipgloss.Color
)

// themeMu protects global color/style variables during live theme switches.
var themeMu sync.RWMutex

// InitTheme sets the active color palette based on theme name.
// Anything other than "light" selects the dark palette.
func InitTheme(theme string) {
	themeMu.Lock()
	defer themeMu.Unlock()

	p := darkColors
	if theme == string(ThemeLight) {
		p = lightColors
	}
	ColorBg = p.Bg
	ColorSurface = p.Surface
	ColorBorder = p.Border
	ColorText = p.Text
	ColorTextDim = p.TextDim
	ColorAccent = p.Accent
	ColorPurple = p.Purple
	ColorCyan = p.Cyan
	ColorGreen = p.Green
	ColorYellow = p.Yellow
	ColorRed = p.Red

	initStyles()
}

func init() {
	InitTheme("dark")
}

// Browser chrome
var (
	HelpStyle      lipgloss.Style
	PromptStyle    lipgloss.Style
	QueryStyle     lipgloss.Style
	StatusStyle    lipgloss.Style
	StatusMsgStyle lipgloss.Style
	SeparatorStyle lipgloss.Style
	DimStyle       lipgloss.Style
	ErrorStyle     lipgloss.Style
)

// Result list
var (
	HeaderStyle      lipgloss.Style
	RowStyle         lipgloss.Style
	RowSelectedStyle lipgloss.Style
)

// Preview pane
var (
	PreviewLabelStyle  lipgloss.Style
	PreviewMetaStyle   lipgloss.Style
	PreviewTextStyle   lipgloss.Style
	PreviewCurHitStyle lipgloss.Style
	SearchMatchStyle   lipgloss.Style
)

// initStyles initializes all style variables with current theme colors.
// Called by InitTheme after color variables are set.
func initStyles() {
	HelpStyle = lipgloss.NewStyle().
		Foreground(ColorTextDim)

	PromptStyle = lipgloss.NewStyle().
		Foreground(ColorPurple).
		Bold(true)

	QueryStyle = lipgloss.NewStyle().
		Foreground(ColorText)

	StatusStyle = lipgloss.NewStyle().
		Foreground(ColorCyan)

	StatusMsgStyle = lipgloss.NewStyle().
		Foreground(ColorGreen).
		Bold(true)

	SeparatorStyle = lipgloss.NewStyle().
		Foreground(ColorBorder)

	DimStyle = lipgloss.NewStyle().
		Foreground(ColorTextDim)

	ErrorStyle = lipgloss.NewStyle().
		Foreground(ColorRed).
		Bold(true)

	HeaderStyle = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)

	RowStyle = lipgloss.NewStyle().
		Foreground(ColorText)

	RowSelectedStyle = lipgloss.NewStyle().
		Foreground(ColorBg).
		Background(ColorAccent).
		Bold(true)

	PreviewLabelStyle = lipgloss.NewStyle().
		Foreground(ColorCyan).
		Bold(true)

	PreviewMetaStyle = lipgloss.NewStyle().
		Foreground(ColorPurple)

	PreviewTextStyle = lipgloss.NewStyle().
		Foreground(ColorText)

	PreviewCurHitStyle = lipgloss.NewStyle().
		Foreground(ColorText).
		Background(ColorSurface).
		Bold(true)

	SearchMatchStyle = lipgloss.NewStyle().
		Background(ColorYellow).
		Foreground(ColorBg).
		Bold(true)
}
