package ui

import (
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines a color scheme for UI output.
// Each field contains an ANSI escape code for the corresponding color category.
type Theme struct {
	// Name is the identifier of the theme.
	Name string
	// Primary is the main accent color for important elements.
	Primary string
	// Secondary is used for less prominent elements.
	Secondary string
	// Success indicates positive outcomes or completed operations.
	Success string
	// Warning is used for caution messages or non-critical issues.
	Warning string
	// Error indicates failures or critical issues.
	Error string
	// Info is used for informational messages.
	Info string
	// Bold is the escape code for bold text.
	Bold string
	// Underline is the escape code for underlined text.
	Underline string
	// Reset clears all formatting.
	Reset string
}

var (
	// DarkTheme is optimized for dark terminal backgrounds.
	// Uses bright, vibrant colors for good contrast.
	DarkTheme = Theme{
		Name:      "dark",
		Primary:   "\033[38;5;39m",  // Bright blue
		Secondary: "\033[38;5;245m", // Grey
		Success:   "\033[38;5;82m",  // Bright green
		Warning:   "\033[38;5;220m", // Yellow
		Error:     "\033[38;5;196m", // Red
		Info:      "\033[38;5;141m", // Purple
		Bold:      "\033[1m",
		Underline: "\033[4m",
		Reset:     "\033[0m",
	}

	// LightTheme is optimized for light terminal backgrounds.
	// Uses darker colors for better readability.
	LightTheme = Theme{
		Name:      "light",
		Primary:   "\033[38;5;27m",  // Dark blue
		Secondary: "\033[38;5;240m", // Dark grey
		Success:   "\033[38;5;28m",  // Dark green
		Warning:   "\033[38;5;130m", // Orange
		Error:     "\033[38;5;124m", // Dark red
		Info:      "\033[38;5;54m",  // Dark purple
		Bold:      "\033[1m",
		Underline: "\033[4m",
		Reset:     "\033[0m",
	}

	// NoColorTheme disables all color output.
	// Used when NO_COLOR is set or --no-color flag is provided.
	NoColorTheme = Theme{
		Name:      "none",
		Primary:   "",
		Secondary: "",
		Success:   "",
		Warning:   "",
		Error:     "",
		Info:      "",
		Bold:      "",
		Underline: "",
		Reset:     "",
	}

	// currentTheme is the active theme used throughout the application.
	// Defaults to DarkTheme but can be changed via SetTheme or InitTheme.
	currentTheme = DarkTheme
	themeMutex   sync.RWMutex
)

// Palette defines lipgloss-compatible colors for the run summary panel.
// Each field is a lipgloss.TerminalColor suitable for use with
// lipgloss.Style.Foreground() and BorderForeground().
type Palette struct {
	Text    lipgloss.TerminalColor
	Border  lipgloss.TerminalColor
	Accent  lipgloss.TerminalColor
	Success lipgloss.TerminalColor
	Warning lipgloss.TerminalColor
	Error   lipgloss.TerminalColor
	Dim     lipgloss.TerminalColor
	Chart   lipgloss.TerminalColor
}

var (
	// DarkPalette matches DarkTheme.
	DarkPalette = Palette{
		Text:    lipgloss.Color("#E0E0E0"),
		Border:  lipgloss.Color("#5F87AF"),
		Accent:  lipgloss.Color("#00AFFF"),
		Success: lipgloss.Color("#5FFF00"),
		Warning: lipgloss.Color("#FFD700"),
		Error:   lipgloss.Color("#FF0000"),
		Dim:     lipgloss.Color("#8A8A8A"),
		Chart:   lipgloss.Color("#AF87FF"),
	}

	// LightPalette matches LightTheme.
	LightPalette = Palette{
		Text:    lipgloss.Color("#1C1C1C"),
		Border:  lipgloss.Color("#585858"),
		Accent:  lipgloss.Color("#005FFF"),
		Success: lipgloss.Color("#008700"),
		Warning: lipgloss.Color("#AF5F00"),
		Error:   lipgloss.Color("#AF0000"),
		Dim:     lipgloss.Color("#585858"),
		Chart:   lipgloss.Color("#5F0087"),
	}

	// NoColorPalette disables all colors.
	// lipgloss.NoColor{} renders text with the terminal's default colors.
	NoColorPalette = Palette{
		Text:    lipgloss.NoColor{},
		Border:  lipgloss.NoColor{},
		Accent:  lipgloss.NoColor{},
		Success: lipgloss.NoColor{},
		Warning: lipgloss.NoColor{},
		Error:   lipgloss.NoColor{},
		Dim:     lipgloss.NoColor{},
		Chart:   lipgloss.NoColor{},
	}
)

// GetCurrentPalette returns the palette matching the currently active theme.
func GetCurrentPalette() Palette {
	themeMutex.RLock()
	defer themeMutex.RUnlock()

	switch currentTheme.Name {
	case "none":
		return NoColorPalette
	case "light":
		return LightPalette
	default:
		return DarkPalette
	}
}

// GetCurrentTheme returns the currently active theme in a thread-safe manner.
func GetCurrentTheme() Theme {
	themeMutex.RLock()
	defer themeMutex.RUnlock()
	return currentTheme
}

// SetCurrentTheme sets the currently active theme in a thread-safe manner.
// This is primarily used for testing purposes to restore state.
func SetCurrentTheme(t Theme) {
	themeMutex.Lock()
	defer themeMutex.Unlock()
	currentTheme = t
}

// themesByName lists the themes selectable with --theme.
var themesByName = map[string]Theme{
	"dark":  DarkTheme,
	"light": LightTheme,
	"none":  NoColorTheme,
}

// LookupTheme returns the theme registered under name.
func LookupTheme(name string) (Theme, bool) {
	t, ok := themesByName[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// ThemeNames returns the selectable theme names, sorted.
func ThemeNames() []string {
	names := make([]string, 0, len(themesByName))
	for name := range themesByName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SetTheme activates the theme registered under name. Unknown names leave
// the current theme unchanged and return false.
func SetTheme(name string) bool {
	t, ok := LookupTheme(name)
	if !ok {
		return false
	}
	SetCurrentTheme(t)
	return true
}

// InitTheme selects the startup theme. Colors are disabled when noColor is
// set or NO_COLOR is present in the environment (https://no-color.org/);
// otherwise name is used, falling back to the dark theme when it is empty or
// unknown.
func InitTheme(noColor bool, name ...string) {
	if _, set := os.LookupEnv("NO_COLOR"); noColor || set {
		SetCurrentTheme(NoColorTheme)
		return
	}
	if len(name) > 0 && SetTheme(name[0]) {
		return
	}
	SetCurrentTheme(DarkTheme)
}
