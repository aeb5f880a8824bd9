package terminal

import (
	"fmt"

	"github.com/fatih/color"
)

// Theme represents a terminal theme configuration
type Theme struct {
	Name         string
	PromptColor  string
	TextColor    string
	ErrorColor   string
	SuccessColor string
	InfoColor    string
}

var themes = map[string]Theme{
	"dark": {
		Name:         "dark",
		PromptColor:  "green",
		TextColor:    "white",
		ErrorColor:   "red",
		SuccessColor: "green",
		InfoColor:    "cyan",
	},
	"light": {
		Name:         "light",
		PromptColor:  "blue",
		TextColor:    "black",
		ErrorColor:   "red",
		SuccessColor: "green",
		InfoColor:    "blue",
	},
	"mono": {
		Name:         "mono",
		PromptColor:  "",
		TextColor:    "",
		ErrorColor:   "",
		SuccessColor: "",
		InfoColor:    "",
	},
}

// ThemeManager handles theme operations
type ThemeManager struct {
	currentTheme Theme
}

// NewThemeManager creates a theme manager using the named theme.
func NewThemeManager(name string) (*ThemeManager, error) {
	tm := &ThemeManager{}
	if err := tm.SetTheme(name); err != nil {
		return nil, err
	}
	return tm, nil
}

// SetTheme sets a new theme
func (tm *ThemeManager) SetTheme(name string) error {
	theme, ok := themes[name]
	if !ok {
		return fmt.Errorf("unknown theme: %s", name)
	}
	tm.currentTheme = theme
	return nil
}

// GetPromptColor returns the color function for prompts
func (tm *ThemeManager) GetPromptColor() *color.Color {
	return getColorFromName(tm.currentTheme.PromptColor)
}

// GetTextColor returns the color function for normal text
func (tm *ThemeManager) GetTextColor() *color.Color {
	return getColorFromName(tm.currentTheme.TextColor)
}

// GetErrorColor returns the color function for error messages
func (tm *ThemeManager) GetErrorColor() *color.Color {
	return getColorFromName(tm.currentTheme.ErrorColor)
}

// GetSuccessColor returns the color function for success messages
func (tm *ThemeManager) GetSuccessColor() *color.Color {
	return getColorFromName(tm.currentTheme.SuccessColor)
}

// GetInfoColor returns the color function for info messages
func (tm *ThemeManager) GetInfoColor() *color.Color {
	return getColorFromName(tm.currentTheme.InfoColor)
}

// GetThemeName returns the name of the current theme
func (tm *ThemeManager) GetThemeName() string {
	return tm.currentTheme.Name
}

// ThemeNames lists the available themes.
func ThemeNames() []string {
	return []string{"dark", "light", "mono"}
}

// getColorFromName returns a color.Color based on the color name
func getColorFromName(name string) *color.Color {
	switch name {
	case "black":
		return color.New(color.FgBlack)
	case "red":
		return color.New(color.FgRed)
	case "green":
		return color.New(color.FgGreen)
	case "yellow":
		return color.New(color.FgYellow)
	case "blue":
		return color.New(color.FgBlue)
	case "magenta":
		return color.New(color.FgMagenta)
	case "cyan":
		return color.New(color.FgCyan)
	case "white":
		return color.New(color.FgWhite)
	default:
		return color.New(color.Reset)
	}
}
