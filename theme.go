package main

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
)

// Theme contains the colors for CLI output.
type Theme struct {
	Primary lipgloss.TerminalColor
	Subtle  lipgloss.TerminalColor
	Success lipgloss.TerminalColor
	Error   lipgloss.TerminalColor
	Normal  lipgloss.TerminalColor
	Border  lipgloss.TerminalColor

	SignalHigh lipgloss.AdaptiveColor
	SignalLow  lipgloss.AdaptiveColor
}

// CurrentTheme is the active theme for the application.
var CurrentTheme = NewDefaultTheme()

// NewDefaultTheme creates a new default theme.
func NewDefaultTheme() Theme {
	return Theme{
		Primary: lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#D359E3"}, // Purple/Pink
		Subtle:  lipgloss.AdaptiveColor{Light: "#BDBDBD", Dark: "#616161"}, // Gray
		Success: lipgloss.AdaptiveColor{Light: "#388E3C", Dark: "#81C784"}, // Green
		Error:   lipgloss.AdaptiveColor{Light: "#D32F2F", Dark: "#E57373"}, // Red
		Normal:  lipgloss.AdaptiveColor{Light: "#212121", Dark: "#FFFFFF"},
		Border:  lipgloss.AdaptiveColor{Light: "#BDBDBD", Dark: "#616161"},

		SignalHigh: lipgloss.AdaptiveColor{Light: "#00B300", Dark: "#00FF00"},
		SignalLow:  lipgloss.AdaptiveColor{Light: "#D05F00", Dark: "#BC3C00"},
	}
}

// themeFile represents the structure of the theme TOML file.
// We use pointers to strings so we can distinguish between a missing value
// and an empty string. This allows users to override only the colors they want.
type themeFile struct {
	Primary    *string `toml:"Primary,omitempty"`
	Subtle     *string `toml:"Subtle,omitempty"`
	Success    *string `toml:"Success,omitempty"`
	Error      *string `toml:"Error,omitempty"`
	Normal     *string `toml:"Normal,omitempty"`
	Border     *string `toml:"Border,omitempty"`
	SignalHigh *string `toml:"SignalHigh,omitempty"`
	SignalLow  *string `toml:"SignalLow,omitempty"`
}

// LoadTheme overrides the default theme with the colors set in the TOML file
// at path. If the path is empty, it does nothing.
func LoadTheme(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var tf themeFile
	if err := toml.Unmarshal(data, &tf); err != nil {
		return err
	}

	theme := NewDefaultTheme()
	set := func(dst *lipgloss.TerminalColor, v *string) {
		if v != nil {
			*dst = lipgloss.Color(*v)
		}
	}
	set(&theme.Primary, tf.Primary)
	set(&theme.Subtle, tf.Subtle)
	set(&theme.Success, tf.Success)
	set(&theme.Error, tf.Error)
	set(&theme.Normal, tf.Normal)
	set(&theme.Border, tf.Border)
	// Signal colors feed a gradient and must be hex.
	if tf.SignalHigh != nil {
		theme.SignalHigh = lipgloss.AdaptiveColor{Light: *tf.SignalHigh, Dark: *tf.SignalHigh}
	}
	if tf.SignalLow != nil {
		theme.SignalLow = lipgloss.AdaptiveColor{Light: *tf.SignalLow, Dark: *tf.SignalLow}
	}

	CurrentTheme = theme
	return nil
}
