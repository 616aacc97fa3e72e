package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type outputFlags struct {
	json *bool
	yaml *bool
}

// addOutputFlags registers -json and -yaml on fs.
func addOutputFlags(fs *flag.FlagSet) outputFlags {
	return outputFlags{
		json: fs.Bool("json", false, "output in JSON format"),
		yaml: fs.Bool("yaml", false, "output in YAML format"),
	}
}

func (o outputFlags) format() string {
	switch {
	case o.json != nil && *o.json:
		return FormatJSON
	case o.yaml != nil && *o.yaml:
		return FormatYAML
	}
	return FormatText
}

// writeStructured writes v as JSON or YAML. It reports false for the text
// format, leaving the rendering to the caller.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

// renderTable lays out rows under headers.
func renderTable(w io.Writer, headers []string, rows [][]string) error {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Primary).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(CurrentTheme.Border)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(w, t.String())
	return err
}

// renderFields prints label/value pairs, one per line.
func renderFields(w io.Writer, fields [][2]string) error {
	width := 0
	for _, f := range fields {
		width = max(width, len(f[0]))
	}
	label := lipgloss.NewStyle().Foreground(CurrentTheme.Subtle).Width(width + 2)
	for _, f := range fields {
		if _, err := fmt.Fprintln(w, label.Render(f[0]+":")+f[1]); err != nil {
			return err
		}
	}
	return nil
}

// signalColor blends between the low and high signal colors of the theme.
func signalColor(signal uint8) lipgloss.TerminalColor {
	low, high := CurrentTheme.SignalLow.Light, CurrentTheme.SignalHigh.Light
	if lipgloss.HasDarkBackground() {
		low, high = CurrentTheme.SignalLow.Dark, CurrentTheme.SignalHigh.Dark
	}
	start, err := colorful.Hex(low)
	if err != nil {
		return CurrentTheme.Normal
	}
	end, err := colorful.Hex(high)
	if err != nil {
		return CurrentTheme.Normal
	}
	p := float64(min(signal, 100)) / 100.0
	return lipgloss.Color(start.BlendRgb(end, p).Hex())
}

func styled(c lipgloss.TerminalColor, s string) string {
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

func yesNo(b bool) string {
	if b {
		return styled(CurrentTheme.Success, "yes")
	}
	return styled(CurrentTheme.Subtle, "no")
}

// formatDuration takes a time and returns a human-readable string like "2 hours ago"
func formatDuration(t time.Time) string {
	d := time.Since(t)
	var s string
	switch {
	case d < time.Minute*2:
		s = fmt.Sprintf("%0.f seconds", d.Seconds())
	case d < time.Hour*2:
		s = fmt.Sprintf("%0.f minutes", d.Minutes())
	case d < time.Hour*48:
		s = fmt.Sprintf("%0.1f hours", d.Hours())
	default:
		s = fmt.Sprintf("%0.f days", d.Hours()/24)
	}
	return fmt.Sprintf("%s ago", s)
}
