package hypr

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/i4arch/i4settings/internal/config"
)

// Workspace identifies the workspace shown on a monitor.
type Workspace struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Monitor mirrors the objects printed by `hyprctl monitors -j`.
type Monitor struct {
	ID              int       `json:"id" yaml:"id"`
	Name            string    `json:"name" yaml:"name"`
	Model           string    `json:"model" yaml:"model"`
	Width           int       `json:"width" yaml:"width"`
	Height          int       `json:"height" yaml:"height"`
	RefreshRate     float64   `json:"refreshRate" yaml:"refreshRate"`
	X               int       `json:"x" yaml:"x"`
	Y               int       `json:"y" yaml:"y"`
	Scale           float64   `json:"scale" yaml:"scale"`
	Transform       int       `json:"transform" yaml:"transform"`
	Focused         bool      `json:"focused" yaml:"focused"`
	ActiveWorkspace Workspace `json:"activeWorkspace" yaml:"activeWorkspace"`
	Enabled         bool      `json:"enabled" yaml:"enabled"`
	// Mirror names the output this one mirrors. Empty means none.
	Mirror string `json:"mirror,omitempty" yaml:"mirror,omitempty"`
}

// UnmarshalJSON treats a missing "enabled" as true, since hyprctl only lists
// disabled monitors when asked to.
func (m *Monitor) UnmarshalJSON(data []byte) error {
	type plain Monitor
	p := plain{Enabled: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = Monitor(p)
	return nil
}

// Line renders the monitor as a Hyprland `monitor=` config line.
func (m Monitor) Line() string {
	if !m.Enabled {
		return fmt.Sprintf("monitor=%s,disable", m.Name)
	}
	line := fmt.Sprintf("monitor=%s,%dx%d@%.3f,%dx%d,%.1f,transform,%d",
		m.Name, m.Width, m.Height, m.RefreshRate, m.X, m.Y, m.Scale, m.Transform)
	if m.Mirror != "" {
		line += ",mirror," + m.Mirror
	}
	return line
}

// RenderMonitors renders one config line per monitor.
func RenderMonitors(monitors []Monitor) string {
	lines := make([]string, len(monitors))
	for i, m := range monitors {
		lines[i] = m.Line()
	}
	return strings.Join(lines, "\n")
}

// MonitorsPath is the file SaveMonitors writes.
func (m *Manager) MonitorsPath() string {
	return filepath.Join(m.HyprDir, "configs", "monitors.conf")
}

// Monitors lists the monitors Hyprland currently knows about.
func (m *Manager) Monitors(ctx context.Context) ([]Monitor, error) {
	res, err := m.Runner.Run(ctx, "hyprctl", "monitors", "-j")
	if err != nil {
		return nil, err
	}
	if err := res.Err("hyprctl"); err != nil {
		return nil, err
	}
	var monitors []Monitor
	if err := json.Unmarshal(res.Stdout, &monitors); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	return monitors, nil
}

// SaveMonitors replaces the monitors config file. Hyprland picks it up on
// its own.
func (m *Manager) SaveMonitors(monitors []Monitor) error {
	path := m.MonitorsPath()
	if err := config.WriteFileAtomic(path, []byte(RenderMonitors(monitors)), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	m.Logger.Info("saved monitor layout", "monitors", len(monitors), "path", path)
	return nil
}
