package hypr

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Positions are the waybar positions with a prepared theme directory.
var Positions = []string{"top", "bottom", "left", "right"}

const defaultPosition = "top"

// waybarRestartDelay gives the old waybar time to release the layer surface.
var waybarRestartDelay = 300 * time.Millisecond

// SetWaybarPosition installs the waybar config and style prepared for
// position and restarts waybar.
func (m *Manager) SetWaybarPosition(ctx context.Context, position string) (string, error) {
	dir, err := themeDir(m.WaybarDir, position)
	if err != nil {
		return "", err
	}
	for _, name := range []string{"config.jsonc", "style.css"} {
		src := filepath.Join(dir, name)
		if _, err := os.Stat(src); err != nil {
			return "", fmt.Errorf("%s not found in %s", name, position)
		}
		if err := copyFile(src, filepath.Join(m.WaybarDir, name)); err != nil {
			return "", fmt.Errorf("failed to copy %s: %w", name, err)
		}
	}
	if err := m.restartWaybar(ctx); err != nil {
		return "", err
	}
	m.Logger.Info("waybar moved", "position", position)
	return fmt.Sprintf("Waybar position changed to %s", position), nil
}

func (m *Manager) restartWaybar(ctx context.Context) error {
	// pkill exits 1 when waybar was not running.
	if _, err := m.Runner.Run(ctx, "pkill", "waybar"); err != nil {
		m.Logger.Debug("pkill failed", "error", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(waybarRestartDelay):
	}

	res, err := m.Runner.Run(ctx, "hyprctl", "dispatch", "exec", "waybar")
	if err != nil {
		return fmt.Errorf("failed to start waybar: %w", err)
	}
	return res.Err("hyprctl")
}

// WaybarPosition reads the position from the installed waybar config. It
// defaults to top when the file or the setting is missing.
func (m *Manager) WaybarPosition() (string, error) {
	f, err := os.Open(filepath.Join(m.WaybarDir, "config.jsonc"))
	if os.IsNotExist(err) {
		return defaultPosition, nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if pos := parsePosition(sc.Text()); pos != "" {
			return pos, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return defaultPosition, nil
}

// parsePosition returns the position set on a `"position": "…"` line.
func parsePosition(line string) string {
	if !strings.Contains(line, `"position"`) {
		return ""
	}
	for _, p := range Positions {
		if strings.Contains(line, `"`+p+`"`) {
			return p
		}
	}
	return ""
}
