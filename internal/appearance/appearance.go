// Package appearance discovers installed cursor and GTK themes and applies
// them to the running session and to the Hyprland startup config.
package appearance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/i4arch/i4settings/internal/config"
	"github.com/i4arch/i4settings/internal/runner"
)

// ErrInvalidTheme is returned for theme names that cannot be written to the
// Hyprland config.
var ErrInvalidTheme = errors.New("invalid theme name")

const (
	// DefaultTheme is reported when gsettings has no value.
	DefaultTheme = "Adwaita"
	// DefaultCursorSize is used when theme.conf sets none.
	DefaultCursorSize = 24

	ifaceSchema     = "org.gnome.desktop.interface"
	userThemeSchema = "org.gnome.shell.extensions.user-theme"
)

// Theme is an installed theme directory.
type Theme struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// State is the current look of the session.
type State struct {
	CursorTheme string `json:"cursor_theme" yaml:"cursor_theme"`
	CursorSize  int    `json:"cursor_size" yaml:"cursor_size"`
	GTKTheme    string `json:"gtk_theme" yaml:"gtk_theme"`
	ColorScheme string `json:"color_scheme" yaml:"color_scheme"`
}

// Request is the look to apply.
type Request struct {
	CursorTheme string `json:"cursor_theme"`
	CursorSize  int    `json:"cursor_size"`
	GTKTheme    string `json:"gtk_theme"`
	DarkMode    bool   `json:"dark_mode"`
}

// Manager reads theme directories and applies appearance settings.
type Manager struct {
	Runner    runner.Runner
	Logger    *slog.Logger
	IconsDir  string
	ThemesDir string
	HyprDir   string
}

// New returns a Manager for the directories in paths.
func New(r runner.Runner, paths config.Paths, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		Runner:    r,
		Logger:    logger.With("component", "appearance"),
		IconsDir:  paths.Icons,
		ThemesDir: paths.Themes,
		HyprDir:   paths.Hypr,
	}
}

// ThemeConfPath is the Hyprland config fragment Apply writes.
func (m *Manager) ThemeConfPath() string {
	return filepath.Join(m.HyprDir, "themes", "theme.conf")
}

// CursorThemes lists icon themes that ship cursors. Icon themes without a
// cursors directory are skipped.
func (m *Manager) CursorThemes() ([]Theme, error) {
	return listThemes(m.IconsDir, "cursors")
}

// GTKThemes lists themes that carry GTK 3 styles or at least an index.theme.
func (m *Manager) GTKThemes() ([]Theme, error) {
	return listThemes(m.ThemesDir, "gtk-3.0", "index.theme")
}

// listThemes returns the subdirectories of root containing any of markers.
func listThemes(root string, markers ...string) ([]Theme, error) {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return []Theme{}, nil
	}
	if err != nil {
		return nil, err
	}

	themes := []Theme{}
	for _, e := range entries {
		path := filepath.Join(root, e.Name())
		if fi, err := os.Stat(path); err != nil || !fi.IsDir() {
			continue
		}
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(path, marker)); err == nil {
				themes = append(themes, Theme{Name: e.Name(), Path: path})
				break
			}
		}
	}
	return themes, nil
}

// Apply sets the color scheme and themes on the running session, each as a
// step that may fail on its own, then writes theme.conf so the look survives
// a restart. Only the write fails the call.
func (m *Manager) Apply(ctx context.Context, req Request) (runner.Steps, error) {
	for _, name := range []string{req.CursorTheme, req.GTKTheme} {
		if name == "" || strings.ContainsAny(name, "'\n\r") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTheme, name)
		}
	}
	if req.CursorSize <= 0 {
		req.CursorSize = DefaultCursorSize
	}
	scheme := "prefer-light"
	if req.DarkMode {
		scheme = "prefer-dark"
	}
	size := strconv.Itoa(req.CursorSize)

	settings := [][]string{
		{ifaceSchema, "color-scheme", scheme},
		{ifaceSchema, "gtk-theme", req.GTKTheme},
		{userThemeSchema, "name", req.GTKTheme},
		{ifaceSchema, "cursor-theme", req.CursorTheme},
	}

	var (
		steps runner.Steps
		conf  strings.Builder
	)
	for _, s := range settings {
		steps.Run(ctx, m.Runner, "gsettings", "set", s[0], s[1], s[2])
		fmt.Fprintf(&conf, "exec = gsettings set %s %s '%s'\n", s[0], s[1], s[2])
	}
	steps.Run(ctx, m.Runner, "hyprctl", "setcursor", req.CursorTheme, size)
	fmt.Fprintf(&conf, "exec = hyprctl setcursor %s %s\n", req.CursorTheme, size)

	if failed := steps.Failed(); len(failed) > 0 {
		m.Logger.Warn("some appearance settings were not applied", "failed", len(failed))
	}

	path := m.ThemeConfPath()
	if err := config.WriteFileAtomic(path, []byte(conf.String()), 0o644); err != nil {
		return steps, fmt.Errorf("failed to write %s: %w", path, err)
	}
	m.Logger.Info("applied appearance", "gtk_theme", req.GTKTheme, "cursor_theme", req.CursorTheme, "dark", req.DarkMode)
	return steps, nil
}

// Current reads the session's look from gsettings, and the cursor size from
// theme.conf since there is no standard place to query it.
func (m *Manager) Current(ctx context.Context) State {
	st := State{
		CursorTheme: m.get(ctx, "cursor-theme"),
		GTKTheme:    m.get(ctx, "gtk-theme"),
		ColorScheme: m.get(ctx, "color-scheme"),
		CursorSize:  m.cursorSize(),
	}
	if st.CursorTheme == "" {
		st.CursorTheme = DefaultTheme
	}
	if st.GTKTheme == "" {
		st.GTKTheme = DefaultTheme
	}
	return st
}

func (m *Manager) get(ctx context.Context, key string) string {
	res, err := m.Runner.Run(ctx, "gsettings", "get", ifaceSchema, key)
	if err != nil || !res.Success() {
		m.Logger.Debug("gsettings get failed", "key", key, "error", err)
		return ""
	}
	return strings.ReplaceAll(strings.TrimSpace(string(res.Stdout)), "'", "")
}

func (m *Manager) cursorSize() int {
	f, err := os.Open(m.ThemeConfPath())
	if err != nil {
		return DefaultCursorSize
	}
	defer f.Close()

	size := DefaultCursorSize
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, "hyprctl setcursor") {
			continue
		}
		fields := strings.Fields(line)
		if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil && n > 0 {
			size = n
		}
	}
	return size
}
