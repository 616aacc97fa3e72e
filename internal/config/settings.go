package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/i4arch/i4settings/internal/runner"
)

// UI themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// DefaultWaybarPosition is used when the settings file has none.
const DefaultWaybarPosition = "top"

// Settings are the user's app settings.
type Settings struct {
	Theme          string `toml:"theme" json:"theme" yaml:"theme"`
	WaybarPosition string `toml:"waybar_position" json:"waybar_position" yaml:"waybar_position"`
}

// DefaultSettings returns the settings used when none are saved.
func DefaultSettings() Settings {
	return Settings{Theme: ThemeLight, WaybarPosition: DefaultWaybarPosition}
}

// SettingsStore reads and writes the settings file.
type SettingsStore struct {
	Path   string
	Runner runner.Runner
	Logger *slog.Logger
}

// NewSettingsStore returns a store for the settings file at path.
func NewSettingsStore(path string, r runner.Runner, logger *slog.Logger) *SettingsStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsStore{Path: path, Runner: r, Logger: logger.With("component", "settings")}
}

// Load returns the saved settings. A missing or unreadable file yields the
// defaults.
func (s *SettingsStore) Load() Settings {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.Logger.Warn("failed to read settings", "path", s.Path, "error", err)
		}
		return DefaultSettings()
	}
	var st Settings
	if err := toml.Unmarshal(data, &st); err != nil {
		s.Logger.Warn("invalid settings file, using defaults", "path", s.Path, "error", err)
		return DefaultSettings()
	}
	if st.Theme == "" {
		st.Theme = ThemeLight
	}
	if st.WaybarPosition == "" {
		st.WaybarPosition = DefaultWaybarPosition
	}
	return st
}

// Save applies the theme's color scheme system-wide, as a step that may
// fail, and writes the settings file. Only the write can fail the save.
func (s *SettingsStore) Save(ctx context.Context, st Settings) (runner.Steps, error) {
	scheme := "default"
	if st.Theme == ThemeDark {
		scheme = "prefer-dark"
	}
	var steps runner.Steps
	steps.Run(ctx, s.Runner, "gsettings", "set", "org.gnome.desktop.interface", "color-scheme", scheme)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(st); err != nil {
		return steps, err
	}
	if err := WriteFileAtomic(s.Path, buf.Bytes(), 0o644); err != nil {
		return steps, err
	}
	s.Logger.Info("saved settings", "theme", st.Theme, "waybar_position", st.WaybarPosition)
	return steps, nil
}
