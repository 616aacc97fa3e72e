// Package hypr manages the Hyprland desktop: monitor layout, startup
// commands, environment variables, keybinds, wallpaper, waybar placement
// and the kitty theme. It reads and writes the user's dotfiles and pokes
// the running programs to reload.
package hypr

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/i4arch/i4settings/internal/config"
	"github.com/i4arch/i4settings/internal/runner"
)

var (
	// ErrEmptyPath is returned when no wallpaper file is given.
	ErrEmptyPath = errors.New("file path is empty")
	// ErrThemeNotFound is returned when a named theme or position directory
	// does not exist.
	ErrThemeNotFound = errors.New("theme not found")
	// ErrMalformedOutput is returned when hyprctl prints something that is
	// not the expected JSON.
	ErrMalformedOutput = errors.New("malformed hyprctl output")
	// ErrInvalidEntry is returned when an environment variable or keybind
	// cannot be written as a valid config line.
	ErrInvalidEntry = errors.New("invalid config entry")
)

// Manager operates on the Hyprland, waybar and kitty config directories.
type Manager struct {
	Runner    runner.Runner
	Logger    *slog.Logger
	HyprDir   string
	WaybarDir string
	KittyDir  string
}

// New returns a Manager for the directories in paths.
func New(r runner.Runner, paths config.Paths, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		Runner:    r,
		Logger:    logger.With("component", "hypr"),
		HyprDir:   paths.Hypr,
		WaybarDir: paths.Waybar,
		KittyDir:  paths.Kitty,
	}
}

// copyFile replaces dst with the contents of src.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(dst, data, 0o644)
}

// themeDir resolves name under root, refusing anything that is not a plain
// directory name.
func themeDir(root, name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: invalid name %q", ErrThemeNotFound, name)
	}
	dir := filepath.Join(root, "themes", name)
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return "", fmt.Errorf("%w: %s does not exist", ErrThemeNotFound, dir)
	}
	return dir, nil
}
