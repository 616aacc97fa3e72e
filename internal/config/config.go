// Package config holds the runtime configuration of i4settings and the
// user-facing app settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// AppName names the per-user config directory.
const AppName = "i4settings"

// Backends selectable for Wi-Fi.
const (
	BackendNmcli = "nmcli"
	BackendDBus  = "dbus"
	BackendMock  = "mock"
)

// Config is the runtime configuration, read from a TOML file and
// overridden by flags.
type Config struct {
	Listen       string        `toml:"listen"`
	Backend      string        `toml:"backend"`
	ScanInterval time.Duration `toml:"scan_interval"`
	// Terminals are command templates tried in order when a command needs an
	// interactive terminal. Empty means the built-in list.
	Terminals []string `toml:"terminals"`
	// Theme is a TOML file with CLI colors.
	Theme string `toml:"theme"`
	Paths Paths  `toml:"paths"`
}

// Paths are the directories and files i4settings reads and writes.
type Paths struct {
	Hypr     string `toml:"hypr"`
	Waybar   string `toml:"waybar"`
	Kitty    string `toml:"kitty"`
	Icons    string `toml:"icons"`
	Themes   string `toml:"themes"`
	Settings string `toml:"settings"`
}

// DefaultPath is the config file read when none is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.toml")
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Listen:       "127.0.0.1:7420",
		Backend:      BackendNmcli,
		ScanInterval: 8 * time.Second,
		Paths:        DefaultPaths(),
	}
}

// DefaultPaths resolves the standard locations under the user's home and
// XDG config directories.
func DefaultPaths() Paths {
	return Paths{
		Hypr:     filepath.Join(xdg.ConfigHome, "hypr"),
		Waybar:   filepath.Join(xdg.ConfigHome, "waybar"),
		Kitty:    filepath.Join(xdg.ConfigHome, "kitty"),
		Icons:    filepath.Join(xdg.Home, ".icons"),
		Themes:   filepath.Join(xdg.Home, ".themes"),
		Settings: filepath.Join(xdg.ConfigHome, AppName, "settings.toml"),
	}
}

// Load reads the config file at path on top of the defaults. A missing file
// is not an error.
func Load(path string, logger *slog.Logger) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 && logger != nil {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		logger.Warn("unknown config keys", "path", path, "keys", strings.Join(keys, ","))
	}
	cfg.Paths = cfg.Paths.withDefaults()
	return cfg, cfg.Validate()
}

// Validate checks values that flags and files can get wrong.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendNmcli, BackendDBus, BackendMock:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.ScanInterval < 0 {
		return fmt.Errorf("scan interval must not be negative")
	}
	return nil
}

func (p Paths) withDefaults() Paths {
	d := DefaultPaths()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		} else {
			*v = expandHome(*v)
		}
	}
	fill(&p.Hypr, d.Hypr)
	fill(&p.Waybar, d.Waybar)
	fill(&p.Kitty, d.Kitty)
	fill(&p.Icons, d.Icons)
	fill(&p.Themes, d.Themes)
	fill(&p.Settings, d.Settings)
	return p
}

func expandHome(p string) string {
	if p == "~" {
		return xdg.Home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(xdg.Home, p[2:])
	}
	return p
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, creating the parent directory if needed.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
