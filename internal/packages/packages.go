// Package packages queries and changes installed pacman packages.
package packages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/i4arch/i4settings/internal/runner"
)

// ErrNoOwner means no package owns the given file.
var ErrNoOwner = errors.New("failed to resolve package owner")

// Package is an installed package.
type Package struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// Update is a pending package upgrade.
type Update struct {
	Name       string `json:"name" yaml:"name"`
	OldVersion string `json:"old_version" yaml:"old_version"`
	NewVersion string `json:"new_version" yaml:"new_version"`
}

// Terminal runs an interactive command in a terminal window.
type Terminal interface {
	Run(ctx context.Context, title string, command string) (string, error)
}

// Manager wraps pacman and checkupdates.
type Manager struct {
	Runner   runner.Runner
	Terminal Terminal
	Logger   *slog.Logger
}

// New returns a Manager.
func New(r runner.Runner, term Terminal, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{Runner: r, Terminal: term, Logger: logger.With("component", "packages")}
}

// Installed lists installed packages from "pacman -Q".
func (m *Manager) Installed(ctx context.Context) ([]Package, error) {
	res, err := m.Runner.Run(ctx, "pacman", "-Q")
	if err != nil {
		return nil, err
	}
	return ParseInstalled(res.Lines()), nil
}

// ParseInstalled parses "name version" lines, skipping short ones.
func ParseInstalled(lines []string) []Package {
	var out []Package
	for _, line := range lines {
		f := strings.Fields(line)
		if len(f) < 2 {
			continue
		}
		out = append(out, Package{Name: f[0], Version: f[1]})
	}
	return out
}

// Updates lists pending upgrades from checkupdates. checkupdates exits 2
// when there is nothing to upgrade, so the exit status is not checked.
func (m *Manager) Updates(ctx context.Context) ([]Update, error) {
	res, err := m.Runner.Run(ctx, "checkupdates")
	if err != nil {
		return nil, err
	}
	if res.ExitCode == 1 {
		m.Logger.Warn("checkupdates failed", "stderr", strings.TrimSpace(string(res.Stderr)))
	}
	return ParseUpdates(res.Lines()), nil
}

// ParseUpdates parses "name old -> new" lines, skipping short ones.
func ParseUpdates(lines []string) []Update {
	var out []Update
	for _, line := range lines {
		f := strings.Fields(line)
		if len(f) < 4 {
			continue
		}
		out = append(out, Update{Name: f[0], OldVersion: f[1], NewVersion: f[3]})
	}
	return out
}

// Owner returns the name of the package owning path.
func (m *Manager) Owner(ctx context.Context, path string) (string, error) {
	res, err := m.Runner.Run(ctx, "pacman", "-Qo", path)
	if err != nil {
		return "", err
	}
	if err := res.Err("pacman"); err != nil {
		return "", fmt.Errorf("%w for %s: %w", ErrNoOwner, path, err)
	}
	return ParseOwner(string(res.Stdout))
}

// ParseOwner extracts the package name from
// "<path> is owned by <package> <version>".
func ParseOwner(out string) (string, error) {
	_, info, found := strings.Cut(out, " is owned by ")
	if !found {
		return "", fmt.Errorf("%w: could not parse package owner", ErrNoOwner)
	}
	f := strings.Fields(info)
	if len(f) == 0 {
		return "", fmt.Errorf("%w: could not parse package name", ErrNoOwner)
	}
	return f[0], nil
}

// Uninstall opens a terminal removing the named package.
func (m *Manager) Uninstall(ctx context.Context, name string) error {
	if name == "" || strings.HasPrefix(name, "-") || strings.ContainsAny(name, " \t\n;&|`$'\"\\<>()") {
		return fmt.Errorf("invalid package name %q", name)
	}
	_, err := m.Terminal.Run(ctx, "", "sudo pacman -R "+name)
	return err
}

// UninstallApp resolves the package owning a desktop file and uninstalls it.
func (m *Manager) UninstallApp(ctx context.Context, desktopFile string) error {
	name, err := m.Owner(ctx, desktopFile)
	if err != nil {
		return err
	}
	return m.Uninstall(ctx, name)
}

// UpdateSystem opens a terminal running a full system upgrade.
func (m *Manager) UpdateSystem(ctx context.Context) error {
	_, err := m.Terminal.Run(ctx, "update-system", "sudo pacman -Syu")
	return err
}
