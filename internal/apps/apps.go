// Package apps lists installed desktop applications from their .desktop
// entries.
package apps

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"
)

// App is a launchable desktop application.
type App struct {
	Name        string `json:"name" yaml:"name"`
	Icon        string `json:"icon" yaml:"icon"`
	Description string `json:"description" yaml:"description"`
	DesktopFile string `json:"desktop_file" yaml:"desktop_file"`
	FullPath    string `json:"full_path" yaml:"full_path"`
}

// Dirs returns the application directories in precedence order, user
// directory first.
func Dirs() []string {
	return xdg.ApplicationDirs
}

// List scans dirs for visible applications, sorted by name without regard
// to case. A desktop file ID found in several directories is taken from
// the first.
func List(dirs []string, logger *slog.Logger) []App {
	if logger == nil {
		logger = slog.Default()
	}
	seen := make(map[string]bool)
	var out []App
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".desktop" || seen[e.Name()] {
				continue
			}
			seen[e.Name()] = true

			path := filepath.Join(dir, e.Name())
			f, err := os.Open(path)
			if err != nil {
				logger.Debug("unreadable desktop file", "path", path, "error", err)
				continue
			}
			app, ok := Parse(f)
			f.Close()
			if !ok {
				continue
			}
			app.DesktopFile = e.Name()
			app.FullPath = path
			out = append(out, app)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Parse reads a desktop entry. It reports false unless the entry is of
// type Application, has a name and is not hidden with NoDisplay. The first
// Name, Icon and Comment keys win, so localized variants and later
// sections do not override them.
func Parse(r io.Reader) (App, bool) {
	var (
		app       App
		isApp     bool
		noDisplay bool
	)
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		switch {
		case strings.HasPrefix(line, "Name=") && app.Name == "":
			app.Name = strings.TrimPrefix(line, "Name=")
		case strings.HasPrefix(line, "Icon=") && app.Icon == "":
			app.Icon = strings.TrimPrefix(line, "Icon=")
		case strings.HasPrefix(line, "Comment=") && app.Description == "":
			app.Description = strings.TrimPrefix(line, "Comment=")
		case line == "NoDisplay=true":
			noDisplay = true
		case line == "Type=Application":
			isApp = true
		}
	}
	if app.Name == "" || noDisplay || !isApp {
		return App{}, false
	}
	return app, true
}
