// Package terminal runs a shell command in the first terminal emulator that
// can be started.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/google/shlex"
)

// ErrNoTerminal means none of the configured terminals could be started.
var ErrNoTerminal = errors.New("no terminal emulator found")

// Placeholders substituted in templates after splitting, so their values
// always stay single arguments.
const (
	TitlePlaceholder   = "{title}"
	CommandPlaceholder = "{cmd}"
)

// Trailer keeps the window open after the command finishes.
const Trailer = "; echo; read -p 'Press Enter to close...' -n 1"

// DefaultTemplates is the built-in preference order.
var DefaultTemplates = []string{
	"kitty --title {title} -e sh -c {cmd}",
	"alacritty --title {title} -e sh -c {cmd}",
	"wezterm -e sh -c {cmd}",
	"gnome-terminal --title {title} -- bash -c {cmd}",
	"konsole -p tabtitle={title} -e bash -c {cmd}",
	"xfce4-terminal --title {title} -- bash -c {cmd}",
}

// Launcher starts commands in a terminal.
type Launcher struct {
	Templates []string
	Logger    *slog.Logger

	// start launches argv and returns once it is running.
	start func(argv []string) error
}

// New returns a Launcher trying templates in order, or DefaultTemplates if
// templates is empty.
func New(templates []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	if len(templates) == 0 {
		templates = DefaultTemplates
	}
	l := &Launcher{Templates: templates, Logger: logger.With("component", "terminal")}
	l.start = l.startProcess
	return l
}

// Run opens command in the first terminal that starts, titled title if the
// terminal supports it. It returns the terminal's executable name and does
// not wait for the window to close.
func (l *Launcher) Run(ctx context.Context, title string, command string) (string, error) {
	shell := command + Trailer
	for _, tmpl := range l.Templates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		argv, err := Expand(tmpl, title, shell)
		if err != nil {
			l.Logger.Warn("invalid terminal template", "template", tmpl, "error", err)
			continue
		}
		if err := l.start(argv); err != nil {
			l.Logger.Debug("terminal not available", "terminal", argv[0], "error", err)
			continue
		}
		l.Logger.Info("opened terminal", "terminal", argv[0], "title", title)
		return argv[0], nil
	}
	return "", fmt.Errorf("%w (tried %s)", ErrNoTerminal, strings.Join(l.names(), ", "))
}

func (l *Launcher) names() []string {
	names := make([]string, 0, len(l.Templates))
	for _, t := range l.Templates {
		if f := strings.Fields(t); len(f) > 0 {
			names = append(names, f[0])
		}
	}
	return names
}

// Expand splits a template with shell quoting rules and substitutes the
// placeholders. With an empty title, a title argument is dropped together
// with the flag before it.
func Expand(template string, title string, command string) ([]string, error) {
	parts, err := shlex.Split(template)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, errors.New("empty template")
	}

	argv := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.Contains(p, TitlePlaceholder) && title == "" {
			// "--title {title}" and "-p tabtitle={title}" lose their flag too.
			if n := len(argv); n > 1 && !strings.HasPrefix(p, "-") && strings.HasPrefix(argv[n-1], "-") {
				argv = argv[:n-1]
			}
			continue
		}
		p = strings.ReplaceAll(p, TitlePlaceholder, title)
		p = strings.ReplaceAll(p, CommandPlaceholder, command)
		argv = append(argv, p)
	}
	return argv, nil
}

func (l *Launcher) startProcess(argv []string) error {
	// Not bound to a request context: the window outlives the request.
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		err := cmd.Wait()
		l.Logger.Debug("terminal closed", "terminal", argv[0], "error", err)
	}()
	return nil
}
