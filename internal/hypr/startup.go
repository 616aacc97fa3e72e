package hypr

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/i4arch/i4settings/internal/config"
)

const execOnce = "exec-once"

// StartupPath is the file holding the user's autostart commands.
func (m *Manager) StartupPath() string {
	return filepath.Join(m.HyprDir, "exec.conf")
}

// StartupCommands returns the commands run when the session starts. A
// missing file means none.
func (m *Manager) StartupCommands() ([]string, error) {
	f, err := os.Open(m.StartupPath())
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseStartup(f)
}

// ParseStartup extracts the command of every `exec-once = cmd` line.
func ParseStartup(r io.Reader) ([]string, error) {
	cmds := []string{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, execOnce) {
			continue
		}
		if _, cmd, ok := strings.Cut(line, "="); ok {
			cmds = append(cmds, strings.TrimSpace(cmd))
		}
	}
	return cmds, sc.Err()
}

// RenderStartup renders commands as exec-once lines, dropping blank ones.
func RenderStartup(commands []string) string {
	var b strings.Builder
	for _, cmd := range commands {
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}
		b.WriteString(execOnce + " = " + cmd + "\n")
	}
	return b.String()
}

// SaveStartupCommands replaces the autostart file.
func (m *Manager) SaveStartupCommands(commands []string) error {
	if err := config.WriteFileAtomic(m.StartupPath(), []byte(RenderStartup(commands)), 0o644); err != nil {
		return err
	}
	m.Logger.Info("saved startup commands", "path", m.StartupPath())
	return nil
}
