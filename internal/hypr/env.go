package hypr

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// EnvVar is one `env = KEY,VALUE` line.
type EnvVar struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// EnvPath is the file holding the session environment variables.
func (m *Manager) EnvPath() string {
	return filepath.Join(m.HyprDir, "env.conf")
}

// EnvVars returns the session environment variables. A missing file means
// none.
func (m *Manager) EnvVars() ([]EnvVar, error) {
	f, err := os.Open(m.EnvPath())
	if os.IsNotExist(err) {
		return []EnvVar{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseEnv(f)
}

func isEnvLine(line string) bool {
	kw, _, ok := splitAssignment(line)
	return ok && kw == "env"
}

// ParseEnv extracts every `env = KEY,VALUE` line. The value may itself
// contain commas.
func ParseEnv(r io.Reader) ([]EnvVar, error) {
	vars := []EnvVar{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		kw, rest, ok := splitAssignment(line)
		if !ok || kw != "env" {
			continue
		}
		key, value, _ := strings.Cut(rest, ",")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		vars = append(vars, EnvVar{
			ID:    fmt.Sprintf("env-%d", len(vars)),
			Key:   key,
			Value: strings.TrimSpace(value),
		})
	}
	return vars, sc.Err()
}

// RenderEnv renders vars as env lines. Entries with a blank key are
// dropped.
func RenderEnv(vars []EnvVar) (string, error) {
	var b strings.Builder
	for _, v := range vars {
		key := strings.TrimSpace(v.Key)
		if key == "" {
			continue
		}
		if strings.ContainsAny(key, ",= \t#") {
			return "", fmt.Errorf("%w: environment variable name %q", ErrInvalidEntry, key)
		}
		if strings.ContainsAny(v.Value, "\r\n") {
			return "", fmt.Errorf("%w: value of %s spans lines", ErrInvalidEntry, key)
		}
		b.WriteString("env = " + key + "," + strings.TrimSpace(v.Value) + "\n")
	}
	return b.String(), nil
}

// SaveEnvVars replaces the env lines of the environment file, keeping any
// other lines.
func (m *Manager) SaveEnvVars(vars []EnvVar) error {
	rendered, err := RenderEnv(vars)
	if err != nil {
		return err
	}
	if err := replaceEntries(m.EnvPath(), isEnvLine, rendered); err != nil {
		return err
	}
	m.Logger.Info("saved environment variables", "path", m.EnvPath())
	return nil
}
