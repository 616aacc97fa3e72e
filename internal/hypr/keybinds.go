package hypr

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// bindFlags are the letters Hyprland accepts after "bind".
const bindFlags = "lrecnmtidsopu"

// Keybind is one `bind = MODS, key, dispatcher, args` line.
type Keybind struct {
	ID         string `json:"id"`
	BindType   string `json:"bind_type"`
	Modifiers  string `json:"modifiers"`
	Key        string `json:"key"`
	Dispatcher string `json:"dispatcher"`
	Args       string `json:"args"`
}

// KeybindsPath is the file holding the user's keybinds.
func (m *Manager) KeybindsPath() string {
	return filepath.Join(m.HyprDir, "keybinds.conf")
}

// Keybinds returns the user's keybinds. A missing file means none.
func (m *Manager) Keybinds() ([]Keybind, error) {
	f, err := os.Open(m.KeybindsPath())
	if os.IsNotExist(err) {
		return []Keybind{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseKeybinds(f)
}

// IsBindType reports whether s is "bind" optionally followed by flags, as
// in "binde" or "bindel".
func IsBindType(s string) bool {
	flags, ok := strings.CutPrefix(s, "bind")
	if !ok {
		return false
	}
	for _, c := range flags {
		if !strings.ContainsRune(bindFlags, c) {
			return false
		}
	}
	return true
}

func isBindLine(line string) bool {
	kw, _, ok := splitAssignment(line)
	return ok && IsBindType(kw)
}

// ParseKeybinds extracts every bind line. Lines with fewer than three
// fields are skipped. Everything after the dispatcher is its argument,
// commas included.
func ParseKeybinds(r io.Reader) ([]Keybind, error) {
	binds := []Keybind{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		kw, rest, ok := splitAssignment(line)
		if !ok || !IsBindType(kw) {
			continue
		}
		fields := strings.SplitN(rest, ",", 4)
		if len(fields) < 3 {
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		kb := Keybind{
			ID:         fmt.Sprintf("bind-%d", len(binds)),
			BindType:   kw,
			Modifiers:  fields[0],
			Key:        fields[1],
			Dispatcher: fields[2],
		}
		if len(fields) == 4 {
			kb.Args = fields[3]
		}
		binds = append(binds, kb)
	}
	return binds, sc.Err()
}

// RenderKeybinds renders binds as config lines. Entries without a key or
// dispatcher are dropped and an empty bind type means "bind".
func RenderKeybinds(binds []Keybind) (string, error) {
	var b strings.Builder
	for _, kb := range binds {
		key := strings.TrimSpace(kb.Key)
		dispatcher := strings.TrimSpace(kb.Dispatcher)
		if key == "" || dispatcher == "" {
			continue
		}
		bindType := strings.TrimSpace(kb.BindType)
		if bindType == "" {
			bindType = "bind"
		}
		if !IsBindType(bindType) {
			return "", fmt.Errorf("%w: bind type %q", ErrInvalidEntry, bindType)
		}
		for _, f := range []string{kb.Modifiers, key, dispatcher, kb.Args} {
			if strings.ContainsAny(f, "\r\n") {
				return "", fmt.Errorf("%w: keybind %s spans lines", ErrInvalidEntry, key)
			}
		}
		if strings.Contains(key, ",") || strings.Contains(kb.Modifiers, ",") || strings.Contains(dispatcher, ",") {
			return "", fmt.Errorf("%w: keybind %s has a comma outside its arguments", ErrInvalidEntry, key)
		}
		fmt.Fprintf(&b, "%s = %s, %s, %s,", bindType, strings.TrimSpace(kb.Modifiers), key, dispatcher)
		if args := strings.TrimSpace(kb.Args); args != "" {
			b.WriteString(" " + args)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// SaveKeybinds replaces the bind lines of the keybinds file, keeping
// variables and comments.
func (m *Manager) SaveKeybinds(binds []Keybind) error {
	rendered, err := RenderKeybinds(binds)
	if err != nil {
		return err
	}
	if err := replaceEntries(m.KeybindsPath(), isBindLine, rendered); err != nil {
		return err
	}
	m.Logger.Info("saved keybinds", "path", m.KeybindsPath())
	return nil
}
