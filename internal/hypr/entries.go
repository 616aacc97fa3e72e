package hypr

import (
	"bufio"
	"bytes"
	"os"
	"strings"

	"github.com/i4arch/i4settings/internal/config"
)

// replaceEntries rewrites path with every line for which isEntry is false
// kept in place, followed by rendered. Comments and variable definitions
// around the managed entries survive a save.
func replaceEntries(path string, isEntry func(line string) bool, rendered string) error {
	var b bytes.Buffer
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if isEntry(strings.TrimSpace(line)) {
			continue
		}
		b.WriteString(line + "\n")
	}
	if err := sc.Err(); err != nil {
		return err
	}
	b.WriteString(rendered)
	return config.WriteFileAtomic(path, b.Bytes(), 0o644)
}

// splitAssignment splits "keyword = value" and reports whether line is one.
func splitAssignment(line string) (keyword, value string, ok bool) {
	keyword, value, ok = strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(keyword), strings.TrimSpace(value), true
}
