package hypr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// SetKittyTheme installs themes/<theme>/kitty.conf as the kitty config and
// signals running kitty instances to reload it.
func (m *Manager) SetKittyTheme(ctx context.Context, theme string) (string, error) {
	dir, err := themeDir(m.KittyDir, theme)
	if err != nil {
		return "", err
	}
	src := filepath.Join(dir, "kitty.conf")
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("%w: kitty theme file not found at %s", ErrThemeNotFound, src)
	}
	if err := copyFile(src, filepath.Join(m.KittyDir, "kitty.conf")); err != nil {
		return "", fmt.Errorf("failed to copy kitty.conf: %w", err)
	}

	if _, err := m.Runner.Run(ctx, "pkill", "-USR1", "kitty"); err != nil {
		m.Logger.Debug("could not signal kitty", "error", err)
	}
	return fmt.Sprintf("Kitty theme set to %s", theme), nil
}
