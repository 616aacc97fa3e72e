package hypr

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

// WallpaperPath is where the current wallpaper is kept.
func (m *Manager) WallpaperPath() string {
	return filepath.Join(m.HyprDir, "themes", "background.png")
}

// SetWallpaper copies src over the current wallpaper and tells swww to
// display it.
func (m *Manager) SetWallpaper(ctx context.Context, src string) error {
	if src == "" {
		return ErrEmptyPath
	}
	dst := m.WallpaperPath()
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("failed to copy wallpaper: %w", err)
	}

	res, err := m.Runner.Run(ctx, "swww", "img", dst,
		"--transition-fps", "60",
		"--transition-step", "255",
		"--transition-type", "any")
	if err != nil {
		return err
	}
	if err := res.Err("swww"); err != nil {
		return err
	}
	m.Logger.Info("wallpaper changed", "source", src)
	return nil
}

// WallpaperBase64 returns the current wallpaper, base64-encoded.
func (m *Manager) WallpaperBase64() (string, error) {
	data, err := os.ReadFile(m.WallpaperPath())
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
