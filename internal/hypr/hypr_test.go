package hypr

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i4arch/i4settings/internal/config"
	"github.com/i4arch/i4settings/internal/runner/runnertest"
)

func testManager(t *testing.T, fake *runnertest.Fake) *Manager {
	t.Helper()
	root := t.TempDir()
	paths := config.Paths{
		Hypr:   filepath.Join(root, "hypr"),
		Waybar: filepath.Join(root, "waybar"),
		Kitty:  filepath.Join(root, "kitty"),
	}
	return New(fake, paths, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

const monitorsJSON = `[
  {"id": 0, "name": "eDP-1", "model": "0x9A1D", "width": 1920, "height": 1200,
   "refreshRate": 60.00100, "x": 0, "y": 0, "scale": 1.25, "transform": 0,
   "focused": true, "activeWorkspace": {"id": 1, "name": "1"}},
  {"id": 1, "name": "HDMI-A-1", "model": "DELL U2720Q", "width": 3840, "height": 2160,
   "refreshRate": 59.997, "x": 1536, "y": 0, "scale": 2, "transform": 1,
   "focused": false, "activeWorkspace": {"id": 2, "name": "2"}, "enabled": false}
]`

func TestMonitors(t *testing.T) {
	fake := runnertest.New().On("hyprctl monitors -j", runnertest.Response{Stdout: monitorsJSON})

	monitors, err := testManager(t, fake).Monitors(context.Background())
	require.NoError(t, err)
	require.Len(t, monitors, 2)

	assert.Equal(t, "eDP-1", monitors[0].Name)
	assert.True(t, monitors[0].Enabled, "enabled defaults to true")
	assert.Equal(t, Workspace{ID: 1, Name: "1"}, monitors[0].ActiveWorkspace)
	assert.InDelta(t, 60.001, monitors[0].RefreshRate, 0.0001)
	assert.False(t, monitors[1].Enabled)
}

func TestMonitors_Errors(t *testing.T) {
	fake := runnertest.New().On("hyprctl monitors -j", runnertest.Response{Stdout: "not json"})
	_, err := testManager(t, fake).Monitors(context.Background())
	assert.ErrorIs(t, err, ErrMalformedOutput)

	fake = runnertest.New().On("hyprctl monitors -j", runnertest.Response{ExitCode: 1, Stderr: "HYPRLAND_INSTANCE_SIGNATURE not set\n"})
	_, err = testManager(t, fake).Monitors(context.Background())
	assert.EqualError(t, err, "HYPRLAND_INSTANCE_SIGNATURE not set")
}

func TestMonitorLine(t *testing.T) {
	tests := []struct {
		name string
		m    Monitor
		want string
	}{
		{
			name: "enabled",
			m:    Monitor{Name: "eDP-1", Width: 1920, Height: 1080, RefreshRate: 60, X: 0, Y: 0, Scale: 1, Enabled: true},
			want: "monitor=eDP-1,1920x1080@60.000,0x0,1.0,transform,0",
		},
		{
			name: "mirror",
			m:    Monitor{Name: "HDMI-A-1", Width: 2560, Height: 1440, RefreshRate: 143.912, X: 1920, Y: 0, Scale: 1.5, Transform: 1, Enabled: true, Mirror: "eDP-1"},
			want: "monitor=HDMI-A-1,2560x1440@143.912,1920x0,1.5,transform,1,mirror,eDP-1",
		},
		{
			name: "disabled",
			m:    Monitor{Name: "DP-2", Width: 1920, Height: 1080, Mirror: "eDP-1"},
			want: "monitor=DP-2,disable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Line(); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSaveMonitors(t *testing.T) {
	m := testManager(t, runnertest.New())
	monitors := []Monitor{
		{Name: "eDP-1", Width: 1920, Height: 1080, RefreshRate: 60, Scale: 1, Enabled: true},
		{Name: "DP-2"},
	}
	require.NoError(t, m.SaveMonitors(monitors))
	assert.Equal(t, "monitor=eDP-1,1920x1080@60.000,0x0,1.0,transform,0\nmonitor=DP-2,disable", readFile(t, m.MonitorsPath()))
}

func TestStartup(t *testing.T) {
	m := testManager(t, runnertest.New())

	cmds, err := m.StartupCommands()
	require.NoError(t, err)
	assert.Empty(t, cmds)

	writeFile(t, m.StartupPath(), "# autostart\nexec-once = waybar\n  exec-once=swww-daemon --format xrgb  \nexec = notify-send hi\n")
	cmds, err = m.StartupCommands()
	require.NoError(t, err)
	assert.Equal(t, []string{"waybar", "swww-daemon --format xrgb"}, cmds)

	require.NoError(t, m.SaveStartupCommands([]string{" nm-applet ", "", "   ", "blueman-applet"}))
	assert.Equal(t, "exec-once = nm-applet\nexec-once = blueman-applet\n", readFile(t, m.StartupPath()))
}

func TestSetWallpaper(t *testing.T) {
	fake := runnertest.New()
	m := testManager(t, fake)
	src := filepath.Join(t.TempDir(), "mountains.png")
	writeFile(t, src, "PNGDATA")

	assert.ErrorIs(t, m.SetWallpaper(context.Background(), ""), ErrEmptyPath)

	swww := "swww img " + m.WallpaperPath() + " --transition-fps 60 --transition-step 255 --transition-type any"
	fake.On(swww, runnertest.Response{})
	require.NoError(t, m.SetWallpaper(context.Background(), src))
	assert.True(t, fake.Called(swww))
	assert.Equal(t, "PNGDATA", readFile(t, m.WallpaperPath()))

	encoded, err := m.WallpaperBase64()
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("PNGDATA")), encoded)

	fake.On(swww, runnertest.Response{ExitCode: 1, Stderr: "Socket file not found"})
	assert.EqualError(t, m.SetWallpaper(context.Background(), src), "Socket file not found")
}

func TestWallpaperBase64_Missing(t *testing.T) {
	_, err := testManager(t, runnertest.New()).WallpaperBase64()
	assert.Error(t, err)
}

func TestWaybarPosition(t *testing.T) {
	m := testManager(t, runnertest.New())

	pos, err := m.WaybarPosition()
	require.NoError(t, err)
	assert.Equal(t, "top", pos)

	writeFile(t, filepath.Join(m.WaybarDir, "config.jsonc"), "{\n  // bar\n  \"layer\": \"top\",\n  \"position\": \"left\",\n}\n")
	pos, err = m.WaybarPosition()
	require.NoError(t, err)
	assert.Equal(t, "left", pos)

	writeFile(t, filepath.Join(m.WaybarDir, "config.jsonc"), "{\n  \"layer\": \"top\"\n}\n")
	pos, err = m.WaybarPosition()
	require.NoError(t, err)
	assert.Equal(t, "top", pos)
}

func TestSetWaybarPosition(t *testing.T) {
	waybarRestartDelay = 0
	fake := runnertest.New().
		On("pkill waybar", runnertest.Response{ExitCode: 1}).
		On("hyprctl dispatch exec waybar", runnertest.Response{Stdout: "ok"})
	m := testManager(t, fake)
	writeFile(t, filepath.Join(m.WaybarDir, "themes", "bottom", "config.jsonc"), `"position": "bottom"`)
	writeFile(t, filepath.Join(m.WaybarDir, "themes", "bottom", "style.css"), "window#waybar {}")

	msg, err := m.SetWaybarPosition(context.Background(), "bottom")
	require.NoError(t, err)
	assert.Equal(t, "Waybar position changed to bottom", msg)
	assert.Equal(t, "window#waybar {}", readFile(t, filepath.Join(m.WaybarDir, "style.css")))
	assert.Equal(t, []string{"hyprctl", "dispatch", "exec", "waybar"}, fake.Last())

	pos, err := m.WaybarPosition()
	require.NoError(t, err)
	assert.Equal(t, "bottom", pos)
}

func TestSetWaybarPosition_Invalid(t *testing.T) {
	m := testManager(t, runnertest.New())
	writeFile(t, filepath.Join(m.WaybarDir, "themes", "right", "config.jsonc"), "{}")

	for _, pos := range []string{"", "..", "../right", "nowhere"} {
		_, err := m.SetWaybarPosition(context.Background(), pos)
		assert.ErrorIs(t, err, ErrThemeNotFound, pos)
	}

	_, err := m.SetWaybarPosition(context.Background(), "right")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "style.css not found"), err.Error())
}

func TestSetKittyTheme(t *testing.T) {
	fake := runnertest.New().On("pkill -USR1 kitty", runnertest.Response{})
	m := testManager(t, fake)
	writeFile(t, filepath.Join(m.KittyDir, "themes", "dark", "kitty.conf"), "background #000000\n")

	msg, err := m.SetKittyTheme(context.Background(), "dark")
	require.NoError(t, err)
	assert.Equal(t, "Kitty theme set to dark", msg)
	assert.Equal(t, "background #000000\n", readFile(t, filepath.Join(m.KittyDir, "kitty.conf")))
	assert.True(t, fake.Called("pkill -USR1 kitty"))

	_, err = m.SetKittyTheme(context.Background(), "light")
	assert.ErrorIs(t, err, ErrThemeNotFound)
}
