package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i4arch/i4settings/bluetooth"
	"github.com/i4arch/i4settings/internal/appearance"
	"github.com/i4arch/i4settings/internal/config"
	"github.com/i4arch/i4settings/internal/hypr"
	"github.com/i4arch/i4settings/internal/packages"
	"github.com/i4arch/i4settings/internal/runner/runnertest"
	"github.com/i4arch/i4settings/internal/sysinfo"
	"github.com/i4arch/i4settings/vpn"
	"github.com/i4arch/i4settings/wifi"
	"github.com/i4arch/i4settings/wifi/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	server *Server
	fake   *runnertest.Fake
	wifi   *mock.MockBackend
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := discardLogger()
	fake := runnertest.New()
	backend := mock.New()
	backend.ActionSleep = 0
	backend.Shuffle = false

	root := t.TempDir()
	paths := config.Paths{
		Hypr:     filepath.Join(root, "hypr"),
		Waybar:   filepath.Join(root, "waybar"),
		Kitty:    filepath.Join(root, "kitty"),
		Icons:    filepath.Join(root, ".icons"),
		Themes:   filepath.Join(root, ".themes"),
		Settings: filepath.Join(root, "settings.toml"),
	}
	svc := Services{
		WiFi:       backend,
		VPN:        vpn.New(fake, logger),
		Bluetooth:  bluetooth.New(nil, logger),
		Packages:   packages.New(fake, nil, logger),
		SysInfo:    sysinfo.New(fake, logger),
		Hypr:       hypr.New(fake, paths, logger),
		Appearance: appearance.New(fake, paths, logger),
		Settings:   config.NewSettingsStore(paths.Settings, fake, logger),
	}
	return &testEnv{server: New(svc, ScanOff, logger), fake: fake, wifi: backend}
}

func TestCommands(t *testing.T) {
	s := newTestEnv(t).server
	names := s.Commands()
	for _, want := range []string{
		"get_wifi_status", "toggle_wifi", "scan_wifi", "connect_wifi", "get_wifi_config", "set_wifi_config",
		"get_vpn_connections", "connect_vpn", "disconnect_vpn", "import_vpn",
		"get_bluetooth_status", "toggle_bluetooth", "start_scan", "stop_scan", "get_bluetooth_devices", "connect_bluetooth",
		"check_updates", "update_system", "get_installed_apps", "get_installed_packages", "uninstall_package", "uninstall_app",
		"get_system_info", "get_gtk_theme", "set_wallpaper", "get_current_wallpaper_path", "get_wallpaper_base64",
		"get_app_settings", "save_app_settings", "get_waybar_position", "set_waybar_position",
		"get_displays", "save_displays", "get_cursor_themes", "get_gtk_themes_list",
		"apply_appearance_conf", "get_current_appearance_config", "get_startup_commands", "save_startup_commands",
		"get_env_vars", "save_env_vars", "get_keybinds", "save_keybinds",
	} {
		assert.Contains(t, names, want)
	}
}

func TestInvoke(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.server.Invoke(ctx, "format_disk", nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = env.server.Invoke(ctx, "get_wifi_config", json.RawMessage(`{"ssid": 42}`))
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = env.server.Invoke(ctx, "get_wifi_config", nil)
	assert.ErrorIs(t, err, ErrInvalidParams)

	result, err := env.server.Invoke(ctx, "get_wifi_config", json.RawMessage(`{"ssid": "Password is password"}`))
	require.NoError(t, err)
	assert.Equal(t, wifi.Config{Method: "manual", IPAddress: "192.168.1.50", Prefix: 24, Gateway: "192.168.1.1", DNS: "1.1.1.1,8.8.8.8"}, result)

	_, err = env.server.Invoke(ctx, "connect_bluetooth", json.RawMessage(`{"mac": "AA:BB:CC:DD:EE:FF"}`))
	assert.ErrorIs(t, err, bluetooth.ErrNoAdapter)

	result, err = env.server.Invoke(ctx, "get_bluetooth_status", nil)
	require.NoError(t, err)
	assert.Equal(t, false, result)
}

func TestDecode_CamelCaseKeys(t *testing.T) {
	p, err := decode[importParams](json.RawMessage(`{"filePath": "/tmp/work.ovpn", "vpnType": "openvpn", "username": "ada"}`))
	require.NoError(t, err)
	assert.Equal(t, importParams{FilePath: "/tmp/work.ovpn", VPNType: "openvpn", Username: "ada"}, p)

	// The snake_case key wins when both are sent.
	fp, err := decode[filePathParams](json.RawMessage(`{"file_path": "/a.png", "filePath": "/b.png"}`))
	require.NoError(t, err)
	assert.Equal(t, "/a.png", fp.FilePath)

	ap, err := decode[fullPathParams](json.RawMessage(`{"fullPath": "/usr/share/applications/x.desktop"}`))
	require.NoError(t, err)
	assert.Equal(t, "/usr/share/applications/x.desktop", ap.FullPath)

	sp, err := decode[ssidParams](json.RawMessage(`{"SSID": "Home"}`))
	require.NoError(t, err)
	assert.Equal(t, "Home", sp.SSID)

	_, err = decode[importParams](json.RawMessage(`{"filePath": 3}`))
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestToSnake(t *testing.T) {
	tests := map[string]string{
		"filePath": "file_path",
		"vpnType":  "vpn_type",
		"appName":  "app_name",
		"ssid":     "ssid",
		"SSID":     "ssid",
		"ip4Addr":  "ip4_addr",
	}
	for in, want := range tests {
		assert.Equal(t, want, toSnake(in), in)
	}
}

func TestInvoke_EnvAndKeybinds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.server.Invoke(ctx, "save_env_vars", json.RawMessage(`{"vars": [{"id": "new-1", "key": "XCURSOR_SIZE", "value": "24"}, {"id": "new-2", "key": " ", "value": ""}]}`))
	require.NoError(t, err)
	result, err := env.server.Invoke(ctx, "get_env_vars", nil)
	require.NoError(t, err)
	assert.Equal(t, []hypr.EnvVar{{ID: "env-0", Key: "XCURSOR_SIZE", Value: "24"}}, result)

	_, err = env.server.Invoke(ctx, "save_keybinds", json.RawMessage(`{"args": {"keybinds": [{"id": "new-1", "bind_type": "bind", "modifiers": "SUPER", "key": "Q", "dispatcher": "exec", "args": "kitty"}]}}`))
	require.NoError(t, err)
	result, err = env.server.Invoke(ctx, "get_keybinds", nil)
	require.NoError(t, err)
	assert.Equal(t, []hypr.Keybind{{ID: "bind-0", BindType: "bind", Modifiers: "SUPER", Key: "Q", Dispatcher: "exec", Args: "kitty"}}, result)

	_, err = env.server.Invoke(ctx, "save_keybinds", json.RawMessage(`{"keybinds": [{"bind_type": "exec", "key": "Q", "dispatcher": "exec"}]}`))
	assert.ErrorIs(t, err, hypr.ErrInvalidEntry)
}

func TestInvoke_VPN(t *testing.T) {
	env := newTestEnv(t)
	env.fake.On("nmcli -t -f UUID,NAME,TYPE,ACTIVE connection show", runnertest.Response{
		Stdout: "1111:Work:vpn:no\n2222:Home:802-11-wireless:yes\n3333:wg0:wireguard:yes\n",
	})

	result, err := env.server.Invoke(context.Background(), "get_vpn_connections", nil)
	require.NoError(t, err)
	assert.Equal(t, []vpn.Connection{
		{UUID: "3333", Name: "wg0", Active: true, Type: "wireguard"},
		{UUID: "1111", Name: "Work", Active: false, Type: "vpn"},
	}, result)
}

func TestScanSchedule_Param(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.server.Invoke(ctx, "set_scan_schedule", json.RawMessage(`{"interval": "8s"}`))
	require.NoError(t, err)
	assert.Equal(t, "8s", result)

	result, err = env.server.Invoke(ctx, "set_scan_schedule", json.RawMessage(`{"interval": "off"}`))
	require.NoError(t, err)
	assert.Equal(t, "0s", result)

	_, err = env.server.Invoke(ctx, "set_scan_schedule", json.RawMessage(`{"interval": "soon"}`))
	assert.Error(t, err)
}

func postInvoke(t *testing.T, url, command, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url+"/invoke/"+command, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHTTPInvoke(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	status, body := postInvoke(t, ts.URL, "nope", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "unknown command: nope", body["error"])

	status, body = postInvoke(t, ts.URL, "get_wifi_config", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "invalid parameters")

	status, body = postInvoke(t, ts.URL, "scan_wifi", "")
	assert.Equal(t, http.StatusOK, status)
	networks, ok := body["result"].([]any)
	require.True(t, ok, "result is a list")
	assert.Len(t, networks, 10)
	first := networks[0].(map[string]any)
	assert.Equal(t, "TacoBoutAGoodSignal", first["ssid"])

	status, body = postInvoke(t, ts.URL, "connect_wifi", `{"ssid": "Nowhere"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotEmpty(t, body["error"])

	resp, err := http.Get(ts.URL + "/invoke/scan_wifi")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestWebSocket(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(Request{ID: "1", Command: "get_wifi_status"}))
	var reply map[string]any
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, map[string]any{"id": "1", "result": true}, reply)

	require.NoError(t, conn.WriteJSON(Request{ID: "2", Command: "launch_rockets"}))
	reply = nil
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "2", reply["id"])
	assert.Equal(t, "unknown command: launch_rockets", reply["error"])
	assert.NotContains(t, reply, "result")

	require.Eventually(t, func() bool { return env.server.clientCount() == 1 }, time.Second, 10*time.Millisecond)
	env.server.Broadcast(EventConfigChanged, map[string]string{"path": "/tmp/settings.toml"})
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventConfigChanged, ev.Event)
	assert.Equal(t, map[string]any{"path": "/tmp/settings.toml"}, ev.Data)
}

func TestWebSocket_ScanPush(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()
	conn := dial(t, ts)
	require.Eventually(t, func() bool { return env.server.clientCount() == 1 }, time.Second, 10*time.Millisecond)

	env.server.scanAndPush(context.Background())
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventWifiNetworks, ev.Event)
	assert.Len(t, ev.Data, 10)
}

func TestScanSchedule(t *testing.T) {
	var calls atomic.Int32
	s := NewScanSchedule(ScanOff, func(context.Context) { calls.Add(1) })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, calls.Load(), "no scans while off")

	assert.True(t, s.Toggle())
	assert.Equal(t, time.Duration(ScanFast), s.Interval())
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond, "turning on scans immediately")

	assert.False(t, s.Toggle())
	assert.Equal(t, time.Duration(ScanOff), s.Interval())

	s.SetSchedule(10 * time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
