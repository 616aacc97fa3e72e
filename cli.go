package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/i4arch/i4settings/bluetooth"
	"github.com/i4arch/i4settings/internal/appearance"
	"github.com/i4arch/i4settings/internal/apps"
	"github.com/i4arch/i4settings/internal/config"
	"github.com/i4arch/i4settings/internal/hypr"
	"github.com/i4arch/i4settings/internal/packages"
	"github.com/i4arch/i4settings/internal/runner"
	"github.com/i4arch/i4settings/internal/server"
	"github.com/i4arch/i4settings/internal/sysinfo"
	"github.com/i4arch/i4settings/vpn"
	"github.com/i4arch/i4settings/wifi"
)

var errUsage = errors.New("invalid usage")

// writeSteps reports the side steps of an operation that did not fail it.
func writeSteps(w io.Writer, steps runner.Steps) {
	for _, s := range steps.Failed() {
		fmt.Fprintf(w, "%s %s: %s\n", styled(CurrentTheme.Error, "warning:"), s.Name, s.Error)
	}
}

func runWifiList(ctx context.Context, w io.Writer, format string, b wifi.Backend) error {
	networks, err := b.Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to list networks: %w", err)
	}
	if networks == nil {
		networks = []wifi.Network{}
	}
	if ok, err := writeStructured(w, format, networks); ok {
		return err
	}

	rows := make([][]string, 0, len(networks))
	for _, n := range networks {
		active := ""
		if n.Active {
			active = styled(CurrentTheme.Success, "*")
		}
		security := n.Security
		if security == "" {
			security = "--"
		}
		signal := styled(signalColor(n.Signal), fmt.Sprintf("%s %3d%%", n.Bars, n.Signal))
		rows = append(rows, []string{active, n.SSID, security, signal})
	}
	return renderTable(w, []string{"", "SSID", "SECURITY", "SIGNAL"}, rows)
}

func runWifiConfig(ctx context.Context, w io.Writer, format string, b wifi.Backend, ssid string) error {
	cfg, err := b.Profile(ctx, ssid)
	if err != nil {
		return err
	}
	if ok, err := writeStructured(w, format, cfg); ok {
		return err
	}
	return renderFields(w, [][2]string{
		{"SSID", ssid},
		{"Method", cfg.Method},
		{"Address", cfg.IPAddress},
		{"Prefix", strconv.Itoa(cfg.Prefix)},
		{"Gateway", cfg.Gateway},
		{"DNS", cfg.DNS},
	})
}

func runWifiSetConfig(ctx context.Context, w io.Writer, b wifi.Backend, ssid string, cfg wifi.Config) error {
	if cfg.Method != wifi.MethodAuto && cfg.Method != wifi.MethodManual {
		return fmt.Errorf("%w: method must be %s or %s", errUsage, wifi.MethodAuto, wifi.MethodManual)
	}
	if err := b.ApplyProfile(ctx, ssid, cfg); err != nil {
		return err
	}
	fmt.Fprintf(w, "Applied %s configuration to %s\n", cfg.Method, ssid)
	return nil
}

func runWifiConnect(ctx context.Context, w io.Writer, b wifi.Backend, ssid, password string) error {
	if err := b.Connect(ctx, ssid, password); err != nil {
		return fmt.Errorf("failed to connect to network: %w", err)
	}
	fmt.Fprintf(w, "Connected to %s\n", ssid)
	return nil
}

// runWifiRadio prints the radio state, or switches it when state is "on" or
// "off".
func runWifiRadio(ctx context.Context, w io.Writer, b wifi.Backend, state string) error {
	switch state {
	case "":
		on, err := b.IsWirelessEnabled(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Wireless: %s\n", onOff(on))
		return nil
	case "on", "off":
		if err := b.SetWireless(ctx, state == "on"); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wireless: %s\n", state)
		return nil
	}
	return fmt.Errorf("%w: radio state must be on or off, got %q", errUsage, state)
}

// runWifiShare prints a QR code joining a known network.
func runWifiShare(ctx context.Context, w io.Writer, b wifi.Backend, ssid string, hidden bool) error {
	password, err := b.Secret(ctx, ssid)
	if err != nil && !errors.Is(err, wifi.ErrNotFound) {
		return fmt.Errorf("failed to get network secret: %w", err)
	}

	security := ""
	if password != "" {
		security = "WPA"
	}
	// Use the advertised security when the network is in range.
	if networks, err := b.Scan(ctx); err == nil {
		for _, n := range networks {
			if n.SSID == ssid {
				security = n.Security
				break
			}
		}
	}

	qr, err := GenerateWifiQRCode(ssid, password, security, hidden)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}
	fmt.Fprintln(w, qr)
	fmt.Fprintf(w, "SSID: %s\n", ssid)
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func runVPNList(ctx context.Context, w io.Writer, format string, m *vpn.Manager) error {
	conns, err := m.List(ctx)
	if err != nil {
		return err
	}
	if conns == nil {
		conns = []vpn.Connection{}
	}
	if ok, err := writeStructured(w, format, conns); ok {
		return err
	}
	rows := make([][]string, 0, len(conns))
	for _, c := range conns {
		rows = append(rows, []string{c.Name, c.Type, yesNo(c.Active), c.UUID})
	}
	return renderTable(w, []string{"NAME", "TYPE", "ACTIVE", "UUID"}, rows)
}

func runVPNSwitch(ctx context.Context, w io.Writer, m *vpn.Manager, uuid string, up bool) error {
	if up {
		if err := m.Activate(ctx, uuid); err != nil {
			return err
		}
		fmt.Fprintf(w, "Activated %s\n", uuid)
		return nil
	}
	if err := m.Deactivate(ctx, uuid); err != nil {
		return err
	}
	fmt.Fprintf(w, "Deactivated %s\n", uuid)
	return nil
}

func runVPNImport(ctx context.Context, w io.Writer, format string, m *vpn.Manager, path string, opts vpn.ImportOptions) error {
	res, err := m.Import(ctx, path, opts)
	if err != nil {
		return err
	}
	if ok, err := writeStructured(w, format, res); ok {
		return err
	}
	fmt.Fprintln(w, strings.TrimSpace(res.Output))
	if res.UUID != "" {
		fmt.Fprintf(w, "Imported %s connection %s\n", res.Type, res.UUID)
	}
	writeSteps(w, res.Steps)
	return nil
}

func runBTStatus(ctx context.Context, w io.Writer, m *bluetooth.Manager) error {
	fmt.Fprintf(w, "Bluetooth: %s\n", onOff(m.Status(ctx)))
	return nil
}

func runBTPower(ctx context.Context, w io.Writer, m *bluetooth.Manager, state string) error {
	if state != "on" && state != "off" {
		return fmt.Errorf("%w: power state must be on or off, got %q", errUsage, state)
	}
	if err := m.SetPowered(ctx, state == "on"); err != nil {
		return err
	}
	fmt.Fprintf(w, "Bluetooth: %s\n", state)
	return nil
}

// runBTScan discovers devices for d, then lists them.
func runBTScan(ctx context.Context, w io.Writer, format string, m *bluetooth.Manager, d time.Duration) error {
	disc, err := m.StartScan(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.StopScan(context.WithoutCancel(ctx)); err != nil {
			m.Logger.Warn("failed to stop discovery", "error", err)
		}
	}()

	select {
	case <-time.After(d):
	case <-ctx.Done():
		return ctx.Err()
	}
	if format == FormatText {
		fmt.Fprintf(w, "Discovery started %s\n", formatDuration(disc.Started))
	}
	return runBTDevices(ctx, w, format, m)
}

func runBTDevices(ctx context.Context, w io.Writer, format string, m *bluetooth.Manager) error {
	devices, err := m.Devices(ctx)
	if err != nil {
		return err
	}
	if devices == nil {
		devices = []bluetooth.Device{}
	}
	if ok, err := writeStructured(w, format, devices); ok {
		return err
	}
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []string{d.Name, d.MAC, yesNo(d.Paired), yesNo(d.Connected)})
	}
	return renderTable(w, []string{"NAME", "ADDRESS", "PAIRED", "CONNECTED"}, rows)
}

func runBTConnect(ctx context.Context, w io.Writer, m *bluetooth.Manager, mac string) error {
	msg, err := m.Connect(ctx, mac)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, msg)
	return nil
}

func runPkgList(ctx context.Context, w io.Writer, format string, m *packages.Manager) error {
	pkgs, err := m.Installed(ctx)
	if err != nil {
		return err
	}
	if pkgs == nil {
		pkgs = []packages.Package{}
	}
	if ok, err := writeStructured(w, format, pkgs); ok {
		return err
	}
	for _, p := range pkgs {
		fmt.Fprintf(w, "%s %s\n", p.Name, styled(CurrentTheme.Subtle, p.Version))
	}
	return nil
}

func runPkgUpdates(ctx context.Context, w io.Writer, format string, m *packages.Manager) error {
	updates, err := m.Updates(ctx)
	if err != nil {
		return err
	}
	if updates == nil {
		updates = []packages.Update{}
	}
	if ok, err := writeStructured(w, format, updates); ok {
		return err
	}
	if len(updates) == 0 {
		fmt.Fprintln(w, "System is up to date")
		return nil
	}
	rows := make([][]string, 0, len(updates))
	for _, u := range updates {
		rows = append(rows, []string{u.Name, u.OldVersion, styled(CurrentTheme.Success, u.NewVersion)})
	}
	return renderTable(w, []string{"PACKAGE", "INSTALLED", "AVAILABLE"}, rows)
}

func runPkgOwner(ctx context.Context, w io.Writer, m *packages.Manager, path string) error {
	owner, err := m.Owner(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, owner)
	return nil
}

func runPkgUninstall(ctx context.Context, w io.Writer, m *packages.Manager, target string) error {
	// A desktop file is removed with the package that owns it.
	if strings.HasSuffix(target, ".desktop") {
		if err := m.UninstallApp(ctx, target); err != nil {
			return err
		}
	} else if err := m.Uninstall(ctx, target); err != nil {
		return err
	}
	fmt.Fprintf(w, "Opened a terminal to uninstall %s\n", target)
	return nil
}

func runPkgUpdate(ctx context.Context, w io.Writer, m *packages.Manager) error {
	if err := m.UpdateSystem(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "Opened a terminal to update the system")
	return nil
}

func runApps(w io.Writer, format string, dirs []string, logger *slog.Logger) error {
	list := apps.List(dirs, logger)
	if list == nil {
		list = []apps.App{}
	}
	if ok, err := writeStructured(w, format, list); ok {
		return err
	}
	rows := make([][]string, 0, len(list))
	for _, a := range list {
		rows = append(rows, []string{a.Name, a.Description, a.DesktopFile})
	}
	return renderTable(w, []string{"NAME", "DESCRIPTION", "DESKTOP FILE"}, rows)
}

func runSysinfo(ctx context.Context, w io.Writer, format string, c *sysinfo.Collector) error {
	info := c.Collect(ctx)
	if ok, err := writeStructured(w, format, info); ok {
		return err
	}
	return renderFields(w, [][2]string{
		{"Hostname", info.Hostname},
		{"OS", info.OSName},
		{"Kernel", info.KernelVersion},
		{"CPU", info.CPUModel},
		{"Memory", info.MemoryTotal},
		{"GPU", info.GPUInfo},
		{"Disk", fmt.Sprintf("%s / %s (%d%%)", info.DiskUsed, info.DiskTotal, info.DiskPercent)},
		{"Color scheme", c.ColorScheme(ctx)},
	})
}

func runDisplays(ctx context.Context, w io.Writer, format string, h *hypr.Manager, save bool) error {
	monitors, err := h.Monitors(ctx)
	if err != nil {
		return err
	}
	if save {
		if err := h.SaveMonitors(monitors); err != nil {
			return err
		}
		fmt.Fprintf(w, "Saved %d monitors to %s\n", len(monitors), h.MonitorsPath())
		return nil
	}
	if ok, err := writeStructured(w, format, monitors); ok {
		return err
	}
	rows := make([][]string, 0, len(monitors))
	for _, m := range monitors {
		rows = append(rows, []string{
			m.Name,
			m.Model,
			fmt.Sprintf("%dx%d@%.2f", m.Width, m.Height, m.RefreshRate),
			fmt.Sprintf("%d,%d", m.X, m.Y),
			strconv.FormatFloat(m.Scale, 'f', -1, 64),
			yesNo(m.Enabled),
		})
	}
	return renderTable(w, []string{"NAME", "MODEL", "MODE", "POSITION", "SCALE", "ENABLED"}, rows)
}

// runStartup lists the startup commands, or replaces them when commands is
// non-nil.
func runStartup(w io.Writer, format string, h *hypr.Manager, commands []string) error {
	if commands != nil {
		if err := h.SaveStartupCommands(commands); err != nil {
			return err
		}
		fmt.Fprintf(w, "Saved %d startup commands\n", len(commands))
		return nil
	}
	cmds, err := h.StartupCommands()
	if err != nil {
		return err
	}
	if ok, err := writeStructured(w, format, cmds); ok {
		return err
	}
	for _, c := range cmds {
		fmt.Fprintln(w, c)
	}
	return nil
}

// runEnv lists the session environment variables, or replaces them with
// KEY=VALUE assignments when assignments is non-nil.
func runEnv(w io.Writer, format string, h *hypr.Manager, assignments []string) error {
	if assignments != nil {
		vars := make([]hypr.EnvVar, 0, len(assignments))
		for _, a := range assignments {
			key, value, ok := strings.Cut(a, "=")
			if !ok {
				return fmt.Errorf("%w: %q is not KEY=VALUE", errUsage, a)
			}
			vars = append(vars, hypr.EnvVar{Key: key, Value: value})
		}
		if err := h.SaveEnvVars(vars); err != nil {
			return err
		}
		fmt.Fprintf(w, "Saved %d environment variables\n", len(vars))
		return nil
	}
	vars, err := h.EnvVars()
	if err != nil {
		return err
	}
	if ok, err := writeStructured(w, format, vars); ok {
		return err
	}
	for _, v := range vars {
		fmt.Fprintf(w, "%s=%s\n", v.Key, v.Value)
	}
	return nil
}

func runKeybinds(w io.Writer, format string, h *hypr.Manager) error {
	binds, err := h.Keybinds()
	if err != nil {
		return err
	}
	if ok, err := writeStructured(w, format, binds); ok {
		return err
	}
	rows := make([][]string, 0, len(binds))
	for _, kb := range binds {
		rows = append(rows, []string{kb.BindType, kb.Modifiers, kb.Key, kb.Dispatcher, kb.Args})
	}
	return renderTable(w, []string{"TYPE", "MODIFIERS", "KEY", "DISPATCHER", "ARGS"}, rows)
}

func runWallpaper(ctx context.Context, w io.Writer, h *hypr.Manager, path string) error {
	if path == "" {
		fmt.Fprintln(w, h.WallpaperPath())
		return nil
	}
	if err := h.SetWallpaper(ctx, path); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wallpaper set from %s\n", path)
	return nil
}

func runWaybar(ctx context.Context, w io.Writer, h *hypr.Manager, position string) error {
	if position == "" {
		pos, err := h.WaybarPosition()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, pos)
		return nil
	}
	msg, err := h.SetWaybarPosition(ctx, position)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, msg)
	return nil
}

func runKitty(ctx context.Context, w io.Writer, h *hypr.Manager, theme string) error {
	msg, err := h.SetKittyTheme(ctx, theme)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, msg)
	return nil
}

func runAppearanceShow(ctx context.Context, w io.Writer, format string, m *appearance.Manager) error {
	st := m.Current(ctx)
	if ok, err := writeStructured(w, format, st); ok {
		return err
	}
	return renderFields(w, [][2]string{
		{"GTK theme", st.GTKTheme},
		{"Color scheme", st.ColorScheme},
		{"Cursor theme", st.CursorTheme},
		{"Cursor size", strconv.Itoa(st.CursorSize)},
	})
}

func runAppearanceThemes(w io.Writer, format string, m *appearance.Manager) error {
	cursors, err := m.CursorThemes()
	if err != nil {
		return err
	}
	gtk, err := m.GTKThemes()
	if err != nil {
		return err
	}
	themes := struct {
		Cursor []appearance.Theme `json:"cursor" yaml:"cursor"`
		GTK    []appearance.Theme `json:"gtk" yaml:"gtk"`
	}{cursors, gtk}
	if ok, err := writeStructured(w, format, themes); ok {
		return err
	}
	rows := make([][]string, 0, len(cursors)+len(gtk))
	for _, t := range cursors {
		rows = append(rows, []string{"cursor", t.Name, t.Path})
	}
	for _, t := range gtk {
		rows = append(rows, []string{"gtk", t.Name, t.Path})
	}
	return renderTable(w, []string{"KIND", "NAME", "PATH"}, rows)
}

func runAppearanceApply(ctx context.Context, w io.Writer, m *appearance.Manager, req appearance.Request) error {
	steps, err := m.Apply(ctx, req)
	writeSteps(w, steps)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Applied %s with %s cursors\n", req.GTKTheme, req.CursorTheme)
	return nil
}

func runSettingsShow(w io.Writer, format string, s *config.SettingsStore) error {
	st := s.Load()
	if ok, err := writeStructured(w, format, st); ok {
		return err
	}
	return renderFields(w, [][2]string{
		{"Theme", st.Theme},
		{"Waybar position", st.WaybarPosition},
	})
}

// runSettingsSet saves the settings, keeping any value left empty.
func runSettingsSet(ctx context.Context, w io.Writer, s *config.SettingsStore, theme, position string) error {
	st := s.Load()
	if theme != "" {
		if theme != config.ThemeLight && theme != config.ThemeDark {
			return fmt.Errorf("%w: theme must be %s or %s", errUsage, config.ThemeLight, config.ThemeDark)
		}
		st.Theme = theme
	}
	if position != "" {
		st.WaybarPosition = position
	}
	steps, err := s.Save(ctx, st)
	writeSteps(w, steps)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Saved settings to %s\n", s.Path)
	return nil
}

// runCall invokes a dispatch command by name and prints its JSON result.
// Without a command it lists them all.
func runCall(ctx context.Context, w io.Writer, srv *server.Server, command, params string) error {
	if command == "" {
		for _, name := range srv.Commands() {
			fmt.Fprintln(w, name)
		}
		return nil
	}
	var raw json.RawMessage
	if params != "" {
		raw = json.RawMessage(params)
	}
	result, err := srv.Invoke(ctx, command, raw)
	if err != nil {
		return err
	}
	_, err = writeStructured(w, FormatJSON, result)
	return err
}
