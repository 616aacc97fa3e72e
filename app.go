package main

import (
	"log/slog"
	"path/filepath"

	"github.com/i4arch/i4settings/bluetooth"
	"github.com/i4arch/i4settings/internal/appearance"
	"github.com/i4arch/i4settings/internal/apps"
	"github.com/i4arch/i4settings/internal/config"
	"github.com/i4arch/i4settings/internal/hypr"
	"github.com/i4arch/i4settings/internal/packages"
	"github.com/i4arch/i4settings/internal/runner"
	"github.com/i4arch/i4settings/internal/server"
	"github.com/i4arch/i4settings/internal/sysinfo"
	"github.com/i4arch/i4settings/internal/terminal"
	"github.com/i4arch/i4settings/vpn"
	"github.com/i4arch/i4settings/wifi"
)

// app holds the managers every subcommand works with.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	wifi       wifi.Backend
	vpn        *vpn.Manager
	packages   *packages.Manager
	sysinfo    *sysinfo.Collector
	hypr       *hypr.Manager
	appearance *appearance.Manager
	settings   *config.SettingsStore
	appDirs    []string

	// bt is connected on first use, so commands that do not need the
	// system bus never open it.
	bt    *bluetooth.Manager
	bluez *bluetooth.BlueZ
}

func newApp(cfg config.Config, r runner.Runner, logger *slog.Logger) (*app, error) {
	b, err := GetBackend(cfg, r, logger)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:        cfg,
		logger:     logger,
		wifi:       b,
		vpn:        vpn.New(r, logger),
		packages:   packages.New(r, terminal.New(cfg.Terminals, logger), logger),
		sysinfo:    sysinfo.New(r, logger),
		hypr:       hypr.New(r, cfg.Paths, logger),
		appearance: appearance.New(r, cfg.Paths, logger),
		settings:   config.NewSettingsStore(cfg.Paths.Settings, r, logger),
		appDirs:    apps.Dirs(),
	}, nil
}

// bluetooth returns the Bluetooth manager. Without a reachable BlueZ it
// manages no adapter, and every operation reports bluetooth.ErrNoAdapter.
func (a *app) bluetooth() *bluetooth.Manager {
	if a.bt != nil {
		return a.bt
	}
	bz, err := bluetooth.NewBlueZ()
	if err != nil {
		a.logger.Warn("bluetooth unavailable", "error", err)
		a.bt = bluetooth.New(nil, a.logger)
		return a.bt
	}
	a.bluez = bz
	a.bt = bluetooth.New(bz, a.logger)
	return a.bt
}

func (a *app) services() server.Services {
	return server.Services{
		WiFi:       a.wifi,
		VPN:        a.vpn,
		Bluetooth:  a.bluetooth(),
		Packages:   a.packages,
		AppDirs:    a.appDirs,
		SysInfo:    a.sysinfo,
		Hypr:       a.hypr,
		Appearance: a.appearance,
		Settings:   a.settings,
	}
}

// watchFiles are the files whose changes are pushed to clients.
func (a *app) watchFiles() []string {
	return []string{
		a.settings.Path,
		a.hypr.MonitorsPath(),
		a.hypr.StartupPath(),
		a.hypr.EnvPath(),
		a.hypr.KeybindsPath(),
		filepath.Join(a.hypr.WaybarDir, "config.jsonc"),
		a.appearance.ThemeConfPath(),
	}
}

func (a *app) Close() error {
	if a.bluez != nil {
		return a.bluez.Close()
	}
	return nil
}
