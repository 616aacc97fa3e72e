package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/i4arch/i4settings/internal/appearance"
	"github.com/i4arch/i4settings/internal/apps"
	"github.com/i4arch/i4settings/internal/config"
	"github.com/i4arch/i4settings/internal/hypr"
	"github.com/i4arch/i4settings/vpn"
	"github.com/i4arch/i4settings/wifi"
)

// handle adapts a typed operation to a Command.
func handle[P any](fn func(ctx context.Context, p P) (any, error)) Command {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		p, err := decode[P](params)
		if err != nil {
			return nil, err
		}
		return fn(ctx, p)
	}
}

// noParams adapts an operation that takes no parameters.
func noParams(fn func(ctx context.Context) (any, error)) Command {
	return func(ctx context.Context, _ json.RawMessage) (any, error) {
		return fn(ctx)
	}
}

type (
	ssidParams struct {
		SSID string `json:"ssid"`
	}
	enableParams struct {
		Enable bool `json:"enable"`
	}
	connectWifiParams struct {
		SSID     string `json:"ssid"`
		Password string `json:"password"`
	}
	wifiConfigParams struct {
		SSID   string      `json:"ssid"`
		Config wifi.Config `json:"config"`
	}
	scheduleParams struct {
		Interval string `json:"interval"`
	}
	uuidParams struct {
		UUID string `json:"uuid"`
	}
	importParams struct {
		FilePath string `json:"file_path"`
		VPNType  string `json:"vpn_type"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	macParams struct {
		MAC string `json:"mac"`
	}
	nameParams struct {
		Name string `json:"name"`
	}
	pathParams struct {
		Path string `json:"path"`
	}
	fullPathParams struct {
		FullPath string `json:"full_path"`
	}
	appNameParams struct {
		AppName string `json:"app_name"`
	}
	filePathParams struct {
		FilePath string `json:"file_path"`
	}
	positionParams struct {
		Position string `json:"position"`
	}
	themeParams struct {
		Theme string `json:"theme"`
	}
	monitorsParams struct {
		Monitors []hypr.Monitor `json:"monitors"`
	}
	commandsParams struct {
		Commands []string `json:"commands"`
	}
	envVarsParams struct {
		Vars []hypr.EnvVar `json:"vars"`
	}
	// keybindsParams accepts the list at the top level or wrapped in "args".
	keybindsParams struct {
		Keybinds []hypr.Keybind `json:"keybinds"`
		Args     *struct {
			Keybinds []hypr.Keybind `json:"keybinds"`
		} `json:"args"`
	}
	settingsParams struct {
		Settings config.Settings `json:"settings"`
	}
)

func (s *Server) commandTable() map[string]Command {
	svc := s.svc
	return map[string]Command{
		// Wi-Fi
		"get_wifi_status": noParams(func(ctx context.Context) (any, error) {
			on, err := svc.WiFi.IsWirelessEnabled(ctx)
			if err != nil {
				s.logger.Debug("wifi status unavailable", "error", err)
				return false, nil
			}
			return on, nil
		}),
		"toggle_wifi": handle(func(ctx context.Context, p enableParams) (any, error) {
			return nil, svc.WiFi.SetWireless(ctx, p.Enable)
		}),
		"scan_wifi": noParams(func(ctx context.Context) (any, error) {
			networks, err := svc.WiFi.Scan(ctx)
			if err != nil {
				return nil, err
			}
			if networks == nil {
				networks = []wifi.Network{}
			}
			return networks, nil
		}),
		"connect_wifi": handle(func(ctx context.Context, p connectWifiParams) (any, error) {
			if err := required("ssid", p.SSID); err != nil {
				return nil, err
			}
			if err := svc.WiFi.Connect(ctx, p.SSID, p.Password); err != nil {
				return nil, err
			}
			return "Connected successfully", nil
		}),
		"get_wifi_config": handle(func(ctx context.Context, p ssidParams) (any, error) {
			if err := required("ssid", p.SSID); err != nil {
				return nil, err
			}
			return svc.WiFi.Profile(ctx, p.SSID)
		}),
		"set_wifi_config": handle(func(ctx context.Context, p wifiConfigParams) (any, error) {
			if err := required("ssid", p.SSID); err != nil {
				return nil, err
			}
			return nil, svc.WiFi.ApplyProfile(ctx, p.SSID, p.Config)
		}),
		"get_wifi_password": handle(func(ctx context.Context, p ssidParams) (any, error) {
			if err := required("ssid", p.SSID); err != nil {
				return nil, err
			}
			return svc.WiFi.Secret(ctx, p.SSID)
		}),
		"get_scan_schedule": noParams(func(ctx context.Context) (any, error) {
			return s.Schedule.Interval().String(), nil
		}),
		"set_scan_schedule": handle(func(ctx context.Context, p scheduleParams) (any, error) {
			interval := time.Duration(ScanOff)
			if p.Interval != "" && p.Interval != "off" {
				d, err := time.ParseDuration(p.Interval)
				if err != nil {
					return nil, err
				}
				interval = d
			}
			s.Schedule.SetSchedule(interval)
			return s.Schedule.Interval().String(), nil
		}),

		// VPN
		"get_vpn_connections": noParams(func(ctx context.Context) (any, error) {
			conns, err := svc.VPN.List(ctx)
			if err != nil {
				return nil, err
			}
			if conns == nil {
				conns = []vpn.Connection{}
			}
			return conns, nil
		}),
		"connect_vpn": handle(func(ctx context.Context, p uuidParams) (any, error) {
			if err := required("uuid", p.UUID); err != nil {
				return nil, err
			}
			return nil, svc.VPN.Activate(ctx, p.UUID)
		}),
		"disconnect_vpn": handle(func(ctx context.Context, p uuidParams) (any, error) {
			if err := required("uuid", p.UUID); err != nil {
				return nil, err
			}
			return nil, svc.VPN.Deactivate(ctx, p.UUID)
		}),
		"import_vpn": handle(func(ctx context.Context, p importParams) (any, error) {
			if err := required("file_path", p.FilePath); err != nil {
				return nil, err
			}
			return svc.VPN.Import(ctx, p.FilePath, vpn.ImportOptions{
				Type:     p.VPNType,
				Username: p.Username,
				Password: p.Password,
			})
		}),

		// Bluetooth
		"get_bluetooth_status": noParams(func(ctx context.Context) (any, error) {
			return svc.Bluetooth.Status(ctx), nil
		}),
		"toggle_bluetooth": handle(func(ctx context.Context, p enableParams) (any, error) {
			return nil, svc.Bluetooth.SetPowered(ctx, p.Enable)
		}),
		"start_scan": noParams(func(ctx context.Context) (any, error) {
			// The discovery outlives the request that started it.
			_, err := svc.Bluetooth.StartScan(context.WithoutCancel(ctx))
			return nil, err
		}),
		"stop_scan": noParams(func(ctx context.Context) (any, error) {
			return nil, svc.Bluetooth.StopScan(ctx)
		}),
		"get_bluetooth_devices": noParams(func(ctx context.Context) (any, error) {
			return svc.Bluetooth.Devices(ctx)
		}),
		"connect_bluetooth": handle(func(ctx context.Context, p macParams) (any, error) {
			return svc.Bluetooth.Connect(ctx, p.MAC)
		}),

		// Packages and applications
		"check_updates": noParams(func(ctx context.Context) (any, error) {
			return svc.Packages.Updates(ctx)
		}),
		"update_system": noParams(func(ctx context.Context) (any, error) {
			return nil, svc.Packages.UpdateSystem(ctx)
		}),
		"get_installed_packages": noParams(func(ctx context.Context) (any, error) {
			return svc.Packages.Installed(ctx)
		}),
		"get_package_owner": handle(func(ctx context.Context, p pathParams) (any, error) {
			if err := required("path", p.Path); err != nil {
				return nil, err
			}
			return svc.Packages.Owner(ctx, p.Path)
		}),
		"uninstall_package": handle(func(ctx context.Context, p nameParams) (any, error) {
			return nil, svc.Packages.Uninstall(ctx, p.Name)
		}),
		"uninstall_app": handle(func(ctx context.Context, p fullPathParams) (any, error) {
			if err := required("full_path", p.FullPath); err != nil {
				return nil, err
			}
			return nil, svc.Packages.UninstallApp(ctx, p.FullPath)
		}),
		"get_installed_apps": noParams(func(ctx context.Context) (any, error) {
			list := apps.List(svc.AppDirs, s.logger)
			if list == nil {
				list = []apps.App{}
			}
			return list, nil
		}),

		// System
		"get_system_info": noParams(func(ctx context.Context) (any, error) {
			return svc.SysInfo.Collect(ctx), nil
		}),
		"get_gtk_theme": noParams(func(ctx context.Context) (any, error) {
			return svc.SysInfo.ColorScheme(ctx), nil
		}),
		"check_app_installed": handle(func(ctx context.Context, p appNameParams) (any, error) {
			return svc.SysInfo.AppInstalled(p.AppName), nil
		}),

		// Hyprland
		"get_displays": noParams(func(ctx context.Context) (any, error) {
			return svc.Hypr.Monitors(ctx)
		}),
		"save_displays": handle(func(ctx context.Context, p monitorsParams) (any, error) {
			return nil, svc.Hypr.SaveMonitors(p.Monitors)
		}),
		"get_startup_commands": noParams(func(ctx context.Context) (any, error) {
			return svc.Hypr.StartupCommands()
		}),
		"save_startup_commands": handle(func(ctx context.Context, p commandsParams) (any, error) {
			return nil, svc.Hypr.SaveStartupCommands(p.Commands)
		}),
		"get_env_vars": noParams(func(ctx context.Context) (any, error) {
			return svc.Hypr.EnvVars()
		}),
		"save_env_vars": handle(func(ctx context.Context, p envVarsParams) (any, error) {
			return nil, svc.Hypr.SaveEnvVars(p.Vars)
		}),
		"get_keybinds": noParams(func(ctx context.Context) (any, error) {
			return svc.Hypr.Keybinds()
		}),
		"save_keybinds": handle(func(ctx context.Context, p keybindsParams) (any, error) {
			binds := p.Keybinds
			if p.Args != nil {
				binds = append(binds, p.Args.Keybinds...)
			}
			return nil, svc.Hypr.SaveKeybinds(binds)
		}),
		"set_wallpaper": handle(func(ctx context.Context, p filePathParams) (any, error) {
			return nil, svc.Hypr.SetWallpaper(ctx, p.FilePath)
		}),
		"get_current_wallpaper_path": noParams(func(ctx context.Context) (any, error) {
			return svc.Hypr.WallpaperPath(), nil
		}),
		"get_wallpaper_base64": noParams(func(ctx context.Context) (any, error) {
			return svc.Hypr.WallpaperBase64()
		}),
		"get_waybar_position": noParams(func(ctx context.Context) (any, error) {
			return svc.Hypr.WaybarPosition()
		}),
		"set_waybar_position": handle(func(ctx context.Context, p positionParams) (any, error) {
			return svc.Hypr.SetWaybarPosition(ctx, p.Position)
		}),
		"set_kitty_theme": handle(func(ctx context.Context, p themeParams) (any, error) {
			return svc.Hypr.SetKittyTheme(ctx, p.Theme)
		}),

		// Appearance
		"get_cursor_themes": noParams(func(ctx context.Context) (any, error) {
			return svc.Appearance.CursorThemes()
		}),
		"get_gtk_themes_list": noParams(func(ctx context.Context) (any, error) {
			return svc.Appearance.GTKThemes()
		}),
		"apply_appearance_conf": handle(func(ctx context.Context, p appearance.Request) (any, error) {
			return svc.Appearance.Apply(ctx, p)
		}),
		"get_current_appearance_config": noParams(func(ctx context.Context) (any, error) {
			return svc.Appearance.Current(ctx), nil
		}),

		// App settings
		"get_app_settings": noParams(func(ctx context.Context) (any, error) {
			return svc.Settings.Load(), nil
		}),
		"save_app_settings": handle(func(ctx context.Context, p settingsParams) (any, error) {
			return svc.Settings.Save(ctx, p.Settings)
		}),
	}
}
