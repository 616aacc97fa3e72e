package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/i4arch/i4settings/internal/appearance"
	"github.com/i4arch/i4settings/internal/config"
	ilog "github.com/i4arch/i4settings/internal/log"
	"github.com/i4arch/i4settings/internal/runner"
	"github.com/i4arch/i4settings/internal/server"
	"github.com/i4arch/i4settings/vpn"
	"github.com/i4arch/i4settings/wifi"
)

var (
	// Version is the version of the application. It is set at build time.
	Version string = "dev"
)

const envPrefix = "I4SETTINGS"

// main is the entry point of the application
func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		rootFlagSet = flag.NewFlagSet("i4settings", flag.ContinueOnError)
		configPath  = rootFlagSet.String("config", config.DefaultPath(), "path to config toml file")
		backend     = rootFlagSet.String("backend", "", "wifi backend: nmcli, dbus or mock (default from config)")
		debug       = rootFlagSet.Bool("debug", false, "log debug messages")
		theme       = rootFlagSet.String("theme", "", "path to theme toml file")
		version     = rootFlagSet.Bool("version", false, "display version")
	)

	// a is built after flags are parsed, before any Exec runs.
	var a *app
	var logs *ilog.Handler

	root := &ffcli.Command{
		Name:       "i4settings",
		ShortUsage: "i4settings [flags] <subcommand> [args...]",
		FlagSet:    rootFlagSet,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
	}
	root.Subcommands = []*ffcli.Command{
		serveCommand(&a, &logs),
		callCommand(&a),
		wifiCommand(&a),
		vpnCommand(&a),
		bluetoothCommand(&a),
		packagesCommand(&a),
		appsCommand(&a),
		sysinfoCommand(&a),
		displayCommand(&a),
		startupCommand(&a),
		envCommand(&a),
		keybindsCommand(&a),
		wallpaperCommand(&a),
		waybarCommand(&a),
		kittyCommand(&a),
		appearanceCommand(&a),
		settingsCommand(&a),
	}

	if err := root.Parse(args); err != nil {
		return err
	}
	if *version {
		fmt.Println(Version)
		return nil
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logs = ilog.Init(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger := slog.Default()

	cfg, err := config.Load(*configPath, logger)
	if err != nil {
		return err
	}
	if *backend != "" {
		cfg.Backend = *backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	themePath := cfg.Theme
	if *theme != "" {
		themePath = *theme
	}
	if err := LoadTheme(themePath); err != nil {
		return fmt.Errorf("error loading theme: %w", err)
	}

	a, err = newApp(cfg, runner.New(logger), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	err = root.Run(context.Background())
	if errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(os.Stderr, ffcli.DefaultUsageFunc(root))
	}
	return err
}

// newFlagSet returns a flag set for a subcommand, with -json and -yaml if
// output is true.
func newFlagSet(name string, output bool) (*flag.FlagSet, outputFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var out outputFlags
	if output {
		out = addOutputFlags(fs)
	}
	return fs, out
}

func wantArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("%w: %s", errUsage, usage)
	}
	return nil
}

// optionalArg returns the single argument, or "" if there is none.
func optionalArg(args []string, usage string) (string, error) {
	switch len(args) {
	case 0:
		return "", nil
	case 1:
		return args[0], nil
	}
	return "", fmt.Errorf("%w: %s", errUsage, usage)
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func serveCommand(a **app, logs **ilog.Handler) *ffcli.Command {
	fs, _ := newFlagSet("serve", false)
	listen := fs.String("listen", "", "address to listen on (default from config)")
	interval := fs.Duration("scan-interval", 0, "interval between pushed wifi scans, 0 disables (default from config)")
	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "i4settings serve [-listen addr] [-scan-interval d]",
		ShortHelp:  "Serve the command API over HTTP and WebSocket",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			env := *a
			addr := env.cfg.Listen
			if *listen != "" {
				addr = *listen
			}
			scan := env.cfg.ScanInterval
			if isSet(fs, "scan-interval") {
				scan = *interval
			}

			srv := server.New(env.services(), scan, env.logger)
			srv.Logs = *logs
			srv.Watch = env.watchFiles()

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, addr)
		},
	}
}

func callCommand(a **app) *ffcli.Command {
	fs, _ := newFlagSet("call", false)
	return &ffcli.Command{
		Name:       "call",
		ShortUsage: "i4settings call [command] [json-params]",
		ShortHelp:  "Invoke a server command once and print its result",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) > 2 {
				return fmt.Errorf("%w: call [command] [json-params]", errUsage)
			}
			var command, params string
			if len(args) > 0 {
				command = args[0]
			}
			if len(args) > 1 {
				params = args[1]
			}
			env := *a
			srv := server.New(env.services(), server.ScanOff, env.logger)
			return runCall(ctx, os.Stdout, srv, command, params)
		},
	}
}

func wifiCommand(a **app) *ffcli.Command {
	listFS, listOut := newFlagSet("list", true)
	list := &ffcli.Command{
		Name:      "list",
		ShortHelp: "List wifi networks",
		FlagSet:   listFS,
		Exec: func(ctx context.Context, args []string) error {
			return runWifiList(ctx, os.Stdout, listOut.format(), (*a).wifi)
		},
	}

	configFS, configOut := newFlagSet("config", true)
	cfg := &ffcli.Command{
		Name:       "config",
		ShortUsage: "i4settings wifi config <ssid>",
		ShortHelp:  "Show the IPv4 configuration of a network",
		FlagSet:    configFS,
		Exec: func(ctx context.Context, args []string) error {
			if err := wantArgs(args, 1, "config requires an ssid"); err != nil {
				return err
			}
			return runWifiConfig(ctx, os.Stdout, configOut.format(), (*a).wifi, args[0])
		},
	}

	setFS, _ := newFlagSet("set-config", false)
	method := setFS.String("method", wifi.MethodAuto, "ipv4 method (auto, manual)")
	address := setFS.String("address", "", "static address")
	prefix := setFS.Int("prefix", wifi.DefaultPrefix, "prefix length")
	gateway := setFS.String("gateway", "", "gateway")
	dns := setFS.String("dns", "", "comma separated dns servers")
	setCfg := &ffcli.Command{
		Name:       "set-config",
		ShortUsage: "i4settings wifi set-config [flags] <ssid>",
		ShortHelp:  "Apply an IPv4 configuration to a network",
		FlagSet:    setFS,
		Exec: func(ctx context.Context, args []string) error {
			if err := wantArgs(args, 1, "set-config requires an ssid"); err != nil {
				return err
			}
			return runWifiSetConfig(ctx, os.Stdout, (*a).wifi, args[0], wifi.Config{
				Method:    *method,
				IPAddress: *address,
				Prefix:    *prefix,
				Gateway:   *gateway,
				DNS:       *dns,
			})
		},
	}

	connectFS, _ := newFlagSet("connect", false)
	passphrase := connectFS.String("passphrase", "", "passphrase for the network")
	connect := &ffcli.Command{
		Name:       "connect",
		ShortUsage: "i4settings wifi connect [-passphrase p] <ssid>",
		ShortHelp:  "Connect to a wifi network",
		FlagSet:    connectFS,
		Exec: func(ctx context.Context, args []string) error {
			if err := wantArgs(args, 1, "connect requires an ssid"); err != nil {
				return err
			}
			return runWifiConnect(ctx, os.Stdout, (*a).wifi, args[0], *passphrase)
		},
	}

	radioFS, _ := newFlagSet("radio", false)
	radio := &ffcli.Command{
		Name:       "radio",
		ShortUsage: "i4settings wifi radio [on|off]",
		ShortHelp:  "Show or switch the wireless radio",
		FlagSet:    radioFS,
		Exec: func(ctx context.Context, args []string) error {
			state, err := optionalArg(args, "radio [on|off]")
			if err != nil {
				return err
			}
			return runWifiRadio(ctx, os.Stdout, (*a).wifi, state)
		},
	}

	shareFS, _ := newFlagSet("share", false)
	hidden := shareFS.Bool("hidden", false, "network is hidden")
	share := &ffcli.Command{
		Name:       "share",
		ShortUsage: "i4settings wifi share [-hidden] <ssid>",
		ShortHelp:  "Print a QR code joining a known network",
		FlagSet:    shareFS,
		Exec: func(ctx context.Context, args []string) error {
			if err := wantArgs(args, 1, "share requires an ssid"); err != nil {
				return err
			}
			return runWifiShare(ctx, os.Stdout, (*a).wifi, args[0], *hidden)
		},
	}

	return group("wifi", "Manage wifi networks", list, cfg, setCfg, connect, radio, share)
}

func vpnCommand(a **app) *ffcli.Command {
	listFS, listOut := newFlagSet("list", true)
	list := &ffcli.Command{
		Name:      "list",
		ShortHelp: "List VPN connections",
		FlagSet:   listFS,
		Exec: func(ctx context.Context, args []string) error {
			return runVPNList(ctx, os.Stdout, listOut.format(), (*a).vpn)
		},
	}

	switchCmd := func(name string, up bool, help string) *ffcli.Command {
		fs, _ := newFlagSet(name, false)
		return &ffcli.Command{
			Name:       name,
			ShortUsage: "i4settings vpn " + name + " <uuid>",
			ShortHelp:  help,
			FlagSet:    fs,
			Exec: func(ctx context.Context, args []string) error {
				if err := wantArgs(args, 1, name+" requires a connection uuid"); err != nil {
					return err
				}
				return runVPNSwitch(ctx, os.Stdout, (*a).vpn, args[0], up)
			},
		}
	}

	importFS, importOut := newFlagSet("import", true)
	vpnType := importFS.String("type", "", "connection type: openvpn or wireguard (default from file extension)")
	username := importFS.String("username", "", "username to store on the connection")
	password := importFS.String("password", "", "password to store on the connection")
	imp := &ffcli.Command{
		Name:       "import",
		ShortUsage: "i4settings vpn import [flags] <file>",
		ShortHelp:  "Import a VPN configuration file",
		FlagSet:    importFS,
		Exec: func(ctx context.Context, args []string) error {
			if err := wantArgs(args, 1, "import requires a file"); err != nil {
				return err
			}
			return runVPNImport(ctx, os.Stdout, importOut.format(), (*a).vpn, args[0], vpn.ImportOptions{
				Type:     *vpnType,
				Username: *username,
				Password: *password,
			})
		},
	}

	return group("vpn", "Manage VPN connections",
		list,
		switchCmd("up", true, "Activate a VPN connection"),
		switchCmd("down", false, "Deactivate a VPN connection"),
		imp,
	)
}

func bluetoothCommand(a **app) *ffcli.Command {
	statusFS, _ := newFlagSet("status", false)
	status := &ffcli.Command{
		Name:      "status",
		ShortHelp: "Show whether the adapter is powered",
		FlagSet:   statusFS,
		Exec: func(ctx context.Context, args []string) error {
			return runBTStatus(ctx, os.Stdout, (*a).bluetooth())
		},
	}

	powerFS, _ := newFlagSet("power", false)
	power := &ffcli.Command{
		Name:       "power",
		ShortUsage: "i4settings bt power on|off",
		ShortHelp:  "Power the adapter on or off",
		FlagSet:    powerFS,
		Exec: func(ctx context.Context, args []string) error {
			if err := wantArgs(args, 1, "power requires on or off"); err != nil {
				return err
			}
			return runBTPower(ctx, os.Stdout, (*a).bluetooth(), args[0])
		},
	}

	scanFS, scanOut := newFlagSet("scan", true)
	duration := scanFS.Duration("duration", 10*time.Second, "how long to discover devices")
	scan := &ffcli.Command{
		Name:      "scan",
		ShortHelp: "Discover devices, then list them",
		FlagSet:   scanFS,
		Exec: func(ctx context.Context, args []string) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()
			return runBTScan(ctx, os.Stdout, scanOut.format(), (*a).bluetooth(), *duration)
		},
	}

	devicesFS, devicesOut := newFlagSet("devices", true)
	devices := &ffcli.Command{
		Name:      "devices",
		ShortHelp: "List known devices",
		FlagSet:   devicesFS,
		Exec: func(ctx context.Context, args []string) error {
			return runBTDevices(ctx, os.Stdout, devicesOut.format(), (*a).bluetooth())
		},
	}

	connectFS, _ := newFlagSet("connect", false)
	connect := &ffcli.Command{
		Name:       "connect",
		ShortUsage: "i4settings bt connect <mac>",
		ShortHelp:  "Connect to a device",
		FlagSet:    connectFS,
		Exec: func(ctx context.Context, args []string) error {
			if err := wantArgs(args, 1, "connect requires a device address"); err != nil {
				return err
			}
			return runBTConnect(ctx, os.Stdout, (*a).bluetooth(), args[0])
		},
	}

	return group("bt", "Manage bluetooth devices", status, power, scan, devices, connect)
}

func packagesCommand(a **app) *ffcli.Command {
	listFS, listOut := newFlagSet("list", true)
	list := &ffcli.Command{
		Name:      "list",
		ShortHelp: "List installed packages",
		FlagSet:   listFS,
		Exec: func(ctx context.Context, args []string) error {
			return runPkgList(ctx, os.Stdout, listOut.format(), (*a).packages)
		},
	}

	updatesFS, updatesOut := newFlagSet("updates", true)
	updates := &ffcli.Command{
		Name:      "updates",
		ShortHelp: "List pending updates",
		FlagSet:   updatesFS,
		Exec: func(ctx context.Context, args []string) error {
			return runPkgUpdates(ctx, os.Stdout, updatesOut.format(), (*a).packages)
		},
	}

	ownerFS, _ := newFlagSet("owner", false)
	owner := &ffcli.Command{
		Name:       "owner",
		ShortUsage: "i4settings pkg owner <path>",
		ShortHelp:  "Print the package owning a file",
		FlagSet:    ownerFS,
		Exec: func(ctx context.Context, args []string) error {
			if err := wantArgs(args, 1, "owner requires a path"); err != nil {
				return err
			}
			return runPkgOwner(ctx, os.Stdout, (*a).packages, args[0])
		},
	}

	uninstallFS, _ := newFlagSet("uninstall", false)
	uninstall := &ffcli.Command{
		Name:       "uninstall",
		ShortUsage: "i4settings pkg uninstall <package|desktop-file>",
		ShortHelp:  "Uninstall a package in a terminal",
		FlagSet:    uninstallFS,
		Exec: func(ctx context.Context, args []string) error {
			if err := wantArgs(args, 1, "uninstall requires a package name or desktop file"); err != nil {
				return err
			}
			return runPkgUninstall(ctx, os.Stdout, (*a).packages, args[0])
		},
	}

	updateFS, _ := newFlagSet("update", false)
	update := &ffcli.Command{
		Name:      "update",
		ShortHelp: "Update the system in a terminal",
		FlagSet:   updateFS,
		Exec: func(ctx context.Context, args []string) error {
			return runPkgUpdate(ctx, os.Stdout, (*a).packages)
		},
	}

	return group("pkg", "Manage packages", list, updates, owner, uninstall, update)
}

func appsCommand(a **app) *ffcli.Command {
	fs, out := newFlagSet("apps", true)
	return &ffcli.Command{
		Name:      "apps",
		ShortHelp: "List installed desktop applications",
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return runApps(os.Stdout, out.format(), (*a).appDirs, (*a).logger)
		},
	}
}

func sysinfoCommand(a **app) *ffcli.Command {
	fs, out := newFlagSet("sysinfo", true)
	return &ffcli.Command{
		Name:      "sysinfo",
		ShortHelp: "Show system information",
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return runSysinfo(ctx, os.Stdout, out.format(), (*a).sysinfo)
		},
	}
}

func displayCommand(a **app) *ffcli.Command {
	fs, out := newFlagSet("display", true)
	save := fs.Bool("save", false, "write the current layout to the monitors config")
	return &ffcli.Command{
		Name:      "display",
		ShortHelp: "List monitors, or save their layout",
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return runDisplays(ctx, os.Stdout, out.format(), (*a).hypr, *save)
		},
	}
}

func startupCommand(a **app) *ffcli.Command {
	fs, out := newFlagSet("startup", true)
	set := fs.Bool("set", false, "replace the startup commands with the arguments")
	return &ffcli.Command{
		Name:       "startup",
		ShortUsage: "i4settings startup [-set] [command...]",
		ShortHelp:  "List or replace the commands run at session start",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			var commands []string
			if *set {
				commands = append([]string{}, args...)
			}
			return runStartup(os.Stdout, out.format(), (*a).hypr, commands)
		},
	}
}

func envCommand(a **app) *ffcli.Command {
	fs, out := newFlagSet("env", true)
	set := fs.Bool("set", false, "replace the environment variables with the KEY=VALUE arguments")
	return &ffcli.Command{
		Name:       "env",
		ShortUsage: "i4settings env [-set] [KEY=VALUE...]",
		ShortHelp:  "List or replace the session environment variables",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			var assignments []string
			if *set {
				assignments = append([]string{}, args...)
			}
			return runEnv(os.Stdout, out.format(), (*a).hypr, assignments)
		},
	}
}

func keybindsCommand(a **app) *ffcli.Command {
	fs, out := newFlagSet("keybinds", true)
	return &ffcli.Command{
		Name:       "keybinds",
		ShortUsage: "i4settings keybinds",
		ShortHelp:  "List the Hyprland keybinds",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return runKeybinds(os.Stdout, out.format(), (*a).hypr)
		},
	}
}

func wallpaperCommand(a **app) *ffcli.Command {
	fs, _ := newFlagSet("wallpaper", false)
	return &ffcli.Command{
		Name:       "wallpaper",
		ShortUsage: "i4settings wallpaper [image]",
		ShortHelp:  "Show the wallpaper path, or set a new wallpaper",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			path, err := optionalArg(args, "wallpaper [image]")
			if err != nil {
				return err
			}
			return runWallpaper(ctx, os.Stdout, (*a).hypr, path)
		},
	}
}

func waybarCommand(a **app) *ffcli.Command {
	fs, _ := newFlagSet("waybar", false)
	return &ffcli.Command{
		Name:       "waybar",
		ShortUsage: "i4settings waybar [top|bottom|left|right]",
		ShortHelp:  "Show or change the waybar position",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			pos, err := optionalArg(args, "waybar [position]")
			if err != nil {
				return err
			}
			return runWaybar(ctx, os.Stdout, (*a).hypr, pos)
		},
	}
}

func kittyCommand(a **app) *ffcli.Command {
	fs, _ := newFlagSet("kitty", false)
	return &ffcli.Command{
		Name:       "kitty",
		ShortUsage: "i4settings kitty <theme>",
		ShortHelp:  "Set the kitty terminal theme",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if err := wantArgs(args, 1, "kitty requires a theme"); err != nil {
				return err
			}
			return runKitty(ctx, os.Stdout, (*a).hypr, args[0])
		},
	}
}

func appearanceCommand(a **app) *ffcli.Command {
	showFS, showOut := newFlagSet("show", true)
	show := &ffcli.Command{
		Name:      "show",
		ShortHelp: "Show the current appearance",
		FlagSet:   showFS,
		Exec: func(ctx context.Context, args []string) error {
			return runAppearanceShow(ctx, os.Stdout, showOut.format(), (*a).appearance)
		},
	}

	themesFS, themesOut := newFlagSet("themes", true)
	themes := &ffcli.Command{
		Name:      "themes",
		ShortHelp: "List installed cursor and GTK themes",
		FlagSet:   themesFS,
		Exec: func(ctx context.Context, args []string) error {
			return runAppearanceThemes(os.Stdout, themesOut.format(), (*a).appearance)
		},
	}

	applyFS, _ := newFlagSet("apply", false)
	gtk := applyFS.String("gtk", appearance.DefaultTheme, "GTK theme")
	cursor := applyFS.String("cursor", appearance.DefaultTheme, "cursor theme")
	size := applyFS.Int("cursor-size", appearance.DefaultCursorSize, "cursor size")
	dark := applyFS.Bool("dark", false, "prefer dark color scheme")
	apply := &ffcli.Command{
		Name:      "apply",
		ShortHelp: "Apply GTK, cursor and color scheme settings",
		FlagSet:   applyFS,
		Exec: func(ctx context.Context, args []string) error {
			return runAppearanceApply(ctx, os.Stdout, (*a).appearance, appearance.Request{
				CursorTheme: *cursor,
				CursorSize:  *size,
				GTKTheme:    *gtk,
				DarkMode:    *dark,
			})
		},
	}

	return group("appearance", "Manage themes and cursors", show, themes, apply)
}

func settingsCommand(a **app) *ffcli.Command {
	showFS, showOut := newFlagSet("show", true)
	show := &ffcli.Command{
		Name:      "show",
		ShortHelp: "Show the app settings",
		FlagSet:   showFS,
		Exec: func(ctx context.Context, args []string) error {
			return runSettingsShow(os.Stdout, showOut.format(), (*a).settings)
		},
	}

	setFS, _ := newFlagSet("set", false)
	theme := setFS.String("theme", "", "light or dark")
	position := setFS.String("waybar-position", "", "waybar position to remember")
	set := &ffcli.Command{
		Name:      "set",
		ShortHelp: "Change and save the app settings",
		FlagSet:   setFS,
		Exec: func(ctx context.Context, args []string) error {
			return runSettingsSet(ctx, os.Stdout, (*a).settings, *theme, *position)
		},
	}

	return group("settings", "Manage app settings", show, set)
}

// group is a command that only holds subcommands.
func group(name, help string, subs ...*ffcli.Command) *ffcli.Command {
	fs, _ := newFlagSet(name, false)
	return &ffcli.Command{
		Name:        name,
		ShortUsage:  "i4settings " + name + " <subcommand>",
		ShortHelp:   help,
		FlagSet:     fs,
		Subcommands: subs,
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
	}
}
