// Package nmcli implements wifi.Backend by shelling out to nmcli.
package nmcli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/i4arch/i4settings/internal/runner"
	"github.com/i4arch/i4settings/wifi"
)

const tool = "nmcli"

// Backend implements the wifi.Backend interface on top of the nmcli tool.
type Backend struct {
	Runner runner.Runner
	Logger *slog.Logger
}

// New creates a new nmcli.Backend.
func New(r runner.Runner, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{Runner: r, Logger: logger.With("component", "nmcli")}
}

var _ wifi.Backend = (*Backend)(nil)

func (b *Backend) run(ctx context.Context, args ...string) (*runner.Result, error) {
	return b.Runner.Run(ctx, tool, args...)
}

// Scan lists visible networks. A non-zero exit is tolerated as long as the
// output parses.
func (b *Backend) Scan(ctx context.Context) ([]wifi.Network, error) {
	res, err := b.run(ctx, "-t", "-f", wifi.ScanFields, "dev", "wifi", "list")
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		b.Logger.Debug("scan exited non-zero", "exit", res.ExitCode, "stderr", strings.TrimSpace(string(res.Stderr)))
	}

	networks, skipped := wifi.ParseScan(res.Lines())
	for _, err := range skipped {
		b.Logger.Debug("skipped scan record", "error", err)
	}
	return networks, nil
}

// Connect joins ssid, with password if non-empty.
func (b *Backend) Connect(ctx context.Context, ssid string, password string) error {
	args := []string{"dev", "wifi", "connect", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	res, err := b.run(ctx, args...)
	if err != nil {
		return err
	}
	return res.Err(tool)
}

// Profile reads the merged IPv4 configuration of the profile named ssid.
// A missing profile is not an error: it yields the DHCP default.
func (b *Backend) Profile(ctx context.Context, ssid string) (wifi.Config, error) {
	res, err := b.run(ctx, "-g", strings.Join(wifi.ProfileFields, ","), "connection", "show", ssid)
	if err != nil {
		return wifi.Config{}, err
	}
	if !res.Success() {
		b.Logger.Debug("no profile, using defaults", "ssid", ssid, "exit", res.ExitCode)
		return wifi.DefaultConfig(), nil
	}
	return wifi.MergeProfile(res.Lines()), nil
}

// ApplyProfile persists cfg in one modification and then reactivates the
// profile. Nothing is rolled back if activation fails.
func (b *Backend) ApplyProfile(ctx context.Context, ssid string, cfg wifi.Config) error {
	res, err := b.run(ctx, wifi.ModifyArgs(ssid, cfg)...)
	if err != nil {
		return err
	}
	if err := res.Err(tool); err != nil {
		return fmt.Errorf("%w: %w", wifi.ErrConfigurationRejected, err)
	}

	res, err = b.run(ctx, "connection", "up", ssid)
	if err != nil {
		return err
	}
	if err := res.Err(tool); err != nil {
		return fmt.Errorf("%w: %w", wifi.ErrAppliedButNotActivated, err)
	}
	b.Logger.Info("applied profile", "ssid", ssid, "method", cfg.Method)
	return nil
}

// Secret returns the stored pre-shared key of the profile named ssid.
func (b *Backend) Secret(ctx context.Context, ssid string) (string, error) {
	res, err := b.run(ctx, "-s", "-g", "802-11-wireless-security.psk", "connection", "show", ssid)
	if err != nil {
		return "", err
	}
	if err := res.Err(tool); err != nil {
		return "", fmt.Errorf("secret for %q: %w", ssid, err)
	}
	lines := res.Lines()
	if len(lines) == 0 || lines[0] == "" {
		return "", fmt.Errorf("no stored secret for %q: %w", ssid, wifi.ErrNotFound)
	}
	return lines[0], nil
}

// IsWirelessEnabled checks if the wireless radio is enabled.
func (b *Backend) IsWirelessEnabled(ctx context.Context) (bool, error) {
	res, err := b.run(ctx, "radio", "wifi")
	if err != nil {
		return false, err
	}
	if err := res.Err(tool); err != nil {
		return false, err
	}
	return strings.TrimSpace(string(res.Stdout)) == "enabled", nil
}

// SetWireless enables or disables the wireless radio.
func (b *Backend) SetWireless(ctx context.Context, enabled bool) error {
	state := "off"
	if enabled {
		state = "on"
	}
	res, err := b.run(ctx, "radio", "wifi", state)
	if err != nil {
		return err
	}
	return res.Err(tool)
}
