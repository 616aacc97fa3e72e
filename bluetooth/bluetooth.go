// Package bluetooth controls the default Bluetooth adapter: power,
// discovery, device listing and connecting.
package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

var (
	ErrNoAdapter      = errors.New("no bluetooth adapter")
	ErrInvalidAddress = errors.New("invalid MAC address")
	ErrDeviceNotFound = errors.New("device not found")
)

// Device is a known or discovered Bluetooth device.
type Device struct {
	MAC       string `json:"mac" yaml:"mac"`
	Name      string `json:"name" yaml:"name"`
	Connected bool   `json:"connected" yaml:"connected"`
	Paired    bool   `json:"paired" yaml:"paired"`
	Icon      string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// DeviceInfo is a device as the adapter reports it. Name is empty when the
// device did not advertise one.
type DeviceInfo struct {
	Address   string
	Name      string
	Alias     string
	Connected bool
	Paired    bool
	Icon      string
}

// Adapter is a Bluetooth adapter.
type Adapter interface {
	Powered(ctx context.Context) (bool, error)
	SetPowered(ctx context.Context, on bool) error
	StartDiscovery(ctx context.Context) error
	StopDiscovery(ctx context.Context) error
	Devices(ctx context.Context) ([]DeviceInfo, error)
	ConnectDevice(ctx context.Context, address string) error
}

// Discovery is the handle of a running device discovery. While a Manager
// holds it, further scan requests reuse it.
type Discovery struct {
	Started time.Time `json:"started" yaml:"started"`
}

// Manager runs Bluetooth operations against one adapter. A nil Adapter
// means no adapter is available.
type Manager struct {
	Adapter Adapter
	Logger  *slog.Logger

	mu        sync.Mutex
	discovery *Discovery
}

// New returns a Manager for adapter, which may be nil.
func New(adapter Adapter, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{Adapter: adapter, Logger: logger.With("component", "bluetooth")}
}

// Status reports whether the adapter is powered. Any failure reads as off.
func (m *Manager) Status(ctx context.Context) bool {
	if m.Adapter == nil {
		return false
	}
	on, err := m.Adapter.Powered(ctx)
	if err != nil {
		m.Logger.Debug("power status unavailable", "error", err)
		return false
	}
	return on
}

// SetPowered turns the adapter on or off.
func (m *Manager) SetPowered(ctx context.Context, on bool) error {
	if m.Adapter == nil {
		return ErrNoAdapter
	}
	if err := m.Adapter.SetPowered(ctx, on); err != nil {
		return fmt.Errorf("set powered: %w", err)
	}
	return nil
}

// StartScan powers the adapter on if needed and starts discovery. If a
// discovery is already held, it is returned without starting another.
func (m *Manager) StartScan(ctx context.Context) (*Discovery, error) {
	if m.Adapter == nil {
		return nil, ErrNoAdapter
	}
	if !m.Status(ctx) {
		if err := m.Adapter.SetPowered(ctx, true); err != nil {
			m.Logger.Warn("failed to power on adapter before scan", "error", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.discovery != nil {
		return m.discovery, nil
	}
	if err := m.Adapter.StartDiscovery(ctx); err != nil {
		return nil, fmt.Errorf("start discovery: %w", err)
	}
	m.discovery = &Discovery{Started: time.Now()}
	m.Logger.Debug("discovery started")
	return m.discovery, nil
}

// StopScan releases the held discovery, if any.
func (m *Manager) StopScan(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.discovery == nil {
		return nil
	}
	m.discovery = nil
	if err := m.Adapter.StopDiscovery(ctx); err != nil {
		return fmt.Errorf("stop discovery: %w", err)
	}
	m.Logger.Debug("discovery stopped")
	return nil
}

// Scanning reports whether a discovery is held.
func (m *Manager) Scanning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.discovery != nil
}

// Devices lists devices by display name, skipping those that only have
// their address to show.
func (m *Manager) Devices(ctx context.Context) ([]Device, error) {
	if m.Adapter == nil {
		return nil, ErrNoAdapter
	}
	infos, err := m.Adapter.Devices(ctx)
	if err != nil {
		return nil, err
	}

	var out []Device
	for _, d := range infos {
		name := DisplayName(d)
		if strings.EqualFold(strings.ReplaceAll(name, "-", ":"), d.Address) {
			continue
		}
		out = append(out, Device{
			MAC:       d.Address,
			Name:      name,
			Connected: d.Connected,
			Paired:    d.Paired,
			Icon:      d.Icon,
		})
	}
	return out, nil
}

// DisplayName picks Name, then Alias, then the address.
func DisplayName(d DeviceInfo) string {
	switch {
	case d.Name != "":
		return d.Name
	case d.Alias != "":
		return d.Alias
	}
	return d.Address
}

// Connect connects to the device with the given address. The returned
// message tells whether it was already connected.
func (m *Manager) Connect(ctx context.Context, mac string) (string, error) {
	if m.Adapter == nil {
		return "", ErrNoAdapter
	}
	addr, err := normalizeMAC(mac)
	if err != nil {
		return "", err
	}

	infos, err := m.Adapter.Devices(ctx)
	if err != nil {
		return "", err
	}
	for _, d := range infos {
		if !strings.EqualFold(d.Address, addr) {
			continue
		}
		if d.Connected {
			return "Already connected", nil
		}
		if err := m.Adapter.ConnectDevice(ctx, d.Address); err != nil {
			return "", err
		}
		m.Logger.Info("connected device", "mac", d.Address)
		return "Connected", nil
	}
	return "", fmt.Errorf("%s: %w", addr, ErrDeviceNotFound)
}

// normalizeMAC validates a 48-bit address and returns it in upper-case
// colon form, as BlueZ reports addresses.
func normalizeMAC(mac string) (string, error) {
	hw, err := net.ParseMAC(mac)
	if err != nil || len(hw) != 6 {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, mac)
	}
	return strings.ToUpper(hw.String()), nil
}
