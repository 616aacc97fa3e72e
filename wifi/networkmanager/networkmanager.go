//go:build linux

// Package networkmanager implements wifi.Backend over NetworkManager's D-Bus
// API instead of the nmcli tool.
package networkmanager

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	gonetworkmanager "github.com/Wifx/gonetworkmanager/v3"
	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/i4arch/i4settings/wifi"
)

const connectionTimeout = 30 * time.Second

// Backend implements the wifi.Backend interface using D-Bus to communicate with NetworkManager.
type Backend struct {
	NM       gonetworkmanager.NetworkManager
	Settings gonetworkmanager.Settings
	Logger   *slog.Logger

	mu     sync.Mutex
	device gonetworkmanager.DeviceWireless
}

var _ wifi.Backend = (*Backend)(nil)

// New creates a new networkmanager.Backend.
func New(logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nm, err := gonetworkmanager.NewNetworkManager()
	if err != nil {
		return nil, fmt.Errorf("failed to create network manager client: %w", wifi.ErrNotAvailable)
	}

	settings, err := gonetworkmanager.NewSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", wifi.ErrOperationFailed)
	}

	return &Backend{
		NM:       nm,
		Settings: settings,
		Logger:   logger.With("component", "networkmanager"),
	}, nil
}

// getWirelessDevice returns the first wireless device, looked up once.
func (b *Backend) getWirelessDevice() (gonetworkmanager.DeviceWireless, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device != nil {
		return b.device, nil
	}

	devices, err := b.NM.GetDevices()
	if err != nil {
		return nil, err
	}
	for _, device := range devices {
		if dev, ok := device.(gonetworkmanager.DeviceWireless); ok {
			b.device = dev
			return dev, nil
		}
	}
	return nil, fmt.Errorf("no wireless device found: %w", wifi.ErrNotFound)
}

// Scan requests a fresh scan and reports one record per access point,
// deduplicated and sorted the same way as nmcli output.
func (b *Backend) Scan(ctx context.Context) ([]wifi.Network, error) {
	enabled, err := b.IsWirelessEnabled(ctx)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, wifi.ErrWirelessDisabled
	}

	device, err := b.getWirelessDevice()
	if err != nil {
		return nil, err
	}
	if err := device.RequestScan(); err != nil {
		// NetworkManager refuses scans requested too soon after the last one.
		b.Logger.Debug("scan request refused", "error", err)
	}

	accessPoints, err := device.GetAccessPoints()
	if err != nil {
		return nil, err
	}

	var activeSSID string
	if active, err := device.GetPropertyActiveAccessPoint(); err == nil && active != nil {
		activeSSID, _ = active.GetPropertySSID()
	}

	records := make([]wifi.Network, 0, len(accessPoints))
	for _, ap := range accessPoints {
		ssid, err := ap.GetPropertySSID()
		if err != nil || ssid == "" {
			continue
		}
		strength, _ := ap.GetPropertyStrength()
		records = append(records, wifi.Network{
			SSID:     ssid,
			Security: securityLabel(ap),
			Bars:     wifi.Bars(strength),
			Signal:   strength,
			Active:   activeSSID != "" && ssid == activeSSID,
		})
	}

	networks := wifi.Deduplicate(records)
	wifi.SortNetworks(networks)
	return networks, nil
}

// securityLabel names the access point's security the way nmcli does.
func securityLabel(ap gonetworkmanager.AccessPoint) string {
	flags, _ := ap.GetPropertyFlags()
	wpaFlags, _ := ap.GetPropertyWPAFlags()
	rsnFlags, _ := ap.GetPropertyRSNFlags()

	var labels []string
	if wpaFlags > 0 {
		labels = append(labels, "WPA1")
	}
	if rsnFlags > 0 {
		labels = append(labels, "WPA2")
	}
	if len(labels) == 0 && uint32(flags)&uint32(gonetworkmanager.Nm80211APFlagsPrivacy) != 0 {
		labels = append(labels, "WEP")
	}
	return strings.Join(labels, " ")
}

// findConnection returns the saved profile named ssid, falling back to a
// profile whose wireless SSID matches. It returns nil if there is none.
func (b *Backend) findConnection(ssid string) (gonetworkmanager.Connection, error) {
	known, err := b.Settings.ListConnections()
	if err != nil {
		return nil, err
	}

	var bySSID gonetworkmanager.Connection
	for _, kc := range known {
		s, err := kc.GetSettings()
		if err != nil {
			continue
		}
		if id, ok := s["connection"]["id"].(string); ok && id == ssid {
			return kc, nil
		}
		if wireless, ok := s["802-11-wireless"]; ok && bySSID == nil {
			if ssidBytes, ok := wireless["ssid"].([]byte); ok && string(ssidBytes) == ssid {
				bySSID = kc
			}
		}
	}
	return bySSID, nil
}

func (b *Backend) findAccessPoint(device gonetworkmanager.DeviceWireless, ssid string) (gonetworkmanager.AccessPoint, error) {
	accessPoints, err := device.GetAccessPoints()
	if err != nil {
		return nil, err
	}
	var best gonetworkmanager.AccessPoint
	var bestStrength uint8
	for _, ap := range accessPoints {
		s, err := ap.GetPropertySSID()
		if err != nil || s != ssid {
			continue
		}
		strength, _ := ap.GetPropertyStrength()
		if best == nil || strength > bestStrength {
			best, bestStrength = ap, strength
		}
	}
	if best == nil {
		return nil, fmt.Errorf("access point not found for %s: %w", ssid, wifi.ErrNotFound)
	}
	return best, nil
}

// Connect activates the saved profile for ssid, or creates one.
func (b *Backend) Connect(ctx context.Context, ssid string, password string) error {
	device, err := b.getWirelessDevice()
	if err != nil {
		return err
	}
	ap, err := b.findAccessPoint(device, ssid)
	if err != nil {
		return err
	}

	conn, err := b.findConnection(ssid)
	if err != nil {
		return err
	}

	var activeConn gonetworkmanager.ActiveConnection
	if conn != nil {
		activeConn, err = b.NM.ActivateWirelessConnection(conn, device, ap)
	} else {
		activeConn, err = b.NM.AddAndActivateWirelessConnection(newConnectionSettings(ssid, password), device, ap)
	}
	if err != nil {
		return err
	}
	return waitActivated(ctx, activeConn)
}

func newConnectionSettings(ssid string, password string) map[string]map[string]interface{} {
	connection := map[string]map[string]interface{}{
		"connection": {
			"id":          ssid,
			"uuid":        uuid.New().String(),
			"type":        "802-11-wireless",
			"autoconnect": true,
		},
		"802-11-wireless": {
			"mode": "infrastructure",
			"ssid": []byte(ssid),
		},
		"ipv4": {"method": wifi.MethodAuto},
		"ipv6": {"method": "auto"},
	}
	if password != "" {
		connection["802-11-wireless"]["security"] = "802-11-wireless-security"
		connection["802-11-wireless-security"] = map[string]interface{}{
			"key-mgmt": "wpa-psk",
			"psk":      password,
		}
	}
	return connection
}

// waitActivated blocks until the connection is activated, fails, times out
// or ctx is done.
func waitActivated(ctx context.Context, activeConn gonetworkmanager.ActiveConnection) error {
	stateChanges := make(chan gonetworkmanager.StateChange, 1)
	done := make(chan struct{})
	defer close(done)
	if err := activeConn.SubscribeState(stateChanges, done); err != nil {
		return err
	}

	// Check the initial state first
	initialState, err := activeConn.GetPropertyState()
	if err != nil {
		return err
	}
	if initialState == gonetworkmanager.NmActiveConnectionStateActivated {
		return nil
	}

	timeout := time.NewTimer(connectionTimeout)
	defer timeout.Stop()
	for {
		select {
		case change := <-stateChanges:
			if change.State == gonetworkmanager.NmActiveConnectionStateActivated {
				return nil
			}
			if change.State == gonetworkmanager.NmActiveConnectionStateDeactivated {
				return fmt.Errorf("connection failed: %w", wifi.ErrOperationFailed)
			}
		case <-timeout.C:
			return fmt.Errorf("connection timed out: %w", wifi.ErrOperationFailed)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Profile merges the saved ipv4 settings of ssid with the live IPv4 state of
// its active connection, if any.
func (b *Backend) Profile(ctx context.Context, ssid string) (wifi.Config, error) {
	conn, err := b.findConnection(ssid)
	if err != nil {
		return wifi.Config{}, err
	}
	if conn == nil {
		return wifi.DefaultConfig(), nil
	}
	s, err := conn.GetSettings()
	if err != nil {
		return wifi.Config{}, fmt.Errorf("failed to get settings: %w", wifi.ErrOperationFailed)
	}

	persisted := persistedFields(s["ipv4"])
	id, _ := s["connection"]["id"].(string)
	live := b.liveFields(id)
	return wifi.MergeProfile(append(persisted, live...)), nil
}

// persistedFields renders the ipv4 setting as the method, address, gateway
// and dns values that MergeProfile expects.
func persistedFields(ipv4 map[string]interface{}) []string {
	fields := make([]string, 4)
	if ipv4 == nil {
		return fields
	}
	fields[0], _ = ipv4["method"].(string)
	if data, ok := ipv4["address-data"].([]map[string]dbus.Variant); ok && len(data) > 0 {
		addr, _ := data[0]["address"].Value().(string)
		prefix, _ := data[0]["prefix"].Value().(uint32)
		if addr != "" {
			fields[1] = addr + "/" + strconv.FormatUint(uint64(prefix), 10)
		}
	}
	fields[2], _ = ipv4["gateway"].(string)
	if dns, ok := ipv4["dns"].([]uint32); ok {
		fields[3] = joinIPs(dns)
	}
	return fields
}

// liveFields reads address, gateway and dns from the active connection with
// the given profile id. Missing state yields empty values.
func (b *Backend) liveFields(id string) []string {
	fields := make([]string, 3)
	actives, err := b.NM.GetPropertyActiveConnections()
	if err != nil {
		return fields
	}
	for _, ac := range actives {
		acID, err := ac.GetPropertyID()
		if err != nil || acID != id {
			continue
		}
		cfg, err := ac.GetPropertyIP4Config()
		if err != nil || cfg == nil {
			return fields
		}
		if addrs, err := cfg.GetPropertyAddressData(); err == nil && len(addrs) > 0 {
			fields[0] = addrs[0].Address + "/" + strconv.Itoa(int(addrs[0].Prefix))
		}
		fields[1], _ = cfg.GetPropertyGateway()
		if servers, err := cfg.GetPropertyNameserverData(); err == nil {
			var dns []string
			for _, s := range servers {
				dns = append(dns, s.Address)
			}
			fields[2] = strings.Join(dns, ",")
		}
		return fields
	}
	return fields
}

// ApplyProfile rewrites the ipv4 setting of the saved profile and
// reactivates it.
func (b *Backend) ApplyProfile(ctx context.Context, ssid string, cfg wifi.Config) error {
	conn, err := b.findConnection(ssid)
	if err != nil {
		return err
	}
	if conn == nil {
		return fmt.Errorf("%w: no profile named %s: %w", wifi.ErrConfigurationRejected, ssid, wifi.ErrNotFound)
	}

	settings, err := conn.GetSettings()
	if err != nil {
		return fmt.Errorf("%w: %w", wifi.ErrConfigurationRejected, err)
	}
	if err := setIPv4(settings, cfg); err != nil {
		return fmt.Errorf("%w: %w", wifi.ErrConfigurationRejected, err)
	}
	applyUpdateWorkaround(settings)
	if err := conn.Update(settings); err != nil {
		return fmt.Errorf("%w: %w", wifi.ErrConfigurationRejected, err)
	}

	device, err := b.getWirelessDevice()
	if err != nil {
		return fmt.Errorf("%w: %w", wifi.ErrAppliedButNotActivated, err)
	}
	ap, err := b.findAccessPoint(device, ssid)
	if err != nil {
		return fmt.Errorf("%w: %w", wifi.ErrAppliedButNotActivated, err)
	}
	activeConn, err := b.NM.ActivateWirelessConnection(conn, device, ap)
	if err == nil {
		err = waitActivated(ctx, activeConn)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", wifi.ErrAppliedButNotActivated, err)
	}
	b.Logger.Info("applied profile", "ssid", ssid, "method", cfg.Method)
	return nil
}

// setIPv4 writes cfg into the ipv4 setting with the D-Bus types
// NetworkManager expects.
func setIPv4(settings map[string]map[string]interface{}, cfg wifi.Config) error {
	ipv4, ok := settings["ipv4"]
	if !ok {
		ipv4 = make(map[string]interface{})
		settings["ipv4"] = ipv4
	}
	// The legacy forms conflict with address-data and dns on update.
	delete(ipv4, "addresses")
	delete(ipv4, "dns-data")

	ipv4["method"] = cfg.Method
	if cfg.IsManual() {
		if net.ParseIP(cfg.IPAddress).To4() == nil {
			return fmt.Errorf("invalid IPv4 address %q", cfg.IPAddress)
		}
		ipv4["address-data"] = []map[string]dbus.Variant{{
			"address": dbus.MakeVariant(cfg.IPAddress),
			"prefix":  dbus.MakeVariant(uint32(cfg.Prefix)),
		}}
		if cfg.Gateway != "" {
			ipv4["gateway"] = cfg.Gateway
		} else {
			delete(ipv4, "gateway")
		}
	} else {
		delete(ipv4, "address-data")
		delete(ipv4, "gateway")
	}

	if cfg.DNS != "" {
		dns, err := parseIPs(cfg.DNS)
		if err != nil {
			return err
		}
		ipv4["dns"] = dns
		ipv4["ignore-auto-dns"] = true
	} else {
		delete(ipv4, "dns")
		ipv4["ignore-auto-dns"] = false
	}
	return nil
}

// parseIPs converts a comma-joined IPv4 list to NetworkManager's
// network-byte-order uint32 form.
func parseIPs(list string) ([]uint32, error) {
	var out []uint32
	for _, s := range strings.Split(list, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		ip := net.ParseIP(s).To4()
		if ip == nil {
			return nil, fmt.Errorf("invalid IPv4 address %q", s)
		}
		out = append(out, binary.NativeEndian.Uint32(ip))
	}
	return out, nil
}

func joinIPs(ips []uint32) string {
	parts := make([]string, 0, len(ips))
	for _, v := range ips {
		ip := make(net.IP, 4)
		binary.NativeEndian.PutUint32(ip, v)
		parts = append(parts, ip.String())
	}
	return strings.Join(parts, ",")
}

// applyUpdateWorkaround modifies the settings map to workaround D-Bus type errors.
//
// NetworkManager's D-Bus API can return ipv6.addresses and ipv6.routes as an
// array of array of variants ('aav'), but expects them as an array of structs
// on update. Removing them avoids the type mismatch; ApplyProfile only
// touches ipv4.
//
// See: https://github.com/Wifx/gonetworkmanager/issues/13 and https://github.com/godbus/dbus/issues/400
func applyUpdateWorkaround(settings map[string]map[string]interface{}) {
	if ipv6Settings, ok := settings["ipv6"]; ok {
		delete(ipv6Settings, "addresses")
		delete(ipv6Settings, "routes")
	}
}

// Secret returns the stored pre-shared key of the profile for ssid.
func (b *Backend) Secret(ctx context.Context, ssid string) (string, error) {
	conn, err := b.findConnection(ssid)
	if err != nil {
		return "", err
	}
	if conn == nil {
		return "", fmt.Errorf("connection not found for %s: %w", ssid, wifi.ErrNotFound)
	}

	settings, err := conn.GetSecrets("802-11-wireless-security")
	if err != nil {
		return "", fmt.Errorf("failed to get secrets: %w", wifi.ErrOperationFailed)
	}
	if psk, ok := settings["802-11-wireless-security"]["psk"].(string); ok && psk != "" {
		return psk, nil
	}
	return "", fmt.Errorf("no stored secret for %q: %w", ssid, wifi.ErrNotFound)
}

func (b *Backend) IsWirelessEnabled(ctx context.Context) (bool, error) {
	return b.NM.GetPropertyWirelessEnabled()
}

// SetWireless enables or disables the wireless radio.
func (b *Backend) SetWireless(ctx context.Context, enabled bool) error {
	// Not all versions of NetworkManager support subscribing to signals, so we
	// can't rely on it. We'll just have to assume the change was successful.
	// See: https://github.com/Wifx/gonetworkmanager/pull/14
	return b.NM.SetPropertyWirelessEnabled(enabled)
}
