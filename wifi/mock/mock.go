// Package mock provides an in-memory wifi.Backend with a list of fun
// networks, for UI development and tests.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/i4arch/i4settings/wifi"
)

var DefaultActionSleep = 500 * time.Millisecond

// accessPoint is one raw scan record before deduplication.
type accessPoint struct {
	SSID     string
	Security string
	Signal   uint8
}

// MockBackend is a mock implementation of the wifi.Backend interface for testing.
type MockBackend struct {
	mu sync.Mutex

	AccessPoints    []accessPoint
	Profiles        map[string]wifi.Config
	Secrets         map[string]string
	ActiveSSID      string
	WirelessEnabled bool

	ConnectError           error
	ApplyError             error
	SecretError            error
	IsWirelessEnabledError error
	SetWirelessError       error

	// ActionSleep is a delay before every action, to better emulate a real-world backend for the frontend. Set to 0 during testing.
	ActionSleep time.Duration
	// Shuffle re-randomizes signal strengths on every scan.
	Shuffle bool
}

var _ wifi.Backend = (*MockBackend)(nil)

// New creates a new mock.Backend with a list of fun wifi networks.
func New() *MockBackend {
	return &MockBackend{
		AccessPoints: []accessPoint{
			{"HideYoKidsHideYoWiFi", "WPA2", 72},
			{"HideYoKidsHideYoWiFi", "WPA2", 25},
			{"NeverGonnaGiveYouIP", "WEP", 40},
			{"Unencrypted_Honeypot", "", 66},
			{"Dunder MiffLAN", "WPA2", 51},
			{"Police Surveillance 2", "WPA1 WPA2", 48},
			{"I Believe Wi Can Fi", "WEP", 33},
			{"Password is password", "WPA2", 87},
			{"TacoBoutAGoodSignal", "WPA2", 99},
			{"Multi-AP Network", "WPA2", 80},
			{"Multi-AP Network", "WPA2", 60},
			{"Multi-AP Network", "WPA2", 40},
			{"Cafe:Guest", "", 20},
		},
		Profiles: map[string]wifi.Config{
			"HideYoKidsHideYoWiFi": wifi.DefaultConfig(),
			"Password is password": {Method: wifi.MethodManual, IPAddress: "192.168.1.50", Prefix: 24, Gateway: "192.168.1.1", DNS: "1.1.1.1,8.8.8.8"},
		},
		Secrets: map[string]string{
			"Password is password": "password",
			"HideYoKidsHideYoWiFi": "hidden",
		},
		WirelessEnabled: true,
		ActionSleep:     DefaultActionSleep,
		Shuffle:         true,
	}
}

func (m *MockBackend) sleep(ctx context.Context) error {
	if m.ActionSleep <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(m.ActionSleep):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockBackend) Scan(ctx context.Context) ([]wifi.Network, error) {
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.WirelessEnabled {
		return nil, wifi.ErrWirelessDisabled
	}
	if m.Shuffle {
		r := rand.New(rand.NewSource(time.Now().UnixNano()))
		for i := range m.AccessPoints {
			m.AccessPoints[i].Signal = uint8(r.Intn(70) + 30)
		}
	}

	records := make([]wifi.Network, 0, len(m.AccessPoints))
	for _, ap := range m.AccessPoints {
		records = append(records, wifi.Network{
			SSID:     ap.SSID,
			Security: ap.Security,
			Bars:     wifi.Bars(ap.Signal),
			Signal:   ap.Signal,
			Active:   ap.SSID == m.ActiveSSID,
		})
	}
	networks := wifi.Deduplicate(records)
	wifi.SortNetworks(networks)
	return networks, nil
}

func (m *MockBackend) visible(ssid string) bool {
	for _, ap := range m.AccessPoints {
		if ap.SSID == ssid {
			return true
		}
	}
	return false
}

func (m *MockBackend) Connect(ctx context.Context, ssid string, password string) error {
	if err := m.sleep(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ConnectError != nil {
		return m.ConnectError
	}
	if !m.visible(ssid) {
		return fmt.Errorf("no network with SSID %q found: %w", ssid, wifi.ErrNotFound)
	}
	if _, known := m.Profiles[ssid]; !known {
		m.Profiles[ssid] = wifi.DefaultConfig()
	}
	if password != "" {
		m.Secrets[ssid] = password
	}
	m.ActiveSSID = ssid
	return nil
}

func (m *MockBackend) Profile(ctx context.Context, ssid string) (wifi.Config, error) {
	if err := m.sleep(ctx); err != nil {
		return wifi.Config{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.Profiles[ssid]
	if !ok {
		return wifi.DefaultConfig(), nil
	}
	return cfg, nil
}

func (m *MockBackend) ApplyProfile(ctx context.Context, ssid string, cfg wifi.Config) error {
	if err := m.sleep(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ApplyError != nil {
		return m.ApplyError
	}
	if _, ok := m.Profiles[ssid]; !ok {
		return fmt.Errorf("%w: unknown connection %s", wifi.ErrConfigurationRejected, ssid)
	}
	if !cfg.IsManual() {
		cfg.IPAddress, cfg.Gateway, cfg.Prefix = "", "", wifi.DefaultPrefix
	}
	m.Profiles[ssid] = cfg
	m.ActiveSSID = ssid
	return nil
}

func (m *MockBackend) Secret(ctx context.Context, ssid string) (string, error) {
	if err := m.sleep(ctx); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SecretError != nil {
		return "", m.SecretError
	}
	if s, ok := m.Secrets[ssid]; ok {
		return s, nil
	}
	return "", fmt.Errorf("no secrets for %s: %w", ssid, wifi.ErrNotFound)
}

func (m *MockBackend) IsWirelessEnabled(ctx context.Context) (bool, error) {
	if err := m.sleep(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsWirelessEnabledError != nil {
		return false, m.IsWirelessEnabledError
	}
	return m.WirelessEnabled, nil
}

func (m *MockBackend) SetWireless(ctx context.Context, enabled bool) error {
	if err := m.sleep(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SetWirelessError != nil {
		return m.SetWirelessError
	}
	m.WirelessEnabled = enabled
	if !enabled {
		m.ActiveSSID = ""
	}
	return nil
}
