package wifi

import "context"

// Network is one visible Wi-Fi network. Scans report one record per access
// point; after deduplication there is exactly one Network per SSID.
type Network struct {
	SSID     string `json:"ssid" yaml:"ssid"`
	Security string `json:"security" yaml:"security"`
	Bars     string `json:"bars" yaml:"bars"`
	Signal   uint8  `json:"signal" yaml:"signal"` // 0-100
	Active   bool   `json:"active" yaml:"active"`
}

// IPv4 configuration methods.
const (
	MethodAuto   = "auto"
	MethodManual = "manual"
)

// DefaultPrefix is used when an address carries no usable prefix length.
const DefaultPrefix = 24

// Config is the IPv4 configuration of a connection profile, merged from the
// persisted profile and the live interface state. It is addressed by SSID,
// which doubles as the profile name.
type Config struct {
	Method    string `json:"method" yaml:"method"`
	IPAddress string `json:"ip_address" yaml:"ip_address"`
	Prefix    int    `json:"prefix" yaml:"prefix"`
	Gateway   string `json:"gateway" yaml:"gateway"`
	DNS       string `json:"dns" yaml:"dns"` // comma-joined
}

// DefaultConfig is the configuration of a DHCP-managed network that has no
// explicit profile.
func DefaultConfig() Config {
	return Config{Method: MethodAuto, Prefix: DefaultPrefix}
}

// IsManual reports whether the configuration uses static addressing.
func (c Config) IsManual() bool {
	return c.Method == MethodManual
}

// Backend defines the interface for managing Wi-Fi networks and their
// connection profiles.
type Backend interface {
	// Scan lists visible networks, deduplicated by SSID and sorted active
	// first, then by descending signal.
	Scan(ctx context.Context) ([]Network, error)
	// Connect joins a network, creating a profile if needed. An empty
	// password joins without one.
	Connect(ctx context.Context, ssid string, password string) error
	// Profile returns the IPv4 configuration of the profile named ssid. A
	// missing profile yields DefaultConfig, not an error.
	Profile(ctx context.Context, ssid string) (Config, error)
	// ApplyProfile persists the configuration and reactivates the profile.
	ApplyProfile(ctx context.Context, ssid string, cfg Config) error
	// Secret retrieves the stored passphrase for a known network.
	Secret(ctx context.Context, ssid string) (string, error)

	// IsWirelessEnabled checks if the wireless radio is enabled.
	IsWirelessEnabled(ctx context.Context) (bool, error)
	// SetWireless enables or disables the wireless radio.
	SetWireless(ctx context.Context, enabled bool) error
}
