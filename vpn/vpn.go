// Package vpn lists, toggles and imports VPN connection profiles through
// nmcli.
package vpn

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/i4arch/i4settings/internal/runner"
)

const tool = "nmcli"

// Profile types nmcli lists as VPN connections.
const (
	TypeVPN       = "vpn"
	TypeWireGuard = "wireguard"
)

// Import types understood by nmcli connection import.
const (
	ImportOpenVPN   = "openvpn"
	ImportWireGuard = "wireguard"
)

// ListFields is the nmcli field list a connection row is parsed against.
const ListFields = "UUID,NAME,TYPE,ACTIVE"

// Connection is one VPN profile. UUID is the primary key; names need not be
// unique.
type Connection struct {
	UUID   string `json:"uuid" yaml:"uuid"`
	Name   string `json:"name" yaml:"name"`
	Active bool   `json:"active" yaml:"active"`
	Type   string `json:"type_name" yaml:"type"`
}

// ImportResult describes an imported profile and the credential steps that
// were attempted on it.
type ImportResult struct {
	UUID   string       `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	Type   string       `json:"type" yaml:"type"`
	Output string       `json:"output" yaml:"output"`
	Steps  runner.Steps `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// ImportOptions are the optional inputs of Import. Empty strings mean
// absent.
type ImportOptions struct {
	Type     string
	Username string
	Password string
}

// Manager runs VPN profile operations.
type Manager struct {
	Runner runner.Runner
	Logger *slog.Logger
}

// New returns a Manager.
func New(r runner.Runner, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{Runner: r, Logger: logger.With("component", "vpn")}
}

// List returns VPN and WireGuard profiles, active first.
func (m *Manager) List(ctx context.Context) ([]Connection, error) {
	res, err := m.Runner.Run(ctx, tool, "-t", "-f", ListFields, "connection", "show")
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		m.Logger.Debug("connection listing exited non-zero", "exit", res.ExitCode)
	}

	var out []Connection
	for _, line := range res.Lines() {
		if line == "" {
			continue
		}
		c, err := ParseRow(line)
		if err != nil {
			m.Logger.Debug("skipped connection row", "error", err)
			continue
		}
		if c.Type != TypeVPN && c.Type != TypeWireGuard {
			continue
		}
		if active := activeField(line); c.Active && active != "yes" {
			m.Logger.Debug("treating unexpected ACTIVE value as active", "uuid", c.UUID, "value", active)
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Active && !out[j].Active
	})
	return out, nil
}

// ParseRow parses a terse UUID:NAME:TYPE:ACTIVE row. The name may contain
// colons; the row is anchored on the UUID and the last two fields.
func ParseRow(line string) (Connection, error) {
	parts := strings.Split(line, ":")
	if len(parts) < 4 {
		return Connection{}, fmt.Errorf("%w: connection row has %d fields, want at least 4", ErrMalformedOutput, len(parts))
	}
	n := len(parts)
	return Connection{
		UUID:   parts[0],
		Name:   unescape(strings.Join(parts[1:n-2], ":")),
		Type:   parts[n-2],
		Active: IsActive(parts[n-1]),
	}, nil
}

// IsActive interprets an ACTIVE field. Anything but empty, "no" or "--"
// counts as active, since some nmcli versions report a device name there.
func IsActive(field string) bool {
	return field != "" && field != "no" && field != "--"
}

func activeField(line string) string {
	return line[strings.LastIndex(line, ":")+1:]
}

// Activate brings the profile with the given UUID up.
func (m *Manager) Activate(ctx context.Context, uuid string) error {
	return m.connection(ctx, "up", uuid)
}

// Deactivate takes the profile with the given UUID down.
func (m *Manager) Deactivate(ctx context.Context, uuid string) error {
	return m.connection(ctx, "down", uuid)
}

func (m *Manager) connection(ctx context.Context, verb string, uuid string) error {
	res, err := m.Runner.Run(ctx, tool, "connection", verb, uuid)
	if err != nil {
		return err
	}
	if err := res.Err(tool); err != nil {
		return err
	}
	m.Logger.Info("vpn "+verb, "uuid", uuid)
	return nil
}

// ResolveType returns the explicit type if given, otherwise infers it from
// the file extension.
func ResolveType(path string, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	switch filepath.Ext(path) {
	case ".ovpn":
		return ImportOpenVPN, nil
	case ".conf", ".wg":
		return ImportWireGuard, nil
	}
	return "", fmt.Errorf("%w: %s", ErrAmbiguousProfileType, path)
}

// ExtractUUID returns the text inside the last parenthesized pair of the
// import output, e.g. "Connection 'x' (uuid) successfully added.".
func ExtractUUID(output string) (string, bool) {
	start := strings.LastIndex(output, "(")
	end := strings.LastIndex(output, ")")
	if start < 0 || end <= start {
		return "", false
	}
	return output[start+1 : end], true
}

// Import creates a profile from a configuration file. For OpenVPN profiles
// the given credentials are stored afterwards, each as a best-effort step
// whose failure does not fail the import.
func (m *Manager) Import(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error) {
	typ, err := ResolveType(path, opts.Type)
	if err != nil {
		return nil, err
	}

	res, err := m.Runner.Run(ctx, tool, "connection", "import", "type", typ, "file", path)
	if err != nil {
		return nil, err
	}
	if err := res.Err(tool); err != nil {
		return nil, err
	}

	out := &ImportResult{Type: typ, Output: strings.TrimSpace(string(res.Stdout))}
	uuid, ok := ExtractUUID(out.Output)
	if ok {
		out.UUID = uuid
	}
	m.Logger.Info("imported vpn profile", "path", path, "type", typ, "uuid", out.UUID)

	if typ != ImportOpenVPN || (opts.Username == "" && opts.Password == "") {
		return out, nil
	}
	if !ok {
		out.Steps.Record("find imported connection uuid", fmt.Errorf("%w: no uuid in import output", ErrMalformedOutput))
		return out, nil
	}

	if opts.Username != "" {
		out.Steps.Run(ctx, m.Runner, tool, "connection", "modify", uuid, "+vpn.data", "username="+opts.Username)
	}
	if opts.Password != "" {
		out.Steps.Run(ctx, m.Runner, tool, "connection", "modify", uuid, "+vpn.secrets", "password="+opts.Password)
		out.Steps.Run(ctx, m.Runner, tool, "connection", "modify", uuid, "vpn.secrets-flags", "0")
	}
	for _, s := range out.Steps.Failed() {
		m.Logger.Warn("credential step failed", "step", s.Name, "error", s.Error)
	}
	return out, nil
}

// unescape reverses nmcli's terse-mode escaping of ':' and '\'.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == ':' || s[i+1] == '\\') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
