package wifi

import (
	"strconv"
	"strings"
)

// ProfileFields are the fields read when merging a profile: the persisted
// ipv4.* settings followed by the live IP4.* state.
var ProfileFields = []string{
	"ipv4.method",
	"ipv4.addresses",
	"ipv4.gateway",
	"ipv4.dns",
	"IP4.ADDRESS",
	"IP4.GATEWAY",
	"IP4.DNS",
}

const (
	fieldMethod = iota
	fieldAddresses
	fieldGateway
	fieldDNS
	fieldLiveAddress
	fieldLiveGateway
	fieldLiveDNS
)

// MergeProfile builds a Config from the values of ProfileFields, one per
// line. Persisted values win; live values fill the gaps left by DHCP. Fewer
// than four lines means there is no usable profile.
func MergeProfile(lines []string) Config {
	if len(lines) < 4 {
		return DefaultConfig()
	}
	field := func(i int) string {
		if i >= len(lines) {
			return ""
		}
		return strings.TrimSpace(lines[i])
	}
	pick := func(persisted, live int) string {
		if v := field(persisted); v != "" {
			return v
		}
		return field(live)
	}

	cfg := DefaultConfig()
	if m := field(fieldMethod); m != "" {
		cfg.Method = m
	}
	cfg.IPAddress, cfg.Prefix = SplitAddress(pick(fieldAddresses, fieldLiveAddress))
	cfg.Gateway = pick(fieldGateway, fieldLiveGateway)
	cfg.DNS = joinDNS(pick(fieldDNS, fieldLiveDNS))
	return cfg
}

// SplitAddress splits "a.b.c.d/p" into address and prefix length. Only the
// first of several addresses is used. A missing or invalid prefix yields
// DefaultPrefix.
func SplitAddress(addr string) (string, int) {
	addr = firstValue(addr)
	ip, prefix, found := strings.Cut(addr, "/")
	if !found {
		return ip, DefaultPrefix
	}
	p, err := strconv.Atoi(strings.TrimSpace(prefix))
	if err != nil || p < 0 || p > 32 {
		return ip, DefaultPrefix
	}
	return ip, p
}

// ModifyArgs returns the nmcli arguments that persist cfg on the profile
// named ssid in a single modification. Non-manual methods clear any static
// address and gateway; an empty DNS list hands DNS back to DHCP.
func ModifyArgs(ssid string, cfg Config) []string {
	args := []string{"connection", "modify", ssid, "ipv4.method", cfg.Method}
	if cfg.IsManual() {
		args = append(args,
			"ipv4.addresses", cfg.IPAddress+"/"+strconv.Itoa(cfg.Prefix),
			"ipv4.gateway", cfg.Gateway,
		)
	} else {
		args = append(args, "ipv4.addresses", "", "ipv4.gateway", "")
	}
	if cfg.DNS != "" {
		args = append(args, "ipv4.dns", cfg.DNS, "ipv4.ignore-auto-dns", "yes")
	} else {
		args = append(args, "ipv4.dns", "", "ipv4.ignore-auto-dns", "no")
	}
	return args
}

// firstValue returns the first entry of a multi-valued field, which nmcli
// separates with ", " in settings and " | " in live state.
func firstValue(v string) string {
	for _, sep := range []string{" | ", ","} {
		if i := strings.Index(v, sep); i >= 0 {
			v = v[:i]
		}
	}
	return strings.TrimSpace(v)
}

// joinDNS normalizes a DNS list to comma-joined form.
func joinDNS(v string) string {
	if v == "" {
		return ""
	}
	fields := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == '|' || r == ' '
	})
	return strings.Join(fields, ",")
}
