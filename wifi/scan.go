package wifi

import (
	"fmt"
	"strconv"
	"strings"
)

// ScanFields is the nmcli field list a scan line is parsed against.
const ScanFields = "ACTIVE,SSID,SECURITY,BARS,SIGNAL"

const scanFieldCount = 5

// ParseScanLine parses one terse line of the form ACTIVE:SSID:SECURITY:BARS:SIGNAL.
//
// The SSID may itself contain colons, so the line is anchored on the fixed
// fields: the first is ACTIVE, the last three are SECURITY, BARS and SIGNAL,
// and everything in between is the SSID.
func ParseScanLine(line string) (Network, error) {
	parts := strings.Split(line, ":")
	if len(parts) < scanFieldCount {
		return Network{}, fmt.Errorf("%w: scan line has %d fields, want at least %d", ErrMalformedOutput, len(parts), scanFieldCount)
	}

	n := len(parts)
	ssid := unescape(strings.Join(parts[1:n-3], ":"))
	if ssid == "" {
		return Network{}, ErrNoSSID
	}

	signal, err := strconv.ParseUint(strings.TrimSpace(parts[n-1]), 10, 8)
	if err != nil || signal > 100 {
		signal = 0
	}

	return Network{
		SSID:     ssid,
		Active:   parts[0] == "yes",
		Security: parts[n-3],
		Bars:     parts[n-2],
		Signal:   uint8(signal),
	}, nil
}

// ParseScan parses scan output, deduplicates it and sorts it. Lines that
// cannot be parsed are skipped and returned as errors for the caller to log.
func ParseScan(lines []string) ([]Network, []error) {
	var (
		records []Network
		skipped []error
	)
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n, err := ParseScanLine(line)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("line %d: %w", i+1, err))
			continue
		}
		records = append(records, n)
	}

	networks := Deduplicate(records)
	SortNetworks(networks)
	return networks, skipped
}

// unescape reverses nmcli's terse-mode escaping of ':' and '\'. Unescaped
// input passes through unchanged.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == ':' || s[i+1] == '\\') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
