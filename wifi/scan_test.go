package wifi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScanLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Network
		wantErr error
	}{
		{
			name: "plain",
			line: "yes:Office:WPA2:▂▄▆_:70",
			want: Network{SSID: "Office", Security: "WPA2", Bars: "▂▄▆_", Signal: 70, Active: true},
		},
		{
			name: "colon in ssid",
			line: "no:Cafe:Guest:Net:WPA1 WPA2:▂▄__:40",
			want: Network{SSID: "Cafe:Guest:Net", Security: "WPA1 WPA2", Bars: "▂▄__", Signal: 40},
		},
		{
			name: "escaped colon in ssid",
			line: `no:Cafe\:Guest:WPA2:▂___:20`,
			want: Network{SSID: "Cafe:Guest", Security: "WPA2", Bars: "▂___", Signal: 20},
		},
		{
			name: "open network",
			line: "no:Library::▂▄__:33",
			want: Network{SSID: "Library", Bars: "▂▄__", Signal: 33},
		},
		{
			name: "unparseable signal",
			line: "no:Attic:WPA2:____:n/a",
			want: Network{SSID: "Attic", Security: "WPA2", Bars: "____"},
		},
		{
			name:    "hidden network",
			line:    "no::WPA2:▂▄__:50",
			wantErr: ErrNoSSID,
		},
		{
			name:    "too few fields",
			line:    "yes:Office:WPA2",
			wantErr: ErrMalformedOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScanLine(tt.line)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseScan(t *testing.T) {
	lines := []string{
		"no:Home Network:WPA2:▂▄__:45",
		"yes:Office:Net:WPA2:▂▄▆_:70",
		"no:Home Network:WPA2:▂▄▆█:85",
		"no::WPA2:▂▄__:50",
		"",
		"garbage",
	}

	networks, skipped := ParseScan(lines)
	assert.Len(t, skipped, 2)
	assert.Equal(t, []Network{
		{SSID: "Office:Net", Security: "WPA2", Bars: "▂▄▆_", Signal: 70, Active: true},
		{SSID: "Home Network", Security: "WPA2", Bars: "▂▄▆█", Signal: 85},
	}, networks)
}

func TestParseScan_Empty(t *testing.T) {
	networks, skipped := ParseScan(nil)
	assert.Empty(t, networks)
	assert.Empty(t, skipped)
}

func TestParseScan_Repeatable(t *testing.T) {
	lines := []string{
		"no:Home:WPA2:▂▄▆█:95",
		"no:Cafe:--:▂▄__:40",
		"yes:Home:WPA2:▂___:20",
		"no:Cafe:--:▂▄▆_:60",
	}

	first, _ := ParseScan(lines)
	second, _ := ParseScan(lines)
	assert.Equal(t, first, second)
	assert.Equal(t, []Network{
		{SSID: "Home", Security: "WPA2", Bars: "▂___", Signal: 20, Active: true},
		{SSID: "Cafe", Security: "--", Bars: "▂▄▆_", Signal: 60},
	}, first)
}
