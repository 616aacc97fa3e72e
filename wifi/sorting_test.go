package wifi

import (
	"reflect"
	"testing"
)

func TestSortNetworks(t *testing.T) {
	tests := []struct {
		name     string
		networks []Network
		expected []Network
	}{
		{
			name: "Sort by active",
			networks: []Network{
				{SSID: "Inactive", Signal: 90},
				{SSID: "Active", Active: true, Signal: 10},
			},
			expected: []Network{
				{SSID: "Active", Active: true, Signal: 10},
				{SSID: "Inactive", Signal: 90},
			},
		},
		{
			name: "Sort by signal",
			networks: []Network{
				{SSID: "Weak", Signal: 10},
				{SSID: "Strong", Signal: 90},
			},
			expected: []Network{
				{SSID: "Strong", Signal: 90},
				{SSID: "Weak", Signal: 10},
			},
		},
		{
			name: "Ties keep input order",
			networks: []Network{
				{SSID: "B", Signal: 50},
				{SSID: "A", Signal: 50},
			},
			expected: []Network{
				{SSID: "B", Signal: 50},
				{SSID: "A", Signal: 50},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SortNetworks(tt.networks)
			if !reflect.DeepEqual(tt.networks, tt.expected) {
				t.Errorf("SortNetworks() got = %v, want %v", tt.networks, tt.expected)
			}
		})
	}
}

func TestDeduplicate(t *testing.T) {
	tests := []struct {
		name     string
		records  []Network
		expected []Network
	}{
		{
			name: "Stronger record wins",
			records: []Network{
				{SSID: "Home", Signal: 45},
				{SSID: "Home", Signal: 85},
			},
			expected: []Network{{SSID: "Home", Signal: 85}},
		},
		{
			name: "Active record wins over stronger",
			records: []Network{
				{SSID: "Home", Active: true, Signal: 20},
				{SSID: "Home", Signal: 95},
			},
			expected: []Network{{SSID: "Home", Active: true, Signal: 20}},
		},
		{
			name: "Active record wins when seen last",
			records: []Network{
				{SSID: "Home", Signal: 95},
				{SSID: "Home", Active: true, Signal: 20},
			},
			expected: []Network{{SSID: "Home", Active: true, Signal: 20}},
		},
		{
			name: "Active record not replaced by later stronger one",
			records: []Network{
				{SSID: "Home", Signal: 40},
				{SSID: "Home", Active: true, Signal: 20},
				{SSID: "Home", Signal: 95},
			},
			expected: []Network{{SSID: "Home", Active: true, Signal: 20}},
		},
		{
			name: "Equal signal keeps first",
			records: []Network{
				{SSID: "Home", Signal: 50, Bars: "first"},
				{SSID: "Home", Signal: 50, Bars: "second"},
			},
			expected: []Network{{SSID: "Home", Signal: 50, Bars: "first"}},
		},
		{
			name: "Position of first sighting kept",
			records: []Network{
				{SSID: "A", Signal: 10},
				{SSID: "B", Signal: 20},
				{SSID: "A", Signal: 30},
			},
			expected: []Network{{SSID: "A", Signal: 30}, {SSID: "B", Signal: 20}},
		},
		{
			name:     "Empty",
			records:  nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Deduplicate(tt.records)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Deduplicate() got = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	records := []Network{
		{SSID: "Cafe", Signal: 30},
		{SSID: "Home", Signal: 95},
		{SSID: "Cafe", Signal: 60},
		{SSID: "Home", Active: true, Signal: 20},
		{SSID: "Lab", Signal: 10},
	}
	once := Deduplicate(records)
	twice := Deduplicate(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Deduplicate() not idempotent: once = %v, twice = %v", once, twice)
	}
	if len(once) != 3 {
		t.Errorf("Deduplicate() got %d networks, want 3", len(once))
	}
}

func TestBars(t *testing.T) {
	tests := map[uint8]string{
		0:   "____",
		20:  "▂___",
		45:  "▂▄__",
		70:  "▂▄▆_",
		85:  "▂▄▆█",
		100: "▂▄▆█",
	}
	for signal, want := range tests {
		if got := Bars(signal); got != want {
			t.Errorf("Bars(%d) = %q, want %q", signal, got, want)
		}
	}
}
