package wifi

import "sort"

// Deduplicate keeps one record per SSID. A record replaces the one already
// kept for its SSID only if it is active and the kept one is not, or if both
// share the same active flag and it has a strictly higher signal. Records
// keep the position where their SSID was first seen.
func Deduplicate(records []Network) []Network {
	index := make(map[string]int, len(records))
	var out []Network
	for _, n := range records {
		i, seen := index[n.SSID]
		if !seen {
			index[n.SSID] = len(out)
			out = append(out, n)
			continue
		}
		if better(n, out[i]) {
			out[i] = n
		}
	}
	return out
}

// better reports whether candidate should replace existing.
func better(candidate, existing Network) bool {
	if candidate.Active != existing.Active {
		return candidate.Active
	}
	return candidate.Signal > existing.Signal
}

// SortNetworks sorts networks in place: active first, then by descending
// signal. Ties keep their input order.
func SortNetworks(networks []Network) {
	sort.SliceStable(networks, func(i, j int) bool {
		a, b := networks[i], networks[j]
		if a.Active != b.Active {
			return a.Active
		}
		return a.Signal > b.Signal
	})
}
