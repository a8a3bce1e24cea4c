package description

import "github.com/clustermonitor/sdam/address"

// TopologyDiff is the set of addresses added and removed between two
// Topology snapshots, used by the monitor fleet to know which monitors to
// start or stop.
type TopologyDiff struct {
	Added   []address.Address
	Removed []address.Address
}

// Diff computes the membership difference between prev and next.
func Diff(prev, next Topology) TopologyDiff {
	prevSet := make(map[address.Address]struct{}, len(prev.Servers))
	for _, s := range prev.Servers {
		prevSet[s.Address] = struct{}{}
	}
	nextSet := make(map[address.Address]struct{}, len(next.Servers))
	for _, s := range next.Servers {
		nextSet[s.Address] = struct{}{}
	}

	var diff TopologyDiff
	for addr := range nextSet {
		if _, ok := prevSet[addr]; !ok {
			diff.Added = append(diff.Added, addr)
		}
	}
	for addr := range prevSet {
		if _, ok := nextSet[addr]; !ok {
			diff.Removed = append(diff.Removed, addr)
		}
	}
	return diff
}
