// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package readpref

import (
	"time"

	"github.com/clustermonitor/sdam/description"
)

// defaultLocalThreshold is the width of the latency window used when a
// caller does not override it.
const defaultLocalThreshold = 15 * time.Millisecond

// Selector compiles rp into a description.ServerSelector. heartbeatFrequency
// feeds the staleness formula; localThreshold sets the latency window width
// and defaults to 15ms if zero.
func Selector(rp *ReadPref, heartbeatFrequency, localThreshold time.Duration) description.ServerSelector {
	if localThreshold <= 0 {
		localThreshold = defaultLocalThreshold
	}
	return description.ServerSelectorFunc(func(topo description.Topology, candidates []description.Server) ([]description.Server, error) {
		return selectServers(rp, topo, candidates, heartbeatFrequency, localThreshold)
	})
}

func selectServers(rp *ReadPref, topo description.Topology, candidates []description.Server, heartbeatFrequency, localThreshold time.Duration) ([]description.Server, error) {
	// Incompatible and Unknown topologies are handled by the caller
	// (x/sdam/topology) before a selector is even invoked, since they are
	// cross-cutting and don't depend on read preference.

	// Single topology: any non-Unknown server is the answer, regardless of
	// read preference (there is exactly one candidate by construction).
	if topo.Kind == description.Single {
		var out []description.Server
		for _, s := range candidates {
			if s.Kind != description.Unknown {
				out = append(out, s)
			}
		}
		return out, nil
	}

	byKind := func(kinds ...description.ServerKind) []description.Server {
		var out []description.Server
		for _, s := range candidates {
			for _, k := range kinds {
				if s.Kind == k {
					out = append(out, s)
					break
				}
			}
		}
		return out
	}

	var pool []description.Server
	tags := rp.TagSets()

	switch rp.Mode() {
	case PrimaryMode:
		return byKind(description.RSPrimary), nil

	case SecondaryMode:
		pool = byKind(description.RSSecondary)

	case NearestMode:
		pool = byKind(description.RSPrimary, description.RSSecondary, description.Standalone, description.Mongos)

	case PrimaryPreferredMode:
		if primaries := byKind(description.RSPrimary); len(primaries) > 0 {
			return primaries, nil
		}
		pool = byKind(description.RSSecondary)

	case SecondaryPreferredMode:
		pool = applyFilters(byKind(description.RSSecondary), topo, tags, rp, heartbeatFrequency, localThreshold)
		if len(pool) > 0 {
			return pool, nil
		}
		// fall through to primary, ignoring tags entirely.
		return byKind(description.RSPrimary), nil
	}

	return applyFilters(pool, topo, tags, rp, heartbeatFrequency, localThreshold), nil
}

// applyFilters runs the staleness, tag, and latency-window filters over
// pool, which must already be narrowed to the candidate kinds for the
// active mode.
func applyFilters(pool []description.Server, topo description.Topology, tags description.TagSets, rp *ReadPref, heartbeatFrequency, localThreshold time.Duration) []description.Server {
	if maxStaleness, ok := rp.MaxStaleness(); ok && maxStaleness > 0 {
		pool = filterStaleness(pool, topo, maxStaleness, heartbeatFrequency)
	}
	pool = filterTags(pool, tags)
	pool = filterLatencyWindow(pool, localThreshold)
	return pool
}

// filterStaleness drops secondaries whose estimated staleness exceeds
// maxStaleness. Only meaningful for secondaries in a replica set; other
// server kinds pass through untouched.
func filterStaleness(pool []description.Server, topo description.Topology, maxStaleness, heartbeatFrequency time.Duration) []description.Server {
	var primary *description.Server
	for i := range topo.Servers {
		if topo.Servers[i].Kind == description.RSPrimary {
			primary = &topo.Servers[i]
			break
		}
	}

	var freshest *description.Server
	for i := range pool {
		s := &pool[i]
		if s.Kind != description.RSSecondary {
			continue
		}
		if freshest == nil || s.LastWriteDate.After(freshest.LastWriteDate) {
			freshest = s
		}
	}

	var out []description.Server
	for _, s := range pool {
		if s.Kind != description.RSSecondary {
			out = append(out, s)
			continue
		}

		var staleness time.Duration
		switch {
		case primary != nil:
			staleness = (primary.LastWriteDate.Sub(primary.LastUpdateTime)) -
				(s.LastWriteDate.Sub(s.LastUpdateTime)) + heartbeatFrequency
		case freshest != nil:
			staleness = (freshest.LastWriteDate.Sub(freshest.LastUpdateTime)) -
				(s.LastWriteDate.Sub(s.LastUpdateTime)) + heartbeatFrequency
		default:
			staleness = 0
		}

		if staleness <= maxStaleness {
			out = append(out, s)
		}
	}
	return out
}

// filterTags keeps only servers matching the first tag map in the ordered
// list for which at least one server matches.
func filterTags(pool []description.Server, tagSets description.TagSets) []description.Server {
	if tagSets.IsEmptyOrDefault() {
		return pool
	}
	for _, want := range tagSets {
		var matched []description.Server
		for _, s := range pool {
			if s.Tags.ContainsAll(want) {
				matched = append(matched, s)
			}
		}
		if len(matched) > 0 {
			return matched
		}
	}
	return nil
}

// filterLatencyWindow keeps only servers within localThreshold of the
// lowest average RTT in pool.
func filterLatencyWindow(pool []description.Server, localThreshold time.Duration) []description.Server {
	if len(pool) == 0 {
		return pool
	}
	min := pool[0].AverageRTT
	for _, s := range pool[1:] {
		if s.AverageRTT < min {
			min = s.AverageRTT
		}
	}
	var out []description.Server
	for _, s := range pool {
		if s.AverageRTT <= min+localThreshold {
			out = append(out, s)
		}
	}
	return out
}
