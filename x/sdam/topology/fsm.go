// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package topology implements the SDAM topology state machine, the monitor
// fleet that feeds it, and the manager facade that serializes updates and
// answers server selection requests.
package topology

import (
	"github.com/clustermonitor/sdam/address"
	"github.com/clustermonitor/sdam/description"
)

type transitionFunc func(description.Topology, description.Server) description.Topology

// StateMachine is the pure (topology, incoming server) -> topology
// transition table. It holds no state of its own; Apply is safe to call
// concurrently.
type StateMachine struct {
	table map[description.TopologyKind]map[description.ServerKind]transitionFunc
}

// NewStateMachine builds the transition table once.
func NewStateMachine() *StateMachine {
	memberKinds := []description.ServerKind{description.RSSecondary, description.RSArbiter, description.RSOther}

	unknownRow := map[description.ServerKind]transitionFunc{
		description.Standalone: updateUnknownWithStandalone,
		description.Mongos:     toSharded,
		description.RSPrimary:  updateRSFromPrimary,
		description.RSGhost:    storeServer,
		description.Unknown:    storeServer,
	}
	for _, k := range memberKinds {
		unknownRow[k] = updateRSWithoutPrimary
	}

	shardedRow := map[description.ServerKind]transitionFunc{
		description.Standalone: removeServer,
		description.Mongos:     storeServer,
		description.RSPrimary:  removeServer,
		description.RSGhost:    removeServer,
		description.Unknown:    storeServer,
	}
	for _, k := range memberKinds {
		shardedRow[k] = removeServer
	}

	rsNoPrimaryRow := map[description.ServerKind]transitionFunc{
		description.Standalone: removeServer,
		description.Mongos:     removeServer,
		description.RSPrimary:  updateRSFromPrimary,
		description.RSGhost:    storeServer,
		description.Unknown:    storeServer,
	}
	for _, k := range memberKinds {
		rsNoPrimaryRow[k] = updateRSWithoutPrimary
	}

	rsWithPrimaryRow := map[description.ServerKind]transitionFunc{
		description.Standalone: removeThenCheckPrimary,
		description.Mongos:     removeThenCheckPrimary,
		description.RSPrimary:  updateRSFromPrimary,
		description.RSGhost:    storeThenCheckPrimary,
		description.Unknown:    storeThenCheckPrimary,
	}
	for _, k := range memberKinds {
		rsWithPrimaryRow[k] = updateRSWithPrimaryFromMember
	}

	return &StateMachine{table: map[description.TopologyKind]map[description.ServerKind]transitionFunc{
		description.TopologyUnknown:       unknownRow,
		description.Sharded:               shardedRow,
		description.ReplicaSetNoPrimary:   rsNoPrimaryRow,
		description.ReplicaSetWithPrimary: rsWithPrimaryRow,
	}}
}

// Apply runs one transition: given the current topology and a freshly
// parsed server description, it returns the next topology, with
// Compatible/CompatibilityError/LogicalSessionTimeoutMinutes recomputed.
// Cells the table doesn't list are no-ops (the topology is returned
// unchanged, modulo the derived-field recompute).
func (sm *StateMachine) Apply(topo description.Topology, sdesc description.Server) description.Topology {
	row, ok := sm.table[topo.Kind]
	if !ok {
		return topo.RecomputeDerived()
	}
	action, ok := row[sdesc.Kind]
	if !ok {
		return topo.RecomputeDerived()
	}
	return action(topo, sdesc).RecomputeDerived()
}

func storeServer(topo description.Topology, sdesc description.Server) description.Topology {
	return topo.WithServer(sdesc)
}

func removeServer(topo description.Topology, sdesc description.Server) description.Topology {
	return topo.WithoutServer(sdesc.Address)
}

func removeThenCheckPrimary(topo description.Topology, sdesc description.Server) description.Topology {
	return checkIfHasPrimary(topo.WithoutServer(sdesc.Address))
}

func storeThenCheckPrimary(topo description.Topology, sdesc description.Server) description.Topology {
	return checkIfHasPrimary(topo.WithServer(sdesc))
}

func toSharded(topo description.Topology, sdesc description.Server) description.Topology {
	next := topo.WithServer(sdesc)
	next.Kind = description.Sharded
	return next
}

// updateUnknownWithStandalone handles a standalone reply: a standalone can
// only join a topology that knows of no other server.
func updateUnknownWithStandalone(topo description.Topology, sdesc description.Server) description.Topology {
	if len(topo.Servers) > 1 {
		return topo.WithoutServer(sdesc.Address)
	}
	next := topo.WithServer(sdesc)
	next.Kind = description.Single
	return next
}

// checkIfHasPrimary demotes the topology to ReplicaSetNoPrimary if no
// server currently reports itself as RSPrimary, or promotes it to
// ReplicaSetWithPrimary otherwise.
func checkIfHasPrimary(topo description.Topology) description.Topology {
	for _, s := range topo.Servers {
		if s.Kind == description.RSPrimary {
			topo.Kind = description.ReplicaSetWithPrimary
			return topo
		}
	}
	topo.Kind = description.ReplicaSetNoPrimary
	return topo
}

// reconcileMembership adds any address in sdesc's hosts/passives/arbiters
// union that isn't already known (as Unknown), leaving topo.Kind untouched.
// Shared by updateRSWithoutPrimary and updateRSWithPrimaryFromMember.
func reconcileMembership(topo description.Topology, sdesc description.Server) description.Topology {
	next := topo.WithServer(sdesc)
	for _, a := range address.Union(sdesc.Hosts, sdesc.Passives, sdesc.Arbiters) {
		if _, ok := next.Server(a); !ok {
			next = next.WithServer(description.NewDefaultServer(a))
		}
	}
	return next
}

// updateRSWithoutPrimary handles a secondary/arbiter/other member update
// when the topology has no known primary.
func updateRSWithoutPrimary(topo description.Topology, sdesc description.Server) description.Topology {
	if topo.SetName != "" && sdesc.SetName != "" && topo.SetName != sdesc.SetName {
		next := topo.WithoutServer(sdesc.Address)
		next.Kind = description.ReplicaSetNoPrimary
		return next
	}
	if sdesc.Me != "" && sdesc.Me != sdesc.Address {
		next := topo.WithoutServer(sdesc.Address)
		next.Kind = description.ReplicaSetNoPrimary
		return next
	}
	if topo.SetName == "" {
		topo.SetName = sdesc.SetName
	}

	next := reconcileMembership(topo, sdesc)
	next.Kind = description.ReplicaSetNoPrimary
	return next
}

// updateRSWithPrimaryFromMember runs the same membership reconciliation as
// updateRSWithoutPrimary but leaves ReplicaSetWithPrimary in place unless
// checkIfHasPrimary finds the primary has actually gone missing.
func updateRSWithPrimaryFromMember(topo description.Topology, sdesc description.Server) description.Topology {
	if topo.SetName != "" && sdesc.SetName != "" && topo.SetName != sdesc.SetName {
		return checkIfHasPrimary(topo.WithoutServer(sdesc.Address))
	}
	if sdesc.Me != "" && sdesc.Me != sdesc.Address {
		return checkIfHasPrimary(topo.WithoutServer(sdesc.Address))
	}
	return checkIfHasPrimary(reconcileMembership(topo, sdesc))
}

// updateRSFromPrimary handles a primary's own update, including the
// (set_version, election_id) monotonicity check that rejects stale primary
// reports.
func updateRSFromPrimary(topo description.Topology, sdesc description.Server) description.Topology {
	if topo.SetName == "" {
		topo.SetName = sdesc.SetName
	} else if sdesc.SetName != "" && topo.SetName != sdesc.SetName {
		return topo.WithoutServer(sdesc.Address)
	}

	if description.CompareSetVersionAndElectionID(sdesc.SetVersion, sdesc.ElectionID, topo.MaxSetVersion, topo.MaxElectionID) < 0 {
		stale := description.Server{Address: sdesc.Address, Kind: description.Unknown, LastUpdateTime: sdesc.LastUpdateTime}
		return topo.WithServer(stale)
	}

	topo.MaxSetVersion = sdesc.SetVersion
	topo.MaxElectionID = sdesc.ElectionID

	next := topo.WithServer(sdesc)
	next.Kind = description.ReplicaSetWithPrimary

	for i := range next.Servers {
		s := &next.Servers[i]
		if s.Kind == description.RSPrimary && s.Address != sdesc.Address {
			*s = description.Server{Address: s.Address, Kind: description.Unknown, LastUpdateTime: s.LastUpdateTime}
		}
	}

	known := make(map[address.Address]struct{})
	for _, a := range address.Union(sdesc.Hosts, sdesc.Passives, sdesc.Arbiters) {
		known[a] = struct{}{}
		if _, ok := next.Server(a); !ok {
			next = next.WithServer(description.NewDefaultServer(a))
		}
	}
	kept := next.Servers[:0]
	for _, s := range next.Servers {
		if s.Address == sdesc.Address {
			kept = append(kept, s)
			continue
		}
		if _, ok := known[s.Address]; ok {
			kept = append(kept, s)
		}
	}
	next.Servers = kept

	return checkIfHasPrimary(next)
}
