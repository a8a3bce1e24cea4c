package description

import (
	"fmt"

	"github.com/clustermonitor/sdam/address"
)

// Topology is the immutable, whole-value description of the deployment.
// New versions are produced by the state machine as full replacements; old
// versions remain valid for readers already holding a reference (§3
// lifecycle).
type Topology struct {
	ID string

	Kind TopologyKind

	SetName        string
	MaxSetVersion  *SetVersion
	MaxElectionID  *ElectionID

	Servers []Server

	Compatible         bool
	CompatibilityError error

	LogicalSessionTimeoutMinutes *int64
}

// NewTopology builds the initial Topology from configuration: a seed list,
// an initial kind, and an optional replica set name.
func NewTopology(id string, kind TopologyKind, setName string, seeds []address.Address) Topology {
	servers := make([]Server, 0, len(seeds))
	for _, a := range seeds {
		servers = append(servers, NewDefaultServer(a))
	}
	t := Topology{
		ID:         id,
		Kind:       kind,
		SetName:    setName,
		Servers:    servers,
		Compatible: true,
	}
	return t
}

// Server looks up a server by address. The bool reports whether it is
// present.
func (t Topology) Server(addr address.Address) (Server, bool) {
	for _, s := range t.Servers {
		if s.Address == addr {
			return s, true
		}
	}
	return Server{}, false
}

// indexOf returns the slice index of addr, or -1.
func (t Topology) indexOf(addr address.Address) int {
	for i, s := range t.Servers {
		if s.Address == addr {
			return i
		}
	}
	return -1
}

// Clone returns a deep-enough copy of t suitable for the state machine to
// mutate before the atomic swap: the Servers slice is copied so
// appends/removals don't alias the original.
func (t Topology) Clone() Topology {
	clone := t
	clone.Servers = make([]Server, len(t.Servers))
	copy(clone.Servers, t.Servers)
	return clone
}

// withServer returns a copy of t with addr's description replaced (or
// appended, if not present).
func (t Topology) withServer(s Server) Topology {
	clone := t.Clone()
	if i := clone.indexOf(s.Address); i >= 0 {
		clone.Servers[i] = s
	} else {
		clone.Servers = append(clone.Servers, s)
	}
	return clone
}

// withoutServer returns a copy of t with addr removed, if present.
func (t Topology) withoutServer(addr address.Address) Topology {
	clone := t.Clone()
	out := clone.Servers[:0]
	for _, s := range clone.Servers {
		if s.Address != addr {
			out = append(out, s)
		}
	}
	clone.Servers = out
	return clone
}

// WithServer is the exported form of withServer, used by the state machine
// package to build the next topology version from an action.
func (t Topology) WithServer(s Server) Topology { return t.withServer(s) }

// WithoutServer is the exported form of withoutServer.
func (t Topology) WithoutServer(addr address.Address) Topology { return t.withoutServer(addr) }

// RecomputeDerived recomputes Compatible/CompatibilityError and
// LogicalSessionTimeoutMinutes from the current Servers slice. The state
// machine calls this after every action.
func (t Topology) RecomputeDerived() Topology {
	clone := t
	clone.Compatible, clone.CompatibilityError = checkCompatibility(clone.Servers)
	clone.LogicalSessionTimeoutMinutes = minLogicalSessionTimeout(clone.Servers)
	return clone
}

// checkCompatibility reports whether every server's [MinWireVersion,
// MaxWireVersion] overlaps the driver's SupportedWireVersionRange.
func checkCompatibility(servers []Server) (bool, error) {
	for _, s := range servers {
		if s.Kind == Unknown {
			continue
		}
		sr := NewVersionRange(s.MinWireVersion, s.MaxWireVersion)
		if !sr.Overlaps(SupportedWireVersionRange) {
			var err error
			if s.MaxWireVersion < SupportedWireVersionRange.Min {
				err = fmt.Errorf("server at %s reports wire version max %d, but this client only supports down to %d (you may need to upgrade the server)",
					s.Address, s.MaxWireVersion, SupportedWireVersionRange.Min)
			} else {
				err = fmt.Errorf("server at %s reports wire version min %d, but this client only supports up to %d (you may need to upgrade this client)",
					s.Address, s.MinWireVersion, SupportedWireVersionRange.Max)
			}
			return false, err
		}
	}
	return true, nil
}

// minLogicalSessionTimeout returns the minimum logical session timeout
// across data-bearing servers, or nil if any data-bearing server lacks one.
func minLogicalSessionTimeout(servers []Server) *int64 {
	var min *int64
	any := false
	for _, s := range servers {
		if !s.Kind.DataBearing() {
			continue
		}
		any = true
		if s.LogicalSessionTimeoutMinutes == nil {
			return nil
		}
		if min == nil || *s.LogicalSessionTimeoutMinutes < *min {
			v := *s.LogicalSessionTimeoutMinutes
			min = &v
		}
	}
	if !any {
		return nil
	}
	return min
}

// Equal reports structural equality of two Topology snapshots, by comparing
// each server with Server.Equal -- used by idempotence tests and by the
// manager to decide whether to publish a TopologyDescriptionChanged event.
func (t Topology) Equal(other Topology) bool {
	if t.Kind != other.Kind || t.SetName != other.SetName {
		return false
	}
	if len(t.Servers) != len(other.Servers) {
		return false
	}
	for _, s := range t.Servers {
		os, ok := other.Server(s.Address)
		if !ok || !s.Equal(os) {
			return false
		}
	}
	return true
}

// CheckInvariants validates the structural invariants every Topology value
// must satisfy (at most one primary, canonical addresses, a single server
// when Kind is Single, and so on). It is used only by tests -- the state
// machine is constructed so these always hold, but asserting them directly
// documents the contract.
func (t Topology) CheckInvariants() error {
	seen := make(map[address.Address]struct{}, len(t.Servers))
	primaries := 0
	for _, s := range t.Servers {
		if s.Address != s.Address.Canonicalize() {
			return fmt.Errorf("address %q is not canonical", s.Address)
		}
		if _, dup := seen[s.Address]; dup {
			return fmt.Errorf("duplicate address %q", s.Address)
		}
		seen[s.Address] = struct{}{}
		if s.Kind == RSPrimary {
			primaries++
		}
		if t.SetName != "" && s.Kind.ReplicaSetMember() && s.SetName != "" && s.SetName != t.SetName {
			return fmt.Errorf("server %q set name %q does not match topology set name %q", s.Address, s.SetName, t.SetName)
		}
	}
	if primaries > 1 {
		return fmt.Errorf("topology has %d primaries", primaries)
	}
	if primaries > 0 && t.Kind != ReplicaSetWithPrimary {
		return fmt.Errorf("topology has a primary but kind is %s, not ReplicaSetWithPrimary", t.Kind)
	}
	if t.Kind == Single && len(t.Servers) != 1 {
		return fmt.Errorf("topology kind Single must have exactly one server, has %d", len(t.Servers))
	}
	return nil
}
