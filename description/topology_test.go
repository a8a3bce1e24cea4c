package description

import (
	"testing"

	"github.com/clustermonitor/sdam/address"
)

func TestCheckInvariantsRejectsMultiplePrimaries(t *testing.T) {
	topo := Topology{
		Kind: ReplicaSetWithPrimary,
		Servers: []Server{
			{Address: "a:1", Kind: RSPrimary},
			{Address: "b:1", Kind: RSPrimary},
		},
	}
	if err := topo.CheckInvariants(); err == nil {
		t.Fatalf("expected invariant violation for two primaries")
	}
}

func TestCheckInvariantsRejectsPrimaryWithWrongKind(t *testing.T) {
	topo := Topology{
		Kind: ReplicaSetNoPrimary,
		Servers: []Server{
			{Address: "a:1", Kind: RSPrimary},
		},
	}
	if err := topo.CheckInvariants(); err == nil {
		t.Fatalf("expected invariant violation when primary present but kind is not ReplicaSetWithPrimary")
	}
}

func TestCheckInvariantsRejectsDuplicateAddress(t *testing.T) {
	topo := Topology{
		Servers: []Server{
			{Address: "a:1", Kind: Unknown},
			{Address: "a:1", Kind: Unknown},
		},
	}
	if err := topo.CheckInvariants(); err == nil {
		t.Fatalf("expected invariant violation for duplicate address")
	}
}

func TestCheckInvariantsSingleMustHaveOneServer(t *testing.T) {
	topo := Topology{
		Kind:    Single,
		Servers: []Server{{Address: "a:1"}, {Address: "b:1"}},
	}
	if err := topo.CheckInvariants(); err == nil {
		t.Fatalf("expected invariant violation for Single with >1 server")
	}
}

func TestRecomputeDerivedCompatibility(t *testing.T) {
	topo := Topology{
		Servers: []Server{
			{Address: "a:1", Kind: Standalone, MinWireVersion: 100, MaxWireVersion: 999},
		},
	}
	got := topo.RecomputeDerived()
	if got.Compatible {
		t.Fatalf("expected incompatible topology when server min wire version exceeds client support")
	}
	if got.CompatibilityError == nil {
		t.Fatalf("expected a compatibility error to be set")
	}
}

func TestRecomputeDerivedLogicalSessionTimeout(t *testing.T) {
	a := int64(10)
	b := int64(5)
	topo := Topology{
		Servers: []Server{
			{Address: "a:1", Kind: RSPrimary, LogicalSessionTimeoutMinutes: &a},
			{Address: "b:1", Kind: RSSecondary, LogicalSessionTimeoutMinutes: &b},
			{Address: "c:1", Kind: Unknown},
		},
	}
	got := topo.RecomputeDerived()
	if got.LogicalSessionTimeoutMinutes == nil || *got.LogicalSessionTimeoutMinutes != 5 {
		t.Fatalf("expected min session timeout 5, got %v", got.LogicalSessionTimeoutMinutes)
	}
}

func TestRecomputeDerivedLogicalSessionTimeoutNilIfAnyMissing(t *testing.T) {
	a := int64(10)
	topo := Topology{
		Servers: []Server{
			{Address: "a:1", Kind: RSPrimary, LogicalSessionTimeoutMinutes: &a},
			{Address: "b:1", Kind: RSSecondary, LogicalSessionTimeoutMinutes: nil},
		},
	}
	got := topo.RecomputeDerived()
	if got.LogicalSessionTimeoutMinutes != nil {
		t.Fatalf("expected nil session timeout when a data-bearing server lacks one")
	}
}

func TestWithServerAndWithoutServer(t *testing.T) {
	topo := NewTopology("t1", TopologyUnknown, "", []address.Address{"a:1"})
	topo = topo.withServer(Server{Address: "b:1", Kind: Unknown})
	if _, ok := topo.Server("b:1"); !ok {
		t.Fatalf("expected b:1 to be added")
	}
	topo = topo.withoutServer("a:1")
	if _, ok := topo.Server("a:1"); ok {
		t.Fatalf("expected a:1 to be removed")
	}
}

func TestTopologyEqual(t *testing.T) {
	a := Topology{Kind: Single, Servers: []Server{{Address: "a:1", Kind: Standalone}}}
	b := Topology{Kind: Single, Servers: []Server{{Address: "a:1", Kind: Standalone, AverageRTT: 99}}}
	if !a.Equal(b) {
		t.Fatalf("expected equal topologies (RTT excluded)")
	}
}
