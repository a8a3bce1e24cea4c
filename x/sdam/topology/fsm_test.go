package topology

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/clustermonitor/sdam/address"
	"github.com/clustermonitor/sdam/description"
)

// serverKinds extracts a map from address to kind, ignoring RTT and
// timestamps, for cmp-based assertions about the shape of a topology.
func serverKinds(topo description.Topology) map[address.Address]description.ServerKind {
	out := make(map[address.Address]description.ServerKind, len(topo.Servers))
	for _, s := range topo.Servers {
		out[s.Address] = s.Kind
	}
	return out
}

func sv(v int64) *description.SetVersion {
	sv := description.SetVersion(v)
	return &sv
}

func eid(b byte) *description.ElectionID {
	var e description.ElectionID
	e[len(e)-1] = b
	return &e
}

// Scenario 1: discovery from a single seed.
func TestDiscoveryFromSingleSeed(t *testing.T) {
	sm := NewStateMachine()
	topo := description.NewTopology("t1", description.TopologyUnknown, "", []address.Address{"a:1"})

	primary := description.Server{
		Address: "a:1",
		Kind:    description.RSPrimary,
		SetName: "rs",
		Hosts:   address.NewSet([]string{"a:1", "b:1", "c:1"}),
		Primary: "a:1",
	}
	topo = sm.Apply(topo, primary)

	if topo.Kind != description.ReplicaSetWithPrimary {
		t.Fatalf("expected ReplicaSetWithPrimary, got %s", topo.Kind)
	}
	if len(topo.Servers) != 3 {
		t.Fatalf("expected 3 servers, got %d: %v", len(topo.Servers), topo.Servers)
	}
	a, _ := topo.Server("a:1")
	if a.Kind != description.RSPrimary {
		t.Fatalf("expected a:1 to be RSPrimary, got %s", a.Kind)
	}
	for _, addr := range []address.Address{"b:1", "c:1"} {
		s, ok := topo.Server(addr)
		if !ok || s.Kind != description.Unknown {
			t.Fatalf("expected %s to be present and Unknown, got %+v (ok=%v)", addr, s, ok)
		}
	}
}

// Scenario 2: primary failover.
func TestPrimaryFailover(t *testing.T) {
	sm := NewStateMachine()
	topo := description.NewTopology("t1", description.TopologyUnknown, "", []address.Address{"a:1"})
	topo = sm.Apply(topo, description.Server{
		Address: "a:1", Kind: description.RSPrimary, SetName: "rs",
		Hosts: address.NewSet([]string{"a:1", "b:1", "c:1"}), Primary: "a:1",
		SetVersion: sv(1), ElectionID: eid(1),
	})

	// a:1 fails.
	topo = sm.Apply(topo, description.Server{Address: "a:1", Kind: description.Unknown})
	if topo.Kind != description.ReplicaSetNoPrimary {
		t.Fatalf("expected ReplicaSetNoPrimary after primary failure, got %s", topo.Kind)
	}

	// b:1 takes over.
	topo = sm.Apply(topo, description.Server{
		Address: "b:1", Kind: description.RSPrimary, SetName: "rs",
		Hosts: address.NewSet([]string{"a:1", "b:1", "c:1"}), Primary: "b:1",
		SetVersion: sv(2), ElectionID: eid(2),
	})
	if topo.Kind != description.ReplicaSetWithPrimary {
		t.Fatalf("expected ReplicaSetWithPrimary, got %s", topo.Kind)
	}
	if *topo.MaxSetVersion != 2 {
		t.Fatalf("expected max set version 2, got %d", *topo.MaxSetVersion)
	}
	b, _ := topo.Server("b:1")
	if b.Kind != description.RSPrimary {
		t.Fatalf("expected b:1 to be primary, got %s", b.Kind)
	}
}

// Scenario 3: stale primary rejected.
func TestStalePrimaryRejected(t *testing.T) {
	sm := NewStateMachine()
	topo := description.NewTopology("t1", description.TopologyUnknown, "", []address.Address{"a:1"})
	topo = sm.Apply(topo, description.Server{
		Address: "a:1", Kind: description.RSPrimary, SetName: "rs",
		Hosts: address.NewSet([]string{"a:1", "b:1", "c:1"}), Primary: "a:1",
		SetVersion: sv(1), ElectionID: eid(1),
	})
	topo = sm.Apply(topo, description.Server{Address: "a:1", Kind: description.Unknown})
	topo = sm.Apply(topo, description.Server{
		Address: "b:1", Kind: description.RSPrimary, SetName: "rs",
		Hosts: address.NewSet([]string{"a:1", "b:1", "c:1"}), Primary: "b:1",
		SetVersion: sv(2), ElectionID: eid(2),
	})

	before := topo

	// a:1 resurfaces claiming an older election.
	topo = sm.Apply(topo, description.Server{
		Address: "a:1", Kind: description.RSPrimary, SetName: "rs",
		Hosts: address.NewSet([]string{"a:1", "b:1", "c:1"}), Primary: "a:1",
		SetVersion: sv(1), ElectionID: eid(1),
	})

	a, _ := topo.Server("a:1")
	if a.Kind != description.Unknown {
		t.Fatalf("expected stale primary to be treated as Unknown, got %s", a.Kind)
	}
	if topo.Kind != description.ReplicaSetWithPrimary {
		t.Fatalf("expected topology to remain ReplicaSetWithPrimary, got %s", topo.Kind)
	}
	if *topo.MaxSetVersion != *before.MaxSetVersion {
		t.Fatalf("expected max set version unchanged at %d, got %d", *before.MaxSetVersion, *topo.MaxSetVersion)
	}
	b, _ := topo.Server("b:1")
	if b.Kind != description.RSPrimary {
		t.Fatalf("expected b:1 to remain primary, got %s", b.Kind)
	}
}

// Scenario 4: mongos discovery.
func TestMongosDiscovery(t *testing.T) {
	sm := NewStateMachine()
	topo := description.NewTopology("t1", description.TopologyUnknown, "", []address.Address{"m1:1", "m2:1"})

	topo = sm.Apply(topo, description.Server{Address: "m1:1", Kind: description.Mongos})
	topo = sm.Apply(topo, description.Server{Address: "m2:1", Kind: description.Mongos})

	if topo.Kind != description.Sharded {
		t.Fatalf("expected Sharded, got %s", topo.Kind)
	}
	for _, addr := range []address.Address{"m1:1", "m2:1"} {
		s, ok := topo.Server(addr)
		if !ok || s.Kind != description.Mongos {
			t.Fatalf("expected %s to be Mongos, got %+v (ok=%v)", addr, s, ok)
		}
	}
}

func TestStandaloneJoiningMultiSeedTopologyIsRemoved(t *testing.T) {
	sm := NewStateMachine()
	topo := description.NewTopology("t1", description.TopologyUnknown, "", []address.Address{"a:1", "b:1"})
	topo = sm.Apply(topo, description.Server{Address: "a:1", Kind: description.Standalone})
	if _, ok := topo.Server("a:1"); ok {
		t.Fatalf("expected standalone report to be removed from a multi-seed topology")
	}
	if topo.Kind != description.TopologyUnknown {
		t.Fatalf("expected topology to remain Unknown, got %s", topo.Kind)
	}
}

func TestStandaloneFromSingleSeedBecomesSingle(t *testing.T) {
	sm := NewStateMachine()
	topo := description.NewTopology("t1", description.TopologyUnknown, "", []address.Address{"a:1"})
	topo = sm.Apply(topo, description.Server{Address: "a:1", Kind: description.Standalone})
	if topo.Kind != description.Single {
		t.Fatalf("expected Single, got %s", topo.Kind)
	}
}

func TestMemberReportUnderReplicaSetWithPrimaryKeepsPrimary(t *testing.T) {
	sm := NewStateMachine()
	topo := description.NewTopology("t1", description.TopologyUnknown, "", []address.Address{"a:1"})
	topo = sm.Apply(topo, description.Server{
		Address: "a:1", Kind: description.RSPrimary, SetName: "rs",
		Hosts: address.NewSet([]string{"a:1", "b:1"}), Primary: "a:1",
	})
	topo = sm.Apply(topo, description.Server{
		Address: "b:1", Kind: description.RSSecondary, SetName: "rs",
		Hosts: address.NewSet([]string{"a:1", "b:1"}), Me: "b:1",
	})
	if topo.Kind != description.ReplicaSetWithPrimary {
		t.Fatalf("expected topology to remain ReplicaSetWithPrimary, got %s", topo.Kind)
	}
	b, _ := topo.Server("b:1")
	if b.Kind != description.RSSecondary {
		t.Fatalf("expected b:1 to be RSSecondary, got %s", b.Kind)
	}
}

// TestFullReplicaSetShape runs a primary plus two members through the
// machine and diffs the resulting (address -> kind) shape against what's
// expected in one go, rather than asserting field by field.
func TestFullReplicaSetShape(t *testing.T) {
	sm := NewStateMachine()
	topo := description.NewTopology("t1", description.TopologyUnknown, "", []address.Address{"a:1"})

	topo = sm.Apply(topo, description.Server{
		Address: "a:1", Kind: description.RSPrimary, SetName: "rs",
		Hosts: address.NewSet([]string{"a:1", "b:1", "c:1"}), Primary: "a:1",
		SetVersion: sv(1), ElectionID: eid(1),
	})
	topo = sm.Apply(topo, description.Server{
		Address: "b:1", Kind: description.RSSecondary, SetName: "rs",
		Hosts: address.NewSet([]string{"a:1", "b:1", "c:1"}), Me: "b:1",
	})
	topo = sm.Apply(topo, description.Server{
		Address: "c:1", Kind: description.RSArbiter, SetName: "rs",
		Hosts: address.NewSet([]string{"a:1", "b:1", "c:1"}), Me: "c:1",
	})

	want := map[address.Address]description.ServerKind{
		"a:1": description.RSPrimary,
		"b:1": description.RSSecondary,
		"c:1": description.RSArbiter,
	}
	if diff := cmp.Diff(want, serverKinds(topo)); diff != "" {
		t.Fatalf("unexpected server kinds (-want +got):\n%s", diff)
	}
	if topo.Kind != description.ReplicaSetWithPrimary {
		t.Fatalf("expected ReplicaSetWithPrimary, got %s", topo.Kind)
	}
}
