package description

// ServerKind represents the type of a single server, as classified from a
// heartbeat outcome. See ParseHeartbeat.
type ServerKind uint32

// The complete set of server types in the SDAM data model.
const (
	Unknown ServerKind = iota
	Standalone
	Mongos
	RSPrimary
	RSSecondary
	RSArbiter
	RSOther
	RSGhost
)

// DataBearing reports whether servers of this kind hold application data and
// therefore participate in logical-session-timeout and staleness
// calculations.
func (k ServerKind) DataBearing() bool {
	switch k {
	case Standalone, Mongos, RSPrimary, RSSecondary:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (k ServerKind) String() string {
	switch k {
	case Standalone:
		return "Standalone"
	case Mongos:
		return "Mongos"
	case RSPrimary:
		return "RSPrimary"
	case RSSecondary:
		return "RSSecondary"
	case RSArbiter:
		return "RSArbiter"
	case RSOther:
		return "RSOther"
	case RSGhost:
		return "RSGhost"
	default:
		return "Unknown"
	}
}

// TopologyKind represents the type of the overall deployment being watched.
type TopologyKind uint32

// The complete set of topology types in the SDAM data model.
const (
	TopologyUnknown TopologyKind = iota
	Single
	Sharded
	ReplicaSetNoPrimary
	ReplicaSetWithPrimary
)

// String implements fmt.Stringer.
func (k TopologyKind) String() string {
	switch k {
	case Single:
		return "Single"
	case Sharded:
		return "Sharded"
	case ReplicaSetNoPrimary:
		return "ReplicaSetNoPrimary"
	case ReplicaSetWithPrimary:
		return "ReplicaSetWithPrimary"
	default:
		return "Unknown"
	}
}

// ReplicaSetMember reports whether a server of this kind is tracked as part
// of a named replica set (i.e. participates in set-name agreement checks).
func (k ServerKind) ReplicaSetMember() bool {
	switch k {
	case RSPrimary, RSSecondary, RSArbiter, RSOther:
		return true
	default:
		return false
	}
}
