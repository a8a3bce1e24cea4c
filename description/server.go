package description

import (
	"time"

	"github.com/clustermonitor/sdam/address"
)

// rttAlpha is the EWMA smoothing factor used for round-trip time:
// rtt_new = alpha*sample + (1-alpha)*rtt_prev.
const rttAlpha = 0.2

// HeartbeatReply is the decoded isMaster/hello document the monitor fleet
// hands to ParseHeartbeat. The wire protocol used to obtain it is out of
// scope for this module; callers are expected to have already turned the
// server's raw reply into this shape.
type HeartbeatReply struct {
	OK                            bool
	Msg                           string
	IsMaster                      bool
	Secondary                     bool
	ArbiterOnly                   bool
	Hidden                        bool
	IsReplicaSet                  bool
	SetName                       string
	SetVersion                    *SetVersion
	ElectionID                    *ElectionID
	Primary                       string
	Me                            string
	Hosts                         []string
	Passives                      []string
	Arbiters                      []string
	Tags                          Tags
	MinWireVersion                int32
	MaxWireVersion                int32
	LastWriteDate                 time.Time
	OpTime                        string
	LogicalSessionTimeoutMinutes  *int64
}

// Server is the immutable description of a single server, built from one
// heartbeat outcome. Values are compared for change detection with Equal,
// which ignores RTT, LastUpdateTime, and Error.
type Server struct {
	Address address.Address
	Kind    ServerKind
	Error   error

	AverageRTT    time.Duration
	AverageRTTSet bool

	MinWireVersion int32
	MaxWireVersion int32

	Me        address.Address
	Hosts     address.Set
	Passives  address.Set
	Arbiters  address.Set
	Tags      Tags

	SetName    string
	SetVersion *SetVersion
	ElectionID *ElectionID
	Primary    address.Address

	LastWriteDate time.Time
	OpTime        string

	LastUpdateTime time.Time

	LogicalSessionTimeoutMinutes *int64
}

// NewDefaultServer returns the description used for a server known only from
// configuration (a seed that has not yet had a successful heartbeat): kind
// Unknown, no RTT.
func NewDefaultServer(addr address.Address) Server {
	return Server{
		Address:        addr.Canonicalize(),
		Kind:           Unknown,
		LastUpdateTime: time.Now(),
	}
}

// classify derives a ServerKind from a heartbeat reply's fields; applied
// only when reply.OK is true.
func classify(reply HeartbeatReply) ServerKind {
	switch {
	case reply.Msg == "isdbgrid":
		return Mongos
	case reply.SetName == "" && !reply.IsReplicaSet && reply.Msg == "":
		return Standalone
	case reply.SetName != "":
		switch {
		case reply.IsMaster:
			return RSPrimary
		case reply.Secondary:
			return RSSecondary
		case reply.ArbiterOnly:
			return RSArbiter
		case reply.Hidden:
			return RSOther
		default:
			return Unknown
		}
	case reply.IsReplicaSet:
		return RSGhost
	default:
		return Unknown
	}
}

// ParseHeartbeat is the single pure parsing function Design Note §9 calls
// for: given the fields of one heartbeat outcome (address, reply, latency and
// probe error) and the previous description for the same address (used only
// for EWMA RTT), it returns a fresh, complete Server. No partial state
// escapes this function.
func ParseHeartbeat(addr address.Address, reply *HeartbeatReply, latency time.Duration, probeErr error, prev Server) Server {
	addr = addr.Canonicalize()
	now := time.Now()

	if probeErr != nil || reply == nil || !reply.OK {
		return Server{
			Address:        addr,
			Kind:           Unknown,
			Error:          probeErr,
			LastUpdateTime: now,
		}
	}

	kind := classify(*reply)

	s := Server{
		Address:        addr,
		Kind:           kind,
		MinWireVersion: reply.MinWireVersion,
		MaxWireVersion: reply.MaxWireVersion,
		Me:             address.Address(reply.Me).Canonicalize(),
		Hosts:          address.NewSet(reply.Hosts),
		Passives:       address.NewSet(reply.Passives),
		Arbiters:       address.NewSet(reply.Arbiters),
		Tags:           reply.Tags.Clone(),
		SetName:        reply.SetName,
		SetVersion:     reply.SetVersion,
		ElectionID:     reply.ElectionID,
		Primary:        address.Address(reply.Primary).Canonicalize(),
		LastWriteDate:  reply.LastWriteDate,
		OpTime:         reply.OpTime,
		LastUpdateTime: now,

		LogicalSessionTimeoutMinutes: reply.LogicalSessionTimeoutMinutes,
	}

	s.AverageRTT, s.AverageRTTSet = ewma(prev, latency)

	return s
}

// ewma computes the smoothed round-trip time for a fresh successful sample,
// carrying the previous average forward unless the previous description was
// Unknown, in which case RTT tracking restarts from scratch.
func ewma(prev Server, sample time.Duration) (time.Duration, bool) {
	if prev.Kind == Unknown || !prev.AverageRTTSet {
		return sample, true
	}
	smoothed := time.Duration(rttAlpha*float64(sample) + (1-rttAlpha)*float64(prev.AverageRTT))
	return smoothed, true
}

// Equal reports whether two Server values are equivalent for the purposes of
// change detection -- every field except AverageRTT/AverageRTTSet,
// LastUpdateTime, and Error.
func (s Server) Equal(other Server) bool {
	if s.Address != other.Address || s.Kind != other.Kind {
		return false
	}
	if s.MinWireVersion != other.MinWireVersion || s.MaxWireVersion != other.MaxWireVersion {
		return false
	}
	if s.Me != other.Me || s.SetName != other.SetName || s.Primary != other.Primary {
		return false
	}
	if !setVersionEqual(s.SetVersion, other.SetVersion) || !electionIDEqual(s.ElectionID, other.ElectionID) {
		return false
	}
	if !addressSetsEqual(s.Hosts, other.Hosts) || !addressSetsEqual(s.Passives, other.Passives) || !addressSetsEqual(s.Arbiters, other.Arbiters) {
		return false
	}
	if !s.Tags.Equal(other.Tags) {
		return false
	}
	if !s.LastWriteDate.Equal(other.LastWriteDate) || s.OpTime != other.OpTime {
		return false
	}
	if !int64PtrEqual(s.LogicalSessionTimeoutMinutes, other.LogicalSessionTimeoutMinutes) {
		return false
	}
	return true
}

func setVersionEqual(a, b *SetVersion) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func electionIDEqual(a, b *ElectionID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func addressSetsEqual(a, b address.Set) bool {
	if len(a) != len(b) {
		return false
	}
	for addr := range a {
		if !b.Contains(addr) {
			return false
		}
	}
	return true
}
