package description

import (
	"bytes"
	"fmt"
)

// ElectionID is an opaque, monotonically ordered identifier a replica set
// primary reports on election. It is modeled as a fixed-width byte string --
// the same shape as a BSON ObjectID's bytes -- and compared lexicographically,
// which is sufficient because the server only ever hands out IDs that sort in
// generation order.
type ElectionID [12]byte

// IsZero reports whether this is the unset election id.
func (e ElectionID) IsZero() bool {
	return e == ElectionID{}
}

// Compare returns -1, 0 or 1 as e is less than, equal to, or greater than
// other, using lexicographic byte comparison.
func (e ElectionID) Compare(other ElectionID) int {
	return bytes.Compare(e[:], other[:])
}

// String implements fmt.Stringer.
func (e ElectionID) String() string {
	return fmt.Sprintf("%x", e[:])
}

// SetVersion is the replica set config version reported by a primary.
type SetVersion int64

// CompareSetVersionAndElectionID compares the (setVersion, electionID) pair
// (a, b) against (c, d) lexicographically: setVersion first, electionID as
// tiebreaker. It returns -1, 0, or 1. A nil pointer sorts before any set
// value, matching "this server has not yet reported a version".
func CompareSetVersionAndElectionID(aVersion *SetVersion, aElection *ElectionID, bVersion *SetVersion, bElection *ElectionID) int {
	switch {
	case aVersion == nil && bVersion == nil:
		// fall through to comparing election ids below
	case aVersion == nil:
		return -1
	case bVersion == nil:
		return 1
	case *aVersion != *bVersion:
		if *aVersion < *bVersion {
			return -1
		}
		return 1
	}

	switch {
	case aElection == nil && bElection == nil:
		return 0
	case aElection == nil:
		return -1
	case bElection == nil:
		return 1
	default:
		return aElection.Compare(*bElection)
	}
}

// VersionRange represents an inclusive range of wire protocol versions that
// a server, or the driver itself, supports.
type VersionRange struct {
	Min int32
	Max int32
}

// NewVersionRange constructs a VersionRange.
func NewVersionRange(min, max int32) VersionRange {
	return VersionRange{Min: min, Max: max}
}

// Includes reports whether v is within the range.
func (vr VersionRange) Includes(v int32) bool {
	return v >= vr.Min && v <= vr.Max
}

// Overlaps reports whether the two ranges share at least one version.
func (vr VersionRange) Overlaps(other VersionRange) bool {
	return vr.Min <= other.Max && other.Min <= vr.Max
}

// SupportedWireVersionRange is the range of wire protocol versions this
// driver declares support for. A server whose [MinWireVersion,
// MaxWireVersion] does not overlap this range makes the topology
// incompatible.
var SupportedWireVersionRange = NewVersionRange(0, 21)
