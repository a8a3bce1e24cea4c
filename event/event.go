// Package event holds the topology change events the core publishes to
// collaborators -- the monitor fleet and any application-level observer.
// Delivery is fire-and-forget and happens outside every internal lock, and
// events are expressed as a single typed Event sum rather than a dynamic
// callback list.
package event

import (
	"time"

	"github.com/clustermonitor/sdam/address"
	"github.com/clustermonitor/sdam/description"
)

// Kind identifies which event a Event value carries.
type Kind int

// The complete set of SDAM event kinds.
const (
	TopologyDescriptionChanged Kind = iota
	ServerHeartbeatStarted
	ServerHeartbeatSucceeded
	ServerHeartbeatFailed
	ServerOpening
	ServerClosed
	ServerAdded
	ServerRemoved
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case TopologyDescriptionChanged:
		return "TopologyDescriptionChanged"
	case ServerHeartbeatStarted:
		return "ServerHeartbeatStarted"
	case ServerHeartbeatSucceeded:
		return "ServerHeartbeatSucceeded"
	case ServerHeartbeatFailed:
		return "ServerHeartbeatFailed"
	case ServerOpening:
		return "ServerOpening"
	case ServerClosed:
		return "ServerClosed"
	case ServerAdded:
		return "ServerAdded"
	case ServerRemoved:
		return "ServerRemoved"
	default:
		return "Unknown"
	}
}

// Event is a single SDAM change notification. Only the fields relevant to
// Kind are populated; the rest are zero.
type Event struct {
	Kind       Kind
	TopologyID string
	Address    address.Address
	Duration   time.Duration

	PreviousTopology description.Topology
	NewTopology      description.Topology

	Err error
}

// Listener receives Events. Implementations must not block -- the bus holds
// no lock while calling listeners but a slow listener will still delay the
// delivery of subsequent events to it.
type Listener interface {
	OnSDAMEvent(Event)
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(Event)

// OnSDAMEvent implements Listener.
func (f ListenerFunc) OnSDAMEvent(e Event) { f(e) }
