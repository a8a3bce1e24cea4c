// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"github.com/clustermonitor/sdam/address"
	"github.com/clustermonitor/sdam/internal/logger"
)

// topologyChangedMessage is logged at LevelInfo whenever the state machine
// installs a new topology kind.
type topologyChangedMessage struct {
	topologyID string
	prevKind   string
	newKind    string
}

func (m *topologyChangedMessage) Component() logger.Component { return logger.ComponentTopology }
func (m *topologyChangedMessage) Message() string              { return "Topology description changed" }
func (m *topologyChangedMessage) KeysAndValues() []interface{} {
	return []interface{}{"topologyID", m.topologyID, "previousType", m.prevKind, "newType", m.newKind}
}

// heartbeatMessage is logged at LevelDebug for every completed probe.
type heartbeatMessage struct {
	topologyID string
	address    address.Address
	outcome    string
	err        error
}

func (m *heartbeatMessage) Component() logger.Component { return logger.ComponentMonitor }
func (m *heartbeatMessage) Message() string             { return "Server heartbeat completed" }
func (m *heartbeatMessage) KeysAndValues() []interface{} {
	kv := []interface{}{"topologyID", m.topologyID, "address", string(m.address), "outcome", m.outcome}
	if m.err != nil {
		kv = append(kv, "error", m.err.Error())
	}
	return kv
}

// selectionTimeoutMessage is logged at LevelInfo when a parked selection
// call fails to find a matching server before its deadline.
type selectionTimeoutMessage struct {
	topologyID string
}

func (m *selectionTimeoutMessage) Component() logger.Component { return logger.ComponentSelection }
func (m *selectionTimeoutMessage) Message() string              { return "Server selection timed out" }
func (m *selectionTimeoutMessage) KeysAndValues() []interface{} {
	return []interface{}{"topologyID", m.topologyID}
}
