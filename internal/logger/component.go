// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

// Component names a subsystem of the SDAM core, for independent level
// control -- e.g. a caller may want LevelDebug for server selection without
// drowning in per-heartbeat topology chatter.
type Component int

// The components that emit log messages.
const (
	ComponentTopology Component = iota
	ComponentMonitor
	ComponentSelection
)

const (
	componentEnvVarAll       = "SDAM_LOG_ALL"
	componentEnvVarTopology  = "SDAM_LOG_TOPOLOGY"
	componentEnvVarMonitor   = "SDAM_LOG_MONITOR"
	componentEnvVarSelection = "SDAM_LOG_SELECTION"
)

var componentEnvVars = map[string]Component{
	componentEnvVarTopology:  ComponentTopology,
	componentEnvVarMonitor:   ComponentMonitor,
	componentEnvVarSelection: ComponentSelection,
}

// ComponentMessage is a single structured log message tagged with the
// component that produced it.
type ComponentMessage interface {
	Component() Component
	Message() string
	KeysAndValues() []interface{}
}

// MessageDropped is logged in place of a message that could not be queued
// because the logger's job buffer was full.
type MessageDropped struct {
	DroppedComponent Component
}

// Component implements ComponentMessage.
func (m *MessageDropped) Component() Component { return m.DroppedComponent }

// Message implements ComponentMessage.
func (m *MessageDropped) Message() string { return "Log message dropped: buffer full" }

// KeysAndValues implements ComponentMessage.
func (m *MessageDropped) KeysAndValues() []interface{} { return nil }
