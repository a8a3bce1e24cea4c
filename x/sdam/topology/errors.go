// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"errors"

	"github.com/clustermonitor/sdam/description"
	"github.com/clustermonitor/sdam/readpref"
)

// Construction-time configuration errors.
var (
	ErrInvalidSeedList          = errors.New("topology: seed list must contain at least one address")
	ErrInvalidTopologyType      = errors.New("topology: unrecognized initial topology type")
	ErrInvalidHeartbeatFrequency = errors.New("topology: heartbeat frequency must be at least the minimum heartbeat interval")
)

// ErrShuttingDown is returned by Manager operations invoked after Close has
// been called.
var ErrShuttingDown = errors.New("topology: manager is shutting down")

// ErrIncompatibleServerVersion is returned from selection when the topology
// contains a server outside this driver's supported wire version range.
var ErrIncompatibleServerVersion = description.ErrIncompatibleServerVersion

// ErrFailedToSatisfyReadPreference is returned from selection when the
// caller's deadline elapses without a matching server appearing.
var ErrFailedToSatisfyReadPreference = readpref.ErrFailedToSatisfyReadPreference
