// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"context"
	"time"

	"github.com/clustermonitor/sdam/address"
	"github.com/clustermonitor/sdam/description"
)

// Prober sends one heartbeat (isMaster/hello) to addr and reports the
// outcome. The wire protocol used to talk to addr is intentionally not this
// package's concern; callers supply whatever Prober fits their transport --
// a real driver connection, a test double, anything that satisfies this
// interface.
type Prober interface {
	Probe(ctx context.Context, addr address.Address) (*description.HeartbeatReply, time.Duration, error)
}

// ProberFunc adapts a plain function to the Prober interface.
type ProberFunc func(ctx context.Context, addr address.Address) (*description.HeartbeatReply, time.Duration, error)

// Probe implements Prober.
func (f ProberFunc) Probe(ctx context.Context, addr address.Address) (*description.HeartbeatReply, time.Duration, error) {
	return f(ctx, addr)
}
