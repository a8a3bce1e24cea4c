// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/clustermonitor/sdam/address"
	"github.com/clustermonitor/sdam/event"
	"github.com/clustermonitor/sdam/internal/logger"
	"github.com/clustermonitor/sdam/internal/metrics"
)

// fleet owns the set of per-server monitors: membership tracks ServerAdded/
// ServerRemoved events from the manager, one monitor goroutine per address.
type fleet struct {
	mu         sync.Mutex
	topologyID string
	prober     Prober
	cfg        Config
	outcomes   chan<- HeartbeatOutcome
	publish    func(event.Event)
	metrics    *metrics.Metrics
	log        *logger.Logger
	monitors   map[address.Address]*monitor
	closed     bool
}

func newFleet(topologyID string, prober Prober, cfg Config, outcomes chan<- HeartbeatOutcome, publish func(event.Event), m *metrics.Metrics, log *logger.Logger) *fleet {
	return &fleet{
		topologyID: topologyID,
		prober:     prober,
		cfg:        cfg,
		outcomes:   outcomes,
		publish:    publish,
		metrics:    m,
		log:        log,
		monitors:   make(map[address.Address]*monitor),
	}
}

// add starts a monitor for addr, if one isn't already running.
func (f *fleet) add(addr address.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if _, ok := f.monitors[addr]; ok {
		return
	}
	f.monitors[addr] = newMonitor(addr, f.topologyID, f.prober, f.cfg, f.outcomes, f.publish, f.metrics, f.log)
	f.metrics.SetServersWatched(len(f.monitors))
}

// remove cancels and joins the monitor for addr, if any.
func (f *fleet) remove(addr address.Address) {
	f.mu.Lock()
	m, ok := f.monitors[addr]
	if ok {
		delete(f.monitors, addr)
		f.metrics.SetServersWatched(len(f.monitors))
	}
	f.mu.Unlock()
	if ok {
		m.stop()
	}
}

func (f *fleet) snapshot() []*monitor {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*monitor, 0, len(f.monitors))
	for _, m := range f.monitors {
		out = append(out, m)
	}
	return out
}

// requestImmediateCheck wakes every monitor for an out-of-schedule probe and
// puts it into expedited scheduling; the manager clears expedited mode once
// no waiter remains parked.
func (f *fleet) requestImmediateCheck() {
	for _, m := range f.snapshot() {
		m.setExpedited(true)
		m.requestImmediateCheck()
	}
}

// requestImmediateCheckFor wakes just the monitor for addr, used by
// FailedHost to re-probe a server an application operation just failed
// against.
func (f *fleet) requestImmediateCheckFor(addr address.Address) {
	f.mu.Lock()
	m, ok := f.monitors[addr]
	f.mu.Unlock()
	if ok {
		m.requestImmediateCheck()
	}
}

// setExpedited toggles expedited scheduling fleet-wide. The manager clears
// it once the waiter queue drains.
func (f *fleet) setExpedited(v bool) {
	for _, m := range f.snapshot() {
		m.setExpedited(v)
	}
}

// shutdown cancels every monitor and waits for them to exit, using an
// errgroup to join them concurrently rather than one at a time.
func (f *fleet) shutdown() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	monitors := make([]*monitor, 0, len(f.monitors))
	for _, m := range f.monitors {
		monitors = append(monitors, m)
	}
	f.monitors = nil
	f.mu.Unlock()

	var g errgroup.Group
	for _, m := range monitors {
		m := m
		g.Go(func() error {
			m.stop()
			return nil
		})
	}
	_ = g.Wait()
}
