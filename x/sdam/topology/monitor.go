// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clustermonitor/sdam/address"
	"github.com/clustermonitor/sdam/description"
	"github.com/clustermonitor/sdam/event"
	"github.com/clustermonitor/sdam/internal/logger"
	"github.com/clustermonitor/sdam/internal/metrics"
)

// HeartbeatOutcome is what a SingleServerMonitor hands the manager after
// every probe: either a reply and its latency, or an error. It is the input
// to description.ParseHeartbeat once the manager pairs it with the previous
// description for the same address.
type HeartbeatOutcome struct {
	Address address.Address
	Reply   *description.HeartbeatReply
	Latency time.Duration
	Err     error
}

// monitor runs one goroutine per address, probing on a schedule that can be
// expedited to minHeartbeatFrequency, and publishes each outcome to a
// channel instead of calling back into an owning object.
type monitor struct {
	addr       address.Address
	topologyID string
	prober     Prober
	cfg        Config
	outcomes   chan<- HeartbeatOutcome
	publish    func(event.Event)
	metrics    *metrics.Metrics
	log        *logger.Logger

	checkNow  chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	expedited atomic.Bool
}

func newMonitor(addr address.Address, topologyID string, prober Prober, cfg Config, outcomes chan<- HeartbeatOutcome, publish func(event.Event), m *metrics.Metrics, log *logger.Logger) *monitor {
	mon := &monitor{
		addr:       addr,
		topologyID: topologyID,
		prober:     prober,
		cfg:        cfg,
		outcomes:   outcomes,
		publish:    publish,
		metrics:    m,
		log:        log,
		checkNow:   make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	mon.wg.Add(1)
	go mon.run()
	return mon
}

func (m *monitor) run() {
	defer m.wg.Done()

	last := time.Now()
	m.probeOnce()

	ticker := time.NewTicker(m.interval())
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-m.checkNow:
		case <-ticker.C:
		}

		select {
		case <-m.done:
			return
		default:
		}

		// Rate-limit: never probe faster than minHeartbeatFrequency, even
		// when an immediate check arrives hot on the heels of the last probe.
		if since := time.Since(last); since < minHeartbeatFrequency {
			select {
			case <-time.After(minHeartbeatFrequency - since):
			case <-m.done:
				return
			}
		}

		last = time.Now()
		m.probeOnce()
		ticker.Reset(m.interval())
	}
}

func (m *monitor) interval() time.Duration {
	if m.expedited.Load() {
		return minHeartbeatFrequency
	}
	return m.cfg.HeartbeatFrequency
}

func (m *monitor) probeOnce() {
	m.publish(event.Event{Kind: event.ServerHeartbeatStarted, TopologyID: m.topologyID, Address: m.addr})

	ctx := context.Background()
	if total := m.cfg.ConnectTimeout + m.cfg.SocketTimeout; total > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, total)
		defer cancel()
	}

	start := time.Now()
	reply, latency, err := m.prober.Probe(ctx, m.addr)
	if latency == 0 {
		latency = time.Since(start)
	}

	outcome := "success"
	kind := event.ServerHeartbeatSucceeded
	if err != nil {
		outcome = "failure"
		kind = event.ServerHeartbeatFailed
	}
	m.metrics.ObserveHeartbeat(string(m.addr), outcome, latency.Seconds())
	m.publish(event.Event{Kind: kind, TopologyID: m.topologyID, Address: m.addr, Duration: latency, Err: err})
	m.log.Print(logger.LevelDebug, &heartbeatMessage{topologyID: m.topologyID, address: m.addr, outcome: outcome, err: err})

	select {
	case m.outcomes <- HeartbeatOutcome{Address: m.addr, Reply: reply, Latency: latency, Err: err}:
	case <-m.done:
	}
}

// requestImmediateCheck wakes the monitor for an out-of-schedule probe. At
// most one request is buffered: a request made while another is still
// pending is absorbed. A request made while a probe is in flight is not
// absorbed; it causes one further probe after the current one, subject to
// the minHeartbeatFrequency rate limit.
func (m *monitor) requestImmediateCheck() {
	select {
	case m.checkNow <- struct{}{}:
	default:
	}
}

func (m *monitor) setExpedited(v bool) { m.expedited.Store(v) }

func (m *monitor) stop() {
	close(m.done)
	m.wg.Wait()
}
