// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clustermonitor/sdam/address"
	"github.com/clustermonitor/sdam/description"
	"github.com/clustermonitor/sdam/event"
	"github.com/clustermonitor/sdam/internal/metrics"
)

type countingProber struct {
	calls atomic.Int64
}

func (p *countingProber) Probe(ctx context.Context, addr address.Address) (*description.HeartbeatReply, time.Duration, error) {
	p.calls.Add(1)
	return &description.HeartbeatReply{OK: true}, time.Millisecond, nil
}

func TestMonitorProbesImmediatelyOnStart(t *testing.T) {
	prober := &countingProber{}
	outcomes := make(chan HeartbeatOutcome, 8)
	cfg := Config{HeartbeatFrequency: time.Hour}

	m := newMonitor("a:1", "t", prober, cfg, outcomes, func(event.Event) {}, metrics.New(nil), nil)
	defer m.stop()

	select {
	case o := <-outcomes:
		if o.Address != "a:1" || o.Err != nil {
			t.Fatalf("unexpected outcome: %+v", o)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an immediate probe on start")
	}
}

func TestMonitorRequestImmediateCheckTriggersAnotherProbe(t *testing.T) {
	prober := &countingProber{}
	outcomes := make(chan HeartbeatOutcome, 8)
	cfg := Config{HeartbeatFrequency: time.Hour}

	m := newMonitor("a:1", "t", prober, cfg, outcomes, func(event.Event) {}, metrics.New(nil), nil)
	defer m.stop()

	<-outcomes // drain the initial probe

	m.requestImmediateCheck()

	select {
	case <-outcomes:
	case <-time.After(2 * time.Second):
		t.Fatal("expected requestImmediateCheck to trigger another probe")
	}

	if calls := prober.calls.Load(); calls < 2 {
		t.Fatalf("expected at least 2 probes, got %d", calls)
	}
}

func TestMonitorStopJoinsCleanly(t *testing.T) {
	prober := &countingProber{}
	outcomes := make(chan HeartbeatOutcome, 8)
	cfg := Config{HeartbeatFrequency: time.Hour}

	m := newMonitor("a:1", "t", prober, cfg, outcomes, func(event.Event) {}, metrics.New(nil), nil)
	<-outcomes

	done := make(chan struct{})
	go func() {
		m.stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return")
	}
}
