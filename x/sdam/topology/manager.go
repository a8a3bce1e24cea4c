// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clustermonitor/sdam/address"
	"github.com/clustermonitor/sdam/description"
	"github.com/clustermonitor/sdam/event"
	"github.com/clustermonitor/sdam/internal/logger"
	"github.com/clustermonitor/sdam/internal/metrics"
	"github.com/clustermonitor/sdam/internal/randutil"
)

// Manager is the top-level facade: it owns the single writer actor that
// serializes every topology mutation, the monitor fleet that feeds it, and
// the waiter queue that server selection calls park on. Waiter wakeup
// generalizes a single broadcast into a queue of independently-evaluated
// selectors so each waiter's own read preference decides when it wakes.
type Manager struct {
	cfg     Config
	sm      *StateMachine
	bus     *eventBus
	waiters *waiterQueue
	fleet   *fleet
	metrics *metrics.Metrics
	log     *logger.Logger
	rnd     *randutil.LockedRand

	topo atomic.Value // description.Topology

	outcomes chan HeartbeatOutcome
	commands chan func()

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

// NewManager constructs a Manager from cfg and starts monitoring every
// address in its seed list. prober supplies the actual heartbeat transport;
// m may be nil, in which case metrics are a no-op. log may also be nil, in
// which case the manager and its fleet run silently.
func NewManager(cfg Config, prober Prober, m *metrics.Metrics, log *logger.Logger) *Manager {
	if m == nil {
		m = metrics.New(nil)
	}
	if log != nil {
		logger.StartPrintListener(log)
	}

	initial := description.NewTopology(cfg.ID, cfg.InitialTopologyKind, cfg.SetName, cfg.SeedList).RecomputeDerived()

	mgr := &Manager{
		cfg:      cfg,
		sm:       NewStateMachine(),
		bus:      newEventBus(),
		waiters:  newWaiterQueue(),
		metrics:  m,
		log:      log,
		outcomes: make(chan HeartbeatOutcome, 64),
		commands: make(chan func(), 64),
		closed:   make(chan struct{}),
		rnd:      randutil.NewLockedRand(rand.NewSource(time.Now().UnixNano())),
	}
	mgr.topo.Store(initial)
	mgr.fleet = newFleet(cfg.ID, prober, cfg, mgr.outcomes, mgr.bus.Publish, m, log)

	mgr.wg.Add(2)
	go mgr.runActor()
	go mgr.drainOutcomes()

	for _, s := range initial.Servers {
		mgr.bus.Publish(event.Event{Kind: event.ServerOpening, TopologyID: cfg.ID, Address: s.Address})
		mgr.fleet.add(s.Address)
	}

	return mgr
}

// Topology returns the current topology snapshot. It never blocks on the
// actor -- readers never block writers.
func (mgr *Manager) Topology() description.Topology {
	return mgr.topo.Load().(description.Topology)
}

// Subscribe registers l for every event the manager publishes and returns
// an unsubscribe function.
func (mgr *Manager) Subscribe(l event.Listener) (unsubscribe func()) {
	return mgr.bus.Subscribe(l)
}

// RequestImmediateCheck puts the entire fleet into expedited scheduling.
func (mgr *Manager) RequestImmediateCheck() {
	mgr.fleet.requestImmediateCheck()
}

// OnHeartbeatOutcome is the entry point MonitorFleet probes arrive through.
// It is also exposed directly so a caller driving its own Prober outside
// the built-in fleet can feed outcomes in.
func (mgr *Manager) OnHeartbeatOutcome(o HeartbeatOutcome) {
	select {
	case mgr.outcomes <- o:
	case <-mgr.closed:
	}
}

// FailedHost is called by higher layers when an application operation
// against addr fails. Network, not-master,
// and shutting-down errors synthesize a Failure outcome, demoting the
// server through the state machine and triggering an immediate recheck.
// Other errors are assumed already logged by the caller and produce no
// topology change.
func (mgr *Manager) FailedHost(addr address.Address, err error) {
	if !isStateChangingError(err) {
		return
	}
	mgr.OnHeartbeatOutcome(HeartbeatOutcome{Address: addr, Err: err})
	mgr.fleet.requestImmediateCheckFor(addr)
}

// isStateChangingError classifies an application-level error as one that
// should demote a server's description. Errors are matched by message
// substring since this package has no dependency on any particular
// wire-protocol error type.
func isStateChangingError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"not master", "node is recovering", "shutting down", "connection reset", "broken pipe", "connection refused", "i/o timeout", "eof"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// GetHostOrRefresh blocks until a single server satisfying selector is
// available or maxWait elapses. It returns one address chosen uniformly at
// random among the satisfying set.
func (mgr *Manager) GetHostOrRefresh(ctx context.Context, selector description.ServerSelector, maxWait time.Duration) (address.Address, error) {
	servers, err := mgr.GetHostsOrRefresh(ctx, selector, maxWait)
	if err != nil {
		return "", err
	}
	return servers[mgr.rnd.Intn(len(servers))], nil
}

// GetHostsOrRefresh is the public selection contract: it returns either a
// non-empty address list satisfying selector, or
// ErrFailedToSatisfyReadPreference once maxWait has elapsed.
func (mgr *Manager) GetHostsOrRefresh(ctx context.Context, selector description.ServerSelector, maxWait time.Duration) ([]address.Address, error) {
	select {
	case <-mgr.closed:
		return nil, ErrShuttingDown
	default:
	}

	if servers, satisfied, err := evaluate(mgr.Topology(), selector); err != nil {
		return nil, err
	} else if satisfied {
		return toAddresses(servers), nil
	}

	w := mgr.waiters.register(selector)
	mgr.metrics.SetSelectionsWaiting(1)
	mgr.fleet.requestImmediateCheck()
	mgr.fleet.setExpedited(true)

	timer := time.NewTimer(maxWait)
	defer timer.Stop()

	select {
	case result := <-w.resultCh:
		if result.err != nil {
			return nil, result.err
		}
		return toAddresses(result.servers), nil

	case <-timer.C:
		if mgr.waiters.fulfill(w, selectionResult{err: ErrFailedToSatisfyReadPreference}) {
			mgr.metrics.IncSelectionTimeouts()
			mgr.log.Print(logger.LevelInfo, &selectionTimeoutMessage{topologyID: mgr.cfg.ID})
		}
		result := <-w.resultCh
		if result.err != nil {
			return nil, result.err
		}
		return toAddresses(result.servers), nil

	case <-ctx.Done():
		mgr.waiters.cancel(w)
		return nil, ctx.Err()

	case <-mgr.closed:
		mgr.waiters.cancel(w)
		return nil, ErrShuttingDown
	}
}

// Close shuts down the manager: the actor stops accepting new work, every
// monitor is cancelled and joined, and every still-parked waiter is failed.
func (mgr *Manager) Close() {
	mgr.closeOnce.Do(func() {
		close(mgr.closed)
		mgr.wg.Wait()
		mgr.fleet.shutdown()

		mgr.waiters.mu.Lock()
		pending := make([]*waiter, 0, len(mgr.waiters.waiters))
		for _, w := range mgr.waiters.waiters {
			pending = append(pending, w)
		}
		mgr.waiters.mu.Unlock()
		for _, w := range pending {
			mgr.waiters.fulfill(w, selectionResult{err: ErrShuttingDown})
		}

		if mgr.log != nil {
			mgr.log.Close()
		}
	})
}

// Shutdown is an alias for Close, for callers that expect that name.
func (mgr *Manager) Shutdown() { mgr.Close() }

func (mgr *Manager) submit(cmd func()) {
	select {
	case mgr.commands <- cmd:
	case <-mgr.closed:
	}
}

// runActor is the single writer: every topology mutation is a command
// submitted here and executed strictly in FIFO order, one heartbeat
// outcome at a time.
func (mgr *Manager) runActor() {
	defer mgr.wg.Done()
	for {
		select {
		case cmd := <-mgr.commands:
			cmd()
		case <-mgr.closed:
			mgr.drainCommands()
			return
		}
	}
}

func (mgr *Manager) drainCommands() {
	for {
		select {
		case cmd := <-mgr.commands:
			cmd()
		default:
			return
		}
	}
}

// drainOutcomes forwards every heartbeat outcome into the actor queue as a
// command, which is what gives outcomes from different addresses their
// total, serialized ordering at the topology level.
func (mgr *Manager) drainOutcomes() {
	defer mgr.wg.Done()
	for {
		select {
		case o := <-mgr.outcomes:
			outcome := o
			mgr.submit(func() { mgr.applyOutcome(outcome) })
		case <-mgr.closed:
			return
		}
	}
}

// applyOutcome is the actual state transition, always run on the actor
// goroutine: parse the outcome into a ServerDescription, run it through the
// state machine, install the result, and react to membership changes.
func (mgr *Manager) applyOutcome(o HeartbeatOutcome) {
	prevTopo := mgr.Topology()
	prevServer, _ := prevTopo.Server(o.Address)

	sdesc := description.ParseHeartbeat(o.Address, o.Reply, o.Latency, o.Err, prevServer)
	nextTopo := mgr.sm.Apply(prevTopo, sdesc)

	mgr.topo.Store(nextTopo)

	diff := description.Diff(prevTopo, nextTopo)
	for _, a := range diff.Removed {
		mgr.bus.Publish(event.Event{Kind: event.ServerRemoved, TopologyID: mgr.cfg.ID, Address: a})
		mgr.fleet.remove(a)
	}
	for _, a := range diff.Added {
		mgr.bus.Publish(event.Event{Kind: event.ServerAdded, TopologyID: mgr.cfg.ID, Address: a})
		mgr.fleet.add(a)
	}

	if !prevTopo.Equal(nextTopo) {
		mgr.metrics.IncTopologyChanges()
		mgr.bus.Publish(event.Event{
			Kind:             event.TopologyDescriptionChanged,
			TopologyID:       mgr.cfg.ID,
			PreviousTopology: prevTopo,
			NewTopology:      nextTopo,
		})
		mgr.log.Print(logger.LevelInfo, &topologyChangedMessage{
			topologyID: mgr.cfg.ID,
			prevKind:   prevTopo.Kind.String(),
			newKind:    nextTopo.Kind.String(),
		})
	}

	remaining := mgr.waiters.scan(nextTopo)
	mgr.metrics.SetSelectionsWaiting(boolToInt(remaining))
	mgr.fleet.setExpedited(remaining)
}

func toAddresses(servers []description.Server) []address.Address {
	out := make([]address.Address, len(servers))
	for i, s := range servers {
		out[i] = s.Address
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

