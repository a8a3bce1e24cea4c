// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"sync"

	"github.com/clustermonitor/sdam/description"
)

// selectionResult is what a parked call eventually receives: either a
// non-empty server list or an error (ErrFailedToSatisfyReadPreference on
// deadline, ErrIncompatibleServerVersion, or whatever the selector itself
// returned).
type selectionResult struct {
	servers []description.Server
	err     error
}

// waiter is one parked selection call. resultCh is buffered by one so
// whichever of {scan, deadline, cancel} wins the race never blocks on
// delivery.
type waiter struct {
	id       int64
	selector description.ServerSelector
	resultCh chan selectionResult
	done     bool
}

// waiterQueue holds every currently-parked selection call. Every mutation --
// register, fulfill, cancel -- and the done-flag check happen under the same
// mutex, which is what resolves the satisfaction-vs-deadline race: both the
// scan path and the deadline-timer path call fulfill, and whichever
// acquires the lock first wins.
type waiterQueue struct {
	mu      sync.Mutex
	nextID  int64
	waiters map[int64]*waiter
}

func newWaiterQueue() *waiterQueue {
	return &waiterQueue{waiters: make(map[int64]*waiter)}
}

// register parks a new waiter.
func (q *waiterQueue) register(selector description.ServerSelector) *waiter {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	w := &waiter{id: q.nextID, selector: selector, resultCh: make(chan selectionResult, 1)}
	q.waiters[w.id] = w
	return w
}

// fulfill delivers result to w if nothing has resolved it yet. Returns
// whether this call won the race.
func (q *waiterQueue) fulfill(w *waiter, result selectionResult) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if w.done {
		return false
	}
	w.done = true
	delete(q.waiters, w.id)
	w.resultCh <- result
	return true
}

// cancel removes w without sending a result -- used when the caller's
// context is done before either a scan or the deadline timer fired.
func (q *waiterQueue) cancel(w *waiter) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if w.done {
		return
	}
	w.done = true
	delete(q.waiters, w.id)
}

// evaluate runs the server selection algorithm against topo for a single
// selector: compatibility and Unknown-topology checks are cross-cutting and
// handled here; everything else is delegated to the selector itself.
func evaluate(topo description.Topology, selector description.ServerSelector) (servers []description.Server, satisfied bool, err error) {
	if !topo.Compatible {
		return nil, true, ErrIncompatibleServerVersion
	}
	if topo.Kind == description.TopologyUnknown {
		return nil, false, nil
	}
	servers, err = selector.SelectServer(topo, topo.Servers)
	if err != nil {
		return nil, true, err
	}
	return servers, len(servers) > 0, nil
}

// scan re-runs every parked waiter's selector against topo, fulfilling any
// that are now satisfied (or that have become permanently unsatisfiable,
// e.g. an incompatible topology). It returns whether any waiter remains
// parked afterward, which the manager uses to decide whether to keep the
// fleet in expedited mode.
func (q *waiterQueue) scan(topo description.Topology) (remaining bool) {
	q.mu.Lock()
	snapshot := make([]*waiter, 0, len(q.waiters))
	for _, w := range q.waiters {
		snapshot = append(snapshot, w)
	}
	q.mu.Unlock()

	for _, w := range snapshot {
		servers, satisfied, err := evaluate(topo, w.selector)
		if err != nil {
			q.fulfill(w, selectionResult{err: err})
			continue
		}
		if satisfied {
			q.fulfill(w, selectionResult{servers: servers})
		}
	}

	q.mu.Lock()
	remaining = len(q.waiters) > 0
	q.mu.Unlock()
	return remaining
}
