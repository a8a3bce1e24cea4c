// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"sync"

	"github.com/clustermonitor/sdam/event"
)

// eventBus fans a sequence of events out to a set of listeners. The listener
// list is guarded by a mutex held only while copying it; delivery itself
// happens outside the lock so a slow or blocking listener can't stall the
// manager's actor loop.
type eventBus struct {
	mu        sync.Mutex
	listeners map[int]event.Listener
	nextID    int
}

func newEventBus() *eventBus {
	return &eventBus{listeners: make(map[int]event.Listener)}
}

// Subscribe registers l and returns an unsubscribe function.
func (b *eventBus) Subscribe(l event.Listener) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Publish delivers e to every currently subscribed listener.
func (b *eventBus) Publish(e event.Event) {
	b.mu.Lock()
	snapshot := make([]event.Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		snapshot = append(snapshot, l)
	}
	b.mu.Unlock()

	for _, l := range snapshot {
		l.OnSDAMEvent(e)
	}
}
