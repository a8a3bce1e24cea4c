// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"fmt"
	"time"

	"github.com/clustermonitor/sdam/address"
	"github.com/clustermonitor/sdam/description"
)

// minHeartbeatFrequency is the fastest a monitor will probe its server, even
// under an expedited (RequestImmediateCheck-driven) schedule.
const minHeartbeatFrequency = 500 * time.Millisecond

const (
	defaultHeartbeatFrequency     = 10 * time.Second
	defaultLocalThreshold         = 15 * time.Millisecond
	defaultServerSelectionTimeout = 30 * time.Second
	defaultConnectTimeout         = 30 * time.Second
	defaultSocketTimeout          = 0 // no timeout
)

// Config is the immutable configuration a Manager is built from.
type Config struct {
	ID       string
	SeedList []address.Address

	InitialTopologyKind description.TopologyKind
	SetName             string

	HeartbeatFrequency     time.Duration
	LocalThreshold         time.Duration
	ServerSelectionTimeout time.Duration
	ConnectTimeout         time.Duration
	SocketTimeout          time.Duration
}

// Option configures a Config.
type Option func(*Config)

// WithSeedList sets the initial server addresses to monitor.
func WithSeedList(seeds ...string) Option {
	return func(c *Config) {
		list := make([]address.Address, 0, len(seeds))
		for _, s := range seeds {
			list = append(list, address.Address(s).Canonicalize())
		}
		c.SeedList = list
	}
}

// WithInitialTopologyKind overrides the default starting topology kind
// (ReplicaSetNoPrimary when a SetName is given, otherwise Sharded for several
// seeds and Unknown for a single seed).
func WithInitialTopologyKind(kind description.TopologyKind) Option {
	return func(c *Config) { c.InitialTopologyKind = kind }
}

// WithSetName configures the replica set name, which selects
// ReplicaSetNoPrimary as the default initial topology kind.
func WithSetName(name string) Option {
	return func(c *Config) { c.SetName = name }
}

// WithHeartbeatFrequency sets the normal monitor polling interval.
func WithHeartbeatFrequency(d time.Duration) Option {
	return func(c *Config) { c.HeartbeatFrequency = d }
}

// WithLocalThreshold sets the latency window width used by selection.
func WithLocalThreshold(d time.Duration) Option {
	return func(c *Config) { c.LocalThreshold = d }
}

// WithServerSelectionTimeout bounds how long GetHostOrRefresh will wait for a
// matching server to appear.
func WithServerSelectionTimeout(d time.Duration) Option {
	return func(c *Config) { c.ServerSelectionTimeout = d }
}

// WithConnectTimeout sets the timeout a Prober should apply to its dial step.
// Each monitor bounds the context it passes to Prober.Probe by
// ConnectTimeout+SocketTimeout (when that sum is positive); splitting the
// budget between dial and round trip is left to the Prober.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Config) { c.ConnectTimeout = d }
}

// WithSocketTimeout sets the timeout a Prober should apply to a single
// heartbeat round trip.
func WithSocketTimeout(d time.Duration) Option {
	return func(c *Config) { c.SocketTimeout = d }
}

// NewConfig builds a Config from options, applying defaults and validating
// the construction-time invariants.
func NewConfig(id string, opts ...Option) (Config, error) {
	c := Config{
		ID:                     id,
		HeartbeatFrequency:     defaultHeartbeatFrequency,
		LocalThreshold:         defaultLocalThreshold,
		ServerSelectionTimeout: defaultServerSelectionTimeout,
		ConnectTimeout:         defaultConnectTimeout,
		SocketTimeout:          defaultSocketTimeout,
	}
	for _, opt := range opts {
		opt(&c)
	}

	if len(c.SeedList) == 0 {
		return Config{}, ErrInvalidSeedList
	}
	if c.HeartbeatFrequency < minHeartbeatFrequency {
		return Config{}, ErrInvalidHeartbeatFrequency
	}

	if c.InitialTopologyKind == description.TopologyUnknown {
		switch {
		case c.SetName != "":
			c.InitialTopologyKind = description.ReplicaSetNoPrimary
		case len(c.SeedList) > 1:
			c.InitialTopologyKind = description.Sharded
		default:
			// A single, unnamed seed is left Unknown so the state machine's
			// updateUnknownWithStandalone runs and discovers what it really
			// is. Single is only reached via that transition, or by a caller
			// explicitly opting into direct-connection mode with
			// WithInitialTopologyKind.
			c.InitialTopologyKind = description.TopologyUnknown
		}
	}
	switch c.InitialTopologyKind {
	case description.TopologyUnknown, description.Single, description.Sharded, description.ReplicaSetNoPrimary, description.ReplicaSetWithPrimary:
	default:
		return Config{}, ErrInvalidTopologyType
	}
	if c.InitialTopologyKind == description.Single && len(c.SeedList) != 1 {
		return Config{}, fmt.Errorf("%w: Single topology requires exactly one seed", ErrInvalidTopologyType)
	}

	return c, nil
}

// ParseTopologyKind maps the human-readable topology type names used by
// internal/config.File.InitialTopologyType onto description.TopologyKind.
func ParseTopologyKind(s string) (description.TopologyKind, error) {
	switch s {
	case "", "Unknown":
		return description.TopologyUnknown, nil
	case "Single":
		return description.Single, nil
	case "Sharded":
		return description.Sharded, nil
	case "ReplicaSetNoPrimary":
		return description.ReplicaSetNoPrimary, nil
	case "ReplicaSetWithPrimary":
		return description.ReplicaSetWithPrimary, nil
	default:
		return description.TopologyUnknown, fmt.Errorf("%w: %q", ErrInvalidTopologyType, s)
	}
}
