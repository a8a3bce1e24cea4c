// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package readpref

import (
	"errors"
	"time"

	"github.com/clustermonitor/sdam/description"
)

// ErrFailedToSatisfyReadPreference is returned by selection when no server
// satisfying the criteria appeared within the caller's deadline.
var ErrFailedToSatisfyReadPreference = errors.New("server selection failed: no server satisfied the read preference in time")

// ReadPref is the caller-specified criteria for a server selection call: a
// mode, an ordered tag set list, and an optional max staleness.
type ReadPref struct {
	mode          Mode
	tagSets       description.TagSets
	maxStaleness  time.Duration
	hasStaleness  bool
}

// Option configures a ReadPref.
type Option func(*ReadPref)

// WithTags sets the ordered tag set list.
func WithTags(tagSets ...description.Tags) Option {
	return func(rp *ReadPref) { rp.tagSets = tagSets }
}

// WithMaxStaleness sets the maximum acceptable secondary staleness.
func WithMaxStaleness(d time.Duration) Option {
	return func(rp *ReadPref) {
		rp.maxStaleness = d
		rp.hasStaleness = true
	}
}

func newReadPref(mode Mode, opts ...Option) *ReadPref {
	rp := &ReadPref{mode: mode}
	for _, opt := range opts {
		opt(rp)
	}
	return rp
}

// Primary returns a PrimaryOnly read preference. It takes no options: tags
// and staleness are meaningless for this mode.
func Primary() *ReadPref { return newReadPref(PrimaryMode) }

// Secondary returns a SecondaryOnly read preference.
func Secondary(opts ...Option) *ReadPref { return newReadPref(SecondaryMode, opts...) }

// Nearest returns a Nearest read preference.
func Nearest(opts ...Option) *ReadPref { return newReadPref(NearestMode, opts...) }

// PrimaryPreferred returns a PrimaryPreferred read preference.
func PrimaryPreferred(opts ...Option) *ReadPref { return newReadPref(PrimaryPreferredMode, opts...) }

// SecondaryPreferred returns a SecondaryPreferred read preference.
func SecondaryPreferred(opts ...Option) *ReadPref { return newReadPref(SecondaryPreferredMode, opts...) }

// Mode returns the read preference's mode.
func (rp *ReadPref) Mode() Mode { return rp.mode }

// TagSets returns the ordered tag set list, possibly empty.
func (rp *ReadPref) TagSets() description.TagSets { return rp.tagSets }

// MaxStaleness returns the configured max staleness and whether one was set.
func (rp *ReadPref) MaxStaleness() (time.Duration, bool) { return rp.maxStaleness, rp.hasStaleness }
