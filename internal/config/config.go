// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package config loads deployment configuration from a YAML file, a
// convenience layer over x/sdam/topology's functional Options. URI parsing
// itself remains out of scope; this only covers the fields a Manager needs
// at construction time.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of an SDAM deployment configuration file.
type File struct {
	SeedList             []string      `yaml:"seed_list"`
	InitialTopologyType  string        `yaml:"initial_topology_type"`
	SetName              string        `yaml:"set_name,omitempty"`
	HeartbeatFrequency   time.Duration `yaml:"heartbeat_frequency,omitempty"`
	MinHeartbeatInterval time.Duration `yaml:"min_heartbeat_frequency,omitempty"`
	LocalThreshold       time.Duration `yaml:"local_threshold,omitempty"`
	ServerSelectionTimeout time.Duration `yaml:"server_selection_timeout,omitempty"`
	ConnectTimeout       time.Duration `yaml:"connect_timeout,omitempty"`
	SocketTimeout        time.Duration `yaml:"socket_timeout,omitempty"`
}

// Load reads and parses a YAML configuration file at path.
func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if len(f.SeedList) == 0 {
		return File{}, fmt.Errorf("config: %s: seed_list must be non-empty", path)
	}
	return f, nil
}
