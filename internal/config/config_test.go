package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sdam.yaml")
	contents := `
seed_list:
  - a:27017
  - b:27017
initial_topology_type: ReplicaSetNoPrimary
set_name: rs0
heartbeat_frequency: 10s
local_threshold: 15ms
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.SeedList) != 2 {
		t.Fatalf("expected 2 seeds, got %d", len(f.SeedList))
	}
	if f.SetName != "rs0" {
		t.Fatalf("expected set name rs0, got %q", f.SetName)
	}
}

func TestLoadRejectsEmptySeedList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sdam.yaml")
	if err := os.WriteFile(path, []byte("initial_topology_type: Single\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for empty seed list")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
