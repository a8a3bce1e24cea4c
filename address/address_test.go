package address

import "testing"

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in   Address
		want Address
	}{
		{"A:1", "a:1"},
		{"localhost:27017", "localhost:27017"},
		{"MongoDB.Example.Com:27018", "mongodb.example.com:27018"},
	}
	for _, tt := range tests {
		if got := tt.in.Canonicalize(); got != tt.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSetContainsAndUnion(t *testing.T) {
	hosts := NewSet([]string{"A:1", "b:1"})
	passives := NewSet([]string{"C:1"})
	arbiters := NewSet([]string{"a:1"}) // duplicate across sets is fine

	if !hosts.Contains("a:1") {
		t.Fatalf("expected lower-cased membership")
	}
	if hosts.Contains("c:1") {
		t.Fatalf("did not expect c:1 in hosts")
	}

	union := Union(hosts, passives, arbiters)
	if len(union) != 3 {
		t.Fatalf("expected 3 unique addresses, got %d: %v", len(union), union)
	}
}
