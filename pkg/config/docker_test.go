package config

import (
	"testing"
)

func TestResolveHostForDocker_NonLocalHostsUnchanged(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"mydb.example.com", "mydb.example.com"},
		{"192.168.1.100", "192.168.1.100"},
		{"host.docker.internal", "host.docker.internal"},
	}

	for _, tt := range tests {
		if result := ResolveHostForDocker(tt.input); result != tt.expected {
			t.Errorf("ResolveHostForDocker(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestResolveHostForDocker_LocalhostVariants(t *testing.T) {
	for _, host := range []string{"localhost", "127.0.0.1"} {
		result := ResolveHostForDocker(host)
		want := host
		if IsRunningInDocker() {
			want = "host.docker.internal"
		}
		if result != want {
			t.Errorf("ResolveHostForDocker(%q) = %q, want %q", host, result, want)
		}
	}
}

func TestResolveURIHostForDocker(t *testing.T) {
	if got := resolveURIHostForDocker(""); got != "" {
		t.Errorf("empty uri should stay empty, got %q", got)
	}
	if got := resolveURIHostForDocker("neo4j://graph.example.com:7687"); got != "neo4j://graph.example.com:7687" {
		t.Errorf("remote uri should be unchanged, got %q", got)
	}

	want := "bolt://localhost:7687"
	if IsRunningInDocker() {
		want = "bolt://host.docker.internal:7687"
	}
	if got := resolveURIHostForDocker("bolt://localhost:7687"); got != want {
		t.Errorf("resolveURIHostForDocker(bolt://localhost:7687) = %q, want %q", got, want)
	}
}
