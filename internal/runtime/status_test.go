package runtime

import (
	"testing"

	"polymarket-arb-engine/internal/config"
)

func TestIsOriginAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		origin  string
		reqHost string
		want    bool
	}{
		{name: "empty origin is allowed", origin: "", reqHost: "localhost:8080", want: true},
		{name: "localhost origin allowed", origin: "http://localhost:8080", reqHost: "localhost:8080", want: true},
		{name: "loopback ip allowed", origin: "http://127.0.0.1:8080", reqHost: "localhost:8080", want: true},
		{name: "non-local origin denied", origin: "https://evil.example", reqHost: "localhost:8080", want: false},
		{name: "same host allowed", origin: "https://engine.internal:8080", reqHost: "engine.internal:8080", want: true},
		{name: "mismatched host denied", origin: "https://other.internal:8080", reqHost: "engine.internal:8080", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isOriginAllowed(tt.origin, config.DashboardConfig{}, tt.reqHost); got != tt.want {
				t.Fatalf("isOriginAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestNormalizeHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"localhost:8080", "localhost"},
		{"Engine.Internal:9090", "engine.internal"},
		{"", ""},
		{"justhost", "justhost"},
	}
	for _, tt := range tests {
		if got := normalizeHost(tt.in); got != tt.want {
			t.Errorf("normalizeHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
