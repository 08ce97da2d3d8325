package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResolveByIP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ip":"203.0.113.7"}`))
	}))
	defer server.Close()

	r := NewResolver(WithLookupURL(server.URL))
	if got := r.Resolve(context.Background()); got != "ip-203.0.113.7" {
		t.Errorf("Resolve = %q, want ip-203.0.113.7", got)
	}
}

func TestResolveMemoized(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"ip":"203.0.113.7"}`))
	}))
	defer server.Close()

	r := NewResolver(WithLookupURL(server.URL))
	first := r.Resolve(context.Background())
	second := r.Resolve(context.Background())

	if first != second {
		t.Errorf("Resolve not stable: %q then %q", first, second)
	}
	if calls != 1 {
		t.Errorf("lookup called %d times, want 1", calls)
	}

	r.Clear()
	r.Resolve(context.Background())
	if calls != 2 {
		t.Errorf("lookup after Clear called %d times total, want 2", calls)
	}
}

func TestResolveFallsBackToFingerprint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	r := NewResolver(WithLookupURL(server.URL))
	got := r.Resolve(context.Background())
	if !strings.HasPrefix(got, "device-") {
		t.Errorf("Resolve = %q, want device- prefix on lookup failure", got)
	}
	if len(got) != len("device-")+16 && got != FallbackID {
		t.Errorf("fingerprint %q has unexpected length", got)
	}
}

func TestResolveUnreachableLookup(t *testing.T) {
	// Closed server: connection refused, not an HTTP error.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	r := NewResolver(WithLookupURL(url))
	if got := r.Resolve(context.Background()); !strings.HasPrefix(got, "device-") {
		t.Errorf("Resolve = %q, want device fallback", got)
	}
}

func TestResolveEmptyIPFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ip":""}`))
	}))
	defer server.Close()

	r := NewResolver(WithLookupURL(server.URL))
	if got := r.Resolve(context.Background()); !strings.HasPrefix(got, "device-") {
		t.Errorf("Resolve = %q, want device fallback on empty address", got)
	}
}

func TestStorageKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ip":"203.0.113.7"}`))
	}))
	defer server.Close()

	r := NewResolver(WithLookupURL(server.URL))
	got := r.StorageKey(context.Background(), "ai-chat-credits")
	if got != "ai-chat-credits-ip-203.0.113.7" {
		t.Errorf("StorageKey = %q", got)
	}
}

func TestFingerprintStable(t *testing.T) {
	a, b := fingerprint(), fingerprint()
	if a != b {
		t.Errorf("fingerprint not stable: %q vs %q", a, b)
	}
}
