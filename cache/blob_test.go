package cache

import (
	"testing"
	"time"
)

func TestDefaultPersistable(t *testing.T) {
	cases := []struct {
		key  string
		want bool
	}{
		{"template:welcome", true},
		{"config:site", true},
		{"industry:saas", true},
		{"docs:getting-started", true},
		{"chat:session-42", false},
		{"prompt:abc123", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := DefaultPersistable(tc.key); got != tc.want {
			t.Fatalf("%q: expected %v, got %v", tc.key, tc.want, got)
		}
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	createdAt := time.UnixMilli(1700000000000)
	payload, err := encodeEnvelope(map[string]any{"title": "Intro"}, createdAt, 5*time.Minute)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	value, gotCreated, gotTTL, err := decodeEnvelope(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !gotCreated.Equal(createdAt) {
		t.Fatalf("createdAt: got %v, want %v", gotCreated, createdAt)
	}
	if gotTTL != 5*time.Minute {
		t.Fatalf("ttl: got %v, want %v", gotTTL, 5*time.Minute)
	}
	m, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("expected decoded map, got %T", value)
	}
	if m["title"] != "Intro" {
		t.Fatalf("got %v, want %q", m["title"], "Intro")
	}
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	if _, _, _, err := decodeEnvelope("not json"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNamespacedKey(t *testing.T) {
	if got := namespaced("template:welcome"); got != "keystone:cache:template:welcome" {
		t.Fatalf("got %q", got)
	}
}
