package core

import "testing"

func TestRedactSensitiveMapPreservesTraceabilityMetadata(t *testing.T) {
	redacted := RedactSensitiveMap(map[string]any{
		"event_id":        "evt_1",
		"asset_id":        uint64(4),
		"seller":          "alice",
		"idempotency_key": "evt_1",
		"access_key":      "key-alpha",
		"authorization":   "Bearer opaque",
		"nested":          map[string]any{"listing_key": "key-beta", "trace_id": "trace_nested"},
		"attempts":        []any{map[string]any{"api_secret": "s_1"}, map[string]any{"request_id": "req_1"}},
	})

	if redacted["event_id"] != "evt_1" {
		t.Fatalf("expected event_id to remain visible, got %#v", redacted["event_id"])
	}
	if redacted["idempotency_key"] != "evt_1" {
		t.Fatalf("expected idempotency_key to remain visible, got %#v", redacted["idempotency_key"])
	}
	if redacted["access_key"] != RedactedValue {
		t.Fatalf("expected access_key to be redacted, got %#v", redacted["access_key"])
	}
	nested, ok := redacted["nested"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested redacted map")
	}
	if nested["listing_key"] != RedactedValue {
		t.Fatalf("expected nested listing_key to be redacted, got %#v", nested["listing_key"])
	}
	if nested["trace_id"] != "trace_nested" {
		t.Fatalf("expected nested trace_id to remain visible, got %#v", nested["trace_id"])
	}
	attempts, ok := redacted["attempts"].([]any)
	if !ok || len(attempts) != 2 {
		t.Fatalf("expected attempts slice to survive redaction, got %#v", redacted["attempts"])
	}
	first, ok := attempts[0].(map[string]any)
	if !ok || first["api_secret"] != RedactedValue {
		t.Fatalf("expected api_secret inside slice to be redacted, got %#v", attempts[0])
	}
}

func TestRedactSensitiveMapHandlesEmptyInput(t *testing.T) {
	redacted := RedactSensitiveMap(nil)
	if redacted == nil || len(redacted) != 0 {
		t.Fatalf("expected empty non-nil map, got %#v", redacted)
	}
}
