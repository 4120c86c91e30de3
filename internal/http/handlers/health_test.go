package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealth_ReportsService(t *testing.T) {
	app, _, _ := newTestApp(t)

	rr := httptest.NewRecorder()
	app.Health(rr, httptest.NewRequest("GET", "/api/health", nil))

	if rr.Code != 200 {
		t.Fatalf("unexpected status code: got %d, want 200", rr.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("status = %q, want ok", payload["status"])
	}
	if payload["service"] != "psd-processor" {
		t.Fatalf("service = %q, want psd-processor", payload["service"])
	}
	if _, err := time.Parse(time.RFC3339, payload["timestamp"]); err != nil {
		t.Fatalf("timestamp %q is not RFC3339: %v", payload["timestamp"], err)
	}
}
