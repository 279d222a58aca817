package activation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agent-service/pkg/config"
)

func newTestClient(url string) *Client {
	return NewClient(&config.ActivationConfig{
		BaseURL: url,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
}

func TestRequest_ReturnsDataURI(t *testing.T) {
	image := []byte{0x89, 'P', 'N', 'G'}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req activationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.AgentID != "agent-1" || req.AgentName != "Bot1" || req.TriggerCode != "START NOW" {
			t.Errorf("unexpected request body: %+v", req)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(image)
	}))
	defer server.Close()

	result := newTestClient(server.URL).Request(context.Background(), "agent-1", "Bot1", "START NOW")
	if !result.Ok() {
		t.Fatalf("Request() degraded: %s", result.Reason)
	}

	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)
	if result.Payload != want {
		t.Errorf("Payload = %q, want %q", result.Payload, want)
	}
}

func TestRequest_DefaultTrigger(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req activationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.TriggerCode != DefaultTrigger {
			t.Errorf("TriggerCode = %q, want %q", req.TriggerCode, DefaultTrigger)
		}
		w.Write([]byte("img"))
	}))
	defer server.Close()

	result := newTestClient(server.URL).Request(context.Background(), "agent-1", "Bot1", "")
	if !result.Ok() {
		t.Fatalf("Request() degraded: %s", result.Reason)
	}
}

func TestRequest_DegradesOnVendorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	result := newTestClient(server.URL).Request(context.Background(), "agent-1", "Bot1", "START")
	if result.Ok() {
		t.Fatal("Request() succeeded, want degraded result")
	}
	if result.Payload != "" {
		t.Errorf("Payload = %q, want empty", result.Payload)
	}
	if !strings.Contains(result.Reason, "429") || !strings.Contains(result.Reason, "quota exceeded") {
		t.Errorf("Reason = %q, want vendor status and body", result.Reason)
	}
}

func TestRequest_DegradesOnMissingIdentity(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	result := newTestClient(server.URL).Request(context.Background(), "", "Bot1", "START")
	if result.Ok() {
		t.Fatal("Request() with empty agent id succeeded, want degraded result")
	}
	if called {
		t.Error("vendor was called despite missing agent id")
	}
}
