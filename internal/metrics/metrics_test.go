package metrics

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestHandlerSummary(t *testing.T) {
	m := New()
	m.IncAPIRequest("GET", "/ctfs/list/actif", 200)
	m.IncAPIRequest("GET", "/ctfs/list/actif", 200)
	m.IncAPIRequest("POST", "/ctfs/1/join", 409)
	m.ObserveAPIDuration("GET", "/ctfs/list/actif", 0.05)
	m.IncNetworkError("timeout")
	m.IncPollTick("unread")
	m.IncPollSkip("unread")
	m.IncAuthSuccess("login")
	m.SetSessionValid(true)

	rec := httptest.NewRecorder()
	m.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var s Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if s.API.TotalRequests != 3 {
		t.Errorf("totalRequests = %v, want 3", s.API.TotalRequests)
	}
	if s.API.ErrorRate <= 0.3 || s.API.ErrorRate >= 0.4 {
		t.Errorf("errorRate = %v, want 1/3", s.API.ErrorRate)
	}
	if s.API.NetworkErrors != 1 {
		t.Errorf("networkErrors = %v, want 1", s.API.NetworkErrors)
	}
	if s.Poll.Ticks != 1 || s.Poll.Skips != 1 {
		t.Errorf("poll = %+v, want 1 tick and 1 skip", s.Poll)
	}
	if !s.Auth.SessionValid {
		t.Error("sessionValid should be true")
	}
	if s.Auth.Successes != 1 {
		t.Errorf("auth successes = %v, want 1", s.Auth.Successes)
	}
}
