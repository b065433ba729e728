package notify

import (
	"context"
	"encoding/json"
	"errors"
	"manifest-service/internal/domain"
	"manifest-service/internal/ports"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewNotifierReturnsNoopWithoutURL(t *testing.T) {
	n := NewNotifier("  ", time.Second, nil)
	if _, ok := n.(Noop); !ok {
		t.Fatalf("notifier = %T, want Noop", n)
	}
	if err := n.NotifyTransition(context.Background(), ports.TransitionNotice{}); err != nil {
		t.Fatalf("noop returned %v", err)
	}
}

func TestWebhookNotifierPostsTransition(t *testing.T) {
	var got map[string]any
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	loc := time.FixedZone("BRT", -3*60*60)
	n := NewNotifier(srv.URL, time.Second, loc)

	err := n.NotifyTransition(context.Background(), ports.TransitionNotice{
		Action:      domain.ActionFlagPending,
		ManifestID:  "M-200",
		ActorName:   "Acme",
		At:          time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC),
		Observation: &domain.Observation{LoadA: 5, LoadB: 2, Text: "torn wrap"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if method != http.MethodPost {
		t.Fatalf("method = %s, want POST", method)
	}
	if got["manifest_id"] != "M-200" || got["action"] != "flag_pending" {
		t.Fatalf("body = %v", got)
	}
	if got["flagged_at"] != "04/03/2026 12:30:00" {
		t.Fatalf("flagged_at = %v, want 04/03/2026 12:30:00", got["flagged_at"])
	}
	if got["load_a"] != float64(5) || got["load_b"] != float64(2) {
		t.Fatalf("loads = %v/%v, want 5/2", got["load_a"], got["load_b"])
	}
}

func TestWebhookNotifierReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, time.Second, time.UTC)
	err := n.NotifyTransition(context.Background(), ports.TransitionNotice{
		Action:     domain.ActionStart,
		ManifestID: "M-1",
	})

	var he *httpStatusError
	if !errors.As(err, &he) || he.Code != http.StatusBadGateway {
		t.Fatalf("err = %v, want httpStatusError 502", err)
	}
}
