package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"manifest-service/internal/domain"
	"manifest-service/internal/ports"
	"net/http"
	"strings"
	"time"
)

const (
	userAgent       = "manifest-service/1.0"
	timestampLayout = "02/01/2006 15:04:05"
)

var timestampFields = map[domain.Action]string{
	domain.ActionStart:          "started_at",
	domain.ActionFinish:         "finished_at",
	domain.ActionBeginReview:    "review_started_at",
	domain.ActionCompleteReview: "review_completed_at",
	domain.ActionFlagPending:    "flagged_at",
}

// NewNotifier returns a webhook notifier, or a noop one when url is empty.
func NewNotifier(url string, timeout time.Duration, loc *time.Location) ports.Notifier {
	url = strings.TrimSpace(url)
	if url == "" {
		return Noop{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if loc == nil {
		loc = time.UTC
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		loc:    loc,
	}
}

// WebhookNotifier POSTs one JSON document per accepted transition.
type WebhookNotifier struct {
	url    string
	client *http.Client
	loc    *time.Location
}

// Body builds the JSON document sent for a transition.
func (w *WebhookNotifier) Body(n ports.TransitionNotice) map[string]any {
	body := map[string]any{
		"action":      string(n.Action),
		"manifest_id": n.ManifestID,
		"actor_name":  n.ActorName,
	}
	if field, ok := timestampFields[n.Action]; ok {
		body[field] = n.At.In(w.loc).Format(timestampLayout)
	}
	if n.Observation != nil {
		body["observation"] = n.Observation.Text
		body["load_a"] = n.Observation.LoadA
		body["load_b"] = n.Observation.LoadB
	}
	return body
}

func (w *WebhookNotifier) NotifyTransition(ctx context.Context, n ports.TransitionNotice) error {
	b, err := json.Marshal(w.Body(n))
	if err != nil {
		return fmt.Errorf("notify transition: encode body: %w", err)
	}

	req, err := w.newRequest(ctx, http.MethodPost, w.url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("notify transition: %w", err)
	}
	if err := w.do(req); err != nil {
		return fmt.Errorf("notify transition manifest_id=%s: %w", n.ManifestID, err)
	}
	return nil
}

// Noop discards notifications.
type Noop struct{}

func (Noop) NotifyTransition(context.Context, ports.TransitionNotice) error { return nil }
