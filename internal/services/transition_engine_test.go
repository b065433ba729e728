package services

import (
	"context"
	"errors"
	"manifest-service/internal/domain"
	"manifest-service/internal/ports"
	"strings"
	"testing"
)

func TestTransitionEngineAppliesEveryEdge(t *testing.T) {
	cases := []struct {
		action domain.Action
		from   domain.Status
		to     domain.Status
	}{
		{domain.ActionStart, domain.StatusReceived, domain.StatusStarted},
		{domain.ActionFinish, domain.StatusStarted, domain.StatusFinished},
		{domain.ActionFinish, domain.StatusPendingIssue, domain.StatusFinished},
		{domain.ActionBeginReview, domain.StatusStarted, domain.StatusReviewInProgress},
		{domain.ActionCompleteReview, domain.StatusReviewInProgress, domain.StatusReviewCompleted},
	}

	for _, tc := range cases {
		t.Run(string(tc.action)+"_from_"+string(tc.from), func(t *testing.T) {
			f := newFixture(t)
			f.put("M-1", tc.from)

			res, err := f.engine.Apply(context.Background(), TransitionRequest{
				Action: tc.action, ManifestID: "M-1", ActorName: "Ana",
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.To != tc.to || f.status(t, "M-1") != tc.to {
				t.Fatalf("status = %q, want %q", f.status(t, "M-1"), tc.to)
			}
			m, _ := f.store.GetManifest(context.Background(), "M-1")
			if m.AssignedOperator != "Ana" {
				t.Fatalf("operator = %q, want Ana", m.AssignedOperator)
			}
			if m.SecondaryAction != string(tc.action) {
				t.Fatalf("secondary action = %q, want %q", m.SecondaryAction, tc.action)
			}
			if got := len(f.store.Audit("M-1")); got != 1 {
				t.Fatalf("audit entries = %d, want 1", got)
			}
		})
	}
}

func TestTransitionEngineRejectsUnreachableEdges(t *testing.T) {
	all := []domain.Status{
		domain.StatusReceived, domain.StatusStarted, domain.StatusFinished,
		domain.StatusReviewInProgress, domain.StatusReviewCompleted, domain.StatusPendingIssue,
	}
	actions := []domain.Action{
		domain.ActionStart, domain.ActionFinish, domain.ActionBeginReview,
		domain.ActionCompleteReview, domain.ActionFlagPending,
	}

	for _, a := range actions {
		tr, _ := domain.TransitionFor(a)
		for _, from := range all {
			if tr.Allows(from) {
				continue
			}
			f := newFixture(t)
			f.put("M-1", from)

			_, err := f.engine.Apply(context.Background(), TransitionRequest{
				Action: a, ManifestID: "M-1", ActorName: "Ana",
				Observation: &domain.Observation{LoadA: 1, LoadB: 1},
			})
			if domain.KindOf(err) != domain.KindInvalidTransition {
				t.Fatalf("%s from %s: err = %v, want invalid transition", a, from, err)
			}
			if f.status(t, "M-1") != from {
				t.Fatalf("%s from %s changed status to %s", a, from, f.status(t, "M-1"))
			}
			if len(f.store.Audit("M-1")) != 0 {
				t.Fatalf("%s from %s wrote an audit entry", a, from)
			}
		}
	}
}

func TestTransitionEngineNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Apply(context.Background(), TransitionRequest{Action: domain.ActionStart, ManifestID: "nope", ActorName: "Ana"})
	if domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestTransitionEngineFlagPendingFormatsObservation(t *testing.T) {
	f := newFixture(t)
	f.put("M-200", domain.StatusReviewInProgress)

	_, err := f.engine.Apply(context.Background(), TransitionRequest{
		Action:      domain.ActionFlagPending,
		ManifestID:  "M-200",
		ActorName:   "Acme",
		Observation: &domain.Observation{LoadA: 5, LoadB: 2, Text: "two crates damaged"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.status(t, "M-200") != domain.StatusPendingIssue {
		t.Fatalf("status = %q, want pending_issue", f.status(t, "M-200"))
	}

	entries := f.store.Audit("M-200")
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	obs := entries[0].Observation
	if !strings.Contains(obs, "load_a=5/10") || !strings.Contains(obs, "load_b=2/4") || !strings.Contains(obs, "two crates damaged") {
		t.Fatalf("observation = %q", obs)
	}
}

func TestTransitionEngineFlagPendingRejectsQuantitiesAboveCounts(t *testing.T) {
	f := newFixture(t)
	f.put("M-200", domain.StatusReviewInProgress)

	_, err := f.engine.Apply(context.Background(), TransitionRequest{
		Action:      domain.ActionFlagPending,
		ManifestID:  "M-200",
		ActorName:   "Acme",
		Observation: &domain.Observation{LoadA: 11, LoadB: 0},
	})
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("err = %v, want validation", err)
	}
	if f.status(t, "M-200") != domain.StatusReviewInProgress {
		t.Fatal("status changed despite validation failure")
	}
}

func TestTransitionEngineAuditFailureSkipsStatusUpdate(t *testing.T) {
	f := newFixture(t)
	f.put("M-1", domain.StatusReceived)
	f.store.FailAudit = errors.New("audit table offline")

	_, err := f.engine.Apply(context.Background(), TransitionRequest{Action: domain.ActionStart, ManifestID: "M-1", ActorName: "Ana"})
	if domain.KindOf(err) != domain.KindStore {
		t.Fatalf("err = %v, want store error", err)
	}
	if f.status(t, "M-1") != domain.StatusReceived {
		t.Fatal("status must not change when the audit write fails")
	}
}

func TestTransitionEngineUpdateFailureLeavesAuditTrace(t *testing.T) {
	f := newFixture(t)
	f.put("M-1", domain.StatusReceived)
	f.store.FailUpdate = errors.New("write timeout")

	_, err := f.engine.Apply(context.Background(), TransitionRequest{Action: domain.ActionStart, ManifestID: "M-1", ActorName: "Ana"})
	if domain.KindOf(err) != domain.KindStore {
		t.Fatalf("err = %v, want store error", err)
	}
	if len(f.store.Audit("M-1")) != 1 {
		t.Fatal("expected the audit entry written before the failed update")
	}
}

func TestTransitionEngineSecondaryFailureIsBestEffort(t *testing.T) {
	f := newFixture(t)
	f.put("M-1", domain.StatusReceived)
	f.store.FailSecondary = errors.New("mirror down")

	if _, err := f.engine.Apply(context.Background(), TransitionRequest{Action: domain.ActionStart, ManifestID: "M-1", ActorName: "Ana"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.status(t, "M-1") != domain.StatusStarted {
		t.Fatal("primary status must be updated")
	}
}

func TestTransitionEngineLosesRaceToConcurrentWriter(t *testing.T) {
	f := newFixture(t)
	f.put("M-1", domain.StatusStarted)

	// Another client begins review between our read and our conditional update.
	f.store.BeforeUpdate = func(u ports.StatusUpdate) {
		f.store.BeforeUpdate = nil
		f.put(u.ManifestID, domain.StatusReviewInProgress)
	}

	_, err := f.engine.Apply(context.Background(), TransitionRequest{
		Action: domain.ActionFinish, ManifestID: "M-1", ActorName: "Ana",
	})
	if domain.KindOf(err) != domain.KindInvalidTransition {
		t.Fatalf("err = %v, want invalid transition", err)
	}
	if got := f.status(t, "M-1"); got != domain.StatusReviewInProgress {
		t.Fatalf("status = %s, want the concurrent writer's review_in_progress", got)
	}
	if got := len(f.store.Audit("M-1")); got != 1 {
		t.Fatalf("audit entries = %d, want 1", got)
	}
}
