package services

import (
	"context"
	"fmt"
	"manifest-service/internal/domain"
	"testing"
)

func TestProcessBatchPartialFailure(t *testing.T) {
	f := newFixture(t)
	var ids []string
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("M-%02d", i)
		ids = append(ids, id)
		if i < 3 {
			f.put(id, domain.StatusFinished)
		} else {
			f.put(id, domain.StatusReceived)
		}
	}

	bp := &BatchProcessor{Coordinator: f.coord, Concurrency: 3}
	out := bp.ProcessBatch(context.Background(), wfsState(), domain.ActionStart, "Ana", ids)

	if !out.Success {
		t.Fatalf("partial batch must report success: %+v", out.Outcome)
	}
	if out.Failed != 3 || out.Succeeded != 7 {
		t.Fatalf("failed/succeeded = %d/%d, want 3/7", out.Failed, out.Succeeded)
	}
	for i, id := range ids {
		want := domain.StatusStarted
		if i < 3 {
			want = domain.StatusFinished
		}
		if got := f.status(t, id); got != want {
			t.Fatalf("%s status = %q, want %q", id, got, want)
		}
	}
}

func TestProcessBatchAllFail(t *testing.T) {
	f := newFixture(t)
	f.put("M-1", domain.StatusFinished)
	f.put("M-2", domain.StatusFinished)

	bp := &BatchProcessor{Coordinator: f.coord}
	out := bp.ProcessBatch(context.Background(), wfsState(), domain.ActionStart, "Ana", []string{"M-1", "M-2"})
	if out.Success || out.Failed != 2 {
		t.Fatalf("outcome = %+v, want failure with 2 failed", out.Outcome)
	}
	if out.Kind != domain.KindInvalidTransition {
		t.Fatalf("kind = %q, want invalid_transition", out.Kind)
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	f := newFixture(t)
	bp := &BatchProcessor{Coordinator: f.coord}

	out := bp.ProcessBatch(context.Background(), wfsState(), domain.ActionStart, "Ana", []string{" ", ""})
	if out.Success || out.Kind != domain.KindEmptyBatch {
		t.Fatalf("outcome = %+v, want empty batch", out.Outcome)
	}
}

func TestProcessBatchBypassesDuplicateGuard(t *testing.T) {
	f := newFixture(t)
	f.put("M-1", domain.StatusReceived)
	st := wfsState()
	st.RecordSubmission(domain.SubmissionKey{Action: domain.ActionStart, ManifestID: "M-1", ActorName: "Ana"})

	bp := &BatchProcessor{Coordinator: f.coord}
	out := bp.ProcessBatch(context.Background(), st, domain.ActionStart, "Ana", []string{"M-1", "M-1"})
	if !out.Success || out.Succeeded != 1 {
		t.Fatalf("outcome = %+v, want one success", out.Outcome)
	}
}
