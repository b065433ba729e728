package services

import (
	"context"
	"errors"
	"manifest-service/internal/adapters/changefeed"
	"manifest-service/internal/adapters/repositories"
	"manifest-service/internal/domain"
	"manifest-service/internal/ports"
	"testing"
	"time"
)

func TestSubmitStartThenDuplicate(t *testing.T) {
	f := newFixture(t)
	f.put("M-100", domain.StatusReceived)
	st := wfsState()
	ctx := context.Background()

	sub := Submission{Action: domain.ActionStart, ManifestID: "M-100", ActorName: "Ana"}

	out := f.coord.Submit(ctx, st, sub)
	if !out.Success {
		t.Fatalf("first submit failed: %+v", out)
	}
	m, _ := f.store.GetManifest(ctx, "M-100")
	if m.Status != domain.StatusStarted || m.AssignedOperator != "Ana" {
		t.Fatalf("manifest = %+v", m)
	}
	entries := f.store.Audit("M-100")
	if len(entries) != 1 || entries[0].Action != domain.ActionStart {
		t.Fatalf("audit = %+v", entries)
	}

	out = f.coord.Submit(ctx, st, sub)
	if out.Success || out.Kind != domain.KindDuplicateSubmission {
		t.Fatalf("second submit = %+v, want duplicate submission", out)
	}
	if len(f.store.Audit("M-100")) != 1 {
		t.Fatal("duplicate submission must not write an audit entry")
	}
	f.coord.Wait()
	if f.notifier.count() != 1 {
		t.Fatalf("notifications = %d, want 1", f.notifier.count())
	}
}

func TestSubmitValidationOrder(t *testing.T) {
	f := newFixture(t)
	f.put("M-1", domain.StatusReceived)
	ctx := context.Background()

	st := wfsState()
	st.SetKnownNames([]string{"Ana", "Bruno"})

	cases := []struct {
		name string
		st   *AppState
		sub  Submission
	}{
		{"missing manifest", st, Submission{Action: domain.ActionStart, ActorName: "Ana"}},
		{"missing name", st, Submission{Action: domain.ActionStart, ManifestID: "M-1"}},
		{"unknown name", st, Submission{Action: domain.ActionStart, ManifestID: "M-1", ActorName: "Zed"}},
		{"wrong role", st, Submission{Action: domain.ActionBeginReview, ManifestID: "M-1", ActorName: "Ana"}},
		{"unknown action", st, Submission{Action: "ship", ManifestID: "M-1", ActorName: "Ana"}},
	}
	for _, tc := range cases {
		out := f.coord.Submit(ctx, tc.st, tc.sub)
		if out.Success || out.Kind != domain.KindValidation {
			t.Fatalf("%s: outcome = %+v, want validation failure", tc.name, out)
		}
	}
	if len(f.store.Audit("M-1")) != 0 {
		t.Fatal("validation failures must not reach the store")
	}

	out := f.coord.Submit(ctx, st, Submission{Action: domain.ActionStart, ManifestID: "M-1", ActorName: "ana"})
	if !out.Success {
		t.Fatalf("case-insensitive name match failed: %+v", out)
	}
}

func TestSubmitUsesLoggedInAgentForCarrierActions(t *testing.T) {
	f := newFixture(t)
	f.put("M-1", domain.StatusStarted)
	st := ciaState("Acme")

	out := f.coord.Submit(context.Background(), st, Submission{Action: domain.ActionBeginReview, ManifestID: "M-1", ActorName: "someone else"})
	if !out.Success {
		t.Fatalf("outcome = %+v", out)
	}
	m, _ := f.store.GetManifest(context.Background(), "M-1")
	if m.AssignedOperator != "Acme" {
		t.Fatalf("operator = %q, want Acme", m.AssignedOperator)
	}
}

func TestSubmitSwallowsNotificationFailure(t *testing.T) {
	f := newFixture(t)
	f.put("M-1", domain.StatusReceived)
	f.notifier.err = errors.New("webhook unreachable")

	out := f.coord.Submit(context.Background(), wfsState(), Submission{Action: domain.ActionStart, ManifestID: "M-1", ActorName: "Ana"})
	if !out.Success {
		t.Fatalf("notification failure must not fail the submission: %+v", out)
	}
	if f.status(t, "M-1") != domain.StatusStarted {
		t.Fatal("status must stay updated")
	}
	f.coord.Wait()
	if f.notifier.count() != 1 {
		t.Fatalf("notifications = %d, want 1", f.notifier.count())
	}
}

func TestSubmitFailedTransitionDoesNotArmDuplicateGuard(t *testing.T) {
	f := newFixture(t)
	f.put("M-1", domain.StatusFinished)
	st := wfsState()
	sub := Submission{Action: domain.ActionStart, ManifestID: "M-1", ActorName: "Ana"}

	first := f.coord.Submit(context.Background(), st, sub)
	second := f.coord.Submit(context.Background(), st, sub)
	if first.Kind != domain.KindInvalidTransition || second.Kind != domain.KindInvalidTransition {
		t.Fatalf("outcomes = %+v / %+v, want invalid transition twice", first, second)
	}
}

func TestSubmitPublishesChangeEvent(t *testing.T) {
	f := newFixture(t)
	f.put("M-1", domain.StatusReceived)
	feed := changefeed.NewMemoryFeed()
	f.coord.Feed = feed

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _ := feed.Subscribe(ctx)

	f.coord.Submit(ctx, wfsState(), Submission{Action: domain.ActionStart, ManifestID: "M-1", ActorName: "Ana"})

	select {
	case ev := <-events:
		if ev.Table != ports.TableManifests || ev.ManifestID != "M-1" {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no change event published")
	}
}

type blockingNotifier struct {
	release chan struct{}
	done    chan ports.TransitionNotice
}

func (n *blockingNotifier) NotifyTransition(ctx context.Context, tn ports.TransitionNotice) error {
	<-n.release
	if err := ctx.Err(); err != nil {
		return err
	}
	n.done <- tn
	return nil
}

func TestSubmitDoesNotWaitForNotification(t *testing.T) {
	f := newFixture(t)
	f.put("M-1", domain.StatusReceived)
	n := &blockingNotifier{release: make(chan struct{}), done: make(chan ports.TransitionNotice, 1)}
	f.coord.Notifier = n

	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan Outcome, 1)
	go func() {
		returned <- f.coord.Submit(ctx, wfsState(), Submission{Action: domain.ActionStart, ManifestID: "M-1", ActorName: "Ana"})
	}()

	select {
	case out := <-returned:
		if !out.Success {
			t.Fatalf("outcome = %+v", out)
		}
	case <-time.After(time.Second):
		t.Fatal("submit blocked on the notifier")
	}

	// The request going away must not drop the pending notification.
	cancel()
	close(n.release)
	select {
	case tn := <-n.done:
		if tn.ManifestID != "M-1" || tn.Action != domain.ActionStart {
			t.Fatalf("notice = %+v", tn)
		}
	case <-time.After(time.Second):
		t.Fatal("notification was not delivered")
	}
	f.coord.Wait()
}

// cancelAfterAudit cancels the caller's context as soon as the audit entry
// is written, as a client disconnect mid-submission would.
type cancelAfterAudit struct {
	*repositories.MemoryRecordStore
	cancel context.CancelFunc
}

func (s *cancelAfterAudit) AppendAudit(ctx context.Context, e domain.AuditEntry) error {
	err := s.MemoryRecordStore.AppendAudit(ctx, e)
	s.cancel()
	return err
}

func TestSubmitCompletesAfterCallerCancels(t *testing.T) {
	f := newFixture(t)
	f.put("M-1", domain.StatusReceived)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &cancelAfterAudit{MemoryRecordStore: f.store, cancel: cancel}
	f.engine.Manifests = store
	f.engine.Audit = store

	out := f.coord.Submit(ctx, wfsState(), Submission{Action: domain.ActionStart, ManifestID: "M-1", ActorName: "Ana"})
	if !out.Success {
		t.Fatalf("outcome = %+v, want success", out)
	}
	if ctx.Err() == nil {
		t.Fatal("context was not cancelled during the submission")
	}
	if got := f.status(t, "M-1"); got != domain.StatusStarted {
		t.Fatalf("status = %s, want started", got)
	}
	if got := len(f.store.Audit("M-1")); got != 1 {
		t.Fatalf("audit entries = %d, want 1", got)
	}
	f.coord.Wait()
}

func TestFinishNameCheckedAgainstOperatorsAndStartAgainstRoster(t *testing.T) {
	f := newFixture(t)
	f.put("M-1", domain.StatusReceived)
	f.store.PutManifest(domain.Manifest{ManifestID: "M-2", Status: domain.StatusStarted, AssignedOperator: "Bruno"})
	_ = f.store.AddOperator(context.Background(), "Ana")
	r := &Reconciler{Store: f.store, Coordinator: f.coord}
	st := wfsState()
	ctx := context.Background()

	if _, err := r.Load(ctx, st, ViewStart, ""); err != nil {
		t.Fatalf("load start: %v", err)
	}
	if _, err := r.Load(ctx, st, ViewFinish, "Bruno"); err != nil {
		t.Fatalf("load finish: %v", err)
	}

	out := f.coord.Submit(ctx, st, Submission{Action: domain.ActionStart, ManifestID: "M-1", ActorName: "Ana"})
	if !out.Success {
		t.Fatalf("start by rostered staff after loading finish view = %+v", out)
	}
	out = f.coord.Submit(ctx, st, Submission{Action: domain.ActionStart, ManifestID: "M-1", ActorName: "Bruno"})
	if out.Kind != domain.KindValidation {
		t.Fatalf("start by non-rostered name = %+v, want validation", out)
	}
	out = f.coord.Submit(ctx, st, Submission{Action: domain.ActionFinish, ManifestID: "M-2", ActorName: "Ana"})
	if out.Kind != domain.KindValidation {
		t.Fatalf("finish by operator without open manifests = %+v, want validation", out)
	}
	out = f.coord.Submit(ctx, st, Submission{Action: domain.ActionFinish, ManifestID: "M-2", ActorName: "Bruno"})
	if !out.Success {
		t.Fatalf("finish by holding operator = %+v", out)
	}
	f.coord.Wait()
}
