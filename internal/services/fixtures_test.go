package services

import (
	"context"
	"fmt"
	"manifest-service/internal/adapters/repositories"
	"manifest-service/internal/domain"
	"manifest-service/internal/ports"
	"sync"
	"testing"
	"time"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []ports.TransitionNotice
	err     error
}

func (n *recordingNotifier) NotifyTransition(_ context.Context, tn ports.TransitionNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, tn)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}

type fixture struct {
	store    *repositories.MemoryRecordStore
	notifier *recordingNotifier
	engine   *TransitionEngine
	coord    *SubmissionCoordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repositories.NewMemoryRecordStore()
	notifier := &recordingNotifier{}
	engine := NewTransitionEngine(store, store)
	engine.Now = func() time.Time { return time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC) }
	var n int
	var mu sync.Mutex
	engine.NewID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("audit-%d", n)
	}

	return &fixture{
		store:    store,
		notifier: notifier,
		engine:   engine,
		coord:    &SubmissionCoordinator{Engine: engine, Notifier: notifier},
	}
}

func (f *fixture) put(id string, status domain.Status) {
	f.store.PutManifest(domain.Manifest{ManifestID: id, Status: status, CarrierAgent: "Acme", Loads: domain.LoadCounts{A: 10, B: 4}})
}

func (f *fixture) status(t *testing.T, id string) domain.Status {
	t.Helper()
	m, err := f.store.GetManifest(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return m.Status
}

func wfsState() *AppState {
	return NewAppState(domain.Session{Role: domain.RoleWFS}, time.Second)
}

func ciaState(agent string) *AppState {
	return NewAppState(domain.Session{Role: domain.RoleCIA, ActorName: agent}, time.Second)
}
