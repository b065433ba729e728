package services

import (
	"context"
	"errors"
	"manifest-service/internal/adapters/repositories"
	"manifest-service/internal/domain"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newGate(t *testing.T) (*AuthGate, *repositories.MemoryRecordStore) {
	t.Helper()
	store := repositories.NewMemoryRecordStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	store.PutAgent("Acme", string(hash))
	return &AuthGate{Roster: store}, store
}

func TestAuthenticate(t *testing.T) {
	gate, store := newGate(t)
	ctx := context.Background()

	if !gate.Authenticate(ctx, "Acme", "s3cret") {
		t.Fatal("expected valid credentials to pass")
	}
	if gate.Authenticate(ctx, "Acme", "wrong") {
		t.Fatal("wrong password accepted")
	}
	if gate.Authenticate(ctx, "acme", "s3cret") {
		t.Fatal("username match must be exact")
	}

	store.FailReads = errors.New("connection reset")
	if gate.Authenticate(ctx, "Acme", "s3cret") {
		t.Fatal("store failure must fail closed")
	}
}

func TestOpenSession(t *testing.T) {
	gate, _ := newGate(t)
	ctx := context.Background()

	s, err := gate.OpenSession(ctx, domain.RoleCIA, " Acme ", "s3cret")
	if err != nil || s.ActorName != "Acme" || s.Role != domain.RoleCIA {
		t.Fatalf("session = %+v, err = %v", s, err)
	}

	_, err = gate.OpenSession(ctx, domain.RoleCIA, "Acme", "bad")
	if domain.KindOf(err) != domain.KindUnauthorized {
		t.Fatalf("err = %v, want unauthorized", err)
	}

	s, err = gate.OpenSession(ctx, domain.RoleWFS, "", "")
	if err != nil || s.Role != domain.RoleWFS {
		t.Fatalf("staff session = %+v, err = %v", s, err)
	}
}
