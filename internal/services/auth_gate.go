package services

import (
	"context"
	"errors"
	"log"
	"manifest-service/internal/domain"
	"manifest-service/internal/ports"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AuthGate checks carrier-agent credentials against the roster.
type AuthGate struct {
	Roster ports.RosterStore
}

// Authenticate reports whether (username, password) matches a roster entry.
// Any store failure counts as a mismatch.
func (g *AuthGate) Authenticate(ctx context.Context, username, password string) bool {
	if username == "" || password == "" {
		return false
	}

	hash, err := g.Roster.AgentPasswordHash(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrNoRows) {
			log.Printf("auth lookup failed agent=%s err=%v", username, err)
		}
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// OpenSession admits a user under role. Staff sessions need no credentials;
// the staff member's name is chosen per submission.
func (g *AuthGate) OpenSession(ctx context.Context, role domain.Role, username, password string) (domain.Session, error) {
	switch role {
	case domain.RoleWFS:
		return domain.Session{Role: domain.RoleWFS}, nil
	case domain.RoleCIA:
		username = strings.TrimSpace(username)
		if username == "" || password == "" {
			return domain.Session{}, domain.NewError(domain.KindValidation, "enter a username and password")
		}
		if !g.Authenticate(ctx, username, password) {
			return domain.Session{}, domain.NewError(domain.KindUnauthorized, "invalid credentials")
		}
		return domain.Session{Role: domain.RoleCIA, ActorName: username}, nil
	}
	return domain.Session{}, domain.NewError(domain.KindValidation, "select an access profile")
}
