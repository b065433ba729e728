package handlers

import (
	"context"
	"log"
	"manifest-service/internal/api/dto"
	"manifest-service/internal/domain"
	"manifest-service/internal/ports"
	"manifest-service/internal/services"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const SessionHeader = "X-Session-Token"

// SessionRegistry maps session tokens to their client state.
type SessionRegistry struct {
	mu     sync.Mutex
	states map[string]*services.AppState
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{states: make(map[string]*services.AppState)}
}

func (r *SessionRegistry) add(st *services.AppState) string {
	token := uuid.NewString()
	r.mu.Lock()
	r.states[token] = st
	r.mu.Unlock()
	return token
}

func (r *SessionRegistry) get(token string) (*services.AppState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[token]
	return st, ok
}

func (r *SessionRegistry) remove(token string) (*services.AppState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[token]
	delete(r.states, token)
	return st, ok
}

// CloseAll ends every session; used at shutdown.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	states := r.states
	r.states = make(map[string]*services.AppState)
	r.mu.Unlock()
	for _, st := range states {
		st.Close()
	}
}

// lookup resolves the caller's session or writes a 401.
func (r *SessionRegistry) lookup(w http.ResponseWriter, req *http.Request) (*services.AppState, bool) {
	token := strings.TrimSpace(req.Header.Get(SessionHeader))
	if token == "" {
		writeError(w, req, http.StatusUnauthorized, "missing session token")
		return nil, false
	}
	st, ok := r.get(token)
	if !ok {
		writeError(w, req, http.StatusUnauthorized, "unknown session")
		return nil, false
	}
	return st, true
}

// SessionHandler opens and closes client sessions. Each session gets its
// own live-change subscription, cancelled on logout.
type SessionHandler struct {
	Gate        *services.AuthGate
	Registry    *SessionRegistry
	Reconciler  *services.Reconciler
	Feed        ports.ChangeFeed
	StaleWindow time.Duration
}

func (h *SessionHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	role, ok := domain.ParseRole(req.Role)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "role must be WFS or CIA")
		return
	}

	session, err := h.Gate.OpenSession(r.Context(), role, req.Username, req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	st := services.NewAppState(session, h.StaleWindow)
	if h.Feed != nil {
		ctx, cancel := context.WithCancel(context.Background())
		st.BindWatch(cancel)
		go func() {
			if err := h.Reconciler.Watch(ctx, st, h.Feed); err != nil {
				log.Printf("live updates unavailable role=%s err=%v", session.Role, err)
			}
		}()
	}
	token := h.Registry.add(st)

	writeJSON(w, r, http.StatusCreated, dto.SessionResponse{
		Token:     token,
		Role:      string(session.Role),
		ActorName: session.ActorName,
	})
}

func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	st, ok := h.Registry.remove(strings.TrimSpace(r.Header.Get(SessionHeader)))
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unknown session")
		return
	}
	st.Close()
	w.WriteHeader(http.StatusNoContent)
}
