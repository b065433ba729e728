package services

import (
	"context"
	"manifest-service/internal/domain"
	"strings"
	"sync"
	"time"
)

// AppState is the working memory of one logged-in client: its session, the
// reference names used for validation, the last accepted submission and the
// working list of the currently selected view. Created at login and cleared
// at logout.
type AppState struct {
	mu         sync.Mutex
	session    domain.Session
	knownNames []string
	last       *domain.SubmissionKey
	view       View
	operator   string
	operators  []string
	cancel     context.CancelFunc

	List *WorkingList
}

func NewAppState(session domain.Session, staleWindow time.Duration) *AppState {
	return &AppState{
		session: session,
		List:    NewWorkingList(staleWindow),
	}
}

func (s *AppState) Session() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// SetKnownNames replaces the staff roster that start submissions are
// validated against.
func (s *AppState) SetKnownNames(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.knownNames = append([]string(nil), names...)
}

func (s *AppState) KnownNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.knownNames...)
}

// IsKnownName reports whether name is acceptable for action. Start is checked
// against the staff roster, finish against the operators holding open
// manifests. An empty reference list accepts any name.
func (s *AppState) IsKnownName(action domain.Action, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := s.knownNames
	if action == domain.ActionFinish {
		names = s.operators
	}
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func (s *AppState) IsDuplicate(key domain.SubmissionKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last != nil && *s.last == key
}

func (s *AppState) RecordSubmission(key domain.SubmissionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &key
}

// Selection returns the current view and chosen operator.
func (s *AppState) Selection() (View, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view, s.operator
}

// Select switches view or operator. The working list restarts when either changes.
func (s *AppState) Select(view View, operator string) {
	s.mu.Lock()
	changed := s.view != view || s.operator != operator
	s.view = view
	s.operator = operator
	s.mu.Unlock()

	if changed {
		s.List.Reset()
	}
}

// SetOperatorChoices stores the names offered by the finish view.
func (s *AppState) SetOperatorChoices(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operators = append([]string(nil), names...)
}

func (s *AppState) OperatorChoices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.operators...)
}

// BindWatch stores the cancel func of the live subscription, cancelling any
// previous one.
func (s *AppState) BindWatch(cancel context.CancelFunc) {
	s.mu.Lock()
	prev := s.cancel
	s.cancel = cancel
	s.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// Close ends the live subscription and drops client-held data.
func (s *AppState) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.knownNames = nil
	s.operators = nil
	s.last = nil
	s.view = ""
	s.operator = ""
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.List.Reset()
}
