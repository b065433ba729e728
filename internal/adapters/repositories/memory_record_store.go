package repositories

import (
	"context"
	"manifest-service/internal/domain"
	"manifest-service/internal/ports"
	"sort"
	"strings"
	"sync"
)

var _ ports.RecordStore = (*MemoryRecordStore)(nil)

// MemoryRecordStore is an in-process RecordStore for tests and local runs.
// The Fail* fields inject errors into the matching write path. Writes honor
// context cancellation the way database/sql does.
type MemoryRecordStore struct {
	mu        sync.Mutex
	manifests map[string]*domain.Manifest
	audit     []domain.AuditEntry
	operators map[string]struct{}
	agents    map[string]string

	FailAudit     error
	FailUpdate    error
	FailSecondary error
	FailReads     error

	// BeforeUpdate, when set, runs ahead of every status update, outside the
	// store lock, so a test can interleave a competing writer.
	BeforeUpdate func(ports.StatusUpdate)
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		manifests: make(map[string]*domain.Manifest),
		operators: make(map[string]struct{}),
		agents:    make(map[string]string),
	}
}

// PutManifest inserts or replaces a manifest.
func (s *MemoryRecordStore) PutManifest(m domain.Manifest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := m
	s.manifests[m.ManifestID] = &cp
}

func (s *MemoryRecordStore) AddOperator(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operators[name] = struct{}{}
	return nil
}

// PutAgent stores an agent with an already hashed password.
func (s *MemoryRecordStore) PutAgent(name, passwordHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[name] = passwordHash
}

// Audit returns a copy of every audit entry for manifestID.
func (s *MemoryRecordStore) Audit(manifestID string) []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range s.audit {
		if e.ManifestID == manifestID {
			out = append(out, e)
		}
	}
	return out
}

func (s *MemoryRecordStore) Ping(context.Context) error {
	return s.FailReads
}

func (s *MemoryRecordStore) GetManifest(_ context.Context, manifestID string) (*domain.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReads != nil {
		return nil, s.FailReads
	}
	m, ok := s.manifests[manifestID]
	if !ok {
		return nil, domain.ErrNoRows
	}
	cp := *m
	return &cp, nil
}

func matchesStatus(st domain.Status, want []domain.Status) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		if st == w {
			return true
		}
	}
	return false
}

func (s *MemoryRecordStore) ListManifests(_ context.Context, f domain.ManifestFilter) ([]*domain.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReads != nil {
		return nil, s.FailReads
	}

	out := make([]*domain.Manifest, 0, len(s.manifests))
	for _, m := range s.manifests {
		if !matchesStatus(m.Status, f.Statuses) {
			continue
		}
		if f.AssignedOperator != "" && m.AssignedOperator != f.AssignedOperator {
			continue
		}
		if f.CarrierAgent != "" && !strings.EqualFold(m.CarrierAgent, f.CarrierAgent) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ManifestID < out[j].ManifestID })
	return out, nil
}

func (s *MemoryRecordStore) UpdateStatus(ctx context.Context, u ports.StatusUpdate) error {
	if s.BeforeUpdate != nil {
		s.BeforeUpdate(u)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdate != nil {
		return s.FailUpdate
	}
	m, ok := s.manifests[u.ManifestID]
	if !ok || !matchesStatus(m.Status, u.From) {
		return domain.ErrNoRows
	}
	at := u.At
	m.Status = u.To
	m.AssignedOperator = u.Operator
	m.LastActionAt = &at
	return nil
}

func (s *MemoryRecordStore) UpdateSecondaryAction(ctx context.Context, manifestID string, action domain.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSecondary != nil {
		return s.FailSecondary
	}
	if m, ok := s.manifests[manifestID]; ok {
		m.SecondaryAction = string(action)
	}
	return nil
}

func (s *MemoryRecordStore) AppendAudit(ctx context.Context, e domain.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAudit != nil {
		return s.FailAudit
	}
	s.audit = append(s.audit, e)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *MemoryRecordStore) ListOperatorNames(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReads != nil {
		return nil, s.FailReads
	}
	return sortedKeys(s.operators), nil
}

func (s *MemoryRecordStore) ListAgentNames(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReads != nil {
		return nil, s.FailReads
	}
	return sortedKeys(s.agents), nil
}

func (s *MemoryRecordStore) AgentPasswordHash(_ context.Context, agentName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReads != nil {
		return "", s.FailReads
	}
	hash, ok := s.agents[agentName]
	if !ok {
		return "", domain.ErrNoRows
	}
	return hash, nil
}
