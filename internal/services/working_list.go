package services

import (
	"manifest-service/internal/domain"
	"sync"
	"time"
)

// Item is one row of a working list.
type Item struct {
	ManifestID string            `json:"manifest_id"`
	Loads      domain.LoadCounts `json:"loads"`
}

// ItemState tracks an identifier through optimistic removal.
type ItemState int

const (
	ItemVisible ItemState = iota
	// Removed locally after an accepted action; a reload may still list it.
	ItemOptimisticallyRemoved
	// An authoritative reload no longer listed it.
	ItemConfirmedRemoved
)

func (s ItemState) String() string {
	switch s {
	case ItemOptimisticallyRemoved:
		return "optimistically-removed"
	case ItemConfirmedRemoved:
		return "confirmed-removed"
	}
	return "visible"
}

type removal struct {
	state ItemState
	at    time.Time
}

// WorkingList is the ordered set of identifiers visible to one view.
//
// Reloads are authoritative except for removed items: an optimistically
// removed item stays hidden while reloads within the stale window still list
// it, reappears if a later reload still lists it (the removal did not take
// upstream), and becomes confirmed once a reload omits it. Confirmed items
// never reappear until the list is reset.
type WorkingList struct {
	mu          sync.Mutex
	staleWindow time.Duration
	now         func() time.Time
	items       []Item
	removed     map[string]removal
	inFlight    map[string]struct{}
}

func NewWorkingList(staleWindow time.Duration) *WorkingList {
	return &WorkingList{
		staleWindow: staleWindow,
		now:         time.Now,
		removed:     make(map[string]removal),
		inFlight:    make(map[string]struct{}),
	}
}

// Reset forgets everything, including removal tombstones.
func (l *WorkingList) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
	l.removed = make(map[string]removal)
	l.inFlight = make(map[string]struct{})
}

// Replace applies an authoritative reload.
func (l *WorkingList) Replace(items []Item) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]struct{}, len(items))
	deduped := make([]Item, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ManifestID]; ok {
			continue
		}
		seen[it.ManifestID] = struct{}{}
		deduped = append(deduped, it)
	}
	l.items = deduped

	now := l.now()
	for id, r := range l.removed {
		_, listed := seen[id]
		switch {
		case !listed:
			l.removed[id] = removal{state: ItemConfirmedRemoved, at: r.at}
		case r.state == ItemOptimisticallyRemoved && now.Sub(r.at) > l.staleWindow:
			delete(l.removed, id)
		}
	}
}

// Visible returns the items currently shown, in reload order.
func (l *WorkingList) Visible() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Item, 0, len(l.items))
	for _, it := range l.items {
		if _, gone := l.removed[it.ManifestID]; gone {
			continue
		}
		out = append(out, it)
	}
	return out
}

// IDs returns the visible identifiers.
func (l *WorkingList) IDs() []string {
	items := l.Visible()
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ManifestID)
	}
	return ids
}

func (l *WorkingList) State(id string) ItemState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.removed[id]; ok {
		return r.state
	}
	return ItemVisible
}

// BeginSubmit marks id as mid-submission. It returns false when id is
// already in flight.
func (l *WorkingList) BeginSubmit(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.inFlight[id]; busy {
		return false
	}
	l.inFlight[id] = struct{}{}
	return true
}

func (l *WorkingList) EndSubmit(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, id)
}

// RemoveOptimistic hides id ahead of the next authoritative reload.
func (l *WorkingList) RemoveOptimistic(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.removed[id]; ok && r.state == ItemConfirmedRemoved {
		return
	}
	l.removed[id] = removal{state: ItemOptimisticallyRemoved, at: l.now()}
}

// Restore undoes an optimistic removal whose action failed upstream.
func (l *WorkingList) Restore(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.removed[id]; ok && r.state == ItemOptimisticallyRemoved {
		delete(l.removed, id)
	}
}
