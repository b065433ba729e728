package changefeed

import (
	"context"
	"manifest-service/internal/ports"
	"sync"
)

var _ ports.ChangeFeed = (*MemoryFeed)(nil)

// MemoryFeed fans change events out to in-process subscribers.
// Slow subscribers drop events rather than block publishers; a dropped
// event is harmless because any later event triggers a full reload.
type MemoryFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan ports.ChangeEvent
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[int]chan ports.ChangeEvent)}
}

func (f *MemoryFeed) Subscribe(ctx context.Context) (<-chan ports.ChangeEvent, error) {
	ch := make(chan ports.ChangeEvent, 16)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, id)
		close(ch)
		f.mu.Unlock()
	}()

	return ch, nil
}

func (f *MemoryFeed) Publish(_ context.Context, ev ports.ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}
