package indexerclient

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Client for tests, grounded on the teacher's
// lightning.FakeBackend: a test pushes events with Push, and Observe
// replays whatever is queued after afterCursor, then blocks until ctx
// is canceled or more events are pushed.
type Fake struct {
	mu     sync.Mutex
	cond   *sync.Cond
	events []Event
	closed bool
}

func NewFake() *Fake {
	f := &Fake{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Push appends an event to the fake chain. Cursor is assigned as the
// event's position if not already set.
func (f *Fake) Push(e Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.Cursor == "" {
		e.Cursor = fmt.Sprintf("%d", len(f.events))
	}
	f.events = append(f.events, e)
	f.cond.Broadcast()
}

func (f *Fake) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}

func (f *Fake) Observe(ctx context.Context, afterCursor string, onEvent func(Event) error) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			f.mu.Lock()
			f.cond.Broadcast()
			f.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	f.mu.Lock()
	idx := 0
	if afterCursor != "" {
		for i, e := range f.events {
			if e.Cursor == afterCursor {
				idx = i + 1
				break
			}
		}
	}

	for {
		for idx < len(f.events) {
			e := f.events[idx]
			idx++
			f.mu.Unlock()
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := onEvent(e); err != nil {
				return err
			}
			f.mu.Lock()
		}
		if f.closed {
			f.mu.Unlock()
			return nil
		}
		if err := ctx.Err(); err != nil {
			f.mu.Unlock()
			return err
		}
		f.cond.Wait()
	}
}
