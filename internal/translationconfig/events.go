package translationconfig

import (
	"context"
	"sync"
)

// watcherHub fans settings changes out to subscribers. Delivery is
// best-effort: a watcher that is not draining its channel misses events
// instead of blocking the writer.
type watcherHub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan ChangeEvent
}

func newWatcherHub() *watcherHub {
	return &watcherHub{subs: map[uint64]chan ChangeEvent{}}
}

// watch registers a subscriber that lives until ctx is done. A cancelled
// context yields an already-closed channel.
func (h *watcherHub) watch(ctx context.Context) <-chan ChangeEvent {
	if ctx == nil {
		ctx = context.Background()
	}
	ch := make(chan ChangeEvent, 1)
	if ctx.Err() != nil {
		close(ch)
		return ch
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		close(ch)
	}()
	return ch
}

func (h *watcherHub) publish(evt ChangeEvent) {
	h.mu.Lock()
	targets := make([]chan ChangeEvent, 0, len(h.subs))
	for _, ch := range h.subs {
		targets = append(targets, ch)
	}
	h.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- evt:
		default:
		}
	}
}
