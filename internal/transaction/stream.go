package transaction

import (
	"context"
	"sync"
)

// Hub fans out change notifications to subscribers. Each subscriber gets a
// coalesced signal channel: an initial tick on subscribe, then one tick per
// batch of writes since it last drained the channel.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan struct{}]struct{}),
	}
}

// Subscribe registers a listener tied to ctx. The returned channel carries an
// immediate tick so subscribers can load the current state without waiting
// for the first write. The channel is closed when ctx is done.
func (h *Hub) Subscribe(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subscribers, ch)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Notify signals all subscribers that the underlying data changed. Slow
// subscribers that have not drained their pending tick are skipped; the
// pending tick already covers this change.
func (h *Hub) Notify() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
