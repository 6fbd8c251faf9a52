package daemon

import (
	"sync"

	"github.com/speckit/harness/internal/protocol"
)

// eventBus fans out AgentRecord transitions to every subscribe connection
// (§4.4's subscribe push stream). A slow subscriber drops events rather
// than backpressuring the supervisor goroutine that publishes them.
type eventBus struct {
	mu   sync.Mutex
	subs map[chan protocol.EventFrame]struct{}
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[chan protocol.EventFrame]struct{})}
}

// Subscribe registers a new listener and returns its channel along with an
// unsubscribe func the caller must call exactly once.
func (b *eventBus) Subscribe() (<-chan protocol.EventFrame, func()) {
	ch := make(chan protocol.EventFrame, 32)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsubscribe
}

// Publish delivers ev to every current subscriber, dropping it for any
// subscriber whose buffer is full.
func (b *eventBus) Publish(ev protocol.EventFrame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
