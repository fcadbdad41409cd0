package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const subscriberBuffer = 16

// Event is pushed to every live subscriber when an order changes state.
type Event struct {
	Kind      string    `json:"kind"`
	OrderId   int64     `json:"order_id"`
	UserId    int64     `json:"user_id"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	KindOrderCreated   = "order.created"
	KindOrderPaid      = "order.paid"
	KindPaymentFailed  = "order.payment_failed"
	KindOrderCancelled = "order.cancelled"
	KindOrderAdvanced  = "order.advanced"
)

// Hub fans order events out to subscribers. Each subscriber owns a buffered
// channel; events keep arrival order per subscriber. A subscriber whose
// buffer is full is evicted and its channel closed, so a stalled consumer
// never blocks the publisher or other subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[string]chan Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]chan Event)}
}

// Subscribe registers a new subscriber and returns its id and channel. The
// channel is closed by Unsubscribe or by eviction, never by the caller.
func (h *Hub) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	return id, ch
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Broadcast delivers evt to every subscriber without blocking. Subscribers
// that cannot accept the event are dropped inline.
func (h *Hub) Broadcast(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			delete(h.subs, id)
			close(ch)
		}
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
