package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastOrder(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe()
	defer h.Unsubscribe(id)

	for i := int64(1); i <= 5; i++ {
		h.Broadcast(Event{Kind: KindOrderPaid, OrderId: i})
	}

	for i := int64(1); i <= 5; i++ {
		evt := <-ch
		assert.Equal(t, i, evt.OrderId)
		assert.False(t, evt.Timestamp.IsZero())
	}
}

func TestHubIndependentSubscribers(t *testing.T) {
	h := NewHub()
	id1, ch1 := h.Subscribe()
	id2, ch2 := h.Subscribe()
	defer h.Unsubscribe(id1)
	defer h.Unsubscribe(id2)

	h.Broadcast(Event{Kind: KindOrderCreated, OrderId: 9})

	assert.Equal(t, int64(9), (<-ch1).OrderId)
	assert.Equal(t, int64(9), (<-ch2).OrderId)
}

func TestHubEvictsFullSubscriber(t *testing.T) {
	h := NewHub()
	slowId, slow := h.Subscribe()
	liveId, live := h.Subscribe()
	defer h.Unsubscribe(liveId)

	// Fill both buffers, then drain only the live one.
	for i := 0; i < subscriberBuffer; i++ {
		h.Broadcast(Event{Kind: KindOrderAdvanced, OrderId: int64(i)})
	}
	for i := 0; i < subscriberBuffer; i++ {
		<-live
	}

	// One more event overflows slow and evicts it; live still receives.
	h.Broadcast(Event{Kind: KindOrderAdvanced, OrderId: 99})
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, int64(99), (<-live).OrderId)

	// The evicted channel is closed after its buffered events drain.
	for i := 0; i < subscriberBuffer; i++ {
		_, ok := <-slow
		require.True(t, ok)
	}
	_, ok := <-slow
	assert.False(t, ok)

	// Unsubscribing an already-evicted id is a no-op.
	h.Unsubscribe(slowId)
	assert.Equal(t, 1, h.Len())
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe()

	h.Unsubscribe(id)
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())
}
