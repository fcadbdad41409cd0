package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/stores/redis"
)

const (
	defaultDedupWindow     = 24 * time.Hour
	callbackDedupKeyFormat = "pay:cb:%s:%s"
)

type (
	// CallbackDedupModel remembers processed (provider, eventId) pairs for a
	// bounded window. Providers redeliver events, so a hit means the callback
	// was already applied and must be acknowledged without side effects.
	// Events older than the window are caught by the order-state guards.
	CallbackDedupModel interface {
		Seen(ctx context.Context, provider, eventId string) (bool, error)
		Mark(ctx context.Context, provider, eventId string) error
	}

	defaultCallbackDedupModel struct {
		redis  *redis.Redis
		window time.Duration
	}
)

// NewCallbackDedupModel returns a redis-backed dedup window. A zero window
// falls back to the default 24h.
func NewCallbackDedupModel(r *redis.Redis, window time.Duration) CallbackDedupModel {
	if window <= 0 {
		window = defaultDedupWindow
	}
	return &defaultCallbackDedupModel{redis: r, window: window}
}

func (m *defaultCallbackDedupModel) Seen(ctx context.Context, provider, eventId string) (bool, error) {
	return m.redis.ExistsCtx(ctx, dedupKey(provider, eventId))
}

func (m *defaultCallbackDedupModel) Mark(ctx context.Context, provider, eventId string) error {
	return m.redis.SetexCtx(ctx, dedupKey(provider, eventId), "1", int(m.window/time.Second))
}

func dedupKey(provider, eventId string) string {
	return fmt.Sprintf(callbackDedupKeyFormat, provider, eventId)
}
