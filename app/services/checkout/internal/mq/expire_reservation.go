package mq

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

// ExpireFunc settles one overdue order. Injected at bootstrap so the
// consumer carries no business logic of its own.
type ExpireFunc func(ctx context.Context, orderId int64) error

func newExpireReservationHandler(expire ExpireFunc) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload ExpireReservationPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return err
		}
		return expire(ctx, payload.OrderId)
	}
}
