package mq

const TaskExpireReservation = "checkout:expire_reservation"

// ExpireReservationPayload is the delayed task enqueued when an order goes
// to PENDING_PAYMENT. The handler cancels the order if no callback settled
// it before the reservation TTL.
type ExpireReservationPayload struct {
	OrderId int64 `json:"order_id"`
	UserId  int64 `json:"user_id"`
}

// OrderEvent is the payload published to Kafka on every order state change,
// for downstream consumers such as analytics and merchant dashboards.
type OrderEvent struct {
	Kind       string `json:"kind"`
	OrderId    int64  `json:"order_id"`
	UserId     int64  `json:"user_id"`
	Status     string `json:"status"`
	FinalCents int64  `json:"final_cents"`
	Reason     string `json:"reason,omitempty"`
	OccurredAt int64  `json:"occurred_at"`
}
