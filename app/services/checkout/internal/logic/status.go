package logic

import "MapleMall/app/common/consts/biz"

// Legal order status transitions. Anything not listed is rejected, which
// keeps replayed callbacks and racing operators from rewinding an order.
var transitions = map[string][]string{
	biz.OrderCreated:        {biz.OrderPendingPayment, biz.OrderPaid, biz.OrderCancelled},
	biz.OrderPendingPayment: {biz.OrderPaid, biz.OrderPaymentFailed, biz.OrderCancelled},
	biz.OrderPaymentFailed:  {biz.OrderCancelled},
	biz.OrderPaid:           {biz.OrderProcessing, biz.OrderShipped, biz.OrderCancelled, biz.OrderReturned},
	biz.OrderProcessing:     {biz.OrderShipped, biz.OrderCancelled},
	biz.OrderShipped:        {biz.OrderOutForDelivery, biz.OrderDelivered},
	biz.OrderOutForDelivery: {biz.OrderDelivered},
	biz.OrderDelivered:      {biz.OrderReturned},
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(status string) bool {
	return status == biz.OrderCancelled || status == biz.OrderReturned
}

// cancellableByUser lists statuses a customer may cancel from. Orders that
// have left the warehouse only come back through the return flow.
var cancellableByUser = map[string]bool{
	biz.OrderCreated:        true,
	biz.OrderPendingPayment: true,
	biz.OrderPaymentFailed:  true,
	biz.OrderPaid:           true,
	biz.OrderProcessing:     true,
}
