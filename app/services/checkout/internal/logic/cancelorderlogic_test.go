package logic

import (
	"context"
	"testing"

	"MapleMall/app/common/consts/biz"
	"MapleMall/app/common/consts/errno"
	orderdal "MapleMall/app/dal/order"
	"MapleMall/app/services/checkout/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrder(env *testEnv, orderId, userId int64, status string, committed bool) *orderdal.Orders {
	token, _ := env.ledger.Reserve(context.Background(), orderId, nil)
	if committed {
		_ = env.ledger.Commit(context.Background(), token)
	}
	stockCommitted := int64(0)
	paymentStatus := biz.PaymentPending
	if committed {
		stockCommitted = 1
		paymentStatus = biz.PaymentCompleted
	}
	ord := &orderdal.Orders{
		OrderId:          orderId,
		UserId:           userId,
		PaymentMethod:    biz.MethodStripe,
		PaymentStatus:    paymentStatus,
		Status:           status,
		StockCommitted:   stockCommitted,
		ReservationToken: token,
		FinalCents:       4020,
	}
	env.orders.put(ord)
	return ord
}

func TestCancelPendingPaymentOrder(t *testing.T) {
	env := newTestEnv()
	ord := seedOrder(env, 900, 7, biz.OrderPendingPayment, false)

	l := NewCancelOrderLogic(userCtx(7), env.svcCtx)
	view, err := l.CancelOrder(&types.CancelOrderRequest{OrderId: 900, Reason: "changed my mind"})
	require.NoError(t, err)

	assert.Equal(t, biz.OrderCancelled, view.Status)
	got := env.orders.get(900)
	assert.Equal(t, biz.OrderCancelled, got.Status)
	assert.Equal(t, "changed my mind", got.CancelReason)
	assert.Equal(t, tokenReleased, env.ledger.status(ord.ReservationToken))
}

func TestCancelPaidOrderRefundsAndRestocks(t *testing.T) {
	env := newTestEnv()
	ord := seedOrder(env, 900, 7, biz.OrderPaid, true)

	l := NewCancelOrderLogic(userCtx(7), env.svcCtx)
	view, err := l.CancelOrder(&types.CancelOrderRequest{OrderId: 900})
	require.NoError(t, err)

	assert.Equal(t, biz.OrderCancelled, view.Status)
	assert.Equal(t, biz.PaymentRefunded, view.PaymentStatus)
	assert.Equal(t, tokenReleased, env.ledger.status(ord.ReservationToken))
}

func TestCancelRestockFailureLeavesOrderOpen(t *testing.T) {
	env := newTestEnv()
	ord := seedOrder(env, 900, 7, biz.OrderPaid, true)
	env.ledger.restockErrs = 1

	// The restock fails, so the order must stay PAID; closing it first would
	// leave the sold stock with no path back.
	l := NewCancelOrderLogic(userCtx(7), env.svcCtx)
	_, err := l.CancelOrder(&types.CancelOrderRequest{OrderId: 900})
	assertCode(t, err, errno.InternalError)
	assert.Equal(t, biz.OrderPaid, env.orders.get(900).Status)
	assert.Equal(t, tokenCommitted, env.ledger.status(ord.ReservationToken))

	// Retrying finishes both halves.
	view, err := l.CancelOrder(&types.CancelOrderRequest{OrderId: 900})
	require.NoError(t, err)
	assert.Equal(t, biz.OrderCancelled, view.Status)
	assert.Equal(t, tokenReleased, env.ledger.status(ord.ReservationToken))
	assert.Equal(t, 1, env.ledger.releases)
}

func TestCancelShippedOrderRejected(t *testing.T) {
	env := newTestEnv()
	seedOrder(env, 900, 7, biz.OrderShipped, true)

	l := NewCancelOrderLogic(userCtx(7), env.svcCtx)
	_, err := l.CancelOrder(&types.CancelOrderRequest{OrderId: 900})
	assertCode(t, err, errno.InvalidTransition)
}

func TestCancelClosedOrderRejected(t *testing.T) {
	env := newTestEnv()
	seedOrder(env, 900, 7, biz.OrderCancelled, false)

	l := NewCancelOrderLogic(userCtx(7), env.svcCtx)
	_, err := l.CancelOrder(&types.CancelOrderRequest{OrderId: 900})
	assertCode(t, err, errno.OrderAlreadyClosed)
}

func TestCancelForeignOrderForbidden(t *testing.T) {
	env := newTestEnv()
	seedOrder(env, 900, 7, biz.OrderPendingPayment, false)

	l := NewCancelOrderLogic(userCtx(8), env.svcCtx)
	_, err := l.CancelOrder(&types.CancelOrderRequest{OrderId: 900})
	assertCode(t, err, errno.OrderForbidden)
}

func TestCancelMissingOrder(t *testing.T) {
	env := newTestEnv()

	l := NewCancelOrderLogic(userCtx(7), env.svcCtx)
	_, err := l.CancelOrder(&types.CancelOrderRequest{OrderId: 12345})
	assertCode(t, err, errno.OrderNotFound)
}
