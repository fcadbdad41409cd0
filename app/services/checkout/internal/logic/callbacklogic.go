package logic

import (
	"context"
	stderrors "errors"

	"MapleMall/app/common/consts/biz"
	"MapleMall/app/common/consts/errno"
	orderdal "MapleMall/app/dal/order"
	paymentdal "MapleMall/app/dal/payment"
	"MapleMall/app/services/checkout/internal/gateway"
	"MapleMall/app/services/checkout/internal/mq"
	"MapleMall/app/services/checkout/internal/notify"
	"MapleMall/app/services/checkout/internal/svc"
	"MapleMall/app/services/checkout/internal/types"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/x/errors"
)

type CallbackLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewCallbackLogic(ctx context.Context, svcCtx *svc.ServiceContext) *CallbackLogic {
	return &CallbackLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// HandleCallback applies a provider payment event to its order. The ledger
// moves at most once per order no matter how often the provider retries:
// the event id dedup window, the per-order lock, and the conditional status
// writes each stop a duplicate at a different layer. Replays and already
// settled orders ack as success so the provider stops resending.
func (l *CallbackLogic) HandleCallback(provider string, payload []byte, signature string) (*types.CallbackResponse, error) {
	gw, err := l.svcCtx.Gateways.Get(provider)
	if err != nil {
		return nil, errors.New(int(errno.UnknownProvider), "unknown payment provider")
	}

	evt, err := gw.VerifyCallback(payload, signature)
	if err != nil {
		if stderrors.Is(err, gateway.ErrSignatureInvalid) {
			l.Logger.Errorf("callback: %s signature rejected: %v", provider, err)
			return nil, errors.New(int(errno.SignatureInvalid), "signature verification failed")
		}
		if stderrors.Is(err, gateway.ErrUnknownEvent) {
			// Ack event types we do not handle so the provider stops retrying.
			return &types.CallbackResponse{Received: true}, nil
		}
		l.Logger.Errorf("callback: %s verify: %v", provider, err)
		return nil, errors.New(int(errno.InvalidParam), "malformed callback payload")
	}

	seen, err := l.svcCtx.CallbackDedup.Seen(l.ctx, provider, evt.EventId)
	if err != nil {
		l.Logger.Errorf("callback: dedup check %s/%s: %v", provider, evt.EventId, err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}
	if seen {
		return &types.CallbackResponse{Received: true}, nil
	}

	ord, err := l.svcCtx.Orders.FindOneByPaymentRef(l.ctx, evt.Reference)
	if err != nil {
		if err == orderdal.ErrNotFound {
			return nil, errors.New(int(errno.CallbackOrderNotFound), "no order for payment reference")
		}
		l.Logger.Errorf("callback: find order by ref %s: %v", evt.Reference, err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	release, ok, err := l.svcCtx.Locker.Lock(l.ctx, ord.OrderId)
	if err != nil || !ok {
		// Another event for this order is in flight; the provider retries.
		return nil, errors.New(int(errno.InternalError), "order busy, retry")
	}
	defer release()

	// Re-read under the lock; the pre-lock snapshot may be stale.
	ord, err = l.svcCtx.Orders.FindOne(l.ctx, ord.OrderId)
	if err != nil {
		l.Logger.Errorf("callback: reload order: %v", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	switch evt.Type {
	case gateway.EventSucceeded:
		err = l.applySuccess(ord)
	case gateway.EventFailed, gateway.EventCancelled:
		err = l.applyFailure(ord, evt)
	}
	if err != nil {
		return nil, err
	}

	if err := l.svcCtx.CallbackDedup.Mark(l.ctx, provider, evt.EventId); err != nil {
		// The order-side guards absorb the replay this allows.
		l.Logger.Errorf("callback: mark dedup %s/%s: %v", provider, evt.EventId, err)
	}
	return &types.CallbackResponse{Received: true}, nil
}

func (l *CallbackLogic) applySuccess(ord *orderdal.Orders) error {
	switch ord.Status {
	case biz.OrderPendingPayment:
	case biz.OrderPaid:
		return nil
	default:
		// Payment landed after the order closed. Keep the order closed and
		// surface the captured charge for a manual refund.
		l.Logger.Errorf("callback: success for order %d in status %s, needs refund", ord.OrderId, ord.Status)
		l.updateIntent(ord.OrderId, []string{paymentdal.IntentInit, paymentdal.IntentExpired}, paymentdal.IntentSucceeded)
		return nil
	}

	if ord.StockCommitted == 0 {
		if err := l.svcCtx.Ledger.Commit(l.ctx, ord.ReservationToken); err != nil {
			l.Logger.Errorf("callback: commit reservation %d: %v", ord.ReservationToken, err)
			return errors.New(int(errno.InternalError), "internal error")
		}
	}
	moved, err := l.svcCtx.Orders.MarkPaid(l.ctx, ord.OrderId)
	if err != nil {
		l.Logger.Errorf("callback: mark paid order %d: %v", ord.OrderId, err)
		return errors.New(int(errno.InternalError), "internal error")
	}
	if !moved {
		return nil
	}

	// The cart outlives a pending payment so a failed charge can be retried;
	// it empties only once the payment lands.
	if err := l.svcCtx.Cart.ClearByUser(l.ctx, ord.UserId); err != nil {
		l.Logger.Errorf("callback: clear cart for user %d: %v", ord.UserId, err)
	}

	l.updateIntent(ord.OrderId, []string{paymentdal.IntentInit}, paymentdal.IntentSucceeded)
	l.fanout(ord, notify.KindOrderPaid, biz.OrderPaid, "")
	return nil
}

func (l *CallbackLogic) applyFailure(ord *orderdal.Orders, evt *gateway.Event) error {
	if ord.Status != biz.OrderPendingPayment {
		return nil
	}

	reason := evt.Reason
	if reason == "" {
		reason = string(evt.Type)
	}

	// Release before the status write. The order stays PENDING_PAYMENT until
	// the stock is back, so a redelivered event after a partial failure walks
	// this path again; Release itself is idempotent.
	if err := l.svcCtx.Ledger.Release(l.ctx, ord.ReservationToken); err != nil {
		l.Logger.Errorf("callback: release reservation %d: %v", ord.ReservationToken, err)
		return errors.New(int(errno.InternalError), "internal error")
	}
	moved, err := l.svcCtx.Orders.MarkPaymentFailed(l.ctx, ord.OrderId, biz.OrderPaymentFailed, reason)
	if err != nil {
		l.Logger.Errorf("callback: mark payment failed order %d: %v", ord.OrderId, err)
		return errors.New(int(errno.InternalError), "internal error")
	}
	if !moved {
		return nil
	}

	toStatus := paymentdal.IntentFailed
	if evt.Type == gateway.EventCancelled {
		toStatus = paymentdal.IntentCancelled
	}
	l.updateIntent(ord.OrderId, []string{paymentdal.IntentInit}, toStatus)
	l.fanout(ord, notify.KindPaymentFailed, biz.OrderPaymentFailed, reason)
	return nil
}

func (l *CallbackLogic) updateIntent(orderId int64, from []string, to string) {
	po, err := l.svcCtx.PaymentOrders.FindOneByOrderId(l.ctx, orderId)
	if err != nil {
		if err != paymentdal.ErrNotFound {
			l.Logger.Errorf("callback: find intent for order %d: %v", orderId, err)
		}
		return
	}
	if _, err := l.svcCtx.PaymentOrders.UpdateStatus(l.ctx, po.PaymentNo, from, to); err != nil {
		l.Logger.Errorf("callback: update intent %s: %v", po.PaymentNo, err)
	}
}

func (l *CallbackLogic) fanout(ord *orderdal.Orders, kind, status, reason string) {
	l.svcCtx.Hub.Broadcast(notify.Event{
		Kind:    kind,
		OrderId: ord.OrderId,
		UserId:  ord.UserId,
		Status:  status,
		Reason:  reason,
	})
	if err := mq.PublishOrderEvent(l.svcCtx, mq.OrderEvent{
		Kind:       kind,
		OrderId:    ord.OrderId,
		UserId:     ord.UserId,
		Status:     status,
		FinalCents: ord.FinalCents,
		Reason:     reason,
	}); err != nil {
		l.Logger.Errorf("callback: publish event for order %d: %v", ord.OrderId, err)
	}
}
