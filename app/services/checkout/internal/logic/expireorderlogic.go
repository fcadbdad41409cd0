package logic

import (
	"context"

	"MapleMall/app/common/consts/biz"
	orderdal "MapleMall/app/dal/order"
	paymentdal "MapleMall/app/dal/payment"
	"MapleMall/app/services/checkout/internal/mq"
	"MapleMall/app/services/checkout/internal/notify"
	"MapleMall/app/services/checkout/internal/svc"

	"github.com/zeromicro/go-zero/core/logx"
)

const expireReason = "payment window expired"

type ExpireOrderLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewExpireOrderLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ExpireOrderLogic {
	return &ExpireOrderLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Expire cancels an order still awaiting payment once its reservation TTL
// fires. Stock goes back before the order closes: the status stays
// PENDING_PAYMENT until the release lands, so a retried task after a partial
// failure repeats the idempotent release instead of skipping it. A returned
// error asks the task queue to retry.
func (l *ExpireOrderLogic) Expire(orderId int64) error {
	release, ok, err := l.svcCtx.Locker.Lock(l.ctx, orderId)
	if err != nil {
		return err
	}
	if !ok {
		// Whoever holds the lock is settling this order.
		return nil
	}
	defer release()

	ord, err := l.svcCtx.Orders.FindOne(l.ctx, orderId)
	if err != nil {
		if err == orderdal.ErrNotFound {
			return nil
		}
		return err
	}
	if ord.Status != biz.OrderPendingPayment {
		return nil
	}

	if err := l.svcCtx.Ledger.Release(l.ctx, ord.ReservationToken); err != nil {
		l.Logger.Errorf("logic: expire: release reservation %d for order %d: %v", ord.ReservationToken, ord.OrderId, err)
		return err
	}
	moved, err := l.svcCtx.Orders.MarkPaymentFailed(l.ctx, ord.OrderId, biz.OrderCancelled, expireReason)
	if err != nil {
		return err
	}
	if !moved {
		return nil
	}

	if ord.PaymentRef.Valid {
		if po, err := l.svcCtx.PaymentOrders.FindOneByOrderId(l.ctx, ord.OrderId); err == nil {
			if _, err := l.svcCtx.PaymentOrders.UpdateStatus(l.ctx, po.PaymentNo,
				[]string{paymentdal.IntentInit}, paymentdal.IntentExpired); err != nil {
				l.Logger.Errorf("logic: expire: mark intent expired for order %d: %v", ord.OrderId, err)
			}
		}
	}

	l.svcCtx.Hub.Broadcast(notify.Event{
		Kind:    notify.KindOrderCancelled,
		OrderId: ord.OrderId,
		UserId:  ord.UserId,
		Status:  biz.OrderCancelled,
		Reason:  expireReason,
	})
	if err := mq.PublishOrderEvent(l.svcCtx, mq.OrderEvent{
		Kind:    notify.KindOrderCancelled,
		OrderId: ord.OrderId,
		UserId:  ord.UserId,
		Status:  biz.OrderCancelled,
		Reason:  expireReason,
	}); err != nil {
		l.Logger.Errorf("logic: expire: publish order event for order %d: %v", ord.OrderId, err)
	}
	return nil
}
