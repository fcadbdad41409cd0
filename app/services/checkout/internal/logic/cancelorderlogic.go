package logic

import (
	"context"

	"MapleMall/app/common/consts/biz"
	"MapleMall/app/common/consts/errno"
	"MapleMall/app/common/util"
	orderdal "MapleMall/app/dal/order"
	paymentdal "MapleMall/app/dal/payment"
	"MapleMall/app/services/checkout/internal/notify"
	"MapleMall/app/services/checkout/internal/svc"
	"MapleMall/app/services/checkout/internal/types"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/x/errors"
)

type CancelOrderLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewCancelOrderLogic(ctx context.Context, svcCtx *svc.ServiceContext) *CancelOrderLogic {
	return &CancelOrderLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// CancelOrder closes an order on the customer's request. Reserved stock is
// released; committed stock is returned through the committed path so sold
// counts stay honest. Paid charges flip to refunded.
func (l *CancelOrderLogic) CancelOrder(req *types.CancelOrderRequest) (*types.OrderView, error) {
	userId, err := util.UserIdFromCtx(l.ctx)
	if err != nil {
		return nil, err
	}

	ord, err := l.findOwned(req.OrderId, userId)
	if err != nil {
		return nil, err
	}

	release, ok, err := l.svcCtx.Locker.Lock(l.ctx, ord.OrderId)
	if err != nil || !ok {
		return nil, errors.New(int(errno.ReservationConflict), "order busy, retry")
	}
	defer release()

	ord, err = l.svcCtx.Orders.FindOne(l.ctx, ord.OrderId)
	if err != nil {
		l.Logger.Error("logic: cancel order: reload: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	if IsTerminal(ord.Status) {
		return nil, errors.New(int(errno.OrderAlreadyClosed), "order already closed")
	}
	if !cancellableByUser[ord.Status] {
		return nil, errors.New(int(errno.InvalidTransition), "order already shipped")
	}

	reason := req.Reason
	if reason == "" {
		reason = "cancelled by customer"
	}
	paymentStatus := ""
	if ord.PaymentStatus == biz.PaymentCompleted {
		paymentStatus = biz.PaymentRefunded
	}

	// Stock goes back before the order closes. Both release paths are
	// idempotent, so a retry after a failed close repeats them harmlessly;
	// closing first would leave no path back to the reservation.
	if ord.StockCommitted == 1 {
		err = l.svcCtx.Ledger.ReleaseCommitted(l.ctx, ord.ReservationToken)
	} else {
		err = l.svcCtx.Ledger.Release(l.ctx, ord.ReservationToken)
	}
	if err != nil {
		l.Logger.Errorf("logic: cancel order: return stock for reservation %d: %v", ord.ReservationToken, err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	moved, err := l.svcCtx.Orders.MarkClosed(l.ctx, ord.OrderId,
		[]string{ord.Status}, biz.OrderCancelled, reason, paymentStatus)
	if err != nil {
		l.Logger.Error("logic: cancel order: mark closed: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}
	if !moved {
		return nil, errors.New(int(errno.OrderAlreadyClosed), "order already closed")
	}

	if po, err := l.svcCtx.PaymentOrders.FindOneByOrderId(l.ctx, ord.OrderId); err == nil {
		if _, err := l.svcCtx.PaymentOrders.UpdateStatus(l.ctx, po.PaymentNo,
			[]string{paymentdal.IntentInit}, paymentdal.IntentCancelled); err != nil {
			l.Logger.Errorf("logic: cancel order: cancel intent %s: %v", po.PaymentNo, err)
		}
	} else if err != paymentdal.ErrNotFound {
		l.Logger.Error("logic: cancel order: find intent: ", err)
	}

	l.svcCtx.Hub.Broadcast(notify.Event{
		Kind:    notify.KindOrderCancelled,
		OrderId: ord.OrderId,
		UserId:  ord.UserId,
		Status:  biz.OrderCancelled,
		Reason:  reason,
	})

	ord.Status = biz.OrderCancelled
	ord.CancelReason = reason
	if paymentStatus != "" {
		ord.PaymentStatus = paymentStatus
	}
	view := toOrderView(ord, nil)
	return &view, nil
}

func (l *CancelOrderLogic) findOwned(orderId, userId int64) (*orderdal.Orders, error) {
	ord, err := l.svcCtx.Orders.FindOne(l.ctx, orderId)
	if err != nil {
		if err == orderdal.ErrNotFound {
			return nil, errors.New(int(errno.OrderNotFound), "order not found")
		}
		l.Logger.Error("logic: cancel order: find: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}
	if ord.UserId != userId {
		return nil, errors.New(int(errno.OrderForbidden), "not your order")
	}
	return ord, nil
}
