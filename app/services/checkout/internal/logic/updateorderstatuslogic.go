package logic

import (
	"context"

	"MapleMall/app/common/consts/biz"
	"MapleMall/app/common/consts/errno"
	"MapleMall/app/common/util"
	orderdal "MapleMall/app/dal/order"
	"MapleMall/app/services/checkout/internal/notify"
	"MapleMall/app/services/checkout/internal/svc"
	"MapleMall/app/services/checkout/internal/types"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/x/errors"
)

type UpdateOrderStatusLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewUpdateOrderStatusLogic(ctx context.Context, svcCtx *svc.ServiceContext) *UpdateOrderStatusLogic {
	return &UpdateOrderStatusLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// UpdateOrderStatus moves an order along the fulfillment chain. Operators
// only; the transition table decides what is reachable from where.
func (l *UpdateOrderStatusLogic) UpdateOrderStatus(req *types.UpdateOrderStatusRequest) (*types.OrderView, error) {
	if !util.IsOperator(l.ctx) {
		return nil, errors.New(int(errno.OperatorRequired), "operator access required")
	}

	switch req.Status {
	case biz.OrderProcessing, biz.OrderShipped, biz.OrderOutForDelivery, biz.OrderDelivered, biz.OrderReturned:
	default:
		return nil, errors.New(int(errno.InvalidTransition), "not a fulfillment status")
	}

	release, ok, err := l.svcCtx.Locker.Lock(l.ctx, req.OrderId)
	if err != nil || !ok {
		return nil, errors.New(int(errno.ReservationConflict), "order busy, retry")
	}
	defer release()

	ord, err := l.svcCtx.Orders.FindOne(l.ctx, req.OrderId)
	if err != nil {
		if err == orderdal.ErrNotFound {
			return nil, errors.New(int(errno.OrderNotFound), "order not found")
		}
		l.Logger.Error("logic: update status: find: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	if ord.Status == req.Status {
		view := toOrderView(ord, nil)
		return &view, nil
	}
	if !CanTransition(ord.Status, req.Status) {
		return nil, errors.New(int(errno.InvalidTransition),
			"cannot move "+ord.Status+" to "+req.Status)
	}

	if req.Status == biz.OrderReturned {
		return l.applyReturn(ord)
	}

	delivered := req.Status == biz.OrderDelivered
	paymentStatus := ""
	if delivered && ord.PaymentMethod == biz.MethodCashOnDelivery {
		// Cash collected at the door.
		paymentStatus = biz.PaymentCompleted
	}

	moved, err := l.svcCtx.Orders.AdvanceFulfillment(l.ctx, ord.OrderId, ord.Status, req.Status, delivered, paymentStatus)
	if err != nil {
		l.Logger.Error("logic: update status: advance: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}
	if !moved {
		return nil, errors.New(int(errno.InvalidTransition), "order moved concurrently, retry")
	}

	l.svcCtx.Hub.Broadcast(notify.Event{
		Kind:    notify.KindOrderAdvanced,
		OrderId: ord.OrderId,
		UserId:  ord.UserId,
		Status:  req.Status,
	})

	ord.Status = req.Status
	if paymentStatus != "" {
		ord.PaymentStatus = paymentStatus
	}
	view := toOrderView(ord, nil)
	return &view, nil
}

// applyReturn closes a paid or delivered order, puts the stock back, and
// refunds whatever was actually collected. The restock runs first and is
// idempotent, so a retry after a failed close cannot strand sold stock.
func (l *UpdateOrderStatusLogic) applyReturn(ord *orderdal.Orders) (*types.OrderView, error) {
	if err := l.svcCtx.Ledger.ReleaseCommitted(l.ctx, ord.ReservationToken); err != nil {
		l.Logger.Errorf("logic: update status: restock reservation %d: %v", ord.ReservationToken, err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	paymentStatus := ""
	if ord.PaymentStatus == biz.PaymentCompleted {
		paymentStatus = biz.PaymentRefunded
	}
	moved, err := l.svcCtx.Orders.MarkClosed(l.ctx, ord.OrderId,
		[]string{ord.Status}, biz.OrderReturned, "returned by customer", paymentStatus)
	if err != nil {
		l.Logger.Error("logic: update status: mark returned: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}
	if !moved {
		return nil, errors.New(int(errno.InvalidTransition), "order moved concurrently, retry")
	}

	l.svcCtx.Hub.Broadcast(notify.Event{
		Kind:    notify.KindOrderAdvanced,
		OrderId: ord.OrderId,
		UserId:  ord.UserId,
		Status:  biz.OrderReturned,
	})

	ord.Status = biz.OrderReturned
	if paymentStatus != "" {
		ord.PaymentStatus = paymentStatus
	}
	view := toOrderView(ord, nil)
	return &view, nil
}
