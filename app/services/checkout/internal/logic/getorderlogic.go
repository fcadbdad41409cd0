package logic

import (
	"context"

	"MapleMall/app/common/consts/errno"
	"MapleMall/app/common/util"
	orderdal "MapleMall/app/dal/order"
	"MapleMall/app/services/checkout/internal/svc"
	"MapleMall/app/services/checkout/internal/types"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/x/errors"
)

type GetOrderLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetOrderLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetOrderLogic {
	return &GetOrderLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetOrderLogic) GetOrder(req *types.GetOrderRequest) (*types.OrderView, error) {
	userId, err := util.UserIdFromCtx(l.ctx)
	if err != nil {
		return nil, err
	}

	ord, err := l.svcCtx.Orders.FindOne(l.ctx, req.OrderId)
	if err != nil {
		if err == orderdal.ErrNotFound {
			return nil, errors.New(int(errno.OrderNotFound), "order not found")
		}
		l.Logger.Error("logic: get order: find: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}
	if ord.UserId != userId && !util.IsOperator(l.ctx) {
		return nil, errors.New(int(errno.OrderForbidden), "not your order")
	}

	items, err := l.svcCtx.OrderItems.ListByOrder(l.ctx, ord.OrderId)
	if err != nil && err != orderdal.ErrNotFound {
		l.Logger.Error("logic: get order: list items: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	view := toOrderView(ord, items)
	return &view, nil
}
