package logic

import (
	"context"

	"MapleMall/app/common/consts/errno"
	"MapleMall/app/common/util"
	"MapleMall/app/services/checkout/internal/svc"
	"MapleMall/app/services/checkout/internal/types"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/x/errors"
)

const maxPageSize = 50

type ListOrdersLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewListOrdersLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ListOrdersLogic {
	return &ListOrdersLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ListOrdersLogic) ListOrders(req *types.ListOrdersRequest) (*types.ListOrdersResponse, error) {
	userId, err := util.UserIdFromCtx(l.ctx)
	if err != nil {
		return nil, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	orders, err := l.svcCtx.Orders.ListByUser(l.ctx, userId, (page-1)*pageSize, pageSize)
	if err != nil {
		l.Logger.Error("logic: list orders: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}
	total, err := l.svcCtx.Orders.CountByUser(l.ctx, userId)
	if err != nil {
		l.Logger.Error("logic: list orders: count: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	resp := &types.ListOrdersResponse{
		Orders: make([]types.OrderView, 0, len(orders)),
		Total:  total,
	}
	for _, ord := range orders {
		resp.Orders = append(resp.Orders, toOrderView(ord, nil))
	}
	return resp, nil
}
