package logic

import (
	"context"

	"MapleMall/app/common/consts/errno"
	"MapleMall/app/common/response"
	"MapleMall/app/common/util"
	cartdal "MapleMall/app/dal/cart"
	"MapleMall/app/services/checkout/internal/svc"
	"MapleMall/app/services/checkout/internal/types"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/x/errors"
)

type DeleteCartItemLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewDeleteCartItemLogic(ctx context.Context, svcCtx *svc.ServiceContext) *DeleteCartItemLogic {
	return &DeleteCartItemLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *DeleteCartItemLogic) DeleteCartItem(req *types.DeleteCartItemRequest) (*response.Response, error) {
	userId, err := util.UserIdFromCtx(l.ctx)
	if err != nil {
		return nil, err
	}
	if req.ProductId <= 0 {
		return nil, errors.New(int(errno.InvalidParam), "invalid product id")
	}

	if _, err := l.svcCtx.Cart.FindOneByUserProduct(l.ctx, userId, req.ProductId); err != nil {
		if err == cartdal.ErrNotFound {
			return nil, errors.New(int(errno.CartItemNotFound), "cart item not found")
		}
		l.Logger.Error("logic: delete cart item: find: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	if err := l.svcCtx.Cart.Delete(l.ctx, userId, req.ProductId); err != nil {
		l.Logger.Error("logic: delete cart item: delete: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	resp := response.NewResponse(errno.StatusOK, "success")
	return &resp, nil
}
