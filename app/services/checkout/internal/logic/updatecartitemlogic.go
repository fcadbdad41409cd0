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

type UpdateCartItemLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewUpdateCartItemLogic(ctx context.Context, svcCtx *svc.ServiceContext) *UpdateCartItemLogic {
	return &UpdateCartItemLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// UpdateCartItem sets a line's quantity. Zero removes the line.
func (l *UpdateCartItemLogic) UpdateCartItem(req *types.UpdateCartItemRequest) (*response.Response, error) {
	userId, err := util.UserIdFromCtx(l.ctx)
	if err != nil {
		return nil, err
	}
	if req.ProductId <= 0 || req.Quantity < 0 {
		return nil, errors.New(int(errno.InvalidParam), "invalid product id or quantity")
	}

	if _, err := l.svcCtx.Cart.FindOneByUserProduct(l.ctx, userId, req.ProductId); err != nil {
		if err == cartdal.ErrNotFound {
			return nil, errors.New(int(errno.CartItemNotFound), "cart item not found")
		}
		l.Logger.Error("logic: update cart item: find: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	if req.Quantity == 0 {
		err = l.svcCtx.Cart.Delete(l.ctx, userId, req.ProductId)
	} else {
		err = l.svcCtx.Cart.UpdateQuantity(l.ctx, userId, req.ProductId, req.Quantity)
	}
	if err != nil {
		l.Logger.Error("logic: update cart item: write: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	resp := response.NewResponse(errno.StatusOK, "success")
	return &resp, nil
}
