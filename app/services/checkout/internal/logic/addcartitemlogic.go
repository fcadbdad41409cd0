package logic

import (
	"context"

	"MapleMall/app/common/consts/errno"
	"MapleMall/app/common/response"
	"MapleMall/app/common/util"
	cartdal "MapleMall/app/dal/cart"
	productdal "MapleMall/app/dal/product"
	"MapleMall/app/services/checkout/internal/svc"
	"MapleMall/app/services/checkout/internal/types"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/x/errors"
)

type AddCartItemLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewAddCartItemLogic(ctx context.Context, svcCtx *svc.ServiceContext) *AddCartItemLogic {
	return &AddCartItemLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *AddCartItemLogic) AddCartItem(req *types.AddCartItemRequest) (*response.Response, error) {
	userId, err := util.UserIdFromCtx(l.ctx)
	if err != nil {
		return nil, err
	}
	if req.ProductId <= 0 || req.Quantity <= 0 {
		return nil, errors.New(int(errno.InvalidParam), "product id and quantity must be positive")
	}

	product, err := l.svcCtx.Products.FindOne(l.ctx, req.ProductId)
	if err != nil {
		if err == productdal.ErrNotFound {
			return nil, errors.New(int(errno.ProductNotFound), "product not found")
		}
		l.Logger.Error("logic: add cart item: find product: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}
	if product.Status != productdal.StatusOnShelf {
		return nil, errors.New(int(errno.ProductNotFound), "product not on sale")
	}

	if _, err := l.svcCtx.Cart.FindOneByUserProduct(l.ctx, userId, req.ProductId); err == nil {
		return nil, errors.New(int(errno.ItemExistInCart), "item already in cart")
	} else if err != cartdal.ErrNotFound {
		l.Logger.Error("logic: add cart item: find cart line: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	if _, err := l.svcCtx.Cart.Insert(l.ctx, &cartdal.Cart{
		UserId:    userId,
		ProductId: req.ProductId,
		Quantity:  req.Quantity,
	}); err != nil {
		l.Logger.Error("logic: add cart item: insert: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	resp := response.NewResponse(errno.StatusOK, "success")
	return &resp, nil
}
