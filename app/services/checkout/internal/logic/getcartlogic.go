package logic

import (
	"context"

	"MapleMall/app/common/consts/errno"
	"MapleMall/app/common/util"
	productdal "MapleMall/app/dal/product"
	"MapleMall/app/services/checkout/internal/svc"
	"MapleMall/app/services/checkout/internal/types"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/x/errors"
)

type GetCartLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetCartLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetCartLogic {
	return &GetCartLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetCartLogic) GetCart() (*types.GetCartResponse, error) {
	userId, err := util.UserIdFromCtx(l.ctx)
	if err != nil {
		return nil, err
	}

	lines, err := l.svcCtx.Cart.ListByUserId(l.ctx, userId)
	if err != nil {
		l.Logger.Error("logic: get cart: list: ", err)
		return nil, errors.New(int(errno.InternalError), "internal error")
	}

	resp := &types.GetCartResponse{Items: make([]types.CartItemView, 0, len(lines))}
	for _, line := range lines {
		product, err := l.svcCtx.Products.FindOne(l.ctx, line.ProductId)
		if err != nil {
			if err == productdal.ErrNotFound {
				// Delisted product, the line stays but prices as zero.
				resp.Items = append(resp.Items, types.CartItemView{
					ProductId: line.ProductId,
					Quantity:  line.Quantity,
				})
				continue
			}
			l.Logger.Error("logic: get cart: find product: ", err)
			return nil, errors.New(int(errno.InternalError), "internal error")
		}
		resp.Items = append(resp.Items, types.CartItemView{
			ProductId:  line.ProductId,
			Title:      product.Title,
			PriceCents: product.PriceCents,
			Quantity:   line.Quantity,
		})
		resp.TotalCents += product.PriceCents * line.Quantity
	}
	return resp, nil
}
