// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package handler

import (
	"net/http"

	"MapleMall/app/services/checkout/internal/svc"

	"github.com/zeromicro/go-zero/rest"
)

func RegisterHandlers(server *rest.Server, svcCtx *svc.ServiceContext) {
	server.AddRoutes(
		rest.WithMiddlewares(
			[]rest.Middleware{svcCtx.AuthMiddleware},
			[]rest.Route{
				{
					Method:  http.MethodGet,
					Path:    "/api/v1/cart",
					Handler: GetCartHandler(svcCtx),
				},
				{
					Method:  http.MethodPost,
					Path:    "/api/v1/cart/items",
					Handler: AddCartItemHandler(svcCtx),
				},
				{
					Method:  http.MethodPut,
					Path:    "/api/v1/cart/items",
					Handler: UpdateCartItemHandler(svcCtx),
				},
				{
					Method:  http.MethodDelete,
					Path:    "/api/v1/cart/items",
					Handler: DeleteCartItemHandler(svcCtx),
				},
				{
					Method:  http.MethodPost,
					Path:    "/api/v1/orders",
					Handler: PlaceOrderHandler(svcCtx),
				},
				{
					Method:  http.MethodGet,
					Path:    "/api/v1/orders",
					Handler: ListOrdersHandler(svcCtx),
				},
				{
					Method:  http.MethodGet,
					Path:    "/api/v1/orders/:orderId",
					Handler: GetOrderHandler(svcCtx),
				},
				{
					Method:  http.MethodPost,
					Path:    "/api/v1/orders/:orderId/cancel",
					Handler: CancelOrderHandler(svcCtx),
				},
			}...,
		),
	)

	// Provider webhooks authenticate by signature, not by user token.
	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodPost,
				Path:    "/api/v1/payment/callback/:provider",
				Handler: CallbackHandler(svcCtx),
			},
		},
	)

	server.AddRoutes(
		rest.WithMiddlewares(
			[]rest.Middleware{svcCtx.AuthMiddleware, svcCtx.OperatorMiddleware},
			[]rest.Route{
				{
					Method:  http.MethodPost,
					Path:    "/api/v1/ops/orders/:orderId/status",
					Handler: UpdateOrderStatusHandler(svcCtx),
				},
			}...,
		),
	)

	// The event stream is long-lived; opt out of the request timeout.
	server.AddRoutes(
		rest.WithMiddlewares(
			[]rest.Middleware{svcCtx.AuthMiddleware, svcCtx.OperatorMiddleware},
			[]rest.Route{
				{
					Method:  http.MethodGet,
					Path:    "/api/v1/ops/events",
					Handler: EventsHandler(svcCtx),
				},
			}...,
		),
		rest.WithTimeout(0),
	)
}
