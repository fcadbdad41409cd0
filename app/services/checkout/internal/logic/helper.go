package logic

import (
	orderdal "MapleMall/app/dal/order"
	"MapleMall/app/services/checkout/internal/types"
)

func toOrderView(ord *orderdal.Orders, items []*orderdal.OrderItems) types.OrderView {
	view := types.OrderView{
		OrderId:       ord.OrderId,
		Status:        ord.Status,
		PaymentMethod: ord.PaymentMethod,
		PaymentStatus: ord.PaymentStatus,
		TotalCents:    ord.TotalCents,
		ShippingCents: ord.ShippingCents,
		TaxCents:      ord.TaxCents,
		FinalCents:    ord.FinalCents,
		CancelReason:  ord.CancelReason,
		CreatedAt:     ord.CreatedAt.Unix(),
	}
	if ord.PaymentRef.Valid {
		view.PaymentRef = ord.PaymentRef.String
	}
	for _, item := range items {
		view.Items = append(view.Items, types.OrderItemView{
			ProductId:  item.ProductId,
			Title:      item.Title,
			Quantity:   item.Quantity,
			PriceCents: item.PriceCents,
		})
	}
	return view
}
