// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package types

type AddCartItemRequest struct {
	ProductId int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type UpdateCartItemRequest struct {
	ProductId int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type DeleteCartItemRequest struct {
	ProductId int64 `json:"product_id"`
}

type CartItemView struct {
	ProductId  int64  `json:"product_id"`
	Title      string `json:"title"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int64  `json:"quantity"`
}

type GetCartResponse struct {
	Items      []CartItemView `json:"items"`
	TotalCents int64          `json:"total_cents"`
}

type PlaceOrderRequest struct {
	AddressId     int64  `json:"address_id"`
	PaymentMethod string `json:"payment_method"`
	Remark        string `json:"remark,optional"`
}

type PlaceOrderResponse struct {
	OrderId      int64             `json:"order_id"`
	Status       string            `json:"status"`
	FinalCents   int64             `json:"final_cents"`
	PaymentRef   string            `json:"payment_ref,omitempty"`
	ClientParams map[string]string `json:"client_params,omitempty"`
}

type GetOrderRequest struct {
	OrderId int64 `path:"orderId"`
}

type OrderItemView struct {
	ProductId  int64  `json:"product_id"`
	Title      string `json:"title"`
	Quantity   int64  `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

type OrderView struct {
	OrderId       int64           `json:"order_id"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	PaymentRef    string          `json:"payment_ref,omitempty"`
	TotalCents    int64           `json:"total_cents"`
	ShippingCents int64           `json:"shipping_cents"`
	TaxCents      int64           `json:"tax_cents"`
	FinalCents    int64           `json:"final_cents"`
	CancelReason  string          `json:"cancel_reason,omitempty"`
	Items         []OrderItemView `json:"items,omitempty"`
	CreatedAt     int64           `json:"created_at"`
}

type ListOrdersRequest struct {
	Page     int64 `form:"page,default=1"`
	PageSize int64 `form:"page_size,default=10"`
}

type ListOrdersResponse struct {
	Orders []OrderView `json:"orders"`
	Total  int64       `json:"total"`
}

type CancelOrderRequest struct {
	OrderId int64  `path:"orderId"`
	Reason  string `json:"reason,optional"`
}

type UpdateOrderStatusRequest struct {
	OrderId int64  `path:"orderId"`
	Status  string `json:"status"`
}

type CallbackRequest struct {
	Provider string `path:"provider"`
}

type CallbackResponse struct {
	Received bool `json:"received"`
}
