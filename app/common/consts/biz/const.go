package biz

type CtxKey string

const (
	USER_KEY     CtxKey = "user_id"
	OPERATOR_KEY CtxKey = "operator"

	ACCESSTOKEN = "access_token"
)

// Order lifecycle statuses. Terminal: DELIVERED, CANCELLED, RETURNED.
const (
	OrderCreated        = "CREATED"
	OrderPendingPayment = "PENDING_PAYMENT"
	OrderPaid           = "PAID"
	OrderProcessing     = "PROCESSING"
	OrderShipped        = "SHIPPED"
	OrderOutForDelivery = "OUT_FOR_DELIVERY"
	OrderDelivered      = "DELIVERED"
	OrderPaymentFailed  = "PAYMENT_FAILED"
	OrderCancelled      = "CANCELLED"
	OrderReturned       = "RETURNED"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

const (
	MethodCashOnDelivery = "cash_on_delivery"
	MethodStripe         = "stripe"
	MethodRazorpay       = "razorpay"
)
