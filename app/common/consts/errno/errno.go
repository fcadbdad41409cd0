package errno

const (
	StatusOK = 10000
)

const (
	TokenEmpty = 40000 + iota
	TokenExpired
	TokenInvalid
	OperatorRequired
)

const (
	InternalError = 50000 + iota
	InvalidParam
	EmptyCart
	ItemExistInCart
	CartItemNotFound
	ProductNotFound
	OrderNotFound
	OrderForbidden
	InvalidTransition
	OrderAlreadyClosed
)

const (
	InsufficientStock = 60000 + iota
	ReservationConflict
)

const (
	GatewayUnavailable = 70000 + iota
	UnknownProvider
	SignatureInvalid
	CallbackOrderNotFound
)
