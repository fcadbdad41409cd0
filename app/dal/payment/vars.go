package payment

import "github.com/zeromicro/go-zero/core/stores/sqlx"

var ErrNotFound = sqlx.ErrNotFound

// Gateway intent statuses.
const (
	IntentInit      = "INIT"
	IntentSucceeded = "SUCCEEDED"
	IntentFailed    = "FAILED"
	IntentCancelled = "CANCELLED"
	IntentExpired   = "EXPIRED"
)
