package inventory

import (
	"errors"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var (
	ErrNotFound           = sqlx.ErrNotFound
	ErrRowsAffectedIsZero = errors.New("affected rows is zero")
	ErrInvalidParam       = errors.New("invalid param for sql")
)

// Reservation header statuses.
const (
	ReservationReserved  = "RESERVED"
	ReservationCommitted = "COMMITTED"
	ReservationReleased  = "RELEASED"
)

// Audit line statuses; one line per (token, product).
const (
	AuditPending   = "PENDING"
	AuditConfirmed = "CONFIRMED"
	AuditCancelled = "CANCELLED"
)
