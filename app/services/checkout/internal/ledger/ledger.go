package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"MapleMall/app/common/snowflake"
	invdal "MapleMall/app/dal/inventory"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var (
	ErrTokenNotFound       = errors.New("ledger: reservation token not found")
	ErrReservationConflict = errors.New("ledger: reservation already finalized")
	ErrInvalidItems        = errors.New("ledger: invalid reservation items")
)

// InsufficientStockError reports the first line that could not be reserved.
type InsufficientStockError struct {
	ProductId int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("ledger: insufficient stock for product %d", e.ProductId)
}

type Item struct {
	ProductId int64
	Quantity  int64
}

// Ledger is the single owner of stock mutations. Reserve freezes quantities
// under a token; the token is later committed (frozen becomes sold) or
// released (frozen returns to stock), each exactly once.
type Ledger interface {
	Reserve(ctx context.Context, orderId int64, items []Item) (int64, error)
	Release(ctx context.Context, token int64) error
	Commit(ctx context.Context, token int64) error
	ReleaseCommitted(ctx context.Context, token int64) error
}

type sqlLedger struct {
	inventory    invdal.InventoryModel
	reservations invdal.ReservationsModel
	audits       invdal.InventoryAuditModel
}

func NewLedger(inventory invdal.InventoryModel, reservations invdal.ReservationsModel, audits invdal.InventoryAuditModel) Ledger {
	return &sqlLedger{
		inventory:    inventory,
		reservations: reservations,
		audits:       audits,
	}
}

// Reserve freezes every line inside one transaction. The first line failing
// the stock guard aborts the whole transaction, so a partial decrement is
// never visible. Lines are applied in product-id order to keep concurrent
// multi-line reservations from deadlocking each other; if the database still
// reports contention the transaction is retried with backoff until the
// caller's context expires.
func (l *sqlLedger) Reserve(ctx context.Context, orderId int64, items []Item) (int64, error) {
	normalized, err := normalizeItems(items)
	if err != nil {
		return 0, err
	}

	token := snowflake.Next()
	err = l.withRetry(ctx, func() error {
		return l.inventory.ExecWithTransaction(ctx, func(ctx context.Context, s sqlx.Session) error {
			for _, item := range normalized {
				if err := l.inventory.FreezeWithSession(ctx, s, item.ProductId, item.Quantity); err != nil {
					if errors.Is(err, invdal.ErrRowsAffectedIsZero) {
						return &InsufficientStockError{ProductId: item.ProductId}
					}
					return err
				}
			}
			if _, err := l.reservations.InsertWithSession(ctx, s, &invdal.Reservation{
				TokenId: token,
				OrderId: orderId,
				Status:  invdal.ReservationReserved,
			}); err != nil {
				return err
			}
			for _, item := range normalized {
				if _, err := l.audits.InsertWithSession(ctx, s, &invdal.InventoryAudit{
					TokenId:   token,
					ProductId: item.ProductId,
					Quantity:  item.Quantity,
					Status:    invdal.AuditPending,
				}); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return token, nil
}

// Release restores every quantity frozen under the token. Releasing an
// already-released token is a no-op; releasing a committed token is a
// conflict and is reported, not retried.
func (l *sqlLedger) Release(ctx context.Context, token int64) error {
	return l.withRetry(ctx, func() error {
		return l.inventory.ExecWithTransaction(ctx, func(ctx context.Context, s sqlx.Session) error {
			status, err := l.reservations.StatusWithSession(ctx, s, token)
			if err != nil {
				if errors.Is(err, invdal.ErrNotFound) {
					return ErrTokenNotFound
				}
				return err
			}
			switch status {
			case invdal.ReservationReleased:
				return nil
			case invdal.ReservationCommitted:
				return ErrReservationConflict
			}

			ok, err := l.reservations.CASStatusWithSession(ctx, s, token, invdal.ReservationReserved, invdal.ReservationReleased)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			return l.eachPendingLine(ctx, s, token, func(line *invdal.InventoryAudit) error {
				if err := l.inventory.UnfreezeWithSession(ctx, s, line.ProductId, line.Quantity); err != nil {
					return err
				}
				return l.audits.UpdateStatusWithSession(ctx, s, token, line.ProductId, invdal.AuditCancelled)
			})
		})
	})
}

// Commit makes the reservation permanent: frozen stock becomes sold.
// Committing twice is a no-op; committing a released token is a conflict.
func (l *sqlLedger) Commit(ctx context.Context, token int64) error {
	return l.withRetry(ctx, func() error {
		return l.inventory.ExecWithTransaction(ctx, func(ctx context.Context, s sqlx.Session) error {
			status, err := l.reservations.StatusWithSession(ctx, s, token)
			if err != nil {
				if errors.Is(err, invdal.ErrNotFound) {
					return ErrTokenNotFound
				}
				return err
			}
			switch status {
			case invdal.ReservationCommitted:
				return nil
			case invdal.ReservationReleased:
				return ErrReservationConflict
			}

			ok, err := l.reservations.CASStatusWithSession(ctx, s, token, invdal.ReservationReserved, invdal.ReservationCommitted)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			return l.eachPendingLine(ctx, s, token, func(line *invdal.InventoryAudit) error {
				if err := l.inventory.ConfirmWithSession(ctx, s, line.ProductId, line.Quantity); err != nil {
					return err
				}
				return l.audits.UpdateStatusWithSession(ctx, s, token, line.ProductId, invdal.AuditConfirmed)
			})
		})
	})
}

// ReleaseCommitted restores sold stock for an order that was cancelled or
// returned after payment. Only a committed token can be restored this way.
func (l *sqlLedger) ReleaseCommitted(ctx context.Context, token int64) error {
	return l.withRetry(ctx, func() error {
		return l.inventory.ExecWithTransaction(ctx, func(ctx context.Context, s sqlx.Session) error {
			status, err := l.reservations.StatusWithSession(ctx, s, token)
			if err != nil {
				if errors.Is(err, invdal.ErrNotFound) {
					return ErrTokenNotFound
				}
				return err
			}
			switch status {
			case invdal.ReservationReleased:
				return nil
			case invdal.ReservationReserved:
				return ErrReservationConflict
			}

			ok, err := l.reservations.CASStatusWithSession(ctx, s, token, invdal.ReservationCommitted, invdal.ReservationReleased)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			lines, err := l.audits.ListByTokenWithSession(ctx, s, token)
			if err != nil {
				return err
			}
			for _, line := range lines {
				if line.Status != invdal.AuditConfirmed {
					continue
				}
				if err := l.inventory.CancelSoldWithSession(ctx, s, line.ProductId, line.Quantity); err != nil {
					return err
				}
				if err := l.audits.UpdateStatusWithSession(ctx, s, token, line.ProductId, invdal.AuditCancelled); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func (l *sqlLedger) eachPendingLine(ctx context.Context, s sqlx.Session, token int64, fn func(*invdal.InventoryAudit) error) error {
	lines, err := l.audits.ListByTokenWithSession(ctx, s, token)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if line.Status != invdal.AuditPending {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return nil
}

func (l *sqlLedger) withRetry(ctx context.Context, fn func() error) error {
	backoff := 10 * time.Millisecond
	for {
		err := fn()
		if err == nil || !isRetryable(err) {
			return err
		}
		logx.WithContext(ctx).Slowf("ledger transaction contention, retrying in %v: %v", backoff, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

func isRetryable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Deadlock") || strings.Contains(msg, "try restarting transaction") ||
		strings.Contains(msg, "Lock wait timeout")
}

func normalizeItems(items []Item) ([]Item, error) {
	if len(items) == 0 {
		return nil, ErrInvalidItems
	}
	merged := make(map[int64]int64, len(items))
	for _, item := range items {
		if item.ProductId <= 0 || item.Quantity <= 0 {
			return nil, ErrInvalidItems
		}
		merged[item.ProductId] += item.Quantity
	}
	normalized := make([]Item, 0, len(merged))
	for pid, qty := range merged {
		normalized = append(normalized, Item{ProductId: pid, Quantity: qty})
	}
	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i].ProductId < normalized[j].ProductId
	})
	return normalized, nil
}
