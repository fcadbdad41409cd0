package order

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/stores/builder"
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlc"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/stringx"
)

var (
	ordersFieldNames        = builder.RawFieldNames(&Orders{})
	ordersRows              = strings.Join(ordersFieldNames, ",")
	ordersRowsExpectAutoSet = strings.Join(stringx.Remove(ordersFieldNames, "`created_at`", "`updated_at`"), ",")

	cacheOrdersOrderIdPrefix    = "cache:orders:orderId:"
	cacheOrdersPaymentRefPrefix = "cache:orders:paymentRef:"
)

var _ OrdersModel = (*customOrdersModel)(nil)

type (
	// OrdersModel persists the order aggregate. State transitions go through
	// the conditional-update methods below; a false return means another
	// writer already moved the order, never that the write was lost.
	OrdersModel interface {
		Insert(ctx context.Context, data *Orders) (sql.Result, error)
		FindOne(ctx context.Context, orderId int64) (*Orders, error)
		FindOneByPaymentRef(ctx context.Context, paymentRef string) (*Orders, error)
		Delete(ctx context.Context, orderId int64) error
		ListByUser(ctx context.Context, userId int64, offset, limit int64) ([]*Orders, error)
		CountByUser(ctx context.Context, userId int64) (int64, error)
		SetAwaitingPayment(ctx context.Context, orderId int64, paymentRef string) (bool, error)
		MarkPaid(ctx context.Context, orderId int64) (bool, error)
		MarkPaidDirect(ctx context.Context, orderId int64) (bool, error)
		MarkPaymentFailed(ctx context.Context, orderId int64, toStatus, reason string) (bool, error)
		MarkClosed(ctx context.Context, orderId int64, fromStatus []string, toStatus, reason, paymentStatus string) (bool, error)
		AdvanceFulfillment(ctx context.Context, orderId int64, fromStatus, toStatus string, delivered bool, paymentStatus string) (bool, error)
	}

	Orders struct {
		OrderId          int64          `db:"order_id"`
		UserId           int64          `db:"user_id"`
		AddressSnapshot  string         `db:"address_snapshot"`
		PaymentMethod    string         `db:"payment_method"`
		PaymentRef       sql.NullString `db:"payment_ref"`
		PaymentStatus    string         `db:"payment_status"`
		Status           string         `db:"status"`
		StockCommitted   int64          `db:"stock_committed"`
		ReservationToken int64          `db:"reservation_token"`
		TotalCents       int64          `db:"total_cents"`
		ShippingCents    int64          `db:"shipping_cents"`
		TaxCents         int64          `db:"tax_cents"`
		FinalCents       int64          `db:"final_cents"`
		CancelReason     string         `db:"cancel_reason"`
		DeliveredAt      sql.NullTime   `db:"delivered_at"`
		CreatedAt        time.Time      `db:"created_at"`
		UpdatedAt        time.Time      `db:"updated_at"`
	}

	customOrdersModel struct {
		sqlc.CachedConn
		table string
	}
)

// NewOrdersModel returns a model for the database table.
func NewOrdersModel(conn sqlx.SqlConn, c cache.CacheConf, opts ...cache.Option) OrdersModel {
	return &customOrdersModel{
		CachedConn: sqlc.NewConn(conn, c, opts...),
		table:      "`orders`",
	}
}

func (m *customOrdersModel) Insert(ctx context.Context, data *Orders) (sql.Result, error) {
	keys := m.cacheKeys(data)
	return m.ExecCtx(ctx, func(ctx context.Context, conn sqlx.SqlConn) (sql.Result, error) {
		query := fmt.Sprintf("insert into %s (%s) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", m.table, ordersRowsExpectAutoSet)
		return conn.ExecCtx(ctx, query, data.OrderId, data.UserId, data.AddressSnapshot, data.PaymentMethod,
			data.PaymentRef, data.PaymentStatus, data.Status, data.StockCommitted, data.ReservationToken,
			data.TotalCents, data.ShippingCents, data.TaxCents, data.FinalCents, data.CancelReason, data.DeliveredAt)
	}, keys...)
}

func (m *customOrdersModel) FindOne(ctx context.Context, orderId int64) (*Orders, error) {
	ordersOrderIdKey := fmt.Sprintf("%s%v", cacheOrdersOrderIdPrefix, orderId)
	var resp Orders
	err := m.QueryRowCtx(ctx, &resp, ordersOrderIdKey, func(ctx context.Context, conn sqlx.SqlConn, v any) error {
		query := fmt.Sprintf("select %s from %s where `order_id` = ? limit 1", ordersRows, m.table)
		return conn.QueryRowCtx(ctx, v, query, orderId)
	})
	switch err {
	case nil:
		return &resp, nil
	case sqlc.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *customOrdersModel) FindOneByPaymentRef(ctx context.Context, paymentRef string) (*Orders, error) {
	ordersPaymentRefKey := fmt.Sprintf("%s%v", cacheOrdersPaymentRefPrefix, paymentRef)
	var resp Orders
	err := m.QueryRowIndexCtx(ctx, &resp, ordersPaymentRefKey, m.formatPrimary, func(ctx context.Context, conn sqlx.SqlConn, v any) (any, error) {
		query := fmt.Sprintf("select %s from %s where `payment_ref` = ? limit 1", ordersRows, m.table)
		if err := conn.QueryRowCtx(ctx, &resp, query, paymentRef); err != nil {
			return nil, err
		}
		return resp.OrderId, nil
	}, m.queryPrimary)
	switch err {
	case nil:
		return &resp, nil
	case sqlc.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *customOrdersModel) Delete(ctx context.Context, orderId int64) error {
	data, err := m.FindOne(ctx, orderId)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}
	keys := m.cacheKeys(data)
	_, err = m.ExecCtx(ctx, func(ctx context.Context, conn sqlx.SqlConn) (sql.Result, error) {
		query := fmt.Sprintf("delete from %s where `order_id` = ?", m.table)
		return conn.ExecCtx(ctx, query, orderId)
	}, keys...)
	return err
}

func (m *customOrdersModel) ListByUser(ctx context.Context, userId int64, offset, limit int64) ([]*Orders, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	var rows []Orders
	query := fmt.Sprintf("select %s from %s where `user_id` = ? order by `order_id` desc limit ? offset ?", ordersRows, m.table)
	if err := m.QueryRowsNoCacheCtx(ctx, &rows, query, userId, limit, offset); err != nil {
		return nil, err
	}
	res := make([]*Orders, 0, len(rows))
	for i := range rows {
		res = append(res, &rows[i])
	}
	return res, nil
}

func (m *customOrdersModel) CountByUser(ctx context.Context, userId int64) (int64, error) {
	var total int64
	q := fmt.Sprintf("select count(1) from %s where `user_id` = ?", m.table)
	if err := m.QueryRowNoCacheCtx(ctx, &total, q, userId); err != nil {
		return 0, err
	}
	return total, nil
}

func (m *customOrdersModel) SetAwaitingPayment(ctx context.Context, orderId int64, paymentRef string) (bool, error) {
	return m.transition(ctx, orderId,
		"`status` = ?, `payment_ref` = ?",
		[]any{"PENDING_PAYMENT", paymentRef},
		[]string{"CREATED"})
}

func (m *customOrdersModel) MarkPaid(ctx context.Context, orderId int64) (bool, error) {
	return m.transition(ctx, orderId,
		"`status` = ?, `payment_status` = ?, `stock_committed` = 1",
		[]any{"PAID", "completed"},
		[]string{"PENDING_PAYMENT"})
}

// MarkPaidDirect moves a cash-on-delivery order straight to PAID; payment is
// collected at the door, so payment_status stays pending until delivery.
func (m *customOrdersModel) MarkPaidDirect(ctx context.Context, orderId int64) (bool, error) {
	return m.transition(ctx, orderId,
		"`status` = ?, `stock_committed` = 1",
		[]any{"PAID"},
		[]string{"CREATED"})
}

func (m *customOrdersModel) MarkPaymentFailed(ctx context.Context, orderId int64, toStatus, reason string) (bool, error) {
	return m.transition(ctx, orderId,
		"`status` = ?, `payment_status` = ?, `stock_committed` = 0, `cancel_reason` = ?",
		[]any{toStatus, "failed", reason},
		[]string{"PENDING_PAYMENT"})
}

func (m *customOrdersModel) MarkClosed(ctx context.Context, orderId int64, fromStatus []string, toStatus, reason, paymentStatus string) (bool, error) {
	set := "`status` = ?, `cancel_reason` = ?"
	args := []any{toStatus, reason}
	if paymentStatus != "" {
		set += ", `payment_status` = ?"
		args = append(args, paymentStatus)
	}
	return m.transition(ctx, orderId, set, args, fromStatus)
}

func (m *customOrdersModel) AdvanceFulfillment(ctx context.Context, orderId int64, fromStatus, toStatus string, delivered bool, paymentStatus string) (bool, error) {
	set := "`status` = ?"
	args := []any{toStatus}
	if delivered {
		set += ", `delivered_at` = current_timestamp"
	}
	if paymentStatus != "" {
		set += ", `payment_status` = ?"
		args = append(args, paymentStatus)
	}
	return m.transition(ctx, orderId, set, args, []string{fromStatus})
}

func (m *customOrdersModel) transition(ctx context.Context, orderId int64, set string, setArgs []any, fromStatus []string) (bool, error) {
	if len(fromStatus) == 0 {
		return false, fmt.Errorf("fromStatus must not be empty")
	}

	record, err := m.FindOne(ctx, orderId)
	if err != nil {
		return false, err
	}
	keys := m.cacheKeys(record)

	args := append([]any{}, setArgs...)
	for _, s := range fromStatus {
		args = append(args, s)
	}
	args = append(args, orderId)

	query := fmt.Sprintf("update %s set %s, `updated_at` = current_timestamp where `status` in (%s) and `order_id` = ?",
		m.table, set, placeholders(len(fromStatus)))

	result, err := m.ExecCtx(ctx, func(ctx context.Context, conn sqlx.SqlConn) (sql.Result, error) {
		return conn.ExecCtx(ctx, query, args...)
	}, keys...)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (m *customOrdersModel) cacheKeys(data *Orders) []string {
	keys := []string{
		fmt.Sprintf("%s%v", cacheOrdersOrderIdPrefix, data.OrderId),
	}
	if data.PaymentRef.Valid {
		keys = append(keys, fmt.Sprintf("%s%v", cacheOrdersPaymentRefPrefix, data.PaymentRef.String))
	}
	return keys
}

func (m *customOrdersModel) formatPrimary(primary any) string {
	return fmt.Sprintf("%s%v", cacheOrdersOrderIdPrefix, primary)
}

func (m *customOrdersModel) queryPrimary(ctx context.Context, conn sqlx.SqlConn, v, primary any) error {
	query := fmt.Sprintf("select %s from %s where `order_id` = ? limit 1", ordersRows, m.table)
	return conn.QueryRowCtx(ctx, v, query, primary)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	var builder strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteByte('?')
	}
	return builder.String()
}
