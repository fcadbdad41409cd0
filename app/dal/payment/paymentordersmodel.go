package payment

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
	paymentOrdersFieldNames        = builder.RawFieldNames(&PaymentOrders{})
	paymentOrdersRows              = strings.Join(paymentOrdersFieldNames, ",")
	paymentOrdersRowsExpectAutoSet = strings.Join(stringx.Remove(paymentOrdersFieldNames, "`created_at`", "`updated_at`"), ",")

	cachePaymentOrdersPaymentNoPrefix = "cache:paymentOrders:paymentNo:"
	cachePaymentOrdersOrderIdPrefix   = "cache:paymentOrders:orderId:"
)

var _ PaymentOrdersModel = (*customPaymentOrdersModel)(nil)

type (
	// PaymentOrdersModel logs one gateway intent per order. payment_no holds
	// the provider-side reference and is unique when present.
	PaymentOrdersModel interface {
		Insert(ctx context.Context, data *PaymentOrders) (sql.Result, error)
		FindOne(ctx context.Context, paymentNo string) (*PaymentOrders, error)
		FindOneByOrderId(ctx context.Context, orderId int64) (*PaymentOrders, error)
		UpdateStatus(ctx context.Context, paymentNo string, fromStatus []string, toStatus string) (bool, error)
	}

	PaymentOrders struct {
		PaymentNo    string         `db:"payment_no"`
		OrderId      int64          `db:"order_id"`
		UserId       int64          `db:"user_id"`
		Provider     string         `db:"provider"`
		AmountCents  int64          `db:"amount_cents"`
		Currency     string         `db:"currency"`
		Status       string         `db:"status"`
		ClientParams sql.NullString `db:"client_params"`
		TimeoutAt    time.Time      `db:"timeout_at"`
		CreatedAt    time.Time      `db:"created_at"`
		UpdatedAt    time.Time      `db:"updated_at"`
	}

	customPaymentOrdersModel struct {
		sqlc.CachedConn
		table string
	}
)

// NewPaymentOrdersModel returns a model for the database table.
func NewPaymentOrdersModel(conn sqlx.SqlConn, c cache.CacheConf, opts ...cache.Option) PaymentOrdersModel {
	return &customPaymentOrdersModel{
		CachedConn: sqlc.NewConn(conn, c, opts...),
		table:      "`payment_orders`",
	}
}

func (m *customPaymentOrdersModel) Insert(ctx context.Context, data *PaymentOrders) (sql.Result, error) {
	keys := []string{
		fmt.Sprintf("%s%v", cachePaymentOrdersPaymentNoPrefix, data.PaymentNo),
		fmt.Sprintf("%s%v", cachePaymentOrdersOrderIdPrefix, data.OrderId),
	}
	return m.ExecCtx(ctx, func(ctx context.Context, conn sqlx.SqlConn) (sql.Result, error) {
		query := fmt.Sprintf("insert into %s (%s) values (?, ?, ?, ?, ?, ?, ?, ?, ?)", m.table, paymentOrdersRowsExpectAutoSet)
		return conn.ExecCtx(ctx, query, data.PaymentNo, data.OrderId, data.UserId, data.Provider,
			data.AmountCents, data.Currency, data.Status, data.ClientParams, data.TimeoutAt)
	}, keys...)
}

func (m *customPaymentOrdersModel) FindOne(ctx context.Context, paymentNo string) (*PaymentOrders, error) {
	paymentOrdersPaymentNoKey := fmt.Sprintf("%s%v", cachePaymentOrdersPaymentNoPrefix, paymentNo)
	var resp PaymentOrders
	err := m.QueryRowCtx(ctx, &resp, paymentOrdersPaymentNoKey, func(ctx context.Context, conn sqlx.SqlConn, v any) error {
		query := fmt.Sprintf("select %s from %s where `payment_no` = ? limit 1", paymentOrdersRows, m.table)
		return conn.QueryRowCtx(ctx, v, query, paymentNo)
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

func (m *customPaymentOrdersModel) FindOneByOrderId(ctx context.Context, orderId int64) (*PaymentOrders, error) {
	paymentOrdersOrderIdKey := fmt.Sprintf("%s%v", cachePaymentOrdersOrderIdPrefix, orderId)
	var resp PaymentOrders
	err := m.QueryRowIndexCtx(ctx, &resp, paymentOrdersOrderIdKey, m.formatPrimary, func(ctx context.Context, conn sqlx.SqlConn, v any) (any, error) {
		query := fmt.Sprintf("select %s from %s where `order_id` = ? limit 1", paymentOrdersRows, m.table)
		if err := conn.QueryRowCtx(ctx, &resp, query, orderId); err != nil {
			return nil, err
		}
		return resp.PaymentNo, nil
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

func (m *customPaymentOrdersModel) UpdateStatus(ctx context.Context, paymentNo string, fromStatus []string, toStatus string) (bool, error) {
	if len(fromStatus) == 0 {
		return false, fmt.Errorf("fromStatus must not be empty")
	}

	record, err := m.FindOne(ctx, paymentNo)
	if err != nil {
		return false, err
	}

	keys := []string{
		fmt.Sprintf("%s%v", cachePaymentOrdersPaymentNoPrefix, paymentNo),
		fmt.Sprintf("%s%v", cachePaymentOrdersOrderIdPrefix, record.OrderId),
	}

	args := make([]any, 0, len(fromStatus)+2)
	args = append(args, toStatus)
	for _, s := range fromStatus {
		args = append(args, s)
	}
	args = append(args, paymentNo)

	query := fmt.Sprintf("update %s set `status` = ?, `updated_at` = current_timestamp where `status` in (%s) and `payment_no` = ?",
		m.table, placeholders(len(fromStatus)))

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

func (m *customPaymentOrdersModel) formatPrimary(primary any) string {
	return fmt.Sprintf("%s%v", cachePaymentOrdersPaymentNoPrefix, primary)
}

func (m *customPaymentOrdersModel) queryPrimary(ctx context.Context, conn sqlx.SqlConn, v, primary any) error {
	query := fmt.Sprintf("select %s from %s where `payment_no` = ? limit 1", paymentOrdersRows, m.table)
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
