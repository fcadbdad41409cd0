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
	orderItemsFieldNames        = builder.RawFieldNames(&OrderItems{})
	orderItemsRows              = strings.Join(orderItemsFieldNames, ",")
	orderItemsRowsExpectAutoSet = strings.Join(stringx.Remove(orderItemsFieldNames, "`id`", "`created_at`"), ",")
)

var _ OrderItemsModel = (*customOrderItemsModel)(nil)

type (
	// OrderItemsModel stores the line items snapshotted at order creation.
	// Prices are copied from the catalog once and never re-read.
	OrderItemsModel interface {
		Insert(ctx context.Context, data *OrderItems) (sql.Result, error)
		ListByOrder(ctx context.Context, orderId int64) ([]*OrderItems, error)
		DeleteByOrder(ctx context.Context, orderId int64) error
	}

	OrderItems struct {
		Id         int64     `db:"id"`
		OrderId    int64     `db:"order_id"`
		ProductId  int64     `db:"product_id"`
		Title      string    `db:"title"`
		Quantity   int64     `db:"quantity"`
		PriceCents int64     `db:"price_cents"`
		CreatedAt  time.Time `db:"created_at"`
	}

	customOrderItemsModel struct {
		sqlc.CachedConn
		table string
	}
)

// NewOrderItemsModel returns a model for the database table.
func NewOrderItemsModel(conn sqlx.SqlConn, c cache.CacheConf, opts ...cache.Option) OrderItemsModel {
	return &customOrderItemsModel{
		CachedConn: sqlc.NewConn(conn, c, opts...),
		table:      "`order_items`",
	}
}

func (m *customOrderItemsModel) Insert(ctx context.Context, data *OrderItems) (sql.Result, error) {
	query := fmt.Sprintf("insert into %s (%s) values (?, ?, ?, ?, ?)", m.table, orderItemsRowsExpectAutoSet)
	return m.ExecNoCacheCtx(ctx, query, data.OrderId, data.ProductId, data.Title, data.Quantity, data.PriceCents)
}

func (m *customOrderItemsModel) ListByOrder(ctx context.Context, orderId int64) ([]*OrderItems, error) {
	query := fmt.Sprintf("select %s from %s where `order_id` = ? order by `id`", orderItemsRows, m.table)
	var resp []*OrderItems
	err := m.QueryRowsNoCacheCtx(ctx, &resp, query, orderId)
	switch err {
	case nil:
		return resp, nil
	case sqlc.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *customOrderItemsModel) DeleteByOrder(ctx context.Context, orderId int64) error {
	query := fmt.Sprintf("delete from %s where `order_id` = ?", m.table)
	_, err := m.ExecNoCacheCtx(ctx, query, orderId)
	return err
}
