package product

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
	productsFieldNames        = builder.RawFieldNames(&Products{})
	productsRows              = strings.Join(productsFieldNames, ",")
	productsRowsExpectAutoSet = strings.Join(stringx.Remove(productsFieldNames, "`created_at`", "`updated_at`"), ",")

	cacheProductsProductIdPrefix = "cache:products:productId:"
)

var _ ProductsModel = (*customProductsModel)(nil)

type (
	ProductsModel interface {
		Insert(ctx context.Context, data *Products) (sql.Result, error)
		FindOne(ctx context.Context, productId int64) (*Products, error)
		Update(ctx context.Context, data *Products) error
	}

	Products struct {
		ProductId  int64     `db:"product_id"`
		MerchantId int64     `db:"merchant_id"`
		Title      string    `db:"title"`
		PriceCents int64     `db:"price_cents"`
		Status     int64     `db:"status"`
		CreatedAt  time.Time `db:"created_at"`
		UpdatedAt  time.Time `db:"updated_at"`
	}

	customProductsModel struct {
		sqlc.CachedConn
		table string
	}
)

// NewProductsModel returns a model for the database table.
func NewProductsModel(conn sqlx.SqlConn, c cache.CacheConf, opts ...cache.Option) ProductsModel {
	return &customProductsModel{
		CachedConn: sqlc.NewConn(conn, c, opts...),
		table:      "`products`",
	}
}

func (m *customProductsModel) Insert(ctx context.Context, data *Products) (sql.Result, error) {
	productsProductIdKey := fmt.Sprintf("%s%v", cacheProductsProductIdPrefix, data.ProductId)
	return m.ExecCtx(ctx, func(ctx context.Context, conn sqlx.SqlConn) (sql.Result, error) {
		query := fmt.Sprintf("insert into %s (%s) values (?, ?, ?, ?, ?)", m.table, productsRowsExpectAutoSet)
		return conn.ExecCtx(ctx, query, data.ProductId, data.MerchantId, data.Title, data.PriceCents, data.Status)
	}, productsProductIdKey)
}

func (m *customProductsModel) FindOne(ctx context.Context, productId int64) (*Products, error) {
	productsProductIdKey := fmt.Sprintf("%s%v", cacheProductsProductIdPrefix, productId)
	var resp Products
	err := m.QueryRowCtx(ctx, &resp, productsProductIdKey, func(ctx context.Context, conn sqlx.SqlConn, v any) error {
		query := fmt.Sprintf("select %s from %s where `product_id` = ? limit 1", productsRows, m.table)
		return conn.QueryRowCtx(ctx, v, query, productId)
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

func (m *customProductsModel) Update(ctx context.Context, data *Products) error {
	productsProductIdKey := fmt.Sprintf("%s%v", cacheProductsProductIdPrefix, data.ProductId)
	_, err := m.ExecCtx(ctx, func(ctx context.Context, conn sqlx.SqlConn) (sql.Result, error) {
		query := fmt.Sprintf("update %s set `merchant_id` = ?, `title` = ?, `price_cents` = ?, `status` = ? where `product_id` = ?", m.table)
		return conn.ExecCtx(ctx, query, data.MerchantId, data.Title, data.PriceCents, data.Status, data.ProductId)
	}, productsProductIdKey)
	return err
}
