package cart

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
	cartFieldNames        = builder.RawFieldNames(&Cart{})
	cartRows              = strings.Join(cartFieldNames, ",")
	cartRowsExpectAutoSet = strings.Join(stringx.Remove(cartFieldNames, "`id`", "`created_at`", "`updated_at`"), ",")
)

var _ CartModel = (*customCartModel)(nil)

type (
	CartModel interface {
		Insert(ctx context.Context, data *Cart) (sql.Result, error)
		FindOneByUserProduct(ctx context.Context, userId, productId int64) (*Cart, error)
		ListByUserId(ctx context.Context, userId int64) ([]*Cart, error)
		UpdateQuantity(ctx context.Context, userId, productId, quantity int64) error
		Delete(ctx context.Context, userId, productId int64) error
		ClearByUser(ctx context.Context, userId int64) error
	}

	Cart struct {
		Id        int64     `db:"id"`
		UserId    int64     `db:"user_id"`
		ProductId int64     `db:"product_id"`
		Quantity  int64     `db:"quantity"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	customCartModel struct {
		sqlc.CachedConn
		table string
	}
)

// NewCartModel returns a model for the database table. Cart rows are ephemeral
// per-user state, so reads go straight to the database.
func NewCartModel(conn sqlx.SqlConn, c cache.CacheConf, opts ...cache.Option) CartModel {
	return &customCartModel{
		CachedConn: sqlc.NewConn(conn, c, opts...),
		table:      "`cart`",
	}
}

func (m *customCartModel) Insert(ctx context.Context, data *Cart) (sql.Result, error) {
	query := fmt.Sprintf("insert into %s (%s) values (?, ?, ?)", m.table, cartRowsExpectAutoSet)
	return m.ExecNoCacheCtx(ctx, query, data.UserId, data.ProductId, data.Quantity)
}

func (m *customCartModel) FindOneByUserProduct(ctx context.Context, userId, productId int64) (*Cart, error) {
	query := fmt.Sprintf("select %s from %s where `user_id` = ? and `product_id` = ? limit 1", cartRows, m.table)
	var resp Cart
	err := m.QueryRowNoCacheCtx(ctx, &resp, query, userId, productId)
	switch err {
	case nil:
		return &resp, nil
	case sqlc.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *customCartModel) ListByUserId(ctx context.Context, userId int64) ([]*Cart, error) {
	query := fmt.Sprintf("select %s from %s where `user_id` = ? order by `id` desc", cartRows, m.table)
	var resp []*Cart
	err := m.QueryRowsNoCacheCtx(ctx, &resp, query, userId)
	switch err {
	case nil:
		return resp, nil
	case sqlc.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *customCartModel) UpdateQuantity(ctx context.Context, userId, productId, quantity int64) error {
	query := fmt.Sprintf("update %s set `quantity` = ? where `user_id` = ? and `product_id` = ?", m.table)
	res, err := m.ExecNoCacheCtx(ctx, query, quantity, userId, productId)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *customCartModel) Delete(ctx context.Context, userId, productId int64) error {
	query := fmt.Sprintf("delete from %s where `user_id` = ? and `product_id` = ?", m.table)
	_, err := m.ExecNoCacheCtx(ctx, query, userId, productId)
	return err
}

func (m *customCartModel) ClearByUser(ctx context.Context, userId int64) error {
	query := fmt.Sprintf("delete from %s where `user_id` = ?", m.table)
	_, err := m.ExecNoCacheCtx(ctx, query, userId)
	return err
}
