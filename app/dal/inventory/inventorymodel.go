package inventory

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
	inventoryFieldNames        = builder.RawFieldNames(&Inventory{})
	inventoryRows              = strings.Join(inventoryFieldNames, ",")
	inventoryRowsExpectAutoSet = strings.Join(stringx.Remove(inventoryFieldNames, "`created_at`", "`updated_at`"), ",")

	cacheInventoryProductIdPrefix = "cache:inventory:productId:"
)

var _ InventoryModel = (*customInventoryModel)(nil)

type (
	// InventoryModel holds the authoritative stock counters. Every mutation is
	// a conditional UPDATE guarded by the current counters, so the database
	// row is the serialization point for concurrent reservations.
	InventoryModel interface {
		Insert(ctx context.Context, data *Inventory) (sql.Result, error)
		FindOne(ctx context.Context, productId int64) (*Inventory, error)
		FindOneNoCache(ctx context.Context, productId int64) (*Inventory, error)
		ExecWithTransaction(ctx context.Context, fn func(context.Context, sqlx.Session) error) error
		FreezeWithSession(ctx context.Context, session sqlx.Session, productId, count int64) error
		UnfreezeWithSession(ctx context.Context, session sqlx.Session, productId, count int64) error
		ConfirmWithSession(ctx context.Context, session sqlx.Session, productId, count int64) error
		CancelSoldWithSession(ctx context.Context, session sqlx.Session, productId, count int64) error
	}

	Inventory struct {
		ProductId   int64     `db:"product_id"`
		Stock       int64     `db:"stock"`
		FrozenStock int64     `db:"frozen_stock"`
		Sold        int64     `db:"sold"`
		Version     int64     `db:"version"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	customInventoryModel struct {
		sqlc.CachedConn
		conn  sqlx.SqlConn
		table string
	}
)

// NewInventoryModel returns a model for the database table.
func NewInventoryModel(conn sqlx.SqlConn, c cache.CacheConf, opts ...cache.Option) InventoryModel {
	return &customInventoryModel{
		CachedConn: sqlc.NewConn(conn, c, opts...),
		conn:       conn,
		table:      "`inventory`",
	}
}

func (m *customInventoryModel) Insert(ctx context.Context, data *Inventory) (sql.Result, error) {
	inventoryProductIdKey := fmt.Sprintf("%s%v", cacheInventoryProductIdPrefix, data.ProductId)
	return m.ExecCtx(ctx, func(ctx context.Context, conn sqlx.SqlConn) (sql.Result, error) {
		query := fmt.Sprintf("insert into %s (%s) values (?, ?, ?, ?, ?)", m.table, inventoryRowsExpectAutoSet)
		return conn.ExecCtx(ctx, query, data.ProductId, data.Stock, data.FrozenStock, data.Sold, data.Version)
	}, inventoryProductIdKey)
}

func (m *customInventoryModel) FindOne(ctx context.Context, productId int64) (*Inventory, error) {
	inventoryProductIdKey := fmt.Sprintf("%s%v", cacheInventoryProductIdPrefix, productId)
	var resp Inventory
	err := m.QueryRowCtx(ctx, &resp, inventoryProductIdKey, func(ctx context.Context, conn sqlx.SqlConn, v any) error {
		query := fmt.Sprintf("select %s from %s where `product_id` = ? limit 1", inventoryRows, m.table)
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

// FindOneNoCache reads the live row; the ledger uses it to tell a missing
// product apart from an insufficient-stock rejection.
func (m *customInventoryModel) FindOneNoCache(ctx context.Context, productId int64) (*Inventory, error) {
	query := fmt.Sprintf("select %s from %s where `product_id` = ? limit 1", inventoryRows, m.table)
	var resp Inventory
	err := m.QueryRowNoCacheCtx(ctx, &resp, query, productId)
	switch err {
	case nil:
		return &resp, nil
	case sqlc.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *customInventoryModel) ExecWithTransaction(ctx context.Context, fn func(context.Context, sqlx.Session) error) error {
	return m.conn.TransactCtx(ctx, fn)
}

func (m *customInventoryModel) FreezeWithSession(ctx context.Context, session sqlx.Session, productId, count int64) error {
	if count <= 0 {
		return ErrInvalidParam
	}
	q := fmt.Sprintf(
		"UPDATE %s SET stock = stock - ?, frozen_stock = frozen_stock + ?, version = version + 1 WHERE product_id = ? AND stock >= ?",
		m.table,
	)
	res, err := session.ExecCtx(ctx, q, count, count, productId, count)
	if err != nil {
		return err
	}
	return ensureRows(res)
}

func (m *customInventoryModel) UnfreezeWithSession(ctx context.Context, session sqlx.Session, productId, count int64) error {
	if count <= 0 {
		return ErrInvalidParam
	}
	q := fmt.Sprintf(
		"UPDATE %s SET stock = stock + ?, frozen_stock = frozen_stock - ?, version = version + 1 WHERE product_id = ? AND frozen_stock >= ?",
		m.table,
	)
	res, err := session.ExecCtx(ctx, q, count, count, productId, count)
	if err != nil {
		return err
	}
	return ensureRows(res)
}

func (m *customInventoryModel) ConfirmWithSession(ctx context.Context, session sqlx.Session, productId, count int64) error {
	if count <= 0 {
		return ErrInvalidParam
	}
	q := fmt.Sprintf(
		"UPDATE %s SET sold = sold + ?, frozen_stock = frozen_stock - ?, version = version + 1 WHERE product_id = ? AND frozen_stock >= ?",
		m.table,
	)
	res, err := session.ExecCtx(ctx, q, count, count, productId, count)
	if err != nil {
		return err
	}
	return ensureRows(res)
}

func (m *customInventoryModel) CancelSoldWithSession(ctx context.Context, session sqlx.Session, productId, count int64) error {
	if count <= 0 {
		return ErrInvalidParam
	}
	q := fmt.Sprintf(
		"UPDATE %s SET sold = sold - ?, stock = stock + ?, version = version + 1 WHERE product_id = ? AND sold >= ?",
		m.table,
	)
	res, err := session.ExecCtx(ctx, q, count, count, productId, count)
	if err != nil {
		return err
	}
	return ensureRows(res)
}

func ensureRows(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRowsAffectedIsZero
	}
	return nil
}
