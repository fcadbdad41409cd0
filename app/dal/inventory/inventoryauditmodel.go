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
	inventoryAuditFieldNames        = builder.RawFieldNames(&InventoryAudit{})
	inventoryAuditRows              = strings.Join(inventoryAuditFieldNames, ",")
	inventoryAuditRowsExpectAutoSet = strings.Join(stringx.Remove(inventoryAuditFieldNames, "`id`", "`created_at`", "`updated_at`"), ",")
)

var _ InventoryAuditModel = (*customInventoryAuditModel)(nil)

type (
	// InventoryAuditModel keeps one line per (token, product) with the
	// quantity that was frozen, so release and commit know exactly what to
	// undo or confirm without trusting the caller's item list.
	InventoryAuditModel interface {
		InsertWithSession(ctx context.Context, session sqlx.Session, data *InventoryAudit) (sql.Result, error)
		ListByTokenWithSession(ctx context.Context, session sqlx.Session, tokenId int64) ([]*InventoryAudit, error)
		UpdateStatusWithSession(ctx context.Context, session sqlx.Session, tokenId, productId int64, status string) error
	}

	InventoryAudit struct {
		Id        int64     `db:"id"`
		TokenId   int64     `db:"token_id"`
		ProductId int64     `db:"product_id"`
		Quantity  int64     `db:"quantity"`
		Status    string    `db:"status"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	customInventoryAuditModel struct {
		sqlc.CachedConn
		table string
	}
)

// NewInventoryAuditModel returns a model for the database table.
func NewInventoryAuditModel(conn sqlx.SqlConn, c cache.CacheConf, opts ...cache.Option) InventoryAuditModel {
	return &customInventoryAuditModel{
		CachedConn: sqlc.NewConn(conn, c, opts...),
		table:      "`inventory_audit`",
	}
}

func (m *customInventoryAuditModel) InsertWithSession(ctx context.Context, session sqlx.Session, data *InventoryAudit) (sql.Result, error) {
	query := fmt.Sprintf("insert into %s (%s) values (?, ?, ?, ?)", m.table, inventoryAuditRowsExpectAutoSet)
	res, err := session.ExecCtx(ctx, query, data.TokenId, data.ProductId, data.Quantity, data.Status)
	if err != nil {
		return nil, err
	}
	if err := ensureRows(res); err != nil {
		return nil, err
	}
	return res, nil
}

func (m *customInventoryAuditModel) ListByTokenWithSession(ctx context.Context, session sqlx.Session, tokenId int64) ([]*InventoryAudit, error) {
	query := fmt.Sprintf("select %s from %s where `token_id` = ? order by `product_id`", inventoryAuditRows, m.table)
	var resp []*InventoryAudit
	err := session.QueryRowsCtx(ctx, &resp, query, tokenId)
	switch err {
	case nil:
		return resp, nil
	case sqlc.ErrNotFound, sqlx.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *customInventoryAuditModel) UpdateStatusWithSession(ctx context.Context, session sqlx.Session, tokenId, productId int64, status string) error {
	query := fmt.Sprintf("update %s set `status` = ?, `updated_at` = current_timestamp where `token_id` = ? and `product_id` = ?", m.table)
	res, err := session.ExecCtx(ctx, query, status, tokenId, productId)
	if err != nil {
		return err
	}
	return ensureRows(res)
}
