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
	reservationsFieldNames        = builder.RawFieldNames(&Reservation{})
	reservationsRows              = strings.Join(reservationsFieldNames, ",")
	reservationsRowsExpectAutoSet = strings.Join(stringx.Remove(reservationsFieldNames, "`created_at`", "`updated_at`"), ",")
)

var _ ReservationsModel = (*customReservationsModel)(nil)

type (
	// ReservationsModel tracks one header row per reservation token. The
	// status column carries the applied-marker: ledger mutations are only
	// performed together with a successful status CAS, so a replayed commit
	// or release can be detected and skipped.
	ReservationsModel interface {
		InsertWithSession(ctx context.Context, session sqlx.Session, data *Reservation) (sql.Result, error)
		FindOne(ctx context.Context, tokenId int64) (*Reservation, error)
		StatusWithSession(ctx context.Context, session sqlx.Session, tokenId int64) (string, error)
		CASStatusWithSession(ctx context.Context, session sqlx.Session, tokenId int64, from, to string) (bool, error)
	}

	Reservation struct {
		TokenId   int64     `db:"token_id"`
		OrderId   int64     `db:"order_id"`
		Status    string    `db:"status"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	customReservationsModel struct {
		sqlc.CachedConn
		table string
	}
)

// NewReservationsModel returns a model for the database table.
func NewReservationsModel(conn sqlx.SqlConn, c cache.CacheConf, opts ...cache.Option) ReservationsModel {
	return &customReservationsModel{
		CachedConn: sqlc.NewConn(conn, c, opts...),
		table:      "`inventory_reservations`",
	}
}

func (m *customReservationsModel) InsertWithSession(ctx context.Context, session sqlx.Session, data *Reservation) (sql.Result, error) {
	query := fmt.Sprintf("insert into %s (%s) values (?, ?, ?)", m.table, reservationsRowsExpectAutoSet)
	return session.ExecCtx(ctx, query, data.TokenId, data.OrderId, data.Status)
}

func (m *customReservationsModel) FindOne(ctx context.Context, tokenId int64) (*Reservation, error) {
	query := fmt.Sprintf("select %s from %s where `token_id` = ? limit 1", reservationsRows, m.table)
	var resp Reservation
	err := m.QueryRowNoCacheCtx(ctx, &resp, query, tokenId)
	switch err {
	case nil:
		return &resp, nil
	case sqlc.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

// StatusWithSession reads the header status with a row lock so concurrent
// commit/release attempts on the same token serialize inside the transaction.
func (m *customReservationsModel) StatusWithSession(ctx context.Context, session sqlx.Session, tokenId int64) (string, error) {
	query := fmt.Sprintf("select `status` from %s where `token_id` = ? for update", m.table)
	var status string
	err := session.QueryRowCtx(ctx, &status, query, tokenId)
	switch err {
	case nil:
		return status, nil
	case sqlc.ErrNotFound, sqlx.ErrNotFound:
		return "", ErrNotFound
	default:
		return "", err
	}
}

func (m *customReservationsModel) CASStatusWithSession(ctx context.Context, session sqlx.Session, tokenId int64, from, to string) (bool, error) {
	query := fmt.Sprintf("update %s set `status` = ?, `updated_at` = current_timestamp where `token_id` = ? and `status` = ?", m.table)
	res, err := session.ExecCtx(ctx, query, to, tokenId, from)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
