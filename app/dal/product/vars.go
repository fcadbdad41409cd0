package product

import "github.com/zeromicro/go-zero/core/stores/sqlx"

var ErrNotFound = sqlx.ErrNotFound

const (
	StatusOnShelf  = 1
	StatusOffShelf = 2
)
