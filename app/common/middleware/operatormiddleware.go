package middleware

import (
	"net/http"

	"MapleMall/app/common/consts/errno"
	"MapleMall/app/common/util"

	"github.com/zeromicro/go-zero/rest/httpx"
	"github.com/zeromicro/x/errors"
)

// OperatorMiddleware restricts a route group to operator sessions. It must run
// after AuthMiddleware, which resolves the role claim.
type OperatorMiddleware struct{}

func NewOperatorMiddleware() *OperatorMiddleware {
	return &OperatorMiddleware{}
}

func (m *OperatorMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !util.IsOperator(r.Context()) {
			httpx.Error(w, errors.New(int(errno.OperatorRequired), "operator role required"))
			return
		}
		next(w, r)
	}
}
