package util

import (
	"context"
	"net/http"

	"MapleMall/app/common/consts/biz"
	"MapleMall/app/common/consts/errno"

	"github.com/zeromicro/x/errors"
)

func UserIdFromCtx(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New(int(errno.TokenEmpty), "missing context")
	}

	switch val := ctx.Value(biz.USER_KEY).(type) {
	case int64:
		return val, nil
	}

	return 0, errors.New(int(errno.TokenEmpty), "unauthorized")
}

func IsOperator(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(biz.OPERATOR_KEY).(bool)
	return v
}

func InjectUserId2Ctx(r *http.Request, userId int64) {
	ctx := context.WithValue(r.Context(), biz.USER_KEY, userId)
	*r = *r.WithContext(ctx)
}
