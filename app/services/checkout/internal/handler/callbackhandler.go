package handler

import (
	"io"
	"net/http"

	"MapleMall/app/common/consts/biz"
	"MapleMall/app/services/checkout/internal/logic"
	"MapleMall/app/services/checkout/internal/svc"
	"MapleMall/app/services/checkout/internal/types"

	"github.com/zeromicro/go-zero/rest/httpx"
)

const maxCallbackBody = 1 << 20

// CallbackHandler receives provider webhooks. The raw body is handed to the
// adapter untouched; signature schemes hash the exact bytes on the wire.
func CallbackHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CallbackRequest
		if err := httpx.ParsePath(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBody))
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		var signature string
		switch req.Provider {
		case biz.MethodStripe:
			signature = r.Header.Get("Stripe-Signature")
		case biz.MethodRazorpay:
			signature = r.Header.Get("X-Razorpay-Signature")
		}

		l := logic.NewCallbackLogic(r.Context(), svcCtx)
		resp, err := l.HandleCallback(req.Provider, body, signature)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
