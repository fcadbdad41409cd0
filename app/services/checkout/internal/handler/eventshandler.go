package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"MapleMall/app/services/checkout/internal/svc"

	"github.com/zeromicro/go-zero/core/logx"
)

// EventsHandler streams order events to operator dashboards over SSE. A
// consumer that stops reading long enough to fill its buffer is dropped by
// the hub and sees its stream end.
func EventsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher.Flush()

		id, events := svcCtx.Hub.Subscribe()
		defer svcCtx.Hub.Unsubscribe(id)

		logger := logx.WithContext(r.Context())
		for {
			select {
			case <-r.Context().Done():
				return
			case evt, open := <-events:
				if !open {
					return
				}
				data, err := json.Marshal(evt)
				if err != nil {
					logger.Errorf("events: marshal: %v", err)
					continue
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Kind, data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
