package mq

import (
	"github.com/hibiken/asynq"
)

func NewAsynqMux(expire ExpireFunc) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskExpireReservation, newExpireReservationHandler(expire))
	return mux
}
