package bootstrap

import (
	"context"

	"github.com/hibiken/asynq"

	"MapleMall/app/services/checkout/internal/logic"
	"MapleMall/app/services/checkout/internal/mq"
	"MapleMall/app/services/checkout/internal/svc"
)

func StartAsynq(sc *svc.ServiceContext) func() {
	addr := sc.Config.AsynqConf.Addr
	if addr == "" {
		addr = sc.Config.RedisConf.Host
	}
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: addr}, asynq.Config{
		Concurrency: sc.Config.AsynqServerConf.Concurrency,
		Queues:      sc.Config.AsynqServerConf.Queues,
	})
	mux := mq.NewAsynqMux(func(ctx context.Context, orderId int64) error {
		return logic.NewExpireOrderLogic(ctx, sc).Expire(orderId)
	})
	go func() {
		if err := srv.Run(mux); err != nil {
			panic(err)
		}
	}()
	return func() {
		srv.Shutdown()
	}
}
