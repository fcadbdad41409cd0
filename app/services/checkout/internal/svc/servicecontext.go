package svc

import (
	"time"

	"MapleMall/app/common/middleware"
	"MapleMall/app/common/snowflake"
	cartdal "MapleMall/app/dal/cart"
	invdal "MapleMall/app/dal/inventory"
	orderdal "MapleMall/app/dal/order"
	paymentdal "MapleMall/app/dal/payment"
	productdal "MapleMall/app/dal/product"
	"MapleMall/app/services/checkout/internal/config"
	"MapleMall/app/services/checkout/internal/gateway"
	"MapleMall/app/services/checkout/internal/ledger"
	"MapleMall/app/services/checkout/internal/notify"

	"github.com/hibiken/asynq"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/rest"
)

type ServiceContext struct {
	Config config.Config

	AuthMiddleware     rest.Middleware
	OperatorMiddleware rest.Middleware

	DB            sqlx.SqlConn
	Products      productdal.ProductsModel
	Cart          cartdal.CartModel
	Orders        orderdal.OrdersModel
	OrderItems    orderdal.OrderItemsModel
	PaymentOrders paymentdal.PaymentOrdersModel
	CallbackDedup paymentdal.CallbackDedupModel

	Ledger   ledger.Ledger
	Gateways *gateway.Registry
	Hub      *notify.Hub
	Locker   OrderLocker

	AsynqClient *asynq.Client

	ReservationTTL time.Duration
}

func NewServiceContext(c config.Config) *ServiceContext {
	logx.MustSetup(c.LogConf)

	db := sqlx.NewMysql(c.MysqlConf.DataSource)
	rds := redis.MustNewRedis(c.RedisConf)

	inventory := invdal.NewInventoryModel(db, c.CacheConf)
	reservations := invdal.NewReservationsModel(db, c.CacheConf)
	audits := invdal.NewInventoryAuditModel(db, c.CacheConf)

	asynqAddr := c.AsynqConf.Addr
	if asynqAddr == "" {
		asynqAddr = c.RedisConf.Host
	}

	ttl := time.Duration(c.ReservationTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	dedupWindow := time.Duration(c.CallbackDedupHours) * time.Hour
	if dedupWindow <= 0 {
		dedupWindow = 24 * time.Hour
	}

	if c.SnowflakeNode > 0 {
		if err := snowflake.SetNodeID(c.SnowflakeNode); err != nil {
			logx.Errorf("failed to set snowflake node id: %v", err)
		}
	}

	return &ServiceContext{
		Config:             c,
		AuthMiddleware:     middleware.NewAuthMiddleware(c.AccessSecret).Handle,
		OperatorMiddleware: middleware.NewOperatorMiddleware().Handle,
		DB:                 db,
		Products:           productdal.NewProductsModel(db, c.CacheConf),
		Cart:               cartdal.NewCartModel(db, c.CacheConf),
		Orders:             orderdal.NewOrdersModel(db, c.CacheConf),
		OrderItems:         orderdal.NewOrderItemsModel(db, c.CacheConf),
		PaymentOrders:      paymentdal.NewPaymentOrdersModel(db, c.CacheConf),
		CallbackDedup:      paymentdal.NewCallbackDedupModel(rds, dedupWindow),
		Ledger:             ledger.NewLedger(inventory, reservations, audits),
		Gateways:           gateway.NewRegistry(gateway.NewStripe(c.StripeConf), gateway.NewRazorpay(c.RazorpayConf)),
		Hub:                notify.NewHub(),
		Locker:             NewRedisLocker(rds),
		AsynqClient:        asynq.NewClient(asynq.RedisClientOpt{Addr: asynqAddr}),
		ReservationTTL:     ttl,
	}
}
