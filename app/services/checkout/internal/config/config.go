package config

import (
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/rest"

	"MapleMall/app/services/checkout/internal/gateway"
)

type Config struct {
	rest.RestConf

	MysqlConf sqlx.SqlConf
	RedisConf redis.RedisConf
	CacheConf cache.CacheConf

	AsynqConf       AsynqRedisConf
	AsynqServerConf AsynqServerConf

	KafkaConf KafkaConf

	StripeConf   gateway.StripeConf
	RazorpayConf gateway.RazorpayConf

	LogConf logx.LogConf

	AccessSecret string

	// Unpaid orders are auto-cancelled and their stock released after this
	// many minutes.
	ReservationTTLMinutes int `json:",default=30"`

	// Hours a seen callback event id stays in the dedup window.
	CallbackDedupHours int `json:",default=24"`

	ShippingFlatCents int64  `json:",default=500"`
	TaxBps            int64  `json:",default=800"`
	Currency          string `json:",default=USD"`

	SnowflakeNode int64
}

type AsynqRedisConf struct {
	Addr string
}

type AsynqServerConf struct {
	Concurrency int            `json:",default=4"`
	Queues      map[string]int `json:",optional"`
}

type KafkaConf struct {
	Broker          []string `json:",optional"`
	OrderEventTopic string   `json:",optional"`
}
