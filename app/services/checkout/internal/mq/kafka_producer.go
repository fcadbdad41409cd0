package mq

import (
	"context"
	"encoding/json"
	"time"

	"MapleMall/app/services/checkout/internal/svc"

	"github.com/segmentio/kafka-go"
)

// PublishOrderEvent sends an order event to Kafka. Publishing is best
// effort: a missing broker config is a silent no-op and failures are left
// to the caller to log, never to fail the order flow.
func PublishOrderEvent(sc *svc.ServiceContext, evt OrderEvent) error {
	if len(sc.Config.KafkaConf.Broker) == 0 || sc.Config.KafkaConf.OrderEventTopic == "" {
		return nil
	}
	if evt.OccurredAt == 0 {
		evt.OccurredAt = time.Now().Unix()
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(sc.Config.KafkaConf.Broker...),
		Topic:        sc.Config.KafkaConf.OrderEventTopic,
		RequiredAcks: kafka.RequireOne,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	defer w.Close()
	return w.WriteMessages(context.Background(), kafka.Message{Value: body})
}
