package push

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/mq"
	"orderflow/internal/service/order/domain"
)

// StatusForwarder 消费 order-status-changed，把事件原样转发给对应店铺的连接
type StatusForwarder struct {
	hub *Hub
}

func NewStatusForwarder(hub *Hub) *StatusForwarder {
	return &StatusForwarder{hub: hub}
}

func (f *StatusForwarder) Consumer(reader mq.MessageReader, failure *mq.FailureHandler) *mq.Consumer {
	return mq.NewConsumer("push-status-forwarder", reader, f.Handle, failure)
}

func (f *StatusForwarder) Handle(ctx context.Context, msg kafka.Message) error {
	ctx, span := otel.Tracer("push-gateway").Start(ctx, "push.ForwardStatusChanged",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("messaging.destination", msg.Topic)),
	)
	defer span.End()

	var evt domain.StatusChanged
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		span.RecordError(err)
		return err
	}
	n := f.hub.Publish(evt.ShopID, msg.Value)
	span.SetAttributes(attribute.String("shop.id", evt.ShopID), attribute.Int("push.delivered", n))
	logger.Ctx(ctx).Debug().
		Str("order_id", evt.OrderID).
		Str("status", string(evt.NewStatus)).
		Int("delivered", n).
		Msg("status change pushed")
	return nil
}
