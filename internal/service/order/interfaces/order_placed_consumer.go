package interfaces

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/mq"
	"orderflow/internal/service/order/application"
	"orderflow/internal/service/order/domain"
)

// OrderPlacedConsumer 是一个驱动适配器，监听 order-placed 主题并驱动订单生命周期
type OrderPlacedConsumer struct {
	service *application.OrderLifecycle
}

func NewOrderPlacedConsumer(service *application.OrderLifecycle) *OrderPlacedConsumer {
	return &OrderPlacedConsumer{service: service}
}

// Consumer 把处理函数挂到通用的消费循环上
func (c *OrderPlacedConsumer) Consumer(reader mq.MessageReader, failure *mq.FailureHandler) *mq.Consumer {
	return mq.NewConsumer("order-placed", reader, c.Handle, failure)
}

// Handle 反序列化下单消息并创建订单。重复投递是幂等的；
// 格式错误或不合法的订单不会因重试而成功，直接交给死信。
func (c *OrderPlacedConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	var evt domain.OrderPlaced
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return err
	}
	if evt.OrderID == "" && len(msg.Key) > 0 {
		evt.OrderID = string(msg.Key)
	}
	_, err := c.service.PlaceOrder(ctx, &evt)
	if errors.Is(err, domain.ErrOrderExists) {
		return nil
	}
	return err
}
