package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"orderflow/internal/pkg/mq"
	"orderflow/internal/service/order/domain"
)

// OrderPlacedProducer 向 order-placed 主题投递下单消息（命令行工具与联调使用）
type OrderPlacedProducer struct {
	writer mq.MessageWriter
}

func NewOrderPlacedProducer(writer mq.MessageWriter) *OrderPlacedProducer {
	return &OrderPlacedProducer{writer: writer}
}

func (p *OrderPlacedProducer) Produce(ctx context.Context, evt *domain.OrderPlaced) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal order placed event: %w", err)
	}
	return mq.ProduceMessage(ctx, p.writer, []byte(evt.OrderID), payload)
}
