package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"orderflow/internal/pkg/mq"
	"orderflow/internal/service/order/domain"
)

// StatusKafkaPublisher 实现了 port.StatusPublisher 接口。
// 以订单 ID 作为消息 key，同一订单的通知落在同一分区，保持顺序。
type StatusKafkaPublisher struct {
	writer mq.MessageWriter
}

func NewStatusKafkaPublisher(writer mq.MessageWriter) *StatusKafkaPublisher {
	return &StatusKafkaPublisher{writer: writer}
}

func (a *StatusKafkaPublisher) PublishStatusChanged(ctx context.Context, evt domain.StatusChanged) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal status change: %w", err)
	}
	return mq.ProduceMessage(ctx, a.writer, []byte(evt.OrderID), payload)
}

// Close 关闭底层的 Kafka writer
func (a *StatusKafkaPublisher) Close() error {
	if c, ok := a.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
