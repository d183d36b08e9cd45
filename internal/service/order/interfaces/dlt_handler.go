// internal/service/order/interfaces/dlt_handler.go
package interfaces

import (
	"context"

	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/mq"
)

// NewDeadLetterConsumer 监听死信主题并记录日志。
// 死信消息总是直接提交，因为记录日志就是对它们的处理。
func NewDeadLetterConsumer(reader mq.MessageReader) *mq.Consumer {
	return mq.NewConsumer("order-placed-dlt", reader, func(ctx context.Context, msg kafka.Message) error {
		logDeadLetter(ctx, msg)
		return nil
	}, nil)
}

func logDeadLetter(ctx context.Context, msg kafka.Message) {
	headers := make(map[string]string)
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}

	// 使用结构化日志记录，便于后续分析
	logger.Ctx(ctx).Error().
		Str("reason", "dead_letter_message_received").
		Str("original_topic", headers[mq.HeaderOriginalTopic]).
		Str("original_partition", headers[mq.HeaderOriginalPartition]).
		Str("original_offset", headers[mq.HeaderOriginalOffset]).
		Str("exception_fqcn", headers[mq.HeaderExceptionFqcn]).
		Str("exception_message", headers[mq.HeaderExceptionMessage]).
		Str("key", string(msg.Key)).
		Msg("🚨 CRITICAL: Dead letter message received")
}
