package mq

import (
	"context"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/logger"
)

// 死信消息上携带的原始信息
const (
	HeaderOriginalTopic     = "x-original-topic"
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
	HeaderExceptionFqcn     = "x-exception-fqcn"
	HeaderExceptionMessage  = "x-exception-message"
)

// FailureHandler 把处理失败的消息转发到死信主题
type FailureHandler struct {
	dltWriter MessageWriter
}

func NewFailureHandler(dltWriter MessageWriter) *FailureHandler {
	return &FailureHandler{dltWriter: dltWriter}
}

// Handle 转发失败消息；转发本身失败时只记录日志，调用方仍会提交 offset
func (h *FailureHandler) Handle(ctx context.Context, msg kafka.Message, cause error) {
	if h == nil || h.dltWriter == nil {
		logger.Ctx(ctx).Error().Err(cause).Str("topic", msg.Topic).Msg("🚨 message processing failed and no DLT is configured")
		return
	}
	dlt := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(append([]kafka.Header(nil), msg.Headers...),
			kafka.Header{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
			kafka.Header{Key: HeaderOriginalPartition, Value: []byte(strconv.Itoa(msg.Partition))},
			kafka.Header{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
			kafka.Header{Key: HeaderExceptionFqcn, Value: []byte(fmt.Sprintf("%T", cause))},
			kafka.Header{Key: HeaderExceptionMessage, Value: []byte(cause.Error())},
		),
	}
	if err := h.dltWriter.WriteMessages(ctx, dlt); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("topic", msg.Topic).Int64("offset", msg.Offset).Msg("🚨 failed to forward message to DLT")
		return
	}
	logger.Ctx(ctx).Warn().Err(cause).Str("topic", msg.Topic).Int64("offset", msg.Offset).Msg("message forwarded to DLT")
}
