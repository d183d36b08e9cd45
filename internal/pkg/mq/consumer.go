package mq

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/logger"
)

// MessageReader 是 *kafka.Reader 上消费循环用到的部分
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// HandlerFunc 处理一条消息；返回错误时消息会被转交给 FailureHandler
type HandlerFunc func(ctx context.Context, msg kafka.Message) error

// Consumer 是一个通用的 Kafka 消费循环：
// 拉取 -> 还原 trace 上下文 -> 处理 -> 失败转死信 -> 提交 offset
type Consumer struct {
	name    string
	reader  MessageReader
	handle  HandlerFunc
	failure *FailureHandler
	backoff time.Duration
}

func NewConsumer(name string, reader MessageReader, handle HandlerFunc, failure *FailureHandler) *Consumer {
	return &Consumer{name: name, reader: reader, handle: handle, failure: failure, backoff: time.Second}
}

// Run 阻塞直到 ctx 取消，退出前关闭 reader
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	logger.Ctx(ctx).Info().Str("consumer", c.name).Msg("✅ kafka consumer started")
	for {
		// 使用 FetchMessage 而不是 ReadMessage，以便手动控制提交
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Ctx(ctx).Info().Str("consumer", c.name).Msg("🛑 kafka consumer shutting down")
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Str("consumer", c.name).Msg("could not fetch message, retrying")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}

		msgCtx := ExtractTraceContext(ctx, msg.Headers)
		if err := c.handle(msgCtx, msg); err != nil {
			c.failure.Handle(msgCtx, msg, err)
		}

		// 无论成功或已移交死信，都提交 offset
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("consumer", c.name).Msg("failed to commit message")
		}
	}
}
