package interfaces

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"orderflow/internal/pkg/mq"
	"orderflow/internal/service/notification/application"
	orderdomain "orderflow/internal/service/order/domain"
)

// StatusChangedConsumer 监听 order-status-changed 并写入商家收件箱
type StatusChangedConsumer struct {
	service *application.InboxService
}

func NewStatusChangedConsumer(service *application.InboxService) *StatusChangedConsumer {
	return &StatusChangedConsumer{service: service}
}

func (c *StatusChangedConsumer) Consumer(reader mq.MessageReader, failure *mq.FailureHandler) *mq.Consumer {
	return mq.NewConsumer("notification-inbox", reader, c.Handle, failure)
}

func (c *StatusChangedConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	var evt orderdomain.StatusChanged
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return err
	}
	_, err := c.service.Record(ctx, evt)
	return err
}
