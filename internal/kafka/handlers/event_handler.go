package kafkahandlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"remix-go/internal/events"
)

// EventConsumerLogic 把从 Kafka 消费到的事件转交给本地 Hub。
type EventConsumerLogic struct {
	local  events.Publisher
	logger *zap.Logger
}

// NewEventConsumerLogic creates a new instance of EventConsumerLogic.
func NewEventConsumerLogic(local events.Publisher, logger *zap.Logger) *EventConsumerLogic {
	if local == nil {
		panic("local publisher cannot be nil")
	}
	return &EventConsumerLogic{local: local, logger: logger}
}

// HandleEvent is the MessageHandler passed to the Kafka consumer.
func (h *EventConsumerLogic) HandleEvent(ctx context.Context, msg *kafka.Message) error {
	var event events.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// 格式错误的消息重试也不会成功，跳过并提交 offset
		h.logger.Warn("跳过无法解析的事件消息", zap.ByteString("key", msg.Key), zap.Error(err))
		return nil
	}
	if event.Topic == "" || event.UserID == 0 {
		h.logger.Warn("跳过缺少 topic 或 userId 的事件", zap.String("eventID", event.ID))
		return nil
	}

	if err := h.local.Publish(ctx, &event); err != nil {
		return fmt.Errorf("publish event %s to local hub: %w", event.ID, err)
	}
	return nil
}
