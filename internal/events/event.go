package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Topic 标识一个事件流。
type Topic string

const (
	// TopicFriendRequestCreated 投递给好友请求的接收者。
	TopicFriendRequestCreated Topic = "friend_request.created"
	// TopicMessageCreated 投递给消息所在群组的每个成员（包括作者）。
	TopicMessageCreated Topic = "message.created"
)

// Event 是一次投递给某个用户的通知。Payload 是 JSON 编码的领域对象。
type Event struct {
	ID        string          `json:"id"`
	Topic     Topic           `json:"topic"`
	UserID    uint            `json:"userId"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent 序列化 payload 并生成带 ID 的事件。
func NewEvent(topic Topic, userID uint, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化事件 %s 失败: %w", topic, err)
	}
	return &Event{
		ID:        uuid.NewString(),
		Topic:     topic,
		UserID:    userID,
		Payload:   data,
		CreatedAt: time.Now(),
	}, nil
}

// Decode 把 Payload 反序列化到 v。
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Publisher 把事件交给订阅方。实现不能阻塞调用方太久。
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// Subscriber 为单个 (topic, user) 打开事件流，ctx 结束时流被关闭。
type Subscriber interface {
	Subscribe(ctx context.Context, topic Topic, userID uint) (<-chan *Event, error)
}

// PublisherFunc 让普通函数实现 Publisher。
type PublisherFunc func(ctx context.Context, event *Event) error

func (f PublisherFunc) Publish(ctx context.Context, event *Event) error {
	return f(ctx, event)
}
