package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"remix-go/internal/events"
)

// ErrRelayQueueFull 表示待发送队列已满，事件被丢弃。
var ErrRelayQueueFull = errors.New("kafka relay: queue full")

const sendTimeout = 10 * time.Second

// Relay 实现 events.Publisher：事件先进入有界队列，再由 Run 中的 worker
// 写入 Kafka。各进程的消费者把事件转交给本地 Hub。
type Relay struct {
	producer MessageProducer
	topic    string
	queue    chan *events.Event
	logger   *zap.Logger
}

// NewRelay creates a Relay writing to topic.
func NewRelay(producer MessageProducer, topic string, queueSize int, logger *zap.Logger) *Relay {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Relay{
		producer: producer,
		topic:    topic,
		queue:    make(chan *events.Event, queueSize),
		logger:   logger,
	}
}

// Publish 把事件放入队列，队列满时立即返回 ErrRelayQueueFull。
func (r *Relay) Publish(_ context.Context, event *events.Event) error {
	select {
	case r.queue <- event:
		return nil
	default:
		r.logger.Warn("Kafka 发送队列已满，丢弃事件",
			zap.String("eventID", event.ID),
			zap.String("topic", string(event.Topic)))
		return ErrRelayQueueFull
	}
}

// Run 持续发送队列中的事件，直到 ctx 结束。退出前尽量发送剩余事件。
func (r *Relay) Run(ctx context.Context) {
	r.logger.Info("Kafka relay started", zap.String("topic", r.topic))
	for {
		select {
		case <-ctx.Done():
			r.drain()
			r.logger.Info("Kafka relay stopped")
			return
		case event := <-r.queue:
			r.send(ctx, event)
		}
	}
}

func (r *Relay) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	for {
		select {
		case event := <-r.queue:
			r.send(ctx, event)
		default:
			return
		}
	}
}

func (r *Relay) send(ctx context.Context, event *events.Event) {
	if err := r.sendEvent(ctx, event); err != nil {
		r.logger.Error("发送事件到 Kafka 失败",
			zap.String("eventID", event.ID),
			zap.String("topic", string(event.Topic)),
			zap.Error(err))
	}
}

func (r *Relay) sendEvent(ctx context.Context, event *events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	// 以接收者 ID 作为 key，同一用户的事件落在同一分区上保持顺序
	key := []byte(strconv.FormatUint(uint64(event.UserID), 10))
	return r.producer.SendMessage(ctx, r.topic, key, payload)
}
