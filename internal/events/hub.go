// Package events 实现进程内的订阅分发。
package events

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrHubClosed 表示 Hub 的 Run 循环已经退出。
var ErrHubClosed = errors.New("events: hub closed")

type subKey struct {
	topic  Topic
	userID uint
}

type subscription struct {
	key subKey
	ch  chan *Event
}

// Hub maintains the set of active subscriptions and fans published events
// out to the subscriptions matching (topic, userID).
type Hub struct {
	subs map[subKey]map[*subscription]struct{}

	register   chan *subscription
	unregister chan *subscription
	publish    chan *Event
	done       chan struct{}

	bufferSize int
	logger     *zap.Logger
}

// NewHub creates a new Hub. bufferSize 是每个订阅的缓冲大小。
func NewHub(bufferSize int, logger *zap.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:       make(map[subKey]map[*subscription]struct{}),
		register:   make(chan *subscription),
		unregister: make(chan *subscription),
		publish:    make(chan *Event, 256),
		done:       make(chan struct{}),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Run 处理注册、注销和发布，直到 ctx 结束。退出时关闭所有订阅通道。
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("事件 Hub 已启动")
	defer func() {
		close(h.done)
		for key, set := range h.subs {
			for sub := range set {
				close(sub.ch)
			}
			delete(h.subs, key)
		}
		h.logger.Info("事件 Hub 已停止")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case sub := <-h.register:
			set, ok := h.subs[sub.key]
			if !ok {
				set = make(map[*subscription]struct{})
				h.subs[sub.key] = set
			}
			set[sub] = struct{}{}
			h.logger.Debug("订阅已注册", zap.String("topic", string(sub.key.topic)), zap.Uint("userID", sub.key.userID))

		case sub := <-h.unregister:
			set, ok := h.subs[sub.key]
			if !ok {
				continue
			}
			if _, ok := set[sub]; !ok {
				continue
			}
			delete(set, sub)
			close(sub.ch)
			if len(set) == 0 {
				delete(h.subs, sub.key)
			}
			h.logger.Debug("订阅已注销", zap.String("topic", string(sub.key.topic)), zap.Uint("userID", sub.key.userID))

		case event := <-h.publish:
			for sub := range h.subs[subKey{topic: event.Topic, userID: event.UserID}] {
				select {
				case sub.ch <- event:
				default:
					// 慢订阅者丢事件，不影响其他订阅者
					h.logger.Warn("订阅缓冲已满，丢弃事件",
						zap.String("topic", string(event.Topic)),
						zap.Uint("userID", event.UserID),
						zap.String("eventID", event.ID))
				}
			}
		}
	}
}

// Subscribe 注册一个订阅。ctx 结束后订阅被注销，返回的通道随之关闭。
func (h *Hub) Subscribe(ctx context.Context, topic Topic, userID uint) (<-chan *Event, error) {
	sub := &subscription{
		key: subKey{topic: topic, userID: userID},
		ch:  make(chan *Event, h.bufferSize),
	}
	select {
	case h.register <- sub:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrHubClosed
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-h.done:
			return
		}
		select {
		case h.unregister <- sub:
		case <-h.done:
		}
	}()
	return sub.ch, nil
}

// Publish 把事件放入发布队列。分发本身不会阻塞在任何订阅者上。
func (h *Hub) Publish(ctx context.Context, event *Event) error {
	if event == nil {
		return nil
	}
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.publish <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubClosed
	}
}
