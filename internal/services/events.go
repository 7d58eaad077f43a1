package services

import (
	"context"

	"go.uber.org/zap"

	"remix-go/internal/events"
)

// notify 在事务提交后发布事件。分发失败只记录日志，不影响已提交的变更。
// 变更已提交，调用方断开也要送达，所以不跟随 ctx 的取消。
func notify(ctx context.Context, publisher events.Publisher, logger *zap.Logger, topic events.Topic, userIDs []uint, payload any) {
	if publisher == nil || len(userIDs) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, userID := range userIDs {
		event, err := events.NewEvent(topic, userID, payload)
		if err != nil {
			logger.Error("构造事件失败", zap.String("topic", string(topic)), zap.Error(err))
			return
		}
		if err := publisher.Publish(ctx, event); err != nil {
			logger.Warn("发布事件失败",
				zap.String("topic", string(topic)),
				zap.Uint("userID", userID),
				zap.Error(err))
		}
	}
}
