package chatserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"remix-go/internal/apperrors"
	"remix-go/internal/config"
	"remix-go/internal/resolvers"
	ws "remix-go/internal/websocket"
)

// 客户端使用的订阅名。
const (
	TopicNewMessage       = "newMessage"
	TopicNewFriendRequest = "newFriendRequest"
)

// WebSocketHandler 负责处理订阅连接请求。
type WebSocketHandler struct {
	resolver *resolvers.Resolver
	cfg      config.WebSocketConfig
	logger   *zap.Logger
}

// NewWebSocketHandler 创建一个新的 WebSocketHandler 实例。
func NewWebSocketHandler(resolver *resolvers.Resolver, cfg config.WebSocketConfig, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}
}

// ServeHTTP 处理 GET /ws/subscriptions?topic=newMessage|newFriendRequest&userId=N。
// 令牌取自 token 查询参数或 Authorization 头。订阅在升级之前建立，失败时以普通 HTTP 错误返回。
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("token")
	if token == "" {
		token = bearer(r.Header.Get("Authorization"))
	}

	var userID uint
	if raw := q.Get("userId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			writeError(w, apperrors.Validationf("无效的 userId: %s", raw))
			return
		}
		userID = uint(id)
	}

	// 订阅的生命周期由连接决定，不能用请求的 ctx
	ctx, cancel := context.WithCancel(context.Background())

	var (
		sub *resolvers.Subscription
		err error
	)
	switch q.Get("topic") {
	case TopicNewMessage:
		sub, err = h.resolver.NewMessage(ctx, token, userID)
	case TopicNewFriendRequest:
		sub, err = h.resolver.NewFriendRequest(ctx, token, userID)
	default:
		err = apperrors.Validationf("未知的订阅: %q", q.Get("topic"))
	}
	if err != nil {
		cancel()
		writeError(w, err)
		return
	}

	conn, err := ws.NewUpgrader(h.cfg).Upgrade(w, r, nil)
	if err != nil {
		cancel()
		h.logger.Warn("WebSocket 升级失败", zap.Error(err))
		return
	}
	h.logger.Info("订阅已建立", zap.String("topic", q.Get("topic")), zap.Uint("userID", sub.UserID))
	go ws.Serve(conn, sub.Events, cancel, sub.UserID, h.cfg, h.logger)
}

func bearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Unknown()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperrors.HTTPStatus(appErr.Kind))
	_ = json.NewEncoder(w).Encode(map[string]*apperrors.Error{"error": appErr})
}
