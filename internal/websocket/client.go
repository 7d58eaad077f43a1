// Package websocket 把一个事件订阅推送到 WebSocket 连接上。
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"remix-go/internal/config"
	"remix-go/internal/events"
)

// Frame 是写给客户端的一帧数据。
type Frame struct {
	Topic   events.Topic    `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Client is a middleman between the websocket connection and a subscription.
type Client struct {
	conn   *websocket.Conn
	events <-chan *events.Event
	cancel context.CancelFunc
	userID uint
	cfg    config.WebSocketConfig
	logger *zap.Logger
}

// NewUpgrader 按配置创建 Upgrader，缓冲为 0 时使用库的默认值。
func NewUpgrader(cfg config.WebSocketConfig) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  cfg.MaxMessageSizeBytes,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// Serve 接管连接直到订阅结束或对端断开。cancel 用于释放订阅。
func Serve(conn *websocket.Conn, sub <-chan *events.Event, cancel context.CancelFunc, userID uint, cfg config.WebSocketConfig, logger *zap.Logger) {
	c := &Client{
		conn:   conn,
		events: sub,
		cancel: cancel,
		userID: userID,
		cfg:    withDefaults(cfg),
		logger: logger,
	}
	go c.writePump()
	c.readPump()
}

func withDefaults(cfg config.WebSocketConfig) config.WebSocketConfig {
	if cfg.WriteWaitSeconds <= 0 {
		cfg.WriteWaitSeconds = 10
	}
	if cfg.PongWaitSeconds <= 0 {
		cfg.PongWaitSeconds = 60
	}
	if cfg.PingPeriodSeconds <= 0 || cfg.PingPeriodSeconds >= cfg.PongWaitSeconds {
		cfg.PingPeriodSeconds = cfg.PongWaitSeconds * 9 / 10
	}
	if cfg.MaxMessageSizeBytes <= 0 {
		cfg.MaxMessageSizeBytes = 512
	}
	return cfg
}

// readPump 只负责处理 pong 和关闭帧，客户端发来的数据一律丢弃。
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.conn.Close()
	}()
	pongWait := time.Duration(c.cfg.PongWaitSeconds) * time.Second
	c.conn.SetReadLimit(int64(c.cfg.MaxMessageSizeBytes))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket 读取错误", zap.Uint("userID", c.userID), zap.Error(err))
			}
			return
		}
	}
}

// writePump pumps events from the subscription to the websocket connection.
func (c *Client) writePump() {
	writeWait := time.Duration(c.cfg.WriteWaitSeconds) * time.Second
	ticker := time.NewTicker(time.Duration(c.cfg.PingPeriodSeconds) * time.Second)
	defer func() {
		ticker.Stop()
		c.cancel()
		c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.events:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 订阅已释放
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(Frame{Topic: ev.Topic, Payload: ev.Payload}); err != nil {
				c.logger.Debug("WebSocket 写入失败", zap.Uint("userID", c.userID), zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
