package apiserver

import (
	"encoding/json"
	"net/http"

	"remix-go/internal/resolvers"
)

// ChatHandler 封装了聊天、消息与已读位置。
type ChatHandler struct {
	resolver *resolvers.Resolver
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(resolver *resolvers.Resolver) *ChatHandler {
	return &ChatHandler{resolver: resolver}
}

func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(w, r, "chatID")
	if !ok {
		return
	}
	chat, err := h.resolver.Chat(r.Context(), credential(r), chatID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, chat)
}

// Messages 处理 GET /api/v1/chats/{chatID}/messages，按 seq 升序。
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(w, r, "chatID")
	if !ok {
		return
	}
	messages, err := h.resolver.ChatMessages(r.Context(), credential(r), chatID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, emptyIfNil(messages))
}

type createMessageBody struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// CreateMessage 处理 POST /api/v1/chats/{chatID}/messages。
func (h *ChatHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(w, r, "chatID")
	if !ok {
		return
	}
	var body createMessageBody
	if !decodeBody(w, r, &body) {
		return
	}
	msg, err := h.resolver.CreateMessage(r.Context(), credential(r), resolvers.CreateMessageInput{
		Type:   body.Type,
		Data:   body.Data,
		ChatID: chatID,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, msg)
}

type forwardBody struct {
	ContentID uint `json:"contentId"`
}

// Forward 处理 POST /api/v1/chats/{chatID}/forward，复用已有内容创建新消息。
func (h *ChatHandler) Forward(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(w, r, "chatID")
	if !ok {
		return
	}
	var body forwardBody
	if !decodeBody(w, r, &body) {
		return
	}
	msg, err := h.resolver.CreateMessageWithExistingContent(r.Context(), credential(r), resolvers.CreateMessageWithExistingContentInput{
		ContentID: body.ContentID,
		ToChatID:  chatID,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, msg)
}

// UpdateReadPosition 处理 PUT /api/v1/read-positions。
func (h *ChatHandler) UpdateReadPosition(w http.ResponseWriter, r *http.Request) {
	var in resolvers.UpdateReadPositionInput
	if !decodeBody(w, r, &in) {
		return
	}
	pos, err := h.resolver.UpdateReadPosition(r.Context(), credential(r), in)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, pos)
}

// ReadPosition 处理 GET /api/v1/chats/{chatID}/read-position。
func (h *ChatHandler) ReadPosition(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(w, r, "chatID")
	if !ok {
		return
	}
	pos, err := h.resolver.ReadPosition(r.Context(), credential(r), chatID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, pos)
}
