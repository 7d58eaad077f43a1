package apiserver

import (
	"net/http"

	"remix-go/internal/resolvers"
)

// UserHandler 封装了用户及其关联字段的查询。
type UserHandler struct {
	resolver *resolvers.Resolver
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(resolver *resolvers.Resolver) *UserHandler {
	return &UserHandler{resolver: resolver}
}

// GetUser 处理 GET /api/v1/users/{userID}。
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	user, err := h.resolver.User(r.Context(), credential(r), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// Friends 处理 GET /api/v1/users/{userID}/friends。
func (h *UserHandler) Friends(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	friends, err := h.resolver.UserFriends(r.Context(), credential(r), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, emptyIfNil(friends))
}

// Groups 处理 GET /api/v1/users/{userID}/groups。
func (h *UserHandler) Groups(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	groups, err := h.resolver.UserGroups(r.Context(), credential(r), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, emptyIfNil(groups))
}

// FriendRequests 处理 GET /api/v1/users/{userID}/friend-requests，只能查看自己的。
func (h *UserHandler) FriendRequests(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	requests, err := h.resolver.UserFriendRequests(r.Context(), credential(r), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, emptyIfNil(requests))
}

// AllMessages 处理 GET /api/v1/users/{userID}/messages。
func (h *UserHandler) AllMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	messages, err := h.resolver.AllMessages(r.Context(), credential(r), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, emptyIfNil(messages))
}

// Search 处理 GET /api/v1/users?phrase=。
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	users, err := h.resolver.Users(r.Context(), credential(r), r.URL.Query().Get("phrase"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, emptyIfNil(users))
}

// Relevant 处理 GET /api/v1/relevant-users。
func (h *UserHandler) Relevant(w http.ResponseWriter, r *http.Request) {
	users, err := h.resolver.RelevantUsers(r.Context(), credential(r))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, emptyIfNil(users))
}

// Invitations 处理 GET /api/v1/group-invitations，列出发给当前用户的入群邀请。
func (h *UserHandler) Invitations(w http.ResponseWriter, r *http.Request) {
	invitations, err := h.resolver.GroupInvitations(r.Context(), credential(r))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, emptyIfNil(invitations))
}
