package apiserver

import (
	"net/http"

	"remix-go/internal/resolvers"
)

// GroupHandler 封装了群组、成员与入群申请相关的 HTTP 处理器方法。
type GroupHandler struct {
	resolver *resolvers.Resolver
}

// NewGroupHandler 创建一个新的 GroupHandler 实例。
func NewGroupHandler(resolver *resolvers.Resolver) *GroupHandler {
	return &GroupHandler{resolver: resolver}
}

// CreateGroup 处理 POST /api/v1/groups。新群组自带一个同名聊天，没有成员。
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var in resolvers.CreateGroupInput
	if !decodeBody(w, r, &in) {
		return
	}
	group, err := h.resolver.CreateGroup(r.Context(), credential(r), in)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, group)
}

func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}
	group, err := h.resolver.Group(r.Context(), credential(r), groupID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, group)
}

func (h *GroupHandler) Chats(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}
	chats, err := h.resolver.GroupChats(r.Context(), credential(r), groupID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, emptyIfNil(chats))
}

func (h *GroupHandler) Members(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}
	members, err := h.resolver.GroupMembers(r.Context(), credential(r), groupID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, emptyIfNil(members))
}

// AddMember 处理 POST /api/v1/groups/{groupID}/members/{userID}。
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if err := h.resolver.AddGroupMember(r.Context(), credential(r), groupID, userID); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember 处理 DELETE /api/v1/groups/{groupID}/members/{userID}。
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if err := h.resolver.RemoveGroupMember(r.Context(), credential(r), groupID, userID); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createChatBody struct {
	Name string `json:"name"`
}

// CreateChat 处理 POST /api/v1/groups/{groupID}/chats。
func (h *GroupHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}
	var body createChatBody
	if !decodeBody(w, r, &body) {
		return
	}
	chat, err := h.resolver.CreateChat(r.Context(), credential(r), resolvers.CreateChatInput{GroupID: groupID, Name: body.Name})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, chat)
}

// JoinRequests 处理 GET /api/v1/groups/{groupID}/requests，仅群成员可见。
func (h *GroupHandler) JoinRequests(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}
	requests, err := h.resolver.GroupJoinRequests(r.Context(), credential(r), groupID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, emptyIfNil(requests))
}

// CreateGroupRequest 处理 POST /api/v1/group-requests。
func (h *GroupHandler) CreateGroupRequest(w http.ResponseWriter, r *http.Request) {
	var in resolvers.CreateGroupRequestInput
	if !decodeBody(w, r, &in) {
		return
	}
	id, err := h.resolver.CreateGroupRequest(r.Context(), credential(r), in)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, idResponse{ID: id})
}

// CreateGroupInvitation 处理 POST /api/v1/group-invitations。
func (h *GroupHandler) CreateGroupInvitation(w http.ResponseWriter, r *http.Request) {
	var in resolvers.CreateGroupInvitationInput
	if !decodeBody(w, r, &in) {
		return
	}
	id, err := h.resolver.CreateGroupInvitation(r.Context(), credential(r), in)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, idResponse{ID: id})
}

// AcceptGroupRequest 处理 POST /api/v1/group-requests/{requestID}/accept，
// 申请与邀请共用这一入口。
func (h *GroupHandler) AcceptGroupRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(w, r, "requestID")
	if !ok {
		return
	}
	id, err := h.resolver.AcceptGroupRequest(r.Context(), credential(r), requestID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, idResponse{ID: id})
}
