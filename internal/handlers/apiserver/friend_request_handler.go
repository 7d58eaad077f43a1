package apiserver

import (
	"net/http"

	"remix-go/internal/resolvers"
)

// FriendRequestHandler handles HTTP requests related to friend requests.
type FriendRequestHandler struct {
	resolver *resolvers.Resolver
}

// NewFriendRequestHandler creates a new FriendRequestHandler.
func NewFriendRequestHandler(resolver *resolvers.Resolver) *FriendRequestHandler {
	return &FriendRequestHandler{resolver: resolver}
}

type idResponse struct {
	ID uint `json:"id"`
}

// Create handles POST /api/v1/friend-requests
func (h *FriendRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in resolvers.CreateFriendRequestInput
	if !decodeBody(w, r, &in) {
		return
	}
	id, err := h.resolver.CreateFriendRequest(r.Context(), credential(r), in)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, idResponse{ID: id})
}

// Accept handles POST /api/v1/friend-requests/{requestID}/accept
func (h *FriendRequestHandler) Accept(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(w, r, "requestID")
	if !ok {
		return
	}
	id, err := h.resolver.AcceptFriendRequest(r.Context(), credential(r), requestID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, idResponse{ID: id})
}

// Reject handles POST /api/v1/friend-requests/{requestID}/reject
func (h *FriendRequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(w, r, "requestID")
	if !ok {
		return
	}
	id, err := h.resolver.RejectFriendRequest(r.Context(), credential(r), requestID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, idResponse{ID: id})
}
