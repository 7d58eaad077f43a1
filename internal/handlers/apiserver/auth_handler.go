package apiserver

import (
	"net/http"

	"remix-go/internal/resolvers"
)

// AuthHandler 封装了注册、登录与登出。
type AuthHandler struct {
	resolver *resolvers.Resolver
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(resolver *resolvers.Resolver) *AuthHandler {
	return &AuthHandler{resolver: resolver}
}

// CreateUser 处理 POST /auth/users，成功时返回带 token 的用户。
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in resolvers.CreateUserInput
	if !decodeBody(w, r, &in) {
		return
	}
	user, err := h.resolver.CreateUser(r.Context(), in)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, user)
}

// LoginWithEmail 处理 POST /auth/login/email。
func (h *AuthHandler) LoginWithEmail(w http.ResponseWriter, r *http.Request) {
	var in resolvers.EmailLoginInput
	if !decodeBody(w, r, &in) {
		return
	}
	user, err := h.resolver.LoginUserWithEmail(r.Context(), in)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// LoginWithPhone 处理 POST /auth/login/phone。
func (h *AuthHandler) LoginWithPhone(w http.ResponseWriter, r *http.Request) {
	var in resolvers.PhoneLoginInput
	if !decodeBody(w, r, &in) {
		return
	}
	user, err := h.resolver.LoginUserWithPhone(r.Context(), in)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// Logout 把当前 Token 加入黑名单。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.resolver.Logout(r.Context(), credential(r)); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "登出成功"})
}
