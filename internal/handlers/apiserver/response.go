package apiserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"remix-go/internal/apperrors"
)

// ErrorResponse 是 API 错误响应的通用结构体。
type ErrorResponse struct {
	Error *apperrors.Error `json:"error"`
}

// writeJSONResponse 是一个辅助函数，用于发送 JSON 响应。
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		// 头部已经写出，编码失败时无法再改状态码
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeAppError 按错误类别写出状态码和错误体。
// 管道已经把内部错误折叠为 Unknown，这里不再记录日志。
func writeAppError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Unknown()
	}
	writeJSONResponse(w, apperrors.HTTPStatus(appErr.Kind), ErrorResponse{Error: appErr})
}

// decodeBody 解析 JSON 请求体，失败时直接写出 400。
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeAppError(w, apperrors.Validation("请求体无效"))
		return false
	}
	return true
}

// pathID 读取路径参数中的正整数 ID，失败时直接写出 400。
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw, ok := mux.Vars(r)[name]
	if !ok {
		writeAppError(w, apperrors.Validationf("请求路径中缺少 %s", name))
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		writeAppError(w, apperrors.Validationf("无效的 %s: %s", name, raw))
		return 0, false
	}
	return uint(id), true
}

// credential 从 "Authorization: Bearer <token>" 中取出令牌，缺失时返回空串，
// 由认证策略决定如何拒绝。
func credential(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// emptyIfNil 让空列表编码为 [] 而不是 null。
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
