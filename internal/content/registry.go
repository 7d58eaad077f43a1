// Package content 校验消息内容。内容是按类型标签区分的 JSON 载荷：
// 已注册的类型按其结构体校验，未知类型作为不透明 JSON 原样保存。
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"

	"remix-go/internal/apperrors"
)

const (
	TypeText      = "text"
	TypeRemixText = "remix/text"
	TypeImage     = "image"
	TypeFile      = "file"
)

// TextBody 是文本消息的内容。
type TextBody struct {
	Text string `json:"text" validate:"required"`
}

// ImageBody 是图片消息的内容，URL 通常来自上传接口。
type ImageBody struct {
	URL      string `json:"url" validate:"required"`
	Width    int    `json:"width" validate:"gte=0"`
	Height   int    `json:"height" validate:"gte=0"`
	MimeType string `json:"mimeType,omitempty"`
}

// FileBody 是文件消息的内容。
type FileBody struct {
	URL      string `json:"url" validate:"required"`
	FileName string `json:"fileName" validate:"required"`
	Size     int64  `json:"size" validate:"gte=0"`
	MimeType string `json:"mimeType,omitempty"`
}

var (
	errEmptyType   = apperrors.Validation("内容类型不能为空")
	errInvalidJSON = apperrors.Validation("内容数据不是合法的 JSON")
)

// Registry 保存已知内容类型。
type Registry struct {
	mu       sync.RWMutex
	validate *validator.Validate
	kinds    map[string]func() any
}

// NewRegistry 创建注册了内置类型的 Registry。
func NewRegistry() *Registry {
	r := &Registry{
		validate: validator.New(),
		kinds:    make(map[string]func() any),
	}
	r.Register(TypeText, func() any { return &TextBody{} })
	r.Register(TypeRemixText, func() any { return &TextBody{} })
	r.Register(TypeImage, func() any { return &ImageBody{} })
	r.Register(TypeFile, func() any { return &FileBody{} })
	return r
}

// Register 注册一个内容类型，newBody 返回带 validate 标签的结构体指针。
func (r *Registry) Register(typ string, newBody func() any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[typ] = newBody
}

// Normalize 校验内容并返回压缩后的 JSON。
func (r *Registry) Normalize(typ string, data json.RawMessage) (json.RawMessage, error) {
	if typ == "" {
		return nil, errEmptyType
	}
	if len(bytes.TrimSpace(data)) == 0 || !json.Valid(data) {
		return nil, errInvalidJSON
	}

	r.mu.RLock()
	newBody, ok := r.kinds[typ]
	r.mu.RUnlock()

	if ok {
		body := newBody()
		if err := json.Unmarshal(data, body); err != nil {
			return nil, apperrors.Validationf("内容不符合类型 %s: %v", typ, err)
		}
		if err := r.validate.Struct(body); err != nil {
			return nil, describe(typ, err)
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, errInvalidJSON
	}
	return buf.Bytes(), nil
}

func describe(typ string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.Validationf("内容类型 %s 的字段 %s 校验失败 (%s)", typ, fe.Field(), fe.Tag())
	}
	return apperrors.Validationf("内容类型 %s 校验失败: %v", typ, err)
}
