package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("db down"), KindUnknown},
		{"domain error", NotFound("用户未找到"), KindNotFound},
		{"wrapped domain error", fmt.Errorf("加载失败: %w", Conflict("重复")), KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorIs_MatchesSentinelThroughWrapping(t *testing.T) {
	sentinel := Authorization("不是群组成员")
	wrapped := fmt.Errorf("发送消息: %w", sentinel)

	assert.ErrorIs(t, wrapped, sentinel)
	assert.False(t, errors.Is(wrapped, Authorization("另一条文案")))
	assert.False(t, errors.Is(wrapped, NotFound("不是群组成员")))
}

func TestAs(t *testing.T) {
	appErr, ok := As(fmt.Errorf("x: %w", Validationf("字段 %s 不能为空", "name")))
	require.True(t, ok)
	assert.Equal(t, KindValidation, appErr.Kind)
	assert.Equal(t, "字段 name 不能为空", appErr.Message)

	_, ok = As(errors.New("boom"))
	assert.False(t, ok)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(KindAuthentication))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(KindAuthorization))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(KindNotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatus(KindConflict))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindValidation))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindUnknown))
}

func TestUnknown(t *testing.T) {
	err := Unknown()
	assert.Equal(t, KindUnknown, err.Kind)
	assert.Equal(t, UnknownMessage, err.Error())
}
