package apiserver

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"remix-go/internal/apperrors"
	"remix-go/internal/config"
	"remix-go/internal/resolvers"
	"remix-go/internal/storage"
)

const (
	defaultMaxMemory = 32 << 20 // 32 MB default max memory for multipart forms
)

// UploadHandler 封装了文件上传。返回的 url 用于 image/file 类型消息的内容。
type UploadHandler struct {
	resolver *resolvers.Resolver
	store    storage.FileStore
	cfg      config.StorageConfig
	logger   *zap.Logger
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(resolver *resolvers.Resolver, store storage.FileStore, cfg config.StorageConfig, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		resolver: resolver,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

// UploadFile 处理 POST /api/v1/upload，表单字段名为 "file"。
func (h *UploadHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID, err := h.resolver.Authenticate(r.Context(), "upload", credential(r))
	if err != nil {
		writeAppError(w, err)
		return
	}

	maxUploadSize := h.cfg.MaxFileSizeMB << 20
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxMemory
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(defaultMaxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeAppError(w, apperrors.Validationf("上传文件过大，最大允许 %d MB", maxUploadSize>>20))
		} else {
			writeAppError(w, apperrors.Validationf("解析表单失败: %v", err))
		}
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			writeAppError(w, apperrors.Validation("请求中缺少 'file' 字段"))
		} else {
			writeAppError(w, apperrors.Validationf("获取文件失败: %v", err))
		}
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		writeAppError(w, apperrors.Validationf("上传文件过大，最大允许 %d MB", maxUploadSize>>20))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	info, err := h.store.UploadFile(r.Context(), file, header.Size, header.Filename, mimeType)
	if err != nil {
		h.logger.Error("存储文件失败", zap.Uint("userID", userID), zap.String("fileName", header.Filename), zap.Error(err))
		writeAppError(w, err)
		return
	}
	h.logger.Info("文件已上传",
		zap.Uint("userID", userID),
		zap.String("fileName", info.FileName),
		zap.Int64("size", info.Size),
		zap.String("mimeType", info.MimeType))

	writeJSONResponse(w, http.StatusCreated, info)
}
