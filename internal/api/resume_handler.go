package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolioSaaS/internal/errcode"
	"portfolioSaaS/internal/metrics"
	"portfolioSaaS/internal/resume"
)

// ResumeHandler 负责简历上传与解析结果查询。
type ResumeHandler struct {
	pipeline *resume.Pipeline
	maxBytes int64
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(pipeline *resume.Pipeline, maxBytes int64) *ResumeHandler {
	return &ResumeHandler{pipeline: pipeline, maxBytes: maxBytes}
}

// Upload 接收 multipart 的 file 字段并导入简历。
// 缺少文件时仍交给 pipeline，保证先计入限流再报 400。
func (h *ResumeHandler) Upload(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := h.readFile(c)
	if err != nil {
		metrics.ObserveResumeUpload(errcode.KindOf(err).String(), 0)
		WriteError(c, err)
		return
	}

	result, err := h.pipeline.Ingest(c.Request.Context(), userID, file)
	if err != nil {
		metrics.ObserveResumeUpload(errcode.KindOf(err).String(), 0)
		WriteError(c, err)
		return
	}
	metrics.ObserveResumeUpload("parsed", result.Confidence)

	c.JSON(http.StatusOK, result)
}

// readFile 读取表单中的文件；最多读取 maxBytes+1 字节，超限由 pipeline 判定。
func (h *ResumeHandler) readFile(c *gin.Context) (*resume.File, error) {
	header, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, errcode.New(errcode.Validation, "Invalid multipart payload")
	}

	reader, err := header.Open()
	if err != nil {
		return nil, errcode.Wrap(fmt.Errorf("open upload: %w", err), "failed to open file")
	}
	defer reader.Close()

	var src io.Reader = reader
	if h.maxBytes > 0 {
		src = io.LimitReader(reader, h.maxBytes+1)
	}
	content, err := io.ReadAll(src)
	if err != nil {
		return nil, errcode.Wrap(fmt.Errorf("read upload: %w", err), "failed to read file")
	}

	return &resume.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// GetUpload 返回调用者自己的一次上传解析结果。
func (h *ResumeHandler) GetUpload(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	upload, err := h.pipeline.Get(c.Request.Context(), userID, id)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}
