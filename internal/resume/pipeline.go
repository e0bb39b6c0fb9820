package resume

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"portfolioSaaS/internal/database"
	"portfolioSaaS/internal/errcode"
	"portfolioSaaS/internal/profile"
	"portfolioSaaS/internal/ratelimit"
	"portfolioSaaS/internal/storage"
)

// StatusParsed 是成功解析后的上传状态。
const StatusParsed = "PARSED"

// File 是一次上传的原始文件。
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// Result 是一次成功导入的结果。
type Result struct {
	UploadID    uint         `json:"uploadId"`
	Data        profile.Data `json:"data"`
	Confidence  float64      `json:"confidence"`
	NeedsReview bool         `json:"needsReview"`
}

// Upload 是已入库的上传记录视图。
type Upload struct {
	ID         uint            `json:"id"`
	Filename   string          `json:"filename"`
	Status     string          `json:"status"`
	Confidence float64         `json:"confidence"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Limits 描述限流与大小约束。
type Limits struct {
	PerWindow int
	Window    time.Duration
	MaxBytes  int64
}

// Pipeline 编排简历导入：限流、校验、扫描、归档、解析、入库。
type Pipeline struct {
	db      *gorm.DB
	limiter ratelimit.Limiter
	parser  Parser
	scanner Scanner
	objects storage.ObjectStore
	limits  Limits
	logger  *slog.Logger
	now     func() time.Time
}

// PipelineOption 配置 Pipeline 的可选依赖。
type PipelineOption func(*Pipeline)

// WithScanner 启用上传前的病毒扫描。
func WithScanner(s Scanner) PipelineOption {
	return func(p *Pipeline) { p.scanner = s }
}

// WithObjectStore 启用原件归档。
func WithObjectStore(s storage.ObjectStore) PipelineOption {
	return func(p *Pipeline) { p.objects = s }
}

// WithPipelineClock 替换时间来源。
func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline 构造 Pipeline。
func NewPipeline(db *gorm.DB, limiter ratelimit.Limiter, parser Parser, limits Limits, logger *slog.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		db:      db,
		limiter: limiter,
		parser:  parser,
		limits:  limits,
		logger:  logger,
		now:     time.Now,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RateLimitKey 返回用户的简历上传限流键。
func RateLimitKey(userID uint) string {
	return "resume:" + strconv.FormatUint(uint64(userID), 10)
}

// Ingest 导入一份简历。file 为 nil 表示请求中没有附件。
func (p *Pipeline) Ingest(ctx context.Context, userID uint, file *File) (Result, error) {
	limit, err := p.limiter.Allow(ctx, RateLimitKey(userID), p.limits.PerWindow, p.limits.Window, p.now())
	if err != nil {
		return Result{}, errcode.Wrap(err, "failed to check rate limit")
	}
	if !limit.Allowed {
		return Result{}, errcode.Limited("Too many uploads, please try again shortly.", limit.RetryAfter)
	}

	// 零字节附件不含可解析内容，按缺失处理。
	if file == nil || len(file.Content) == 0 {
		return Result{}, errcode.New(errcode.Validation, "File required")
	}
	if p.limits.MaxBytes > 0 && int64(len(file.Content)) > p.limits.MaxBytes {
		return Result{}, errcode.New(errcode.Validation, fmt.Sprintf("file exceeds %d bytes", p.limits.MaxBytes))
	}
	name := file.Name
	if name == "" {
		name = "resume"
	}

	if p.scanner != nil {
		if err := p.scanner.Scan(ctx, file.Content); err != nil {
			if errors.Is(err, ErrInfected) {
				return Result{}, errcode.New(errcode.Validation, "malicious file detected")
			}
			return Result{}, errcode.Wrap(err, "failed to scan file")
		}
	}

	var objectKey string
	if p.objects != nil {
		objectKey = storage.ResumeObjectKey(userID, name)
		contentType := file.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(file.Content)
		}
		if _, err := p.objects.UploadFile(ctx, objectKey, bytes.NewReader(file.Content), int64(len(file.Content)), contentType); err != nil {
			return Result{}, errcode.Wrap(err, "failed to store file")
		}
	}

	data, confidence, err := p.parser.Extract(ctx, file.Content, name)
	if err != nil {
		p.discard(ctx, objectKey)
		return Result{}, errcode.Wrap(err, "failed to parse resume")
	}
	data.Normalize()
	confidence = clampConfidence(confidence)

	encoded, err := json.Marshal(data)
	if err != nil {
		p.discard(ctx, objectKey)
		return Result{}, errcode.Wrap(err, "failed to encode parsed resume")
	}

	upload := database.ResumeUpload{
		UserID:     userID,
		Filename:   name,
		FileKey:    objectKey,
		ParsedData: datatypes.JSON(encoded),
		Confidence: confidence,
		Status:     StatusParsed,
	}
	if err := p.db.WithContext(ctx).Create(&upload).Error; err != nil {
		p.discard(ctx, objectKey)
		return Result{}, errcode.Wrap(err, "failed to record upload")
	}

	return Result{
		UploadID:    upload.ID,
		Data:        data,
		Confidence:  confidence,
		NeedsReview: confidence < ReviewThreshold,
	}, nil
}

// Get 返回调用者自己的上传记录。
func (p *Pipeline) Get(ctx context.Context, userID, id uint) (Upload, error) {
	var row database.ResumeUpload
	err := p.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Upload{}, errcode.New(errcode.NotFound, "upload not found")
	case err != nil:
		return Upload{}, errcode.Wrap(err, "failed to load upload")
	}
	return Upload{
		ID:         row.ID,
		Filename:   row.Filename,
		Status:     row.Status,
		Confidence: row.Confidence,
		Data:       json.RawMessage(row.ParsedData),
		CreatedAt:  row.CreatedAt,
	}, nil
}

func (p *Pipeline) discard(ctx context.Context, objectKey string) {
	if objectKey == "" || p.objects == nil {
		return
	}
	if err := p.objects.DeleteObject(ctx, objectKey); err != nil {
		p.logger.WarnContext(ctx, "discard resume object failed",
			slog.String("object_key", objectKey),
			slog.String("error", err.Error()),
		)
	}
}
