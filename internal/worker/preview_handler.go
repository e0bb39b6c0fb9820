package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"portfolioSaaS/internal/database"
	"portfolioSaaS/internal/errcode"
	"portfolioSaaS/internal/portfolio"
	"portfolioSaaS/internal/storage"
	"portfolioSaaS/internal/tasks"
)

// 通知中预览图链接的有效期。
const previewURLTTL = 15 * time.Minute

// PreviewStore 是预览任务需要的作品集读写能力。
type PreviewStore interface {
	FindByID(ctx context.Context, id uint) (*database.Portfolio, error)
	SetPreview(ctx context.Context, id uint, key string) error
}

// PortfolioPreviewHandler 负责作品集发布后的预览图生成。
type PortfolioPreviewHandler struct {
	store           PreviewStore
	objects         storage.ObjectStore
	renderer        PageRenderer
	publisher       Publisher
	logger          *slog.Logger
	frontendBaseURL string
	isFinalAttempt  func(context.Context) bool
}

// NewPortfolioPreviewHandler 创建任务处理器。
func NewPortfolioPreviewHandler(
	store PreviewStore,
	objects storage.ObjectStore,
	renderer PageRenderer,
	publisher Publisher,
	logger *slog.Logger,
	frontendBaseURL string,
) *PortfolioPreviewHandler {
	return &PortfolioPreviewHandler{
		store:           store,
		objects:         objects,
		renderer:        renderer,
		publisher:       publisher,
		logger:          logger,
		frontendBaseURL: strings.TrimRight(strings.TrimSpace(frontendBaseURL), "/"),
		isFinalAttempt:  isFinalAsynqAttempt,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *PortfolioPreviewHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.PortfolioPreviewPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("portfolio_id", uint64(payload.PortfolioID)),
	)
	log.Info("Starting portfolio preview task...")

	row, err := h.store.FindByID(ctx, payload.PortfolioID)
	if err != nil {
		if errors.Is(err, portfolio.ErrNotFound) {
			log.Warn("portfolio not found, skipping task")
			return nil
		}
		log.Error("query portfolio failed", slog.Any("error", err))
		return err
	}
	if !row.Published {
		log.Info("portfolio no longer published, skipping task")
		return nil
	}

	log = log.With(slog.Uint64("user_id", uint64(row.UserID)))

	defer func() {
		if retErr == nil || !h.isFinalAttempt(ctx) {
			return
		}
		notify := PreviewNotifyMessage{
			Status:        "error",
			PortfolioID:   row.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := publishNotify(ctx, h.publisher, row.UserID, notify); err != nil {
			log.Error("publish preview error notification failed", slog.Any("error", err))
		}
	}()

	image, err := h.renderer.Screenshot(ctx, h.publicURL(row.Subdomain))
	if err != nil {
		log.Error("render portfolio page failed", slog.Any("error", err))
		return err
	}

	objectName := storage.PreviewObjectKey(row.ID)
	if _, err := h.objects.UploadFile(ctx, objectName, bytes.NewReader(image), int64(len(image)), "image/jpeg"); err != nil {
		log.Error("upload preview to minio failed", slog.Any("error", err))
		return err
	}

	if err := h.store.SetPreview(ctx, row.ID, objectName); err != nil {
		if errors.Is(err, portfolio.ErrNotFound) {
			log.Warn("portfolio removed during rendering, skipping update")
			notify := PreviewNotifyMessage{
				Status:        "skipped",
				PortfolioID:   row.ID,
				CorrelationID: payload.CorrelationID,
				ErrorCode:     errcode.ResourceMissing,
				ErrorMessage:  "portfolio no longer exists",
			}
			if err := publishNotify(ctx, h.publisher, row.UserID, notify); err != nil {
				log.Warn("publish redis notification failed", slog.Any("error", err))
			}
			return nil
		}
		log.Error("update preview key failed", slog.Any("error", err))
		return err
	}

	notify := PreviewNotifyMessage{
		Status:        "completed",
		PortfolioID:   row.ID,
		CorrelationID: payload.CorrelationID,
		PreviewKey:    objectName,
		ErrorCode:     errcode.OK,
	}
	if previewURL, err := h.objects.GeneratePresignedURL(ctx, objectName, previewURLTTL); err != nil {
		log.Warn("generate preview url failed", slog.Any("error", err))
	} else {
		notify.PreviewURL = previewURL
	}
	if err := publishNotify(ctx, h.publisher, row.UserID, notify); err != nil {
		// 预览已落库，通知失败不重试整个渲染。
		log.Warn("publish redis notification failed", slog.Any("error", err))
	}

	log.Info("Portfolio preview task completed.")
	return nil
}

// publicURL 返回前端公开页地址。
func (h *PortfolioPreviewHandler) publicURL(subdomain string) string {
	return h.frontendBaseURL + "/p/" + url.PathEscape(subdomain)
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
