package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypePortfolioPreview = "portfolio:preview"
)

// PreviewMaxRetry 是预览任务的最大重试次数。
const PreviewMaxRetry = 5

// PortfolioPreviewPayload 描述生成作品集预览图所需的最小信息。
type PortfolioPreviewPayload struct {
	PortfolioID   uint   `json:"portfolio_id"`
	UserID        uint   `json:"user_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewPortfolioPreviewTask 构造一个新的作品集预览任务。
func NewPortfolioPreviewTask(portfolioID, userID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PortfolioPreviewPayload{
		PortfolioID:   portfolioID,
		UserID:        userID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePortfolioPreview, payload), nil
}

// NotifyChannel 返回用户通知所用的 Redis Pub/Sub 频道名。
func NotifyChannel(userID uint) string {
	return "user_notify:" + strconv.FormatUint(uint64(userID), 10)
}

type correlationKey struct{}

// WithCorrelationID 将 Correlation ID 写入 context，供入队时带入任务载荷。
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFrom 读取 context 中的 Correlation ID。
func CorrelationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer 将领域事件转换为 asynq 任务。
type Enqueuer struct {
	client taskEnqueuer
}

// NewEnqueuer 构造 Enqueuer，client 通常是 *asynq.Client。
func NewEnqueuer(client taskEnqueuer) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueuePreview 为已发布的作品集投递预览渲染任务。
func (e *Enqueuer) EnqueuePreview(ctx context.Context, portfolioID, userID uint) error {
	task, err := NewPortfolioPreviewTask(portfolioID, userID, CorrelationIDFrom(ctx))
	if err != nil {
		return fmt.Errorf("build preview task: %w", err)
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.MaxRetry(PreviewMaxRetry)); err != nil {
		return fmt.Errorf("enqueue preview task: %w", err)
	}
	return nil
}
