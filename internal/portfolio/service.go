// Package portfolio 实现作品集的保存、发布与公开读取。
package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"portfolioSaaS/internal/database"
	"portfolioSaaS/internal/errcode"
	"portfolioSaaS/internal/profile"
	"portfolioSaaS/internal/quota"
	"portfolioSaaS/internal/sanitize"
	"portfolioSaaS/internal/slug"
	"portfolioSaaS/internal/subscription"
	"portfolioSaaS/internal/template"
)

// SubscriptionReader 读取用户订阅，不存在时返回 nil, nil。
type SubscriptionReader interface {
	Get(ctx context.Context, userID uint) (*subscription.Subscription, error)
}

// PreviewEnqueuer 在发布后投递预览渲染任务。
type PreviewEnqueuer interface {
	EnqueuePreview(ctx context.Context, portfolioID, userID uint) error
}

// SaveInput 是一次保存请求的内容。ID 为 nil 表示新建。
type SaveInput struct {
	ID         *uint
	Title      string
	Subdomain  string
	TemplateID string
	Data       profile.Data
	Config     profile.RenderConfig
}

// Portfolio 是对作品集所有者返回的视图。
type Portfolio struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	Subdomain   string          `json:"subdomain"`
	TemplateID  string          `json:"template_id"`
	Data        json.RawMessage `json:"data"`
	Config      json.RawMessage `json:"config"`
	State       State           `json:"state"`
	Published   bool            `json:"published"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
	PreviewKey  string          `json:"preview_key,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Owner       uint            `json:"-"`
	Outcome     SaveOutcome     `json:"-"`
}

// PublicPortfolio 是公开站点可见的字段。
type PublicPortfolio struct {
	Title      string          `json:"title"`
	Subdomain  string          `json:"subdomain"`
	TemplateID string          `json:"template_id"`
	Data       json.RawMessage `json:"data"`
	Config     json.RawMessage `json:"config"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// SaveOutcome 区分新建与更新，用于指标与响应码。
type SaveOutcome string

const (
	OutcomeCreated SaveOutcome = "created"
	OutcomeUpdated SaveOutcome = "updated"
)

// Option 配置 Service。
type Option func(*Service)

// WithPreviewEnqueuer 设置发布后的预览任务投递器。
func WithPreviewEnqueuer(e PreviewEnqueuer) Option {
	return func(s *Service) { s.previews = e }
}

// WithClock 替换时间来源。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger 设置日志记录器。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Service 编排作品集的保存流水线与发布状态机。
type Service struct {
	store     Store
	subs      SubscriptionReader
	templates template.Registry
	previews  PreviewEnqueuer
	logger    *slog.Logger
	now       func() time.Time
}

// NewService 构造 Service。
func NewService(store Store, subs SubscriptionReader, templates template.Registry, opts ...Option) *Service {
	s := &Service{
		store:     store,
		subs:      subs,
		templates: templates,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save 依次执行清洗、slug 解析、模板校验、配额判定与冲突检查，然后写入。
// 任何一次成功保存都会让作品集回到草稿状态。
func (s *Service) Save(ctx context.Context, userID uint, in SaveInput) (Portfolio, error) {
	data, err := sanitize.Struct(in.Data)
	if err != nil {
		return Portfolio{}, errcode.New(errcode.Validation, "invalid portfolio data")
	}
	data.Normalize()
	cfg := in.Config
	if cfg == nil {
		cfg = profile.RenderConfig{}
	}
	cfg, err = sanitize.Struct(cfg)
	if err != nil {
		return Portfolio{}, errcode.New(errcode.Validation, "invalid portfolio config")
	}

	subdomain := slug.Make(in.Subdomain)
	if !slug.Valid(subdomain) {
		return Portfolio{}, errcode.New(errcode.Validation, "subdomain must resolve to at least 3 url-safe characters")
	}
	if slug.Reserved(subdomain) {
		return Portfolio{}, errcode.New(errcode.Conflict, "subdomain already in use")
	}

	if !s.templates.Exists(in.TemplateID) {
		return Portfolio{}, errcode.New(errcode.NotFound, "template not found")
	}

	isNew := in.ID == nil
	existing, err := s.store.CountByOwner(ctx, userID)
	if err != nil {
		return Portfolio{}, errcode.Wrap(err, "failed to count portfolios")
	}
	sub, err := s.subs.Get(ctx, userID)
	if err != nil {
		return Portfolio{}, errcode.Wrap(err, "failed to load subscription")
	}
	if decision := quota.CanCreate(existing, sub, isNew); !decision.Allowed {
		return Portfolio{}, errcode.New(errcode.QuotaExceeded, decision.Reason)
	}

	holder, err := s.store.FindBySubdomain(ctx, subdomain)
	switch {
	case errors.Is(err, ErrNotFound):
		holder = nil
	case err != nil:
		return Portfolio{}, errcode.Wrap(err, "failed to check subdomain")
	}
	if holder != nil && (isNew || holder.ID != *in.ID) {
		return Portfolio{}, errcode.New(errcode.Conflict, "subdomain already in use")
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return Portfolio{}, errcode.Wrap(err, "failed to encode portfolio data")
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return Portfolio{}, errcode.Wrap(err, "failed to encode portfolio config")
	}

	row := database.Portfolio{
		UserID:     userID,
		Title:      sanitize.String(in.Title),
		Subdomain:  subdomain,
		TemplateID: in.TemplateID,
		Data:       datatypes.JSON(dataJSON),
		Config:     datatypes.JSON(cfgJSON),
	}

	if isNew {
		next, err := Next(StateDraft, EventSave)
		if err != nil {
			return Portfolio{}, errcode.Wrap(err, "invalid state transition")
		}
		row.Published = next == StatePublished
		if quota.NeedsFreeSlot(sub) {
			slot := userID
			row.FreeSlot = &slot
		}
		if err := s.store.Create(ctx, &row); err != nil {
			return Portfolio{}, s.classifyWriteError(ctx, err, userID, subdomain, row.FreeSlot != nil)
		}
		return toView(row, OutcomeCreated), nil
	}

	current, err := s.store.FindOwned(ctx, *in.ID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Portfolio{}, errcode.New(errcode.NotFound, "portfolio not found")
		}
		return Portfolio{}, errcode.Wrap(err, "failed to load portfolio")
	}
	next, err := Next(stateOf(current.Published), EventSave)
	if err != nil {
		return Portfolio{}, errcode.Wrap(err, "invalid state transition")
	}
	row.Published = next == StatePublished
	row.Model = current.Model
	row.PublishedAt = current.PublishedAt
	if err := s.store.Update(ctx, &row); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Portfolio{}, errcode.New(errcode.NotFound, "portfolio not found")
		}
		return Portfolio{}, s.classifyWriteError(ctx, err, userID, subdomain, false)
	}
	return toView(row, OutcomeUpdated), nil
}

// classifyWriteError 将并发写入撞上的唯一约束还原为业务错误。
func (s *Service) classifyWriteError(ctx context.Context, err error, userID uint, subdomain string, claimedFreeSlot bool) error {
	if !database.IsUniqueViolation(err) {
		return errcode.Wrap(err, "failed to save portfolio")
	}
	holder, lookupErr := s.store.FindBySubdomain(ctx, subdomain)
	if lookupErr == nil && holder != nil {
		return errcode.New(errcode.Conflict, "subdomain already in use")
	}
	if claimedFreeSlot {
		return errcode.New(errcode.QuotaExceeded, "free plan allows only one portfolio; upgrade to create more")
	}
	s.logger.WarnContext(ctx, "unclassified unique violation",
		slog.Uint64("user_id", uint64(userID)),
		slog.String("subdomain", subdomain),
		slog.String("error", err.Error()),
	)
	return errcode.New(errcode.Conflict, "portfolio conflicts with an existing record")
}

// Publish 将调用者拥有的作品集标记为已发布并记录发布时间。
// 不存在与不属于调用者一律返回 NotFound。
func (s *Service) Publish(ctx context.Context, userID, id uint) (Portfolio, error) {
	return s.transition(ctx, userID, id, EventPublish)
}

// Unpublish 将作品集撤回为草稿。
func (s *Service) Unpublish(ctx context.Context, userID, id uint) (Portfolio, error) {
	return s.transition(ctx, userID, id, EventUnpublish)
}

func (s *Service) transition(ctx context.Context, userID, id uint, ev Event) (Portfolio, error) {
	if id == 0 {
		return Portfolio{}, errcode.New(errcode.Validation, "portfolioId required")
	}
	current, err := s.store.FindOwned(ctx, id, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Portfolio{}, errcode.New(errcode.NotFound, "portfolio not found")
		}
		return Portfolio{}, errcode.Wrap(err, "failed to load portfolio")
	}

	next, err := Next(stateOf(current.Published), ev)
	if err != nil {
		return Portfolio{}, errcode.Wrap(err, "invalid state transition")
	}

	var stamp *time.Time
	if next == StatePublished {
		now := s.now().UTC()
		stamp = &now
	}
	updated, err := s.store.SetPublished(ctx, id, userID, next == StatePublished, stamp)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Portfolio{}, errcode.New(errcode.NotFound, "portfolio not found")
		}
		return Portfolio{}, errcode.Wrap(err, "failed to update portfolio")
	}

	if next == StatePublished && s.previews != nil {
		if err := s.previews.EnqueuePreview(ctx, updated.ID, userID); err != nil {
			s.logger.WarnContext(ctx, "enqueue preview failed",
				slog.Uint64("portfolio_id", uint64(updated.ID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return toView(*updated, ""), nil
}

// GetPublic 按子域名读取已发布的作品集；未发布与不存在同样返回 NotFound。
func (s *Service) GetPublic(ctx context.Context, subdomain string) (PublicPortfolio, error) {
	// 按保存时的规则规整，Ada 与 ada 指向同一站点。
	subdomain = slug.Make(subdomain)
	if !slug.Valid(subdomain) {
		return PublicPortfolio{}, errcode.New(errcode.NotFound, "portfolio not found")
	}
	p, err := s.store.FindBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return PublicPortfolio{}, errcode.New(errcode.NotFound, "portfolio not found")
		}
		return PublicPortfolio{}, errcode.Wrap(err, "failed to load portfolio")
	}
	if !p.Published {
		return PublicPortfolio{}, errcode.New(errcode.NotFound, "portfolio not found")
	}
	return PublicPortfolio{
		Title:      p.Title,
		Subdomain:  p.Subdomain,
		TemplateID: p.TemplateID,
		Data:       rawOrEmpty(p.Data),
		Config:     rawOrEmpty(p.Config),
		UpdatedAt:  p.UpdatedAt,
	}, nil
}

// ListMine 列出调用者的全部作品集。
func (s *Service) ListMine(ctx context.Context, userID uint) ([]Portfolio, error) {
	rows, err := s.store.ListByOwner(ctx, userID)
	if err != nil {
		return nil, errcode.Wrap(err, "failed to list portfolios")
	}
	out := make([]Portfolio, 0, len(rows))
	for _, row := range rows {
		out = append(out, toView(row, ""))
	}
	return out, nil
}

// GetMine 返回调用者拥有的单个作品集。
func (s *Service) GetMine(ctx context.Context, userID, id uint) (Portfolio, error) {
	row, err := s.store.FindOwned(ctx, id, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Portfolio{}, errcode.New(errcode.NotFound, "portfolio not found")
		}
		return Portfolio{}, errcode.Wrap(err, "failed to load portfolio")
	}
	return toView(*row, ""), nil
}

func toView(row database.Portfolio, outcome SaveOutcome) Portfolio {
	return Portfolio{
		ID:          row.ID,
		Title:       row.Title,
		Subdomain:   row.Subdomain,
		TemplateID:  row.TemplateID,
		Data:        rawOrEmpty(row.Data),
		Config:      rawOrEmpty(row.Config),
		State:       stateOf(row.Published),
		Published:   row.Published,
		PublishedAt: row.PublishedAt,
		PreviewKey:  row.PreviewObjectKey,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		Owner:       row.UserID,
		Outcome:     outcome,
	}
}

func rawOrEmpty(v datatypes.JSON) json.RawMessage {
	if len(v) == 0 {
		return json.RawMessage("{}")
	}
	return json.RawMessage(v)
}
