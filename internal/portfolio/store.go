package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"portfolioSaaS/internal/database"
)

// ErrNotFound 表示记录不存在（或不属于调用者）。
var ErrNotFound = errors.New("portfolio not found")

// Store 是作品集的持久化接口。
type Store interface {
	CountByOwner(ctx context.Context, ownerID uint) (int64, error)
	FindByID(ctx context.Context, id uint) (*database.Portfolio, error)
	FindOwned(ctx context.Context, id, ownerID uint) (*database.Portfolio, error)
	FindBySubdomain(ctx context.Context, subdomain string) (*database.Portfolio, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]database.Portfolio, error)
	Create(ctx context.Context, p *database.Portfolio) error
	Update(ctx context.Context, p *database.Portfolio) error
	SetPublished(ctx context.Context, id, ownerID uint, published bool, at *time.Time) (*database.Portfolio, error)
	SetPreview(ctx context.Context, id uint, key string) error
}

// GormStore 基于 GORM 实现 Store。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 构造 GormStore。
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CountByOwner(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&database.Portfolio{}).
		Where("user_id = ?", ownerID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count portfolios: %w", err)
	}
	return count, nil
}

func (s *GormStore) FindByID(ctx context.Context, id uint) (*database.Portfolio, error) {
	var p database.Portfolio
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// FindOwned 同时按 id 与 owner 查询，不区分“不存在”和“不属于你”。
func (s *GormStore) FindOwned(ctx context.Context, id, ownerID uint) (*database.Portfolio, error) {
	var p database.Portfolio
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *GormStore) FindBySubdomain(ctx context.Context, subdomain string) (*database.Portfolio, error) {
	var p database.Portfolio
	if err := s.db.WithContext(ctx).
		Where("subdomain = ?", subdomain).
		First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *GormStore) ListByOwner(ctx context.Context, ownerID uint) ([]database.Portfolio, error) {
	var items []database.Portfolio
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	return items, nil
}

func (s *GormStore) Create(ctx context.Context, p *database.Portfolio) error {
	return s.db.WithContext(ctx).Create(p).Error
}

// Update 覆盖可编辑字段并回到草稿状态。
func (s *GormStore) Update(ctx context.Context, p *database.Portfolio) error {
	updates := map[string]any{
		"title":       p.Title,
		"subdomain":   p.Subdomain,
		"template_id": p.TemplateID,
		"data":        p.Data,
		"config":      p.Config,
		"published":   p.Published,
	}
	res := s.db.WithContext(ctx).
		Model(&database.Portfolio{}).
		Where("id = ? AND user_id = ?", p.ID, p.UserID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return s.db.WithContext(ctx).First(p, p.ID).Error
}

func (s *GormStore) SetPublished(ctx context.Context, id, ownerID uint, published bool, at *time.Time) (*database.Portfolio, error) {
	updates := map[string]any{"published": published}
	if at != nil {
		updates["published_at"] = *at
	}
	res := s.db.WithContext(ctx).
		Model(&database.Portfolio{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update publish state: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.FindOwned(ctx, id, ownerID)
}

func (s *GormStore) SetPreview(ctx context.Context, id uint, key string) error {
	res := s.db.WithContext(ctx).
		Model(&database.Portfolio{}).
		Where("id = ?", id).
		Update("preview_object_key", key)
	if res.Error != nil {
		return fmt.Errorf("update preview key: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
