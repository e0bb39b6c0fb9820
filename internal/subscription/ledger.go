package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"portfolioSaaS/internal/database"
)

// Plan 表示套餐档位。
type Plan string

const (
	PlanFree       Plan = "FREE"
	PlanPro        Plan = "PRO"
	PlanEnterprise Plan = "ENTERPRISE"
)

// Status 表示订阅状态。
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusCanceled Status = "CANCELED"
	StatusPastDue  Status = "PAST_DUE"
)

// ErrUnknownPlan 表示无法识别的套餐名称。
var ErrUnknownPlan = errors.New("unknown plan")

// ParsePlan 解析套餐名称（大小写不敏感）。
func ParsePlan(s string) (Plan, error) {
	switch p := Plan(strings.ToUpper(strings.TrimSpace(s))); p {
	case PlanFree, PlanPro, PlanEnterprise:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, s)
	}
}

// ParseStatus 解析订阅状态（大小写不敏感）。
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusActive, StatusCanceled, StatusPastDue:
		return st, nil
	default:
		return "", fmt.Errorf("unknown subscription status %q", s)
	}
}

// Subscription 是账本对外暴露的订阅视图。
type Subscription struct {
	UserID uint   `json:"user_id"`
	Plan   Plan   `json:"plan"`
	Status Status `json:"status"`
}

// Ledger 记录每个用户的套餐与状态。
type Ledger struct {
	db *gorm.DB
}

// NewLedger 构造 Ledger。
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Provision 为新用户开通默认的 FREE/ACTIVE 订阅。
// tx 必须是创建用户的同一事务，保证用户与订阅同时落库。
func (l *Ledger) Provision(ctx context.Context, tx *gorm.DB, userID uint) (Subscription, error) {
	row := database.Subscription{
		UserID: userID,
		Plan:   string(PlanFree),
		Status: string(StatusActive),
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return Subscription{}, fmt.Errorf("provision subscription: %w", err)
	}
	return fromRow(row), nil
}

// Get 返回用户订阅；不存在时返回 nil, nil。
func (l *Ledger) Get(ctx context.Context, userID uint) (*Subscription, error) {
	var row database.Subscription
	err := l.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("query subscription: %w", err)
	}
	sub := fromRow(row)
	return &sub, nil
}

// SetPlan 写入支付服务回传的套餐变更（不存在则创建）。
func (l *Ledger) SetPlan(ctx context.Context, userID uint, plan Plan, status Status) (Subscription, error) {
	row := database.Subscription{
		UserID: userID,
		Plan:   string(plan),
		Status: string(status),
	}
	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan", "status", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return Subscription{}, fmt.Errorf("set plan: %w", err)
	}
	return Subscription{UserID: userID, Plan: plan, Status: status}, nil
}

func fromRow(row database.Subscription) Subscription {
	return Subscription{
		UserID: row.UserID,
		Plan:   Plan(row.Plan),
		Status: Status(row.Status),
	}
}
