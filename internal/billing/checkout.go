// Package billing 对接支付服务创建订阅结账会话。
package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"portfolioSaaS/internal/config"
	"portfolioSaaS/internal/subscription"
)

var (
	// ErrUnavailable 表示支付服务未配置。
	ErrUnavailable = errors.New("payment provider is not configured")
	// ErrInvalidPlan 表示套餐未知或未配置价格。
	ErrInvalidPlan = errors.New("invalid plan")
)

const (
	metadataUserID = "user_id"
	metadataPlan   = "plan"
)

// CheckoutRequest 描述为哪个用户、哪个套餐创建结账会话。
type CheckoutRequest struct {
	Plan   string
	Email  string
	UserID uint
}

// Provider 是支付服务的最小能力集合。
type Provider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error)
}

type sessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeProvider 使用 Stripe Checkout 创建订阅会话。
type StripeProvider struct {
	sessions   sessionCreator
	prices     map[subscription.Plan]string
	successURL string
	cancelURL  string
}

// NewStripeProvider 根据配置构造 StripeProvider；未配置密钥时返回 ErrUnavailable。
func NewStripeProvider(cfg config.BillingConfig) (*StripeProvider, error) {
	key := strings.TrimSpace(cfg.StripeSecretKey)
	if key == "" {
		return nil, ErrUnavailable
	}
	sc := &client.API{}
	sc.Init(key, nil)
	return newStripeProvider(sc.CheckoutSessions, cfg), nil
}

func newStripeProvider(sessions sessionCreator, cfg config.BillingConfig) *StripeProvider {
	base := strings.TrimRight(strings.TrimSpace(cfg.AppBaseURL), "/")
	return &StripeProvider{
		sessions: sessions,
		prices: map[subscription.Plan]string{
			subscription.PlanFree:       strings.TrimSpace(cfg.PriceFree),
			subscription.PlanPro:        strings.TrimSpace(cfg.PricePro),
			subscription.PlanEnterprise: strings.TrimSpace(cfg.PriceEnterprise),
		},
		successURL: base + "/settings/billing?status=success",
		cancelURL:  base + "/settings/billing?status=cancelled",
	}
}

// CreateCheckout 创建订阅模式的结账会话并返回跳转地址。
func (p *StripeProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	if p == nil || p.sessions == nil {
		return "", ErrUnavailable
	}
	plan, err := subscription.ParsePlan(req.Plan)
	if err != nil {
		return "", ErrInvalidPlan
	}
	price := p.prices[plan]
	if price == "" {
		return "", ErrInvalidPlan
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail:     stripe.String(req.Email),
		ClientReferenceID: stripe.String(strconv.FormatUint(uint64(req.UserID), 10)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(price), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(p.successURL),
		CancelURL:  stripe.String(p.cancelURL),
	}
	params.Context = ctx
	userID := strconv.FormatUint(uint64(req.UserID), 10)
	params.AddMetadata(metadataUserID, userID)
	params.AddMetadata(metadataPlan, string(plan))
	// 订阅事件不携带 client_reference_id，用户与套餐写进订阅元数据供 webhook 回填。
	params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
		Metadata: map[string]string{
			metadataUserID: userID,
			metadataPlan:   string(plan),
		},
	}

	session, err := p.sessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	if session.URL == "" {
		return "", errors.New("checkout session has no redirect url")
	}
	return session.URL, nil
}

// Unavailable 是未配置支付服务时使用的 Provider。
type Unavailable struct{}

func (Unavailable) CreateCheckout(context.Context, CheckoutRequest) (string, error) {
	return "", ErrUnavailable
}
