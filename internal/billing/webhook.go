package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"portfolioSaaS/internal/subscription"
)

// ErrInvalidSignature 表示 webhook 签名校验失败。
var ErrInvalidSignature = errors.New("invalid webhook signature")

// PlanWriter 是 webhook 回写套餐所需的账本能力。
type PlanWriter interface {
	SetPlan(ctx context.Context, userID uint, plan subscription.Plan, status subscription.Status) (subscription.Subscription, error)
}

// WebhookProcessor 校验 Stripe 事件签名，并把订阅变化写回账本。
type WebhookProcessor struct {
	secret string
	ledger PlanWriter
	logger *slog.Logger
}

// NewWebhookProcessor 构造 WebhookProcessor；secret 为空时所有事件都会被拒绝。
func NewWebhookProcessor(secret string, ledger PlanWriter, logger *slog.Logger) *WebhookProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookProcessor{secret: strings.TrimSpace(secret), ledger: ledger, logger: logger}
}

// Handle 处理一次 webhook 投递。无法识别或缺少元数据的事件被忽略，
// 只有签名错误与账本写入失败会返回错误。
func (w *WebhookProcessor) Handle(ctx context.Context, payload []byte, signature string) error {
	if w.secret == "" {
		return ErrUnavailable
	}
	// 只校验签名与时间戳，不要求事件 API 版本与客户端一致。
	event, err := webhook.ConstructEventWithOptions(payload, signature, w.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if event.APIVersion != "" && event.APIVersion != stripe.APIVersion {
		w.logger.Debug("webhook api version differs from client",
			slog.String("event_api_version", event.APIVersion),
			slog.String("client_api_version", stripe.APIVersion),
		)
	}

	log := w.logger.With(slog.String("event_id", event.ID), slog.String("event_type", string(event.Type)))

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		ref := session.ClientReferenceID
		if ref == "" {
			ref = session.Metadata[metadataUserID]
		}
		userID, plan, ok := parseTarget(ref, session.Metadata[metadataPlan])
		if !ok {
			log.Warn("checkout session without usable reference")
			return nil
		}
		return w.apply(ctx, log, userID, plan, subscription.StatusActive)

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		userID, plan, ok := parseTarget(sub.Metadata[metadataUserID], sub.Metadata[metadataPlan])
		if !ok {
			log.Warn("subscription without usable metadata")
			return nil
		}
		status := statusOf(sub.Status)
		if event.Type == "customer.subscription.deleted" {
			plan, status = subscription.PlanFree, subscription.StatusCanceled
		}
		return w.apply(ctx, log, userID, plan, status)
	}

	log.Debug("webhook event ignored")
	return nil
}

func (w *WebhookProcessor) apply(ctx context.Context, log *slog.Logger, userID uint, plan subscription.Plan, status subscription.Status) error {
	if _, err := w.ledger.SetPlan(ctx, userID, plan, status); err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	log.Info("subscription updated from webhook",
		slog.Uint64("user_id", uint64(userID)),
		slog.String("plan", string(plan)),
		slog.String("status", string(status)),
	)
	return nil
}

func parseTarget(rawUserID, rawPlan string) (uint, subscription.Plan, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(rawUserID), 10, 64)
	if err != nil || id == 0 {
		return 0, "", false
	}
	plan, err := subscription.ParsePlan(rawPlan)
	if err != nil {
		return 0, "", false
	}
	return uint(id), plan, true
}

// statusOf 将 Stripe 订阅状态折叠为账本状态。
func statusOf(s stripe.SubscriptionStatus) subscription.Status {
	switch s {
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncomplete:
		return subscription.StatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return subscription.StatusCanceled
	default:
		return subscription.StatusActive
	}
}
