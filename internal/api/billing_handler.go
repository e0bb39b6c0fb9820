package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolioSaaS/internal/api/middleware"
	"portfolioSaaS/internal/billing"
	"portfolioSaaS/internal/subscription"
)

// BillingHandler 负责套餐结账与订阅查询。
type BillingHandler struct {
	provider billing.Provider
	ledger   *subscription.Ledger
	webhooks *billing.WebhookProcessor
}

// NewBillingHandler 构造 BillingHandler。
func NewBillingHandler(provider billing.Provider, ledger *subscription.Ledger, webhooks *billing.WebhookProcessor) *BillingHandler {
	return &BillingHandler{provider: provider, ledger: ledger, webhooks: webhooks}
}

type checkoutRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// Checkout 为目标套餐创建支付会话并返回跳转地址。
func (h *BillingHandler) Checkout(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req checkoutRequest
	if err := bindJSON(c, &req); err != nil {
		WriteError(c, err)
		return
	}

	url, err := h.provider.CreateCheckout(c.Request.Context(), billing.CheckoutRequest{
		Plan:   req.Plan,
		Email:  userEmailFromContext(c),
		UserID: userID,
	})
	switch {
	case errors.Is(err, billing.ErrInvalidPlan):
		BadRequest(c, "Invalid plan")
		return
	case errors.Is(err, billing.ErrUnavailable):
		Internal(c, "Stripe is not configured")
		return
	case err != nil:
		middleware.LoggerFromContext(c).Error("create checkout session failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.Any("error", err),
		)
		Internal(c, "Failed to create checkout session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Subscription 返回调用者当前的套餐；没有订阅记录时按 FREE 展示。
func (h *BillingHandler) Subscription(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	sub, err := h.ledger.Get(c.Request.Context(), userID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("load subscription failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.Any("error", err),
		)
		Internal(c, "internal error")
		return
	}
	if sub == nil {
		c.JSON(http.StatusOK, gin.H{"plan": subscription.PlanFree, "status": subscription.StatusActive})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": sub.Plan, "status": sub.Status})
}

const maxWebhookBytes = 64 << 10

// Webhook 接收 Stripe 事件并同步订阅状态；签名错误返回 400，写库失败返回 500 以便重投。
func (h *BillingHandler) Webhook(c *gin.Context) {
	if h.webhooks == nil {
		Internal(c, "Stripe webhook is not configured")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		BadRequest(c, "Invalid payload")
		return
	}

	err = h.webhooks.Handle(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case errors.Is(err, billing.ErrInvalidSignature):
		BadRequest(c, "Invalid signature")
		return
	case errors.Is(err, billing.ErrUnavailable):
		Internal(c, "Stripe webhook is not configured")
		return
	case err != nil:
		middleware.LoggerFromContext(c).Error("process webhook failed", slog.Any("error", err))
		Internal(c, "Failed to process webhook")
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
