package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"portfolioSaaS/internal/api/middleware"
	"portfolioSaaS/internal/auth"
	"portfolioSaaS/internal/billing"
	"portfolioSaaS/internal/portfolio"
	"portfolioSaaS/internal/resume"
	"portfolioSaaS/internal/subscription"
	"portfolioSaaS/internal/template"
)

// Dependencies 汇总路由需要的服务实例，由 cmd/api 组装。
type Dependencies struct {
	DB          *gorm.DB
	Redis       redis.UniversalClient
	AuthService *auth.AuthService
	Ledger      *subscription.Ledger
	Portfolios  *portfolio.Service
	Resumes     *resume.Pipeline
	Billing     billing.Provider
	Webhooks    *billing.WebhookProcessor
	Templates   template.Registry
	Logger      *slog.Logger

	AuthLimits     AuthLimits
	CookieDomain   string
	MaxUploadBytes int64
	AllowedOrigins []string
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	authHandler := NewAuthHandler(deps.DB, deps.AuthService, deps.Ledger, deps.Redis, deps.Logger, deps.AuthLimits, deps.CookieDomain)
	portfolioHandler := NewPortfolioHandler(deps.Portfolios)
	resumeHandler := NewResumeHandler(deps.Resumes, deps.MaxUploadBytes)
	billingHandler := NewBillingHandler(deps.Billing, deps.Ledger, deps.Webhooks)
	templateHandler := NewTemplateHandler(deps.Templates)
	wsHandler := NewWsHandler(deps.Redis, deps.AuthService, deps.Logger, deps.AllowedOrigins)
	authMiddleware := middleware.AuthMiddleware(deps.AuthService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authHandler.Logout)
		}

		v1.GET("/templates", templateHandler.List)
		v1.GET("/templates/:id", templateHandler.Get)
		v1.GET("/public/portfolios/:subdomain", portfolioHandler.GetPublic)

		portfolioGroup := v1.Group("/portfolios")
		portfolioGroup.Use(authMiddleware)
		{
			portfolioGroup.GET("", portfolioHandler.ListMine)
			portfolioGroup.GET("/:id", portfolioHandler.GetMine)
			portfolioGroup.POST("/save", portfolioHandler.Save)
			portfolioGroup.POST("/publish", portfolioHandler.Publish)
			portfolioGroup.POST("/unpublish", portfolioHandler.Unpublish)
		}

		resumeGroup := v1.Group("")
		resumeGroup.Use(authMiddleware)
		{
			resumeGroup.POST("/upload/resume", resumeHandler.Upload)
			resumeGroup.GET("/resume/uploads/:id", resumeHandler.GetUpload)
		}

		v1.POST("/billing/webhook", billingHandler.Webhook)

		billingGroup := v1.Group("/billing")
		billingGroup.Use(authMiddleware)
		{
			billingGroup.POST("/checkout", billingHandler.Checkout)
			billingGroup.GET("/subscription", billingHandler.Subscription)
		}
	}
}
