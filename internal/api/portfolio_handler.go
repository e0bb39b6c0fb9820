package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"portfolioSaaS/internal/errcode"
	"portfolioSaaS/internal/metrics"
	"portfolioSaaS/internal/portfolio"
	"portfolioSaaS/internal/profile"
)

// PortfolioHandler 负责作品集的保存、发布与读取。
type PortfolioHandler struct {
	service *portfolio.Service
}

// NewPortfolioHandler 构造作品集处理器。
func NewPortfolioHandler(service *portfolio.Service) *PortfolioHandler {
	return &PortfolioHandler{service: service}
}

type savePortfolioRequest struct {
	PortfolioID *uint                `json:"portfolioId"`
	Title       string               `json:"title" binding:"required,min=2,max=255"`
	Subdomain   string               `json:"subdomain" binding:"required,min=3,max=255"`
	TemplateID  string               `json:"templateId" binding:"required"`
	Data        profile.Data         `json:"data"`
	Config      profile.RenderConfig `json:"config"`
}

type portfolioIDRequest struct {
	PortfolioID uint `json:"portfolioId"`
}

// Save 新建或更新作品集，结果始终为草稿。
func (h *PortfolioHandler) Save(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req savePortfolioRequest
	if err := bindJSON(c, &req); err != nil {
		metrics.ObserveSave(errcode.Validation.String())
		WriteError(c, err)
		return
	}
	if req.PortfolioID != nil && *req.PortfolioID == 0 {
		req.PortfolioID = nil
	}

	view, err := h.service.Save(c.Request.Context(), userID, portfolio.SaveInput{
		ID:         req.PortfolioID,
		Title:      req.Title,
		Subdomain:  req.Subdomain,
		TemplateID: req.TemplateID,
		Data:       req.Data,
		Config:     req.Config,
	})
	if err != nil {
		metrics.ObserveSave(errcode.KindOf(err).String())
		WriteError(c, err)
		return
	}
	metrics.ObserveSave(string(view.Outcome))

	status := http.StatusOK
	if view.Outcome == portfolio.OutcomeCreated {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"portfolio": view})
}

// Publish 将调用者自己的作品集发布上线。
func (h *PortfolioHandler) Publish(c *gin.Context) {
	h.transition(c, h.service.Publish)
}

// Unpublish 将作品集撤回为草稿。
func (h *PortfolioHandler) Unpublish(c *gin.Context) {
	h.transition(c, h.service.Unpublish)
}

func (h *PortfolioHandler) transition(c *gin.Context, apply func(context.Context, uint, uint) (portfolio.Portfolio, error)) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req portfolioIDRequest
	if err := bindJSON(c, &req); err != nil {
		WriteError(c, err)
		return
	}
	if req.PortfolioID == 0 {
		WriteError(c, errcode.New(errcode.Validation, "Missing portfolio id"))
		return
	}

	view, err := apply(c.Request.Context(), userID, req.PortfolioID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"portfolio": view})
}

// ListMine 列出调用者的全部作品集。
func (h *PortfolioHandler) ListMine(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	items, err := h.service.ListMine(c.Request.Context(), userID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"portfolios": items})
}

// GetMine 返回调用者拥有的单个作品集（含草稿）。
func (h *PortfolioHandler) GetMine(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		WriteError(c, err)
		return
	}

	view, err := h.service.GetMine(c.Request.Context(), userID, id)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"portfolio": view})
}

// GetPublic 按子域名读取已发布的作品集，无需登录。
func (h *PortfolioHandler) GetPublic(c *gin.Context) {
	view, err := h.service.GetPublic(c.Request.Context(), c.Param("subdomain"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"portfolio": view})
}

// parseIDParam 解析路径中的正整数 ID。
func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errcode.New(errcode.Validation, "Invalid id")
	}
	return uint(id), nil
}
