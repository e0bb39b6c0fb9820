package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolioSaaS/internal/template"
)

// TemplateHandler 负责模板目录的 API。
type TemplateHandler struct {
	registry template.Registry
}

func NewTemplateHandler(registry template.Registry) *TemplateHandler {
	return &TemplateHandler{registry: registry}
}

// GET /v1/templates
// 列出全部可用模板及其分区信息。
func (h *TemplateHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": h.registry.List()})
}

// GET /v1/templates/:id
func (h *TemplateHandler) Get(c *gin.Context) {
	tpl, ok := h.registry.Get(c.Param("id"))
	if !ok {
		NotFound(c, "template not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": tpl})
}
