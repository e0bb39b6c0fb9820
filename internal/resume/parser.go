// Package resume 实现简历上传、扫描、解析与入库的流水线。
package resume

import (
	"context"
	"log/slog"
	"strings"

	"portfolioSaaS/internal/config"
	"portfolioSaaS/internal/profile"
)

// FallbackConfidence 是内置兜底解析器给出的置信度。
const FallbackConfidence = 0.3

// ReviewThreshold 以下的置信度需要用户人工确认。
const ReviewThreshold = 0.5

// Parser 将简历原件提取为结构化的个人资料。
type Parser interface {
	Extract(ctx context.Context, content []byte, filename string) (profile.Data, float64, error)
}

// FallbackParser 在没有外部解析服务时返回固定示例资料。
type FallbackParser struct{}

func (FallbackParser) Extract(context.Context, []byte, string) (profile.Data, float64, error) {
	return profile.Example(), FallbackConfidence, nil
}

// NewParser 根据配置选择解析器：配置了外部服务则使用 RemoteParser，否则使用兜底实现。
func NewParser(cfg config.ResumeConfig, logger *slog.Logger) Parser {
	if strings.TrimSpace(cfg.ParserEndpoint) == "" {
		logger.Info("resume parser endpoint not configured, using fallback parser")
		return FallbackParser{}
	}
	return NewRemoteParser(cfg.ParserEndpoint, cfg.ParserAPIKey, cfg.ParserTimeout)
}

func clampConfidence(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
