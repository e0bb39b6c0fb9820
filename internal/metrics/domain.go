package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	portfolioSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portfolio",
			Name:      "portfolio_saves_total",
			Help:      "作品集保存结果计数。",
		},
		[]string{"outcome"},
	)

	quotaDeniedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "portfolio",
			Name:      "quota_denied_total",
			Help:      "因套餐配额被拒绝的新建请求数。",
		},
	)

	resumeUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portfolio",
			Name:      "resume_uploads_total",
			Help:      "简历上传结果计数。",
		},
		[]string{"outcome"},
	)

	resumeParseConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "portfolio",
			Name:      "resume_parse_confidence",
			Help:      "简历解析置信度分布。",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)
)

// ObserveSave 记录一次作品集保存的结果（created/updated 或错误类型）。
func ObserveSave(outcome string) {
	portfolioSavesTotal.WithLabelValues(outcome).Inc()
	if outcome == "quota_exceeded" {
		quotaDeniedTotal.Inc()
	}
}

// ObserveResumeUpload 记录一次简历上传；仅成功时记录置信度。
func ObserveResumeUpload(outcome string, confidence float64) {
	resumeUploadsTotal.WithLabelValues(outcome).Inc()
	if outcome == "parsed" {
		resumeParseConfidence.Observe(confidence)
	}
}
