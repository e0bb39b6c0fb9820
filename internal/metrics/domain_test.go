package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSaveCountsQuotaDenials(t *testing.T) {
	before := testutil.ToFloat64(quotaDeniedTotal)

	ObserveSave("created")
	ObserveSave("quota_exceeded")

	if got := testutil.ToFloat64(quotaDeniedTotal) - before; got != 1 {
		t.Fatalf("expected one quota denial, got %v", got)
	}
	if got := testutil.ToFloat64(portfolioSavesTotal.WithLabelValues("created")); got < 1 {
		t.Fatalf("expected created counter to increase, got %v", got)
	}
}

func TestObserveResumeUpload(t *testing.T) {
	before := testutil.ToFloat64(resumeUploadsTotal.WithLabelValues("rate_limited"))
	ObserveResumeUpload("rate_limited", 0)
	ObserveResumeUpload("parsed", 0.3)

	if got := testutil.ToFloat64(resumeUploadsTotal.WithLabelValues("rate_limited")) - before; got != 1 {
		t.Fatalf("expected one rate limited upload, got %v", got)
	}
	if n := testutil.CollectAndCount(resumeParseConfidence); n != 1 {
		t.Fatalf("expected histogram to be collected, got %d", n)
	}
}
