package storage

import (
	"errors"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestResumeObjectKey(t *testing.T) {
	key := ResumeObjectKey(42, `C:\Users\me\CV.PDF`)
	if !strings.HasPrefix(key, "resume-uploads/42/") || !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("unexpected key %q", key)
	}
	if ResumeObjectKey(42, "cv.pdf") == ResumeObjectKey(42, "cv.pdf") {
		t.Fatal("keys must be unique per upload")
	}
	if key := ResumeObjectKey(1, "noext"); strings.Contains(key[len("resume-uploads/1/"):], ".") {
		t.Fatalf("unexpected extension in %q", key)
	}
}

func TestPreviewObjectKey(t *testing.T) {
	if got := PreviewObjectKey(7); got != "thumbnails/portfolio/7/preview.jpg" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestIsNoSuchKey(t *testing.T) {
	if IsNoSuchKey(nil) {
		t.Fatal("nil is not a missing key")
	}
	if !IsNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}) {
		t.Fatal("minio NoSuchKey should match")
	}
	if !IsNoSuchKey(errors.New("The specified key does not exist.")) {
		t.Fatal("string fallback should match")
	}
	if IsNoSuchKey(errors.New("access denied")) {
		t.Fatal("unrelated error should not match")
	}
}

func TestPutOptionsByPrefix(t *testing.T) {
	preview := putOptions(PreviewObjectKey(3), "image/jpeg")
	if preview.ContentType != "image/jpeg" || preview.CacheControl != "public, max-age=300" || preview.ContentDisposition != "" {
		t.Fatalf("preview options = %+v", preview)
	}

	original := putOptions(ResumeObjectKey(3, "cv.pdf"), "application/pdf")
	if original.ContentDisposition != "attachment" || original.CacheControl != "private, no-store" {
		t.Fatalf("resume options = %+v", original)
	}

	other := putOptions("misc/file.bin", "application/octet-stream")
	if other.CacheControl != "" || other.ContentDisposition != "" {
		t.Fatalf("other options = %+v", other)
	}
}

func TestEndpointParsing(t *testing.T) {
	if _, err := parseBucketLookup("sideways"); err == nil {
		t.Fatal("expected invalid lookup error")
	}
	if got, err := parseBucketLookup(" PATH "); err != nil || got != minio.BucketLookupPath {
		t.Fatalf("lookup = %v, %v", got, err)
	}

	host, secure, err := splitPublicEndpoint("https://cdn.example.test:9443")
	if err != nil || host != "cdn.example.test:9443" || !secure {
		t.Fatalf("split = %q %v %v", host, secure, err)
	}
	if _, _, err := splitPublicEndpoint("localhost:9000"); err == nil {
		t.Fatal("expected error for endpoint without scheme")
	}
}
