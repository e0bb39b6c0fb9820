package middleware

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"portfolioSaaS/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthService(t *testing.T) *auth.AuthService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	svc, err := auth.NewAuthService(privPEM, pubPEM, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	return svc
}

// logLines 解析 JSON handler 输出的每一行日志。
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestRequestLogLevelAndUser(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	svc := newAuthService(t)

	router := gin.New()
	router.Use(CorrelationIDMiddleware(), SlogLoggerMiddleware(logger))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	router.POST("/mine", AuthMiddleware(svc), func(c *gin.Context) {
		c.JSON(http.StatusConflict, gin.H{"error": "subdomain already in use"})
	})

	pair, err := svc.GenerateTokenPair(42, "ada@example.com")
	if err != nil {
		t.Fatalf("token pair: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/mine", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	router.ServeHTTP(httptest.NewRecorder(), req)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	lines := logLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines (health is quiet), got %d: %s", len(lines), buf.String())
	}

	conflict := lines[0]
	if conflict["level"] != "WARN" || conflict["route"] != "/mine" {
		t.Fatalf("conflict log = %v", conflict)
	}
	if conflict["user_id"] != float64(42) {
		t.Fatalf("user_id = %v, want 42", conflict["user_id"])
	}
	if id, _ := conflict["correlation_id"].(string); id == "" {
		t.Fatal("missing correlation_id")
	}

	if lines[1]["level"] != "ERROR" || lines[1]["user_id"] != nil {
		t.Fatalf("boom log = %v", lines[1])
	}
}

func TestLoggerFromContextFallsBackToDefault(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if LoggerFromContext(c) != slog.Default() {
		t.Fatal("expected default logger without middleware")
	}
}
