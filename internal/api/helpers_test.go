package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"portfolioSaaS/internal/auth"
	"portfolioSaaS/internal/billing"
	"portfolioSaaS/internal/database"
	"portfolioSaaS/internal/portfolio"
	"portfolioSaaS/internal/ratelimit"
	"portfolioSaaS/internal/resume"
	"portfolioSaaS/internal/subscription"
	"portfolioSaaS/internal/template"
)

const testWebhookSecret = "whsec_api_test"

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	keyOnce sync.Once
	privPEM []byte
	pubPEM  []byte
)

func testKeys(t *testing.T) ([]byte, []byte) {
	t.Helper()
	keyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		privPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
		pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			panic(err)
		}
		pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	})
	return privPEM, pubPEM
}

type fakeQueue struct {
	mu    sync.Mutex
	calls []uint
}

func (q *fakeQueue) EnqueuePreview(_ context.Context, portfolioID, _ uint) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = append(q.calls, portfolioID)
	return nil
}

type fakeBilling struct {
	requests []billing.CheckoutRequest
	url      string
	err      error
}

func (b *fakeBilling) CreateCheckout(_ context.Context, req billing.CheckoutRequest) (string, error) {
	b.requests = append(b.requests, req)
	if b.err != nil {
		return "", b.err
	}
	return b.url, nil
}

type envConfig struct {
	resumeLimits resume.Limits
	authLimits   AuthLimits
	billing      billing.Provider
}

type envOption func(*envConfig)

func withResumeLimits(l resume.Limits) envOption {
	return func(c *envConfig) { c.resumeLimits = l }
}

func withAuthLimits(l AuthLimits) envOption {
	return func(c *envConfig) { c.authLimits = l }
}

func withBilling(p billing.Provider) envOption {
	return func(c *envConfig) { c.billing = p }
}

type testEnv struct {
	t       *testing.T
	db      *gorm.DB
	mr      *miniredis.Miniredis
	auth    *auth.AuthService
	queue   *fakeQueue
	billing *fakeBilling
	router  *gin.Engine
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite("file:api_" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	priv, pub := testKeys(t)
	authService, err := auth.NewAuthService(priv, pub, 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	fb := &fakeBilling{url: "https://checkout.example.test/session"}
	cfg := envConfig{
		resumeLimits: resume.Limits{PerWindow: 30, Window: time.Minute, MaxBytes: 1 << 20},
		authLimits:   AuthLimits{LoginPerHour: 100, LockThreshold: 5, LockTTL: 15 * time.Minute},
		billing:      fb,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := subscription.NewLedger(db)
	queue := &fakeQueue{}
	templates := template.NewStatic()
	portfolios := portfolio.NewService(portfolio.NewGormStore(db), ledger, templates,
		portfolio.WithPreviewEnqueuer(queue),
		portfolio.WithLogger(logger),
	)
	pipeline := resume.NewPipeline(db, ratelimit.NewMemoryLimiter(), resume.FallbackParser{}, cfg.resumeLimits, logger)

	router := NewRouter(logger)
	RegisterRoutes(router, Dependencies{
		DB:             db,
		Redis:          redisClient,
		AuthService:    authService,
		Ledger:         ledger,
		Portfolios:     portfolios,
		Resumes:        pipeline,
		Billing:        cfg.billing,
		Webhooks:       billing.NewWebhookProcessor(testWebhookSecret, ledger, logger),
		Templates:      templates,
		Logger:         logger,
		AuthLimits:     cfg.authLimits,
		MaxUploadBytes: cfg.resumeLimits.MaxBytes,
	})

	return &testEnv{
		t:       t,
		db:      db,
		mr:      mr,
		auth:    authService,
		queue:   queue,
		billing: fb,
		router:  router,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(req)
}

// signup 通过注册接口创建用户，并签发访问令牌。
func (e *testEnv) signup(email string) (uint, string) {
	e.t.Helper()
	rec := e.doJSON(http.MethodPost, "/v1/auth/register", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": "secret123",
	}, "")
	if rec.Code != http.StatusCreated {
		e.t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	var resp struct {
		User userResponse `json:"user"`
	}
	decodeBody(e.t, rec, &resp)

	pair, err := e.auth.GenerateTokenPair(resp.User.ID, resp.User.Email)
	if err != nil {
		e.t.Fatalf("token pair: %v", err)
	}
	return resp.User.ID, pair.AccessToken
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, rec, &body)
	return body.Code
}
