package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"portfolioSaaS/internal/database"
	"portfolioSaaS/internal/errcode"
	"portfolioSaaS/internal/portfolio"
	"portfolioSaaS/internal/storage"
	"portfolioSaaS/internal/tasks"
)

type fakeRenderer struct {
	urls []string
	err  error
}

func (r *fakeRenderer) Screenshot(_ context.Context, targetURL string) ([]byte, error) {
	r.urls = append(r.urls, targetURL)
	if r.err != nil {
		return nil, r.err
	}
	return []byte("jpeg-bytes"), nil
}

type fakeObjects struct {
	uploads map[string]string
}

func (o *fakeObjects) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, contentType string) (*minio.UploadInfo, error) {
	if _, err := io.ReadAll(reader); err != nil {
		return nil, err
	}
	o.uploads[objectName] = contentType
	return &minio.UploadInfo{Key: objectName}, nil
}

func (o *fakeObjects) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://objects.example.test/" + objectKey, nil
}

func (o *fakeObjects) DeleteObject(context.Context, string) error { return nil }

type previewEnv struct {
	db       *gorm.DB
	renderer *fakeRenderer
	objects  *fakeObjects
	redis    *redis.Client
	handler  *PortfolioPreviewHandler
}

func newPreviewEnv(t *testing.T) *previewEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite("file:worker_" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := &previewEnv{
		db:       db,
		renderer: &fakeRenderer{},
		objects:  &fakeObjects{uploads: map[string]string{}},
		redis:    client,
	}
	env.handler = NewPortfolioPreviewHandler(
		portfolio.NewGormStore(db),
		env.objects,
		env.renderer,
		client,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		"http://frontend:3000/",
	)
	return env
}

func (e *previewEnv) seed(t *testing.T, published bool) database.Portfolio {
	t.Helper()
	user := database.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	row := database.Portfolio{
		UserID:     user.ID,
		Title:      "Site",
		Subdomain:  "ada-site",
		TemplateID: "modern",
		Published:  published,
	}
	if err := e.db.Create(&row).Error; err != nil {
		t.Fatalf("create portfolio: %v", err)
	}
	return row
}

func (e *previewEnv) subscribe(t *testing.T, userID uint) *redis.PubSub {
	t.Helper()
	sub := e.redis.Subscribe(context.Background(), tasks.NotifyChannel(userID))
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(func() { _ = sub.Close() })
	return sub
}

func receiveNotify(t *testing.T, sub *redis.PubSub) PreviewNotifyMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive notification: %v", err)
	}
	var out PreviewNotifyMessage
	if err := json.Unmarshal([]byte(msg.Payload), &out); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	return out
}

func previewTask(t *testing.T, portfolioID, userID uint) *asynq.Task {
	t.Helper()
	task, err := tasks.NewPortfolioPreviewTask(portfolioID, userID, "corr-1")
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	return task
}

func TestPreviewStoresImageAndNotifies(t *testing.T) {
	env := newPreviewEnv(t)
	row := env.seed(t, true)
	sub := env.subscribe(t, row.UserID)

	if err := env.handler.ProcessTask(context.Background(), previewTask(t, row.ID, row.UserID)); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}

	if len(env.renderer.urls) != 1 || env.renderer.urls[0] != "http://frontend:3000/p/ada-site" {
		t.Fatalf("rendered urls = %v", env.renderer.urls)
	}
	key := storage.PreviewObjectKey(row.ID)
	if env.objects.uploads[key] != "image/jpeg" {
		t.Fatalf("uploads = %v", env.objects.uploads)
	}

	var stored database.Portfolio
	if err := env.db.First(&stored, row.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.PreviewObjectKey != key {
		t.Fatalf("preview key = %q, want %q", stored.PreviewObjectKey, key)
	}

	got := receiveNotify(t, sub)
	if got.Status != "completed" || got.PortfolioID != row.ID || got.CorrelationID != "corr-1" || got.ErrorCode != errcode.OK {
		t.Fatalf("notification = %+v", got)
	}
	if got.PreviewURL == "" {
		t.Fatal("expected presigned preview url")
	}
}

func TestPreviewSkipsMissingOrDraft(t *testing.T) {
	env := newPreviewEnv(t)
	row := env.seed(t, false)

	if err := env.handler.ProcessTask(context.Background(), previewTask(t, row.ID, row.UserID)); err != nil {
		t.Fatalf("draft: %v", err)
	}
	if err := env.handler.ProcessTask(context.Background(), previewTask(t, 9999, row.UserID)); err != nil {
		t.Fatalf("missing: %v", err)
	}
	if len(env.renderer.urls) != 0 {
		t.Fatalf("renderer called for skipped tasks: %v", env.renderer.urls)
	}
}

func TestPreviewRejectsMalformedPayload(t *testing.T) {
	env := newPreviewEnv(t)
	err := env.handler.ProcessTask(context.Background(), asynq.NewTask(tasks.TypePortfolioPreview, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("err = %v, want SkipRetry", err)
	}
}

func TestPreviewFailureNotifiesOnFinalAttempt(t *testing.T) {
	env := newPreviewEnv(t)
	row := env.seed(t, true)
	sub := env.subscribe(t, row.UserID)
	env.renderer.err = errors.New("chromium crashed")

	env.handler.isFinalAttempt = func(context.Context) bool { return false }
	if err := env.handler.ProcessTask(context.Background(), previewTask(t, row.ID, row.UserID)); err == nil {
		t.Fatal("expected error")
	}

	env.handler.isFinalAttempt = func(context.Context) bool { return true }
	if err := env.handler.ProcessTask(context.Background(), previewTask(t, row.ID, row.UserID)); err == nil {
		t.Fatal("expected error")
	}

	got := receiveNotify(t, sub)
	if got.Status != "error" || got.ErrorCode != errcode.SystemError || !strings.Contains(got.ErrorMessage, "chromium crashed") {
		t.Fatalf("notification = %+v", got)
	}
	if len(env.objects.uploads) != 0 {
		t.Fatalf("unexpected uploads: %v", env.objects.uploads)
	}
}

func TestIsFinalAsynqAttemptWithoutTaskContext(t *testing.T) {
	if isFinalAsynqAttempt(context.Background()) {
		t.Fatal("plain context must not count as final attempt")
	}
}

func TestPreviewNotifiesWhenPortfolioRemovedMidRender(t *testing.T) {
	env := newPreviewEnv(t)
	row := env.seed(t, true)
	sub := env.subscribe(t, row.UserID)

	env.handler.renderer = deletingRenderer{db: env.db, id: row.ID}
	if err := env.handler.ProcessTask(context.Background(), previewTask(t, row.ID, row.UserID)); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}

	got := receiveNotify(t, sub)
	if got.Status != "skipped" || got.ErrorCode != errcode.ResourceMissing {
		t.Fatalf("notification = %+v", got)
	}
}

// deletingRenderer 模拟渲染期间作品集被删除。
type deletingRenderer struct {
	db *gorm.DB
	id uint
}

func (r deletingRenderer) Screenshot(context.Context, string) ([]byte, error) {
	if err := r.db.Delete(&database.Portfolio{}, r.id).Error; err != nil {
		return nil, err
	}
	return []byte("jpeg"), nil
}
