package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
)

type fakeClient struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeClient) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1"}, nil
}

func TestEnqueuePreviewCarriesCorrelationID(t *testing.T) {
	client := &fakeClient{}
	enq := NewEnqueuer(client)

	ctx := WithCorrelationID(context.Background(), "corr-123")
	if err := enq.EnqueuePreview(ctx, 9, 4); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(client.tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(client.tasks))
	}
	task := client.tasks[0]
	if task.Type() != TypePortfolioPreview {
		t.Fatalf("unexpected task type %q", task.Type())
	}

	var payload PortfolioPreviewPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.PortfolioID != 9 || payload.UserID != 4 || payload.CorrelationID != "corr-123" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestEnqueuePreviewWrapsClientError(t *testing.T) {
	boom := errors.New("redis down")
	enq := NewEnqueuer(&fakeClient{err: boom})

	err := enq.EnqueuePreview(context.Background(), 1, 1)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
}

func TestNotifyChannel(t *testing.T) {
	if got := NotifyChannel(42); got != "user_notify:42" {
		t.Fatalf("NotifyChannel(42) = %q", got)
	}
}
