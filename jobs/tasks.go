package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/roz-pos/roz/internal/notify"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNotifyDispatch delivers a notification to every configured channel.
	TaskNotifyDispatch = "notify:dispatch"
	// TaskIdempotencyCleanup prunes expired sale idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// Observer receives job outcomes.
type Observer interface {
	ObserveJob(task, outcome string)
}

// Dispatcher delivers a notification message.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg notify.Message)
}

// NewNotifyTask constructs a notification task. Notifications are
// fire-and-forget so the task is never retried.
func NewNotifyTask(msg notify.Message) (*asynq.Task, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifyDispatch, data, asynq.MaxRetry(0), asynq.Queue(QueueDefault), asynq.Timeout(time.Minute)), nil
}

// NotifyHandler processes TaskNotifyDispatch tasks.
type NotifyHandler struct {
	Dispatcher Dispatcher
	Observer   Observer
	Logger     *slog.Logger
}

// Handle implements asynq.HandlerFunc.
func (h NotifyHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var msg notify.Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		observe(h.Observer, TaskNotifyDispatch, "failure")
		return fmt.Errorf("decode notification: %v: %w", err, asynq.SkipRetry)
	}
	h.Dispatcher.Dispatch(ctx, msg)
	observe(h.Observer, TaskNotifyDispatch, "success")
	return nil
}

func observe(o Observer, task, outcome string) {
	if o != nil {
		o.ObserveJob(task, outcome)
	}
}
