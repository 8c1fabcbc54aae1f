package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// DefaultIdempotencyRetention is how long processed sale keys are remembered.
const DefaultIdempotencyRetention = 7 * 24 * time.Hour

// IdempotencyCleanupPayload controls the cleanup window.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask builds the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: int(retention / time.Hour)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}

// KeyPruner deletes idempotency keys older than the given age.
type KeyPruner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupHandler processes TaskIdempotencyCleanup tasks.
type IdempotencyCleanupHandler struct {
	Store    KeyPruner
	Observer Observer
	Logger   *slog.Logger
}

// Handle implements asynq.HandlerFunc.
func (h IdempotencyCleanupHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode cleanup payload: %v: %w", err, asynq.SkipRetry)
	}
	retention := time.Duration(payload.RetentionHours) * time.Hour
	if retention <= 0 {
		retention = DefaultIdempotencyRetention
	}
	removed, err := h.Store.Cleanup(ctx, retention)
	if err != nil {
		observe(h.Observer, TaskIdempotencyCleanup, "failure")
		return err
	}
	observe(h.Observer, TaskIdempotencyCleanup, "success")
	if h.Logger != nil {
		h.Logger.Info("idempotency keys pruned", slog.Int64("removed", removed), slog.Duration("retention", retention))
	}
	return nil
}
