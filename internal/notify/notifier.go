package notify

import (
	"context"
	"log/slog"
	"time"
)

// Notifier schedules a message for delivery without blocking the caller.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// InlineNotifier delivers from a detached goroutine inside the API process.
type InlineNotifier struct {
	dispatcher *Dispatcher
	timeout    time.Duration
	logger     *slog.Logger
}

// NewInlineNotifier constructs an InlineNotifier.
func NewInlineNotifier(logger *slog.Logger, dispatcher *Dispatcher, timeout time.Duration) *InlineNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &InlineNotifier{dispatcher: dispatcher, timeout: timeout, logger: logger}
}

// Notify implements Notifier. The request context is not used for delivery so
// that a finished request does not cancel an in-flight notification.
func (n *InlineNotifier) Notify(ctx context.Context, msg Message) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				n.logger.Error("notification panic", slog.Any("panic", r))
			}
		}()
		deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		n.dispatcher.Dispatch(deliverCtx, msg)
	}()
}

// Enqueuer hands a message to a background queue.
type Enqueuer interface {
	EnqueueNotification(ctx context.Context, msg Message) error
}

// QueueNotifier hands messages to the worker queue.
type QueueNotifier struct {
	queue  Enqueuer
	logger *slog.Logger
}

// NewQueueNotifier constructs a QueueNotifier.
func NewQueueNotifier(logger *slog.Logger, queue Enqueuer) *QueueNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueNotifier{queue: queue, logger: logger}
}

// Notify implements Notifier. Enqueue failures are logged and dropped.
func (n *QueueNotifier) Notify(ctx context.Context, msg Message) {
	if err := n.queue.EnqueueNotification(context.WithoutCancel(ctx), msg); err != nil {
		n.logger.Warn("enqueue notification", slog.String("title", msg.Title), slog.Any("error", err))
	}
}

// Discard drops every message.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(context.Context, Message) {}
