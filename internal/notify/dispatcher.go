package notify

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Observer receives per-channel delivery outcomes.
type Observer interface {
	ObserveNotification(channel, outcome string)
}

// Config selects and configures the delivery channels.
type Config struct {
	PushoverToken     string
	PushoverUserKey   string
	PushoverURL       string
	DiscordWebhookURL string
	Timeout           time.Duration
}

// Dispatcher fans a message out to every configured channel.
type Dispatcher struct {
	logger   *slog.Logger
	channels []Channel
	observer Observer
}

// NewDispatcher builds the channels present in cfg. Channels with missing
// settings are skipped.
func NewDispatcher(logger *slog.Logger, cfg Config, observer Observer) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var channels []Channel
	if cfg.PushoverToken != "" && cfg.PushoverUserKey != "" {
		channels = append(channels, NewPushover(client, cfg.PushoverToken, cfg.PushoverUserKey, cfg.PushoverURL))
	} else {
		logger.Info("pushover token or user key not configured, skipping pushover notifications")
	}
	if cfg.DiscordWebhookURL != "" {
		channels = append(channels, NewDiscord(client, cfg.DiscordWebhookURL))
	} else {
		logger.Info("discord webhook url not configured, skipping discord notifications")
	}
	return NewDispatcherWithChannels(logger, observer, channels...)
}

// NewDispatcherWithChannels builds a Dispatcher over explicit channels.
func NewDispatcherWithChannels(logger *slog.Logger, observer Observer, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger, channels: channels, observer: observer}
}

// Channels reports the names of the active channels.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Dispatch attempts every channel concurrently. A failing channel does not
// stop the others; failures are logged and never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	if d == nil || len(d.channels) == 0 {
		return
	}
	var g errgroup.Group
	for _, ch := range d.channels {
		ch := ch
		g.Go(func() error {
			if err := ch.Send(ctx, msg); err != nil {
				d.logger.Warn("notification failed",
					slog.String("channel", ch.Name()),
					slog.String("title", msg.Title),
					slog.Any("error", err))
				d.observe(ch.Name(), "failure")
				return nil
			}
			d.logger.Info("notification sent", slog.String("channel", ch.Name()), slog.String("title", msg.Title))
			d.observe(ch.Name(), "success")
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) observe(channel, outcome string) {
	if d.observer != nil {
		d.observer.ObserveNotification(channel, outcome)
	}
}
