package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultPushoverURL is the Pushover messages endpoint.
const DefaultPushoverURL = "https://api.pushover.net/1/messages.json"

// Channel is one delivery target.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Pushover posts messages to the Pushover API.
type Pushover struct {
	token   string
	userKey string
	url     string
	client  *http.Client
}

// NewPushover returns a Pushover channel. An empty url selects the public API.
func NewPushover(client *http.Client, token, userKey, endpoint string) *Pushover {
	if endpoint == "" {
		endpoint = DefaultPushoverURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Pushover{token: token, userKey: userKey, url: endpoint, client: client}
}

// Name implements Channel.
func (p *Pushover) Name() string { return "pushover" }

type pushoverResponse struct {
	Status int      `json:"status"`
	Errors []string `json:"errors"`
}

// Send implements Channel. The API must answer with status 1.
func (p *Pushover) Send(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("token", p.token)
	form.Set("user", p.userKey)
	form.Set("title", msg.Title)
	form.Set("message", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("pushover: %w", err)
	}
	defer resp.Body.Close()

	var body pushoverResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
		return fmt.Errorf("pushover: status %d: decode response: %w", resp.StatusCode, err)
	}
	if body.Status != 1 {
		return fmt.Errorf("pushover: status %d: %s", resp.StatusCode, strings.Join(body.Errors, "; "))
	}
	return nil
}

// Discord posts messages to a Discord webhook.
type Discord struct {
	webhookURL string
	client     *http.Client
}

// NewDiscord returns a Discord webhook channel.
func NewDiscord(client *http.Client, webhookURL string) *Discord {
	if client == nil {
		client = http.DefaultClient
	}
	return &Discord{webhookURL: webhookURL, client: client}
}

// Name implements Channel.
func (d *Discord) Name() string { return "discord" }

// Send implements Channel.
func (d *Discord) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(map[string]string{
		"content": fmt.Sprintf("**%s**\n%s", msg.Title, msg.Body),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord: status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
