package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"emoroute/internal/config"
)

const userAgent = "emoroute/0.1.0"

// Event names a notification-worthy milestone.
type Event string

const (
	EventRunCompleted   Event = "run_completed"
	EventRunFailed      Event = "run_failed"
	EventFetchCompleted Event = "fetch_completed"
	EventTest           Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		settings: cfg.Notifications,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	settings config.Notifications
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventRunCompleted:
		return n.settings.Runs
	case EventRunFailed:
		return n.settings.Errors
	case EventFetchCompleted:
		return n.settings.Fetch
	case EventTest:
		return true
	default:
		return false
	}
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventRunCompleted:
		body := fmt.Sprintf("✅ Run %s complete: %d files written (%s), %d resolved",
			text(payload, "run"), number(payload, "written"), text(payload, "bytes"), number(payload, "resolved"))
		if problems := number(payload, "problems"); problems > 0 {
			body += fmt.Sprintf("\n%d files need attention", problems)
		}
		return message{
			title: "emoroute - Run Complete",
			body:  body,
			tags:  []string{"emoroute", "run", "completed"},
		}, true
	case EventRunFailed:
		status := text(payload, "status")
		if status == "" {
			status = "failed"
		}
		errText := text(payload, "error")
		if errText == "" {
			errText = "unknown"
		}
		return message{
			title:    "emoroute - Run " + cases.Title(language.English).String(strings.ReplaceAll(status, "_", " ")),
			body:     fmt.Sprintf("❌ Run %s %s: %s", text(payload, "run"), status, errText),
			tags:     []string{"emoroute", "error", "alert"},
			priority: "high",
		}, true
	case EventFetchCompleted:
		body := fmt.Sprintf("📦 Fetched %d datasets", number(payload, "fetched"))
		if failed := number(payload, "failed"); failed > 0 {
			body += fmt.Sprintf(", %d failed", failed)
		}
		return message{
			title: "emoroute - Fetch Complete",
			body:  body,
			tags:  []string{"emoroute", "fetch", "completed"},
		}, true
	case EventTest:
		return message{
			title:    "emoroute - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"emoroute", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func text(payload Payload, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func number(payload Payload, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
