package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"airlock/internal/config"
)

const userAgent = "Airlock-Go/0.1.0"

// Event identifies a pipeline milestone worth pushing.
type Event string

const (
	EventReviewReady    Event = "review_ready"
	EventPipelineFailed Event = "pipeline_failed"
	EventItemCommitted  Event = "item_committed"
	EventGhostsMatched  Event = "ghosts_matched"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event-specific template values.
type Payload map[string]string

// Service is the notification surface exposed to pipeline components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
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
		enabled: map[Event]bool{
			EventReviewReady:    cfg.Notifications.ReviewReady,
			EventPipelineFailed: cfg.Notifications.Failures,
			EventItemCommitted:  cfg.Notifications.Commits,
			EventGhostsMatched:  cfg.Notifications.Matches,
			EventError:          true,
			EventTest:           true,
		},
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
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if allowed, known := n.enabled[event]; known && !allowed {
		return nil
	}
	if payload == nil {
		payload = Payload{}
	}
	return n.send(ctx, render(event, payload))
}

func render(event Event, payload Payload) message {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(payload[key]); v != "" {
			return v
		}
		return fallback
	}

	switch event {
	case EventReviewReady:
		return message{
			title: "Airlock - Review Ready",
			body: fmt.Sprintf("Document %s graded %s; awaiting review",
				get("name", "item "+get("item_id", "?")), get("trust_level", "unknown")),
			tags: []string{"airlock", "review", "ready"},
		}
	case EventPipelineFailed:
		return message{
			title: "Airlock - Ingestion Failed",
			body: fmt.Sprintf("Item %s failed: %s",
				get("item_id", "?"), get("reason", "unknown error")),
			tags:     []string{"airlock", "pipeline", "failed"},
			priority: "high",
		}
	case EventItemCommitted:
		return message{
			title: "Airlock - Committed",
			body: fmt.Sprintf("Item %s committed as transaction %s",
				get("item_id", "?"), get("transaction_id", "?")),
			tags: []string{"airlock", "commit", "completed"},
		}
	case EventGhostsMatched:
		return message{
			title: "Airlock - Ghosts Matched",
			body: fmt.Sprintf("Transaction %s matched %s expected entries",
				get("transaction_id", "?"), get("count", "0")),
			tags: []string{"airlock", "reconcile", "matched"},
		}
	case EventError:
		body := "Error: " + get("error", "unknown")
		if label := get("context", ""); label != "" {
			body = fmt.Sprintf("Error with %s: %s", label, get("error", "unknown"))
		}
		return message{
			title:    "Airlock - Error",
			body:     body,
			tags:     []string{"airlock", "error", "alert"},
			priority: "high",
		}
	case EventTest:
		return message{
			title:    "Airlock - Test",
			body:     "Notification system test",
			tags:     []string{"airlock", "test"},
			priority: "low",
		}
	}
	return message{
		title: "Airlock",
		body:  string(event),
		tags:  []string{"airlock"},
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
