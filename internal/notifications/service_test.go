package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"airlock/internal/config"
	"airlock/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventReviewReady, notifications.Payload{"item_id": "1"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "review ready",
			event: notifications.EventReviewReady,
			payload: notifications.Payload{
				"name":        "october.csv",
				"trust_level": "YELLOW",
			},
			expectTitle:   "Airlock - Review Ready",
			expectMessage: "Document october.csv graded YELLOW; awaiting review",
			expectTags:    "airlock,review,ready",
		},
		{
			name:  "pipeline failed",
			event: notifications.EventPipelineFailed,
			payload: notifications.Payload{
				"item_id": "7",
				"reason":  "blob missing",
			},
			expectTitle:    "Airlock - Ingestion Failed",
			expectMessage:  "Item 7 failed: blob missing",
			expectTags:     "airlock,pipeline,failed",
			expectPriority: "high",
		},
		{
			name:  "item committed",
			event: notifications.EventItemCommitted,
			payload: notifications.Payload{
				"item_id":        "7",
				"transaction_id": "12",
			},
			expectTitle:   "Airlock - Committed",
			expectMessage: "Item 7 committed as transaction 12",
			expectTags:    "airlock,commit,completed",
		},
		{
			name:  "ghosts matched",
			event: notifications.EventGhostsMatched,
			payload: notifications.Payload{
				"transaction_id": "12",
				"count":          "2",
			},
			expectTitle:   "Airlock - Ghosts Matched",
			expectMessage: "Transaction 12 matched 2 expected entries",
			expectTags:    "airlock,reconcile,matched",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var (
				gotTitle    string
				gotMessage  string
				gotTags     string
				gotPriority string
			)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				gotMessage = string(body)
				gotTitle = r.Header.Get("Title")
				gotTags = r.Header.Get("Tags")
				gotPriority = r.Header.Get("Priority")
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			svc := notifications.NewService(&cfg)

			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish failed: %v", err)
			}
			if gotTitle != tc.expectTitle {
				t.Fatalf("title = %q, want %q", gotTitle, tc.expectTitle)
			}
			if gotMessage != tc.expectMessage {
				t.Fatalf("message = %q, want %q", gotMessage, tc.expectMessage)
			}
			if gotTags != tc.expectTags {
				t.Fatalf("tags = %q, want %q", gotTags, tc.expectTags)
			}
			if gotPriority != tc.expectPriority {
				t.Fatalf("priority = %q, want %q", gotPriority, tc.expectPriority)
			}
		})
	}
}

func TestDisabledEventIsSkipped(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Commits = false
	svc := notifications.NewService(&cfg)

	if err := svc.Publish(context.Background(), notifications.EventItemCommitted, nil); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no delivery for disabled event, got %d", calls)
	}
}

func TestServerErrorSurfacesAsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	if err := svc.Publish(context.Background(), notifications.EventError, notifications.Payload{"error": "boom"}); err == nil {
		t.Fatal("expected error from failing server")
	}
}
