package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHubPublishToSubscriber(t *testing.T) {
	hub := NewHub()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Subscribe(w, r, 42)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer conn.Close()

	// Wait for the subscription to register
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount(42) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.PublishBalance(42, 15, "task_approved")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var update BalanceUpdate
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("failed to read update: %v", err)
	}

	if update.ProfileID != 42 {
		t.Errorf("expected profile 42, got %d", update.ProfileID)
	}
	if update.Balance != 15 {
		t.Errorf("expected balance 15, got %d", update.Balance)
	}
	if update.Reason != "task_approved" {
		t.Errorf("expected reason task_approved, got %q", update.Reason)
	}
}

func TestHubPublishWithNoSubscribers(t *testing.T) {
	hub := NewHub()

	// Must not panic or block
	hub.PublishBalance(7, 100, "redemption")

	if count := hub.SubscriberCount(7); count != 0 {
		t.Errorf("expected 0 subscribers, got %d", count)
	}
}
