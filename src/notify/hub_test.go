package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHubBroadcastsToConnectedClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// The registration happens in the upgrade handler before ServeWS returns,
	// so once the dial succeeded the client is broadcastable.
	hub.Broadcast([]byte(`{"kind":"trade_won"}`))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(message) != `{"kind":"trade_won"}` {
		t.Fatalf("unexpected message: %s", message)
	}
}

func TestHubBroadcastNeverBlocksWhenQueueIsFull(t *testing.T) {
	// No Run loop draining the queue.
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Broadcast([]byte("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full queue")
	}
}
