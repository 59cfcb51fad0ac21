package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   nil,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "uid-1")
	c2 := mockClient(hub, "uid-1")

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, "uid-1")
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "uid-1")
	c2 := mockClient(hub, "uid-1")
	hub.Register(c1)
	hub.Register(c2)

	msg := NewMessage("task", "completed", "t42", map[string]any{"owner": "Alice"})
	hub.Broadcast("uid-1", msg)

	// Check both clients received the message
	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "task_completed" {
				t.Errorf("expected type task_completed, got %s", got.Type)
			}
			if got.Entity != "task" {
				t.Errorf("expected entity task, got %s", got.Entity)
			}
			if got.ID != "t42" {
				t.Errorf("expected id t42, got %s", got.ID)
			}
			if got.Extra["owner"] != "Alice" {
				t.Errorf("expected owner Alice, got %v", got.Extra["owner"])
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	msg := NewMessage("task", "completed", "t1", nil)
	hub.Broadcast("uid-1", msg)
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, "uid-1")
	hub.Register(c)

	// Fill the send buffer
	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast("uid-1", NewMessage("test", "fill", fmt.Sprint(i), nil))
	}

	// This should drop the message, not panic or block
	hub.Broadcast("uid-1", NewMessage("test", "dropped", "999", nil))

	// Drain to verify buffer was full
	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestBroadcastScopedToPrincipal(t *testing.T) {
	hub := NewHub(slog.Default())

	mine := mockClient(hub, "uid-1")
	theirs := mockClient(hub, "uid-2")
	hub.Register(mine)
	hub.Register(theirs)

	hub.Broadcast("uid-1", NewMessage("task", "reset", "t1", nil))

	select {
	case <-mine.send:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
	select {
	case data := <-theirs.send:
		t.Errorf("other household received %s", data)
	default:
	}

	hub.Unregister(mine)
	hub.Unregister(theirs)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("history", "created", "h5", nil)
	if msg.Type != "history_created" {
		t.Errorf("expected type history_created, got %s", msg.Type)
	}
	if msg.Entity != "history" {
		t.Errorf("expected entity history, got %s", msg.Entity)
	}
	if msg.Action != "created" {
		t.Errorf("expected action created, got %s", msg.Action)
	}
	if msg.ID != "h5" {
		t.Errorf("expected id h5, got %s", msg.ID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	// Spawn goroutines that register, broadcast, and unregister concurrently
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, "uid-1")
			hub.Register(c)
			hub.Broadcast("uid-1", NewMessage("test", "concurrent", "", nil))
			// Drain any messages
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestConnectedDevices(t *testing.T) {
	hub := NewHub(slog.Default())
	hub.Register(mockClient(hub, "uid-1"))
	hub.Register(mockClient(hub, "uid-1"))
	hub.Register(mockClient(hub, "uid-2"))

	if got := hub.ConnectedDevices("uid-1"); got != 2 {
		t.Errorf("uid-1 devices = %d, want 2", got)
	}
	if got := hub.ConnectedDevices("uid-3"); got != 0 {
		t.Errorf("uid-3 devices = %d, want 0", got)
	}
}
