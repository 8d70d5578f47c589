package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
)

func echoServer(t *testing.T, hub *ConnectionHub, ready chan<- *Conn) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewConn(context.Background(), r.URL.Query().Get("id"), raw)
		if err := hub.Add(c); err != nil {
			raw.Close()
			return
		}
		ready <- c
		_ = c.Listen(nil)
		_ = hub.Delete(c.ID())
	}))
}

func dial(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?id=" + id
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSendAndClose(t *testing.T) {
	hub := NewConnHub(logger.Nop())
	ready := make(chan *Conn, 1)
	srv := echoServer(t, hub, ready)
	defer srv.Close()

	client := dial(t, srv, "a")
	defer client.Close()

	c := <-ready
	if err := c.Send(map[string]any{"type": "hello"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Health(); err != nil {
		t.Fatalf("health: %v", err)
	}

	var got map[string]any
	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	if err := client.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got["type"] != "hello" {
		t.Fatalf("got %v", got)
	}

	done := make(chan struct{})
	go func() {
		hub.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub close did not return")
	}

	if err := c.Send(map[string]any{"type": "late"}); !errors.Is(err, ErrConnClosed) {
		t.Fatalf("send after close err = %v", err)
	}
	if err := hub.Add(c); !errors.Is(err, ErrHubClosed) {
		t.Fatalf("add after close err = %v", err)
	}
}

func TestDeleteUnknown(t *testing.T) {
	hub := NewConnHub(logger.Nop())
	if err := hub.Delete("missing"); !errors.Is(err, ErrConnIsNotFound) {
		t.Fatalf("err = %v", err)
	}
	if err := hub.Add(nil); !errors.Is(err, ErrEmptyConn) {
		t.Fatalf("err = %v", err)
	}
}
