package live

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return msg
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewClientGetsLatestState(t *testing.T) {
	h := NewHub(nil)
	h.PublishLyrics("Song", []string{"one", "two"})
	h.PublishPosition(1000, 60000, 0, "one")
	h.PublishPosition(5000, 60000, 1, "two")

	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	conn := dial(t, srv)

	first := readMessage(t, conn)
	if first.Type != "lyrics" || first.Title != "Song" || len(first.Lines) != 2 {
		t.Errorf("first = %+v", first)
	}
	second := readMessage(t, conn)
	if second.Type != "position" || second.PositionMs != 5000 || second.Row != 1 {
		t.Errorf("second = %+v", second)
	}
}

func TestPublishReachesAllClients(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitForClients(t, h, 2)

	h.PublishPosition(12000, 180000, 3, "chorus")

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		if msg.PositionMs != 12000 || msg.TotalMs != 180000 || msg.Row != 3 || msg.Line != "chorus" {
			t.Errorf("msg = %+v", msg)
		}
	}
}

func TestClientDisconnectUnsubscribes(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, h, 1)

	conn.Close()
	waitForClients(t, h, 0)
}

func TestNoActiveRowIsSent(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, h, 1)

	h.PublishPosition(0, 1000, -1, "")
	if msg := readMessage(t, conn); msg.Row != -1 {
		t.Errorf("row = %d, want -1", msg.Row)
	}
}

func TestHealthzReportsClients(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	dial(t, srv)
	waitForClients(t, h, 1)

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["clients"] != 1 {
		t.Errorf("clients = %d, want 1", body["clients"])
	}
}
