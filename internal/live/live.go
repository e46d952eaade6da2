// Package live streams the playback position and the active lyric row to
// websocket clients, e.g. a second screen showing the lyrics karaoke style.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"karolbroda.com/lyricsync/internal/logger"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
	subBuffer    = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the JSON sent to clients. Type is "lyrics" for a full row list
// and "position" for a playback update.
type Message struct {
	Type       string   `json:"type"`
	PositionMs int64    `json:"positionMs,omitempty"`
	TotalMs    int64    `json:"totalMs,omitempty"`
	Row        int      `json:"row"`
	Line       string   `json:"line,omitempty"`
	Title      string   `json:"title,omitempty"`
	Lines      []string `json:"lines,omitempty"`
}

type Hub struct {
	log *logger.Logger

	mu         sync.Mutex
	subs       map[chan []byte]struct{}
	lastLyrics []byte
	lastPos    []byte
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{
		log:  log,
		subs: make(map[chan []byte]struct{}),
	}
}

// PublishLyrics announces the row texts of the loaded track.
func (h *Hub) PublishLyrics(title string, lines []string) {
	h.publish(Message{Type: "lyrics", Row: -1, Title: title, Lines: lines}, true)
}

// PublishPosition announces a playback sample and the row active at it
// (-1 when none).
func (h *Hub) PublishPosition(positionMs, totalMs int64, row int, line string) {
	h.publish(Message{
		Type:       "position",
		PositionMs: positionMs,
		TotalMs:    totalMs,
		Row:        row,
		Line:       line,
	}, false)
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) publish(msg Message, isLyrics bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal live message: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if isLyrics {
		h.lastLyrics = data
	} else {
		h.lastPos = data
	}

	for ch := range h.subs {
		// slow clients miss updates rather than stall playback
		select {
		case ch <- data:
		default:
		}
	}
}

func (h *Hub) subscribe() (chan []byte, [][]byte) {
	ch := make(chan []byte, subBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.subs[ch] = struct{}{}

	var initial [][]byte
	if h.lastLyrics != nil {
		initial = append(initial, h.lastLyrics)
	}
	if h.lastPos != nil {
		initial = append(initial, h.lastPos)
	}
	return ch, initial
}

func (h *Hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (h *Hub) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"clients": h.Clients()})
	})
	return mux
}

// Serve listens on addr until ctx is cancelled.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	h.log.Debug("live feed listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, initial := h.subscribe()
	defer h.unsubscribe(updates)

	// the read side only exists to notice the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, data := range initial {
		if err := h.write(conn, websocket.TextMessage, data); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-updates:
			if err := h.write(conn, websocket.TextMessage, data); err != nil {
				h.log.Debug("live client dropped: %v", err)
				return
			}
		case <-ticker.C:
			if err := h.write(conn, websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, messageType int, data []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(messageType, data)
}
