package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/netra/internal/fusion"
	"github.com/ayusman/netra/internal/gaze"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Local connections only; the server binds loopback
	},
}

// gazeThrottle limits how often gaze updates go out to clients; the
// calibration overlay does not need every pipeline cycle.
const gazeThrottle = 50 * time.Millisecond

// EventsHandler broadcasts gaze state and action events to websocket
// clients. Slow clients drop messages rather than stalling the pipeline.
type EventsHandler struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]bool
	lastGaze time.Time
}

// NewEventsHandler creates an EventsHandler with no connected clients.
func NewEventsHandler() *EventsHandler {
	return &EventsHandler{
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles websocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep the connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// PublishGaze broadcasts a gaze state update, throttled.
func (h *EventsHandler) PublishGaze(st gaze.State) {
	h.mu.Lock()
	if time.Since(h.lastGaze) < gazeThrottle {
		h.mu.Unlock()
		return
	}
	h.lastGaze = time.Now()
	h.mu.Unlock()

	h.publish("gaze", st)
}

// PublishAction broadcasts a resolved action event.
func (h *EventsHandler) PublishAction(ev *fusion.ActionEvent) {
	if ev == nil {
		return
	}
	h.publish("action", ev)
}

// ClientCount returns the number of connected clients.
func (h *EventsHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *EventsHandler) publish(kind string, data any) {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}
	h.mu.RUnlock()

	msg, err := json.Marshal(map[string]any{
		"type":      kind,
		"data":      data,
		"timestamp": time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients {
		conn.WriteMessage(websocket.TextMessage, msg)
	}
}
