// Package gateway serves the websocket chart session: a client sends
// analysis requests and receives one analysis-plus-chart message per request.
package gateway

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fuzzy-advisor/internal/advisor"
	"fuzzy-advisor/internal/metrics"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Hub tracks open chart sessions.
type Hub struct {
	svc           *advisor.Service
	defaultSymbol string
	now           func() time.Time
	m             *metrics.Metrics

	mu       sync.Mutex
	sessions map[*Session]struct{}
	closed   bool
}

// NewHub creates a hub running analyses through svc. m and now may be nil.
func NewHub(svc *advisor.Service, defaultSymbol string, m *metrics.Metrics, now func() time.Time) *Hub {
	if now == nil {
		now = time.Now
	}
	return &Hub{
		svc:           svc,
		defaultSymbol: defaultSymbol,
		now:           now,
		m:             m,
		sessions:      make(map[*Session]struct{}),
	}
}

// ServeHTTP upgrades the connection and starts a session.
// GET /ws/chart
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade error: %v", err)
		return
	}
	s := newSession(h, conn)
	if !h.add(s) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	log.Printf("[gateway] chart session opened (%d active)", h.Count())
	go s.writePump()
	go s.readPump()
}

func (h *Hub) add(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.sessions[s] = struct{}{}
	if h.m != nil {
		h.m.WSSessions.Inc()
	}
	return true
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	if h.m != nil {
		h.m.WSSessions.Dec()
	}
}

// Count returns the number of open sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Close ends every session and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
