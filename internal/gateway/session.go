package gateway

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fuzzy-advisor/internal/advisor"
	"fuzzy-advisor/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 8
)

// Session is one websocket peer. It owns the single chart the client is
// looking at: a new request cancels the one in flight and only the latest
// request is answered.
type Session struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	inflight  context.CancelFunc
	seq       uint64
	closeOnce sync.Once
}

func newSession(h *Hub, conn *websocket.Conn) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
}

// close stops the session. Safe to call more than once.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.hub.remove(s)
		s.conn.Close()
	})
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case <-s.ctx.Done():
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) readPump() {
	defer func() {
		s.close()
		log.Println("[gateway] chart session closed")
	}()

	s.conn.SetReadLimit(4096)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			s.enqueue(errorMessage("", "invalid_message", "invalid JSON: "+err.Error()))
			continue
		}

		if req.Ping > 0 {
			s.enqueue(Message{Type: TypePong, Ping: req.Ping, ServerTS: time.Now().UnixMilli()})
			continue
		}

		switch req.Type {
		case TypeAnalyze, "":
			s.analyze(req)
		default:
			s.enqueue(errorMessage(req.ReqID, "invalid_message", "unknown type "+req.Type))
		}
	}
}

// analyze cancels the request in flight and starts req.
func (s *Session) analyze(req Request) {
	parsed, err := advisor.ParseRequest(req.Symbol, req.From, req.To, s.hub.defaultSymbol, s.hub.now())
	if err != nil {
		s.enqueue(errorMessage(req.ReqID, advisor.KindInvalidRange, err.Error()))
		return
	}

	s.mu.Lock()
	if s.inflight != nil {
		s.inflight()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.inflight = cancel
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	go func() {
		defer cancel()
		ctx = logger.WithRunID(ctx, logger.NewRunID())
		rep, err := s.hub.svc.Run(ctx, parsed)

		// Superseded by a newer request
		s.mu.Lock()
		stale := seq != s.seq
		s.mu.Unlock()
		if stale || s.ctx.Err() != nil {
			return
		}

		if err != nil {
			s.enqueue(errorMessage(req.ReqID, advisor.ErrorKind(err), err.Error()))
			return
		}
		sum := rep.Summary(true)
		s.enqueue(Message{Type: TypeAnalysis, ReqID: req.ReqID, Data: &sum})
	}()
}

func (s *Session) enqueue(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		log.Printf("[gateway] marshal %s: %v", m.Type, err)
		return
	}
	select {
	case s.send <- data:
	case <-s.ctx.Done():
	}
}
