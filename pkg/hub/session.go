package hub

import (
	"context"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/codec"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// session is one websocket connection. All writes to conn happen on the
// writer goroutine; other goroutines only enqueue.
type session struct {
	id    string
	conn  *gorilla.Conn
	codec codec.Codec
	log   logger.Logger

	// bound is the identity fixed by the handshake, empty in dev mode.
	bound string

	mu   sync.Mutex
	user string

	send chan Message

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newSession(id string, conn *gorilla.Conn, c codec.Codec, bound string, buffer int, log logger.Logger) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		id:     id,
		conn:   conn,
		codec:  c,
		log:    log,
		bound:  bound,
		send:   make(chan Message, buffer),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *session) userID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *session) setUser(id string) (previous string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, s.user = s.user, id
	return previous
}

// enqueue queues msg without blocking. It reports false when the session is
// closed or its queue is full; a full queue drops msg.
func (s *session) enqueue(msg Message) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}

	select {
	case s.send <- msg:
		return true
	case <-s.ctx.Done():
		return false
	default:
		s.log.Warn("session queue full, dropping message",
			"session", s.id,
			"user", s.userID(),
			"type", msg.Type)
		return false
	}
}

func (s *session) close() {
	s.once.Do(func() {
		s.cancel()
		deadline := time.Now().Add(writeWait)
		_ = s.conn.WriteControl(gorilla.CloseMessage,
			gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""), deadline)
		_ = s.conn.Close()
	})
}

func (s *session) frameType() int {
	if s.codec.Binary() {
		return gorilla.BinaryMessage
	}
	return gorilla.TextMessage
}

func (s *session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.send:
			data, err := s.codec.Marshal(msg)
			if err != nil {
				s.log.Error("failed to encode message", "session", s.id, "type", msg.Type, "error", err)
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(s.frameType(), data); err != nil {
				s.log.Debug("write failed, closing session", "session", s.id, "error", err)
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(gorilla.PingMessage, nil); err != nil {
				s.close()
				return
			}
		}
	}
}

// readLoop decodes frames and passes them to handle until the connection
// fails or closes.
func (s *session) readLoop(handle func(*session, Inbound, error)) {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if gorilla.IsUnexpectedCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway) {
				s.log.Debug("session closed unexpectedly", "session", s.id, "error", err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var in Inbound
		err = s.codec.Unmarshal(data, &in)
		handle(s, in, err)
	}
}
