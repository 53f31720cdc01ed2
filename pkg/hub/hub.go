// Package hub is the websocket transport. It tracks live sessions per user,
// feeds inbound join, update, leave and ping messages to presence and to the
// list engine, and implements the engine's delivery primitives.
package hub

import (
	"context"
	"errors"
	"net/http"
	"sync"

	gorilla "github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/auth"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/codec"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/engine"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/logger"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
)

// DefaultSendBuffer is the per-session outbound queue length.
const DefaultSendBuffer = 256

var (
	ErrNoSession = errors.New("user has no open session")
	ErrQueueFull = errors.New("every session of the user dropped the message")
)

// Presence receives activity signals.
type Presence interface {
	Touch(userID string)
	Release(userID string)
}

// Handler serves the list operations reachable over the socket.
type Handler interface {
	ApplyUpdate(ctx context.Context, listID, requesterID string, patch models.ListPatch) (*models.List, error)
	ListByParticipant(ctx context.Context, userID string) ([]*models.List, error)
}

type Config struct {
	Presence Presence
	Logger   logger.Logger

	// RequireAuth rejects upgrades whose request carries no authenticated
	// user, and pins each session to that user.
	RequireAuth bool
	SendBuffer  int

	// CheckOrigin is passed to the upgrader. Nil accepts every origin.
	CheckOrigin func(r *http.Request) bool
}

type Hub struct {
	presence    Presence
	log         logger.Logger
	requireAuth bool
	sendBuffer  int
	upgrader    gorilla.Upgrader

	handlerMu sync.RWMutex
	handler   Handler

	mu       sync.RWMutex
	sessions map[string]*session
	byUser   map[string]map[string]*session
	closed   bool

	wg sync.WaitGroup
}

func New(cfg Config) *Hub {
	h := &Hub{
		presence:    cfg.Presence,
		log:         cfg.Logger,
		requireAuth: cfg.RequireAuth,
		sendBuffer:  cfg.SendBuffer,
		sessions:    make(map[string]*session),
		byUser:      make(map[string]map[string]*session),
	}
	if h.log == nil {
		h.log = logger.Nop()
	}
	if h.sendBuffer <= 0 {
		h.sendBuffer = DefaultSendBuffer
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	h.upgrader = gorilla.Upgrader{
		Subprotocols: codec.Subprotocols(),
		CheckOrigin:  checkOrigin,
	}
	return h
}

// SetHandler installs the list operations. It must be called before the hub
// serves requests.
func (h *Hub) SetHandler(handler Handler) {
	h.handlerMu.Lock()
	defer h.handlerMu.Unlock()
	h.handler = handler
}

func (h *Hub) getHandler() Handler {
	h.handlerMu.RLock()
	defer h.handlerMu.RUnlock()
	return h.handler
}

// ServeHTTP upgrades the request and runs the session until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bound, _ := auth.UserFromContext(r.Context())
	if h.requireAuth && bound == "" {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		h.log.Debug("websocket upgrade failed", "error", err)
		return
	}

	c, err := codec.ForName(conn.Subprotocol())
	if err != nil {
		c = codec.JSON{}
	}

	s := newSession(ulid.Make().String(), conn, c, bound, h.sendBuffer, h.log)
	if !h.addSession(s) {
		s.close()
		return
	}
	h.log.Debug("session opened", "session", s.id, "codec", c.Name())

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		s.writeLoop()
	}()

	if bound != "" {
		h.bind(s, bound)
	}
	s.readLoop(h.handle)

	s.close()
	h.removeSession(s)
	h.log.Debug("session closed", "session", s.id)
}

func (h *Hub) addSession(s *session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.sessions[s.id] = s
	return true
}

func (h *Hub) removeSession(s *session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()

	h.unbind(s)
}

// bind attaches s to userID, detaching it from any previous user.
// Presence is touched and released under h.mu, in the same order as the
// session sets change.
func (h *Hub) bind(s *session, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.userID() == userID {
		h.touch(userID)
		return
	}
	h.unbindLocked(s)

	set, ok := h.byUser[userID]
	if !ok {
		set = make(map[string]*session)
		h.byUser[userID] = set
	}
	set[s.id] = s
	s.setUser(userID)
	h.touch(userID)
}

// unbind detaches s from its user and releases presence when it was the
// user's last session.
func (h *Hub) unbind(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unbindLocked(s)
}

func (h *Hub) unbindLocked(s *session) {
	userID := s.setUser("")
	set, ok := h.byUser[userID]
	if !ok || userID == "" {
		return
	}
	delete(set, s.id)
	if len(set) == 0 {
		delete(h.byUser, userID)
		if h.presence != nil {
			h.presence.Release(userID)
		}
	}
}

func (h *Hub) touch(userID string) {
	if h.presence != nil && userID != "" {
		h.presence.Touch(userID)
	}
}

func (h *Hub) handle(s *session, in Inbound, decodeErr error) {
	if decodeErr != nil {
		s.enqueue(errorMessage("", engine.ReasonInvalidArgument, "malformed message"))
		return
	}
	h.touch(s.userID())

	switch in.Type {
	case TypeJoin:
		h.handleJoin(s, in)
	case TypeUpdate:
		h.handleUpdate(s, in)
	case TypeLeave:
		h.unbind(s)
	case TypePing:
		s.enqueue(Message{Type: TypePong, RequestID: in.RequestID})
	default:
		s.enqueue(errorMessage(in.RequestID, engine.ReasonInvalidArgument, "unknown message type"))
	}
}

func (h *Hub) handleJoin(s *session, in Inbound) {
	userID := in.UserID
	switch {
	case s.bound != "" && userID != "" && userID != s.bound:
		s.enqueue(errorMessage(in.RequestID, engine.ReasonForbidden, "cannot join as another user"))
		return
	case s.bound != "":
		userID = s.bound
	case userID == "":
		s.enqueue(errorMessage(in.RequestID, engine.ReasonInvalidArgument, "user id is required"))
		return
	}

	h.bind(s, userID)
	s.enqueue(Message{Type: TypeJoined, RequestID: in.RequestID, SessionID: s.id, UserID: userID})

	handler := h.getHandler()
	if handler == nil {
		return
	}
	lists, err := handler.ListByParticipant(s.ctx, userID)
	if err != nil {
		h.log.Warn("failed to load lists on join", "user", userID, "error", err)
		s.enqueue(errorMessage(in.RequestID, engine.Reason(err), engine.Message(err)))
		return
	}
	for _, l := range lists {
		s.enqueue(Message{Type: TypeList, List: l})
	}
}

func (h *Hub) handleUpdate(s *session, in Inbound) {
	userID := s.userID()
	if userID == "" {
		s.enqueue(errorMessage(in.RequestID, engine.ReasonForbidden, "join before sending updates"))
		return
	}
	if in.Patch == nil {
		s.enqueue(errorMessage(in.RequestID, engine.ReasonInvalidArgument, "patch is required"))
		return
	}
	handler := h.getHandler()
	if handler == nil {
		s.enqueue(errorMessage(in.RequestID, engine.ReasonInternal, "updates are not available"))
		return
	}

	list, err := handler.ApplyUpdate(s.ctx, in.ListID, userID, *in.Patch)
	if err != nil {
		if engine.Reason(err) == engine.ReasonInternal {
			h.log.Error("update failed", "session", s.id, "list", in.ListID, "error", err)
		}
		s.enqueue(errorMessage(in.RequestID, engine.Reason(err), engine.Message(err)))
		return
	}
	s.enqueue(Message{Type: TypeAck, RequestID: in.RequestID, ListID: list.ID})
}

func (h *Hub) userSessions(userID string) []*session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.byUser[userID]
	out := make([]*session, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	return out
}

func (h *Hub) deliver(userID string, msg Message) error {
	sessions := h.userSessions(userID)
	if len(sessions) == 0 {
		return ErrNoSession
	}
	delivered := false
	for _, s := range sessions {
		if s.enqueue(msg) {
			delivered = true
		}
	}
	if !delivered {
		return ErrQueueFull
	}
	return nil
}

// Deliver queues list for every session of userID.
func (h *Hub) Deliver(_ context.Context, userID string, list *models.List) error {
	return h.deliver(userID, Message{Type: TypeList, List: list})
}

// DeliverDeleted tells every session of userID that listID is gone.
func (h *Hub) DeliverDeleted(_ context.Context, userID, listID string) error {
	return h.deliver(userID, Message{Type: TypeDeleted, ListID: listID})
}

// BroadcastAll queues list for every open session, joined or not.
func (h *Hub) BroadcastAll(_ context.Context, list *models.List) error {
	h.mu.RLock()
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	msg := Message{Type: TypeList, List: list}
	for _, s := range sessions {
		s.enqueue(msg)
	}
	return nil
}

// SessionCount returns the number of open sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Close closes every session and waits for their writers to stop.
// New upgrades are refused afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
	h.wg.Wait()
}

var (
	_ engine.Transport        = (*Hub)(nil)
	_ engine.DeletionNotifier = (*Hub)(nil)
)
