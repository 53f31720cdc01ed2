package hub_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/auth"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/codec"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/engine"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/hub"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/presence"
)

type fakeHandler struct {
	mu        sync.Mutex
	lists     map[string][]*models.List
	updateErr error
	updates   []string
}

func (f *fakeHandler) ApplyUpdate(_ context.Context, listID, requesterID string, _ models.ListPatch) (*models.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, requesterID+"@"+listID)
	return &models.List{ID: listID}, nil
}

func (f *fakeHandler) ListByParticipant(_ context.Context, userID string) ([]*models.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists[userID], nil
}

type env struct {
	hub      *hub.Hub
	tracker  *presence.Tracker
	handler  *fakeHandler
	server   *httptest.Server
	verifier *auth.Verifier
}

func newEnv(t *testing.T, withAuth bool) *env {
	t.Helper()
	e := &env{
		tracker: presence.New(time.Hour),
		handler: &fakeHandler{lists: map[string][]*models.List{}},
	}
	if withAuth {
		v, err := auth.NewVerifier("test-secret")
		require.NoError(t, err)
		e.verifier = v
	}

	e.hub = hub.New(hub.Config{Presence: e.tracker, RequireAuth: withAuth})
	e.hub.SetHandler(e.handler)

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware(e.verifier))
	api.Handle("/ws", e.hub)
	e.server = httptest.NewServer(router)

	t.Cleanup(func() {
		e.hub.Close()
		e.server.Close()
		e.tracker.Close()
	})
	return e
}

func (e *env) url(query string) string {
	u := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/api/ws"
	if query != "" {
		u += "?" + query
	}
	return u
}

func dial(t *testing.T, url string, subprotocols ...string) *gorilla.Conn {
	t.Helper()
	d := gorilla.Dialer{Subprotocols: subprotocols, HandshakeTimeout: 2 * time.Second}
	conn, _, err := d.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *gorilla.Conn, in hub.Inbound) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(in))
}

func read(t *testing.T, conn *gorilla.Conn) hub.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m hub.Message
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func join(t *testing.T, conn *gorilla.Conn, userID string) hub.Message {
	t.Helper()
	send(t, conn, hub.Inbound{Type: hub.TypeJoin, UserID: userID})
	m := read(t, conn)
	require.Equal(t, hub.TypeJoined, m.Type, "unexpected %+v", m)
	return m
}

func TestJoinTouchesAndSendsLists(t *testing.T) {
	e := newEnv(t, false)
	e.handler.lists["u1"] = []*models.List{{ID: "l1", Title: "trip"}}

	conn := dial(t, e.url(""))
	joined := join(t, conn, "u1")
	assert.Equal(t, "u1", joined.UserID)
	assert.NotEmpty(t, joined.SessionID)

	m := read(t, conn)
	assert.Equal(t, hub.TypeList, m.Type)
	require.NotNil(t, m.List)
	assert.Equal(t, "trip", m.List.Title)

	assert.True(t, e.tracker.IsReachable("u1"))
	assert.Equal(t, 1, e.hub.SessionCount())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return !e.tracker.IsReachable("u1") && e.hub.SessionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReleaseOnLastSession(t *testing.T) {
	e := newEnv(t, false)

	first := dial(t, e.url(""))
	second := dial(t, e.url(""))
	join(t, first, "u1")
	join(t, second, "u1")

	require.NoError(t, first.Close())
	assert.Eventually(t, func() bool {
		return e.hub.SessionCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, e.tracker.IsReachable("u1"))

	require.NoError(t, second.Close())
	assert.Eventually(t, func() bool {
		return !e.tracker.IsReachable("u1")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLeaveReleases(t *testing.T) {
	e := newEnv(t, false)
	conn := dial(t, e.url(""))
	join(t, conn, "u1")

	send(t, conn, hub.Inbound{Type: hub.TypeLeave})
	send(t, conn, hub.Inbound{Type: hub.TypePing, RequestID: "p"})
	assert.Equal(t, hub.TypePong, read(t, conn).Type)
	assert.False(t, e.tracker.IsReachable("u1"))
}

func TestDeliverTargetsUserSessions(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()

	a1 := dial(t, e.url(""))
	a2 := dial(t, e.url(""))
	b := dial(t, e.url(""))
	join(t, a1, "u1")
	join(t, a2, "u1")
	join(t, b, "u2")

	require.NoError(t, e.hub.Deliver(ctx, "u1", &models.List{ID: "l1", Title: "mine"}))
	for _, conn := range []*gorilla.Conn{a1, a2} {
		m := read(t, conn)
		assert.Equal(t, hub.TypeList, m.Type)
		assert.Equal(t, "mine", m.List.Title)
	}

	// u2 got nothing: its next message is the pong.
	send(t, b, hub.Inbound{Type: hub.TypePing, RequestID: "p1"})
	pong := read(t, b)
	assert.Equal(t, hub.TypePong, pong.Type)
	assert.Equal(t, "p1", pong.RequestID)

	require.NoError(t, e.hub.DeliverDeleted(ctx, "u2", "l9"))
	m := read(t, b)
	assert.Equal(t, hub.TypeDeleted, m.Type)
	assert.Equal(t, "l9", m.ListID)

	assert.ErrorIs(t, e.hub.Deliver(ctx, "ghost", &models.List{ID: "l1"}), hub.ErrNoSession)

	require.NoError(t, e.hub.BroadcastAll(ctx, &models.List{ID: "l2", Title: "all"}))
	for _, conn := range []*gorilla.Conn{a1, a2, b} {
		assert.Equal(t, "all", read(t, conn).List.Title)
	}
}

func TestUpdate(t *testing.T) {
	e := newEnv(t, false)
	conn := dial(t, e.url(""))
	title := "x"

	send(t, conn, hub.Inbound{Type: hub.TypeUpdate, RequestID: "r0", ListID: "l1", Patch: &models.ListPatch{Title: &title}})
	m := read(t, conn)
	assert.Equal(t, hub.TypeError, m.Type)
	assert.Equal(t, engine.ReasonForbidden, m.Reason)
	assert.Equal(t, "r0", m.RequestID)

	join(t, conn, "u1")

	send(t, conn, hub.Inbound{Type: hub.TypeUpdate, RequestID: "r1", ListID: "l1"})
	m = read(t, conn)
	assert.Equal(t, engine.ReasonInvalidArgument, m.Reason)

	send(t, conn, hub.Inbound{Type: hub.TypeUpdate, RequestID: "r2", ListID: "l1", Patch: &models.ListPatch{Title: &title}})
	m = read(t, conn)
	assert.Equal(t, hub.TypeAck, m.Type)
	assert.Equal(t, "r2", m.RequestID)
	assert.Equal(t, "l1", m.ListID)
	e.handler.mu.Lock()
	assert.Equal(t, []string{"u1@l1"}, e.handler.updates)
	e.handler.updateErr = &engine.Error{Op: "applyUpdate", Kind: engine.ErrLocked, Msg: "list is frozen"}
	e.handler.mu.Unlock()

	send(t, conn, hub.Inbound{Type: hub.TypeUpdate, RequestID: "r3", ListID: "l1", Patch: &models.ListPatch{Title: &title}})
	m = read(t, conn)
	assert.Equal(t, hub.TypeError, m.Type)
	assert.Equal(t, engine.ReasonLocked, m.Reason)
	assert.Equal(t, "list is frozen", m.Message)
	assert.Equal(t, "r3", m.RequestID)
}

func TestMalformedAndUnknownMessages(t *testing.T) {
	e := newEnv(t, false)
	conn := dial(t, e.url(""))

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte("{")))
	assert.Equal(t, engine.ReasonInvalidArgument, read(t, conn).Reason)

	send(t, conn, hub.Inbound{Type: "dance", RequestID: "d"})
	m := read(t, conn)
	assert.Equal(t, engine.ReasonInvalidArgument, m.Reason)
	assert.Equal(t, "d", m.RequestID)

	send(t, conn, hub.Inbound{Type: hub.TypeJoin})
	assert.Equal(t, engine.ReasonInvalidArgument, read(t, conn).Reason)
}

func TestCBORSubprotocol(t *testing.T) {
	e := newEnv(t, false)
	conn := dial(t, e.url(""), codec.NameCBOR)
	require.Equal(t, codec.NameCBOR, conn.Subprotocol())

	c := codec.CBOR{}
	data, err := c.Marshal(hub.Inbound{Type: hub.TypeJoin, UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(gorilla.BinaryMessage, data))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, gorilla.BinaryMessage, mt)

	var m hub.Message
	require.NoError(t, c.Unmarshal(frame, &m))
	assert.Equal(t, hub.TypeJoined, m.Type)
	assert.Equal(t, "u1", m.UserID)
}

func TestAuthenticatedSessionsArePinned(t *testing.T) {
	e := newEnv(t, true)

	d := gorilla.Dialer{HandshakeTimeout: 2 * time.Second}
	_, resp, err := d.Dial(e.url(""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := e.verifier.Issue("u1", time.Hour)
	require.NoError(t, err)
	conn := dial(t, e.url("token="+token))

	assert.Eventually(t, func() bool {
		return e.tracker.IsReachable("u1")
	}, 2*time.Second, 10*time.Millisecond)

	send(t, conn, hub.Inbound{Type: hub.TypeJoin, UserID: "u2", RequestID: "j1"})
	m := read(t, conn)
	assert.Equal(t, hub.TypeError, m.Type)
	assert.Equal(t, engine.ReasonForbidden, m.Reason)

	joined := join(t, conn, "")
	assert.Equal(t, "u1", joined.UserID)
}
