package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/codec"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/hub"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
)

// Stream is a websocket session with the server. It is not safe for
// concurrent use.
type Stream struct {
	conn  *gorilla.Conn
	codec codec.Codec
}

// Dial opens the realtime channel, asking for the given codec name. The
// server may settle on JSON instead; [Stream.Codec] reports the outcome.
func (c *Client) Dial(ctx context.Context, codecName string) (*Stream, error) {
	u := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/ws"

	header := http.Header{}
	c.setIdentity(header)

	d := gorilla.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if codecName != "" {
		d.Subprotocols = []string{codecName}
	}

	conn, resp, err := d.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed: status=%d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	cd, err := codec.ForName(conn.Subprotocol())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Stream{conn: conn, codec: cd}, nil
}

// Codec returns the negotiated codec.
func (s *Stream) Codec() codec.Codec {
	return s.codec
}

// Send writes one envelope.
func (s *Stream) Send(ctx context.Context, in hub.Inbound) error {
	data, err := s.codec.Marshal(in)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
	}
	frame := gorilla.TextMessage
	if s.codec.Binary() {
		frame = gorilla.BinaryMessage
	}
	return s.conn.WriteMessage(frame, data)
}

// Next blocks until the next server message or until ctx's deadline.
func (s *Stream) Next(ctx context.Context) (hub.Message, error) {
	var msg hub.Message
	// A zero deadline blocks indefinitely.
	deadline, _ := ctx.Deadline()
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return msg, err
	}
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return msg, err
	}
	if err := s.codec.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("failed to decode message: %w", err)
	}
	return msg, nil
}

// Join binds the session to userID and returns the server's acknowledgement.
// The user's lists follow as separate messages.
func (s *Stream) Join(ctx context.Context, userID string) (hub.Message, error) {
	if err := s.Send(ctx, hub.Inbound{Type: hub.TypeJoin, UserID: userID}); err != nil {
		return hub.Message{}, err
	}
	msg, err := s.Next(ctx)
	if err != nil {
		return msg, err
	}
	if msg.Type != hub.TypeJoined {
		return msg, fmt.Errorf("join rejected: %s: %s", msg.Reason, msg.Message)
	}
	return msg, nil
}

// Update sends a patch tagged with requestID. The outcome arrives later as
// an ack or error message carrying the same id.
func (s *Stream) Update(ctx context.Context, requestID, listID string, patch models.ListPatch) error {
	return s.Send(ctx, hub.Inbound{
		Type:      hub.TypeUpdate,
		RequestID: requestID,
		ListID:    listID,
		Patch:     &patch,
	})
}

// Close closes the connection.
func (s *Stream) Close() error {
	return s.conn.Close()
}
