package hub

import "github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"

// Inbound message types.
const (
	TypeJoin   = "join"
	TypeUpdate = "update"
	TypeLeave  = "leave"
	TypePing   = "ping"
)

// Outbound message types.
const (
	TypeJoined  = "joined"
	TypeList    = "list"
	TypeDeleted = "deleted"
	TypeAck     = "ack"
	TypeError   = "error"
	TypePong    = "pong"
)

// Inbound is a client message.
type Inbound struct {
	Type      string            `json:"type"`
	RequestID string            `json:"requestId,omitempty"`
	UserID    string            `json:"userId,omitempty"`
	ListID    string            `json:"listId,omitempty"`
	Patch     *models.ListPatch `json:"patch,omitempty"`
}

// Message is a server message. Only the fields relevant to Type are set.
type Message struct {
	Type      string       `json:"type"`
	RequestID string       `json:"requestId,omitempty"`
	SessionID string       `json:"sessionId,omitempty"`
	UserID    string       `json:"userId,omitempty"`
	ListID    string       `json:"listId,omitempty"`
	List      *models.List `json:"list,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Message   string       `json:"message,omitempty"`
}

func errorMessage(requestID, reason, msg string) Message {
	return Message{Type: TypeError, RequestID: requestID, Reason: reason, Message: msg}
}
