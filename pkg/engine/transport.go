package engine

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
)

// Transport delivers list state to connected users.
// Implementations must not block on slow receivers.
type Transport interface {
	// Deliver sends list to every session of userID.
	Deliver(ctx context.Context, userID string, list *models.List) error
	// BroadcastAll sends list to every connected session.
	BroadcastAll(ctx context.Context, list *models.List) error
}

// DeletionNotifier is implemented by transports that can tell a user a list
// is gone.
type DeletionNotifier interface {
	DeliverDeleted(ctx context.Context, userID, listID string) error
}

// Presence answers which users are reachable.
type Presence interface {
	Reachable(userIDs []string) []string
}

// DeliveryMode selects how updated lists reach clients.
type DeliveryMode string

const (
	// DeliveryTargeted sends to each reachable member of the list.
	DeliveryTargeted DeliveryMode = "targeted"
	// DeliveryBroadcast sends every update to every connected session.
	// It ignores membership and exists for deployments without presence.
	DeliveryBroadcast DeliveryMode = "broadcast"
)

func ParseDeliveryMode(s string) (DeliveryMode, error) {
	switch DeliveryMode(s) {
	case DeliveryTargeted, "":
		return DeliveryTargeted, nil
	case DeliveryBroadcast:
		return DeliveryBroadcast, nil
	default:
		return "", fmt.Errorf("unknown delivery mode %q", s)
	}
}

type nopTransport struct{}

func (nopTransport) Deliver(context.Context, string, *models.List) error { return nil }

func (nopTransport) BroadcastAll(context.Context, *models.List) error { return nil }
