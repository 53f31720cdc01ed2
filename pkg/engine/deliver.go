package engine

import (
	"context"

	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
)

// deliver hands list to the transport. It runs under the list lock, so
// recipients observe one list's states in the order they were saved.
// Failures are logged and never returned.
func (e *Engine) deliver(ctx context.Context, requesterID string, list *models.List) {
	callerGone := ctx.Err() != nil
	dctx, cancel := e.bounded(ctx)
	defer cancel()

	if e.mode == DeliveryBroadcast {
		if err := e.transport.BroadcastAll(dctx, list.Clone()); err != nil {
			e.log.Warn("broadcast failed", "list", list.ID, "error", err)
		}
		return
	}

	for _, userID := range e.presence.Reachable(list.SharedWith) {
		if callerGone && userID == requesterID {
			continue
		}
		if err := e.transport.Deliver(dctx, userID, list.Clone()); err != nil {
			e.log.Warn("delivery failed", "list", list.ID, "user", userID, "error", err)
		}
	}
}

// deliverDeleted tells reachable former members that list is gone, when the
// transport supports it.
func (e *Engine) deliverDeleted(ctx context.Context, requesterID string, list *models.List) {
	notifier, ok := e.transport.(DeletionNotifier)
	if !ok || e.presence == nil {
		return
	}
	callerGone := ctx.Err() != nil
	dctx, cancel := e.bounded(ctx)
	defer cancel()

	for _, userID := range e.presence.Reachable(list.SharedWith) {
		if callerGone && userID == requesterID {
			continue
		}
		if err := notifier.DeliverDeleted(dctx, userID, list.ID); err != nil {
			e.log.Warn("delete notice failed", "list", list.ID, "user", userID, "error", err)
		}
	}
}
