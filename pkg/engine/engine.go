// Package engine applies list mutations under ownership, membership and freeze
// rules, and hands the resulting state to a [Transport] for delivery.
//
// Every read-modify-write on a list runs under a lock keyed by the list id, so
// mutations of one list are applied and delivered in order while different
// lists proceed independently. Store calls are bounded by the operation
// timeout and detached from the caller's cancellation: once accepted, a
// mutation is persisted and delivered even if its caller goes away. The only
// effect of a canceled caller is that its own copy of the result is skipped.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/logger"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store"
)

// DefaultOpTimeout bounds each store or directory call.
const DefaultOpTimeout = 10 * time.Second

type Config struct {
	Lists    store.ListStore
	Users    store.UserDirectory
	Presence Presence

	// Transport may be nil, in which case nothing is delivered.
	Transport Transport
	Mode      DeliveryMode
	OpTimeout time.Duration
	Logger    logger.Logger

	// Now overrides the clock used for timestamps.
	Now func() time.Time
}

type Engine struct {
	lists     store.ListStore
	users     store.UserDirectory
	presence  Presence
	transport Transport
	mode      DeliveryMode
	opTimeout time.Duration
	log       logger.Logger
	now       func() time.Time

	locks *keyedMutex
}

func New(cfg Config) (*Engine, error) {
	if cfg.Lists == nil {
		return nil, errors.New("engine: list store is required")
	}
	if cfg.Users == nil {
		return nil, errors.New("engine: user directory is required")
	}
	mode, err := ParseDeliveryMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	if mode == DeliveryTargeted && cfg.Presence == nil {
		return nil, errors.New("engine: targeted delivery requires presence")
	}

	e := &Engine{
		lists:     cfg.Lists,
		users:     cfg.Users,
		presence:  cfg.Presence,
		transport: cfg.Transport,
		mode:      mode,
		opTimeout: cfg.OpTimeout,
		log:       cfg.Logger,
		now:       cfg.Now,
		locks:     newKeyedMutex(),
	}
	if e.transport == nil {
		e.transport = nopTransport{}
	}
	if e.opTimeout <= 0 {
		e.opTimeout = DefaultOpTimeout
	}
	if e.log == nil {
		e.log = logger.Nop()
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	return e, nil
}

// Mode returns the delivery mode in effect.
func (e *Engine) Mode() DeliveryMode {
	return e.mode
}

// bounded returns a context for one store call. It survives cancellation of
// ctx but not the operation timeout.
func (e *Engine) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), e.opTimeout)
}

func (e *Engine) loadList(ctx context.Context, op, listID string) (*models.List, error) {
	ctx, cancel := e.bounded(ctx)
	defer cancel()

	list, err := e.lists.LoadList(ctx, listID)
	if err != nil {
		return nil, fromStore(op, "list", err)
	}
	return list, nil
}

func (e *Engine) saveList(ctx context.Context, op string, list *models.List) error {
	ctx, cancel := e.bounded(ctx)
	defer cancel()

	if err := e.lists.SaveList(ctx, list); err != nil {
		return fromStore(op, "list", err)
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Create makes an empty list owned by ownerID.
func (e *Engine) Create(ctx context.Context, ownerID string) (*models.List, error) {
	const op = "create"
	if blank(ownerID) {
		return nil, newError(op, ErrInvalidArgument, "owner id is required")
	}

	lookupCtx, cancel := e.bounded(ctx)
	_, err := e.users.FindUserByID(lookupCtx, ownerID)
	cancel()
	if err != nil {
		return nil, fromStore(op, "user", err)
	}

	list := models.NewList(ownerID, e.now())
	if err := e.saveList(ctx, op, list); err != nil {
		return nil, err
	}
	e.log.Info("list created", "list", list.ID, "owner", ownerID)
	return list, nil
}

// Get returns the list if requesterID is one of its members.
func (e *Engine) Get(ctx context.Context, listID, requesterID string) (*models.List, error) {
	const op = "get"
	if blank(listID) {
		return nil, newError(op, ErrInvalidArgument, "list id is required")
	}
	if blank(requesterID) {
		return nil, newError(op, ErrInvalidArgument, "user id is required")
	}

	list, err := e.loadList(ctx, op, listID)
	if err != nil {
		return nil, err
	}
	if !list.IsMember(requesterID) {
		return nil, newError(op, ErrForbidden, "not a member of this list")
	}
	return list, nil
}

// ListByParticipant returns the lists userID is a member of, oldest first.
func (e *Engine) ListByParticipant(ctx context.Context, userID string) ([]*models.List, error) {
	const op = "listByParticipant"
	if blank(userID) {
		return nil, newError(op, ErrInvalidArgument, "user id is required")
	}

	ctx, cancel := e.bounded(ctx)
	defer cancel()

	lists, err := e.lists.ListsByParticipant(ctx, userID)
	if err != nil {
		return nil, fromStore(op, "lists", err)
	}
	return lists, nil
}

// Delete removes the list. Only the owner may delete, frozen or not.
func (e *Engine) Delete(ctx context.Context, listID, requesterID string) error {
	const op = "delete"
	if blank(listID) {
		return newError(op, ErrInvalidArgument, "list id is required")
	}
	if blank(requesterID) {
		return newError(op, ErrInvalidArgument, "user id is required")
	}

	unlock := e.locks.Lock(listID)
	defer unlock()

	list, err := e.loadList(ctx, op, listID)
	if err != nil {
		return err
	}
	if !list.IsOwner(requesterID) {
		return newError(op, ErrForbidden, "only the owner can delete a list")
	}

	delCtx, cancel := e.bounded(ctx)
	err = e.lists.DeleteList(delCtx, listID)
	cancel()
	if err != nil {
		return fromStore(op, "list", err)
	}

	e.log.Info("list deleted", "list", listID, "owner", requesterID)
	e.deliverDeleted(ctx, requesterID, list)
	return nil
}

// SetFrozen locks or unlocks the list against updates. Owner only.
func (e *Engine) SetFrozen(ctx context.Context, listID, requesterID string, frozen bool) (*models.List, error) {
	const op = "setFrozen"
	if blank(listID) {
		return nil, newError(op, ErrInvalidArgument, "list id is required")
	}
	if blank(requesterID) {
		return nil, newError(op, ErrInvalidArgument, "user id is required")
	}

	unlock := e.locks.Lock(listID)
	defer unlock()

	list, err := e.loadList(ctx, op, listID)
	if err != nil {
		return nil, err
	}
	if !list.IsOwner(requesterID) {
		return nil, newError(op, ErrForbidden, "only the owner can freeze a list")
	}
	if list.Frozen == frozen {
		return list, nil
	}

	list.Frozen = frozen
	list.UpdatedAt = e.now()
	if err := e.saveList(ctx, op, list); err != nil {
		return nil, err
	}

	e.log.Info("list freeze changed", "list", listID, "frozen", frozen)
	e.deliver(ctx, requesterID, list)
	return list, nil
}

// Share adds the user registered under email to the list's members.
// The requester must be a member and the list must not be frozen.
func (e *Engine) Share(ctx context.Context, listID, requesterID, email string) (*models.List, error) {
	const op = "share"
	if blank(listID) {
		return nil, newError(op, ErrInvalidArgument, "list id is required")
	}
	if blank(requesterID) {
		return nil, newError(op, ErrInvalidArgument, "user id is required")
	}
	if blank(email) {
		return nil, newError(op, ErrInvalidArgument, "email is required")
	}

	unlock := e.locks.Lock(listID)
	defer unlock()

	list, err := e.loadList(ctx, op, listID)
	if err != nil {
		return nil, err
	}
	if !list.IsMember(requesterID) {
		return nil, newError(op, ErrForbidden, "not a member of this list")
	}
	if list.Frozen {
		return nil, newError(op, ErrLocked, "list is frozen")
	}

	lookupCtx, cancel := e.bounded(ctx)
	target, err := e.users.FindUserByEmail(lookupCtx, email)
	cancel()
	if err != nil {
		return nil, fromStore(op, "user", err)
	}
	if !list.AddMember(target.ID) {
		return nil, newError(op, ErrConflict, "list is already shared with this user")
	}

	list.UpdatedAt = e.now()
	if err := e.saveList(ctx, op, list); err != nil {
		return nil, err
	}

	e.log.Info("list shared", "list", listID, "by", requesterID, "with", target.ID)
	e.deliver(ctx, requesterID, list)
	return list, nil
}

// ApplyUpdate merges patch into the list on behalf of a member.
// A frozen list is rejected before anything is applied.
func (e *Engine) ApplyUpdate(ctx context.Context, listID, requesterID string, patch models.ListPatch) (*models.List, error) {
	const op = "applyUpdate"
	if blank(listID) {
		return nil, newError(op, ErrInvalidArgument, "list id is required")
	}
	if blank(requesterID) {
		return nil, newError(op, ErrInvalidArgument, "user id is required")
	}
	if err := models.ValidatePatch(&patch); err != nil {
		return nil, &Error{Op: op, Kind: ErrInvalidArgument, Msg: err.Error(), Err: err}
	}

	unlock := e.locks.Lock(listID)
	defer unlock()

	list, err := e.loadList(ctx, op, listID)
	if err != nil {
		return nil, err
	}
	if !list.IsMember(requesterID) {
		return nil, newError(op, ErrForbidden, "not a member of this list")
	}
	if list.Frozen {
		return nil, newError(op, ErrLocked, "list is frozen")
	}

	list.Apply(patch)
	list.UpdatedAt = e.now()
	if err := e.saveList(ctx, op, list); err != nil {
		return nil, err
	}

	e.log.Debug("list updated", "list", listID, "by", requesterID)
	e.deliver(ctx, requesterID, list)
	return list, nil
}
