package store

import (
	"context"

	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
)

// ReadOnlyStore wraps a Store and rejects writes while isReadOnly reports true.
//
// The flag is consulted on every write, so maintenance windows can be opened
// and closed at runtime without rebuilding the store. Reads always pass through.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore creates a read-only wrapper for a store.
func NewReadOnlyStore(store Store, isReadOnly func() bool) *ReadOnlyStore {
	return &ReadOnlyStore{
		Store:      store,
		isReadOnly: isReadOnly,
	}
}

func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly() {
		return ErrReadOnly
	}
	return nil
}

func (r *ReadOnlyStore) SaveList(ctx context.Context, list *models.List) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.SaveList(ctx, list)
}

func (r *ReadOnlyStore) DeleteList(ctx context.Context, id string) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteList(ctx, id)
}

func (r *ReadOnlyStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateUser(ctx, user)
}
