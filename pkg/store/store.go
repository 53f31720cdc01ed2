// Package store defines the persistence contracts the synchronization engine
// depends on, plus an in-memory implementation and a read-only wrapper.
//
// Two contracts are combined into [Store]:
//
//   - the document store: load, save, delete and participant queries over
//     [github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models.List]
//   - the user directory: lookup by id and by email
//
// Backends live in sub-packages:
//
//   - [github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store/sqlite]: database/sql over go-sqlite3
//   - [github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store/postgres]: GORM over PostgreSQL JSONB
//   - [github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store/surrealdb]: the SurrealDB Go SDK
//
// Missing records are reported with [ErrNotFound], never with a nil result.
// Lists handed to and returned from a store are never shared with the store's
// internal state, so callers may mutate them freely.
package store

import (
	"context"
	"errors"

	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
)

var (
	// ErrNotFound is returned when a list or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a user with the same email already exists.
	ErrConflict = errors.New("already exists")
	// ErrReadOnly is returned by write operations on a read-only store.
	ErrReadOnly = errors.New("operation denied: store is in read-only mode")
)

// ListStore persists list documents by identifier.
type ListStore interface {
	// LoadList returns the list with the given id or ErrNotFound.
	LoadList(ctx context.Context, id string) (*models.List, error)

	// SaveList inserts or fully replaces the list keyed by list.ID.
	SaveList(ctx context.Context, list *models.List) error

	// DeleteList removes the list or returns ErrNotFound.
	DeleteList(ctx context.Context, id string) error

	// ListsByParticipant returns every list whose SharedWith contains userID,
	// oldest first. It returns an empty slice, never nil.
	ListsByParticipant(ctx context.Context, userID string) ([]*models.List, error)
}

// UserDirectory resolves users by identity or lookup key.
type UserDirectory interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Store is the full persistence surface used by the application.
type Store interface {
	ListStore
	UserDirectory

	// CreateUser adds a directory entry. An empty ID is filled in.
	// A duplicate email returns ErrConflict.
	CreateUser(ctx context.Context, user *models.User) error

	// Migrate creates whatever schema the backend needs. It is idempotent.
	Migrate(ctx context.Context) error

	Close() error
}
