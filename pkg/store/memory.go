package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
)

// MemoryStore keeps everything in process memory. It is the default backend for
// development and the reference backend for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	lists   map[string]*models.List
	users   map[string]*models.User
	byEmail map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lists:   make(map[string]*models.List),
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryStore) LoadList(ctx context.Context, id string) (*models.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.lists[id]
	if !ok {
		return nil, ErrNotFound
	}
	return l.Clone(), nil
}

func (m *MemoryStore) SaveList(ctx context.Context, list *models.List) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lists[list.ID] = list.Clone()
	return nil
}

func (m *MemoryStore) DeleteList(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lists[id]; !ok {
		return ErrNotFound
	}
	delete(m.lists, id)
	return nil
}

func (m *MemoryStore) ListsByParticipant(ctx context.Context, userID string) ([]*models.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.List, 0)
	for _, l := range m.lists {
		if l.IsMember(userID) {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	c := *m.users[id]
	return &c, nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = models.NormalizeEmail(user.Email)
	if _, dup := m.byEmail[user.Email]; dup {
		return ErrConflict
	}
	if _, dup := m.users[user.ID]; dup {
		return ErrConflict
	}
	c := *user
	m.users[user.ID] = &c
	m.byEmail[user.Email] = user.ID
	return nil
}

// Migrate is a no-op: there is no schema to create.
func (m *MemoryStore) Migrate(context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
