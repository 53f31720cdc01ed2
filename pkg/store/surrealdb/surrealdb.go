// Package surrealdb implements [github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store.Store]
// on SurrealDB using native SurrealQL.
//
// Lists are records in the lists table keyed by list id; users are records in
// the users table keyed by user id. Timestamps are stored as unix nanoseconds
// so ordering does not depend on how the driver encodes datetimes. Items are
// stored as a JSON string, which keeps the driver's CBOR frames shallow however
// deeply subtasks nest.
//
//	s, err := surrealdb.NewSurrealStore("ws://localhost:8000", "todo", "todo", "root", "root")
//	if err != nil {
//		return err
//	}
//	defer s.Close()
package surrealdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store"
)

const (
	listsTable = "lists"
	usersTable = "users"
)

// listDoc is the stored shape of a list.
type listDoc struct {
	ListID     string        `json:"list_id"`
	Title      string        `json:"title"`
	OwnerID    string        `json:"owner_id"`
	SharedWith []string      `json:"shared_with"`
	Frozen     bool          `json:"frozen"`
	Items      string        `json:"items"`
	CreatedAt  int64         `json:"created_at"`
	UpdatedAt  int64         `json:"updated_at"`
}

func toDoc(l *models.List) (listDoc, error) {
	items, err := json.Marshal(l.Items)
	if err != nil {
		return listDoc{}, fmt.Errorf("failed to encode items: %w", err)
	}
	return listDoc{
		ListID:     l.ID,
		Title:      l.Title,
		OwnerID:    l.OwnerID,
		SharedWith: append([]string(nil), l.SharedWith...),
		Frozen:     l.Frozen,
		Items:      string(items),
		CreatedAt:  l.CreatedAt.UnixNano(),
		UpdatedAt:  l.UpdatedAt.UnixNano(),
	}, nil
}

func (d *listDoc) toList() (*models.List, error) {
	l := &models.List{
		ID:         d.ListID,
		Title:      d.Title,
		OwnerID:    d.OwnerID,
		SharedWith: d.SharedWith,
		Frozen:     d.Frozen,
		CreatedAt:  time.Unix(0, d.CreatedAt).UTC(),
		UpdatedAt:  time.Unix(0, d.UpdatedAt).UTC(),
	}
	if d.Items != "" {
		if err := json.Unmarshal([]byte(d.Items), &l.Items); err != nil {
			return nil, fmt.Errorf("failed to decode items of list %s: %w", d.ListID, err)
		}
	}
	if l.SharedWith == nil {
		l.SharedWith = []string{}
	}
	if l.Items == nil {
		l.Items = []models.Item{}
	}
	return l, nil
}

type userDoc struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// SurrealStore implements store.Store on a SurrealDB namespace and database.
type SurrealStore struct {
	db *surrealdb.DB
}

// NewSurrealStore connects to the SurrealDB endpoint at url, signs in when
// credentials are given and selects namespace and database.
func NewSurrealStore(url, namespace, database, username, password string) (*SurrealStore, error) {
	ctx := context.Background()

	db, err := surrealdb.FromEndpointURLString(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if username != "" && password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": username,
			"pass": password,
		}); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, namespace, database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	return &SurrealStore{db: db}, nil
}

// Migrate defines the indexes used by participant and email lookups.
// Tables themselves are created on first write.
func (s *SurrealStore) Migrate(ctx context.Context) error {
	query := `
		DEFINE INDEX IF NOT EXISTS lists_shared_with ON TABLE lists FIELDS shared_with;
		DEFINE INDEX IF NOT EXISTS users_email ON TABLE users FIELDS email UNIQUE;
	`
	if _, err := surrealdb.Query[any](ctx, s.db, query, nil); err != nil {
		return fmt.Errorf("failed to migrate surrealdb schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SurrealStore) Close() error {
	return s.db.Close(context.Background())
}

func (s *SurrealStore) LoadList(ctx context.Context, id string) (*models.List, error) {
	query := "SELECT * FROM type::thing($tb, $id)"
	docs, err := queryFirst[listDoc](ctx, s.db, query, map[string]any{
		"tb": listsTable,
		"id": id,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load list: %w", err)
	}
	if len(docs) == 0 {
		return nil, store.ErrNotFound
	}
	return docs[0].toList()
}

func (s *SurrealStore) SaveList(ctx context.Context, list *models.List) error {
	doc, err := toDoc(list)
	if err != nil {
		return err
	}
	query := "UPSERT type::thing($tb, $id) CONTENT $doc"
	_, err = queryFirst[listDoc](ctx, s.db, query, map[string]any{
		"tb":  listsTable,
		"id":  list.ID,
		"doc": doc,
	})
	if err != nil {
		return fmt.Errorf("failed to save list: %w", err)
	}
	return nil
}

func (s *SurrealStore) DeleteList(ctx context.Context, id string) error {
	query := "DELETE type::thing($tb, $id) RETURN BEFORE"
	docs, err := queryFirst[listDoc](ctx, s.db, query, map[string]any{
		"tb": listsTable,
		"id": id,
	})
	if err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	if len(docs) == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SurrealStore) ListsByParticipant(ctx context.Context, userID string) ([]*models.List, error) {
	query := "SELECT * FROM lists WHERE shared_with CONTAINS $user ORDER BY created_at, list_id"
	docs, err := queryFirst[listDoc](ctx, s.db, query, map[string]any{
		"user": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query lists: %w", err)
	}

	out := make([]*models.List, 0, len(docs))
	for i := range docs {
		l, err := docs[i].toList()
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *SurrealStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, "SELECT * FROM type::thing($tb, $id)", map[string]any{
		"tb": usersTable,
		"id": id,
	})
}

func (s *SurrealStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "SELECT * FROM users WHERE email = $email LIMIT 1", map[string]any{
		"email": models.NormalizeEmail(email),
	})
}

func (s *SurrealStore) findUser(ctx context.Context, query string, vars map[string]any) (*models.User, error) {
	docs, err := queryFirst[userDoc](ctx, s.db, query, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if len(docs) == 0 {
		return nil, store.ErrNotFound
	}
	return &models.User{ID: docs[0].UserID, Email: docs[0].Email, Name: docs[0].Name}, nil
}

func (s *SurrealStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = models.NormalizeEmail(user.Email)

	doc := userDoc{UserID: user.ID, Email: user.Email, Name: user.Name}
	query := "CREATE type::thing($tb, $id) CONTENT $doc"
	_, err := queryFirst[userDoc](ctx, s.db, query, map[string]any{
		"tb":  usersTable,
		"id":  user.ID,
		"doc": doc,
	})
	if isDuplicate(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// queryFirst runs query and returns the rows of its first statement.
func queryFirst[T any](ctx context.Context, db *surrealdb.DB, query string, vars map[string]any) ([]T, error) {
	res, err := surrealdb.Query[[]T](ctx, db, query, vars)
	if err != nil {
		return nil, err
	}
	if res == nil || len(*res) == 0 {
		return nil, nil
	}
	first := (*res)[0]
	if first.Status != "OK" {
		return nil, fmt.Errorf("query failed with status %s", first.Status)
	}
	return first.Result, nil
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "already contains")
}
