// Package sqlite implements [github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store.Store]
// on database/sql with the go-sqlite3 driver.
//
// Each list is stored as one JSON document in the lists table. Membership is
// mirrored into list_members so participant queries use an index instead of
// scanning documents. Both rows are written in one transaction.
//
// The pool is limited to a single connection: SQLite serializes writers anyway,
// and a ":memory:" database is private to the connection that created it.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS lists (
	id         TEXT    NOT NULL PRIMARY KEY,
	owner_id   TEXT    NOT NULL,
	created_at INTEGER NOT NULL,
	document   TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS list_members (
	list_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	PRIMARY KEY (list_id, user_id)
);
CREATE INDEX IF NOT EXISTS list_members_user ON list_members (user_id);
CREATE TABLE IF NOT EXISTS users (
	id    TEXT NOT NULL PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name  TEXT NOT NULL
);
`

// SQLiteStore implements store.Store on a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Migrate creates the tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadList(ctx context.Context, id string) (*models.List, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM lists WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load list: %w", err)
	}
	return decodeList(doc)
}

func (s *SQLiteStore) SaveList(ctx context.Context, list *models.List) (err error) {
	doc, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode list: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO lists (id, owner_id, created_at, document) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET document = excluded.document`,
		list.ID, list.OwnerID, list.CreatedAt.UnixNano(), string(doc),
	); err != nil {
		return fmt.Errorf("failed to save list: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM list_members WHERE list_id = ?`, list.ID); err != nil {
		return fmt.Errorf("failed to reset list members: %w", err)
	}
	for _, member := range list.SharedWith {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO list_members (list_id, user_id) VALUES (?, ?)`, list.ID, member,
		); err != nil {
			return fmt.Errorf("failed to save list member: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit list: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteList(ctx context.Context, id string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	if n == 0 {
		err = store.ErrNotFound
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM list_members WHERE list_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete list members: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListsByParticipant(ctx context.Context, userID string) ([]*models.List, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.document FROM lists l
		 JOIN list_members m ON m.list_id = l.id
		 WHERE m.user_id = ?
		 ORDER BY l.created_at, l.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lists: %w", err)
	}
	defer rows.Close()

	out := make([]*models.List, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		l, err := decodeList(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lists: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, `SELECT id, email, name FROM users WHERE id = ?`, id)
}

func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, `SELECT id, email, name FROM users WHERE email = ?`, models.NormalizeEmail(email))
}

func (s *SQLiteStore) findUser(ctx context.Context, query string, arg string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = models.NormalizeEmail(user.Email)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name) VALUES (?, ?, ?)`, user.ID, user.Email, user.Name)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
			return store.ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func decodeList(doc string) (*models.List, error) {
	var l models.List
	if err := json.Unmarshal([]byte(doc), &l); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	if l.Items == nil {
		l.Items = []models.Item{}
	}
	l.CreatedAt = l.CreatedAt.In(time.UTC)
	return &l, nil
}
