package surrealtodo

import (
	"context"
	"errors"
	"fmt"

	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store"
)

// AddUser stores a directory entry and returns it with its id filled in.
func (a *App) AddUser(ctx context.Context, cmd *AddUserCommand) (*models.User, error) {
	user := &models.User{
		ID:    cmd.ID,
		Email: models.NormalizeEmail(cmd.Email),
		Name:  cmd.DisplayName,
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	a.log.Info("user added", "user", user.ID, "email", user.Email)
	return user, nil
}

// SeedUsers adds users to the directory. Users whose id or email is already
// taken are skipped, so a persistent store can be seeded on every start.
func (a *App) SeedUsers(ctx context.Context, users []*AddUserCommand) error {
	for _, u := range users {
		_, err := a.AddUser(ctx, u)
		if errors.Is(err, store.ErrConflict) {
			a.log.Info("user already present", "user", u.ID, "email", u.Email)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}
	}
	return nil
}

// Token signs a bearer token for cmd.UserID.
func (a *App) Token(cmd *TokenCommand) (string, error) {
	if a.verifier == nil {
		return "", errors.New("no token secret configured")
	}
	return a.verifier.Issue(cmd.UserID, cmd.TTL)
}
