package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store/sqlite"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store/storetest"
)

// openSQLite skips the test when the driver is unusable, which is the case for
// binaries built with CGO_ENABLED=0.
func openSQLite(t *testing.T, path string) *sqlite.SQLiteStore {
	t.Helper()
	s, err := sqlite.NewSQLiteStore(path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return openSQLite(t, ":memory:")
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lists.db")
	ctx := context.Background()

	first := openSQLite(t, path)
	require.NoError(t, first.CreateUser(ctx, &models.User{Email: "Carol@Example.com", Name: "Carol"}))
	require.NoError(t, first.Close())

	second := openSQLite(t, path)
	u, err := second.FindUserByEmail(ctx, "carol@example.com")
	require.NoError(t, err)
	require.Equal(t, "Carol", u.Name)
}
