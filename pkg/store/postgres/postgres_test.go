//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store/postgres"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store/storetest"
)

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := postgres.NewPostgresStore(dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		ctx := context.Background()
		require.NoError(t, s.Migrate(ctx))
		require.NoError(t, s.Truncate(ctx))
		return s
	})
}
