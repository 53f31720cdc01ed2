//go:build integration

package surrealdb_test

import (
	"context"
	"os"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store/storetest"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store/surrealdb"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestSurrealStore(t *testing.T) {
	url := os.Getenv("SURREALDB_URL")
	if url == "" {
		t.Skip("SURREALDB_URL not set")
	}
	user := getEnv("SURREALDB_USER", "root")
	pass := getEnv("SURREALDB_PASS", "root")

	storetest.Run(t, func(t *testing.T) store.Store {
		// A fresh database per subtest keeps runs independent.
		database := "t" + ulid.Make().String()
		s, err := surrealdb.NewSurrealStore(url, "surrealtodo_test", database, user, pass)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		require.NoError(t, s.Migrate(context.Background()))
		return s
	})
}
