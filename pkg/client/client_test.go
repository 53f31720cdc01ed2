package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/client"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
)

func TestErrorResponseBecomesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusLocked)
		_, _ = w.Write([]byte(`{"error":"list is frozen","reason":"locked"}`))
	}))
	defer server.Close()

	title := "x"
	_, err := client.NewClient(server.URL).UpdateList(context.Background(), "l1", models.ListPatch{Title: &title})
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusLocked, apiErr.Status)
	assert.Equal(t, "locked", apiErr.Reason)
	assert.Equal(t, "list is frozen", apiErr.Message)
	assert.True(t, client.IsReason(err, "locked"))
	assert.False(t, client.IsReason(err, "forbidden"))
}

func TestNonJSONErrorKeepsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := client.NewClient(server.URL).GetList(context.Background(), "l1")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, apiErr.Message, "upstream down")
}

type captured struct {
	auth, user, path string
	body             map[string]any
}

func TestRequestsCarryIdentity(t *testing.T) {
	requests := make(chan captured, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := captured{
			auth: r.Header.Get("Authorization"),
			user: r.Header.Get("X-User-ID"),
			path: r.URL.Path,
		}
		_ = json.NewDecoder(r.Body).Decode(&c.body)
		requests <- c
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"l1","frozen":true}`))
	}))
	defer server.Close()

	c := client.NewClient(server.URL)
	c.SetAuthToken("tok")
	c.SetUserID("alice")

	list, err := c.SetFrozen(context.Background(), "l1", true)
	require.NoError(t, err)
	assert.True(t, list.Frozen)

	got := <-requests
	assert.Equal(t, "Bearer tok", got.auth)
	assert.Equal(t, "alice", got.user)
	assert.Equal(t, "/api/lists/l1/frozen", got.path)
	assert.Equal(t, map[string]any{"frozen": true}, got.body)
}
