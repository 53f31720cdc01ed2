// Package storetest holds the behavioral contract every store backend must pass.
// Backend packages call [Run] from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store"
)

// Opener returns a fresh, migrated, empty store. It registers its own cleanup.
type Opener func(t *testing.T) store.Store

// Run exercises open against the store contract.
func Run(t *testing.T, open Opener) {
	t.Run("LoadMissing", func(t *testing.T) { testLoadMissing(t, open(t)) })
	t.Run("SaveLoadRoundTrip", func(t *testing.T) { testSaveLoad(t, open(t)) })
	t.Run("SaveReplaces", func(t *testing.T) { testSaveReplaces(t, open(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, open(t)) })
	t.Run("ListsByParticipant", func(t *testing.T) { testByParticipant(t, open(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("ReturnedListsAreDetached", func(t *testing.T) { testDetached(t, open(t)) })
	t.Run("MaxDepthItems", func(t *testing.T) { testMaxDepth(t, open(t)) })
}

func sampleList(owner string, created time.Time) *models.List {
	l := models.NewList(owner, created)
	l.Items = []models.Item{{
		ID:    "i1",
		Index: 0,
		Title: "buy milk",
		Cost:  2.5,
		Type:  "errand",
		CustomFields: []models.CustomField{
			{Title: "store", Value: models.TextValue("corner")},
			{Title: "liters", Value: models.NumberValue(2)},
			{Title: "organic", Value: models.BoolValue(true), Required: true},
		},
		Subtasks: []models.Subtask{{
			ID:    "s1",
			Title: "check fridge",
			Subtasks: []models.Subtask{{
				ID:    "s1a",
				Title: "open door",
				Done:  true,
			}},
		}},
	}}
	return l
}

func testLoadMissing(t *testing.T, s store.Store) {
	_, err := s.LoadList(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testSaveLoad(t *testing.T, s store.Store) {
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l := sampleList("u1", created)
	l.AddMember("u2")
	l.Frozen = true

	require.NoError(t, s.SaveList(ctx, l))

	got, err := s.LoadList(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
	assert.Equal(t, l.Title, got.Title)
	assert.Equal(t, "u1", got.OwnerID)
	assert.Equal(t, []string{"u1", "u2"}, got.SharedWith)
	assert.True(t, got.Frozen)
	assert.True(t, created.Equal(got.CreatedAt))

	require.Len(t, got.Items, 1)
	it := got.Items[0]
	assert.Equal(t, "buy milk", it.Title)
	assert.InDelta(t, 2.5, it.Cost, 0)
	require.Len(t, it.CustomFields, 3)
	assert.Equal(t, models.FieldKindText, it.CustomFields[0].Value.Kind())
	assert.Equal(t, models.FieldKindNumber, it.CustomFields[1].Value.Kind())
	assert.Equal(t, models.FieldKindBool, it.CustomFields[2].Value.Kind())
	require.Len(t, it.Subtasks, 1)
	require.Len(t, it.Subtasks[0].Subtasks, 1)
	assert.True(t, it.Subtasks[0].Subtasks[0].Done)
}

func testSaveReplaces(t *testing.T, s store.Store) {
	ctx := context.Background()
	l := sampleList("u1", time.Now().UTC())
	require.NoError(t, s.SaveList(ctx, l))

	l.Title = "renamed"
	l.Items = []models.Item{}
	require.NoError(t, s.SaveList(ctx, l))

	got, err := s.LoadList(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Empty(t, got.Items)
}

func testDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	l := sampleList("u1", time.Now().UTC())
	require.NoError(t, s.SaveList(ctx, l))

	require.NoError(t, s.DeleteList(ctx, l.ID))
	_, err := s.LoadList(ctx, l.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.DeleteList(ctx, l.ID), store.ErrNotFound)
}

func testByParticipant(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	a := sampleList("u1", base)
	b := sampleList("u2", base.Add(time.Minute))
	b.AddMember("u1")
	c := sampleList("u3", base.Add(2*time.Minute))
	for _, l := range []*models.List{a, b, c} {
		require.NoError(t, s.SaveList(ctx, l))
	}

	got, err := s.ListsByParticipant(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, b.ID, got[1].ID)

	none, err := s.ListsByParticipant(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := &models.User{Email: "Alice@Example.com", Name: "Alice"}
	require.NoError(t, s.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID)

	byID, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	byEmail, err := s.FindUserByEmail(ctx, " ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.FindUserByEmail(ctx, "bob@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.CreateUser(ctx, &models.User{Email: "alice@example.com", Name: "Other"})
	require.ErrorIs(t, err, store.ErrConflict)
}

func testDetached(t *testing.T, s store.Store) {
	ctx := context.Background()
	l := sampleList("u1", time.Now().UTC())
	require.NoError(t, s.SaveList(ctx, l))

	l.Title = "mutated after save"
	got, err := s.LoadList(ctx, l.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated after save", got.Title)

	got.SharedWith = append(got.SharedWith, "intruder")
	again, err := s.LoadList(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, again.SharedWith)
}

func testMaxDepth(t *testing.T, s store.Store) {
	ctx := context.Background()
	l := models.NewList("u1", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	var sub []models.Subtask
	for d := models.MaxDepth; d >= 2; d-- {
		sub = []models.Subtask{{ID: "s", Title: "level", Subtasks: sub}}
	}
	l.Items = []models.Item{{ID: "root", Title: "root", Subtasks: sub}}
	require.NoError(t, models.ValidateList(l))
	require.NoError(t, s.SaveList(ctx, l))

	got, err := s.LoadList(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	depth := 1
	for sub := got.Items[0].Subtasks; len(sub) > 0; sub = sub[0].Subtasks {
		depth++
	}
	assert.Equal(t, models.MaxDepth, depth)
}
