package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nestedItem(depth int) Item {
	var sub []Subtask
	for d := depth; d >= 2; d-- {
		sub = []Subtask{{ID: "s", Title: "level", Subtasks: sub}}
	}
	return Item{ID: "root", Title: "root", Subtasks: sub}
}

func TestNewList(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewList("u1", now)

	require.NotEmpty(t, l.ID)
	assert.Equal(t, DefaultListTitle, l.Title)
	assert.Equal(t, "u1", l.OwnerID)
	assert.Equal(t, []string{"u1"}, l.SharedWith)
	assert.False(t, l.Frozen)
	assert.Empty(t, l.Items)
	assert.NotNil(t, l.Items)
	require.NoError(t, ValidateList(l))
}

func TestList_AddMember(t *testing.T) {
	l := NewList("u1", time.Now())

	assert.True(t, l.AddMember("u2"))
	assert.False(t, l.AddMember("u2"))
	assert.False(t, l.AddMember("u1"))
	assert.Equal(t, []string{"u1", "u2"}, l.SharedWith)
	assert.True(t, l.IsMember("u2"))
	assert.False(t, l.IsMember(""))
	assert.True(t, l.IsOwner("u1"))
	assert.False(t, l.IsOwner("u2"))
}

func TestList_ApplyReplacesItemsWholesale(t *testing.T) {
	l := NewList("u1", time.Now())
	l.Items = []Item{{ID: "a", Title: "a"}, {ID: "b", Title: "b"}}

	items := []Item{{ID: "c", Title: "c"}}
	l.Apply(ListPatch{Items: &items})
	require.Len(t, l.Items, 1)
	assert.Equal(t, "c", l.Items[0].ID)

	title := "groceries"
	l.Apply(ListPatch{Title: &title})
	assert.Equal(t, "groceries", l.Title)
	assert.Len(t, l.Items, 1, "title-only patch must not touch items")
}

func TestList_CloneIsDeep(t *testing.T) {
	l := NewList("u1", time.Now())
	l.Items = []Item{nestedItem(4)}
	l.Items[0].CustomFields = []CustomField{{Title: "f", Value: TextValue("x")}}

	c := l.Clone()
	c.SharedWith[0] = "changed"
	c.Items[0].Subtasks[0].Subtasks[0].Title = "changed"
	c.Items[0].CustomFields[0].Title = "changed"

	assert.Equal(t, "u1", l.SharedWith[0])
	assert.Equal(t, "level", l.Items[0].Subtasks[0].Subtasks[0].Title)
	assert.Equal(t, "f", l.Items[0].CustomFields[0].Title)
}

func TestFieldValue_JSON(t *testing.T) {
	var fields []CustomField
	err := json.Unmarshal([]byte(`[
		{"title":"note","value":"hello"},
		{"title":"qty","value":3.5},
		{"title":"paid","value":true}
	]`), &fields)
	require.NoError(t, err)
	require.Len(t, fields, 3)

	s, ok := fields[0].Value.Text()
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	n, ok := fields[1].Value.Number()
	assert.True(t, ok)
	assert.InDelta(t, 3.5, n, 0)

	b, ok := fields[2].Value.Bool()
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = fields[2].Value.Text()
	assert.False(t, ok)

	out, err := json.Marshal(fields[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"qty","value":3.5,"required":false}`, string(out))
}

func TestFieldValue_RejectsNonScalars(t *testing.T) {
	for _, raw := range []string{`null`, `{"a":1}`, `[1,2]`} {
		var v FieldValue
		err := json.Unmarshal([]byte(raw), &v)
		require.ErrorIs(t, err, ErrInvalidFieldValue, raw)
	}

	_, err := json.Marshal(FieldValue{})
	require.Error(t, err)
}

func TestFieldValue_CBOR(t *testing.T) {
	data, err := cbor.Marshal(CustomField{Title: "n", Value: NumberValue(7)})
	require.NoError(t, err)

	var cf CustomField
	require.NoError(t, cbor.Unmarshal(data, &cf))
	assert.Equal(t, FieldKindNumber, cf.Value.Kind())
	n, _ := cf.Value.Number()
	assert.InDelta(t, 7.0, n, 0)
}

func TestValidateItems_AssignsMissingIDs(t *testing.T) {
	items := []Item{{Title: "a", Subtasks: []Subtask{{Title: "b"}}}}
	require.NoError(t, ValidateItems(items))
	assert.NotEmpty(t, items[0].ID)
	assert.NotEmpty(t, items[0].Subtasks[0].ID)
}

func TestValidateItems_IDsUniquePerParent(t *testing.T) {
	ok := []Item{
		{ID: "1", Title: "a", Subtasks: []Subtask{{ID: "x", Title: "x"}}},
		{ID: "2", Title: "b", Subtasks: []Subtask{{ID: "x", Title: "x"}}},
	}
	require.NoError(t, ValidateItems(ok), "same subtask id under different parents is allowed")

	dupItems := []Item{{ID: "1", Title: "a"}, {ID: "1", Title: "b"}}
	err := ValidateItems(dupItems)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "items[1]")

	dupSubtasks := []Item{{ID: "1", Title: "a", Subtasks: []Subtask{
		{ID: "x", Title: "x"},
		{ID: "x", Title: "y"},
	}}}
	err = ValidateItems(dupSubtasks)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "items[0].subtasks[1]")
}

func TestValidateItems_DepthGuard(t *testing.T) {
	require.NoError(t, ValidateItems([]Item{nestedItem(MaxDepth)}))

	err := ValidateItems([]Item{nestedItem(MaxDepth + 1)})
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "nesting exceeds")
}

func TestValidateItems_DeepInputDoesNotRecurse(t *testing.T) {
	// far past MaxDepth; the walk stops at the first level over the bound
	err := ValidateItems([]Item{nestedItem(100_000)})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestValidateItems_RequiresTitlesAndFieldValues(t *testing.T) {
	err := ValidateItems([]Item{{ID: "1", Title: "  "}})
	require.ErrorIs(t, err, ErrInvalid)
	assert.True(t, strings.HasSuffix(err.Error(), "is required"))

	err = ValidateItems([]Item{{ID: "1", Title: "a", CustomFields: []CustomField{{Title: "f"}}}})
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "customFields[0].value")
}

func TestValidateList_OwnerMustBeMember(t *testing.T) {
	l := NewList("u1", time.Now())
	l.SharedWith = []string{"u2"}
	require.ErrorIs(t, ValidateList(l), ErrInvalid)

	l.SharedWith = []string{"u1", "u2", "u2"}
	require.ErrorIs(t, ValidateList(l), ErrInvalid)
}

func TestValidatePatch(t *testing.T) {
	empty := ""
	require.ErrorIs(t, ValidatePatch(&ListPatch{Title: &empty}), ErrInvalid)

	title := "ok"
	items := []Item{{Title: "a"}}
	p := &ListPatch{Title: &title, Items: &items}
	require.NoError(t, ValidatePatch(p))
	assert.NotEmpty(t, (*p.Items)[0].ID)
	assert.True(t, ListPatch{}.IsEmpty())
}
