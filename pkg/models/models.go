package models

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultListTitle is the title given to newly created lists.
const DefaultListTitle = "New Todo List"

// List is a shared mutable document.
type List struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	OwnerID    string    `json:"ownerId"`
	SharedWith []string  `json:"sharedWith"`
	Frozen     bool      `json:"frozen"`
	Items      []Item    `json:"items"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Item is a unit of work within a List.
type Item struct {
	ID           string        `json:"id"`
	Index        int           `json:"index"`
	Title        string        `json:"title"`
	Done         bool          `json:"done"`
	Cost         float64       `json:"cost"`
	Required     bool          `json:"required"`
	Type         string        `json:"type,omitempty"`
	CustomFields []CustomField `json:"customFields,omitempty"`
	Subtasks     []Subtask     `json:"subtasks"`
}

// Subtask is the recursive unit nested under an Item or another Subtask.
type Subtask struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Done         bool          `json:"done"`
	Cost         float64       `json:"cost"`
	Required     bool          `json:"required"`
	Type         string        `json:"type,omitempty"`
	CustomFields []CustomField `json:"customFields,omitempty"`
	Subtasks     []Subtask     `json:"subtasks,omitempty"`
}

// CustomField is a user-defined, titled value attached to an item or subtask.
type CustomField struct {
	Title    string     `json:"title"`
	Value    FieldValue `json:"value"`
	Required bool       `json:"required"`
}

// User is a directory entry. The directory is the only source of user identity
// this module consults; it holds no credentials.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NormalizeEmail is the canonical form of a directory lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ListPatch is a shallow update to a List. Nil fields are left untouched; set
// fields replace the stored value wholesale.
//
// Ownership, membership and the frozen flag are not patchable: they change only
// through their dedicated operations.
type ListPatch struct {
	Title *string `json:"title,omitempty"`
	Items *[]Item `json:"items,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (p ListPatch) IsEmpty() bool {
	return p.Title == nil && p.Items == nil
}

// NewList returns an empty, unfrozen list owned by ownerID.
func NewList(ownerID string, now time.Time) *List {
	return &List{
		ID:         uuid.NewString(),
		Title:      DefaultListTitle,
		OwnerID:    ownerID,
		SharedWith: []string{ownerID},
		Frozen:     false,
		Items:      []Item{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsOwner reports whether userID owns the list.
func (l *List) IsOwner(userID string) bool {
	return userID != "" && l.OwnerID == userID
}

// IsMember reports whether userID is entitled to read and write the list.
func (l *List) IsMember(userID string) bool {
	return userID != "" && slices.Contains(l.SharedWith, userID)
}

// AddMember appends userID to SharedWith. It reports false when the user was
// already a member.
func (l *List) AddMember(userID string) bool {
	if l.IsMember(userID) {
		return false
	}
	l.SharedWith = append(l.SharedWith, userID)
	return true
}

// Apply merges p into the list. Callers validate the patch first.
func (l *List) Apply(p ListPatch) {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Items != nil {
		l.Items = *p.Items
	}
}

// Clone returns a deep copy of the list.
func (l *List) Clone() *List {
	if l == nil {
		return nil
	}
	c := *l
	c.SharedWith = slices.Clone(l.SharedWith)
	c.Items = cloneItems(l.Items)
	return &c
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it
		out[i].CustomFields = slices.Clone(it.CustomFields)
		out[i].Subtasks = cloneSubtasks(it.Subtasks)
	}
	return out
}

// cloneSubtasks copies a subtask tree without recursion so that the copy cost
// does not depend on the call stack.
func cloneSubtasks(src []Subtask) []Subtask {
	if src == nil {
		return nil
	}
	root := make([]Subtask, len(src))
	copy(root, src)

	stack := []*[]Subtask{&root}
	for len(stack) > 0 {
		level := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i := range *level {
			st := &(*level)[i]
			st.CustomFields = slices.Clone(st.CustomFields)
			if st.Subtasks != nil {
				children := make([]Subtask, len(st.Subtasks))
				copy(children, st.Subtasks)
				st.Subtasks = children
				stack = append(stack, &st.Subtasks)
			}
		}
	}
	return root
}
