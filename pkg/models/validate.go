package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MaxDepth bounds how deeply subtasks may nest. Items are at depth 1.
const MaxDepth = 64

// ErrInvalid is matched by every ValidationError.
var ErrInvalid = errors.New("invalid document")

// ValidationError reports the first offending node of a document.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func invalid(path, format string, args ...any) error {
	return &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// ValidatePatch checks a patch before it is merged into a list.
func ValidatePatch(p *ListPatch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return invalid("title", "must not be empty")
	}
	if p.Items != nil {
		if err := ValidateItems(*p.Items); err != nil {
			return err
		}
	}
	return nil
}

// ValidateList checks the invariants of a stored list.
func ValidateList(l *List) error {
	switch {
	case l.ID == "":
		return invalid("id", "is required")
	case l.OwnerID == "":
		return invalid("ownerId", "is required")
	case !l.IsMember(l.OwnerID):
		return invalid("sharedWith", "must contain the owner %q", l.OwnerID)
	}
	seen := make(map[string]struct{}, len(l.SharedWith))
	for i, id := range l.SharedWith {
		if id == "" {
			return invalid(fmt.Sprintf("sharedWith[%d]", i), "is empty")
		}
		if _, dup := seen[id]; dup {
			return invalid(fmt.Sprintf("sharedWith[%d]", i), "duplicate member %q", id)
		}
		seen[id] = struct{}{}
	}
	return ValidateItems(l.Items)
}

// subtaskFrame is one pending sibling sequence in the validation walk.
type subtaskFrame struct {
	seq   []Subtask
	depth int
	path  string
}

// ValidateItems checks titles, custom fields, id uniqueness per parent and the
// nesting bound. Empty ids are filled in place with fresh UUIDs. The walk uses an
// explicit stack, so adversarial nesting cannot exhaust the goroutine stack.
func ValidateItems(items []Item) error {
	ids := make(map[string]struct{}, len(items))
	var stack []subtaskFrame

	for i := range items {
		it := &items[i]
		path := fmt.Sprintf("items[%d]", i)
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if _, dup := ids[it.ID]; dup {
			return invalid(path, "duplicate id %q", it.ID)
		}
		ids[it.ID] = struct{}{}
		if strings.TrimSpace(it.Title) == "" {
			return invalid(path+".title", "is required")
		}
		if err := validateCustomFields(path, it.CustomFields); err != nil {
			return err
		}
		if len(it.Subtasks) > 0 {
			stack = append(stack, subtaskFrame{seq: it.Subtasks, depth: 2, path: path})
		}
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.depth > MaxDepth {
			return invalid(f.path+".subtasks", "nesting exceeds %d levels", MaxDepth)
		}

		siblings := make(map[string]struct{}, len(f.seq))
		for i := range f.seq {
			st := &f.seq[i]
			path := fmt.Sprintf("%s.subtasks[%d]", f.path, i)
			if st.ID == "" {
				st.ID = uuid.NewString()
			}
			if _, dup := siblings[st.ID]; dup {
				return invalid(path, "duplicate id %q", st.ID)
			}
			siblings[st.ID] = struct{}{}
			if strings.TrimSpace(st.Title) == "" {
				return invalid(path+".title", "is required")
			}
			if err := validateCustomFields(path, st.CustomFields); err != nil {
				return err
			}
			if len(st.Subtasks) > 0 {
				stack = append(stack, subtaskFrame{seq: st.Subtasks, depth: f.depth + 1, path: path})
			}
		}
	}
	return nil
}

func validateCustomFields(parent string, fields []CustomField) error {
	for i, cf := range fields {
		path := fmt.Sprintf("%s.customFields[%d]", parent, i)
		if strings.TrimSpace(cf.Title) == "" {
			return invalid(path+".title", "is required")
		}
		if !cf.Value.IsValid() {
			return invalid(path+".value", "%v", ErrInvalidFieldValue)
		}
	}
	return nil
}
