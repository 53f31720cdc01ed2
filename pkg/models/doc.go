// Package models defines the shared list document and its nested items.
//
// A [List] is the unit of collaboration: it is owned by one user, shared with a
// growing set of members, and may be frozen by its owner. Items and subtasks form
// an ordered tree of arbitrary depth, bounded at validation time by [MaxDepth].
//
// Custom field values are a tagged variant ([FieldValue]) holding text, a number
// or a boolean. Code consuming them switches on [FieldValue.Kind].
package models
