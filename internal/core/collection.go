package core

import "github.com/google/uuid"

// AccountLookup answers whether an account exists. InstanceManager uses it to
// clear locks that point at removed accounts.
type AccountLookup interface {
	Exists(id uuid.UUID) bool
}

// Snapshots are never edited in place. These helpers always return a fresh slice.

func indexOf[T named](items []T, id uuid.UUID) int {
	for i, item := range items {
		if item.key() == id {
			return i
		}
	}
	return -1
}

func withReplaced[T any](items []T, i int, v T) []T {
	out := make([]T, len(items))
	copy(out, items)
	out[i] = v
	return out
}

func withAppended[T any](items []T, v T) []T {
	out := make([]T, len(items), len(items)+1)
	copy(out, items)
	return append(out, v)
}

func withRemoved[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}
