// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Timestamps records when a row was created and last modified.
// Repositories set both on insert and refresh UpdatedAt on every update.
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// SoftDelete adds a nullable deletion marker on top of Timestamps.
//
// COMPOSITION, NOT INHERITANCE:
// Any entity that should be "removable but recoverable" embeds SoftDelete.
// Deleting such an entity sets DeletedAt; restoring it clears DeletedAt.
// The row itself is never physically removed by the application.
//
// Reads decide explicitly which rows they want by passing a Scope to the
// repository. Nothing is filtered implicitly.
type SoftDelete struct {
	Timestamps
	DeletedAt *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
}

// IsDeleted reports whether the entity carries a deletion marker.
func (s SoftDelete) IsDeleted() bool {
	return s.DeletedAt != nil
}

// Scope selects which soft-deleted rows a repository read returns.
//
// The zero value is ScopeActive, so a caller that forgets to pick a scope
// gets the safe default: deleted rows stay hidden.
type Scope int

const (
	// ScopeActive returns only rows without a deletion marker (the default).
	ScopeActive Scope = iota
	// ScopeWithDeleted returns every row, deleted or not.
	ScopeWithDeleted
	// ScopeOnlyDeleted returns only rows that carry a deletion marker.
	ScopeOnlyDeleted
)

// String returns a short name for log output.
func (s Scope) String() string {
	switch s {
	case ScopeActive:
		return "active"
	case ScopeWithDeleted:
		return "with_deleted"
	case ScopeOnlyDeleted:
		return "only_deleted"
	default:
		return "unknown"
	}
}
