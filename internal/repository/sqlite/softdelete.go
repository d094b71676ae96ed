package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/qanda/internal/apperror"
	"github.com/sakif/qanda/internal/model"
)

// SOFT DELETE HELPERS
//
// Questions and answers share the same three columns (created_at, updated_at,
// deleted_at) and the same rules, so the SQL for them lives here once:
//
//	scopeClause → the WHERE fragment for a model.Scope
//	softDelete  → stamp deleted_at (and updated_at) on an active row
//	restore     → clear deleted_at on a deleted row
//
// table names come from constants in this package, never from user input.

// scopeClause returns the SQL condition selecting rows for scope.
// col is the fully qualified deleted_at column, e.g. "q.deleted_at".
func scopeClause(scope model.Scope, col string) string {
	switch scope {
	case model.ScopeWithDeleted:
		return "1 = 1"
	case model.ScopeOnlyDeleted:
		return col + " IS NOT NULL"
	default:
		return col + " IS NULL"
	}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// softDelete marks one active row as deleted. A missing or already deleted
// row reports NotFound.
func softDelete(ctx context.Context, conn execer, table, resource, id string) error {
	now := time.Now().UTC()
	result, err := conn.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, table),
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: soft deleting %s %s: %w", resource, id, err)
	}
	return expectOneRow(result, resource, id)
}

// restore clears the deletion marker of one deleted row.
func restore(ctx context.Context, conn execer, table, resource, id string) error {
	result, err := conn.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET deleted_at = NULL, updated_at = ? WHERE id = ? AND deleted_at IS NOT NULL`, table),
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: restoring %s %s: %w", resource, id, err)
	}
	return expectOneRow(result, resource, id)
}

// expectOneRow turns "0 rows affected" into apperror.NotFound.
func expectOneRow(result sql.Result, resource, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

// deletedAtPtr converts a scanned nullable column to the model's pointer form.
func deletedAtPtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
