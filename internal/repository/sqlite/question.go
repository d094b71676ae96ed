package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/qanda/internal/apperror"
	"github.com/sakif/qanda/internal/model"
	"github.com/sakif/qanda/internal/repository"
)

const questionsTable = "questions"

// QuestionDB implements repository.QuestionRepository.
type QuestionDB struct {
	conn *sql.DB
}

var _ repository.QuestionRepository = (*QuestionDB)(nil)

// questionSelect joins the author so list pages can show a username without
// a second query per row.
const questionSelect = `
	SELECT q.id, q.title, q.content, q.author_id, u.username,
	       q.created_at, q.updated_at, q.deleted_at
	FROM questions q
	JOIN users u ON u.id = q.author_id`

func scanQuestion(row rowScanner) (*model.Question, error) {
	var (
		q         model.Question
		deletedAt sql.NullTime
	)
	if err := row.Scan(
		&q.ID,
		&q.Title,
		&q.Content,
		&q.AuthorID,
		&q.AuthorName,
		&q.CreatedAt,
		&q.UpdatedAt,
		&deletedAt,
	); err != nil {
		return nil, err
	}
	q.DeletedAt = deletedAtPtr(deletedAt)
	return &q, nil
}

// Create inserts a new question and fills in ID and timestamps.
func (r *QuestionDB) Create(ctx context.Context, q *model.Question) error {
	q.ID = xid.New().String()

	now := time.Now().UTC()
	q.CreatedAt = now
	q.UpdatedAt = now
	q.DeletedAt = nil

	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO questions (id, title, content, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID,
		q.Title,
		q.Content,
		q.AuthorID,
		q.CreatedAt,
		q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating question: %w", err)
	}

	return nil
}

// GetByID fetches one question visible under scope.
func (r *QuestionDB) GetByID(ctx context.Context, id string, scope model.Scope) (*model.Question, error) {
	q, err := scanQuestion(r.conn.QueryRowContext(ctx,
		questionSelect+` WHERE q.id = ? AND `+scopeClause(scope, "q.deleted_at"),
		id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("question", id)
		}
		return nil, fmt.Errorf("sqlite: getting question %s: %w", id, err)
	}
	return q, nil
}

// GetOwned fetches an active question only if authorID wrote it.
//
// The author filter is part of the WHERE clause, so "exists but belongs to
// someone else" and "does not exist" produce the same NotFound error.
func (r *QuestionDB) GetOwned(ctx context.Context, id, authorID string) (*model.Question, error) {
	q, err := scanQuestion(r.conn.QueryRowContext(ctx,
		questionSelect+` WHERE q.id = ? AND q.author_id = ? AND q.deleted_at IS NULL`,
		id, authorID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("question", id)
		}
		return nil, fmt.Errorf("sqlite: getting owned question %s: %w", id, err)
	}
	return q, nil
}

// List returns questions newest first. The id tie-break keeps the order
// stable for rows created within the same clock tick (xids sort by creation).
func (r *QuestionDB) List(ctx context.Context, opts repository.ListOptions) ([]model.Question, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20 // Default page size
	}
	if limit > 100 {
		limit = 100 // Maximum page size — prevent fetching entire DB
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	where, args := questionFilter(opts)
	args = append(args, limit, offset)

	rows, err := r.conn.QueryContext(ctx,
		questionSelect+` WHERE `+where+`
		 ORDER BY q.created_at DESC, q.id DESC
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing questions: %w", err)
	}
	defer rows.Close()

	questions := make([]model.Question, 0, limit)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning question row: %w", err)
		}
		questions = append(questions, *q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating questions: %w", err)
	}

	return questions, nil
}

// Count returns how many questions match opts, ignoring Limit and Offset.
func (r *QuestionDB) Count(ctx context.Context, opts repository.ListOptions) (int, error) {
	where, args := questionFilter(opts)

	var n int
	err := r.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions q WHERE `+where, args...,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting questions: %w", err)
	}
	return n, nil
}

func questionFilter(opts repository.ListOptions) (string, []any) {
	where := scopeClause(opts.Scope, "q.deleted_at")
	var args []any
	if opts.AuthorID != "" {
		where += " AND q.author_id = ?"
		args = append(args, opts.AuthorID)
	}
	return where, args
}

// Update saves Title and Content. AuthorID is never written after creation.
func (r *QuestionDB) Update(ctx context.Context, q *model.Question) error {
	q.UpdatedAt = time.Now().UTC()

	result, err := r.conn.ExecContext(ctx,
		`UPDATE questions
		 SET title = ?, content = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		q.Title,
		q.Content,
		q.UpdatedAt,
		q.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating question %s: %w", q.ID, err)
	}
	return expectOneRow(result, "question", q.ID)
}

// SoftDelete marks the question deleted. Its answers keep their own
// deleted_at untouched, so restoring the question brings them back as they were.
func (r *QuestionDB) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.conn, questionsTable, "question", id)
}

func (r *QuestionDB) Restore(ctx context.Context, id string) error {
	return restore(ctx, r.conn, questionsTable, "question", id)
}
