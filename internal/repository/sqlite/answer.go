package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/qanda/internal/apperror"
	"github.com/sakif/qanda/internal/model"
	"github.com/sakif/qanda/internal/repository"
)

const answersTable = "answers"

// AnswerDB implements repository.AnswerRepository, including the like set.
type AnswerDB struct {
	conn *sql.DB
}

var _ repository.AnswerRepository = (*AnswerDB)(nil)

const answerSelect = `
	SELECT a.id, a.content, a.question_id, a.author_id, u.username,
	       a.created_at, a.updated_at, a.deleted_at
	FROM answers a
	JOIN users u ON u.id = a.author_id`

func scanAnswer(row rowScanner) (*model.Answer, error) {
	var (
		a         model.Answer
		deletedAt sql.NullTime
	)
	if err := row.Scan(
		&a.ID,
		&a.Content,
		&a.QuestionID,
		&a.AuthorID,
		&a.AuthorName,
		&a.CreatedAt,
		&a.UpdatedAt,
		&deletedAt,
	); err != nil {
		return nil, err
	}
	a.DeletedAt = deletedAtPtr(deletedAt)
	return &a, nil
}

// Create inserts a new answer and fills in ID and timestamps.
func (r *AnswerDB) Create(ctx context.Context, a *model.Answer) error {
	a.ID = xid.New().String()

	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	a.DeletedAt = nil
	a.Likes = nil

	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO answers (id, content, question_id, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Content,
		a.QuestionID,
		a.AuthorID,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating answer: %w", err)
	}

	return nil
}

// GetByID fetches one answer visible under scope, with its like set.
func (r *AnswerDB) GetByID(ctx context.Context, id string, scope model.Scope) (*model.Answer, error) {
	a, err := scanAnswer(r.conn.QueryRowContext(ctx,
		answerSelect+` WHERE a.id = ? AND `+scopeClause(scope, "a.deleted_at"),
		id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("answer", id)
		}
		return nil, fmt.Errorf("sqlite: getting answer %s: %w", id, err)
	}

	likes, err := r.likesFor(ctx, []string{a.ID})
	if err != nil {
		return nil, err
	}
	a.Likes = likes[a.ID]

	return a, nil
}

// GetOwned fetches an active answer only if authorID wrote it. Foreign and
// missing answers both report NotFound.
func (r *AnswerDB) GetOwned(ctx context.Context, id, authorID string) (*model.Answer, error) {
	a, err := scanAnswer(r.conn.QueryRowContext(ctx,
		answerSelect+` WHERE a.id = ? AND a.author_id = ? AND a.deleted_at IS NULL`,
		id, authorID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("answer", id)
		}
		return nil, fmt.Errorf("sqlite: getting owned answer %s: %w", id, err)
	}
	return a, nil
}

// ListByQuestion returns the answers of one question oldest first, each with
// its like set.
func (r *AnswerDB) ListByQuestion(ctx context.Context, questionID string, scope model.Scope) ([]model.Answer, error) {
	answers, err := r.listRows(ctx, questionID, scope)
	if err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return answers, nil
	}

	ids := make([]string, len(answers))
	for i := range answers {
		ids[i] = answers[i].ID
	}
	likes, err := r.likesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range answers {
		answers[i].Likes = likes[answers[i].ID]
	}

	return answers, nil
}

// listRows reads the answer rows and closes the cursor before returning, so
// the caller can issue the likes query on the same (possibly single) connection.
func (r *AnswerDB) listRows(ctx context.Context, questionID string, scope model.Scope) ([]model.Answer, error) {
	rows, err := r.conn.QueryContext(ctx,
		answerSelect+` WHERE a.question_id = ? AND `+scopeClause(scope, "a.deleted_at")+`
		 ORDER BY a.created_at ASC, a.id ASC`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s answers for question %s: %w", scope, questionID, err)
	}
	defer rows.Close()

	answers := []model.Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning answer row: %w", err)
		}
		answers = append(answers, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating answers: %w", err)
	}
	return answers, nil
}

// likesFor loads the like sets of several answers in one query.
func (r *AnswerDB) likesFor(ctx context.Context, answerIDs []string) (map[string][]string, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(answerIDs)), ",")
	args := make([]any, len(answerIDs))
	for i, id := range answerIDs {
		args[i] = id
	}

	rows, err := r.conn.QueryContext(ctx,
		`SELECT answer_id, user_id FROM answer_likes
		 WHERE answer_id IN (`+placeholders+`)
		 ORDER BY created_at ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading likes: %w", err)
	}
	defer rows.Close()

	likes := make(map[string][]string, len(answerIDs))
	for rows.Next() {
		var answerID, userID string
		if err := rows.Scan(&answerID, &userID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning like row: %w", err)
		}
		likes[answerID] = append(likes[answerID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating likes: %w", err)
	}
	return likes, nil
}

// Update saves Content. QuestionID and AuthorID are fixed at creation.
func (r *AnswerDB) Update(ctx context.Context, a *model.Answer) error {
	a.UpdatedAt = time.Now().UTC()

	result, err := r.conn.ExecContext(ctx,
		`UPDATE answers SET content = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		a.Content,
		a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating answer %s: %w", a.ID, err)
	}
	return expectOneRow(result, "answer", a.ID)
}

// SoftDelete marks the answer deleted. The row and its likes stay in place.
func (r *AnswerDB) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.conn, answersTable, "answer", id)
}

func (r *AnswerDB) Restore(ctx context.Context, id string) error {
	return restore(ctx, r.conn, answersTable, "answer", id)
}

// HasLike reports whether userID is in the like set of answerID.
func (r *AnswerDB) HasLike(ctx context.Context, answerID, userID string) (bool, error) {
	var found bool
	err := r.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM answer_likes WHERE answer_id = ? AND user_id = ?)`,
		answerID, userID,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking like on answer %s: %w", answerID, err)
	}
	return found, nil
}

// AddLike puts userID into the like set. Adding an existing member is a no-op.
func (r *AnswerDB) AddLike(ctx context.Context, answerID, userID string) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO answer_likes (answer_id, user_id, created_at) VALUES (?, ?, ?)`,
		answerID, userID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding like on answer %s: %w", answerID, err)
	}
	return nil
}

// RemoveLike takes userID out of the like set. Removing a non-member is a no-op.
func (r *AnswerDB) RemoveLike(ctx context.Context, answerID, userID string) error {
	_, err := r.conn.ExecContext(ctx,
		`DELETE FROM answer_likes WHERE answer_id = ? AND user_id = ?`,
		answerID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing like on answer %s: %w", answerID, err)
	}
	return nil
}
