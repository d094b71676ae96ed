// Package repository declares the storage interfaces the service layer depends on.
//
// Services only ever see these interfaces. The concrete implementation lives in
// repository/sqlite; service tests swap in hand-written in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/qanda/internal/model"
)

// ListOptions controls pagination and soft-delete visibility for list reads.
type ListOptions struct {
	Limit  int
	Offset int
	Scope  model.Scope
	// AuthorID restricts the result to one author when non-empty.
	AuthorID string
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	LinkGitHub(ctx context.Context, id string, githubID int64) error
	SetActive(ctx context.Context, id string, active bool) error
}

// QuestionRepository stores questions.
//
// GetOwned is the ownership-scoped lookup: it only finds active questions
// written by authorID and reports NotFound for everything else.
type QuestionRepository interface {
	Create(ctx context.Context, q *model.Question) error
	GetByID(ctx context.Context, id string, scope model.Scope) (*model.Question, error)
	GetOwned(ctx context.Context, id, authorID string) (*model.Question, error)
	List(ctx context.Context, opts ListOptions) ([]model.Question, error)
	Count(ctx context.Context, opts ListOptions) (int, error)
	Update(ctx context.Context, q *model.Question) error
	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
}

// AnswerRepository stores answers and their like sets.
type AnswerRepository interface {
	Create(ctx context.Context, a *model.Answer) error
	GetByID(ctx context.Context, id string, scope model.Scope) (*model.Answer, error)
	GetOwned(ctx context.Context, id, authorID string) (*model.Answer, error)
	ListByQuestion(ctx context.Context, questionID string, scope model.Scope) ([]model.Answer, error)
	Update(ctx context.Context, a *model.Answer) error
	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error

	HasLike(ctx context.Context, answerID, userID string) (bool, error)
	AddLike(ctx context.Context, answerID, userID string) error
	RemoveLike(ctx context.Context, answerID, userID string) error
}
