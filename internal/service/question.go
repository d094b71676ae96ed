// Package service contains the business logic layer of the Q&A board.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses forms, renders pages, redirects
//	Service (Business layer) → validates, enforces ownership, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// WHY A SEPARATE SERVICE LAYER?
// The ownership and like rules are the heart of the app. Keeping them here
// means they are tested with plain Go calls and fake repositories, and the
// CLI (restore, user activation) reuses them without going through HTTP.
//
// THE DEPENDENCY CHAIN:
//
//	server.New creates: DB → Repositories → Services → Handlers
//	At runtime:         Handler calls Service calls Repository calls DB
//
// Services take repository interfaces, never *sqlite.DB, so tests can inject
// in-memory fakes (see question_test.go).
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/qanda/internal/metrics"
	"github.com/sakif/qanda/internal/model"
	"github.com/sakif/qanda/internal/repository"
)

// DefaultPageSize is the number of questions on one home page.
const DefaultPageSize = 10

// QuestionInput is the question form.
type QuestionInput struct {
	Title   string `form:"title" validate:"required,max=200"`
	Content string `form:"content" validate:"required"`
}

func (in *QuestionInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
}

// Page is one page of the question list.
type Page struct {
	Questions  []model.Question
	Number     int // 1-based
	TotalPages int // at least 1, even when there are no questions
	Total      int
}

func (p *Page) HasPrev() bool { return p.Number > 1 }
func (p *Page) HasNext() bool { return p.Number < p.TotalPages }

// PrevNumber and NextNumber are only meaningful when HasPrev/HasNext hold.
func (p *Page) PrevNumber() int { return p.Number - 1 }
func (p *Page) NextNumber() int { return p.Number + 1 }

// HasOtherPages reports whether pagination controls are worth showing.
func (p *Page) HasOtherPages() bool { return p.TotalPages > 1 }

// QuestionDetail is everything the question page shows.
type QuestionDetail struct {
	Question *model.Question
	Answers  []model.Answer
	// ViewerID is the authenticated viewer, empty for anonymous visitors.
	ViewerID string
}

// IsAuthor reports whether the viewer wrote the question.
func (d *QuestionDetail) IsAuthor() bool {
	return d.ViewerID != "" && d.Question.IsAuthor(d.ViewerID)
}

// QuestionService handles business logic for questions.
type QuestionService struct {
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	logger    *slog.Logger
	pageSize  int
}

// NewQuestionService creates a QuestionService. The answer repository is used
// to assemble the detail page.
func NewQuestionService(
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	logger *slog.Logger,
) *QuestionService {
	return &QuestionService{
		questions: questions,
		answers:   answers,
		logger:    logger,
		pageSize:  DefaultPageSize,
	}
}

// List returns one page of active questions, newest first.
//
// PAGINATION RULES:
//   - page < 1 is treated as page 1 (HandleHome already maps a missing or
//     non-numeric ?page= to 1)
//   - a page past the last one is returned empty rather than as an error
func (s *QuestionService) List(ctx context.Context, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}

	total, err := s.questions.Count(ctx, repository.ListOptions{})
	if err != nil {
		s.logger.Error("failed to count questions", slog.String("error", err.Error()))
		return nil, fmt.Errorf("counting questions: %w", err)
	}

	p := &Page{
		Questions:  []model.Question{},
		Number:     page,
		Total:      total,
		TotalPages: max(1, (total+s.pageSize-1)/s.pageSize),
	}
	if page > p.TotalPages {
		return p, nil
	}

	questions, err := s.questions.List(ctx, repository.ListOptions{
		Limit:  s.pageSize,
		Offset: (page - 1) * s.pageSize,
	})
	if err != nil {
		s.logger.Error("failed to list questions", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing questions: %w", err)
	}
	p.Questions = questions

	return p, nil
}

// Detail loads an active question with its active answers, oldest first.
// viewerID may be empty.
func (s *QuestionService) Detail(ctx context.Context, id, viewerID string) (*QuestionDetail, error) {
	q, err := s.questions.GetByID(ctx, id, model.ScopeActive)
	if err != nil {
		return nil, err
	}

	answers, err := s.answers.ListByQuestion(ctx, q.ID, model.ScopeActive)
	if err != nil {
		s.logger.Error("failed to list answers",
			slog.String("questionID", q.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing answers of question %s: %w", q.ID, err)
	}

	return &QuestionDetail{Question: q, Answers: answers, ViewerID: viewerID}, nil
}

// Create validates and saves a new question written by authorID.
func (s *QuestionService) Create(ctx context.Context, authorID string, in QuestionInput) (*model.Question, error) {
	in.normalize()
	if err := checkStruct(&in).err(); err != nil {
		return nil, err
	}

	q := &model.Question{
		Title:    in.Title,
		Content:  in.Content,
		AuthorID: authorID,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		s.logger.Error("failed to create question",
			slog.String("authorID", authorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating question: %w", err)
	}

	metrics.ContentChanges.WithLabelValues("question", "create").Inc()
	s.logger.Info("question created",
		slog.String("id", q.ID),
		slog.String("authorID", authorID),
	)

	return q, nil
}

// GetOwned returns an active question only if userID wrote it.
//
// OWNERSHIP AS 404:
// Someone else's question is reported exactly like a missing one, so the
// response never reveals that the id exists.
func (s *QuestionService) GetOwned(ctx context.Context, id, userID string) (*model.Question, error) {
	return s.questions.GetOwned(ctx, id, userID)
}

// Update edits the title and content of one of userID's own questions.
// Ownership is checked before the form, so a stranger gets NotFound even
// for an invalid submission.
func (s *QuestionService) Update(ctx context.Context, id, userID string, in QuestionInput) (*model.Question, error) {
	q, err := s.questions.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	in.normalize()
	if err := checkStruct(&in).err(); err != nil {
		return nil, err
	}

	q.Title = in.Title
	q.Content = in.Content
	if err := s.questions.Update(ctx, q); err != nil {
		s.logger.Error("failed to update question",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating question: %w", err)
	}

	metrics.ContentChanges.WithLabelValues("question", "update").Inc()
	s.logger.Info("question updated", slog.String("id", q.ID))

	return q, nil
}

// Delete soft deletes one of userID's own questions.
func (s *QuestionService) Delete(ctx context.Context, id, userID string) error {
	q, err := s.questions.GetOwned(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.questions.SoftDelete(ctx, q.ID); err != nil {
		return err
	}

	metrics.ContentChanges.WithLabelValues("question", "delete").Inc()
	s.logger.Info("question deleted", slog.String("id", q.ID))
	return nil
}

// Restore brings back a soft-deleted question. It is an operator action
// (CLI) and is not scoped to an author.
func (s *QuestionService) Restore(ctx context.Context, id string) error {
	if err := s.questions.Restore(ctx, id); err != nil {
		return err
	}

	metrics.ContentChanges.WithLabelValues("question", "restore").Inc()
	s.logger.Info("question restored", slog.String("id", id))
	return nil
}
