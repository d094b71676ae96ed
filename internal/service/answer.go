package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/qanda/internal/apperror"
	"github.com/sakif/qanda/internal/metrics"
	"github.com/sakif/qanda/internal/model"
	"github.com/sakif/qanda/internal/repository"
)

// msgOwnQuestion is the form-wide error shown when an author tries to answer
// their own question.
const msgOwnQuestion = "You cannot answer your own question."

// AnswerInput is the answer form.
type AnswerInput struct {
	Content string `form:"content" validate:"required"`
}

// LikeResult tells the caller which way a toggle went and where to go next.
type LikeResult struct {
	Liked      bool
	QuestionID string
}

// AnswerService handles business logic for answers and their likes.
type AnswerService struct {
	answers   repository.AnswerRepository
	questions repository.QuestionRepository
	logger    *slog.Logger
}

func NewAnswerService(
	answers repository.AnswerRepository,
	questions repository.QuestionRepository,
	logger *slog.Logger,
) *AnswerService {
	return &AnswerService{
		answers:   answers,
		questions: questions,
		logger:    logger,
	}
}

// Create posts an answer by authorID to an active question.
//
// ORDER OF CHECKS:
//  1. The question must be active, else NotFound.
//  2. The question's author may not answer it: a form-wide error, reported
//     even when the content is also empty.
//  3. Content is required.
func (s *AnswerService) Create(ctx context.Context, questionID, authorID string, in AnswerInput) (*model.Answer, error) {
	q, err := s.questions.GetByID(ctx, questionID, model.ScopeActive)
	if err != nil {
		return nil, err
	}

	if q.IsAuthor(authorID) {
		return nil, apperror.ValidationFailed(apperror.NonField, msgOwnQuestion)
	}

	in.Content = strings.TrimSpace(in.Content)
	if err := checkStruct(&in).err(); err != nil {
		return nil, err
	}

	a := &model.Answer{
		Content:    in.Content,
		QuestionID: q.ID,
		AuthorID:   authorID,
	}
	if err := s.answers.Create(ctx, a); err != nil {
		s.logger.Error("failed to create answer",
			slog.String("questionID", q.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating answer: %w", err)
	}

	metrics.ContentChanges.WithLabelValues("answer", "create").Inc()
	s.logger.Info("answer created",
		slog.String("id", a.ID),
		slog.String("questionID", q.ID),
		slog.String("authorID", authorID),
	)

	return a, nil
}

// GetOwned returns an active answer only if userID wrote it. Foreign answers
// are NotFound, like missing ones.
func (s *AnswerService) GetOwned(ctx context.Context, id, userID string) (*model.Answer, error) {
	return s.answers.GetOwned(ctx, id, userID)
}

// Update edits the content of one of userID's own answers.
func (s *AnswerService) Update(ctx context.Context, id, userID string, in AnswerInput) (*model.Answer, error) {
	a, err := s.answers.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	in.Content = strings.TrimSpace(in.Content)
	if err := checkStruct(&in).err(); err != nil {
		return nil, err
	}

	a.Content = in.Content
	if err := s.answers.Update(ctx, a); err != nil {
		s.logger.Error("failed to update answer",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating answer: %w", err)
	}

	metrics.ContentChanges.WithLabelValues("answer", "update").Inc()
	s.logger.Info("answer updated", slog.String("id", a.ID))

	return a, nil
}

// Delete soft deletes one of userID's own answers and returns it, so the
// caller can redirect to its question.
func (s *AnswerService) Delete(ctx context.Context, id, userID string) (*model.Answer, error) {
	a, err := s.answers.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if err := s.answers.SoftDelete(ctx, a.ID); err != nil {
		return nil, err
	}

	metrics.ContentChanges.WithLabelValues("answer", "delete").Inc()
	s.logger.Info("answer deleted", slog.String("id", a.ID))
	return a, nil
}

// Restore brings back a soft-deleted answer (CLI operator action).
func (s *AnswerService) Restore(ctx context.Context, id string) error {
	if err := s.answers.Restore(ctx, id); err != nil {
		return err
	}

	metrics.ContentChanges.WithLabelValues("answer", "restore").Inc()
	s.logger.Info("answer restored", slog.String("id", id))
	return nil
}

// ToggleLike flips userID's membership in the like set of an active answer.
// Authors may like their own answers.
//
// The membership read and the write are two statements without a lock. Two
// concurrent toggles by the same user can both see "not liked"; the set
// semantics of AddLike/RemoveLike keep the data consistent either way.
func (s *AnswerService) ToggleLike(ctx context.Context, id, userID string) (*LikeResult, error) {
	a, err := s.answers.GetByID(ctx, id, model.ScopeActive)
	if err != nil {
		return nil, err
	}

	liked, err := s.answers.HasLike(ctx, a.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("checking like: %w", err)
	}

	action := "like"
	if liked {
		action = "unlike"
		err = s.answers.RemoveLike(ctx, a.ID, userID)
	} else {
		err = s.answers.AddLike(ctx, a.ID, userID)
	}
	if err != nil {
		s.logger.Error("failed to toggle like",
			slog.String("answerID", a.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("toggling like: %w", err)
	}

	metrics.LikeToggles.WithLabelValues(action).Inc()
	s.logger.Info("answer "+action+"d",
		slog.String("answerID", a.ID),
		slog.String("userID", userID),
	)

	return &LikeResult{Liked: !liked, QuestionID: a.QuestionID}, nil
}
