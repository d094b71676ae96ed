package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sakif/qanda/internal/apperror"
	"github.com/sakif/qanda/internal/auth"
	"github.com/sakif/qanda/internal/model"
	"github.com/sakif/qanda/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// Hand-written in-memory implementations of the repository interfaces.
// They copy values in and out so a test can't mutate stored state by
// accident, and each has an err field to simulate a database failure.

var baseTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int
	err    error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.err != nil {
		return f.err
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, user.Email) || strings.EqualFold(u.Username, user.Username) {
			return apperror.Conflict("user", user.Email)
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.DateJoined = baseTime
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) find(match func(*model.User) bool, key string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if match(u) {
			found := *u
			return &found, nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id }, id)
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return strings.EqualFold(u.Email, email) }, email)
}

func (f *fakeUserRepo) GetByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.GitHubID != nil && *u.GitHubID == githubID }, fmt.Sprint(githubID))
}

func (f *fakeUserRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := f.find(func(u *model.User) bool { return strings.EqualFold(u.Username, username) }, username)
	return err == nil, ignoreNotFound(err)
}

func (f *fakeUserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, ignoreNotFound(err)
}

func (f *fakeUserRepo) LinkGitHub(_ context.Context, id string, githubID int64) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.GitHubID = &githubID
	return nil
}

func (f *fakeUserRepo) SetActive(_ context.Context, id string, active bool) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.IsActive = active
	return nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	return err
}

type fakeQuestionRepo struct {
	questions map[string]*model.Question
	nextID    int
	err       error
}

var _ repository.QuestionRepository = (*fakeQuestionRepo)(nil)

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{questions: make(map[string]*model.Question)}
}

func visible(deletedAt *time.Time, scope model.Scope) bool {
	switch scope {
	case model.ScopeWithDeleted:
		return true
	case model.ScopeOnlyDeleted:
		return deletedAt != nil
	default:
		return deletedAt == nil
	}
}

func (f *fakeQuestionRepo) Create(_ context.Context, q *model.Question) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	q.ID = fmt.Sprintf("q-%03d", f.nextID)
	q.CreatedAt = baseTime.Add(time.Duration(f.nextID) * time.Minute)
	q.UpdatedAt = q.CreatedAt
	stored := *q
	f.questions[q.ID] = &stored
	return nil
}

func (f *fakeQuestionRepo) GetByID(_ context.Context, id string, scope model.Scope) (*model.Question, error) {
	q, ok := f.questions[id]
	if !ok || !visible(q.DeletedAt, scope) {
		return nil, apperror.NotFound("question", id)
	}
	found := *q
	return &found, nil
}

func (f *fakeQuestionRepo) GetOwned(ctx context.Context, id, authorID string) (*model.Question, error) {
	q, err := f.GetByID(ctx, id, model.ScopeActive)
	if err != nil || q.AuthorID != authorID {
		return nil, apperror.NotFound("question", id)
	}
	return q, nil
}

func (f *fakeQuestionRepo) filtered(opts repository.ListOptions) []model.Question {
	var out []model.Question
	for _, q := range f.questions {
		if visible(q.DeletedAt, opts.Scope) && (opts.AuthorID == "" || q.AuthorID == opts.AuthorID) {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeQuestionRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	all := f.filtered(opts)
	if opts.Offset >= len(all) {
		return []model.Question{}, nil
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, nil
}

func (f *fakeQuestionRepo) Count(_ context.Context, opts repository.ListOptions) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return len(f.filtered(opts)), nil
}

func (f *fakeQuestionRepo) Update(_ context.Context, q *model.Question) error {
	if f.err != nil {
		return f.err
	}
	stored, ok := f.questions[q.ID]
	if !ok || stored.DeletedAt != nil {
		return apperror.NotFound("question", q.ID)
	}
	stored.Title, stored.Content = q.Title, q.Content
	return nil
}

func (f *fakeQuestionRepo) SoftDelete(_ context.Context, id string) error {
	q, ok := f.questions[id]
	if !ok || q.DeletedAt != nil {
		return apperror.NotFound("question", id)
	}
	now := baseTime
	q.DeletedAt = &now
	return nil
}

func (f *fakeQuestionRepo) Restore(_ context.Context, id string) error {
	q, ok := f.questions[id]
	if !ok || q.DeletedAt == nil {
		return apperror.NotFound("question", id)
	}
	q.DeletedAt = nil
	return nil
}

type fakeAnswerRepo struct {
	answers map[string]*model.Answer
	likes   map[string]map[string]bool
	nextID  int
	err     error
}

var _ repository.AnswerRepository = (*fakeAnswerRepo)(nil)

func newFakeAnswerRepo() *fakeAnswerRepo {
	return &fakeAnswerRepo{
		answers: make(map[string]*model.Answer),
		likes:   make(map[string]map[string]bool),
	}
}

func (f *fakeAnswerRepo) withLikes(a *model.Answer) model.Answer {
	out := *a
	out.Likes = nil
	for user := range f.likes[a.ID] {
		out.Likes = append(out.Likes, user)
	}
	sort.Strings(out.Likes)
	return out
}

func (f *fakeAnswerRepo) Create(_ context.Context, a *model.Answer) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	a.ID = fmt.Sprintf("a-%03d", f.nextID)
	a.CreatedAt = baseTime.Add(time.Duration(f.nextID) * time.Minute)
	a.UpdatedAt = a.CreatedAt
	stored := *a
	f.answers[a.ID] = &stored
	return nil
}

func (f *fakeAnswerRepo) GetByID(_ context.Context, id string, scope model.Scope) (*model.Answer, error) {
	a, ok := f.answers[id]
	if !ok || !visible(a.DeletedAt, scope) {
		return nil, apperror.NotFound("answer", id)
	}
	found := f.withLikes(a)
	return &found, nil
}

func (f *fakeAnswerRepo) GetOwned(ctx context.Context, id, authorID string) (*model.Answer, error) {
	a, err := f.GetByID(ctx, id, model.ScopeActive)
	if err != nil || a.AuthorID != authorID {
		return nil, apperror.NotFound("answer", id)
	}
	return a, nil
}

func (f *fakeAnswerRepo) ListByQuestion(_ context.Context, questionID string, scope model.Scope) ([]model.Answer, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Answer{}
	for _, a := range f.answers {
		if a.QuestionID == questionID && visible(a.DeletedAt, scope) {
			out = append(out, f.withLikes(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeAnswerRepo) Update(_ context.Context, a *model.Answer) error {
	if f.err != nil {
		return f.err
	}
	stored, ok := f.answers[a.ID]
	if !ok || stored.DeletedAt != nil {
		return apperror.NotFound("answer", a.ID)
	}
	stored.Content = a.Content
	return nil
}

func (f *fakeAnswerRepo) SoftDelete(_ context.Context, id string) error {
	a, ok := f.answers[id]
	if !ok || a.DeletedAt != nil {
		return apperror.NotFound("answer", id)
	}
	now := baseTime
	a.DeletedAt = &now
	return nil
}

func (f *fakeAnswerRepo) Restore(_ context.Context, id string) error {
	a, ok := f.answers[id]
	if !ok || a.DeletedAt == nil {
		return apperror.NotFound("answer", id)
	}
	a.DeletedAt = nil
	return nil
}

func (f *fakeAnswerRepo) HasLike(_ context.Context, answerID, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.likes[answerID][userID], nil
}

func (f *fakeAnswerRepo) AddLike(_ context.Context, answerID, userID string) error {
	if f.err != nil {
		return f.err
	}
	if f.likes[answerID] == nil {
		f.likes[answerID] = make(map[string]bool)
	}
	f.likes[answerID][userID] = true
	return nil
}

func (f *fakeAnswerRepo) RemoveLike(_ context.Context, answerID, userID string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.likes[answerID], userID)
	return nil
}

// =========================================================================
// TEST HELPERS
// =========================================================================

// quietLogger only lets errors through, keeping test output readable.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestAuthService(t *testing.T, repo *fakeUserRepo) *AuthService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Cost 4 is bcrypt minimum, which keeps tests fast
	ps := auth.NewPasswordService(bcrypt.MinCost)

	return NewAuthService(repo, ts, ps, quietLogger())
}

type contentFixture struct {
	questions *fakeQuestionRepo
	answers   *fakeAnswerRepo
	qsvc      *QuestionService
	asvc      *AnswerService
}

func newContentFixture(t *testing.T) *contentFixture {
	t.Helper()
	questions := newFakeQuestionRepo()
	answers := newFakeAnswerRepo()
	return &contentFixture{
		questions: questions,
		answers:   answers,
		qsvc:      NewQuestionService(questions, answers, quietLogger()),
		asvc:      NewAnswerService(answers, questions, quietLogger()),
	}
}

func (f *contentFixture) question(t *testing.T, authorID, title string) *model.Question {
	t.Helper()
	q, err := f.qsvc.Create(context.Background(), authorID, QuestionInput{Title: title, Content: "body of " + title})
	if err != nil {
		t.Fatalf("creating question: %v", err)
	}
	return q
}

func (f *contentFixture) answer(t *testing.T, questionID, authorID, content string) *model.Answer {
	t.Helper()
	a, err := f.asvc.Create(context.Background(), questionID, authorID, AnswerInput{Content: content})
	if err != nil {
		t.Fatalf("creating answer: %v", err)
	}
	return a
}
