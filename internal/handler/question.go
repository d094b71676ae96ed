package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/qanda/internal/apperror"
	"github.com/sakif/qanda/internal/service"
)

const (
	msgQuestionPosted  = "Your question has been posted!"
	msgQuestionUpdated = "Your question has been updated!"
	msgQuestionDeleted = "Your question has been deleted!"
)

// QuestionHandler serves the home page and the question pages.
//
// Every mutating route sits behind auth.RequireAuth, so CurrentUser is never
// nil in the Create/Update/Delete handlers.
type QuestionHandler struct {
	questions *service.QuestionService
	render    *Renderer
	logger    *slog.Logger
}

func NewQuestionHandler(questions *service.QuestionService, render *Renderer, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{questions: questions, render: render, logger: logger}
}

func questionURL(id string) string {
	return "/question/" + id
}

// HandleHome lists the questions, newest first, ten per page.
//
// HTTP: GET /?page=2
//
// A missing or non-numeric page shows page 1; a page past the end is empty.
func (h *QuestionHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 1
	}

	p, err := h.questions.List(r.Context(), page)
	if err != nil {
		h.render.ServerError(w, r, err)
		return
	}

	h.render.Render(w, r, http.StatusOK, "home.html", &TemplateData{Title: "Questions", Page: p})
}

// HandleDetail shows a question with its answers.
//
// HTTP: GET /question/{id}
func (h *QuestionHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.questions.Detail(r.Context(), chi.URLParam(r, "id"), viewerID(r))
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	h.render.Render(w, r, http.StatusOK, "question_detail.html", &TemplateData{
		Title:  detail.Question.Title,
		Detail: detail,
		Form:   newForm(nil),
	})
}

// HandleCreateForm shows the empty question form.
//
// HTTP: GET /question/create
func (h *QuestionHandler) HandleCreateForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "Ask a question", "/question/create", newForm(nil))
}

// HandleCreate posts a question.
//
// HTTP: POST /question/create
// FORM: title, content
func (h *QuestionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := parseQuestionForm(w, r)
	if !ok {
		return
	}

	q, err := h.questions.Create(r.Context(), viewerID(r), in)
	if err != nil {
		h.formError(w, r, "Ask a question", "/question/create", err)
		return
	}

	h.render.Redirect(w, r, questionURL(q.ID), levelSuccess, msgQuestionPosted)
}

// HandleUpdateForm shows the question form prefilled with the current text.
//
// HTTP: GET /question/{id}/update
//
// Only the author gets the form. Everyone else gets 404, exactly as if the
// question did not exist.
func (h *QuestionHandler) HandleUpdateForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q, err := h.questions.GetOwned(r.Context(), id, viewerID(r))
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	form := newForm(nil)
	form.Values.Set("title", q.Title)
	form.Values.Set("content", q.Content)
	h.renderForm(w, r, "Edit question", questionURL(id)+"/update", form)
}

// HandleUpdate saves an edited question.
//
// HTTP: POST /question/{id}/update
func (h *QuestionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	in, ok := parseQuestionForm(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	q, err := h.questions.Update(r.Context(), id, viewerID(r), in)
	if err != nil {
		h.formError(w, r, "Edit question", questionURL(id)+"/update", err)
		return
	}

	h.render.Redirect(w, r, questionURL(q.ID), levelSuccess, msgQuestionUpdated)
}

// HandleDeleteForm asks for confirmation.
//
// HTTP: GET /question/{id}/delete
func (h *QuestionHandler) HandleDeleteForm(w http.ResponseWriter, r *http.Request) {
	q, err := h.questions.GetOwned(r.Context(), chi.URLParam(r, "id"), viewerID(r))
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	h.render.Render(w, r, http.StatusOK, "question_delete.html", &TemplateData{
		Title:    "Delete question",
		Question: q,
	})
}

// HandleDelete soft deletes the question and goes home.
//
// HTTP: POST /question/{id}/delete
func (h *QuestionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.questions.Delete(r.Context(), chi.URLParam(r, "id"), viewerID(r)); err != nil {
		h.render.Error(w, r, err)
		return
	}

	h.render.Redirect(w, r, "/", levelSuccess, msgQuestionDeleted)
}

func (h *QuestionHandler) renderForm(w http.ResponseWriter, r *http.Request, title, action string, form *Form) {
	h.render.Render(w, r, http.StatusOK, "question_form.html", &TemplateData{
		Title:  title,
		Action: action,
		Form:   form,
	})
}

// formError redisplays the form for validation errors and falls back to
// Renderer.Error for everything else (404 for foreign questions).
func (h *QuestionHandler) formError(w http.ResponseWriter, r *http.Request, title, action string, err error) {
	if !errors.Is(err, apperror.ErrValidation) {
		h.render.Error(w, r, err)
		return
	}
	form := newForm(r.PostForm)
	form.setError(err)
	h.renderForm(w, r, title, action, form)
}

func parseQuestionForm(w http.ResponseWriter, r *http.Request) (service.QuestionInput, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return service.QuestionInput{}, false
	}
	return service.QuestionInput{
		Title:   r.PostForm.Get("title"),
		Content: r.PostForm.Get("content"),
	}, true
}
