package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/qanda/internal/apperror"
	"github.com/sakif/qanda/internal/service"
)

const (
	msgAnswerPosted  = "Your answer has been posted!"
	msgAnswerUpdated = "Your answer has been updated!"
	msgAnswerDeleted = "Your answer has been deleted!"
	msgLiked         = "You liked this answer!"
	msgUnliked       = "You unliked this answer!"
)

// AnswerHandler serves answer creation, editing, deletion and likes.
// All of its routes require a logged-in user.
type AnswerHandler struct {
	answers   *service.AnswerService
	questions *service.QuestionService
	render    *Renderer
	logger    *slog.Logger
}

func NewAnswerHandler(
	answers *service.AnswerService,
	questions *service.QuestionService,
	render *Renderer,
	logger *slog.Logger,
) *AnswerHandler {
	return &AnswerHandler{answers: answers, questions: questions, render: render, logger: logger}
}

// HandleCreateForm renders the question page; the answer form lives there.
//
// HTTP: GET /question/{id}/answer
func (h *AnswerHandler) HandleCreateForm(w http.ResponseWriter, r *http.Request) {
	h.renderDetail(w, r, chi.URLParam(r, "id"), newForm(nil))
}

// HandleCreate posts an answer.
//
// HTTP: POST /question/{id}/answer
// FORM: content
//
// A rejected answer (empty, or on the viewer's own question) redisplays the
// question page with the error and a 200.
func (h *AnswerHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	questionID := chi.URLParam(r, "id")
	_, err := h.answers.Create(r.Context(), questionID, viewerID(r), service.AnswerInput{
		Content: r.PostForm.Get("content"),
	})
	if err != nil {
		if !errors.Is(err, apperror.ErrValidation) {
			h.render.Error(w, r, err)
			return
		}
		form := newForm(r.PostForm)
		form.setError(err)
		h.renderDetail(w, r, questionID, form)
		return
	}

	h.render.Redirect(w, r, questionURL(questionID), levelSuccess, msgAnswerPosted)
}

func (h *AnswerHandler) renderDetail(w http.ResponseWriter, r *http.Request, questionID string, form *Form) {
	detail, err := h.questions.Detail(r.Context(), questionID, viewerID(r))
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	h.render.Render(w, r, http.StatusOK, "question_detail.html", &TemplateData{
		Title:  detail.Question.Title,
		Detail: detail,
		Form:   form,
	})
}

// HandleUpdateForm shows the answer form prefilled. Non-authors get 404.
//
// HTTP: GET /answer/{id}/update
func (h *AnswerHandler) HandleUpdateForm(w http.ResponseWriter, r *http.Request) {
	a, err := h.answers.GetOwned(r.Context(), chi.URLParam(r, "id"), viewerID(r))
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	form := newForm(nil)
	form.Values.Set("content", a.Content)
	h.render.Render(w, r, http.StatusOK, "answer_form.html", &TemplateData{
		Title:  "Edit answer",
		Answer: a,
		Form:   form,
	})
}

// HandleUpdate saves an edited answer.
//
// HTTP: POST /answer/{id}/update
func (h *AnswerHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	a, err := h.answers.Update(r.Context(), id, viewerID(r), service.AnswerInput{
		Content: r.PostForm.Get("content"),
	})
	if err != nil {
		if !errors.Is(err, apperror.ErrValidation) {
			h.render.Error(w, r, err)
			return
		}
		// Ownership was already checked by Update; reload for the page.
		owned, getErr := h.answers.GetOwned(r.Context(), id, viewerID(r))
		if getErr != nil {
			h.render.Error(w, r, getErr)
			return
		}
		form := newForm(r.PostForm)
		form.setError(err)
		h.render.Render(w, r, http.StatusOK, "answer_form.html", &TemplateData{
			Title:  "Edit answer",
			Answer: owned,
			Form:   form,
		})
		return
	}

	h.render.Redirect(w, r, questionURL(a.QuestionID), levelSuccess, msgAnswerUpdated)
}

// HandleDeleteForm asks for confirmation.
//
// HTTP: GET /answer/{id}/delete
func (h *AnswerHandler) HandleDeleteForm(w http.ResponseWriter, r *http.Request) {
	a, err := h.answers.GetOwned(r.Context(), chi.URLParam(r, "id"), viewerID(r))
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	h.render.Render(w, r, http.StatusOK, "answer_delete.html", &TemplateData{
		Title:  "Delete answer",
		Answer: a,
	})
}

// HandleDelete soft deletes the answer. The row stays in the database and
// can be brought back with `qanda restore answer <id>`.
//
// HTTP: POST /answer/{id}/delete
func (h *AnswerHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	a, err := h.answers.Delete(r.Context(), chi.URLParam(r, "id"), viewerID(r))
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	h.render.Redirect(w, r, questionURL(a.QuestionID), levelSuccess, msgAnswerDeleted)
}

// HandleLike likes the answer, or unlikes it if the viewer already did.
// Authors may like their own answers.
//
// HTTP: POST /answer/{id}/like
func (h *AnswerHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	res, err := h.answers.ToggleLike(r.Context(), chi.URLParam(r, "id"), viewerID(r))
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	msg := msgUnliked
	if res.Liked {
		msg = msgLiked
	}
	h.render.Redirect(w, r, questionURL(res.QuestionID), levelSuccess, msg)
}
