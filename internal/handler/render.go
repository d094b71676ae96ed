// Package handler contains the HTTP request handlers of the Q&A board.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, we use http.HandlerFunc — a function with the right signature
// that automatically satisfies the Handler interface. Chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path params, query string, form body)
// 2. Call the service layer
// 3. Render a page, or set a flash message and redirect
//
// Handlers should NOT contain business logic. Ownership, validation and the
// like toggle all live in internal/service.
package handler

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/sakif/qanda/internal/apperror"
	"github.com/sakif/qanda/internal/model"
	"github.com/sakif/qanda/internal/service"
)

// templateFS holds every page template, compiled into the binary.
//
//go:embed templates/*.html
var templateFS embed.FS

// Session keys of the one-shot flash message.
const (
	flashKey      = "flash"
	flashLevelKey = "flash_level"
)

// Flash levels, used as CSS classes in base.html.
const (
	levelSuccess = "success"
	levelInfo    = "info"
	levelError   = "error"
)

// Flash is a message shown once on the next rendered page.
type Flash struct {
	Level   string
	Message string
}

// Form carries submitted values and their validation errors back into a
// template, so a rejected form is redisplayed with the user's input.
type Form struct {
	Values url.Values
	Errors map[string]string
}

func newForm(values url.Values) *Form {
	if values == nil {
		values = url.Values{}
	}
	return &Form{Values: values, Errors: map[string]string{}}
}

// Get returns the submitted value of field.
func (f *Form) Get(field string) string {
	if f == nil {
		return ""
	}
	return f.Values.Get(field)
}

// setError copies the field errors of a validation or login error into the
// form. It reports false for any other kind of error.
func (f *Form) setError(err error) bool {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return false
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		for field, msg := range appErr.Fields {
			f.Errors[field] = msg
		}
		if len(appErr.Fields) == 0 {
			f.Errors[apperror.NonField] = appErr.Message
		}
		return true
	case errors.Is(err, apperror.ErrUnauthorized):
		f.Errors[apperror.NonField] = appErr.Message
		return true
	}
	return false
}

// TemplateData is passed to every page. The common fields are filled in by
// Renderer.Render; handlers set the page-specific ones.
type TemplateData struct {
	Title         string
	User          *model.User
	Flash         *Flash
	GitHubEnabled bool

	Form   *Form
	Action string // form action URL
	Next   string // login redirect target

	Page     *service.Page
	Detail   *service.QuestionDetail
	Question *model.Question
	Answer   *model.Answer
}

// Renderer parses the templates once at startup and renders pages.
//
// TEMPLATE COMPOSITION:
// Every page is parsed together with base.html. base.html defines the layout
// with a {{template "content" .}} placeholder and each page defines
// {{define "content"}}...{{end}} to fill it. Pages are parsed into separate
// template sets so their "content" definitions do not overwrite each other.
type Renderer struct {
	pages         map[string]*template.Template
	sessions      *scs.SessionManager
	logger        *slog.Logger
	githubEnabled bool
}

// NewRenderer parses every page in templates/.
func NewRenderer(sessions *scs.SessionManager, logger *slog.Logger, githubEnabled bool) (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		page := strings.TrimPrefix(name, "templates/")
		if page == "base.html" {
			continue
		}
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/base.html", name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		pages[page] = tmpl
	}

	return &Renderer{
		pages:         pages,
		sessions:      sessions,
		logger:        logger,
		githubEnabled: githubEnabled,
	}, nil
}

// Render executes page with data and writes it with the given status.
//
// The page is rendered into a buffer first: if execution fails halfway we
// can still send a clean 500 instead of half a page with a 200 status.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data *TemplateData) {
	tmpl, ok := rd.pages[page]
	if !ok {
		rd.ServerError(w, r, fmt.Errorf("template %s does not exist", page))
		return
	}

	if data == nil {
		data = &TemplateData{}
	}
	data.User = CurrentUser(r.Context())
	data.Flash = rd.popFlash(r)
	data.GitHubEnabled = rd.githubEnabled

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		rd.ServerError(w, r, fmt.Errorf("rendering %s: %w", page, err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Flash stores a message for the next rendered page.
func (rd *Renderer) Flash(r *http.Request, level, message string) {
	rd.sessions.Put(r.Context(), flashKey, message)
	rd.sessions.Put(r.Context(), flashLevelKey, level)
}

func (rd *Renderer) popFlash(r *http.Request) *Flash {
	msg := rd.sessions.PopString(r.Context(), flashKey)
	level := rd.sessions.PopString(r.Context(), flashLevelKey)
	if msg == "" {
		return nil
	}
	if level == "" {
		level = levelInfo
	}
	return &Flash{Level: level, Message: msg}
}

// Redirect sets a flash message and sends a 302 to target.
func (rd *Renderer) Redirect(w http.ResponseWriter, r *http.Request, target, level, message string) {
	if message != "" {
		rd.Flash(r, level, message)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// NotFound renders the 404 page.
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rd.Render(w, r, http.StatusNotFound, "not_found.html", &TemplateData{Title: "Not found"})
}

// ServerError logs err and sends a bare 500. It does not use a template so
// that a broken template cannot recurse.
func (rd *Renderer) ServerError(w http.ResponseWriter, r *http.Request, err error) {
	rd.logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Error answers a service error that is not a form error: NotFound (which
// includes "not yours") becomes the 404 page, anything else a 500.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperror.ErrNotFound) {
		rd.NotFound(w, r)
		return
	}
	rd.ServerError(w, r, err)
}

var funcs = template.FuncMap{
	"fieldError":     fieldError,
	"nonFieldErrors": nonFieldErrors,
	"label":          label,
	"toID":           toID,
}

func errorSpan(msg string) template.HTML {
	return template.HTML(`<span class="form-error">` + template.HTMLEscapeString(msg) + `</span>`)
}

// fieldError renders the error of one input, or nothing.
func fieldError(f *Form, field string) template.HTML {
	if f == nil || f.Errors[field] == "" {
		return ""
	}
	return errorSpan(f.Errors[field])
}

// nonFieldErrors renders the error that belongs to the whole form.
func nonFieldErrors(f *Form) template.HTML {
	return fieldError(f, apperror.NonField)
}

// label renders a <label> whose "for" is toID(text), with a marker on
// required inputs.
func label(text string, required bool) template.HTML {
	marker := ""
	if required {
		marker = ` <span class="required">*</span>`
	}
	return template.HTML(fmt.Sprintf(`<label for="%s">%s%s</label>`,
		template.HTMLEscapeString(toID(text)),
		template.HTMLEscapeString(text),
		marker,
	))
}

// toID turns a label into an element id: "Confirm password" → "confirm_password".
func toID(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
}
