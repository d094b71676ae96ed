package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/rs/xid"

	"github.com/sakif/qanda/internal/apperror"
	"github.com/sakif/qanda/internal/auth"
	"github.com/sakif/qanda/internal/service"
)

const (
	msgRegistered    = "Registration successful!"
	msgLoggedIn      = "Login successful!"
	msgLoggedOut     = "You have been logged out."
	msgGitHubDenied  = "GitHub sign-in was cancelled."
	msgGitHubFailed  = "GitHub sign-in failed. Please try again."
	oauthStateCookie = "oauth_state"
)

// CookieOptions configures the login cookie.
type CookieOptions struct {
	MaxAge time.Duration
	Secure bool
}

// AuthHandler manages registration, login and logout, and the optional
// GitHub OAuth flow.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegisterForm / HandleRegister
//   - HandleLoginForm / HandleLogin → issue the JWT cookie
//   - HandleLogout → clear the cookie and the session
//   - HandleGitHubLogin / HandleGitHubCallback (only routed when GitHub is configured)
//
// DEPENDENCY CHAIN:
//   - auth     *service.AuthService    → checks credentials, creates users
//   - github   *auth.GitHubProvider    → performs the OAuth code exchange (may be nil)
//   - sessions *scs.SessionManager     → session renewal on login, destroy on logout
type AuthHandler struct {
	auth     *service.AuthService
	github   *auth.GitHubProvider
	sessions *scs.SessionManager
	render   *Renderer
	cookies  CookieOptions
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil.
func NewAuthHandler(
	authService *service.AuthService,
	github *auth.GitHubProvider,
	sessions *scs.SessionManager,
	render *Renderer,
	cookies CookieOptions,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:     authService,
		github:   github,
		sessions: sessions,
		render:   render,
		cookies:  cookies,
		logger:   logger,
	}
}

// HandleRegisterForm shows the empty registration form.
//
// HTTP: GET /register
func (h *AuthHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "register.html", &TemplateData{
		Title: "Register",
		Form:  newForm(nil),
	})
}

// HandleRegister creates an account.
//
// HTTP: POST /register
// FORM: username, email, first_name, last_name, password1, password2
//
// Invalid input redisplays the form (200) with the errors; nothing is created.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	in := service.RegisterInput{
		Username:  r.PostForm.Get("username"),
		Email:     r.PostForm.Get("email"),
		FirstName: r.PostForm.Get("first_name"),
		LastName:  r.PostForm.Get("last_name"),
		Password1: r.PostForm.Get("password1"),
		Password2: r.PostForm.Get("password2"),
	}

	if _, err := h.auth.Register(r.Context(), in); err != nil {
		form := newForm(r.PostForm)
		if !form.setError(err) {
			h.render.ServerError(w, r, err)
			return
		}
		// Never echo passwords back into the page.
		form.Values.Del("password1")
		form.Values.Del("password2")
		h.render.Render(w, r, http.StatusOK, "register.html", &TemplateData{Title: "Register", Form: form})
		return
	}

	h.render.Redirect(w, r, "/login", levelSuccess, msgRegistered)
}

// HandleLoginForm shows the login form. Users who are already logged in are
// sent on to "next" (or home) instead.
//
// HTTP: GET /login?next=/question/abc/update
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if CurrentUser(r.Context()) != nil {
		http.Redirect(w, r, next, http.StatusFound)
		return
	}

	h.render.Render(w, r, http.StatusOK, "login.html", &TemplateData{
		Title: "Log in",
		Form:  newForm(nil),
		Next:  next,
	})
}

// HandleLogin checks the credentials and sets the login cookie.
//
// HTTP: POST /login
// FORM: email (or username, the name the login form field had historically), password, next
//
// On success the session token is renewed, so a session id planted before
// login is useless afterwards.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	email := r.PostForm.Get("email")
	if email == "" {
		email = r.PostForm.Get("username")
	}
	next := safeNext(r.PostForm.Get("next"))

	result, err := h.auth.Login(r.Context(), service.LoginInput{
		Email:    email,
		Password: r.PostForm.Get("password"),
	})
	if err != nil {
		form := newForm(url.Values{"email": {email}})
		if !form.setError(err) {
			h.render.ServerError(w, r, err)
			return
		}
		h.render.Render(w, r, http.StatusOK, "login.html", &TemplateData{Title: "Log in", Form: form, Next: next})
		return
	}

	if err := h.startSession(r, result.User.ID); err != nil {
		h.render.ServerError(w, r, err)
		return
	}
	auth.SetTokenCookie(w, result.Token, h.cookies.MaxAge, h.cookies.Secure)
	h.render.Redirect(w, r, next, levelSuccess, msgLoggedIn)
}

// HandleLogout clears the JWT cookie and destroys the session.
//
// HTTP: POST /logout
//
// WHY POST AND NOT GET?
// Logout is a state-changing operation. Using GET would be vulnerable to
// CSRF and to browsers pre-fetching the URL.
//
// Destroy deletes the session row, and with it the user ID that LoadUser
// requires next to the token. A copy of the old token cookie is worthless
// from here on, even though its signature and expiry are still valid.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearTokenCookie(w, h.cookies.Secure)
	if err := h.sessions.Destroy(r.Context()); err != nil {
		h.render.ServerError(w, r, err)
		return
	}

	h.logger.Info("user logged out", slog.String("userID", viewerID(r)))
	// Destroy leaves an empty session behind; the flash goes into it.
	h.render.Redirect(w, r, "/", levelInfo, msgLoggedOut)
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// We generate a random state string and store it in a short-lived cookie.
// When GitHub calls back, HandleGitHubCallback verifies the state matches.
// This proves the callback was initiated by this server, not a CSRF attacker.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusFound)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Find, link or create the local user (service.AuthService)
//  4. Issue the JWT cookie and redirect home
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: invalid OAuth state")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		h.render.Redirect(w, r, "/login", levelInfo, msgGitHubDenied)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		h.render.Redirect(w, r, "/login", levelError, msgGitHubFailed)
		return
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		var appErr *apperror.AppError
		if errors.Is(err, apperror.ErrUnauthorized) && errors.As(err, &appErr) {
			h.render.Redirect(w, r, "/login", levelError, appErr.Message)
			return
		}
		h.render.ServerError(w, r, err)
		return
	}

	if err := h.startSession(r, result.User.ID); err != nil {
		h.render.ServerError(w, r, err)
		return
	}
	auth.SetTokenCookie(w, result.Token, h.cookies.MaxAge, h.cookies.Secure)
	h.render.Redirect(w, r, "/", levelSuccess, msgLoggedIn)
}

// startSession gives the browser a fresh session id and binds the login to it.
// RenewToken first, so a session id planted before login is useless afterwards.
func (h *AuthHandler) startSession(r *http.Request, userID string) error {
	if err := h.sessions.RenewToken(r.Context()); err != nil {
		return err
	}
	h.sessions.Put(r.Context(), sessionUserKey, userID)
	return nil
}

// safeNext keeps only local redirect targets: an absolute path on this site.
// Anything else ("https://evil.example", "//evil.example", "") becomes "/".
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return next
}
