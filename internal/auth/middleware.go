package auth

import (
	"context"
	"net/http"
	"net/url"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. A plain string key could be
// read or shadowed by any package that knows the string. Only this package
// can create a contextKey, so only this package can read or write the userID.
type contextKey string

const userIDKey contextKey = "userID"

// OptionalAuth extracts the user identity if a valid token cookie is present,
// but never blocks the request. It runs on every route: the question list and
// detail pages are public, and they only use the identity to show extra
// controls (edit links, answer form, like buttons).
//
// Handlers check for the user via UserIDFromContext: ("", false) means the
// request is anonymous.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth enforces authentication on protected routes.
//
// It expects OptionalAuth (and anything that may demote the identity, such as
// a check that the account is still active) to have run earlier in the chain.
// Anonymous requests get a 302 to loginPath with the original path in "next",
// so the login form can send the user back afterwards.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserIDFromContext(r.Context()); !ok {
				http.Redirect(w, r, LoginRedirect(loginPath, r.URL.RequestURI()), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRedirect builds "<loginPath>?next=<escaped next>".
func LoginRedirect(loginPath, next string) string {
	return loginPath + "?" + url.Values{"next": {next}}.Encode()
}

// WithUserID returns a copy of ctx carrying userID. An empty userID makes the
// request anonymous again.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
//
// Returns ("", false) if the request is anonymous.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// extractUserID reads the token cookie and validates it.
//
// COOKIE FLOW:
//  1. Set-Cookie: token=<jwt>; HttpOnly; SameSite=Lax (set on login)
//  2. Browser automatically sends Cookie: token=<jwt> on subsequent requests
//  3. We read r.Cookie("token") and validate it
func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(TokenCookie)
	if err != nil {
		// http.ErrNoCookie: anonymous, not a failure
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
