package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/sakif/qanda/internal/apperror"
	"github.com/sakif/qanda/internal/auth"
	"github.com/sakif/qanda/internal/model"
	"github.com/sakif/qanda/internal/service"
)

type userKey struct{}

// CurrentUser returns the user loaded by LoadUser, or nil for anonymous requests.
func CurrentUser(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey{}).(*model.User)
	return u
}

func withUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// sessionUserKey holds the ID of the user who logged in with this session.
const sessionUserKey = "userID"

// LoadUser turns the user ID placed in the context by auth.OptionalAuth into
// a *model.User for the templates. It must run inside sessions.LoadAndSave.
//
// A signed token alone is not a login. The token's subject has to match the
// user recorded in the scs session at login, so logging out (which destroys
// the session) ends the login even for a copy of the cookie.
//
// A valid token can also outlive its account: the user may have been
// deactivated since it was issued.
//
// Both kinds of request are made anonymous again, so that auth.RequireAuth
// further down the chain sends them to the login page.
func LoadUser(users *service.AuthService, sessions *scs.SessionManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if sessions.GetString(r.Context(), sessionUserKey) != userID {
				logger.Debug("token without a matching session ignored", slog.String("userID", userID))
				r = r.WithContext(auth.WithUserID(r.Context(), ""))
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.CurrentUser(r.Context(), userID)
			switch {
			case err == nil:
				r = r.WithContext(withUser(r.Context(), user))
			case errors.Is(err, apperror.ErrNotFound):
				logger.Debug("token of unknown or inactive user ignored", slog.String("userID", userID))
				r = r.WithContext(auth.WithUserID(r.Context(), ""))
			default:
				logger.Error("loading current user failed",
					slog.String("userID", userID),
					slog.String("error", err.Error()),
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// viewerID is the ID of the current user, or "".
func viewerID(r *http.Request) string {
	if u := CurrentUser(r.Context()); u != nil {
		return u.ID
	}
	return ""
}
