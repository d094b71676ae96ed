package auth

import (
	"net/http"
	"time"
)

// TokenCookie is the name of the cookie that carries the login JWT.
const TokenCookie = "token"

// SetTokenCookie stores a signed token in the HttpOnly login cookie.
//
// HttpOnly = JavaScript cannot read this cookie.
// SameSite=Lax = sent on top-level navigations but not on cross-site POSTs,
// which is the only CSRF protection this app has.
func SetTokenCookie(w http.ResponseWriter, token string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie tells the browser to drop the login cookie immediately.
// The token itself stays valid until it expires, but the browser can no
// longer send it.
func ClearTokenCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
