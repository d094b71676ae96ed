package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

// newFakeGitHub serves the two endpoints the code exchange touches: the
// token endpoint and the /user API.
func newFakeGitHub(t *testing.T, user GitHubUser, userStatus int) *GitHubProvider {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "bad_verification_code"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gh-token", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(userStatus)
		json.NewEncoder(w).Encode(user)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewGitHubProvider("client-id", "client-secret", "http://localhost/auth/github/callback")
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/login/oauth/authorize",
		TokenURL: srv.URL + "/login/oauth/access_token",
	}
	p.userURL = srv.URL + "/user"
	return p
}

func TestGitHubAuthURL(t *testing.T) {
	p := NewGitHubProvider("client-id", "client-secret", "http://localhost/auth/github/callback")

	u, err := url.Parse(p.AuthURL("state-123"))
	if err != nil {
		t.Fatalf("AuthURL() is not a URL: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "state-123" || q.Get("client_id") != "client-id" {
		t.Errorf("AuthURL() query = %v", q)
	}
	if !strings.Contains(q.Get("scope"), "user:email") {
		t.Errorf("AuthURL() scope = %q, want user:email", q.Get("scope"))
	}
}

func TestGitHubExchange(t *testing.T) {
	p := newFakeGitHub(t, GitHubUser{ID: 99, Login: "octocat", Email: "octo@example.com"}, http.StatusOK)

	user, err := p.Exchange(t.Context(), "good-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if user.ID != 99 || user.Login != "octocat" {
		t.Errorf("Exchange() = %+v", user)
	}
}

func TestGitHubExchange_Failures(t *testing.T) {
	tests := []struct {
		name   string
		user   GitHubUser
		status int
		code   string
	}{
		{"bad code", GitHubUser{ID: 1}, http.StatusOK, "bad-code"},
		{"api error", GitHubUser{ID: 1}, http.StatusInternalServerError, "good-code"},
		{"zero id", GitHubUser{Login: "ghost"}, http.StatusOK, "good-code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeGitHub(t, tt.user, tt.status)
			if _, err := p.Exchange(t.Context(), tt.code); err == nil {
				t.Fatal("Exchange() error = nil, want failure")
			}
		})
	}
}
