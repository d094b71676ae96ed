package service

// AuthService is the business logic layer for accounts:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// KEY RESPONSIBILITIES:
//   - Registration with the username/email/password rules
//   - Email + password login, GitHub sign-in
//   - Turning a token's user ID back into an active user on every request
//   - Account activation for the CLI

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/qanda/internal/apperror"
	"github.com/sakif/qanda/internal/auth"
	"github.com/sakif/qanda/internal/metrics"
	"github.com/sakif/qanda/internal/model"
	"github.com/sakif/qanda/internal/repository"
)

const (
	// MsgLoginFailed is the same for unknown emails, wrong
	// passwords and inactive accounts.
	MsgLoginFailed = "Please enter a correct email and password. Note that both fields may be case-sensitive."

	msgUsernameTaken = "A user with that username already exists."
	msgEmailTaken    = "User with this Email address already exists."
	msgUserTaken     = "A user with that username or email already exists."

	maxUsernameLength = 150
)

// RegisterInput is the registration form.
type RegisterInput struct {
	Username  string `form:"username" validate:"required,max=150,username"`
	Email     string `form:"email" validate:"required,email"`
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Password1 string `form:"password1" validate:"required"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

// LoginInput is the login form. The account is identified by email.
type LoginInput struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// AuthService handles the authentication business logic.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger

	// dummyHash is checked against when the email is unknown, at the same
	// bcrypt cost as real hashes.
	dummyHash string
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	dummy, _ := passwords.Hash(xid.New().String())
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		dummyHash: dummy,
	}
}

// AuthResult bundles the user and the issued JWT so the handler can set the
// cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates an account from the registration form.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	return s.register(ctx, in, "password")
}

// CreateUser is Register for the command line. The same rules apply.
func (s *AuthService) CreateUser(ctx context.Context, in RegisterInput) (*model.User, error) {
	return s.register(ctx, in, "cli")
}

func (s *AuthService) register(ctx context.Context, in RegisterInput, method string) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	errs := checkStruct(&in)

	if _, bad := errs["username"]; !bad {
		taken, err := s.users.UsernameTaken(ctx, in.Username)
		if err != nil {
			return nil, fmt.Errorf("service/auth: checking username: %w", err)
		}
		if taken {
			errs.add("username", msgUsernameTaken)
		}
	}
	if _, bad := errs["email"]; !bad {
		taken, err := s.users.EmailTaken(ctx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("service/auth: checking email: %w", err)
		}
		if taken {
			errs.add("email", msgEmailTaken)
		}
	}

	// The strength policy only runs once both password fields agree.
	_, bad1 := errs["password1"]
	_, bad2 := errs["password2"]
	if !bad1 && !bad2 {
		problems := auth.CheckPassword(in.Password2,
			auth.UserAttribute{Name: "username", Value: in.Username},
			auth.UserAttribute{Name: "first name", Value: in.FirstName},
			auth.UserAttribute{Name: "last name", Value: in.LastName},
			auth.UserAttribute{Name: "email address", Value: in.Email},
		)
		for _, p := range problems {
			errs.add("password2", p)
		}
	}

	if err := errs.err(); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password1)
	if err != nil {
		// Only the 72-byte bcrypt limit can fail here.
		return nil, apperror.ValidationFailed("password2", "Ensure this value has at most 72 bytes.")
	}

	user := &model.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			// Lost a race against another registration with the same name.
			return nil, apperror.ValidationFailed(apperror.NonField, msgUserTaken)
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	metrics.Registrations.WithLabelValues(method).Inc()
	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
		slog.String("method", method),
	)

	return user, nil
}

// Authenticate checks email and password. Unknown emails, wrong passwords and
// inactive accounts all produce the same ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, in LoginInput) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := checkStruct(&in).err(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Burn the same bcrypt time as a real check so response timing
			// does not reveal which emails exist.
			_ = s.passwords.Verify(s.dummyHash, in.Password)
			metrics.Logins.WithLabelValues("password", "failure").Inc()
			return nil, apperror.Unauthorized(MsgLoginFailed)
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", in.Email, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("password verification failed",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		metrics.Logins.WithLabelValues("password", "failure").Inc()
		return nil, apperror.Unauthorized(MsgLoginFailed)
	}
	if !user.IsActive {
		metrics.Logins.WithLabelValues("password", "failure").Inc()
		return nil, apperror.Unauthorized(MsgLoginFailed)
	}

	metrics.Logins.WithLabelValues("password", "success").Inc()
	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return user, nil
}

// Login authenticates and issues a token in one step.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	user, err := s.Authenticate(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
// RESOLUTION ORDER:
//  1. A user already linked to this GitHub ID
//  2. A user with the same email: link the GitHub ID to it
//  3. Otherwise create a user; the username comes from the GitHub login,
//     with a numeric suffix when it is taken
//
// Inactive accounts are refused in every case.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.resolveGitHubUser(ctx, ghUser)
	if err != nil {
		metrics.Logins.WithLabelValues("github", "failure").Inc()
		return nil, err
	}
	if !user.IsActive {
		metrics.Logins.WithLabelValues("github", "failure").Inc()
		return nil, apperror.Unauthorized("This account is inactive.")
	}

	metrics.Logins.WithLabelValues("github", "success").Inc()
	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", ghUser.Login),
	)

	return s.issue(user)
}

func (s *AuthService) resolveGitHubUser(ctx context.Context, ghUser *auth.GitHubUser) (*model.User, error) {
	user, err := s.users.GetByGitHubID(ctx, ghUser.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up github user %d: %w", ghUser.ID, err)
	}

	email := normalizeEmail(ghUser.Email)
	if email != "" {
		user, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			if err := s.users.LinkGitHub(ctx, user.ID, ghUser.ID); err != nil {
				return nil, fmt.Errorf("service/auth: linking github user %d: %w", ghUser.ID, err)
			}
			id := ghUser.ID
			user.GitHubID = &id
			return user, nil
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
		}
	} else {
		// GitHub hides the address; use the noreply form GitHub itself uses.
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", ghUser.ID, ghUser.Login)
	}

	username, err := s.freeUsername(ctx, ghUser.Login)
	if err != nil {
		return nil, err
	}

	first, last, _ := strings.Cut(strings.TrimSpace(ghUser.Name), " ")
	id := ghUser.ID
	user = &model.User{
		Email:     email,
		Username:  username,
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		GitHubID:  &id,
		IsActive:  true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating github user %d: %w", ghUser.ID, err)
	}

	metrics.Registrations.WithLabelValues("github").Inc()
	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
		slog.String("method", "github"),
	)
	return user, nil
}

// freeUsername derives an unused username from a GitHub login:
// "octocat", then "octocat2", "octocat3", ...
func (s *AuthService) freeUsername(ctx context.Context, login string) (string, error) {
	base := strings.Map(func(r rune) rune {
		if strings.ContainsRune("@.+-_", r) || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			return r
		}
		return -1
	}, login)
	if base == "" {
		base = "github"
	}

	for n := 1; n <= 100; n++ {
		candidate := truncate(base, maxUsernameLength)
		if n > 1 {
			suffix := strconv.Itoa(n)
			candidate = truncate(base, maxUsernameLength-len(suffix)) + suffix
		}

		taken, err := s.users.UsernameTaken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("service/auth: checking username: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperror.Conflict("user", base)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// CurrentUser turns the user ID of a valid token back into a user. Missing
// and inactive users are NotFound, which the caller treats as anonymous.
func (s *AuthService) CurrentUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.NotFound("user", id)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperror.NotFound("user", id)
	}
	return user, nil
}

// ValidateToken validates a JWT string and returns the userID it encodes.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

// SetActive activates or deactivates the account with the given email.
// A deactivated user cannot log in, and tokens already issued to them stop
// identifying them on the next request.
func (s *AuthService) SetActive(ctx context.Context, email string, active bool) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if err := s.users.SetActive(ctx, user.ID, active); err != nil {
		return fmt.Errorf("service/auth: updating user %s: %w", user.ID, err)
	}

	s.logger.Info("user active flag changed",
		slog.String("userID", user.ID),
		slog.Any("user", user),
		slog.Bool("active", active),
	)
	return nil
}

// normalizeEmail trims the address and lowercases its domain part.
func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	return local + "@" + strings.ToLower(domain)
}
