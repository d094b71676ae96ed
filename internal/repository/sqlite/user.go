package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/qanda/internal/apperror"
	"github.com/sakif/qanda/internal/model"
	"github.com/sakif/qanda/internal/repository"
)

// UserDB implements repository.UserRepository.
type UserDB struct {
	conn *sql.DB
}

var _ repository.UserRepository = (*UserDB)(nil)

const userColumns = `id, email, username, first_name, last_name, password_hash, github_id, is_active, date_joined`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.PasswordHash,
		&githubID,
		&u.IsActive,
		&u.DateJoined,
	); err != nil {
		return nil, err
	}
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	return &u, nil
}

// Create inserts a new user. ID and DateJoined are assigned here; DateJoined
// is never written again.
//
// A duplicate email, username or GitHub ID surfaces as apperror.Conflict.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.DateJoined = time.Now().UTC()

	var githubID any
	if user.GitHubID != nil {
		githubID = *user.GitHubID
	}

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Username,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		githubID,
		user.IsActive,
		user.DateJoined,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	return nil
}

func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByEmail looks a user up by email, ignoring case.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

func (u *UserDB) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	user, err := scanUser(u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
		}
		return nil, fmt.Errorf("sqlite: getting user by github_id %d: %w", githubID, err)
	}
	return user, nil
}

// UsernameTaken reports whether any user already has username (case-insensitive).
func (u *UserDB) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return u.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username)
}

// EmailTaken reports whether any user already has email (case-insensitive).
func (u *UserDB) EmailTaken(ctx context.Context, email string) (bool, error) {
	return u.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email)
}

func (u *UserDB) exists(ctx context.Context, query, arg string) (bool, error) {
	var found bool
	if err := u.conn.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("sqlite: checking user existence: %w", err)
	}
	return found, nil
}

// LinkGitHub attaches a GitHub account to an existing user.
func (u *UserDB) LinkGitHub(ctx context.Context, id string, githubID int64) error {
	result, err := u.conn.ExecContext(ctx,
		`UPDATE users SET github_id = ? WHERE id = ?`, githubID, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", id)
		}
		return fmt.Errorf("sqlite: linking github account to user %s: %w", id, err)
	}
	return expectOneRow(result, "user", id)
}

// SetActive flips the is_active flag. Inactive users cannot log in and their
// existing tokens are ignored.
func (u *UserDB) SetActive(ctx context.Context, id string, active bool) error {
	result, err := u.conn.ExecContext(ctx,
		`UPDATE users SET is_active = ? WHERE id = ?`, active, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating is_active for user %s: %w", id, err)
	}
	return expectOneRow(result, "user", id)
}
