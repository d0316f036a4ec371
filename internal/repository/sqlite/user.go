package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB stores users. Creating a user always creates its profile too, so the
// rest of the app can rely on the one-to-one relation.
type UserDB struct {
	conn *sql.DB
}

const userColumns = `id, username, password_hash, github_id, email, avatar_url, created_at, updated_at`

// Create inserts a new user together with its profile.
//
// TRANSACTION:
// The two INSERTs must succeed or fail together: a user without a profile
// would break subscriptions. BeginTx + deferred Rollback is the standard shape:
// Rollback after a successful Commit is a no-op.
//
// Returns apperror.ErrConflict if the username (or GitHub ID) is already taken.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	tx, err := u.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning user transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}
	if err := insertProfile(ctx, tx, user.ID, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing user %s: %w", user.Username, err)
	}
	return nil
}

// Upsert inserts or updates a user based on their GitHub ID.
//
// An existing GitHub user keeps its internal ID and username; only email and
// avatar are refreshed. A new one is inserted with its profile, exactly like
// Create.
func (u *UserDB) Upsert(ctx context.Context, user *model.User) error {
	existing, err := u.GetByGitHubID(ctx, user.GitHubID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return err
	}

	if existing != nil {
		existing.Email = user.Email
		existing.AvatarURL = user.AvatarURL
		existing.UpdatedAt = time.Now().UTC()

		_, err = u.conn.ExecContext(ctx,
			`UPDATE users SET email = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
			existing.Email,
			existing.AvatarURL,
			existing.UpdatedAt,
			existing.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", existing.ID, err)
		}
		*user = *existing
		return nil
	}

	return u.Create(ctx, user)
}

// GetByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row, "id", id)
}

// GetByUsername retrieves a user by exact (case-sensitive) username.
func (u *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row, "username", username)
}

// GetByGitHubID retrieves a user by GitHub account ID.
func (u *UserDB) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID)
	return scanUser(row, "github_id", fmt.Sprint(githubID))
}

func scanUser(row *sql.Row, key, value string) (*model.User, error) {
	var (
		user     model.User
		githubID sql.NullInt64
	)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&githubID,
		&user.Email,
		&user.AvatarURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s %s: %w", key, value, err)
	}
	user.GitHubID = githubID.Int64
	return &user, nil
}

func insertUser(ctx context.Context, tx *sql.Tx, user *model.User) error {
	// github_id is NULL for form accounts so the UNIQUE index only covers real IDs.
	var githubID sql.NullInt64
	if user.GitHubID != 0 {
		githubID = sql.NullInt64{Int64: user.GitHubID, Valid: true}
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.PasswordHash,
		githubID,
		user.Email,
		user.AvatarURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err, "users.username"):
		return apperror.Conflict("user", user.Username)
	case isUniqueViolation(err, "users.github_id"):
		return apperror.Conflict("user", fmt.Sprint(user.GitHubID))
	default:
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Username, err)
	}
}

func insertProfile(ctx context.Context, tx *sql.Tx, userID string, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (id, user_id, created_at) VALUES (?, ?, ?)`,
		xid.New().String(), userID, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting profile for user %s: %w", userID, err)
	}
	return nil
}
