// internal/auth/repository.go
package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"oikos-server/internal/common/errors"
	"oikos-server/internal/models"
)

// UserRepository is the Postgres persistence layer for accounts. The metadata
// bag is stored as JSONB so provider-side additions never require a schema
// change.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new account. The email uniqueness check belongs to the
// service; the DB constraint is the backstop.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.CreatedAt = time.Now().UTC()

	metadata, err := json.Marshal(user.Metadata)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, metadata, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.PasswordHash, metadata, user.Verified, user.CreatedAt,
	)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

// GetByEmail fetches an account by email, sql.ErrNoRows when absent.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email = $1", email)
}

// GetByID fetches an account by id, sql.ErrNoRows when absent.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *UserRepository) getBy(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var user models.User
	var metadata []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, metadata, verified, created_at
		FROM users
		WHERE `+where, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &metadata,
		&user.Verified, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &user.Metadata); err != nil {
			return nil, errors.NewQueryExecutionFailedError("user.getBy", err)
		}
	}
	return &user, nil
}

// UpdatePassword replaces the stored credential hash after a reset.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2 WHERE id = $1`, userID, passwordHash)
	if err != nil {
		return errors.NewQueryExecutionFailedError("user.UpdatePassword", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError("user.UpdatePassword", err)
	}
	if affected == 0 {
		return errors.NewAuthenticationError("unknown user")
	}
	return nil
}

// MarkVerified flips the verified flag after a successful code check.
func (r *UserRepository) MarkVerified(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET verified = TRUE WHERE id = $1`, userID)
	if err != nil {
		return errors.NewQueryExecutionFailedError("user.MarkVerified", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError("user.MarkVerified", err)
	}
	if affected == 0 {
		return errors.NewAuthenticationError("unknown user")
	}
	return nil
}
