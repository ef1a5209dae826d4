package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sirupsen/logrus"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct{}

type UserRepositoryInterface interface {
	Create(ctx context.Context, tx *sql.Tx, user *User) (int, error)
	GetByUsername(ctx context.Context, db *sql.DB, username string) (*User, error)
}

func NewUserRepository() UserRepositoryInterface {
	return &UserRepository{}
}

// Create creates a new user in the database
func (r *UserRepository) Create(
	ctx context.Context,
	tx *sql.Tx,
	user *User,
) (int, error) {
	query := `
		INSERT INTO users (
			username, password, created_at
		)
		VALUES ($1, $2, NOW())
		RETURNING id
	`

	var id int
	err := tx.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Password,
	).Scan(&id)

	if err != nil {
		logrus.WithError(err).Error("Failed to create user")
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  id,
		"username": user.Username,
	}).Info("User created successfully")

	return id, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, db *sql.DB, username string) (*User, error) {
	query := `
		SELECT id, username, password, created_at
		FROM users
		WHERE username = $1
	`

	user := &User{}
	err := db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.Password,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logrus.WithField("username", username).Debug("User not found")
			return nil, ErrUserNotFound
		}
		logrus.WithError(err).Error("Failed to get user by username")
		return nil, err
	}

	return user, nil
}
