package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"table_admin/internal/auth"
	"table_admin/internal/utils"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const pgUniqueViolation = "23505"

type UserService struct {
	repo UserRepositoryInterface
	db   *sql.DB
}

type UserServiceInterface interface {
	CreateUser(ctx context.Context, username, password string) (int, error)
	Authenticate(ctx context.Context, username, digest string) (*User, error)
	LoginUser(ctx context.Context, username, digest, jwtSecret string) (string, error)
}

func NewUserService(repo UserRepositoryInterface, db *sql.DB) UserServiceInterface {
	return &UserService{
		repo: repo,
		db:   db,
	}
}

// CreateUser stores bcrypt(sha256(password)) under a new username.
func (s *UserService) CreateUser(ctx context.Context, username, password string) (int, error) {
	existing, err := s.repo.GetByUsername(ctx, s.db, username)
	if err == nil && existing != nil {
		return 0, ErrDuplicateUsername
	}
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return 0, err
	}

	hashedPassword, err := auth.GeneratePasswordHash(auth.DigestPassword(password))
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Username: username,
		Password: hashedPassword,
	}

	var id int
	err = utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		id, err = s.repo.Create(ctx, tx, user)
		return err
	})
	if err != nil {
		// A concurrent registration can win between the check and the insert.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, ErrDuplicateUsername
		}
		return 0, err
	}

	return id, nil
}

// Authenticate checks a login digest. Unknown users and wrong passwords give
// the same error.
func (s *UserService) Authenticate(ctx context.Context, username, digest string) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, s.db, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := auth.ComparePasswordHash([]byte(user.Password), digest); err != nil {
		logrus.WithField("username", username).Debug("Password mismatch")
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) LoginUser(ctx context.Context, username, digest, jwtSecret string) (string, error) {
	user, err := s.Authenticate(ctx, username, digest)
	if err != nil {
		return "", err
	}

	return auth.GenerateToken(user.ID, user.Username, jwtSecret)
}
