package user

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"table_admin/internal/auth"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing-only"

// MockUserRepository is a mock implementation of UserRepositoryInterface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, tx *sql.Tx, user *User) (int, error) {
	args := m.Called(user)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, db *sql.DB, username string) (*User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func setupTestService(t *testing.T) (UserServiceInterface, *MockUserRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := new(MockUserRepository)
	return NewUserService(repo, db), repo, sqlMock
}

func storedUser(t *testing.T, id int, username, password string) *User {
	t.Helper()
	hash, err := auth.GeneratePasswordHash(auth.DigestPassword(password))
	require.NoError(t, err)
	return &User{ID: id, Username: username, Password: hash}
}

func TestCreateUser_StoresBcryptOfDigest(t *testing.T) {
	svc, repo, sqlMock := setupTestService(t)

	sqlMock.ExpectBegin()
	sqlMock.ExpectCommit()
	repo.On("GetByUsername", "alice").Return(nil, ErrUserNotFound)

	var stored *User
	repo.On("Create", mock.AnythingOfType("*user.User")).
		Run(func(args mock.Arguments) { stored = args.Get(0).(*User) }).
		Return(5, nil)

	id, err := svc.CreateUser(context.Background(), "alice", "s3cret!")
	require.NoError(t, err)

	assert.Equal(t, 5, id)
	require.NotNil(t, stored)
	assert.NotEqual(t, "s3cret!", stored.Password)
	assert.NoError(t, auth.ComparePasswordHash([]byte(stored.Password), auth.DigestPassword("s3cret!")))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateOnSecondAttempt(t *testing.T) {
	svc, repo, sqlMock := setupTestService(t)

	sqlMock.ExpectBegin()
	sqlMock.ExpectCommit()
	repo.On("GetByUsername", "alice").Return(nil, ErrUserNotFound).Once()
	repo.On("Create", mock.Anything).Return(1, nil).Once()

	_, err := svc.CreateUser(context.Background(), "alice", "password")
	require.NoError(t, err)

	repo.On("GetByUsername", "alice").Return(&User{ID: 1, Username: "alice"}, nil).Once()

	_, err = svc.CreateUser(context.Background(), "alice", "password")
	assert.ErrorIs(t, err, ErrDuplicateUsername)
	repo.AssertNumberOfCalls(t, "Create", 1)
}

func TestCreateUser_UniqueViolationIsDuplicate(t *testing.T) {
	svc, repo, sqlMock := setupTestService(t)

	sqlMock.ExpectBegin()
	sqlMock.ExpectRollback()
	repo.On("GetByUsername", "alice").Return(nil, ErrUserNotFound)
	repo.On("Create", mock.Anything).Return(0, &pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	_, err := svc.CreateUser(context.Background(), "alice", "password")

	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestCreateUser_LookupFailure(t *testing.T) {
	svc, repo, _ := setupTestService(t)
	repo.On("GetByUsername", "alice").Return(nil, errors.New("db down"))

	_, err := svc.CreateUser(context.Background(), "alice", "password")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateUsername)
	repo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestAuthenticate(t *testing.T) {
	svc, repo, _ := setupTestService(t)
	repo.On("GetByUsername", "alice").Return(storedUser(t, 1, "alice", "password"), nil)

	user, err := svc.Authenticate(context.Background(), "alice", auth.DigestPassword("password"))
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)
}

func TestAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	svc, repo, _ := setupTestService(t)
	repo.On("GetByUsername", "alice").Return(storedUser(t, 1, "alice", "password"), nil)
	repo.On("GetByUsername", "ghost").Return(nil, ErrUserNotFound)

	_, wrongPassword := svc.Authenticate(context.Background(), "alice", auth.DigestPassword("wrong"))
	_, unknownUser := svc.Authenticate(context.Background(), "ghost", auth.DigestPassword("password"))
	_, plaintext := svc.Authenticate(context.Background(), "alice", "password")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.ErrorIs(t, plaintext, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestLoginUser_IssuesToken(t *testing.T) {
	svc, repo, _ := setupTestService(t)
	repo.On("GetByUsername", "alice").Return(storedUser(t, 9, "alice", "password"), nil)

	token, err := svc.LoginUser(context.Background(), "alice", auth.DigestPassword("password"), testSecret)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, 9, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}
