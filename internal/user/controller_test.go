package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"table_admin/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserService is a mock implementation of UserServiceInterface
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, username, password string) (int, error) {
	args := m.Called(username, password)
	return args.Int(0), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, username, digest string) (*User, error) {
	args := m.Called(username, digest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserService) LoginUser(ctx context.Context, username, digest, jwtSecret string) (string, error) {
	args := m.Called(username, digest, jwtSecret)
	return args.String(0), args.Error(1)
}

func setupTestRouter(service UserServiceInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	controller := NewUserController(service, testSecret)
	router.POST("/api/register", controller.Register)
	router.POST("/api/login", controller.Login)

	withClaims := func(c *gin.Context) {
		auth.SetClaims(c, &auth.Claims{UserID: 3, Username: "alice"})
		c.Next()
	}
	router.POST("/api/refresh-token", withClaims, controller.RefreshToken)
	router.GET("/api/verify-token", withClaims, controller.VerifyToken)
	router.GET("/api/verify-token-anonymous", controller.VerifyToken)

	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestRegister_Success(t *testing.T) {
	svc := new(MockUserService)
	svc.On("CreateUser", "alice", "password").Return(1, nil)

	w := postJSON(setupTestRouter(svc), "/api/register", `{"username": "alice", "password": "password"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	response := decode(t, w)
	assert.Equal(t, float64(1), response["user_id"])
	assert.Equal(t, "User created successfully", response["message"])
}

func TestRegister_Duplicate(t *testing.T) {
	svc := new(MockUserService)
	svc.On("CreateUser", "alice", "password").Return(0, ErrDuplicateUsername)

	w := postJSON(setupTestRouter(svc), "/api/register", `{"username": "alice", "password": "password"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username already exists", decode(t, w)["error"])
}

func TestRegister_Validation(t *testing.T) {
	svc := new(MockUserService)
	router := setupTestRouter(svc)

	for _, body := range []string{
		`{"username": "al", "password": "password"}`,
		`{"username": "alice", "password": "123"}`,
		`{"username": "alice"}`,
		`not json`,
	} {
		w := postJSON(router, "/api/register", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "Invalid request body", decode(t, w)["error"], body)
	}
	svc.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestRegister_InternalError(t *testing.T) {
	svc := new(MockUserService)
	svc.On("CreateUser", "alice", "password").Return(0, errors.New("db down"))

	w := postJSON(setupTestRouter(svc), "/api/register", `{"username": "alice", "password": "password"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w)["error"])
}

func TestLogin_Success(t *testing.T) {
	svc := new(MockUserService)
	digest := auth.DigestPassword("password")
	svc.On("LoginUser", "alice", digest, testSecret).Return("signed.token.value", nil)

	w := postJSON(setupTestRouter(svc), "/api/login", `{"username": "alice", "password": "`+digest+`"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "signed.token.value", decode(t, w)["token"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := new(MockUserService)
	svc.On("LoginUser", "alice", "bad", testSecret).Return("", ErrInvalidCredentials)

	w := postJSON(setupTestRouter(svc), "/api/login", `{"username": "alice", "password": "bad"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decode(t, w)["error"])
}

func TestLogin_MissingFields(t *testing.T) {
	svc := new(MockUserService)

	w := postJSON(setupTestRouter(svc), "/api/login", `{"username": "alice"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decode(t, w)["error"])
}

func TestRefreshToken(t *testing.T) {
	w := postJSON(setupTestRouter(new(MockUserService)), "/api/refresh-token", ``)

	assert.Equal(t, http.StatusOK, w.Code)
	token, ok := decode(t, w)["token"].(string)
	require.True(t, ok)

	claims, err := auth.ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, 3, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.WithinDuration(t, time.Now().Add(auth.TokenTTL), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerifyToken(t *testing.T) {
	router := setupTestRouter(new(MockUserService))

	req := httptest.NewRequest("GET", "/api/verify-token", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"valid": true, "user": {"id": 3, "username": "alice"}}`, w.Body.String())
}

func TestVerifyToken_NoClaims(t *testing.T) {
	router := setupTestRouter(new(MockUserService))

	req := httptest.NewRequest("GET", "/api/verify-token-anonymous", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
