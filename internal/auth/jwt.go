package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	UserIDKey   = "userID"
	UsernameKey = "username"
	ClaimsKey   = "claims"
)

// TokenTTL is the validity window of every issued token.
const TokenTTL = time.Hour

var (
	ErrMissingToken = errors.New("token missing")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

type Claims struct {
	Username string `json:"username"`
	UserID   int    `json:"id"`
	jwt.RegisteredClaims
}

// GenerateToken issues a signed token for the user valid for TokenTTL.
func GenerateToken(userID int, username string, secret string) (string, error) {
	return generateToken(userID, username, TokenTTL, secret)
}

func generateToken(userID int, username string, duration time.Duration, secret string) (string, error) {
	now := time.Now()
	return signToken(userID, username, now, now.Add(duration), secret)
}

func signToken(userID int, username string, now, expiresAt time.Time, secret string) (string, error) {
	claims := Claims{
		Username: username,
		UserID:   userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken checks signature and expiry. It has no side effects.
func ValidateToken(tokenString string, secret string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// RefreshToken re-issues a token with a fresh window for already verified
// claims. The new expiry is always strictly after the old one, even within
// the same second, since exp only has second precision.
func RefreshToken(claims *Claims, secret string) (string, error) {
	if claims == nil {
		return "", ErrInvalidToken
	}

	now := time.Now()
	expiresAt := now.Add(TokenTTL)
	if claims.ExpiresAt != nil && !expiresAt.Truncate(jwt.TimePrecision).After(claims.ExpiresAt.Time) {
		expiresAt = claims.ExpiresAt.Time.Add(jwt.TimePrecision)
	}
	return signToken(claims.UserID, claims.Username, now, expiresAt, secret)
}

// SetClaims stores verified claims on the request context.
func SetClaims(c *gin.Context, claims *Claims) {
	c.Set(ClaimsKey, claims)
	c.Set(UserIDKey, claims.UserID)
	c.Set(UsernameKey, claims.Username)
}

// GetClaimsFromContext returns the claims set by the auth middleware.
func GetClaimsFromContext(c *gin.Context) (*Claims, error) {
	value, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, fmt.Errorf("claims not found in context")
	}

	claims, ok := value.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}

	return claims, nil
}

// GetUserIDFromContext extracts userID from Gin context
func GetUserIDFromContext(c *gin.Context) (int, error) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, fmt.Errorf("user ID not found in context")
	}

	id, ok := userID.(int)
	if !ok {
		return 0, fmt.Errorf("invalid user ID type")
	}

	return id, nil
}
