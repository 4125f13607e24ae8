package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin is the only role issued; the dashboard gate is a shared secret, not a user system.
const RoleAdmin = "admin"

// Claims represents the JWT claims of an admin session
type Claims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

// TokenService issues and verifies admin session tokens
type TokenService struct {
	key   []byte
	ttl   time.Duration
	clock Clock
}

// NewTokenService creates a TokenService signing with secret
func NewTokenService(secret string, ttl time.Duration, clock Clock) *TokenService {
	return &TokenService{key: []byte(secret), ttl: ttl, clock: clock}
}

// GenerateJWT generates a token for the given role
func (ts *TokenService) GenerateJWT(role string) (string, error) {
	now := ts.clock.Now()
	claims := &Claims{
		Role: role,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ts.ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(ts.key)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ParseJWT verifies signature and expiry and returns the claims
func (ts *TokenService) ParseJWT(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return ts.key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// HashPassword hashes the admin secret for the ADMIN_PASSWORD_HASH setting
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword compares a candidate secret against the configured hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
