package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidKey    = errors.New("invalid admin key")
	ErrAdminDisabled = errors.New("admin key is not configured")
)

// AdminSubject is the subject of every admin session token.
const AdminSubject = "admin"

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService checks the shared admin key and issues session tokens signed
// with it. Rotating the key invalidates every outstanding token.
type TokenService struct {
	adminKey []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewTokenService(adminKey string, tokenTTL time.Duration) *TokenService {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &TokenService{
		adminKey: []byte(adminKey),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Enabled reports whether an admin key was configured.
func (s *TokenService) Enabled() bool {
	return len(s.adminKey) > 0
}

func (s *TokenService) TokenTTL() time.Duration {
	return s.tokenTTL
}

// CheckKey compares key with the admin key in constant time.
func (s *TokenService) CheckKey(key string) error {
	if !s.Enabled() {
		return ErrAdminDisabled
	}
	if subtle.ConstantTimeCompare([]byte(key), s.adminKey) != 1 {
		return ErrInvalidKey
	}
	return nil
}

// GenerateAdminToken returns a signed session token and its expiry.
func (s *TokenService) GenerateAdminToken() (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, ErrAdminDisabled
	}
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := &Claims{
		Role: AdminSubject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   AdminSubject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.adminKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	if !s.Enabled() {
		return nil, ErrAdminDisabled
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.adminKey, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject != AdminSubject {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Authorize accepts either the raw admin key or a session token.
func (s *TokenService) Authorize(credential string) error {
	if err := s.CheckKey(credential); err == nil || errors.Is(err, ErrAdminDisabled) {
		return err
	}
	if _, err := s.ValidateToken(credential); err != nil {
		return ErrInvalidKey
	}
	return nil
}
