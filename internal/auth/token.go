package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/post-scheduler/internal/domain"
)

// Verifier validates bearer tokens. Shared by the HTTP middleware and the live channel gate.
type Verifier interface {
	Verify(token string) (*domain.Credential, error)
}

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute, now: time.Now}
}

// Claims describes JWT payload.
type Claims struct {
	Name string          `json:"name,omitempty"`
	Role map[string]bool `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken builds and signs a JWT for the subject.
func (tm *TokenManager) GenerateToken(subject, name string, roles map[string]bool) (string, time.Time, error) {
	return tm.GenerateTokenWithTTL(subject, name, roles, tm.ttl)
}

// GenerateTokenWithTTL signs a token with an explicit lifetime. A negative ttl yields an expired token.
func (tm *TokenManager) GenerateTokenWithTTL(subject, name string, roles map[string]bool, ttl time.Duration) (string, time.Time, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(ttl)
	claims := &Claims{
		Name: name,
		Role: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates signature and expiry and returns the raw claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Verify checks the token and returns the credential it carries.
func (tm *TokenManager) Verify(tokenStr string) (*domain.Credential, error) {
	claims, err := tm.ParseToken(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredential, err)
	}
	if claims.Subject == "" {
		return nil, domain.ErrMissingSubject
	}

	cred := &domain.Credential{
		Subject: claims.Subject,
		Name:    claims.Name,
		Roles:   claims.Role,
	}
	if claims.IssuedAt != nil {
		cred.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		cred.ExpiresAt = claims.ExpiresAt.Time
	}
	return cred, nil
}
