package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// Claims carries the subject identity inside access tokens.
type Claims struct {
	SubjectType domain.SubjectType `json:"subject_type"`
	Role        *domain.AdminRole  `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies signed access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a manager with the given signing secret and token
// lifetime.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue signs an access token for the given subject.
func (m *TokenManager) Issue(subjectID string, subjectType domain.SubjectType, role *domain.AdminRole) (string, *domain.Token, error) {
	now := time.Now()
	token := &domain.Token{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Subject:   subjectType,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	claims := Claims{
		SubjectType: subjectType,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        token.ID,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, apperrors.NewInternalError(err)
	}
	return signed, token, nil
}

// Verify parses and validates a signed token string.
func (m *TokenManager) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperrors.NewUnauthorized("invalid or expired token")
	}
	return claims, nil
}
