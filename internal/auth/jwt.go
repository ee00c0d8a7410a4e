package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken reports an expired, malformed or forged token.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims carries the identity inside an HS256 access token.
type Claims struct {
	jwt.RegisteredClaims
	CanRead  bool `json:"can_read"`
	CanWrite bool `json:"can_write"`
}

// TokenManager issues and verifies access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a manager signing with secret; tokens expire
// after ttl.
func NewTokenManager(secret []byte, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: secret, ttl: ttl}
}

// Issue signs an access token for the identity.
func (m *TokenManager) Issue(ident *Identity) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		CanRead:  ident.CanRead,
		CanWrite: ident.CanWrite,
	})
	return token.SignedString(m.secret)
}

// Verify parses and validates a token string, returning the identity it
// asserts.
func (m *TokenManager) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return &Identity{
		Subject:  claims.Subject,
		CanRead:  claims.CanRead,
		CanWrite: claims.CanWrite,
	}, nil
}
