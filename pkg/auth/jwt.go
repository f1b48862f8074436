package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type contextKey string

const userKey contextKey = "user"

// Verifier issues and validates the tokens the identity provider hands out.
// The signing key comes from config; every authenticated request carries a
// token produced here (or by the real provider sharing the secret).
type Verifier struct {
	key []byte
	ttl time.Duration
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{key: []byte(secret), ttl: 24 * time.Hour}
}

// GenerateToken creates a new JWT token for a given user ID
func (v *Verifier) GenerateToken(userID string) (string, error) {
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(v.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.key)
}

// ValidateToken parses and validates a JWT token
func (v *Verifier) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// WithClaims returns a context carrying the caller's verified identity.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, userKey, claims)
}

// FromContext returns the caller identity stored by the auth middleware.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(userKey).(*Claims)
	return claims, ok
}
