package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/hireflow/pkg/models"
)

// Claims are the bearer token claims. Subject carries the principal id.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTResolver verifies HS256 tokens signed with a shared secret.
type JWTResolver struct {
	secret []byte
	issuer string
}

func NewJWTResolver(secret, issuer string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), issuer: issuer}
}

func (r *JWTResolver) Resolve(_ context.Context, token string) (models.Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Principal{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return models.Principal{}, fmt.Errorf("%w: token is not valid", ErrUnauthenticated)
	}
	if !claims.VerifyIssuer(r.issuer, true) {
		return models.Principal{}, fmt.Errorf("%w: %w", ErrUnauthenticated, jwt.ErrTokenInvalidIssuer)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Principal{}, fmt.Errorf("%w: invalid subject", ErrUnauthenticated)
	}
	if !claims.Role.Valid() {
		return models.Principal{}, fmt.Errorf("%w: invalid role %q", ErrUnauthenticated, claims.Role)
	}
	return models.Principal{ID: id, Role: claims.Role}, nil
}

// Issue signs a token for p that expires after ttl.
func (r *JWTResolver) Issue(p models.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    r.issuer,
			Subject:   p.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
