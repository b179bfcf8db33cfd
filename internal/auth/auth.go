// Package auth resolves request credentials to pipeline principals.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/kiranshivaraju/hireflow/pkg/models"
)

// ErrUnauthenticated means the credential is missing, malformed, expired, or
// unknown.
var ErrUnauthenticated = errors.New("unauthenticated")

// Resolver turns a bearer credential into a principal.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (models.Principal, error)
}

// Chain dispatches API keys (prefixed with APIKeyPrefix) to Keys and every
// other credential to Tokens. Either may be nil.
type Chain struct {
	Keys   Resolver
	Tokens Resolver
}

func (c Chain) Resolve(ctx context.Context, credential string) (models.Principal, error) {
	if credential == "" {
		return models.Principal{}, ErrUnauthenticated
	}
	next := c.Tokens
	if strings.HasPrefix(credential, APIKeyPrefix) {
		next = c.Keys
	}
	if next == nil {
		return models.Principal{}, ErrUnauthenticated
	}
	return next.Resolve(ctx, credential)
}
