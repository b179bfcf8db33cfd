package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hireflow/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyPrefix marks a credential as an API key rather than a token.
const APIKeyPrefix = "hf_"

const keyPrefixLen = 8

// KeyStore is the slice of store.Store the key resolver needs.
type KeyStore interface {
	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
}

// APIKeyResolver authenticates operator API keys. Keys act with the admin
// role: they can read every record and manage keys.
type APIKeyResolver struct {
	store KeyStore
}

func NewAPIKeyResolver(s KeyStore) *APIKeyResolver {
	return &APIKeyResolver{store: s}
}

func (r *APIKeyResolver) Resolve(ctx context.Context, rawKey string) (models.Principal, error) {
	if !strings.HasPrefix(rawKey, APIKeyPrefix) || len(rawKey) < keyPrefixLen {
		return models.Principal{}, fmt.Errorf("%w: invalid API key format", ErrUnauthenticated)
	}

	keys, err := r.store.GetAPIKeyByPrefix(ctx, rawKey[:keyPrefixLen])
	if err != nil {
		return models.Principal{}, fmt.Errorf("looking up API key: %w", err)
	}

	// Several keys may share a prefix; bcrypt decides.
	for _, key := range keys {
		if bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(rawKey)) != nil {
			continue
		}
		go func(id uuid.UUID) {
			if err := r.store.UpdateAPIKeyLastUsed(context.Background(), id); err != nil {
				slog.Warn("failed to update api key last_used_at", "key_id", id, "error", err)
			}
		}(key.ID)
		return models.Principal{ID: key.ID, Role: models.RoleAdmin}, nil
	}
	return models.Principal{}, fmt.Errorf("%w: invalid API key", ErrUnauthenticated)
}

// GenerateAPIKey creates a new key record and returns it with the raw key.
// The raw key is shown once; only its bcrypt hash is stored.
func GenerateAPIKey(name string) (string, *models.APIKey, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generating key: %w", err)
	}
	raw := APIKeyPrefix + hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hashing key: %w", err)
	}

	now := time.Now().UTC()
	return raw, &models.APIKey{
		ID:        uuid.New(),
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: raw[:keyPrefixLen],
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
