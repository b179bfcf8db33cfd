package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hireflow/internal/api/response"
	"github.com/kiranshivaraju/hireflow/internal/auth"
	"github.com/kiranshivaraju/hireflow/internal/store"
	"github.com/kiranshivaraju/hireflow/pkg/models"
)

// KeyStore is the slice of store.Store the key admin handlers need.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

// NewCreateKeyHandler returns an http.HandlerFunc for POST /api/v1/admin/keys.
func NewCreateKeyHandler(s KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if !decode(w, r, &req, false) {
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			response.Fail(w, response.CodeInvalidRequest, "name is required")
			return
		}

		rawKey, key, err := auth.GenerateAPIKey(name)
		if err != nil {
			response.Fail(w, response.CodeInternal, "Failed to create key")
			return
		}
		if err := s.CreateAPIKey(r.Context(), key); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Fail(w, response.CodeDuplicateKey, "API key with this name already exists")
				return
			}
			response.Fail(w, response.CodeInternal, "Failed to create key")
			return
		}

		response.Created(w, "", map[string]any{
			"id":         key.ID,
			"name":       key.Name,
			"key":        rawKey, // Only shown once at creation
			"key_prefix": key.KeyPrefix,
			"created_at": key.CreatedAt,
		})
	}
}

// NewListKeysHandler returns an http.HandlerFunc for GET /api/v1/admin/keys.
func NewListKeysHandler(s KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, err := s.ListAPIKeys(r.Context())
		if err != nil {
			response.Fail(w, response.CodeInternal, "Failed to list keys")
			return
		}
		if keys == nil {
			keys = []*models.APIKey{}
		}
		response.JSON(w, keys)
	}
}

// NewRevokeKeyHandler returns an http.HandlerFunc for
// DELETE /api/v1/admin/keys/{keyID}.
func NewRevokeKeyHandler(s KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyID, ok := pathID(w, r, "keyID")
		if !ok {
			return
		}

		if err := s.RevokeAPIKey(r.Context(), keyID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Fail(w, response.CodeKeyNotFound, "API key not found")
				return
			}
			response.Fail(w, response.CodeInternal, "Failed to revoke key")
			return
		}
		response.NoContent(w)
	}
}
