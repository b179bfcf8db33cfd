package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hireflow/internal/auth"
	"github.com/kiranshivaraju/hireflow/internal/cache"
	"github.com/kiranshivaraju/hireflow/internal/store"
	"github.com/kiranshivaraju/hireflow/internal/store/memstore"
	"github.com/kiranshivaraju/hireflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── mock store ──────────────────────────────────────────────────────────────

// downStore fails Ping; the health handler calls nothing else.
type downStore struct {
	store.Store
}

func (downStore) Ping(_ context.Context) error { return errors.New("connection refused") }

// ─── mock cache / bus ────────────────────────────────────────────────────────

type testCache struct {
	pingErr error
}

func (c *testCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *testCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *testCache) Ping(_ context.Context) error                                      { return c.pingErr }
func (c *testCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

var _ cache.Cache = (*testCache)(nil)

type testBus struct {
	pingErr error
}

func (b *testBus) Ping(_ context.Context) error { return b.pingErr }

// ─── health handler tests ───────────────────────────────────────────────────

func healthBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthHandler_AllOK(t *testing.T) {
	h := healthHandler(memstore.New(), &testCache{}, nil)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	data := healthBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
	services := data["services"].(map[string]any)
	assert.Equal(t, "ok", services["database"])
	assert.Equal(t, "ok", services["cache"])
	assert.Equal(t, "disabled", services["events"])
}

func TestHealthHandler_DatabaseDegraded(t *testing.T) {
	h := healthHandler(downStore{}, &testCache{}, nil)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	errObj := healthBody(t, w)["error"].(map[string]any)
	assert.Equal(t, "DEGRADED", errObj["code"])
}

func TestHealthHandler_CacheDegraded(t *testing.T) {
	h := healthHandler(memstore.New(), &testCache{pingErr: errors.New("redis down")}, nil)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthHandler_EventBusDownStaysHealthy(t *testing.T) {
	h := healthHandler(memstore.New(), &testCache{}, &testBus{pingErr: errors.New("nats disconnected")})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	services := healthBody(t, w)["data"].(map[string]any)["services"].(map[string]any)
	assert.Equal(t, "degraded", services["events"])
}

// ─── run() config validation tests ──────────────────────────────────────────

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "REDIS_URL", "JWT_SECRET", "STORE_DRIVER", "NATS_URL",
		"HIREFLOW_PORT", "HIREFLOW_ENV", "JWT_ISSUER", "RATE_LIMIT_PER_MINUTE",
	} {
		t.Setenv(key, "")
	}
}

func TestRun_FailsOnMissingConfig(t *testing.T) {
	clearConfigEnv(t)

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRun_FailsOnInvalidDatabaseURL(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATABASE_URL", "not-a-valid-url")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("JWT_SECRET", "test-secret")

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect database")
}

func TestRun_FailsOnUnreachableRedis(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_URL", "redis://127.0.0.1:1")
	t.Setenv("JWT_SECRET", "test-secret")

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis")
}

// ─── commands ────────────────────────────────────────────────────────────────

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "hireflow version "+Version+"\n", out)
}

func TestIssueTokenCommand(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("JWT_SECRET", "cli-secret")

	id := uuid.New()
	out, err := execute(t, "issue-token", "--subject", id.String(), "--role", "employer", "--ttl", "5m")
	require.NoError(t, err)

	p, err := auth.NewJWTResolver("cli-secret", "hireflow").Resolve(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, models.Principal{ID: id, Role: models.RoleEmployer}, p)
}

func TestIssueTokenCommand_RejectsBadInput(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("JWT_SECRET", "cli-secret")

	_, err := execute(t, "issue-token", "--subject", "nope", "--role", "seeker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--subject")

	_, err = execute(t, "issue-token", "--subject", uuid.NewString(), "--role", "recruiter")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--role")
}

func TestMigrateCommand_RequiresPostgres(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("JWT_SECRET", "cli-secret")

	_, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER=postgres")
}

func TestCreateAPIKeyCommand_RequiresName(t *testing.T) {
	_, err := execute(t, "create-api-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

// ─── shutdown timeout constant test ─────────────────────────────────────────

func TestShutdownTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, shutdownTimeout)
}
