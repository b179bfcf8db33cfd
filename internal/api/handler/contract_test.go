package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hireflow/internal/api"
	"github.com/kiranshivaraju/hireflow/internal/api/handler"
	mw "github.com/kiranshivaraju/hireflow/internal/api/middleware"
	"github.com/kiranshivaraju/hireflow/internal/api/response"
	"github.com/kiranshivaraju/hireflow/internal/auth"
	"github.com/kiranshivaraju/hireflow/internal/pipeline"
	"github.com/kiranshivaraju/hireflow/internal/store/memstore"
	"github.com/kiranshivaraju/hireflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── test fixtures ───────────────────────────────────────────────────────────

var (
	testSeeker   = models.Principal{ID: uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"), Role: models.RoleSeeker}
	testEmployer = models.Principal{ID: uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"), Role: models.RoleEmployer}
	testStranger = models.Principal{ID: uuid.MustParse("cccccccc-cccc-cccc-cccc-cccccccccccc"), Role: models.RoleSeeker}
	testAdmin    = models.Principal{ID: uuid.MustParse("dddddddd-dddd-dddd-dddd-dddddddddddd"), Role: models.RoleAdmin}
)

// ─── mock cache ──────────────────────────────────────────────────────────────

type mockCache struct {
	counts map[string]int64
}

func (c *mockCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *mockCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *mockCache) Ping(_ context.Context) error                                      { return nil }
func (c *mockCache) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.counts[key]++
	return c.counts[key], nil
}

// ─── test harness ────────────────────────────────────────────────────────────

type testServer struct {
	server *httptest.Server
	store  *memstore.Store
	tokens *auth.JWTResolver
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st := memstore.New()
	tokens := auth.NewJWTResolver("contract-secret", "hireflow-test")
	svc := pipeline.NewService(st, nil, nil)

	deps := api.Dependencies{
		Auth:      mw.NewAuth(auth.Chain{Keys: auth.NewAPIKeyResolver(st), Tokens: tokens}),
		RateLimit: mw.NewRateLimit(&mockCache{counts: map[string]int64{}}, 100),

		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			response.JSON(w, map[string]string{"status": "ok"})
		},

		PostJob:        handler.NewPostJobHandler(svc),
		GetJob:         handler.NewGetJobHandler(svc),
		ApplyToJob:     handler.NewApplyHandler(svc),
		ListApps:       handler.NewListApplicationsHandler(svc),
		GetApp:         handler.NewGetApplicationHandler(svc),
		UpdateAppState: handler.NewUpdateApplicationStatusHandler(svc),
		Schedule:       handler.NewScheduleInterviewHandler(svc),

		ListInterviews:   handler.NewListInterviewsHandler(svc),
		GetInterview:     handler.NewGetInterviewHandler(svc),
		EditInterview:    handler.NewEditInterviewHandler(svc),
		RespondInterview: handler.NewRespondHandler(svc),
		CancelInterview:  handler.NewCancelInterviewHandler(svc),
		InterviewHistory: handler.NewInterviewHistoryHandler(svc),

		CreateKeyHandler: handler.NewCreateKeyHandler(st),
		ListKeysHandler:  handler.NewListKeysHandler(st),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(st),
	}

	srv := httptest.NewServer(api.NewRouter(deps))
	t.Cleanup(srv.Close)

	return &testServer{server: srv, store: st, tokens: tokens}
}

func (ts *testServer) token(t *testing.T, p models.Principal) string {
	t.Helper()
	tok, err := ts.tokens.Issue(p, time.Hour)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(t *testing.T, as models.Principal, method, path string, body any) *http.Response {
	t.Helper()
	return ts.doWith(t, "Bearer "+ts.token(t, as), method, path, body)
}

func (ts *testServer) doWith(t *testing.T, authHeader, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.server.URL+path, &buf)
	require.NoError(t, err)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func parseBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func data(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	return parseBody(t, resp)["data"].(map[string]any)
}

func errCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	return parseBody(t, resp)["error"].(map[string]any)["code"].(string)
}

// seed posts a job as testEmployer and applies to it as testSeeker.
func (ts *testServer) seed(t *testing.T) (jobID, appID string) {
	t.Helper()
	resp := ts.do(t, testEmployer, "POST", "/api/v1/jobs", map[string]any{"title": "Backend Engineer"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	jobID = data(t, resp)["id"].(string)

	resp = ts.do(t, testSeeker, "POST", "/api/v1/jobs/"+jobID+"/applications", map[string]any{
		"cover_letter": "I build queues", "match_score": 87.5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	appID = data(t, resp)["id"].(string)
	return jobID, appID
}

func (ts *testServer) scheduleInterview(t *testing.T, appID string) string {
	t.Helper()
	resp := ts.do(t, testEmployer, "POST", "/api/v1/applications/"+appID+"/interviews", map[string]any{
		"title":      "Onsite",
		"location":   "HQ",
		"start_time": "2026-04-01T14:00:00Z",
		"end_time":   "2026-04-01T15:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return data(t, resp)["id"].(string)
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONTRACT TESTS
// ═══════════════════════════════════════════════════════════════════════════════

// ─── GET /api/v1/health ──────────────────────────────────────────────────────

func TestHealth_Unauthenticated(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.doWith(t, "", "GET", "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", data(t, resp)["status"])
}

// ─── jobs ────────────────────────────────────────────────────────────────────

func TestPostJob_201(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, testEmployer, "POST", "/api/v1/jobs", map[string]any{"title": "SRE", "description": "pager"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	d := data(t, resp)
	assert.Equal(t, "SRE", d["title"])
	assert.Equal(t, testEmployer.ID.String(), d["employer_id"])
	assert.Equal(t, "/api/v1/jobs/"+d["id"].(string), resp.Header.Get("Location"))
}

func TestPostJob_403_Seeker(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, testSeeker, "POST", "/api/v1/jobs", map[string]any{"title": "SRE"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errCode(t, resp))
}

func TestPostJob_400_InvalidBody(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, testEmployer, "POST", "/api/v1/jobs", map[string]any{"title": "SRE", "salary": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", errCode(t, resp))
}

func TestGetJob_404(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, testSeeker, "GET", "/api/v1/jobs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errCode(t, resp))
}

func TestGetJob_400_InvalidID(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, testSeeker, "GET", "/api/v1/jobs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ─── applications ────────────────────────────────────────────────────────────

func TestApply_201_And_409_Duplicate(t *testing.T) {
	ts := newTestServer(t)
	jobID, _ := ts.seed(t)

	resp := ts.do(t, testSeeker, "POST", "/api/v1/jobs/"+jobID+"/applications", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", errCode(t, resp))
}

func TestApply_EmptyBody(t *testing.T) {
	ts := newTestServer(t)
	jobID, _ := ts.seed(t)

	resp := ts.do(t, testStranger, "POST", "/api/v1/jobs/"+jobID+"/applications", nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	d := data(t, resp)
	assert.Equal(t, "applied", d["status"])
	assert.Equal(t, "active", d["bucket"])
	assert.Equal(t, "/api/v1/applications/"+d["id"].(string), resp.Header.Get("Location"))
}

func TestGetApplication_Visibility(t *testing.T) {
	ts := newTestServer(t)
	_, appID := ts.seed(t)

	resp := ts.do(t, testSeeker, "GET", "/api/v1/applications/"+appID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 87.5, data(t, resp)["match_score"])

	resp = ts.do(t, testStranger, "GET", "/api/v1/applications/"+appID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, testAdmin, "GET", "/api/v1/applications/"+appID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdateApplicationStatus_Contract(t *testing.T) {
	ts := newTestServer(t)
	_, appID := ts.seed(t)
	path := "/api/v1/applications/" + appID + "/status"

	resp := ts.do(t, testSeeker, "PATCH", path, map[string]any{"status": "shortlisted"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, testEmployer, "PATCH", path, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, testEmployer, "PATCH", path, map[string]any{"status": "shortlisted"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "shortlisted", data(t, resp)["status"])

	resp = ts.do(t, testEmployer, "PATCH", path, map[string]any{"status": "hired"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	d := data(t, resp)
	assert.Equal(t, "hired", d["status"])
	assert.Equal(t, "archived", d["bucket"])

	resp = ts.do(t, testEmployer, "PATCH", path, map[string]any{"status": "shortlisted"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", errCode(t, resp))
}

func TestListApplications_Pagination(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	resp := ts.do(t, testEmployer, "GET", "/api/v1/applications?bucket=active&limit=10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := parseBody(t, resp)
	assert.Len(t, body["data"].([]any), 1)
	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(1), meta["total"])
	assert.Equal(t, float64(10), meta["limit"])
	assert.Equal(t, false, meta["has_next"])

	resp = ts.do(t, testEmployer, "GET", "/api/v1/applications?bucket=nope", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, testEmployer, "GET", "/api/v1/applications?page=0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ─── interviews ──────────────────────────────────────────────────────────────

func TestInterviewLifecycle_Contract(t *testing.T) {
	ts := newTestServer(t)
	_, appID := ts.seed(t)
	ivID := ts.scheduleInterview(t, appID)

	// Second schedule conflicts while the first is open.
	resp := ts.do(t, testEmployer, "POST", "/api/v1/applications/"+appID+"/interviews", map[string]any{
		"start_time": "2026-04-02T14:00:00Z", "end_time": "2026-04-02T15:00:00Z",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", errCode(t, resp))

	// Stranger cannot see or answer it.
	resp = ts.do(t, testStranger, "POST", "/api/v1/interviews/"+ivID+"/response", map[string]any{"status": "accepted"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, testSeeker, "POST", "/api/v1/interviews/"+ivID+"/response", map[string]any{
		"status": "reschedule_requested", "note": "Thursday instead?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "reschedule_requested", data(t, resp)["status"])

	resp = ts.do(t, testEmployer, "PATCH", "/api/v1/interviews/"+ivID, map[string]any{
		"start_time": "2026-04-03T14:00:00Z", "end_time": "2026-04-03T15:00:00Z", "message": "Thursday works",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "scheduled", data(t, resp)["status"])

	resp = ts.do(t, testSeeker, "POST", "/api/v1/interviews/"+ivID+"/response", map[string]any{"status": "accepted"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, testEmployer, "PATCH", "/api/v1/applications/"+appID+"/status", map[string]any{"status": "hired"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, testSeeker, "GET", "/api/v1/interviews/"+ivID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := data(t, resp)
	assert.Equal(t, "completed", d["status"])
	assert.Equal(t, "history", d["bucket"])
	history := d["history"].([]any)
	require.Len(t, history, 4)
	var statuses []string
	for _, h := range history {
		statuses = append(statuses, h.(map[string]any)["status_at_time"].(string))
	}
	assert.Equal(t, []string{"reschedule_requested", "scheduled", "accepted", "completed"}, statuses)
	assert.Equal(t, "Thursday instead?", history[0].(map[string]any)["message"])

	resp = ts.do(t, testEmployer, "GET", "/api/v1/interviews/"+ivID+"/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, parseBody(t, resp)["data"].([]any), 4)
}

func TestScheduleInterview_400_BadWindow(t *testing.T) {
	ts := newTestServer(t)
	_, appID := ts.seed(t)

	resp := ts.do(t, testEmployer, "POST", "/api/v1/applications/"+appID+"/interviews", map[string]any{
		"start_time": "2026-04-01T15:00:00Z", "end_time": "2026-04-01T14:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", errCode(t, resp))
}

func TestCancelInterview_204(t *testing.T) {
	ts := newTestServer(t)
	_, appID := ts.seed(t)
	ivID := ts.scheduleInterview(t, appID)

	resp := ts.do(t, testSeeker, "POST", "/api/v1/interviews/"+ivID+"/cancel", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, testEmployer, "POST", "/api/v1/interviews/"+ivID+"/cancel", map[string]any{"reason": "role closed"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, testEmployer, "POST", "/api/v1/interviews/"+ivID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", errCode(t, resp))
}

func TestListInterviews_Buckets(t *testing.T) {
	ts := newTestServer(t)
	_, appID := ts.seed(t)
	ts.scheduleInterview(t, appID)

	resp := ts.do(t, testSeeker, "GET", "/api/v1/interviews?bucket=upcoming", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, parseBody(t, resp)["data"].([]any), 1)

	resp = ts.do(t, testSeeker, "GET", "/api/v1/interviews?bucket=history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, parseBody(t, resp)["data"].([]any))
}

// ─── auth ────────────────────────────────────────────────────────────────────

func TestAuth_401_BadToken(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.doWith(t, "Bearer not-a-jwt", "GET", "/api/v1/applications", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", errCode(t, resp))

	other := auth.NewJWTResolver("other-secret", "hireflow-test")
	forged, err := other.Issue(testAdmin, time.Hour)
	require.NoError(t, err)
	resp = ts.doWith(t, "Bearer "+forged, "GET", "/api/v1/applications", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ─── /api/v1/admin/keys ──────────────────────────────────────────────────────

func TestAdminKeys_Lifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, testEmployer, "POST", "/api/v1/admin/keys", map[string]any{"name": "ci"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, testAdmin, "POST", "/api/v1/admin/keys", map[string]any{"name": "ci"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := data(t, resp)
	rawKey := created["key"].(string)
	keyID := created["id"].(string)
	assert.Equal(t, rawKey[:8], created["key_prefix"])

	resp = ts.do(t, testAdmin, "POST", "/api/v1/admin/keys", map[string]any{"name": "ci"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE_KEY", errCode(t, resp))

	// The new key authenticates as an admin.
	resp = ts.doWith(t, "Bearer "+rawKey, "GET", "/api/v1/admin/keys", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	keys := parseBody(t, resp)["data"].([]any)
	require.Len(t, keys, 1)
	_, hasHash := keys[0].(map[string]any)["key_hash"]
	assert.False(t, hasHash, "key hash must never be exposed")

	resp = ts.doWith(t, "Bearer "+rawKey, "DELETE", "/api/v1/admin/keys/"+keyID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.doWith(t, "Bearer "+rawKey, "GET", "/api/v1/admin/keys", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, testAdmin, "DELETE", "/api/v1/admin/keys/"+keyID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "KEY_NOT_FOUND", errCode(t, resp))
}
