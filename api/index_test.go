package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"webui-dashboard-api/pkg/auth"
	"webui-dashboard-api/pkg/config"
	"webui-dashboard-api/pkg/database"
	"webui-dashboard-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	admin = "jisung.jang@samsung.com"
	alice = "alice@samsung.com"
	bob   = "bob@samsung.com"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:        "test",
		Port:               "8005",
		UseLocalDB:         true,
		AllowedOrigins:     []string{"http://localhost:3005"},
		AuthMode:           config.AuthModeHeader,
		AdminUsers:         []string{"jisung.jang"},
		AllowedEmailDomain: "samsung.com",
	}
}

func testDataset() database.Dataset {
	at := models.Timestamp(time.Date(2024, 3, 1, 10, 0, 0, 0, models.KST).Unix())
	return database.Dataset{
		Chats: []models.ChatRecord{
			{
				ID: "c1", UserID: "u1", Title: "First", CreatedAt: at, UpdatedAt: at,
				Chat: json.RawMessage(`{"models": ["gpt-4"], "messages": [
					{"role": "user", "content": "q"},
					{"role": "assistant", "content": "aaaaaaaaaa"},
					{"role": "user", "content": "q"},
					{"role": "assistant", "content": "aaaaaaaaaaaaaaaaaaaa"},
					{"role": "assistant", "content": "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}
				]}`),
			},
			{
				ID: "c2", UserID: "u2", Title: "Second", CreatedAt: at + 60, UpdatedAt: at + 60,
				Chat: json.RawMessage(`{"models": ["ws1"], "messages": []}`),
			},
		},
		Feedbacks: []models.FeedbackRow{
			{ID: "f1", UserID: "u1", CreatedAt: at, Data: json.RawMessage(`{"rating": -1, "model_id": "ws1"}`)},
			{ID: "f2", UserID: "u2", CreatedAt: at + 1, Data: json.RawMessage(`{"rating": 2, "model_id": "ws1"}`)},
		},
		Workspaces: []models.WorkspaceRow{{ID: "ws1", UserID: "u9", Name: "Workspace One"}},
		Users: []models.UserRow{
			{ID: "u1", Name: "Alice", Email: alice},
			{ID: "u2", Name: "Bob", Email: bob},
			{ID: "u9", Name: "Dev", Email: "dev@samsung.com"},
		},
		Groups:       []models.GroupRow{{ID: "g1", Name: "Core"}, {ID: "g0", Name: "Nobody"}},
		GroupMembers: []models.GroupMemberRow{{GroupID: "g1", UserID: "u1"}, {GroupID: "g1", UserID: "u2"}},
	}
}

type testServer struct {
	t      *testing.T
	router http.Handler
}

func newTestServer(t *testing.T, db database.DatabaseInterface) *testServer {
	t.Helper()
	if db == nil {
		db = database.NewLocalDatabase(testDataset())
	}
	now := time.Date(2024, 3, 2, 12, 0, 0, 0, models.KST)
	router := NewRouter(Dependencies{
		Config: testConfig(),
		DB:     db,
		Now:    func() time.Time { return now },
	})
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, user, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(auth.HeaderUser, user)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message": "Welcome to Open WebUI Dashboard API"}`, w.Body.String())

	w = s.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok", "database": "connected"}`, w.Body.String())
}

type unhealthyStore struct {
	database.DatabaseInterface
}

func (unhealthyStore) HealthCheck(ctx context.Context) error {
	return errors.New("connection refused")
}

func (unhealthyStore) Overview(ctx context.Context) (*models.OverviewStats, error) {
	return nil, errors.New("relation \"chat\" does not exist")
}

func TestStoreFailures(t *testing.T) {
	s := newTestServer(t, unhealthyStore{DatabaseInterface: database.NewLocalDatabase(database.Dataset{})})

	w := s.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Database connection failed: connection refused", decode[map[string]string](t, w)["detail"])

	w = s.do(http.MethodGet, "/api/stats/overview", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["detail"], "does not exist")
}

func TestStatsEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/stats/overview", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_chats": 2, "total_messages": 5, "total_models": 2, "total_feedbacks": 2}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/stats/daily?from=2024-03-01&to=2024-03-01", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"date": "2024-03-01", "chat_count": 2, "message_count": 5, "user_count": 2}]`, w.Body.String())

	w = s.do(http.MethodGet, "/api/stats/daily?from=2024-03-05&to=2024-03-01", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(http.MethodGet, "/api/stats/daily?from=March", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/stats/models", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	modelsRows := decode[[]models.ModelStat](t, w)
	require.NotEmpty(t, modelsRows)
	assert.Equal(t, models.ModelStat{Model: "gpt-4", ChatCount: 1, AvgResponseLength: 20}, modelsRows[0])

	w = s.do(http.MethodGet, "/api/stats/workspace-ranking", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	for _, row := range decode[[]models.WorkspaceRanking](t, w) {
		if row.ID == "ws1" {
			assert.Equal(t, int64(1), row.Positive)
			assert.Equal(t, int64(1), row.Negative)
			assert.Equal(t, "dev@samsung.com", row.DeveloperEmail)
		}
	}

	w = s.do(http.MethodGet, "/api/stats/developer-ranking", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	devs := decode[[]models.DeveloperRanking](t, w)
	require.Len(t, devs, 1)
	assert.Equal(t, "u9", devs[0].UserID)
}

func TestGroupRankingEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/stats/group-ranking", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode[[]map[string]interface{}](t, w)
	require.Len(t, rows, 2)
	assert.Equal(t, "g1", rows[0]["group_id"])
	assert.Equal(t, 1.0, rows[0]["chats_per_member"])
	assert.Equal(t, 2.0, rows[0]["total_feedbacks"])
	assert.NotContains(t, rows[0], "total_positive")
	assert.Nil(t, rows[1]["chats_per_member"])

	w = s.do(http.MethodGet, "/api/stats/group-ranking?variant=split", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	rows = decode[[]map[string]interface{}](t, w)
	assert.Equal(t, 1.0, rows[0]["total_positive"])
	assert.Equal(t, 1.0, rows[0]["total_negative"])
	assert.NotContains(t, rows[0], "total_feedbacks")

	w = s.do(http.MethodGet, "/api/stats/group-ranking?variant=other", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecentChatsAndFeedback(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/chats/recent?limit=1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	chats := decode[[]map[string]interface{}](t, w)
	require.Len(t, chats, 1)
	assert.Equal(t, "c2", chats[0]["id"])
	assert.Equal(t, "2024-03-01T10:01:00+09:00", chats[0]["updated_at"])

	for _, limit := range []string{"0", "101", "x"} {
		w = s.do(http.MethodGet, "/api/chats/recent?limit="+limit, "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, limit)
	}

	w = s.do(http.MethodGet, "/api/feedbacks/summary", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[models.FeedbackSummary](t, w)
	assert.Equal(t, int64(1), summary.Positive)
	assert.Equal(t, int64(1), summary.Negative)
	require.Len(t, summary.Recent, 2)
	assert.Equal(t, "f2", summary.Recent[0].ID)
}

func TestAuthMe(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/auth/me", "eve@example.com", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/auth/me", admin, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user": "jisung.jang", "is_admin": true}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/auth/me", alice, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user": "alice", "is_admin": false}`, w.Body.String())
}

func TestPackages_Create(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/packages", "", `{"package_name": "numpy"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/packages", alice, `{"package_name": "  NumPy>=1.26 "}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.PackageRequest](t, w)
	assert.Equal(t, "numpy>=1.26", created.PackageName)
	assert.Equal(t, "alice", created.AddedBy)
	assert.Equal(t, models.PackagePending, created.Status)
	assert.NotZero(t, created.ID)

	w = s.do(http.MethodPost, "/api/packages", bob, `{"package_name": "NUMPY>=1.26"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/packages", bob, `{"package_name": "pkg; rm -rf /"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/packages", bob, `{"package_name": "   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/packages", bob, `{"package_name": "scipy"} trailing`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/packages", strings.NewReader(`package_name=x`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(auth.HeaderUser, bob)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = s.do(http.MethodGet, "/api/packages", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.PackageRequest](t, w), 1)
}

func TestPackages_Delete(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/packages", alice, `{"package_name": "pandas"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[models.PackageRequest](t, w).ID
	path := "/api/packages/" + strconv.FormatInt(id, 10)

	w = s.do(http.MethodDelete, path, bob, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/packages", "", "")
	list := decode[[]models.PackageRequest](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "pandas", list[0].PackageName)

	w = s.do(http.MethodDelete, "/api/packages/abc", alice, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, path, alice, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok": true}`, w.Body.String())

	w = s.do(http.MethodDelete, path, alice, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/packages", bob, `{"package_name": "polars"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	other := decode[models.PackageRequest](t, w).ID

	w = s.do(http.MethodDelete, "/api/packages/"+strconv.FormatInt(other, 10), admin, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPackages_UpdateStatus(t *testing.T) {
	s := newTestServer(t, nil)

	var ids []int64
	for _, name := range []string{"requests", "httpx"} {
		w := s.do(http.MethodPost, "/api/packages", alice, `{"package_name": "`+name+`"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		ids = append(ids, decode[models.PackageRequest](t, w).ID)
	}
	target := "/api/packages/" + strconv.FormatInt(ids[0], 10) + "/status"

	w := s.do(http.MethodPatch, target, alice, `{"status": "installed"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, target, admin, `{"status": "done"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, "/api/packages/9999/status", admin, `{"status": "installed"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPatch, target, admin, `{"status": "installed", "status_note": "added to base image"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok": true}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/packages", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	byID := map[int64]models.PackageRequest{}
	for _, p := range decode[[]models.PackageRequest](t, w) {
		byID[p.ID] = p
	}

	updated := byID[ids[0]]
	assert.Equal(t, models.PackageInstalled, updated.Status)
	require.NotNil(t, updated.StatusNote)
	assert.Equal(t, "added to base image", *updated.StatusNote)
	require.NotNil(t, updated.StatusUpdatedBy)
	assert.Equal(t, "jisung.jang", *updated.StatusUpdatedBy)

	untouched := byID[ids[1]]
	assert.Equal(t, models.PackagePending, untouched.Status)
	assert.Nil(t, untouched.StatusNote)
	assert.Nil(t, untouched.StatusUpdatedBy)
}

func TestRouterPlumbing(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/unknown", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[map[string]string](t, w)["code"])

	w = s.do(http.MethodPut, "/api/packages", alice, `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/packages", nil)
	req.Header.Set("Origin", "http://localhost:3005")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", auth.HeaderUser)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3005", rec.Header().Get("Access-Control-Allow-Origin"))

	s.do(http.MethodGet, "/api/stats/overview", "", "")
	w = s.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `dashboard_api_requests_total{method="GET",route="/api/stats/overview",status="200"} 1`)
}

