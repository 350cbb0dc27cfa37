package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/post-scheduler/internal/api/http/handlers"
	"github.com/spec-kit/post-scheduler/internal/auth"
	"github.com/spec-kit/post-scheduler/internal/domain"
	"github.com/spec-kit/post-scheduler/internal/observability"
	"github.com/spec-kit/post-scheduler/internal/service"
)

type stubPosts struct {
	mu        sync.Mutex
	scheduled []service.PostScheduleInput
	userIDs   []int64
	err       error
	list      []domain.Post
}

func (s *stubPosts) Schedule(_ context.Context, userID int64, input service.PostScheduleInput) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.scheduled = append(s.scheduled, input)
	s.userIDs = append(s.userIDs, userID)
	ts := input.ScheduledTime
	return &domain.Post{
		ID:            1,
		Content:       input.Content,
		ScheduledTime: &ts,
		Status:        domain.PostStatusScheduled,
		UserID:        userID,
		AccountID:     input.AccountID,
	}, nil
}

func (s *stubPosts) ListForUser(_ context.Context, userID int64, _, _ int) ([]domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userIDs = append(s.userIDs, userID)
	return s.list, s.err
}

func (s *stubPosts) Get(_ context.Context, userID, id int64) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.list {
		if s.list[i].ID == id && s.list[i].UserID == userID {
			p := s.list[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", domain.ErrPostNotFound, id)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubScans struct{ last *domain.ScanStatus }

func (s stubScans) Last(context.Context) (*domain.ScanStatus, error) { return s.last, nil }

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
	posts  *stubPosts
}

func newTestServer(t *testing.T, postgres handlers.Pinger) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	tokens := auth.NewTokenManager("router-secret", 60)
	posts := &stubPosts{}
	scans := stubScans{last: &domain.ScanStatus{TickID: "t-1", LastRunAt: time.Now().UTC(), Published: 2}}

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("post-scheduler", "test", postgres, stubPinger{}, scans, func() int { return 3 }),
		Posts:          handlers.NewPostsHandler(posts),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Gatherer:       reg,
	})
	return &testServer{app: app, tokens: tokens, posts: posts}
}

func (s *testServer) do(t *testing.T, method, path, subject, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if subject != "" {
		token, _, err := s.tokens.GenerateToken(subject, "", nil)
		require.NoError(t, err)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if json.Valid(raw) {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	envelope, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	code, _ := envelope["code"].(string)
	return code
}

func TestHealthLive(t *testing.T) {
	srv := newTestServer(t, stubPinger{})
	resp, body := srv.do(t, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alive", body["status"])
}

func TestHealthReady(t *testing.T) {
	srv := newTestServer(t, stubPinger{})
	resp, body := srv.do(t, http.MethodGet, "/health/ready", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])
	assert.EqualValues(t, 3, body["live_channels"])

	last, ok := body["last_scan"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "t-1", last["tick_id"])
	assert.EqualValues(t, 2, last["published"])
}

func TestHealthReady_PostgresDown(t *testing.T) {
	srv := newTestServer(t, stubPinger{err: errors.New("connection refused")})
	resp, body := srv.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(t, body))
}

func TestMetricsExposition(t *testing.T) {
	srv := newTestServer(t, stubPinger{})
	srv.do(t, http.MethodGet, "/health/live", "", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := srv.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "post_scheduler_http_requests_total")
}

func TestPosts_RequireAuth(t *testing.T) {
	srv := newTestServer(t, stubPinger{})
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		resp, body := srv.do(t, method, "/api/posts", "", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, method)
		assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))
	}
}

func TestPosts_NonNumericSubject(t *testing.T) {
	srv := newTestServer(t, stubPinger{})
	resp, body := srv.do(t, http.MethodGet, "/api/posts", "alice", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))
}

func TestSchedulePost(t *testing.T) {
	srv := newTestServer(t, stubPinger{})
	when := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	payload := `{"account_id": 7, "content": "launch day", "scheduled_time": "` + when.Format(time.RFC3339) + `"}`

	resp, body := srv.do(t, http.MethodPost, "/api/posts", "42", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "scheduled", data["status"])
	assert.Equal(t, "launch day", data["content"])

	require.Len(t, srv.posts.scheduled, 1)
	assert.Equal(t, int64(42), srv.posts.userIDs[0])
	assert.Equal(t, int64(7), srv.posts.scheduled[0].AccountID)
	assert.True(t, when.Equal(srv.posts.scheduled[0].ScheduledTime))
}

func TestSchedulePost_Validation(t *testing.T) {
	srv := newTestServer(t, stubPinger{})
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	tests := []struct {
		name    string
		payload string
	}{
		{"malformed", `{"content":`},
		{"empty content", `{"account_id": 1, "content": "  ", "scheduled_time": "` + future + `"}`},
		{"missing account", `{"content": "hi", "scheduled_time": "` + future + `"}`},
		{"missing time", `{"account_id": 1, "content": "hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := srv.do(t, http.MethodPost, "/api/posts", "42", tt.payload)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
		})
	}
	assert.Empty(t, srv.posts.scheduled)
}

func TestSchedulePost_PastTimeRejected(t *testing.T) {
	srv := newTestServer(t, stubPinger{})
	srv.posts.err = domain.ErrInvalidSchedule
	payload := `{"account_id": 1, "content": "hi", "scheduled_time": "2020-01-01T00:00:00Z"}`

	resp, body := srv.do(t, http.MethodPost, "/api/posts", "42", payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}

func TestListPosts(t *testing.T) {
	srv := newTestServer(t, stubPinger{})
	published := time.Now().UTC()
	srv.posts.list = []domain.Post{{ID: 5, Content: "done", Status: domain.PostStatusPublished, PublishedTime: &published, UserID: 42}}

	resp, body := srv.do(t, http.MethodGet, "/api/posts?limit=500", "42", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	items, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "published", items[0].(map[string]any)["status"])
	assert.EqualValues(t, 100, body["limit"])
}

func TestListPosts_StorageFailure(t *testing.T) {
	srv := newTestServer(t, stubPinger{})
	srv.posts.err = errors.Join(domain.ErrStorageFailure, errors.New("timeout"))

	resp, body := srv.do(t, http.MethodGet, "/api/posts", "42", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, body))
}

func TestGetPost(t *testing.T) {
	srv := newTestServer(t, stubPinger{})
	srv.posts.list = []domain.Post{{ID: 5, Content: "mine", Status: domain.PostStatusScheduled, UserID: 42}}

	resp, body := srv.do(t, http.MethodGet, "/api/posts/5", "42", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "mine", body["data"].(map[string]any)["content"])

	resp, body = srv.do(t, http.MethodGet, "/api/posts/5", "7", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "other users' posts are hidden")
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))

	resp, body = srv.do(t, http.MethodGet, "/api/posts/abc", "42", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}
