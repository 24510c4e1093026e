// ABOUTME: Tests for Gateway construction, routing, auth wiring, and lifecycle
// ABOUTME: Uses MockStore and an in-memory event recorder behind httptest requests

package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/brokerage-crm/internal/auth"
	"github.com/2389/brokerage-crm/internal/config"
	"github.com/2389/brokerage-crm/internal/events"
	"github.com/2389/brokerage-crm/internal/store"
)

const testJWTSecret = "gateway-test-secret-0123456789abcdef"

// pingStore lets readiness tests simulate an unreachable database.
type pingStore struct {
	*store.MockStore
	pingErr error
}

func (s *pingStore) Ping(ctx context.Context) error {
	return s.pingErr
}

// testLogger creates a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns a config that needs no external services.
func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{HTTPAddr: "127.0.0.1:0", ShutdownTimeout: 5 * time.Second},
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"},
		Rotation: config.RotationConfig{
			CursorMode: config.CursorModeReadWrite,
			SettingKey: "last_assigned_agent_index",
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

type testGateway struct {
	*Gateway
	store     *store.MockStore
	published *events.Recorder
}

func newTestGateway(t *testing.T, mutate ...func(*config.Config)) *testGateway {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	s := store.NewMockStore()
	rec := events.NewRecorder()
	gw, err := newGateway(cfg, s, rec, testLogger())
	require.NoError(t, err)

	return &testGateway{Gateway: gw, store: s, published: rec}
}

// do sends a request through the full mux, including auth middleware.
func (tg *testGateway) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	tg.Handler().ServeHTTP(w, req)
	return w
}

func addAgent(t *testing.T, s *store.MockStore, id, name string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, s.CreateTeamMember(context.Background(), &store.TeamMember{
		ID:             id,
		Name:           name,
		Status:         store.MemberStatusActive,
		InLeadRotation: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}))
}

func addLead(t *testing.T, s *store.MockStore, id string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, s.CreateLead(context.Background(), &store.Lead{
		ID:        id,
		Name:      "Lead " + id,
		Status:    store.LeadStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func addLog(t *testing.T, s *store.MockStore, id, from string) {
	t.Helper()
	require.NoError(t, s.CreateCommunicationLog(context.Background(), &store.CommunicationLog{
		ID:                id,
		FromAddress:       from,
		ToAddress:         "+15551234567",
		Subject:           "Showing request",
		Body:              "Is the house still available?",
		CommunicationType: "email",
		CreatedAt:         time.Now().UTC(),
	}))
}

func TestHealth(t *testing.T) {
	tg := newTestGateway(t)

	w := tg.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestReady(t *testing.T) {
	tg := newTestGateway(t)

	w := tg.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReady_DatabaseDown(t *testing.T) {
	cfg := testConfig()
	s := &pingStore{MockStore: store.NewMockStore(), pingErr: errors.New("connection refused")}
	gw, err := newGateway(cfg, s, events.NewRecorder(), testLogger())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "database unavailable")
}

func TestMetricsEndpoint(t *testing.T) {
	tg := newTestGateway(t)
	addAgent(t, tg.store, "a1", "Alice")
	addLead(t, tg.store, "l1")

	require.Equal(t, http.StatusOK, tg.do(t, http.MethodPost, "/leads/assign", `{"lead_id":"l1"}`, "").Code)

	w := tg.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "crm_rotation_assignments_total")
}

func TestMetricsDisabled(t *testing.T) {
	tg := newTestGateway(t, func(c *config.Config) { c.Metrics.Enabled = false })

	w := tg.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewGateway_RejectsUnknownCursorMode(t *testing.T) {
	cfg := testConfig()
	cfg.Rotation.CursorMode = "locked"

	_, err := newGateway(cfg, store.NewMockStore(), events.NewRecorder(), testLogger())
	assert.Error(t, err)
}

func TestNewGateway_RejectsWeakSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = "short"

	_, err := newGateway(cfg, store.NewMockStore(), events.NewRecorder(), testLogger())
	assert.ErrorIs(t, err, auth.ErrWeakSecret)
}

func TestNew_SQLite(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Path = t.TempDir() + "/crm.db"

	gw, err := New(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, gw.Shutdown(context.Background()))
}

func TestAuth_Enabled(t *testing.T) {
	tg := newTestGateway(t, func(c *config.Config) { c.Auth.JWTSecret = testJWTSecret })
	addAgent(t, tg.store, "a1", "Alice")
	addLead(t, tg.store, "l1")

	verifier, err := auth.NewJWTVerifier([]byte(testJWTSecret))
	require.NoError(t, err)
	userToken, err := verifier.Generate("user-1", "authenticated", time.Hour)
	require.NoError(t, err)
	serviceToken, err := verifier.Generate("svc", auth.RoleService, time.Hour)
	require.NoError(t, err)

	t.Run("assign without token", func(t *testing.T) {
		w := tg.do(t, http.MethodPost, "/leads/assign", `{"lead_id":"l1"}`, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("list without token", func(t *testing.T) {
		w := tg.do(t, http.MethodGet, "/api/leads", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("health stays open", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, tg.do(t, http.MethodGet, "/health", "", "").Code)
	})

	t.Run("assign with token", func(t *testing.T) {
		w := tg.do(t, http.MethodPost, "/leads/assign", `{"lead_id":"l1"}`, userToken)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("reset needs admin", func(t *testing.T) {
		w := tg.do(t, http.MethodPost, "/api/rotation/reset", "", userToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("reset as service role", func(t *testing.T) {
		w := tg.do(t, http.MethodPost, "/api/rotation/reset", "", serviceToken)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	tg := newTestGateway(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tg.Run(ctx) }()

	addrCtx, addrCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer addrCancel()
	addr, err := tg.Addr(addrCtx)
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
