// ABOUTME: Tests for crm-admin commands against a real gateway handler
// ABOUTME: Seeds a temp SQLite-backed gateway over HTTP and runs cobra commands

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/brokerage-crm/internal/auth"
	"github.com/2389/brokerage-crm/internal/config"
	"github.com/2389/brokerage-crm/internal/gateway"
)

const adminTestSecret = "crm-admin-test-secret-0123456789abcdef"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{HTTPAddr: "127.0.0.1:0", ShutdownTimeout: time.Second},
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "crm.db")},
		Auth:     config.AuthConfig{JWTSecret: adminTestSecret},
		Rotation: config.RotationConfig{CursorMode: config.CursorModeReadWrite, SettingKey: "last_assigned_agent_index"},
	}

	gw, err := gateway.New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = gw.Shutdown(context.Background())
	})
	return srv
}

func serviceToken(t *testing.T) string {
	t.Helper()
	v, err := auth.NewJWTVerifier([]byte(adminTestSecret))
	require.NoError(t, err)
	token, err := v.Generate("crm-admin-test", auth.RoleService, time.Hour)
	require.NoError(t, err)
	return token
}

// post seeds a record through the API and returns its id.
func post(t *testing.T, srv *httptest.Server, token, path, body string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	return created.ID
}

func run(t *testing.T, srv *httptest.Server, token string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--url", srv.URL, "--token", token}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAssignAndRotation(t *testing.T) {
	srv := newTestServer(t)
	token := serviceToken(t)

	post(t, srv, token, "/api/team-members", `{"name":"Alice","is_in_lead_rotation":true}`)
	post(t, srv, token, "/api/team-members", `{"name":"Bob","is_in_lead_rotation":true}`)
	leadID := post(t, srv, token, "/api/leads", `{"name":"Pat Buyer"}`)

	out, err := run(t, srv, token, "rotation")
	require.NoError(t, err)
	assert.Contains(t, out, "Cursor: -1")
	assert.Contains(t, out, "read_write")

	out, err = run(t, srv, token, "assign", leadID)
	require.NoError(t, err)
	assert.Contains(t, out, "Lead assigned to ")

	out, err = run(t, srv, token, "rotation")
	require.NoError(t, err)
	assert.Contains(t, out, "Cursor: 0")

	out, err = run(t, srv, token, "rotation", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Rotation reset")

	out, err = run(t, srv, token, "rotation")
	require.NoError(t, err)
	assert.Contains(t, out, "Cursor: -1")
}

func TestAssignBatch(t *testing.T) {
	srv := newTestServer(t)
	token := serviceToken(t)

	post(t, srv, token, "/api/team-members", `{"name":"Alice","is_in_lead_rotation":true}`)
	a := post(t, srv, token, "/api/communications", `{"from_address":"jane@x.com","communication_type":"email"}`)
	b := post(t, srv, token, "/api/communications", `{"from_address":"+15550001111","communication_type":"sms"}`)

	out, err := run(t, srv, token, "assign-batch", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "Created 2 new leads from selected logs")
	assert.Contains(t, out, "jane@x.com")
	assert.Contains(t, out, "Alice")
}

func TestTeamList(t *testing.T) {
	srv := newTestServer(t)
	token := serviceToken(t)

	out, err := run(t, srv, token, "team", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No team members.")

	post(t, srv, token, "/api/team-members", `{"name":"Carol","status":"Inactive"}`)

	out, err = run(t, srv, token, "team", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Carol")
	assert.Contains(t, out, "Inactive")
}

func TestAPIErrors(t *testing.T) {
	srv := newTestServer(t)
	token := serviceToken(t)

	_, err := run(t, srv, token, "assign", "missing-lead")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "no active team members in lead rotation", apiErr.Message)

	_, err = run(t, srv, "", "rotation")
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestAssign_RequiresArg(t *testing.T) {
	srv := newTestServer(t)

	_, err := run(t, srv, serviceToken(t), "assign")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 12))
	assert.Equal(t, "0123456789...", truncate("0123456789abcdefgh", 13))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
