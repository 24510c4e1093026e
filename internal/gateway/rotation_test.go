// ABOUTME: Tests for rotation inspection and reset endpoints
// ABOUTME: Verifies the reported next agent tracks assignments and resets

package gateway

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/brokerage-crm/internal/config"
)

func getRotation(t *testing.T, tg *testGateway) RotationStatusResponse {
	t.Helper()
	w := tg.do(t, http.MethodGet, "/api/rotation", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp RotationStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRotationStatus(t *testing.T) {
	tg := newTestGateway(t)
	addAgent(t, tg.store, "a2", "Bob")
	addAgent(t, tg.store, "a1", "Alice")
	addLead(t, tg.store, "l1")

	st := getRotation(t, tg)
	assert.Equal(t, config.CursorModeReadWrite, st.Mode)
	assert.Equal(t, -1, st.Cursor)
	require.Len(t, st.Roster, 2)
	assert.Equal(t, "a1", st.Roster[0].ID)
	require.NotNil(t, st.Next)
	assert.Equal(t, "Alice", st.Next.Name)

	require.Equal(t, http.StatusOK, tg.do(t, http.MethodPost, "/leads/assign", `{"lead_id":"l1"}`, "").Code)

	st = getRotation(t, tg)
	assert.Equal(t, 0, st.Cursor)
	assert.Equal(t, "Bob", st.Next.Name)

	w := tg.do(t, http.MethodPost, "/api/rotation/reset", "", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	st = getRotation(t, tg)
	assert.Equal(t, -1, st.Cursor)
	assert.Equal(t, "Alice", st.Next.Name)
}

func TestRotationStatus_EmptyRoster(t *testing.T) {
	tg := newTestGateway(t, func(c *config.Config) { c.Rotation.CursorMode = config.CursorModeAtomic })

	st := getRotation(t, tg)
	assert.Equal(t, config.CursorModeAtomic, st.Mode)
	assert.NotNil(t, st.Roster)
	assert.Empty(t, st.Roster)
	assert.Nil(t, st.Next)
}

func TestRotationReset_MethodNotAllowed(t *testing.T) {
	tg := newTestGateway(t)

	w := tg.do(t, http.MethodGet, "/api/rotation/reset", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
