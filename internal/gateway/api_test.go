// ABOUTME: Tests for the lead assignment HTTP endpoints
// ABOUTME: Covers status codes, response shapes, rotation order, and published events

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/brokerage-crm/internal/events"
	"github.com/2389/brokerage-crm/internal/store"
)

func decodeError(t *testing.T, body []byte) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp["error"]
}

func TestAssignLead_RoundRobin(t *testing.T) {
	tg := newTestGateway(t)
	addAgent(t, tg.store, "a1", "Alice")
	addAgent(t, tg.store, "a2", "Bob")
	addAgent(t, tg.store, "a3", "Carol")
	for _, id := range []string{"l1", "l2", "l3", "l4"} {
		addLead(t, tg.store, id)
	}

	want := []string{"Alice", "Bob", "Carol", "Alice"}
	for i, id := range []string{"l1", "l2", "l3", "l4"} {
		w := tg.do(t, http.MethodPost, "/leads/assign", `{"lead_id":"`+id+`"}`, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp AssignLeadResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "Lead assigned to "+want[i], resp.Message)

		lead, err := tg.store.GetLead(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want[i], lead.AgentName)
		assert.True(t, lead.IsHot)
	}

	published := tg.published.Events()
	require.Len(t, published, 4)
	assert.Equal(t, events.TypeLeadAssigned, published[0].Key)
}

func TestAssignLead_Errors(t *testing.T) {
	tests := []struct {
		name     string
		agents   bool
		body     string
		wantCode int
		wantMsg  string
	}{
		{"invalid json", true, `{`, http.StatusBadRequest, "invalid request body"},
		{"missing lead_id", true, `{}`, http.StatusBadRequest, "lead_id: is required"},
		{"empty roster", false, `{"lead_id":"l1"}`, http.StatusInternalServerError, "no active team members in lead rotation"},
		{"unknown lead", true, `{"lead_id":"missing"}`, http.StatusInternalServerError, "failed to update lead"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := newTestGateway(t)
			if tt.agents {
				addAgent(t, tg.store, "a1", "Alice")
			}
			addLead(t, tg.store, "l1")

			w := tg.do(t, http.MethodPost, "/leads/assign", tt.body, "")
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantMsg, decodeError(t, w.Body.Bytes()))

			_, err := tg.store.GetSetting(context.Background(), "last_assigned_agent_index")
			assert.ErrorIs(t, err, store.ErrSettingNotFound, "cursor must not move on failure")
		})
	}
}

func TestAssignLead_MethodNotAllowed(t *testing.T) {
	tg := newTestGateway(t)

	w := tg.do(t, http.MethodGet, "/leads/assign", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestAssignBatch(t *testing.T) {
	tg := newTestGateway(t)
	addAgent(t, tg.store, "a1", "Alice")
	addAgent(t, tg.store, "a2", "Bob")
	addLog(t, tg.store, "c1", "jane@x.com")
	addLog(t, tg.store, "c2", "john@x.com")
	addLog(t, tg.store, "c3", "june@x.com")

	w := tg.do(t, http.MethodPost, "/leads/assign-batch", `{"log_ids":["c1","c2","c3"]}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp AssignBatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Created 3 new leads from selected logs", resp.Message)
	require.Len(t, resp.Leads, 3)

	assert.Equal(t, "jane@x.com", resp.Leads[0].Name)
	assert.Equal(t, "Alice", resp.Leads[0].Agent)
	assert.Equal(t, "Bob", resp.Leads[1].Agent)
	assert.Equal(t, "Alice", resp.Leads[2].Agent)
	for _, l := range resp.Leads {
		assert.NotEmpty(t, l.ID)
	}

	leads, err := tg.store.ListLeads(context.Background(), store.LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, leads, 3)

	cursor, err := tg.store.GetSetting(context.Background(), "last_assigned_agent_index")
	require.NoError(t, err)
	assert.Equal(t, "0", cursor)
}

func TestAssignBatch_Errors(t *testing.T) {
	tests := []struct {
		name     string
		agents   bool
		body     string
		wantCode int
		wantMsg  string
	}{
		{"missing log_ids", true, `{}`, http.StatusBadRequest, "log_ids: must not be empty"},
		{"empty log_ids", true, `{"log_ids":[]}`, http.StatusBadRequest, "log_ids: must not be empty"},
		{"invalid json", true, `not json`, http.StatusBadRequest, "invalid request body"},
		{"empty roster", false, `{"log_ids":["c1"]}`, http.StatusInternalServerError, "no active team members in lead rotation"},
		{"unknown logs", true, `{"log_ids":["nope"]}`, http.StatusInternalServerError, "failed to fetch communication logs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := newTestGateway(t)
			if tt.agents {
				addAgent(t, tg.store, "a1", "Alice")
			}
			addLog(t, tg.store, "c1", "jane@x.com")

			w := tg.do(t, http.MethodPost, "/leads/assign-batch", tt.body, "")
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantMsg, decodeError(t, w.Body.Bytes()))

			leads, err := tg.store.ListLeads(context.Background(), store.LeadFilter{})
			require.NoError(t, err)
			assert.Empty(t, leads)
		})
	}
}

func TestSendAssignmentError_HidesDetails(t *testing.T) {
	tg := newTestGateway(t)

	rec := httptest.NewRecorder()
	tg.sendAssignmentError(rec, errors.New("pq: relation \"leads\" does not exist"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeError(t, rec.Body.Bytes()))
}
