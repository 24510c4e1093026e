// ABOUTME: Tests for communication log and property persistence
// ABOUTME: Verifies the property join resolves to a single optional PropertyRef

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommunicationLogs_PropertyResolution(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.CreateProperty(ctx, &Property{ID: "P1", Address: "12 Oak St", CreatedAt: now}))

	require.NoError(t, store.CreateCommunicationLog(ctx, &CommunicationLog{
		ID:                "c1",
		FromAddress:       "jane@example.com",
		Subject:           "Viewing",
		CommunicationType: "email",
		PropertyID:        "P1",
		CreatedAt:         now,
	}))
	require.NoError(t, store.CreateCommunicationLog(ctx, &CommunicationLog{
		ID:                "c2",
		FromAddress:       "555-0100",
		Body:              "Call me",
		CommunicationType: "sms",
		CreatedAt:         now,
	}))
	require.NoError(t, store.CreateCommunicationLog(ctx, &CommunicationLog{
		ID:                "c3",
		CommunicationType: "call",
		PropertyID:        "P-gone",
		CreatedAt:         now,
	}))

	logs, err := store.GetCommunicationLogs(ctx, []string{"c1", "c2", "c3", "unknown"})
	require.NoError(t, err)
	require.Len(t, logs, 3)

	byID := make(map[string]*CommunicationLog)
	for _, l := range logs {
		byID[l.ID] = l
	}

	require.NotNil(t, byID["c1"].Property)
	assert.Equal(t, "12 Oak St", byID["c1"].Property.Address)
	assert.Equal(t, "Viewing", byID["c1"].Subject)

	assert.Nil(t, byID["c2"].Property)
	assert.Equal(t, "Call me", byID["c2"].Body)

	assert.Nil(t, byID["c3"].Property, "dangling property id resolves to no property")
	assert.Equal(t, "P-gone", byID["c3"].PropertyID)
}

func TestGetCommunicationLogs_Empty(t *testing.T) {
	store := setupTestStore(t)

	logs, err := store.GetCommunicationLogs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestListCommunicationLogs_NewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.CreateCommunicationLog(ctx, &CommunicationLog{
			ID:                id,
			CommunicationType: "email",
			CreatedAt:         base.Add(time.Duration(i) * time.Minute),
		}))
	}

	logs, err := store.ListCommunicationLogs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "c", logs[0].ID)
	assert.Equal(t, "b", logs[1].ID)
}

func TestCommunicationLog_Duplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	log := &CommunicationLog{ID: "c1", CommunicationType: "email", CreatedAt: time.Now()}
	require.NoError(t, store.CreateCommunicationLog(ctx, log))
	assert.ErrorIs(t, store.CreateCommunicationLog(ctx, log), ErrDuplicate)
}

func TestListProperties(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.CreateProperty(ctx, &Property{ID: "P2", Address: "9 Elm Ave", CreatedAt: now}))
	require.NoError(t, store.CreateProperty(ctx, &Property{ID: "P1", Address: "1 Ash Rd", CreatedAt: now}))

	props, err := store.ListProperties(ctx)
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, "1 Ash Rd", props[0].Address)

	assert.ErrorIs(t, store.CreateProperty(ctx, &Property{ID: "P1", Address: "dup", CreatedAt: now}), ErrDuplicate)
}
