// ABOUTME: Shared fixtures for rotation tests
// ABOUTME: faultStore wraps MockStore with per-method error injection and hooks

package rotation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/2389/brokerage-crm/internal/events"
	"github.com/2389/brokerage-crm/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// faultStore wraps MockStore so tests can fail or intercept individual calls.
type faultStore struct {
	*store.MockStore

	mu            sync.Mutex
	listErr       error
	getSettingErr error
	setSettingErr error
	incrementErr  error
	assignErr     error
	logsErr       error
	failInsertFor map[string]bool // lead names whose insert fails

	afterGetSetting func() // runs after GetSetting reads, outside the store lock

	calls map[string]int
}

func newFaultStore() *faultStore {
	return &faultStore{
		MockStore:     store.NewMockStore(),
		failInsertFor: make(map[string]bool),
		calls:         make(map[string]int),
	}
}

func (f *faultStore) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *faultStore) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *faultStore) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *faultStore) ListRotationMembers(ctx context.Context) ([]*store.TeamMember, error) {
	f.record("ListRotationMembers")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.MockStore.ListRotationMembers(ctx)
}

func (f *faultStore) GetSetting(ctx context.Context, key string) (string, error) {
	f.record("GetSetting")
	if f.getSettingErr != nil {
		return "", f.getSettingErr
	}
	v, err := f.MockStore.GetSetting(ctx, key)
	if f.afterGetSetting != nil {
		f.afterGetSetting()
	}
	return v, err
}

func (f *faultStore) SetSetting(ctx context.Context, key, value string) error {
	f.record("SetSetting")
	if f.setSettingErr != nil {
		return f.setSettingErr
	}
	return f.MockStore.SetSetting(ctx, key, value)
}

func (f *faultStore) IncrementSettingModulo(ctx context.Context, key string, modulus int) (int, error) {
	f.record("IncrementSettingModulo")
	if f.incrementErr != nil {
		return 0, f.incrementErr
	}
	return f.MockStore.IncrementSettingModulo(ctx, key, modulus)
}

func (f *faultStore) AssignLeadAgent(ctx context.Context, leadID, agentName string) error {
	f.record("AssignLeadAgent")
	if f.assignErr != nil {
		return f.assignErr
	}
	return f.MockStore.AssignLeadAgent(ctx, leadID, agentName)
}

func (f *faultStore) CreateLead(ctx context.Context, lead *store.Lead) error {
	f.record("CreateLead")
	if f.failInsertFor[lead.Name] {
		return store.ErrDuplicate
	}
	return f.MockStore.CreateLead(ctx, lead)
}

func (f *faultStore) GetCommunicationLogs(ctx context.Context, ids []string) ([]*store.CommunicationLog, error) {
	f.record("GetCommunicationLogs")
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	return f.MockStore.GetCommunicationLogs(ctx, ids)
}

// seedRoster adds active rotation members u1..uN named after names.
func seedRoster(t *testing.T, s *faultStore, names ...string) {
	t.Helper()
	now := time.Now().UTC()
	for i, name := range names {
		require.NoError(t, s.MockStore.CreateTeamMember(context.Background(), &store.TeamMember{
			ID:             "u" + string(rune('1'+i)),
			Name:           name,
			Status:         store.MemberStatusActive,
			InLeadRotation: true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}))
	}
}

func seedLead(t *testing.T, s *faultStore, id string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, s.MockStore.CreateLead(context.Background(), &store.Lead{
		ID:        id,
		Name:      "Lead " + id,
		Status:    store.LeadStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func seedLog(t *testing.T, s *faultStore, id, from string) {
	t.Helper()
	require.NoError(t, s.MockStore.CreateCommunicationLog(context.Background(), &store.CommunicationLog{
		ID:                id,
		FromAddress:       from,
		CommunicationType: "email",
		CreatedAt:         time.Now().UTC(),
	}))
}

func setCursor(t *testing.T, s *faultStore, n string) {
	t.Helper()
	require.NoError(t, s.MockStore.SetSetting(context.Background(), DefaultSettingKey, n))
}

func storedCursor(t *testing.T, s *faultStore) (string, bool) {
	t.Helper()
	v, err := s.MockStore.GetSetting(context.Background(), DefaultSettingKey)
	if err != nil {
		return "", false
	}
	return v, true
}

func newTestEngine(s *faultStore, mode CursorMode, pub events.Publisher) *Engine {
	return NewEngine(Config{
		Store:     s,
		Publisher: pub,
		Mode:      mode,
	})
}
