// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu         sync.RWMutex
	members    map[string]*TeamMember       // keyed by member ID
	leads      map[string]*Lead             // keyed by lead ID
	logs       map[string]*CommunicationLog // keyed by log ID
	properties map[string]*Property         // keyed by property ID
	settings   map[string]string            // keyed by setting key
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		members:    make(map[string]*TeamMember),
		leads:      make(map[string]*Lead),
		logs:       make(map[string]*CommunicationLog),
		properties: make(map[string]*Property),
		settings:   make(map[string]string),
	}
}

// CreateTeamMember stores a new team member.
func (m *MockStore) CreateTeamMember(ctx context.Context, member *TeamMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.members[member.ID]; exists {
		return ErrDuplicate
	}
	c := *member
	m.members[c.ID] = &c
	return nil
}

// GetTeamMember retrieves a team member by ID.
func (m *MockStore) GetTeamMember(ctx context.Context, id string) (*TeamMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	member, ok := m.members[id]
	if !ok {
		return nil, ErrTeamMemberNotFound
	}
	c := *member
	return &c, nil
}

// ListTeamMembers returns members matching the filter ordered by name.
func (m *MockStore) ListTeamMembers(ctx context.Context, filter TeamMemberFilter) ([]*TeamMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*TeamMember
	for _, member := range m.members {
		if filter.Status != nil && member.Status != *filter.Status {
			continue
		}
		if filter.InRotation != nil && member.InLeadRotation != *filter.InRotation {
			continue
		}
		c := *member
		result = append(result, &c)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// ListRotationMembers returns active rotation members ordered by ID.
func (m *MockStore) ListRotationMembers(ctx context.Context) ([]*TeamMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*TeamMember
	for _, member := range m.members {
		if member.Status == MemberStatusActive && member.InLeadRotation {
			c := *member
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// UpdateTeamMember replaces an existing team member.
func (m *MockStore) UpdateTeamMember(ctx context.Context, member *TeamMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.members[member.ID]
	if !ok {
		return ErrTeamMemberNotFound
	}
	c := *member
	c.CreatedAt = existing.CreatedAt
	m.members[c.ID] = &c
	return nil
}

// DeleteTeamMember removes a team member.
func (m *MockStore) DeleteTeamMember(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.members[id]; !ok {
		return ErrTeamMemberNotFound
	}
	delete(m.members, id)
	return nil
}

// CreateLead stores a new lead.
func (m *MockStore) CreateLead(ctx context.Context, lead *Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.leads[lead.ID]; exists {
		return ErrDuplicate
	}
	c := *lead
	m.leads[c.ID] = &c
	return nil
}

// GetLead retrieves a lead by ID.
func (m *MockStore) GetLead(ctx context.Context, id string) (*Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lead, ok := m.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	c := *lead
	return &c, nil
}

// ListLeads returns leads matching the filter, newest first.
func (m *MockStore) ListLeads(ctx context.Context, filter LeadFilter) ([]*Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Lead
	for _, lead := range m.leads {
		if filter.Status != nil && lead.Status != *filter.Status {
			continue
		}
		if filter.AgentName != nil && lead.AgentName != *filter.AgentName {
			continue
		}
		c := *lead
		result = append(result, &c)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// UpdateLead replaces an existing lead.
func (m *MockStore) UpdateLead(ctx context.Context, lead *Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.leads[lead.ID]
	if !ok {
		return ErrLeadNotFound
	}
	c := *lead
	c.CreatedAt = existing.CreatedAt
	m.leads[c.ID] = &c
	return nil
}

// DeleteLead removes a lead.
func (m *MockStore) DeleteLead(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.leads[id]; !ok {
		return ErrLeadNotFound
	}
	delete(m.leads, id)
	return nil
}

// AssignLeadAgent sets agent_name and is_hot on an existing lead.
func (m *MockStore) AssignLeadAgent(ctx context.Context, leadID, agentName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lead, ok := m.leads[leadID]
	if !ok {
		return ErrLeadNotFound
	}
	lead.AgentName = agentName
	lead.IsHot = true
	lead.UpdatedAt = time.Now().UTC()
	return nil
}

// CreateCommunicationLog stores a communication log.
func (m *MockStore) CreateCommunicationLog(ctx context.Context, log *CommunicationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.logs[log.ID]; exists {
		return ErrDuplicate
	}
	c := *log
	c.Property = nil
	m.logs[c.ID] = &c
	return nil
}

// GetCommunicationLogs returns the logs whose IDs are in ids.
func (m *MockStore) GetCommunicationLogs(ctx context.Context, ids []string) ([]*CommunicationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool, len(ids))
	var result []*CommunicationLog
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if log, ok := m.logs[id]; ok {
			result = append(result, m.resolveLocked(log))
		}
	}
	return result, nil
}

// ListCommunicationLogs returns the most recent logs.
func (m *MockStore) ListCommunicationLogs(ctx context.Context, limit int) ([]*CommunicationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*CommunicationLog, 0, len(m.logs))
	for _, log := range m.logs {
		result = append(result, m.resolveLocked(log))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// resolveLocked copies a log and attaches its property. Caller holds m.mu.
func (m *MockStore) resolveLocked(log *CommunicationLog) *CommunicationLog {
	c := *log
	c.Property = nil
	if p, ok := m.properties[c.PropertyID]; ok && c.PropertyID != "" {
		c.Property = &PropertyRef{ID: p.ID, Address: p.Address}
	}
	return &c
}

// CreateProperty stores a property.
func (m *MockStore) CreateProperty(ctx context.Context, p *Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.properties[p.ID]; exists {
		return ErrDuplicate
	}
	c := *p
	m.properties[c.ID] = &c
	return nil
}

// ListProperties returns all properties ordered by address.
func (m *MockStore) ListProperties(ctx context.Context) ([]*Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Property, 0, len(m.properties))
	for _, p := range m.properties {
		c := *p
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})
	return result, nil
}

// GetSetting returns the value stored at key.
func (m *MockStore) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.settings[key]
	if !ok {
		return "", ErrSettingNotFound
	}
	return v, nil
}

// SetSetting stores value at key.
func (m *MockStore) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[key] = value
	return nil
}

// IncrementSettingModulo advances the integer at key under the store lock.
func (m *MockStore) IncrementSettingModulo(ctx context.Context, key string, modulus int) (int, error) {
	if modulus <= 0 {
		return 0, fmt.Errorf("modulus must be positive, got %d", modulus)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current := -1
	if v, ok := m.settings[key]; ok {
		n, err := ParseCounter(v)
		if err != nil {
			return 0, fmt.Errorf("incrementing setting %s: %w", key, err)
		}
		current = n
	}

	next := ((current+1)%modulus + modulus) % modulus
	m.settings[key] = strconv.Itoa(next)
	return next, nil
}

// Ping always succeeds.
func (m *MockStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}
