// ABOUTME: Store interface and data types for brokerage CRM persistence
// ABOUTME: Defines TeamMember, Lead, CommunicationLog structs and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// Store errors.
var (
	// ErrNotFound is returned when a requested entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrLeadNotFound is returned when a lead id does not match any row
	ErrLeadNotFound = errors.New("lead not found")

	// ErrTeamMemberNotFound is returned when a team member id does not match any row
	ErrTeamMemberNotFound = errors.New("team member not found")

	// ErrSettingNotFound is returned when an automation setting key is unset
	ErrSettingNotFound = errors.New("setting not found")

	// ErrDuplicate is returned when an insert collides with an existing primary key
	ErrDuplicate = errors.New("already exists")
)

// Team member statuses.
const (
	MemberStatusActive   = "Active"
	MemberStatusInactive = "Inactive"
)

// LeadStatusNew is the status given to freshly created or imported leads.
const LeadStatusNew = "New"

// TeamMember is a brokerage agent or staff member. Members with
// Status == "Active" and InLeadRotation set make up the rotation roster.
type TeamMember struct {
	ID             string
	Name           string
	Email          string
	Phone          string
	Role           string
	Status         string // "Active" | "Inactive"
	InLeadRotation bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Lead is a prospective buyer or seller tracked by the CRM.
type Lead struct {
	ID        string
	Name      string
	Email     string // empty when unknown
	Phone     string // empty when unknown
	Status    string
	AgentName string // empty until assigned
	Notes     string
	IsHot     bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PropertyRef is the single related property of a communication log, already
// resolved from the join so callers never see the join cardinality.
type PropertyRef struct {
	ID      string
	Address string
}

// Property is a listing the brokerage tracks.
type Property struct {
	ID        string
	Address   string
	CreatedAt time.Time
}

// CommunicationLog is a raw inbound email, SMS, or call record.
type CommunicationLog struct {
	ID                string
	FromAddress       string
	ToAddress         string
	Body              string
	Subject           string
	CommunicationType string       // "email", "sms", "call"
	PropertyID        string       // empty when not linked
	Property          *PropertyRef // nil when not linked or the property row is gone
	CreatedAt         time.Time
}

// TeamMemberFilter narrows ListTeamMembers.
type TeamMemberFilter struct {
	Status     *string
	InRotation *bool
}

// LeadFilter narrows ListLeads.
type LeadFilter struct {
	Status    *string
	AgentName *string
	Limit     int // 0 means no limit
}

// TeamStore persists team members.
type TeamStore interface {
	CreateTeamMember(ctx context.Context, m *TeamMember) error
	GetTeamMember(ctx context.Context, id string) (*TeamMember, error)
	ListTeamMembers(ctx context.Context, filter TeamMemberFilter) ([]*TeamMember, error)
	UpdateTeamMember(ctx context.Context, m *TeamMember) error
	DeleteTeamMember(ctx context.Context, id string) error

	// ListRotationMembers returns active members opted into lead rotation,
	// ordered by id ascending.
	ListRotationMembers(ctx context.Context) ([]*TeamMember, error)
}

// LeadStore persists leads.
type LeadStore interface {
	CreateLead(ctx context.Context, lead *Lead) error
	GetLead(ctx context.Context, id string) (*Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]*Lead, error)
	UpdateLead(ctx context.Context, lead *Lead) error
	DeleteLead(ctx context.Context, id string) error

	// AssignLeadAgent sets agent_name and marks the lead hot.
	// Returns ErrLeadNotFound if no row matched.
	AssignLeadAgent(ctx context.Context, leadID, agentName string) error
}

// CommunicationStore persists communication logs and the properties they reference.
type CommunicationStore interface {
	CreateCommunicationLog(ctx context.Context, log *CommunicationLog) error
	ListCommunicationLogs(ctx context.Context, limit int) ([]*CommunicationLog, error)

	// GetCommunicationLogs fetches every log whose id is in ids with a single
	// read. Unknown ids are ignored; the result order is unspecified.
	GetCommunicationLogs(ctx context.Context, ids []string) ([]*CommunicationLog, error)

	CreateProperty(ctx context.Context, p *Property) error
	ListProperties(ctx context.Context) ([]*Property, error)
}

// SettingsStore persists automation_settings key/value pairs. Values are JSON text.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// IncrementSettingModulo atomically replaces the integer stored at key with
	// (value + 1) mod modulus and returns the new value. An unset key is
	// treated as -1, so the first call returns 0.
	IncrementSettingModulo(ctx context.Context, key string, modulus int) (int, error)
}

// Store is the full persistence surface used by the gateway.
type Store interface {
	TeamStore
	LeadStore
	CommunicationStore
	SettingsStore

	// Ping verifies the backing database is reachable
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}
