// ABOUTME: Event envelope and payload types published on the CRM exchange
// ABOUTME: Envelope carries routing metadata; LeadAssigned is the rotation payload

package events

import (
	"time"

	"github.com/google/uuid"
)

// TypeLeadAssigned is the routing key and event type for rotation assignments.
const TypeLeadAssigned = "leads.assigned.v1"

// Producer identifies this service in event metadata.
const Producer = "crm-gateway"

// Meta describes an event independent of its payload.
type Meta struct {
	// Trace / request correlation ID
	CorrelationID *string `json:"correlation_id,omitempty"`
	// Unique event ID
	ID string `json:"id"`
	// Emitting service
	Producer *string `json:"producer,omitempty"`
	// Timestamp when the event was emitted
	Time time.Time `json:"time"`
	// Event name and version, e.g. leads.assigned.v1
	Type string `json:"type"`
}

// Envelope is the wire format of every published event.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// LeadAssigned is emitted after a lead is given an agent by rotation.
type LeadAssigned struct {
	LeadID      string `json:"lead_id"`
	LeadName    string `json:"lead_name,omitempty"`
	AgentID     string `json:"agent_id"`
	AgentName   string `json:"agent_name"`
	Path        string `json:"path"` // "single" or "batch"
	SourceLogID string `json:"source_log_id,omitempty"`
}

// NewEnvelope wraps data with fresh metadata. An empty correlationID is omitted.
func NewEnvelope(eventType, correlationID string, data any) Envelope {
	producer := Producer
	meta := Meta{
		ID:       uuid.NewString(),
		Producer: &producer,
		Time:     time.Now().UTC(),
		Type:     eventType,
	}
	if correlationID != "" {
		meta.CorrelationID = &correlationID
	}
	return Envelope{Meta: meta, Data: data}
}
