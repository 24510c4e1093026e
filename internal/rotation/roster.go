// ABOUTME: Rotation roster provider over team member storage
// ABOUTME: Returns eligible agents in stable id order, fetched fresh on every call

package rotation

import (
	"context"
	"fmt"

	"github.com/2389/brokerage-crm/internal/store"
)

// Agent is a rotation-eligible team member.
type Agent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MemberLister is the subset of store.TeamStore the roster needs.
type MemberLister interface {
	ListRotationMembers(ctx context.Context) ([]*store.TeamMember, error)
}

// Roster reads the ordered set of agents eligible for assignment.
type Roster struct {
	members MemberLister
}

// NewRoster creates a Roster over members.
func NewRoster(members MemberLister) *Roster {
	return &Roster{members: members}
}

// ListRotationAgents returns active members opted into rotation, ordered by id.
// An empty slice is a valid result; callers decide whether that is an error.
func (r *Roster) ListRotationAgents(ctx context.Context) ([]Agent, error) {
	members, err := r.members.ListRotationMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRosterUnavailable, err)
	}

	agents := make([]Agent, 0, len(members))
	for _, m := range members {
		agents = append(agents, Agent{ID: m.ID, Name: m.Name})
	}
	return agents, nil
}
