// ABOUTME: Lead store methods for the leads table
// ABOUTME: CRUD plus the single-statement agent assignment update

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const leadColumns = `id, name, email, phone, status, agent_name, notes, is_hot, created_at, updated_at`

// CreateLead inserts a new lead.
func (s *SQLStore) CreateLead(ctx context.Context, lead *Lead) error {
	query := s.rebind(`
		INSERT INTO leads (` + leadColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		lead.ID,
		lead.Name,
		nullString(lead.Email),
		nullString(lead.Phone),
		lead.Status,
		nullString(lead.AgentName),
		nullString(lead.Notes),
		lead.IsHot,
		formatTime(lead.CreatedAt),
		formatTime(lead.UpdatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting lead: %w", err)
	}

	s.logger.Debug("created lead", "id", lead.ID, "agent", lead.AgentName)
	return nil
}

// GetLead retrieves a lead by ID.
func (s *SQLStore) GetLead(ctx context.Context, id string) (*Lead, error) {
	query := s.rebind(`SELECT ` + leadColumns + ` FROM leads WHERE id = ?`)

	lead, err := scanLead(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying lead: %w", err)
	}
	return lead, nil
}

// ListLeads returns leads matching the filter, newest first.
func (s *SQLStore) ListLeads(ctx context.Context, filter LeadFilter) ([]*Lead, error) {
	var conditions []string
	var args []any

	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.AgentName != nil {
		conditions = append(conditions, "agent_name = ?")
		args = append(args, *filter.AgentName)
	}

	query := `SELECT ` + leadColumns + ` FROM leads`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying leads: %w", err)
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating leads: %w", err)
	}

	return leads, nil
}

// UpdateLead overwrites the mutable fields of a lead.
func (s *SQLStore) UpdateLead(ctx context.Context, lead *Lead) error {
	query := s.rebind(`
		UPDATE leads
		SET name = ?, email = ?, phone = ?, status = ?, agent_name = ?, notes = ?, is_hot = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := s.db.ExecContext(ctx, query,
		lead.Name,
		nullString(lead.Email),
		nullString(lead.Phone),
		lead.Status,
		nullString(lead.AgentName),
		nullString(lead.Notes),
		lead.IsHot,
		formatTime(lead.UpdatedAt),
		lead.ID,
	)
	if err != nil {
		return fmt.Errorf("updating lead: %w", err)
	}

	return expectOneRow(result, ErrLeadNotFound)
}

// DeleteLead removes a lead.
func (s *SQLStore) DeleteLead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM leads WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting lead: %w", err)
	}
	return expectOneRow(result, ErrLeadNotFound)
}

// AssignLeadAgent sets the lead's agent and marks it hot in one statement.
func (s *SQLStore) AssignLeadAgent(ctx context.Context, leadID, agentName string) error {
	query := s.rebind(`
		UPDATE leads
		SET agent_name = ?, is_hot = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := s.db.ExecContext(ctx, query, agentName, true, formatTime(time.Now()), leadID)
	if err != nil {
		return fmt.Errorf("assigning lead: %w", err)
	}

	if err := expectOneRow(result, ErrLeadNotFound); err != nil {
		return err
	}

	s.logger.Debug("assigned lead", "id", leadID, "agent", agentName)
	return nil
}

func scanLead(row rowScanner) (*Lead, error) {
	var lead Lead
	var email, phone, agentName, notes sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&lead.ID,
		&lead.Name,
		&email,
		&phone,
		&lead.Status,
		&agentName,
		&notes,
		&lead.IsHot,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	lead.Email = email.String
	lead.Phone = phone.String
	lead.AgentName = agentName.String
	lead.Notes = notes.String

	if lead.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	if lead.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return nil, err
	}

	return &lead, nil
}
