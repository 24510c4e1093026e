// ABOUTME: TeamMember store methods for the team_members table
// ABOUTME: Includes the ordered rotation roster query used by lead assignment

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const teamMemberColumns = `id, name, email, phone, role, status, is_in_lead_rotation, created_at, updated_at`

// CreateTeamMember inserts a new team member.
func (s *SQLStore) CreateTeamMember(ctx context.Context, m *TeamMember) error {
	query := s.rebind(`
		INSERT INTO team_members (` + teamMemberColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		m.ID,
		m.Name,
		nullString(m.Email),
		nullString(m.Phone),
		nullString(m.Role),
		m.Status,
		m.InLeadRotation,
		formatTime(m.CreatedAt),
		formatTime(m.UpdatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting team member: %w", err)
	}

	s.logger.Debug("created team member", "id", m.ID, "rotation", m.InLeadRotation)
	return nil
}

// GetTeamMember retrieves a team member by ID.
func (s *SQLStore) GetTeamMember(ctx context.Context, id string) (*TeamMember, error) {
	query := s.rebind(`SELECT ` + teamMemberColumns + ` FROM team_members WHERE id = ?`)

	m, err := scanTeamMember(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTeamMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying team member: %w", err)
	}
	return m, nil
}

// ListTeamMembers returns team members matching the filter, ordered by name.
func (s *SQLStore) ListTeamMembers(ctx context.Context, filter TeamMemberFilter) ([]*TeamMember, error) {
	var conditions []string
	var args []any

	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.InRotation != nil {
		conditions = append(conditions, "is_in_lead_rotation = ?")
		args = append(args, *filter.InRotation)
	}

	query := `SELECT ` + teamMemberColumns + ` FROM team_members`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"

	return s.queryTeamMembers(ctx, s.rebind(query), args...)
}

// ListRotationMembers returns the rotation roster: active members opted into
// lead rotation, ordered by id ascending so positions are stable between calls.
func (s *SQLStore) ListRotationMembers(ctx context.Context) ([]*TeamMember, error) {
	query := s.rebind(`
		SELECT ` + teamMemberColumns + `
		FROM team_members
		WHERE status = ? AND is_in_lead_rotation = ?
		ORDER BY id ASC
	`)

	return s.queryTeamMembers(ctx, query, MemberStatusActive, true)
}

// UpdateTeamMember overwrites the mutable fields of a team member.
func (s *SQLStore) UpdateTeamMember(ctx context.Context, m *TeamMember) error {
	query := s.rebind(`
		UPDATE team_members
		SET name = ?, email = ?, phone = ?, role = ?, status = ?, is_in_lead_rotation = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := s.db.ExecContext(ctx, query,
		m.Name,
		nullString(m.Email),
		nullString(m.Phone),
		nullString(m.Role),
		m.Status,
		m.InLeadRotation,
		formatTime(m.UpdatedAt),
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("updating team member: %w", err)
	}

	return expectOneRow(result, ErrTeamMemberNotFound)
}

// DeleteTeamMember removes a team member, which drops it from rotation immediately.
func (s *SQLStore) DeleteTeamMember(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM team_members WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting team member: %w", err)
	}

	if err := expectOneRow(result, ErrTeamMemberNotFound); err != nil {
		return err
	}

	s.logger.Debug("deleted team member", "id", id)
	return nil
}

func (s *SQLStore) queryTeamMembers(ctx context.Context, query string, args ...any) ([]*TeamMember, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying team members: %w", err)
	}
	defer rows.Close()

	var members []*TeamMember
	for rows.Next() {
		m, err := scanTeamMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning team member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating team members: %w", err)
	}

	return members, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTeamMember(row rowScanner) (*TeamMember, error) {
	var m TeamMember
	var email, phone, role sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&m.ID,
		&m.Name,
		&email,
		&phone,
		&role,
		&m.Status,
		&m.InLeadRotation,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Email = email.String
	m.Phone = phone.String
	m.Role = role.String

	if m.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return nil, err
	}

	return &m, nil
}

// expectOneRow maps a zero-row UPDATE or DELETE to notFound.
func expectOneRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
