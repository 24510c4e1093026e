// ABOUTME: Communication log and property store methods
// ABOUTME: Resolves the optional property join into a single PropertyRef at the boundary

package store

import (
	"context"
	"database/sql"
	"fmt"
)

const communicationSelect = `
	SELECT c.id, c.from_address, c.to_address, c.body, c.subject,
	       c.communication_type, c.property_id, c.created_at,
	       p.id, p.address
	FROM communications_log c
	LEFT JOIN properties p ON p.id = c.property_id
`

// CreateCommunicationLog records an inbound communication.
func (s *SQLStore) CreateCommunicationLog(ctx context.Context, log *CommunicationLog) error {
	query := s.rebind(`
		INSERT INTO communications_log
			(id, from_address, to_address, body, subject, communication_type, property_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		log.ID,
		nullString(log.FromAddress),
		nullString(log.ToAddress),
		nullString(log.Body),
		nullString(log.Subject),
		log.CommunicationType,
		nullString(log.PropertyID),
		formatTime(log.CreatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting communication log: %w", err)
	}

	s.logger.Debug("created communication log", "id", log.ID, "type", log.CommunicationType)
	return nil
}

// GetCommunicationLogs fetches the logs for ids in a single query.
func (s *SQLStore) GetCommunicationLogs(ctx context.Context, ids []string) ([]*CommunicationLog, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := communicationSelect + ` WHERE c.id IN (` + placeholders(len(ids)) + `)`
	return s.queryCommunicationLogs(ctx, s.rebind(query), args...)
}

// ListCommunicationLogs returns the most recent logs.
func (s *SQLStore) ListCommunicationLogs(ctx context.Context, limit int) ([]*CommunicationLog, error) {
	query := communicationSelect + ` ORDER BY c.created_at DESC, c.id ASC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryCommunicationLogs(ctx, s.rebind(query), args...)
}

func (s *SQLStore) queryCommunicationLogs(ctx context.Context, query string, args ...any) ([]*CommunicationLog, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying communication logs: %w", err)
	}
	defer rows.Close()

	var logs []*CommunicationLog
	for rows.Next() {
		var l CommunicationLog
		var from, to, body, subject, propertyID sql.NullString
		var joinedID, joinedAddress sql.NullString
		var createdAt string

		if err := rows.Scan(
			&l.ID,
			&from,
			&to,
			&body,
			&subject,
			&l.CommunicationType,
			&propertyID,
			&createdAt,
			&joinedID,
			&joinedAddress,
		); err != nil {
			return nil, fmt.Errorf("scanning communication log: %w", err)
		}

		l.FromAddress = from.String
		l.ToAddress = to.String
		l.Body = body.String
		l.Subject = subject.String
		l.PropertyID = propertyID.String
		if joinedID.Valid {
			l.Property = &PropertyRef{ID: joinedID.String, Address: joinedAddress.String}
		}

		if l.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}

		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating communication logs: %w", err)
	}

	return logs, nil
}

// CreateProperty inserts a property reference.
func (s *SQLStore) CreateProperty(ctx context.Context, p *Property) error {
	query := s.rebind(`INSERT INTO properties (id, address, created_at) VALUES (?, ?, ?)`)

	if _, err := s.db.ExecContext(ctx, query, p.ID, p.Address, formatTime(p.CreatedAt)); err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting property: %w", err)
	}
	return nil
}

// ListProperties returns all properties ordered by address.
func (s *SQLStore) ListProperties(ctx context.Context) ([]*Property, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, address, created_at FROM properties ORDER BY address ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying properties: %w", err)
	}
	defer rows.Close()

	var props []*Property
	for rows.Next() {
		var p Property
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Address, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		if p.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		props = append(props, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties: %w", err)
	}

	return props, nil
}
