// ABOUTME: automation_settings key/value store methods
// ABOUTME: Plain get/upsert plus an atomic increment-and-fetch for counters

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrSettingNotInteger is returned when a counter setting holds something
// other than an integer.
var ErrSettingNotInteger = errors.New("setting value is not an integer")

// ParseCounter decodes a counter setting: a JSON number with no fractional
// part, or a JSON string holding an integer.
func ParseCounter(raw string) (int, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSettingNotInteger, err)
	}

	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("%w: %v", ErrSettingNotInteger, t)
		}
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrSettingNotInteger, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: unexpected type %T", ErrSettingNotInteger, v)
	}
}

// GetSetting returns the raw JSON value stored at key.
// Returns ErrSettingNotFound if the key is unset.
func (s *SQLStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT value FROM automation_settings WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts the JSON value at key. Last writer wins.
func (s *SQLStore) SetSetting(ctx context.Context, key, value string) error {
	query := s.rebind(`
		INSERT INTO automation_settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)

	if _, err := s.db.ExecContext(ctx, query, key, value, formatTime(time.Now())); err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

// IncrementSettingModulo advances the integer at key by one, wrapping at
// modulus, in a single statement so concurrent callers never observe the
// same result. The stored value is read with ParseCounter rules; anything
// else is left untouched and ErrSettingNotInteger is returned.
func (s *SQLStore) IncrementSettingModulo(ctx context.Context, key string, modulus int) (int, error) {
	if modulus <= 0 {
		return 0, fmt.Errorf("modulus must be positive, got %d", modulus)
	}

	now := formatTime(time.Now())

	var raw string
	var err error
	switch s.dialect {
	case dialectPostgres:
		query := `
			INSERT INTO automation_settings (key, value, updated_at)
			VALUES ($1, '0'::jsonb, $2)
			ON CONFLICT (key) DO UPDATE SET
				value = to_jsonb((((trim(automation_settings.value #>> '{}')::numeric::int + 1) % $3) + $3) % $3),
				updated_at = excluded.updated_at
			WHERE trim(automation_settings.value #>> '{}') ~ '^-?[0-9]+(\.0+)?$'
			RETURNING value #>> '{}'
		`
		err = s.db.QueryRowContext(ctx, query, key, now, modulus).Scan(&raw)
	default:
		// json_extract unwraps "2" and 2 alike. Values that do not hold an
		// integer fail the WHERE guard and RETURNING yields no row.
		query := `
			INSERT INTO automation_settings (key, value, updated_at)
			VALUES (?, '0', ?)
			ON CONFLICT (key) DO UPDATE SET
				value = CAST((((CAST(json_extract(value, '$') AS INTEGER) + 1) % ?) + ?) % ? AS TEXT),
				updated_at = excluded.updated_at
			WHERE CASE typeof(json_extract(value, '$'))
				WHEN 'integer' THEN 1
				WHEN 'real' THEN json_extract(value, '$') = CAST(json_extract(value, '$') AS INTEGER)
				WHEN 'text' THEN CAST(CAST(json_extract(value, '$') AS INTEGER) AS TEXT) = trim(json_extract(value, '$'))
				ELSE 0
			END
			RETURNING value
		`
		err = s.db.QueryRowContext(ctx, query, key, now, modulus, modulus, modulus).Scan(&raw)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("incrementing setting %s: %w", key, ErrSettingNotInteger)
	}
	if err != nil {
		return 0, fmt.Errorf("incrementing setting %s: %w", key, err)
	}

	n, err := ParseCounter(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing setting %s value %q: %w", key, raw, err)
	}
	return n, nil
}
