// ABOUTME: Persisted rotation cursor stored as JSON in automation_settings
// ABOUTME: Plain read/write by default plus an atomic advance for the opt-in mode

package rotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/brokerage-crm/internal/store"
)

// DefaultSettingKey is the automation_settings key holding the cursor.
const DefaultSettingKey = "last_assigned_agent_index"

// InitialCursor is the cursor value before any assignment.
const InitialCursor = -1

// SettingsStore is the subset of store.SettingsStore the cursor needs.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	IncrementSettingModulo(ctx context.Context, key string, modulus int) (int, error)
}

// CursorStore reads and writes the last assigned roster index.
//
// Read and Write are independent statements with no compare-and-swap, so two
// callers that Read the same value will compute the same next index. Advance
// is the race-free alternative.
type CursorStore struct {
	settings SettingsStore
	key      string
	logger   *slog.Logger
}

// NewCursorStore creates a CursorStore for key. An empty key uses DefaultSettingKey.
func NewCursorStore(settings SettingsStore, key string, logger *slog.Logger) *CursorStore {
	if key == "" {
		key = DefaultSettingKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CursorStore{settings: settings, key: key, logger: logger}
}

// Key returns the setting key the cursor lives under.
func (c *CursorStore) Key() string {
	return c.key
}

// Read returns the stored cursor, or InitialCursor if it is unset.
// A value that is not an integer is treated as unset and logged.
func (c *CursorStore) Read(ctx context.Context) (int, error) {
	raw, err := c.settings.GetSetting(ctx, c.key)
	if errors.Is(err, store.ErrSettingNotFound) {
		return InitialCursor, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCursorUnavailable, err)
	}

	n, err := decodeCursor(raw)
	if err != nil {
		c.logger.Warn("ignoring malformed rotation cursor", "key", c.key, "value", raw, "error", err)
		return InitialCursor, nil
	}
	return n, nil
}

// Write stores n as the cursor. Last writer wins.
func (c *CursorStore) Write(ctx context.Context, n int) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding cursor: %w", err)
	}
	if err := c.settings.SetSetting(ctx, c.key, string(raw)); err != nil {
		return fmt.Errorf("writing cursor: %w", err)
	}
	return nil
}

// Advance moves the cursor to the next index modulo size in one atomic store
// operation and returns the new value.
func (c *CursorStore) Advance(ctx context.Context, size int) (int, error) {
	n, err := c.settings.IncrementSettingModulo(ctx, c.key, size)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCursorUnavailable, err)
	}
	return n, nil
}

// Reset puts the cursor back to InitialCursor.
func (c *CursorStore) Reset(ctx context.Context) error {
	return c.Write(ctx, InitialCursor)
}

// NextIndex returns (cursor + 1) mod size, always in [0, size).
// A stale cursor from a larger roster, or a negative one, still lands in range.
func NextIndex(cursor, size int) int {
	if size <= 0 {
		return 0
	}
	return ((cursor+1)%size + size) % size
}

// decodeCursor accepts a JSON number or a JSON string holding an integer,
// the same rules the store applies when advancing the cursor atomically.
func decodeCursor(raw string) (int, error) {
	return store.ParseCounter(raw)
}
