// ABOUTME: Error taxonomy for round-robin lead assignment
// ABOUTME: Sentinels map to HTTP status codes; ValidationError carries the offending field

package rotation

import (
	"errors"
	"fmt"
)

var (
	// ErrRosterUnavailable is returned when the rotation roster cannot be read.
	ErrRosterUnavailable = errors.New("failed to fetch team members")

	// ErrNoEligibleAgents is returned when no active member is in lead rotation.
	ErrNoEligibleAgents = errors.New("no active team members in lead rotation")

	// ErrCursorUnavailable is returned when the rotation cursor cannot be read or advanced.
	ErrCursorUnavailable = errors.New("failed to read rotation cursor")

	// ErrLeadUpdateFailed is returned when the target lead is missing or its write fails.
	ErrLeadUpdateFailed = errors.New("failed to update lead")

	// ErrLogsUnavailable is returned when the communication logs cannot be read or none match.
	ErrLogsUnavailable = errors.New("failed to fetch communication logs")
)

// ValidationError reports a malformed assignment request.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var (
	errRequired = errors.New("is required")
	errEmpty    = errors.New("must not be empty")
)

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// errorReason maps err to the metrics "reason" label.
func errorReason(err error) string {
	switch {
	case IsValidation(err):
		return "validation"
	case errors.Is(err, ErrRosterUnavailable):
		return "roster_unavailable"
	case errors.Is(err, ErrNoEligibleAgents):
		return "no_eligible_agents"
	case errors.Is(err, ErrCursorUnavailable):
		return "cursor_unavailable"
	case errors.Is(err, ErrLeadUpdateFailed):
		return "lead_update_failed"
	case errors.Is(err, ErrLogsUnavailable):
		return "logs_unavailable"
	default:
		return "other"
	}
}
