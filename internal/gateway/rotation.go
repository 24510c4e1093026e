// ABOUTME: HTTP handlers for inspecting and resetting the lead rotation
// ABOUTME: GET /api/rotation reports roster and cursor; POST /api/rotation/reset is admin-only

package gateway

import (
	"net/http"

	"github.com/2389/brokerage-crm/internal/auth"
	"github.com/2389/brokerage-crm/internal/rotation"
)

// RotationStatusResponse is the JSON response for GET /api/rotation.
type RotationStatusResponse struct {
	Mode   string           `json:"mode"`
	Roster []rotation.Agent `json:"roster"`
	Cursor int              `json:"cursor"`
	Next   *rotation.Agent  `json:"next"`
}

// handleRotationStatus handles GET /api/rotation.
func (g *Gateway) handleRotationStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	st, err := g.engine.Status(r.Context())
	if err != nil {
		g.logger.Error("failed to read rotation status", "error", err)
		g.sendAssignmentError(w, err)
		return
	}

	roster := st.Roster
	if roster == nil {
		roster = []rotation.Agent{}
	}
	g.writeJSON(w, http.StatusOK, RotationStatusResponse{
		Mode:   string(st.Mode),
		Roster: roster,
		Cursor: st.Cursor,
		Next:   st.Next,
	})
}

// handleRotationReset handles POST /api/rotation/reset.
func (g *Gateway) handleRotationReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := g.engine.ResetCursor(r.Context()); err != nil {
		g.logger.Error("failed to reset rotation cursor", "error", err)
		g.sendAssignmentError(w, err)
		return
	}

	if a := auth.FromContext(r.Context()); a != nil {
		g.logger.Info("rotation reset requested", "user", a.UserID, "role", a.Role)
	}
	w.WriteHeader(http.StatusNoContent)
}
