package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/quantfall/trademasterx/internal/domain"
)

// ControlHandler exposes the orchestrator's RUN/PAUSE switch. The trading
// loop reads the same control source at every cycle boundary, so a POST
// takes effect before the next cycle starts.
type ControlHandler struct {
	control domain.ControlSource
	logger  *slog.Logger
}

// NewControlHandler creates a ControlHandler over the given control source.
func NewControlHandler(control domain.ControlSource, logger *slog.Logger) *ControlHandler {
	return &ControlHandler{control: control, logger: logger}
}

type controlRequest struct {
	State string `json:"state"`
}

// GetState returns the current control state.
// GET /api/control
func (h *ControlHandler) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.control.State(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "read control state failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read control state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": string(state)})
}

// SetState switches the control state to RUN or PAUSE.
// POST /api/control {"state": "PAUSE"}
func (h *ControlHandler) SetState(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	state := domain.ControlState(strings.ToUpper(strings.TrimSpace(req.State)))
	if state != domain.ControlRun && state != domain.ControlPause {
		writeError(w, http.StatusBadRequest, `state must be "RUN" or "PAUSE"`)
		return
	}

	if err := h.control.Set(r.Context(), state); err != nil {
		h.logger.ErrorContext(r.Context(), "set control state failed",
			slog.String("state", string(state)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to set control state")
		return
	}

	h.logger.InfoContext(r.Context(), "control state changed",
		slog.String("state", string(state)),
	)
	writeJSON(w, http.StatusOK, map[string]string{"state": string(state)})
}
