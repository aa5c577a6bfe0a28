package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/netra/internal/calibration"
)

// CalibrationHandler drives the guided calibration procedure. Sample
// collection itself happens in the pipeline; this API starts and stops the
// run and reports which target the UI should display.
type CalibrationHandler struct {
	manager *calibration.Manager
}

// NewCalibrationHandler creates a CalibrationHandler over the given manager.
func NewCalibrationHandler(m *calibration.Manager) *CalibrationHandler {
	return &CalibrationHandler{manager: m}
}

// ServeHTTP routes calibration requests.
// Expected paths: /api/calibration/begin, /api/calibration/abort,
// /api/calibration/status
func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	op := strings.TrimPrefix(r.URL.Path, "/api/calibration/")

	switch op {
	case "begin":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.begin(w, r)
	case "abort":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.abort(w, r)
	case "status":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.status(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type calibrationStatusResponse struct {
	State       string              `json:"state"`
	Target      *calibration.Target `json:"target,omitempty"`
	TargetIndex int                 `json:"target_index"`
	Collected   int                 `json:"collected"`
	Required    int                 `json:"required"`
	Residual    float64             `json:"residual,omitempty"`
	Calibrated  bool                `json:"calibrated"`
}

// begin handles POST /api/calibration/begin.
func (h *CalibrationHandler) begin(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Begin(); err != nil {
		if errors.Is(err, calibration.ErrAlreadyCalibrating) {
			writeError(w, http.StatusConflict, "Calibration already in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to start calibration")
		return
	}

	h.status(w, r)
}

// abort handles POST /api/calibration/abort.
func (h *CalibrationHandler) abort(w http.ResponseWriter, r *http.Request) {
	h.manager.Abort()
	h.status(w, r)
}

// status handles GET /api/calibration/status.
func (h *CalibrationHandler) status(w http.ResponseWriter, r *http.Request) {
	resp := calibrationStatusResponse{
		State: string(h.manager.State()),
	}

	if target, index, err := h.manager.CurrentTarget(); err == nil {
		resp.Target = &target
		resp.TargetIndex = index
	}
	_, resp.Collected, resp.Required = h.manager.Progress()

	if model := h.manager.Active(); model != nil {
		resp.Calibrated = true
		resp.Residual = model.Residual
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
