package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/netra/internal/store"
)

// SamplesHandler handles HTTP requests for profile training samples.
type SamplesHandler struct {
	store *store.Store
}

// NewSamplesHandler creates a SamplesHandler over the given store.
func NewSamplesHandler(s *store.Store) *SamplesHandler {
	return &SamplesHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/profiles/{id}/samples
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[1] != "samples" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	profileID := parts[0]

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, profileID)
	case http.MethodPost:
		h.create(w, r, profileID)
	case http.MethodDelete:
		h.delete(w, r, profileID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createSamplesRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

type sampleResponse struct {
	ID          int64           `json:"id"`
	ProfileID   string          `json:"profile_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

// list handles GET /api/profiles/{id}/samples
func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request, profileID string) {
	samples, err := h.store.Samples().GetByProfileID(profileID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{
		Samples: make([]sampleResponse, 0, len(samples)),
	}
	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:          s.ID,
			ProfileID:   s.ProfileID,
			SampleIndex: s.SampleIndex,
			Data:        s.Data,
			CreatedAt:   s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/profiles/{id}/samples. It replaces the
// profile's recorded samples; training runs as a separate step.
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request, profileID string) {
	_, err := h.store.Profiles().GetByID(profileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to verify profile")
		return
	}

	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	if err := h.store.Samples().DeleteByProfileID(profileID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear old samples")
		return
	}
	if err := h.store.Samples().Create(profileID, req.Samples); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

// delete handles DELETE /api/profiles/{id}/samples
func (h *SamplesHandler) delete(w http.ResponseWriter, r *http.Request, profileID string) {
	if err := h.store.Samples().DeleteByProfileID(profileID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
