// Package api provides the HTTP API handlers for profiles, samples,
// action bindings and calibration control.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/netra/internal/gesture"
	"github.com/ayusman/netra/internal/landmark"
	"github.com/ayusman/netra/internal/store"
)

// ProfilesHandler handles HTTP requests for gesture profile resources.
type ProfilesHandler struct {
	store *store.Store
	// OnChange, if set, is called after a profile is trained, updated or
	// deleted so the live classifier can reload.
	OnChange func()
}

// NewProfilesHandler creates a ProfilesHandler over the given store.
func NewProfilesHandler(s *store.Store) *ProfilesHandler {
	return &ProfilesHandler{store: s}
}

// ServeHTTP routes profile requests.
// Expected paths: /api/profiles, /api/profiles/{id}, /api/profiles/{id}/train
func (h *ProfilesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if id, ok := strings.CutSuffix(path, "/train"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.train(w, r, id)
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type createProfileRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type updateProfileRequest struct {
	Name      string  `json:"name"`
	Threshold float64 `json:"threshold"`
}

type profileResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Threshold float64 `json:"threshold"`
	Samples   int     `json:"samples"`
	Trained   bool    `json:"trained"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toProfileResponse(p *store.Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		Name:      p.Name,
		Type:      string(p.Type),
		Threshold: p.Threshold,
		Samples:   p.Samples,
		Trained:   len(p.Data) > 0 && string(p.Data) != "null",
		CreatedAt: p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/profiles.
func (h *ProfilesHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	response := listProfilesResponse{
		Profiles: make([]profileResponse, 0, len(profiles)),
	}
	for _, p := range profiles {
		response.Profiles = append(response.Profiles, toProfileResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/profiles/{id}.
func (h *ProfilesHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// create handles POST /api/profiles.
func (h *ProfilesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	profileType := store.ProfileType(req.Type)
	if profileType == "" {
		profileType = store.ProfileTypeStatic
	}
	if profileType != store.ProfileTypeStatic && profileType != store.ProfileTypePath {
		writeError(w, http.StatusBadRequest, "Invalid profile type")
		return
	}

	p := &store.Profile{
		ID:   uuid.New().String(),
		Name: req.Name,
		Type: profileType,
		Data: json.RawMessage("null"),
	}

	if err := h.store.Profiles().Create(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create profile")
		return
	}

	writeJSON(w, http.StatusCreated, toProfileResponse(p))
}

// update handles PUT /api/profiles/{id}.
func (h *ProfilesHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Threshold != 0 {
		p.Threshold = req.Threshold
	}

	if err := h.store.Profiles().Update(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	h.notifyChange()
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// delete handles DELETE /api/profiles/{id}.
func (h *ProfilesHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Profiles().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete profile")
		return
	}

	h.notifyChange()
	w.WriteHeader(http.StatusNoContent)
}

// train handles POST /api/profiles/{id}/train: it runs the trainer over the
// profile's recorded samples and stores the resulting reference and
// threshold.
func (h *ProfilesHandler) train(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	samples, err := h.store.Samples().GetByProfileID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load samples")
		return
	}

	trainer := gesture.NewTrainer(0)

	switch p.Type {
	case store.ProfileTypePath:
		err = h.trainPath(trainer, p, samples)
	default:
		err = h.trainStatic(trainer, p, samples)
	}
	if err != nil {
		if errors.Is(err, gesture.ErrInsufficientSamples) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Training failed")
		return
	}

	if err := h.store.Profiles().Update(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save trained profile")
		return
	}

	h.notifyChange()
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

func (h *ProfilesHandler) trainStatic(trainer *gesture.Trainer, p *store.Profile, samples []store.Sample) error {
	var frames []*landmark.Frame
	for _, s := range samples {
		var f landmark.Frame
		if err := json.Unmarshal(s.Data, &f); err != nil {
			continue
		}
		frames = append(frames, &f)
	}

	trained, err := trainer.Train(p.Name, frames)
	if err != nil {
		return err
	}

	data, err := json.Marshal(trained.Descriptor)
	if err != nil {
		return err
	}
	p.Data = data
	p.Threshold = trained.Threshold
	return nil
}

func (h *ProfilesHandler) trainPath(trainer *gesture.Trainer, p *store.Profile, samples []store.Sample) error {
	var paths [][]gesture.PathPoint
	for _, s := range samples {
		var path []gesture.PathPoint
		if err := json.Unmarshal(s.Data, &path); err != nil {
			continue
		}
		paths = append(paths, path)
	}

	trained, err := trainer.TrainPath(p.Name, paths)
	if err != nil {
		return err
	}

	data, err := json.Marshal(trained.Path)
	if err != nil {
		return err
	}
	p.Data = data
	p.Threshold = trained.Threshold
	return nil
}

func (h *ProfilesHandler) notifyChange() {
	if h.OnChange != nil {
		h.OnChange()
	}
}
