package handlers

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/matcher"
	"github.com/kozaktomas/attendance/internal/registry"
)

// maxSampleUploadSize limits enrollment image uploads (32 MB).
const maxSampleUploadSize = 32 << 20

// PersonsHandler handles person enrollment endpoints.
type PersonsHandler struct {
	registry *registry.Registry
	holder   *matcher.ModelHolder
}

// NewPersonsHandler creates a new persons handler.
func NewPersonsHandler(reg *registry.Registry, holder *matcher.ModelHolder) *PersonsHandler {
	return &PersonsHandler{registry: reg, holder: holder}
}

type personResponse struct {
	PersonID    string    `json:"person_id"`
	DisplayName string    `json:"display_name"`
	SampleCount int       `json:"sample_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func toPersonResponse(p database.StoredPerson) personResponse {
	return personResponse{
		PersonID:    p.PersonID,
		DisplayName: p.DisplayName,
		SampleCount: p.SampleCount,
		CreatedAt:   p.CreatedAt,
	}
}

// List handles GET /api/v1/persons.
func (h *PersonsHandler) List(w http.ResponseWriter, r *http.Request) {
	persons, err := h.registry.ListPersons(r.Context())
	if err != nil {
		log.Printf("Failed to list persons: %v", err)
		respondDomainError(w, err)
		return
	}

	out := make([]personResponse, 0, len(persons))
	for _, p := range persons {
		out = append(out, toPersonResponse(p))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"persons": out,
		"count":   len(out),
	})
}

// Enroll handles POST /api/v1/persons.
func (h *PersonsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	personID, err := h.registry.Enroll(r.Context(), req.DisplayName)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	log.Printf("Enrolled person %s (%s)", personID, sanitizeForLog(req.DisplayName))
	respondJSON(w, http.StatusCreated, map[string]string{
		"person_id":    personID,
		"display_name": req.DisplayName,
	})
}

// Remove handles DELETE /api/v1/persons/{id}. The trained model keeps
// matching the removed person until it is rebuilt, so a rebuild is kicked
// off right away.
func (h *PersonsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "id")

	if err := h.registry.Remove(r.Context(), personID); err != nil {
		respondDomainError(w, err)
		return
	}

	h.rebuild(r)
	log.Printf("Removed person %s", sanitizeForLog(personID))
	respondJSON(w, http.StatusOK, map[string]string{"person_id": personID})
}

// UploadSample handles POST /api/v1/persons/{id}/samples. The multipart
// "file" part carries the enrollment image; the encoding is extracted and
// the model rebuilt so the new sample takes effect immediately.
func (h *PersonsHandler) UploadSample(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(maxSampleUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file in request")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read uploaded file")
		return
	}

	sampleID, err := h.registry.AddSample(r.Context(), personID, imageData, header.Filename)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	h.rebuild(r)
	log.Printf("Added sample %s for person %s", sampleID, sanitizeForLog(personID))
	respondJSON(w, http.StatusCreated, map[string]string{
		"sample_id": sampleID,
		"person_id": personID,
	})
}

// rebuild retrains the model after an enrollment change. A rebuild failure
// is logged, not surfaced; the enrollment change itself already succeeded
// and the previous model stays in service.
func (h *PersonsHandler) rebuild(r *http.Request) {
	if _, err := h.holder.Rebuild(r.Context(), h.registry); err != nil {
		log.Printf("Warning: model rebuild after enrollment change failed: %v", err)
	}
}
