package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/attendance/internal/matcher"
	"github.com/kozaktomas/attendance/internal/registry"
)

// ModelHandler handles model training and status endpoints.
type ModelHandler struct {
	registry *registry.Registry
	holder   *matcher.ModelHolder
}

// NewModelHandler creates a new model handler.
func NewModelHandler(reg *registry.Registry, holder *matcher.ModelHolder) *ModelHandler {
	return &ModelHandler{registry: reg, holder: holder}
}

type modelStatusResponse struct {
	Trained   bool      `json:"trained"`
	Version   int64     `json:"version"`
	BuiltAt   time.Time `json:"built_at,omitzero"`
	Encodings int       `json:"encodings"`
	Persons   int       `json:"persons"`
	Tolerance float64   `json:"tolerance"`
}

// Train handles POST /api/v1/train. It rebuilds the model from the current
// enrollment data and returns the new model's stats.
func (h *ModelHandler) Train(w http.ResponseWriter, r *http.Request) {
	model, err := h.holder.Rebuild(r.Context(), h.registry)
	if err != nil {
		log.Printf("Model training failed: %v", err)
		respondDomainError(w, err)
		return
	}

	log.Printf("Trained model v%d: %d encodings, %d persons", model.Version(), model.Size(), model.Persons())
	respondJSON(w, http.StatusOK, statusFor(model))
}

// Status handles GET /api/v1/model/status.
func (h *ModelHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, statusFor(h.holder.Current()))
}

func statusFor(model *matcher.TrainedModel) modelStatusResponse {
	return modelStatusResponse{
		Trained:   model.Trained(),
		Version:   model.Version(),
		BuiltAt:   model.BuiltAt(),
		Encodings: model.Size(),
		Persons:   model.Persons(),
		Tolerance: model.Tolerance(),
	}
}
