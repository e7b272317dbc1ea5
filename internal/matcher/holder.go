package matcher

import (
	"context"
	"fmt"
	"sync/atomic"
)

// TrainingSource exports the current enrollment data for training.
// Implemented by the person registry.
type TrainingSource interface {
	ExportTrainingSet(ctx context.Context) (TrainingSet, error)
}

// ModelHolder publishes the current trained model. Rebuild trains a fresh
// model and swaps the pointer; readers that grabbed the old model keep
// using it, so recognition never blocks on training and never observes a
// half-built model.
type ModelHolder struct {
	current   atomic.Pointer[TrainedModel]
	tolerance float64
}

// NewModelHolder creates a holder with no model loaded.
func NewModelHolder(tolerance float64) *ModelHolder {
	return &ModelHolder{tolerance: tolerance}
}

// Current returns the latest trained model, or nil if none was built yet.
func (h *ModelHolder) Current() *TrainedModel {
	return h.current.Load()
}

// Rebuild exports the training set from the source and trains a new model.
// The export is the only step that touches the source's lock; training runs
// on a private copy of the data.
func (h *ModelHolder) Rebuild(ctx context.Context, src TrainingSource) (*TrainedModel, error) {
	set, err := src.ExportTrainingSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting training set: %w", err)
	}

	model, err := Train(set, h.tolerance)
	if err != nil {
		return nil, fmt.Errorf("training model: %w", err)
	}

	h.current.Store(model)
	return model, nil
}

// Recognize classifies a probe against the current model.
// Returns ErrModelNotReady when no trained model is available.
func (h *ModelHolder) Recognize(probe []float32) (Match, bool, error) {
	model := h.current.Load()
	if !model.Trained() {
		return Match{}, false, ErrModelNotReady
	}
	match, ok := model.Recognize(probe)
	return match, ok, nil
}
