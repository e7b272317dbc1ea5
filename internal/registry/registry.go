// Package registry owns the mapping from person identity to stored face
// samples and encodings. It is the single write path to the person store
// and the source of the training data the matcher consumes.
package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/encoder"
	"github.com/kozaktomas/attendance/internal/matcher"
)

// FaceEncoder detects faces and computes their encodings.
// Satisfied by encoder.Client; tests use a stub.
type FaceEncoder interface {
	DetectFaces(ctx context.Context, imageData []byte) (*encoder.FaceResponse, error)
	Model() string
}

// Registry manages enrolled persons and their face samples.
// Mutations serialize with each other and with ExportTrainingSet; the face
// detector is called outside the lock since it may be slow.
type Registry struct {
	mu    sync.Mutex
	store database.PersonStore
	enc   FaceEncoder
}

// New creates a registry over the given store and face encoder.
func New(store database.PersonStore, enc FaceEncoder) *Registry {
	return &Registry{store: store, enc: enc}
}

// Enroll registers a new person and returns the assigned person ID.
func (g *Registry) Enroll(ctx context.Context, displayName string) (string, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return "", ErrInvalidName
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := g.store.CreatePerson(ctx, displayName)
	if err != nil {
		return "", fmt.Errorf("enrolling %q: %w", displayName, err)
	}
	return p.PersonID, nil
}

// AddSample extracts a face encoding from the image and appends it to the
// person's samples. The image is discarded unless exactly the encoding was
// successfully extracted: a failed detection leaves no partial state behind.
// Only the primary (highest-score) face is kept when several are present.
func (g *Registry) AddSample(ctx context.Context, personID string, imageData []byte, sourceName string) (string, error) {
	p, err := g.store.GetPerson(ctx, personID)
	if err != nil {
		return "", fmt.Errorf("looking up person %s: %w", personID, err)
	}
	if p == nil {
		return "", ErrPersonNotFound
	}

	// Detector call runs outside the registry lock; it may be slow.
	resp, err := g.enc.DetectFaces(ctx, imageData)
	if err != nil {
		return "", err
	}

	face := resp.PrimaryFace()
	if face == nil {
		return "", ErrNoFaceDetected
	}

	sample := database.StoredSample{
		SampleID:   uuid.New().String(),
		PersonID:   personID,
		SourcePath: sourceName,
		Encoding:   face.Embedding,
		Dim:        len(face.Embedding),
		Model:      resp.Model,
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Re-check under the lock; the person may have been removed while the
	// detector was running.
	p, err = g.store.GetPerson(ctx, personID)
	if err != nil {
		return "", fmt.Errorf("looking up person %s: %w", personID, err)
	}
	if p == nil {
		return "", ErrPersonNotFound
	}

	if err := g.store.AddSample(ctx, sample); err != nil {
		return "", fmt.Errorf("persisting sample for %s: %w", personID, err)
	}
	return sample.SampleID, nil
}

// Remove deletes a person with all samples and encodings. The caller must
// retrain the matcher afterwards; the trained model still contains the
// removed person's encodings until it does.
func (g *Registry) Remove(ctx context.Context, personID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	deleted, err := g.store.DeletePerson(ctx, personID)
	if err != nil {
		return fmt.Errorf("removing person %s: %w", personID, err)
	}
	if !deleted {
		return ErrPersonNotFound
	}
	return nil
}

// ListPersons returns all enrolled persons in enrollment order.
func (g *Registry) ListPersons(ctx context.Context) ([]database.StoredPerson, error) {
	return g.store.ListPersons(ctx)
}

// ExportTrainingSet flattens all persons' samples into parallel slices for
// matcher training. Persons with zero samples contribute nothing and are
// therefore silently excluded from matching.
func (g *Registry) ExportTrainingSet(ctx context.Context) (matcher.TrainingSet, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	persons, err := g.store.ListPersons(ctx)
	if err != nil {
		return matcher.TrainingSet{}, fmt.Errorf("listing persons: %w", err)
	}
	names := make(map[string]string, len(persons))
	for _, p := range persons {
		names[p.PersonID] = p.DisplayName
	}

	samples, err := g.store.ListSamples(ctx)
	if err != nil {
		return matcher.TrainingSet{}, fmt.Errorf("listing samples: %w", err)
	}

	set := matcher.TrainingSet{
		Encodings: make([][]float32, 0, len(samples)),
		Labels:    make([]string, 0, len(samples)),
		Names:     make([]string, 0, len(samples)),
	}
	for _, s := range samples {
		set.Encodings = append(set.Encodings, s.Encoding)
		set.Labels = append(set.Labels, s.PersonID)
		set.Names = append(set.Names, names[s.PersonID])
	}
	return set, nil
}
