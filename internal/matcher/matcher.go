// Package matcher turns labeled face encodings into an immutable trained
// model and classifies probe encodings against it. Models are explicit
// versioned values: training produces a new model, readers keep using the
// old one until the holder swaps the pointer.
package matcher

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/coder/hnsw"
)

// ErrModelNotReady signals that recognition was attempted before any
// training produced a usable model.
var ErrModelNotReady = errors.New("recognition model not trained yet")

// HNSWMaxNeighbors is the M parameter of the HNSW graph.
const HNSWMaxNeighbors = 16

// TrainingSet is the flattened enrollment data the registry exports.
// The three slices are parallel: entry i is one encoding of person Labels[i]
// with display name Names[i].
type TrainingSet struct {
	Encodings [][]float32
	Labels    []string
	Names     []string
}

// Match is a positive recognition result.
type Match struct {
	PersonID    string
	DisplayName string
	Distance    float64
}

// TrainedModel is an immutable trained matcher state. All fields are set at
// build time; concurrent Recognize calls need no locking.
type TrainedModel struct {
	version   int64
	builtAt   time.Time
	tolerance float64
	dim       int
	graph     *hnsw.Graph[int]
	labels    []string
	names     []string
	encodings [][]float32
}

// modelVersion is a process-wide counter so every trained model gets a
// distinct, increasing version.
var modelVersion atomic.Int64

// Train builds a new model from the training set. An empty set yields a
// valid but untrained model (Trained reports false). Tolerance is the
// maximum cosine distance that still counts as a match.
func Train(set TrainingSet, tolerance float64) (*TrainedModel, error) {
	if len(set.Encodings) != len(set.Labels) || len(set.Labels) != len(set.Names) {
		return nil, fmt.Errorf(
			"training set slices must be parallel: %d encodings, %d labels, %d names",
			len(set.Encodings), len(set.Labels), len(set.Names),
		)
	}

	m := &TrainedModel{
		version:   modelVersion.Add(1),
		builtAt:   time.Now(),
		tolerance: tolerance,
	}

	if len(set.Encodings) == 0 {
		return m, nil
	}

	g := hnsw.NewGraph[int]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance

	dim := len(set.Encodings[0])
	for i, enc := range set.Encodings {
		if len(enc) != dim {
			return nil, fmt.Errorf("encoding %d has dimension %d, want %d", i, len(enc), dim)
		}
		g.Add(hnsw.MakeNode(i, enc))
	}

	m.dim = dim
	m.graph = g
	m.labels = set.Labels
	m.names = set.Names
	m.encodings = set.Encodings
	return m, nil
}

// Recognize finds the nearest trained encoding to the probe. The second
// return value is false when nothing lies within the tolerance; a no-match
// is a normal outcome, not an error.
func (m *TrainedModel) Recognize(probe []float32) (Match, bool) {
	if m == nil || m.graph == nil || len(probe) != m.dim {
		return Match{}, false
	}

	neighbors := m.graph.Search(probe, 1)
	if len(neighbors) == 0 {
		return Match{}, false
	}

	idx := neighbors[0].Key
	// Recompute the exact distance; the graph's internal distances are
	// approximate for pruned candidates.
	dist := CosineDistance(probe, m.encodings[idx])
	if dist > m.tolerance {
		return Match{}, false
	}

	return Match{
		PersonID:    m.labels[idx],
		DisplayName: m.names[idx],
		Distance:    dist,
	}, true
}

// Trained reports whether the model holds at least one encoding.
func (m *TrainedModel) Trained() bool {
	return m != nil && m.graph != nil
}

// Version returns the model's build version.
func (m *TrainedModel) Version() int64 {
	if m == nil {
		return 0
	}
	return m.version
}

// BuiltAt returns the model's build time.
func (m *TrainedModel) BuiltAt() time.Time {
	if m == nil {
		return time.Time{}
	}
	return m.builtAt
}

// Size returns the number of trained encodings.
func (m *TrainedModel) Size() int {
	if m == nil {
		return 0
	}
	return len(m.labels)
}

// Persons returns the number of distinct persons in the model.
func (m *TrainedModel) Persons() int {
	if m == nil {
		return 0
	}
	seen := make(map[string]struct{}, len(m.labels))
	for _, l := range m.labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}

// Tolerance returns the match tolerance the model was built with.
func (m *TrainedModel) Tolerance() float64 {
	if m == nil {
		return 0
	}
	return m.tolerance
}
