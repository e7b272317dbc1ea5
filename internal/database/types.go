package database

import (
	"time"
)

// StoredPerson represents an enrolled person.
type StoredPerson struct {
	PersonID    string
	DisplayName string
	SampleCount int
	CreatedAt   time.Time
}

// StoredSample represents one reference face sample of a person together
// with its encoding. The encoding is an opaque fixed-length vector produced
// by the face embedding service; nothing in this codebase inspects it beyond
// its dimension.
type StoredSample struct {
	SampleID   string
	PersonID   string
	SourcePath string
	Encoding   []float32
	Dim        int
	Model      string
	CreatedAt  time.Time
}

// AttendanceRecord is the single per-person record for one calendar day.
// FirstSeen is anchored by the earliest sighting of the day and never moves;
// LastSeen rolls forward with every subsequent sighting.
type AttendanceRecord struct {
	PersonID    string
	DisplayName string
	Day         string // calendar date, "2006-01-02"
	FirstSeen   time.Time
	LastSeen    time.Time
}

// Duration returns the elapsed time between first and last sighting.
// It is always derived from the two timestamps, never stored.
func (r AttendanceRecord) Duration() time.Duration {
	return r.LastSeen.Sub(r.FirstSeen)
}

// DayFormat is the layout used for attendance day keys.
const DayFormat = "2006-01-02"

// EncodingDim is the fixed dimension for face encodings (512 for buffalo_l/ResNet100).
const EncodingDim = 512
