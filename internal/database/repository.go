package database

import (
	"context"
	"time"
)

// PersonStore provides access to enrolled persons and their face samples.
// Sample writes must be atomic: a sample row and its encoding either both
// exist or neither does.
type PersonStore interface {
	// CreatePerson persists a new person and assigns the next monotonic person ID.
	CreatePerson(ctx context.Context, displayName string) (StoredPerson, error)
	// GetPerson retrieves a person by ID, returns nil if not found.
	GetPerson(ctx context.Context, personID string) (*StoredPerson, error)
	// ListPersons returns all persons in enrollment order.
	ListPersons(ctx context.Context) ([]StoredPerson, error)
	// DeletePerson removes a person with all samples and encodings.
	// Returns false if the person did not exist.
	DeletePerson(ctx context.Context, personID string) (bool, error)
	// AddSample persists one sample together with its encoding.
	AddSample(ctx context.Context, sample StoredSample) error
	// GetSamples returns all samples of a person in insertion order.
	GetSamples(ctx context.Context, personID string) ([]StoredSample, error)
	// ListSamples returns all samples across persons, ordered by person
	// enrollment order then sample insertion order.
	ListSamples(ctx context.Context) ([]StoredSample, error)
	// CheckIntegrity verifies the referential invariant between the sample
	// table and the encoding table. A violation is returned as
	// ErrStoreIntegrity and must halt further writes, not be repaired.
	CheckIntegrity(ctx context.Context) error
}

// AttendanceStore provides per-day attendance records.
// Apply must be atomic per (personID, day): concurrent sightings for the same
// person and day serialize so that no update is lost and readers only ever
// observe the pre-event or post-event record.
type AttendanceStore interface {
	// Apply records a sighting: inserts a new record with
	// first_seen = last_seen = at, or rolls last_seen forward on an existing
	// record. first_seen is never modified once set.
	Apply(ctx context.Context, personID, displayName, day string, at time.Time) (AttendanceRecord, error)
	// Get retrieves the record for a person on a day, returns nil if not found.
	Get(ctx context.Context, day, personID string) (*AttendanceRecord, error)
	// ListByDay returns all records for a day ordered by first_seen.
	ListByDay(ctx context.Context, day string) ([]AttendanceRecord, error)
}
