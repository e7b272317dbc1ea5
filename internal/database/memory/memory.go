// Package memory provides in-memory implementations of the store interfaces.
// Used by unit tests and by the --memory development mode of the server.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// PersonRepository is an in-memory implementation of database.PersonStore.
// Sample metadata and encodings live in two separate maps, mirroring the
// two-table layout of the PostgreSQL backend.
type PersonRepository struct {
	mu        sync.RWMutex
	order     []string // person IDs in enrollment order
	persons   map[string]database.StoredPerson
	samples   map[string][]database.StoredSample // personID -> sample metadata (no encoding)
	encodings map[string][]float32               // sampleID -> encoding
	nextID    int64

	// Error injection for tests
	CreatePersonError error
	AddSampleError    error
	ListError         error
}

// NewPersonRepository creates an empty in-memory person store.
func NewPersonRepository() *PersonRepository {
	return &PersonRepository{
		persons:   make(map[string]database.StoredPerson),
		samples:   make(map[string][]database.StoredSample),
		encodings: make(map[string][]float32),
	}
}

// CreatePerson assigns the next monotonic person ID and persists an empty record.
func (r *PersonRepository) CreatePerson(ctx context.Context, displayName string) (database.StoredPerson, error) {
	if r.CreatePersonError != nil {
		return database.StoredPerson{}, r.CreatePersonError
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	p := database.StoredPerson{
		PersonID:    fmt.Sprintf("person_%d", r.nextID),
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}
	r.persons[p.PersonID] = p
	r.order = append(r.order, p.PersonID)
	return p, nil
}

// GetPerson retrieves a person by ID, returns nil if not found.
func (r *PersonRepository) GetPerson(ctx context.Context, personID string) (*database.StoredPerson, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.persons[personID]
	if !ok {
		return nil, nil
	}
	p.SampleCount = len(r.samples[personID])
	return &p, nil
}

// ListPersons returns all persons in enrollment order.
func (r *PersonRepository) ListPersons(ctx context.Context) ([]database.StoredPerson, error) {
	if r.ListError != nil {
		return nil, r.ListError
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]database.StoredPerson, 0, len(r.order))
	for _, id := range r.order {
		p := r.persons[id]
		p.SampleCount = len(r.samples[id])
		out = append(out, p)
	}
	return out, nil
}

// DeletePerson removes a person with all samples and encodings.
func (r *PersonRepository) DeletePerson(ctx context.Context, personID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.persons[personID]; !ok {
		return false, nil
	}
	for _, s := range r.samples[personID] {
		delete(r.encodings, s.SampleID)
	}
	delete(r.samples, personID)
	delete(r.persons, personID)
	for i, id := range r.order {
		if id == personID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// AddSample persists one sample together with its encoding atomically.
func (r *PersonRepository) AddSample(ctx context.Context, sample database.StoredSample) error {
	if r.AddSampleError != nil {
		return r.AddSampleError
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.persons[sample.PersonID]; !ok {
		return fmt.Errorf("person %s does not exist", sample.PersonID)
	}

	encoding := make([]float32, len(sample.Encoding))
	copy(encoding, sample.Encoding)

	meta := sample
	meta.Encoding = nil
	r.samples[sample.PersonID] = append(r.samples[sample.PersonID], meta)
	r.encodings[sample.SampleID] = encoding
	return nil
}

// GetSamples returns all samples of a person in insertion order.
func (r *PersonRepository) GetSamples(ctx context.Context, personID string) ([]database.StoredSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.joinSamples(r.samples[personID]), nil
}

// ListSamples returns all samples across persons in enrollment order.
func (r *PersonRepository) ListSamples(ctx context.Context) ([]database.StoredSample, error) {
	if r.ListError != nil {
		return nil, r.ListError
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []database.StoredSample
	for _, id := range r.order {
		out = append(out, r.joinSamples(r.samples[id])...)
	}
	return out, nil
}

// joinSamples attaches encodings to sample metadata. Caller must hold the lock.
func (r *PersonRepository) joinSamples(metas []database.StoredSample) []database.StoredSample {
	out := make([]database.StoredSample, 0, len(metas))
	for _, m := range metas {
		m.Encoding = r.encodings[m.SampleID]
		out = append(out, m)
	}
	return out
}

// CheckIntegrity verifies every sample has an encoding and vice versa.
func (r *PersonRepository) CheckIntegrity(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	known := make(map[string]struct{})
	for _, metas := range r.samples {
		for _, m := range metas {
			known[m.SampleID] = struct{}{}
			if _, ok := r.encodings[m.SampleID]; !ok {
				return fmt.Errorf("sample %s has no encoding: %w", m.SampleID, database.ErrStoreIntegrity)
			}
		}
	}
	for sampleID := range r.encodings {
		if _, ok := known[sampleID]; !ok {
			return fmt.Errorf("encoding %s references no sample: %w", sampleID, database.ErrStoreIntegrity)
		}
	}
	return nil
}

// DropEncoding removes an encoding row without touching the sample row,
// leaving the store in a corrupted state. Test helper for integrity checks.
func (r *PersonRepository) DropEncoding(sampleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.encodings, sampleID)
}

// InjectEncoding adds an encoding row that references no sample.
// Test helper for integrity checks.
func (r *PersonRepository) InjectEncoding(sampleID string, encoding []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encodings[sampleID] = encoding
}

// AttendanceRepository is an in-memory implementation of database.AttendanceStore.
// A single mutex covers the read-modify-write in Apply, which is the
// serialization discipline the interface demands.
type AttendanceRepository struct {
	mu   sync.Mutex
	days map[string]map[string]database.AttendanceRecord // day -> personID -> record

	// Error injection for tests
	ApplyError error
	ListError  error
}

// NewAttendanceRepository creates an empty in-memory attendance store.
func NewAttendanceRepository() *AttendanceRepository {
	return &AttendanceRepository{
		days: make(map[string]map[string]database.AttendanceRecord),
	}
}

// Apply records a sighting atomically.
func (r *AttendanceRepository) Apply(ctx context.Context, personID, displayName, day string, at time.Time) (database.AttendanceRecord, error) {
	if r.ApplyError != nil {
		return database.AttendanceRecord{}, r.ApplyError
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ledger, ok := r.days[day]
	if !ok {
		ledger = make(map[string]database.AttendanceRecord)
		r.days[day] = ledger
	}

	rec, ok := ledger[personID]
	if !ok {
		rec = database.AttendanceRecord{
			PersonID:    personID,
			DisplayName: displayName,
			Day:         day,
			FirstSeen:   at,
			LastSeen:    at,
		}
	} else {
		rec.DisplayName = displayName
		rec.LastSeen = at
		if rec.LastSeen.Before(rec.FirstSeen) {
			rec.LastSeen = rec.FirstSeen
		}
	}
	ledger[personID] = rec
	return rec, nil
}

// Get retrieves the record for a person on a day, returns nil if not found.
func (r *AttendanceRepository) Get(ctx context.Context, day, personID string) (*database.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.days[day][personID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// ListByDay returns all records for a day ordered by first_seen, then person ID.
func (r *AttendanceRepository) ListByDay(ctx context.Context, day string) ([]database.AttendanceRecord, error) {
	if r.ListError != nil {
		return nil, r.ListError
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ledger := r.days[day]
	out := make([]database.AttendanceRecord, 0, len(ledger))
	for _, rec := range ledger {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].FirstSeen.Before(out[j].FirstSeen)
		}
		return out[i].PersonID < out[j].PersonID
	})
	return out, nil
}
