// Package attendance turns independent recognition events into one coherent
// per-day, per-person check-in/check-out record. Repeated sightings of the
// same person collapse into a single record: the first sighting of the day
// anchors first_seen, every later one rolls last_seen forward, and the
// duration is always derived from the two timestamps.
package attendance

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// ErrInvalidInput signals a malformed timestamp, date or person reference.
// The ledger is left untouched in that case.
var ErrInvalidInput = errors.New("invalid input")

// Ledger applies sightings and answers log and statistics queries.
// All serialization lives in the store: Apply is atomic per (person, day),
// so the ledger itself holds no locks and sightings on different days never
// contend.
type Ledger struct {
	store database.AttendanceStore
	now   func() time.Time
}

// NewLedger creates a ledger over the given attendance store.
func NewLedger(store database.AttendanceStore) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Stats summarizes one day's attendance. This core counts distinct records,
// not raw sighting calls: repeated sightings of one person fold into one
// record, so TotalMarked equals the record count for the day.
type Stats struct {
	Date         string    `json:"date"`
	TotalPresent int       `json:"total_present"`
	TotalMarked  int       `json:"total_marked"`
	Persons      []string  `json:"unique_persons"`
	LastUpdated  time.Time `json:"last_updated"`
}

// RecordSighting applies one recognition event. The first sighting of a
// person on a calendar day creates the record with first_seen = last_seen;
// every subsequent sighting only moves last_seen. first_seen is never
// modified once set. A valid tuple never fails; malformed input fails with
// ErrInvalidInput before the store is touched.
func (l *Ledger) RecordSighting(ctx context.Context, personID, displayName string, at time.Time) (database.AttendanceRecord, error) {
	if personID == "" {
		return database.AttendanceRecord{}, fmt.Errorf("%w: empty person id", ErrInvalidInput)
	}
	if at.IsZero() {
		return database.AttendanceRecord{}, fmt.Errorf("%w: zero timestamp", ErrInvalidInput)
	}

	day := at.Format(database.DayFormat)
	rec, err := l.store.Apply(ctx, personID, displayName, day, at)
	if err != nil {
		return database.AttendanceRecord{}, fmt.Errorf("applying sighting: %w", err)
	}
	return rec, nil
}

// Query returns the records for a day, optionally filtered to one person.
// The person filter matches the person ID exactly or the display name after
// normalization. An empty day defaults to today in the server's local
// timezone. No matching records is an empty result, not an error.
func (l *Ledger) Query(ctx context.Context, day, person string) ([]database.AttendanceRecord, error) {
	day, err := l.resolveDay(day)
	if err != nil {
		return nil, err
	}

	records, err := l.store.ListByDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("listing day %s: %w", day, err)
	}

	if person == "" {
		return records, nil
	}

	wanted := NormalizePersonName(person)
	filtered := make([]database.AttendanceRecord, 0, len(records))
	for _, rec := range records {
		if rec.PersonID == person || NormalizePersonName(rec.DisplayName) == wanted {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// Statistics summarizes one day's attendance.
func (l *Ledger) Statistics(ctx context.Context, day string) (Stats, error) {
	day, err := l.resolveDay(day)
	if err != nil {
		return Stats{}, err
	}

	records, err := l.store.ListByDay(ctx, day)
	if err != nil {
		return Stats{}, fmt.Errorf("listing day %s: %w", day, err)
	}

	seen := make(map[string]struct{}, len(records))
	persons := make([]string, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.PersonID]; !ok {
			seen[rec.PersonID] = struct{}{}
			persons = append(persons, rec.DisplayName)
		}
	}

	return Stats{
		Date:         day,
		TotalPresent: len(seen),
		TotalMarked:  len(records),
		Persons:      persons,
		LastUpdated:  l.now(),
	}, nil
}

// ExportCSV writes one day's records as a delimited read-only view with
// columns person_name, first_seen, last_seen, duration.
func (l *Ledger) ExportCSV(ctx context.Context, day string, w io.Writer) error {
	day, err := l.resolveDay(day)
	if err != nil {
		return err
	}

	records, err := l.store.ListByDay(ctx, day)
	if err != nil {
		return fmt.Errorf("listing day %s: %w", day, err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"person_name", "first_seen", "last_seen", "duration"}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.DisplayName,
			rec.FirstSeen.Format(time.RFC3339),
			rec.LastSeen.Format(time.RFC3339),
			FormatDuration(rec.Duration()),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return nil
}

// resolveDay validates a day string, defaulting to today when empty.
func (l *Ledger) resolveDay(day string) (string, error) {
	if day == "" {
		return l.now().Format(database.DayFormat), nil
	}
	if _, err := time.Parse(database.DayFormat, day); err != nil {
		return "", fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, day)
	}
	return day, nil
}
