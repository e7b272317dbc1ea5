package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage.
// Apply relies on INSERT .. ON CONFLICT so the insert-or-update of a
// (person, day) record is a single atomic statement; concurrent sightings
// serialize on the row without any application-level locking, and different
// days proceed independently.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Apply records a sighting atomically. first_seen is anchored by the insert
// and never touched by the conflict branch; last_seen is clamped to
// first_seen so an out-of-order event cannot invert the record.
func (r *AttendanceRepository) Apply(ctx context.Context, personID, displayName, day string, at time.Time) (database.AttendanceRecord, error) {
	query := `
		INSERT INTO attendance (person_id, display_name, day, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (person_id, day) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    last_seen = GREATEST(attendance.first_seen, EXCLUDED.last_seen)
		RETURNING person_id, display_name, day::text, first_seen, last_seen
	`

	var rec database.AttendanceRecord
	err := r.pool.QueryRow(ctx, query, personID, displayName, day, at).Scan(
		&rec.PersonID, &rec.DisplayName, &rec.Day, &rec.FirstSeen, &rec.LastSeen,
	)
	if err != nil {
		return database.AttendanceRecord{}, fmt.Errorf("apply sighting: %w", err)
	}
	return rec, nil
}

// Get retrieves the record for a person on a day, returns nil if not found.
func (r *AttendanceRepository) Get(ctx context.Context, day, personID string) (*database.AttendanceRecord, error) {
	query := `
		SELECT person_id, display_name, day::text, first_seen, last_seen
		FROM attendance
		WHERE day = $1 AND person_id = $2
	`

	var rec database.AttendanceRecord
	err := r.pool.QueryRow(ctx, query, day, personID).Scan(
		&rec.PersonID, &rec.DisplayName, &rec.Day, &rec.FirstSeen, &rec.LastSeen,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query attendance record: %w", err)
	}
	return &rec, nil
}

// ListByDay returns all records for a day ordered by first_seen, then person ID.
func (r *AttendanceRepository) ListByDay(ctx context.Context, day string) ([]database.AttendanceRecord, error) {
	query := `
		SELECT person_id, display_name, day::text, first_seen, last_seen
		FROM attendance
		WHERE day = $1
		ORDER BY first_seen, person_id
	`

	rows, err := r.pool.Query(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("query attendance day: %w", err)
	}
	defer rows.Close()

	var out []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		if err := rows.Scan(&rec.PersonID, &rec.DisplayName, &rec.Day, &rec.FirstSeen, &rec.LastSeen); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return out, nil
}
