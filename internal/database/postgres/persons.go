package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendance/internal/database"
	"github.com/pgvector/pgvector-go"
)

// PersonRepository provides PostgreSQL-backed person and sample storage.
// Samples and encodings live in two tables; AddSample writes both in one
// transaction so a reader never observes one without the other.
type PersonRepository struct {
	pool *Pool
}

// NewPersonRepository creates a new PostgreSQL person repository.
func NewPersonRepository(pool *Pool) *PersonRepository {
	return &PersonRepository{pool: pool}
}

// CreatePerson assigns the next monotonic person ID and persists an empty record.
func (r *PersonRepository) CreatePerson(ctx context.Context, displayName string) (database.StoredPerson, error) {
	query := `
		WITH s AS (SELECT nextval('person_seq') AS v)
		INSERT INTO persons (person_id, display_name, seq)
		SELECT 'person_' || v, $1, v FROM s
		RETURNING person_id, created_at
	`

	var p database.StoredPerson
	p.DisplayName = displayName
	err := r.pool.QueryRow(ctx, query, displayName).Scan(&p.PersonID, &p.CreatedAt)
	if err != nil {
		return database.StoredPerson{}, fmt.Errorf("create person: %w", err)
	}
	return p, nil
}

// GetPerson retrieves a person by ID, returns nil if not found.
func (r *PersonRepository) GetPerson(ctx context.Context, personID string) (*database.StoredPerson, error) {
	query := `
		SELECT p.person_id, p.display_name, p.created_at,
		       (SELECT COUNT(*) FROM samples s WHERE s.person_id = p.person_id)
		FROM persons p
		WHERE p.person_id = $1
	`

	var p database.StoredPerson
	err := r.pool.QueryRow(ctx, query, personID).Scan(&p.PersonID, &p.DisplayName, &p.CreatedAt, &p.SampleCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query person: %w", err)
	}
	return &p, nil
}

// ListPersons returns all persons in enrollment order.
func (r *PersonRepository) ListPersons(ctx context.Context) ([]database.StoredPerson, error) {
	query := `
		SELECT p.person_id, p.display_name, p.created_at,
		       (SELECT COUNT(*) FROM samples s WHERE s.person_id = p.person_id)
		FROM persons p
		ORDER BY p.seq
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query persons: %w", err)
	}
	defer rows.Close()

	var out []database.StoredPerson
	for rows.Next() {
		var p database.StoredPerson
		if err := rows.Scan(&p.PersonID, &p.DisplayName, &p.CreatedAt, &p.SampleCount); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return out, nil
}

// DeletePerson removes a person with all samples and encodings.
func (r *PersonRepository) DeletePerson(ctx context.Context, personID string) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	// Encodings carry no FK; they are deleted explicitly before the cascade.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM encodings WHERE sample_id IN (SELECT sample_id FROM samples WHERE person_id = $1)
	`, personID)
	if err != nil {
		return false, fmt.Errorf("delete encodings: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM persons WHERE person_id = $1", personID)
	if err != nil {
		return false, fmt.Errorf("delete person: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete person rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit person delete: %w", err)
	}
	return n > 0, nil
}

// AddSample persists one sample together with its encoding in a single transaction.
func (r *PersonRepository) AddSample(ctx context.Context, sample database.StoredSample) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO samples (sample_id, person_id, source_path, model, dim)
		VALUES ($1, $2, $3, $4, $5)
	`, sample.SampleID, sample.PersonID, sample.SourcePath, sample.Model, sample.Dim)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}

	vec := pgvector.NewVector(sample.Encoding)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO encodings (sample_id, embedding) VALUES ($1, $2)
	`, sample.SampleID, vec)
	if err != nil {
		return fmt.Errorf("insert encoding: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sample: %w", err)
	}
	return nil
}

// GetSamples returns all samples of a person in insertion order.
func (r *PersonRepository) GetSamples(ctx context.Context, personID string) ([]database.StoredSample, error) {
	query := `
		SELECT s.sample_id, s.person_id, s.source_path, s.model, s.dim, s.created_at, e.embedding
		FROM samples s
		JOIN encodings e ON e.sample_id = s.sample_id
		WHERE s.person_id = $1
		ORDER BY s.created_at, s.sample_id
	`

	rows, err := r.pool.Query(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// ListSamples returns all samples across persons in enrollment order.
func (r *PersonRepository) ListSamples(ctx context.Context) ([]database.StoredSample, error) {
	query := `
		SELECT s.sample_id, s.person_id, s.source_path, s.model, s.dim, s.created_at, e.embedding
		FROM samples s
		JOIN encodings e ON e.sample_id = s.sample_id
		JOIN persons p ON p.person_id = s.person_id
		ORDER BY p.seq, s.created_at, s.sample_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

func scanSamples(rows *sql.Rows) ([]database.StoredSample, error) {
	var out []database.StoredSample
	for rows.Next() {
		var s database.StoredSample
		var vec pgvector.Vector
		if err := rows.Scan(&s.SampleID, &s.PersonID, &s.SourcePath, &s.Model, &s.Dim, &s.CreatedAt, &vec); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s.Encoding = vec.Slice()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return out, nil
}

// CheckIntegrity verifies every sample row has an encoding row and vice versa.
func (r *PersonRepository) CheckIntegrity(ctx context.Context) error {
	var orphanSamples int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM samples s
		LEFT JOIN encodings e ON e.sample_id = s.sample_id
		WHERE e.sample_id IS NULL
	`).Scan(&orphanSamples)
	if err != nil {
		return fmt.Errorf("check samples without encodings: %w", err)
	}

	var orphanEncodings int
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM encodings e
		LEFT JOIN samples s ON s.sample_id = e.sample_id
		WHERE s.sample_id IS NULL
	`).Scan(&orphanEncodings)
	if err != nil {
		return fmt.Errorf("check encodings without samples: %w", err)
	}

	if orphanSamples > 0 || orphanEncodings > 0 {
		return fmt.Errorf(
			"%d samples without encodings, %d encodings without samples: %w",
			orphanSamples, orphanEncodings, database.ErrStoreIntegrity,
		)
	}
	return nil
}
