package cmd

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/database/memory"
	"github.com/kozaktomas/attendance/internal/database/postgres"
)

// stores bundles the two repositories a command needs plus the pool cleanup.
type stores struct {
	persons    database.PersonStore
	attendance database.AttendanceStore
	close      func()
}

// openStores connects the PostgreSQL repositories, or in-memory ones when
// inMemory is set. Memory stores lose everything on exit and exist for local
// experiments without a database.
func openStores(cfg *config.Config, inMemory bool) (*stores, error) {
	if inMemory {
		fmt.Println("Using in-memory storage (data is lost on exit)")
		return &stores{
			persons:    memory.NewPersonRepository(),
			attendance: memory.NewAttendanceRepository(),
			close:      func() {},
		}, nil
	}

	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Println("Connecting to PostgreSQL database...")
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	return &stores{
		persons:    postgres.NewPersonRepository(pool),
		attendance: postgres.NewAttendanceRepository(pool),
		close:      func() { _ = pool.Close() },
	}, nil
}
