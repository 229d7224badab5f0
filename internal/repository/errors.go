package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
)

// Postgres error codes surfaced as domain errors.
const (
	pgLockNotAvailable  = "55P03" // FOR UPDATE NOWAIT lost the race
	pgUniqueViolation   = "23505" // concurrent insert on a unique constraint
	pgSerializationFail = "40001"
	pgDeadlockDetected  = "40P01"
)

// MapError translates low-level pgx failures into the domain taxonomy.
// Lock and serialization contention becomes ErrConflictRetry (expected under
// load, caller retries with backoff); missing rows become ErrNotFound.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgUniqueViolation, pgSerializationFail, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", model.ErrConflictRetry, pgErr.Code)
		}
	}
	return err
}
