package storage

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound: the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSlotTaken: the (doctor, date, slot) uniqueness constraint fired.
	// This is how the slot-booking race resolves: the second writer's
	// insert fails atomically and the caller reports a booking conflict.
	ErrSlotTaken = errors.New("slot already taken")
	// ErrDuplicate: a generic uniqueness violation (email, webhook event id).
	ErrDuplicate = errors.New("duplicate row")
	// ErrScheduleConflict: a schedule update was refused inside its
	// transaction because future appointments depend on that weekday.
	ErrScheduleConflict = errors.New("future appointments exist on this weekday")
)

const uniqueViolation = "23505"

func translateUnique(err error, onConstraint string, to error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if onConstraint == "" || pgErr.ConstraintName == onConstraint {
			return to
		}
	}
	return err
}

func translateNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
