package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when an insert collides with the unique
// email index.
var ErrDuplicateEmail = errors.New("user with this email already exists")

// ErrDuplicateCollector is returned when a second active District Collector
// is registered for the same district.
var ErrDuplicateCollector = errors.New("an active District Collector already exists for this district")

const pqUniqueViolation = "23505"

// translateConflict maps Postgres unique-violation errors onto the domain
// conflict sentinels. The unique indexes are the authoritative guard; the
// email pre-checks in the services are only an optimization.
func translateConflict(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case "users_email_key":
		return ErrDuplicateEmail
	case "users_collector_district_key":
		return ErrDuplicateCollector
	}
	return err
}
