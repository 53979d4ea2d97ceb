package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is the root of every repository not-found error. Domain
// packages wrap it so callers can test with errors.Is regardless of the
// entity involved.
var ErrNotFound = errors.New("not found")

// NotFound returns a not-found error naming the entity.
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

// TranslateNoRows maps pgx.ErrNoRows to notFound and wraps anything else
// with the operation name.
func TranslateNoRows(err, notFound error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
