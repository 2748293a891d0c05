package usecase

import (
	"errors"
	"fmt"
	"time"

	"gigpulse/internal/pkg/schema"
)

// ErrPersistence indicates an infrastructure/repository failure inside a use case.
var ErrPersistence = schema.ErrPersistence

// persistence wraps a repository error, letting ErrNotFound through untouched
// so callers can tell a missing row from a broken store.
func persistence(err error) error {
	if errors.Is(err, schema.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

func nowOr(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now()
}
