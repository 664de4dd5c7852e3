package services

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInsufficientAcorns = errors.New("not enough acorns")
	ErrExpired            = errors.New("expired")
	ErrAlreadyCompleted   = errors.New("already completed")
)

// Clock is injected into services so reset boundaries can be pinned in tests.
// Times are normalized to UTC before they reach the database.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
