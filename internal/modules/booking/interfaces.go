package booking

import (
	"context"

	"prodstudio/internal/domain"
)

// DateLocker serializes check-and-write sequences for one calendar date.
type DateLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// SlotNotifier receives the occupied slots of a date after they change.
type SlotNotifier interface {
	Watching(date string) bool
	Broadcast(date string, slots []domain.OccupiedSlot)
}
