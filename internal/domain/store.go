package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// UserStore persists identities. Username and email are unique when present.
type UserStore interface {
	WithTx(ctx context.Context, fn func(tx UserStore) error) error
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	LinkGoogle(ctx context.Context, userID, googleID string, avatarURL *string) error
}

// BookingStore persists bookings. Reads inside WithTx observe writes made in the same callback.
type BookingStore interface {
	WithTx(ctx context.Context, fn func(tx BookingStore) error) error
	Create(ctx context.Context, b *Booking) error
	Update(ctx context.Context, b *Booking) error
	UpdateStatus(ctx context.Context, id string, status BookingStatus) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	// ListActiveByDate returns bookings on date that occupy the studio, skipping excludeID when set.
	ListActiveByDate(ctx context.Context, date time.Time, excludeID string) ([]Booking, error)
	ListByUser(ctx context.Context, userID string) ([]Booking, error)
	ListAll(ctx context.Context) ([]Booking, error)
	// CompleteElapsed marks active bookings dated before cutoff as COMPLETED and returns the row count.
	CompleteElapsed(ctx context.Context, cutoff time.Time) (int64, error)
}
