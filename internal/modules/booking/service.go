package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"prodstudio/internal/domain"
	"prodstudio/internal/metrics"
)

type Service struct {
	bookings domain.BookingStore
	locker   DateLocker
	notifier SlotNotifier
	now      func() time.Time
}

func NewService(bookings domain.BookingStore, locker DateLocker, notifier SlotNotifier) *Service {
	return &Service{
		bookings: bookings,
		locker:   locker,
		notifier: notifier,
		now:      time.Now,
	}
}

// WithClock replaces the time source used by the completion sweep.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// slot is a validated request: a normalized date plus its absolute interval.
type slot struct {
	date  time.Time
	start string
	end   string
	span  domain.TimeRange
	notes *string
}

func parseSlot(req BookingRequest) (*slot, error) {
	if strings.TrimSpace(req.Date) == "" || req.StartTime == "" || req.EndTime == "" {
		return nil, fmt.Errorf("%w: date, start time and end time are required", ErrValidation)
	}
	date, err := domain.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	span, err := domain.NewTimeRange(date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !span.End.After(span.Start) {
		return nil, fmt.Errorf("%w: end time must be after start time", ErrValidation)
	}
	if req.Notes != nil && utf8.RuneCountInString(*req.Notes) > domain.MaxNotesLength {
		return nil, fmt.Errorf("%w: notes must be at most %d characters", ErrValidation, domain.MaxNotesLength)
	}
	return &slot{
		date:  date,
		start: req.StartTime,
		end:   req.EndTime,
		span:  span,
		notes: req.Notes,
	}, nil
}

func lockKey(date time.Time) string {
	return "booking:" + date.Format(domain.DateLayout)
}

// ensureFree rejects the slot if it overlaps any active booking on its date other than excludeID.
func ensureFree(ctx context.Context, store domain.BookingStore, sl *slot, excludeID string) error {
	existing, err := store.ListActiveByDate(ctx, sl.date, excludeID)
	if err != nil {
		return fmt.Errorf("list bookings for %s: %w", sl.date.Format(domain.DateLayout), err)
	}
	for i := range existing {
		other, err := existing[i].Interval()
		if err != nil {
			return fmt.Errorf("booking %s has malformed times: %w", existing[i].ID, err)
		}
		if sl.span.Overlaps(other) {
			return ErrSlotTaken
		}
	}
	return nil
}

func (s *Service) CreateBooking(ctx context.Context, ownerID string, req BookingRequest) (*domain.Booking, error) {
	sl, err := parseSlot(req)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, lockKey(sl.date))
	if err != nil {
		return nil, fmt.Errorf("acquire date lock: %w", err)
	}
	defer release()

	var created *domain.Booking
	err = s.bookings.WithTx(ctx, func(tx domain.BookingStore) error {
		if err := ensureFree(ctx, tx, sl, ""); err != nil {
			return err
		}
		b := &domain.Booking{
			UserID:    ownerID,
			Date:      sl.date,
			StartTime: sl.start,
			EndTime:   sl.end,
			Notes:     sl.notes,
			Status:    domain.BookingPending,
		}
		if err := tx.Create(ctx, b); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		created = b
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			metrics.BookingConflicts.Inc()
		}
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	s.publish(ctx, sl.date)
	return created, nil
}

// RescheduleBooking moves a booking to a new date/time. The booking's own row never conflicts with itself.
func (s *Service) RescheduleBooking(ctx context.Context, caller domain.Identity, id string, req BookingRequest) (*domain.Booking, error) {
	sl, err := parseSlot(req)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, lockKey(sl.date))
	if err != nil {
		return nil, fmt.Errorf("acquire date lock: %w", err)
	}
	defer release()

	var (
		updated *domain.Booking
		oldDate time.Time
	)
	err = s.bookings.WithTx(ctx, func(tx domain.BookingStore) error {
		b, err := tx.GetByID(ctx, id)
		if err != nil {
			return mapStoreErr(err)
		}
		if b.UserID != caller.UserID && !caller.IsAdmin {
			return ErrForbidden
		}
		if b.Status == domain.BookingCompleted {
			return ErrInvalidStatusTransition
		}
		if err := ensureFree(ctx, tx, sl, b.ID); err != nil {
			return err
		}

		oldDate = b.Date
		b.Date = sl.date
		b.StartTime = sl.start
		b.EndTime = sl.end
		if sl.notes != nil {
			b.Notes = sl.notes
		}
		b.Status = domain.BookingRescheduled
		if err := tx.Update(ctx, b); err != nil {
			return mapStoreErr(err)
		}
		updated = b
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			metrics.BookingConflicts.Inc()
		}
		return nil, err
	}

	s.publish(ctx, sl.date)
	if !oldDate.Equal(sl.date) {
		s.publish(ctx, oldDate)
	}
	return updated, nil
}

// GetOccupiedSlots returns the ranges of active bookings on rawDate without any owner data.
func (s *Service) GetOccupiedSlots(ctx context.Context, rawDate string) ([]domain.OccupiedSlot, error) {
	rawDate = strings.TrimSpace(rawDate)
	if rawDate == "" {
		return nil, fmt.Errorf("%w: date is required", ErrValidation)
	}
	date, err := domain.ParseDate(rawDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.occupied(ctx, date)
}

func (s *Service) occupied(ctx context.Context, date time.Time) ([]domain.OccupiedSlot, error) {
	rows, err := s.bookings.ListActiveByDate(ctx, date, "")
	if err != nil {
		return nil, err
	}
	out := make([]domain.OccupiedSlot, 0, len(rows))
	for _, b := range rows {
		out = append(out, domain.OccupiedSlot{StartTime: b.StartTime, EndTime: b.EndTime})
	}
	return out, nil
}

func (s *Service) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return b, nil
}

// ApproveBooking confirms a booking. Only the status changes; the time range is left as is.
func (s *Service) ApproveBooking(ctx context.Context, caller domain.Identity, id string) (*domain.Booking, error) {
	if !caller.IsAdmin {
		return nil, ErrForbidden
	}

	var approved *domain.Booking
	err := s.bookings.WithTx(ctx, func(tx domain.BookingStore) error {
		b, err := tx.GetByID(ctx, id)
		if err != nil {
			return mapStoreErr(err)
		}
		if b.Status == domain.BookingCompleted {
			return ErrInvalidStatusTransition
		}
		if err := tx.UpdateStatus(ctx, id, domain.BookingConfirmed); err != nil {
			return mapStoreErr(err)
		}
		b.Status = domain.BookingConfirmed
		approved = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// DeleteBooking hard-removes a booking; cancellation is deletion.
// A COMPLETED booking stays in the history.
func (s *Service) DeleteBooking(ctx context.Context, caller domain.Identity, id string) error {
	var date time.Time
	err := s.bookings.WithTx(ctx, func(tx domain.BookingStore) error {
		b, err := tx.GetByID(ctx, id)
		if err != nil {
			return mapStoreErr(err)
		}
		if b.UserID != caller.UserID && !caller.IsAdmin {
			return ErrForbidden
		}
		if b.Status == domain.BookingCompleted {
			return ErrInvalidStatusTransition
		}
		date = b.Date
		return mapStoreErr(tx.Delete(ctx, id))
	})
	if err != nil {
		return err
	}
	s.publish(ctx, date)
	return nil
}

func (s *Service) ListUserBookings(ctx context.Context, ownerID string) ([]domain.Booking, error) {
	return s.bookings.ListByUser(ctx, ownerID)
}

// ListAllBookings is the admin dashboard listing. It runs the completion sweep before reading.
func (s *Service) ListAllBookings(ctx context.Context, caller domain.Identity) ([]domain.Booking, error) {
	if !caller.IsAdmin {
		return nil, ErrForbidden
	}
	if _, err := s.CompleteElapsed(ctx); err != nil {
		return nil, err
	}
	return s.bookings.ListAll(ctx)
}

// CompleteElapsed marks active bookings dated before the current UTC day as COMPLETED.
// Running it again with nothing eligible changes no rows.
func (s *Service) CompleteElapsed(ctx context.Context) (int64, error) {
	cutoff := domain.NormalizeDate(s.now())
	n, err := s.bookings.CompleteElapsed(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("complete elapsed bookings: %w", err)
	}
	if n > 0 {
		metrics.BookingsCompleted.Add(float64(n))
		log.Printf("booking_sweep completed=%d cutoff=%s", n, cutoff.Format(domain.DateLayout))
	}
	return n, nil
}

func (s *Service) publish(ctx context.Context, date time.Time) {
	if s.notifier == nil {
		return
	}
	key := date.Format(domain.DateLayout)
	if !s.notifier.Watching(key) {
		return
	}
	slots, err := s.occupied(ctx, date)
	if err != nil {
		log.Printf("occupied_slots_publish_error date=%s error=%v", key, err)
		return
	}
	s.notifier.Broadcast(key, slots)
}

func mapStoreErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
