package domain

import (
	"fmt"
	"regexp"
	"time"
)

type BookingStatus string

const (
	BookingPending     BookingStatus = "PENDING"
	BookingConfirmed   BookingStatus = "CONFIRMED"
	BookingRescheduled BookingStatus = "RESCHEDULED"
	BookingCompleted   BookingStatus = "COMPLETED"
	BookingCancelled   BookingStatus = "CANCELLED"
)

const (
	DateLayout     = "2006-01-02"
	ClockLayout    = "15:04"
	MaxNotesLength = 300
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ActiveStatuses are the statuses that occupy the studio.
var ActiveStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingRescheduled}

// Occupies reports whether a booking in this status takes part in overlap checks.
func (s BookingStatus) Occupies() bool {
	return s != BookingCancelled && s != BookingCompleted
}

func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

// Booking is a studio session on a single UTC calendar day.
// StartTime and EndTime are wall-clock "HH:MM" values within Date.
type Booking struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId"`
	Date      time.Time     `json:"date"`
	StartTime string        `json:"startTime"`
	EndTime   string        `json:"endTime"`
	Notes     *string       `json:"notes,omitempty"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`

	User *OwnerSummary `json:"user,omitempty"`
}

// Interval returns the absolute [start, end) instants of the booking.
func (b *Booking) Interval() (TimeRange, error) {
	return NewTimeRange(b.Date, b.StartTime, b.EndTime)
}

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange combines a normalized date with two "HH:MM" clock values as UTC.
func NewTimeRange(date time.Time, start, end string) (TimeRange, error) {
	s, err := ClockOn(date, start)
	if err != nil {
		return TimeRange{}, err
	}
	e, err := ClockOn(date, end)
	if err != nil {
		return TimeRange{}, err
	}
	return TimeRange{Start: s, End: e}, nil
}

// Overlaps is the half-open intersection test: touching endpoints do not overlap.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start.Before(o.End) && r.End.After(o.Start)
}

// NormalizeDate truncates t to midnight UTC of its UTC calendar day.
func NormalizeDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts "YYYY-MM-DD" or an RFC 3339 timestamp and returns midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	if d, err := time.Parse(DateLayout, raw); err == nil {
		return NormalizeDate(d), nil
	}
	d, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return NormalizeDate(d), nil
}

// ClockOn places a zero-padded "HH:MM" wall-clock value on the given date in UTC.
// Stored times sort as strings, so "9:30" is rejected.
func ClockOn(date time.Time, clock string) (time.Time, error) {
	if !clockPattern.MatchString(clock) {
		return time.Time{}, fmt.Errorf("invalid time %q", clock)
	}
	c, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", clock)
	}
	d := NormalizeDate(date)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, time.UTC), nil
}

// OccupiedSlot is the identity-free view of an active booking.
type OccupiedSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}
