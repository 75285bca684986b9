package booking

import "errors"

var (
	ErrValidation              = errors.New("validation error")
	ErrSlotTaken               = errors.New("time slot already booked")
	ErrForbidden               = errors.New("forbidden")
	ErrNotFound                = errors.New("booking not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)
