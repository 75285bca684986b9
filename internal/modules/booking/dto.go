package booking

import "prodstudio/internal/domain"

// BookingRequest is the body of create and reschedule calls.
// Date is "YYYY-MM-DD" (RFC 3339 accepted); times are "HH:MM".
type BookingRequest struct {
	Date      string  `json:"date" validate:"required"`
	StartTime string  `json:"startTime" validate:"required,clock"`
	EndTime   string  `json:"endTime" validate:"required,clock"`
	Notes     *string `json:"notes" validate:"omitempty,max=300"`
}

// SlotEvent is pushed to occupied-slot subscribers of one date.
type SlotEvent struct {
	Type          string                `json:"type"`
	Date          string                `json:"date"`
	OccupiedSlots []domain.OccupiedSlot `json:"occupiedSlots"`
}

const EventOccupiedSlots = "occupied_slots"
