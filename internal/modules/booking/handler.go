package booking

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"prodstudio/internal/domain"
	"prodstudio/internal/middleware"
	"prodstudio/internal/pkg/response"
	"prodstudio/internal/pkg/validator"
)

type Handler struct {
	service *Service
	hub     *Hub
}

func NewHandler(service *Service, hub *Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

// RegisterRoutes mounts the booking API on rg. auth must populate the caller identity.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	g := rg.Group("/booking")
	{
		g.POST("", auth, h.CreateBooking)
		g.GET("", auth, middleware.AdminOnly(), h.ListAllBookings)
		g.GET("/occupied-slots", h.GetOccupiedSlots)
		g.GET("/occupied-slots/ws", h.WatchOccupiedSlots)
		g.PATCH("/:id/approve", auth, h.ApproveBooking)
		g.PATCH("/:id", auth, h.RescheduleBooking)
		g.DELETE("/:id", auth, h.DeleteBooking)
		g.GET("/:id/my-bookings", h.ListUserBookings)
		g.GET("/:id", h.GetBooking)
	}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	caller, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	req, ok := bindBookingRequest(c)
	if !ok {
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), caller.UserID, req)
	if err != nil {
		h.fail(c, err, "Internal server error while creating booking.")
		return
	}

	response.OK(c, http.StatusCreated, gin.H{
		"message": "Booking created successfully.",
		"booking": b,
	})
}

func (h *Handler) RescheduleBooking(c *gin.Context) {
	caller, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	req, ok := bindBookingRequest(c)
	if !ok {
		return
	}

	b, err := h.service.RescheduleBooking(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		h.fail(c, err, "Internal server error while updating booking.")
		return
	}

	response.OK(c, http.StatusOK, gin.H{
		"message": "Booking rescheduled successfully.",
		"booking": b,
	})
}

func (h *Handler) GetOccupiedSlots(c *gin.Context) {
	slots, err := h.service.GetOccupiedSlots(c.Request.Context(), c.Query("date"))
	if err != nil {
		h.fail(c, err, "Internal server error while fetching occupied slots.")
		return
	}
	response.OK(c, http.StatusOK, gin.H{"occupiedSlots": slots})
}

// WatchOccupiedSlots streams the occupied slots of ?date= over a websocket.
func (h *Handler) WatchOccupiedSlots(c *gin.Context) {
	date, err := domain.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Please provide a valid date.")
		return
	}
	snapshot := func() ([]domain.OccupiedSlot, error) {
		return h.service.occupied(c.Request.Context(), date)
	}
	if err := h.hub.Serve(c.Writer, c.Request, date.Format(domain.DateLayout), snapshot); err != nil {
		// Upgrade already wrote the HTTP error.
		log.Printf("slot_feed_upgrade_error date=%s error=%v", date.Format(domain.DateLayout), err)
	}
}

func (h *Handler) GetBooking(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Internal server error while fetching booking.")
		return
	}
	response.OK(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) ApproveBooking(c *gin.Context) {
	caller, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	b, err := h.service.ApproveBooking(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.fail(c, err, "Internal server error while approving booking.")
		return
	}

	response.OK(c, http.StatusOK, gin.H{
		"message": "Successfully confirmed booking.",
		"booking": b,
	})
}

func (h *Handler) DeleteBooking(c *gin.Context) {
	caller, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	if err := h.service.DeleteBooking(c.Request.Context(), caller, c.Param("id")); err != nil {
		h.fail(c, err, "Internal server error while deleting booking.")
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "Booking deleted successfully."})
}

func (h *Handler) ListUserBookings(c *gin.Context) {
	bookings, err := h.service.ListUserBookings(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Internal server error while fetching bookings.")
		return
	}
	response.OK(c, http.StatusOK, gin.H{"count": len(bookings), "bookings": bookings})
}

func (h *Handler) ListAllBookings(c *gin.Context) {
	caller, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	bookings, err := h.service.ListAllBookings(c.Request.Context(), caller)
	if err != nil {
		h.fail(c, err, "Internal server error while fetching all bookings.")
		return
	}
	response.OK(c, http.StatusOK, gin.H{"count": len(bookings), "bookings": bookings})
}

func bindBookingRequest(c *gin.Context) (BookingRequest, bool) {
	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return req, false
	}
	if details := validator.Validate(req); details != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Please provide date, start time, and end time.", details)
		return req, false
	}
	return req, true
}

func (h *Handler) fail(c *gin.Context, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrSlotTaken):
		response.Error(c, http.StatusConflict, "BOOKING_CONFLICT", "This time slot is already booked. Please choose a different time.")
	case errors.Is(err, ErrInvalidStatusTransition):
		response.Error(c, http.StatusConflict, "INVALID_STATUS_TRANSITION", "A completed booking can no longer be changed.")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You are not authorized to modify this booking.")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found.")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", internalMsg)
	}
}
