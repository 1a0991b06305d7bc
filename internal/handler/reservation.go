package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/space-reservation/internal/model"
	"github.com/iliyamo/space-reservation/internal/service"
)

// ReservationHandler exposes the citizen-facing reservation endpoints.
// All business decisions live in the lifecycle engine; the handler only
// binds input, resolves the actor and translates errors.
type ReservationHandler struct {
	Svc *service.ReservationService
}

func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{Svc: svc}
}

// ----- DTOs -----

type createReservationReq struct {
	SpaceID           uint64     `json:"space_id"`
	UserID            uint64     `json:"user_id"` // staff may book on behalf of another user
	StartsAt          *time.Time `json:"starts_at"`
	EndsAt            *time.Time `json:"ends_at"`
	Status            string     `json:"status"`
	QRCode            string     `json:"qr_code"`
	ExpectedAttendees int        `json:"expected_attendees"`
	Notes             string     `json:"notes"`
}

type updateReservationReq struct {
	SpaceID           *uint64    `json:"space_id"`
	StartsAt          *time.Time `json:"starts_at"`
	EndsAt            *time.Time `json:"ends_at"`
	QRCode            *string    `json:"qr_code"`
	ExpectedAttendees *int       `json:"expected_attendees"`
	Notes             *string    `json:"notes"`
}

type cancelReservationReq struct {
	Reason string `json:"reason"`
}

type checkInReq struct {
	QRCode     string `json:"qr_code"`
	ExternalID string `json:"external_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
}

// Create books a space. Citizens always book for themselves; staff may
// pass user_id to book on behalf of someone else.
func (h *ReservationHandler) Create(c echo.Context) error {
	actor := actorFrom(c)
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	userID := actor.UserID
	if req.UserID != 0 && actor.Staff() {
		userID = req.UserID
	}
	in := service.CreateInput{
		UserID:            userID,
		SpaceID:           req.SpaceID,
		Status:            model.ReservationStatus(req.Status),
		QRCode:            req.QRCode,
		ExpectedAttendees: req.ExpectedAttendees,
		Notes:             req.Notes,
	}
	if req.StartsAt != nil {
		in.StartsAt = req.StartsAt.UTC()
	}
	if req.EndsAt != nil {
		in.EndsAt = req.EndsAt.UTC()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	r, err := h.Svc.Create(ctx, actor, in)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, viewReservation(r))
}

// ListOwn returns the caller's reservations, newest first.
func (h *ReservationHandler) ListOwn(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	rs, err := h.Svc.ListOwn(ctx, actorFrom(c))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": viewReservations(rs)})
}

// Get returns one reservation visible to the caller.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	r, err := h.Svc.Get(ctx, actorFrom(c), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, viewReservation(r))
}

// Update edits the mutable fields of a reservation; the engine
// re-validates availability and QR uniqueness.
func (h *ReservationHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in := service.UpdateInput{
		SpaceID:           req.SpaceID,
		QRCode:            req.QRCode,
		ExpectedAttendees: req.ExpectedAttendees,
		Notes:             req.Notes,
	}
	if req.StartsAt != nil {
		t := req.StartsAt.UTC()
		in.StartsAt = &t
	}
	if req.EndsAt != nil {
		t := req.EndsAt.UTC()
		in.EndsAt = &t
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	r, err := h.Svc.Update(ctx, actorFrom(c), id, in)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, viewReservation(r))
}

// Cancel cancels a reservation. Citizens are held to the configured
// cancellation window; staff may cancel any time before the start.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	actor := actorFrom(c)
	var req cancelReservationReq
	_ = c.Bind(&req) // reason is optional

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	r, err := h.Svc.Get(ctx, actor, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	if !actor.Staff() && r.Status != model.StatusCanceled {
		if err := h.Svc.CancellationPolicy().AssertAllowed(ctx, r); err != nil {
			return writeServiceError(c, err)
		}
	}
	r, err = h.Svc.Cancel(ctx, actor, id, req.Reason)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, viewReservation(r))
}

// CheckIn registers an attendee against the reservation's QR code
// within the check-in window.
func (h *ReservationHandler) CheckIn(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req checkInReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	r, err := h.Svc.CheckIn(ctx, actorFrom(c), id, service.CheckInInput{
		QRCode:     req.QRCode,
		ExternalID: req.ExternalID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, viewReservation(r))
}

// Delete soft-deletes the reservation; the row stays for audit.
func (h *ReservationHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Svc.SoftDelete(ctx, actorFrom(c), id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
