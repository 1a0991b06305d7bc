// Package handler contains the HTTP layer: request DTOs, fat echo
// handlers that bind and sanitize input, and the translation of the
// core's error taxonomy into status codes.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/space-reservation/internal/model"
	"github.com/iliyamo/space-reservation/internal/repository"
	"github.com/iliyamo/space-reservation/internal/service"
)

const dbTimeout = 5 * time.Second

// actorFrom rebuilds the acting identity from the context values stored
// by the JWT middleware. JWT numeric claims decode as float64.
func actorFrom(c echo.Context) service.Actor {
	var a service.Actor
	switch v := c.Get("user_id").(type) {
	case float64:
		a.UserID = uint64(v)
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			a.UserID = n
		}
	case uint64:
		a.UserID = v
	}
	if role, ok := c.Get("role").(string); ok {
		a.Role = role
	}
	return a
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// writeServiceError maps core errors onto HTTP responses: validation
// errors are 400, rule violations 409, missing resources 404, and
// capability failures 403. Anything unrecognized is a 500 with a
// generic body so internals never leak.
func writeServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrForbidden) || errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case service.IsValidation(err):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case service.IsRule(err):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrReservationNotFound),
		errors.Is(err, model.ErrSpaceNotFound),
		errors.Is(err, model.ErrUserNotFound),
		errors.Is(err, model.ErrSettingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrQRCodeExists),
		errors.Is(err, model.ErrAttendeeExists),
		errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// ----- shared views -----

type attendeeView struct {
	ID          uint64    `json:"id"`
	ExternalID  string    `json:"external_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

type reservationView struct {
	ID                uint64         `json:"id"`
	UserID            uint64         `json:"user_id"`
	SpaceID           uint64         `json:"space_id"`
	StartsAt          *time.Time     `json:"starts_at"`
	EndsAt            *time.Time     `json:"ends_at"`
	Status            string         `json:"status"`
	QRCode            string         `json:"qr_code"`
	ApproverID        *uint64        `json:"approver_id,omitempty"`
	CancelReason      *string        `json:"cancel_reason,omitempty"`
	CanceledAt        *time.Time     `json:"canceled_at,omitempty"`
	CheckedInAt       *time.Time     `json:"checked_in_at,omitempty"`
	ExpectedAttendees int            `json:"expected_attendees"`
	Notes             string         `json:"notes,omitempty"`
	Attendees         []attendeeView `json:"attendees,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func viewReservation(r *model.Reservation) reservationView {
	v := reservationView{
		ID:                r.ID,
		UserID:            r.UserID,
		SpaceID:           r.SpaceID,
		Status:            string(r.Status),
		QRCode:            r.QRCode,
		ApproverID:        r.ApproverID,
		CancelReason:      r.CancelReason,
		CanceledAt:        r.CanceledAt,
		CheckedInAt:       r.CheckedInAt,
		ExpectedAttendees: r.ExpectedAttendees,
		Notes:             r.Notes,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if !r.StartsAt.IsZero() {
		t := r.StartsAt
		v.StartsAt = &t
	}
	if !r.EndsAt.IsZero() {
		t := r.EndsAt
		v.EndsAt = &t
	}
	for _, a := range r.Attendees {
		v.Attendees = append(v.Attendees, attendeeView{
			ID:          a.ID,
			ExternalID:  a.ExternalID,
			FirstName:   a.FirstName,
			LastName:    a.LastName,
			CheckedInAt: a.CheckedInAt,
		})
	}
	return v
}

func viewReservations(rs []*model.Reservation) []reservationView {
	out := make([]reservationView, 0, len(rs))
	for _, r := range rs {
		out = append(out, viewReservation(r))
	}
	return out
}
