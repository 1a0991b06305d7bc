package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/space-reservation/internal/model"
	"github.com/iliyamo/space-reservation/internal/repository"
	"github.com/iliyamo/space-reservation/internal/service"
)

// AdminHandler exposes the staff-only reservation operations plus the
// settings endpoints that drive the cancellation window.
type AdminHandler struct {
	Svc      *service.ReservationService
	Settings *repository.SettingRepo
}

func NewAdminHandler(svc *service.ReservationService, settings *repository.SettingRepo) *AdminHandler {
	return &AdminHandler{Svc: svc, Settings: settings}
}

// ListAll returns every reservation in the system.
func (h *AdminHandler) ListAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	rs, err := h.Svc.ListAll(ctx, actorFrom(c))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": viewReservations(rs)})
}

// Approve confirms a pending reservation, recording the caller as
// approver.
func (h *AdminHandler) Approve(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	r, err := h.Svc.Approve(ctx, actorFrom(c), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, viewReservation(r))
}

// MarkNoShow resolves a confirmed reservation nobody checked into.
func (h *AdminHandler) MarkNoShow(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	r, err := h.Svc.MarkNoShow(ctx, actorFrom(c), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, viewReservation(r))
}

// Complete closes out a checked-in reservation after its end time.
func (h *AdminHandler) Complete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	r, err := h.Svc.Complete(ctx, actorFrom(c), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, viewReservation(r))
}

// HardDelete permanently removes a resolved reservation.
func (h *AdminHandler) HardDelete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Svc.HardDelete(ctx, actorFrom(c), id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- settings -----

type settingReq struct {
	Value string `json:"value"`
}

// knownSettings guards against typos: only documented keys can be set.
var knownSettings = map[string]bool{
	model.SettingCancelMinHours: true,
	model.SettingCancelMaxHours: true,
}

// GetSetting returns one setting value.
func (h *AdminHandler) GetSetting(c echo.Context) error {
	key := strings.TrimSpace(c.Param("key"))
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	v, err := h.Settings.Value(ctx, key)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"key": key, "value": v})
}

// UpsertSetting creates or replaces one of the documented settings.
// Hour thresholds must parse as non-negative integers before they are
// accepted, so a bad write can never break the cancellation policy.
func (h *AdminHandler) UpsertSetting(c echo.Context) error {
	key := strings.TrimSpace(c.Param("key"))
	if !knownSettings[key] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown setting key"})
	}
	var req settingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Value = strings.TrimSpace(req.Value)
	if n, err := strconv.Atoi(req.Value); err != nil || n < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "value must be a non-negative integer"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Settings.Upsert(ctx, key, req.Value); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"key": key, "value": req.Value})
}
