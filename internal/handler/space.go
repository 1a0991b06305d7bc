package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/space-reservation/internal/model"
	"github.com/iliyamo/space-reservation/internal/repository"
)

// SpaceHandler exposes the space catalog: public browsing plus the
// staff management endpoints.
type SpaceHandler struct {
	Spaces *repository.SpaceRepo
}

func NewSpaceHandler(spaces *repository.SpaceRepo) *SpaceHandler {
	return &SpaceHandler{Spaces: spaces}
}

// ----- DTOs -----

type windowReq struct {
	Weekday  int    `json:"weekday"` // 0=Sunday .. 6=Saturday
	OpensAt  string `json:"opens_at"`
	ClosesAt string `json:"closes_at"`
}

type spaceReq struct {
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	Capacity         int         `json:"capacity"`
	MaxDurationMins  *int        `json:"max_duration_mins"`
	RequiresApproval bool        `json:"requires_approval"`
	IsActive         *bool       `json:"is_active"`
	Windows          []windowReq `json:"windows"`
}

type windowView struct {
	Weekday  int    `json:"weekday"`
	OpensAt  string `json:"opens_at"`
	ClosesAt string `json:"closes_at"`
}

type spaceView struct {
	ID               uint64       `json:"id"`
	Name             string       `json:"name"`
	Description      string       `json:"description,omitempty"`
	Capacity         int          `json:"capacity"`
	MaxDurationMins  *int         `json:"max_duration_mins,omitempty"`
	RequiresApproval bool         `json:"requires_approval"`
	IsActive         bool         `json:"is_active"`
	Windows          []windowView `json:"windows"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

func viewSpace(s *model.Space) spaceView {
	v := spaceView{
		ID:               s.ID,
		Name:             s.Name,
		Description:      s.Description,
		Capacity:         s.Capacity,
		MaxDurationMins:  s.MaxDurationMins,
		RequiresApproval: s.RequiresApproval,
		IsActive:         s.IsActive,
		Windows:          make([]windowView, 0, len(s.Windows)),
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	for _, w := range s.Windows {
		v.Windows = append(v.Windows, windowView{Weekday: int(w.Weekday), OpensAt: w.OpensAt, ClosesAt: w.ClosesAt})
	}
	return v
}

func parseWindows(in []windowReq) ([]model.OperatingWindow, string) {
	windows := make([]model.OperatingWindow, 0, len(in))
	for _, w := range in {
		if w.Weekday < 0 || w.Weekday > 6 {
			return nil, "weekday must be between 0 (Sunday) and 6 (Saturday)"
		}
		opens := strings.TrimSpace(w.OpensAt)
		closes := strings.TrimSpace(w.ClosesAt)
		if !validClockString(opens) || !validClockString(closes) {
			return nil, "opens_at/closes_at must use the 24-hour HH:MM form"
		}
		if closes <= opens {
			return nil, "closes_at must be after opens_at"
		}
		windows = append(windows, model.OperatingWindow{
			Weekday:  time.Weekday(w.Weekday),
			OpensAt:  opens,
			ClosesAt: closes,
		})
	}
	return windows, ""
}

// validClockString accepts "HH:MM" with HH 00-23 and MM 00-59. Lexical
// comparison of two valid strings matches chronological order.
func validClockString(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	hh, mm := s[:2], s[3:]
	for _, r := range hh + mm {
		if r < '0' || r > '9' {
			return false
		}
	}
	return hh <= "23" && mm <= "59"
}

// ----- public endpoints -----

// List returns every non-deleted space. Served from the Redis response
// cache when enabled.
func (h *SpaceHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	spaces, err := h.Spaces.List(ctx)
	if err != nil {
		return writeServiceError(c, err)
	}
	out := make([]spaceView, 0, len(spaces))
	for _, s := range spaces {
		out = append(out, viewSpace(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"spaces": out})
}

// Get returns a single space with its operating windows.
func (h *SpaceHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	s, err := h.Spaces.ByID(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, viewSpace(s))
}

// Hours returns just the weekly operating windows of a space.
func (h *SpaceHandler) Hours(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	s, err := h.Spaces.ByID(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	out := make([]windowView, 0, len(s.Windows))
	for _, w := range s.Windows {
		out = append(out, windowView{Weekday: int(w.Weekday), OpensAt: w.OpensAt, ClosesAt: w.ClosesAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"space_id": id, "windows": out})
}

// ----- staff endpoints -----

// Create registers a new space together with its weekly windows.
func (h *SpaceHandler) Create(c echo.Context) error {
	var req spaceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.Capacity < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity cannot be negative"})
	}
	if req.MaxDurationMins != nil && *req.MaxDurationMins <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_duration_mins must be positive"})
	}
	windows, msg := parseWindows(req.Windows)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	s := &model.Space{
		Name:             req.Name,
		Description:      strings.TrimSpace(req.Description),
		Capacity:         req.Capacity,
		MaxDurationMins:  req.MaxDurationMins,
		RequiresApproval: req.RequiresApproval,
		IsActive:         active,
		Windows:          windows,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Spaces.Create(ctx, s); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, viewSpace(s))
}

// Update rewrites a space's attributes and replaces its windows when
// the windows field is present.
func (h *SpaceHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req spaceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	s, err := h.Spaces.ByID(ctx, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		s.Name = name
	}
	if req.Description != "" {
		s.Description = strings.TrimSpace(req.Description)
	}
	if req.Capacity > 0 {
		s.Capacity = req.Capacity
	}
	if req.MaxDurationMins != nil {
		if *req.MaxDurationMins <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_duration_mins must be positive"})
		}
		s.MaxDurationMins = req.MaxDurationMins
	}
	s.RequiresApproval = req.RequiresApproval
	if req.IsActive != nil {
		s.IsActive = *req.IsActive
	}
	if err := h.Spaces.Update(ctx, s); err != nil {
		return writeServiceError(c, err)
	}

	if req.Windows != nil {
		windows, msg := parseWindows(req.Windows)
		if msg != "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
		}
		if err := h.Spaces.ReplaceWindows(ctx, id, windows); err != nil {
			return writeServiceError(c, err)
		}
		s.Windows = windows
	}
	return c.JSON(http.StatusOK, viewSpace(s))
}

// ReplaceHours swaps the space's full weekly window set.
func (h *SpaceHandler) ReplaceHours(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Windows []windowReq `json:"windows"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	windows, msg := parseWindows(req.Windows)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	// Look up first so a missing space reports 404, not a silent no-op.
	if _, err := h.Spaces.ByID(ctx, id); err != nil {
		return writeServiceError(c, err)
	}
	if err := h.Spaces.ReplaceWindows(ctx, id, windows); err != nil {
		return writeServiceError(c, err)
	}
	out := make([]windowView, 0, len(windows))
	for _, w := range windows {
		out = append(out, windowView{Weekday: int(w.Weekday), OpensAt: w.OpensAt, ClosesAt: w.ClosesAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"space_id": id, "windows": out})
}

// SetActive flips the bookable flag without touching anything else.
func (h *SpaceHandler) SetActive(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Spaces.SetActive(ctx, id, req.IsActive); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete soft-deletes a space; existing reservations keep their rows.
func (h *SpaceHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Spaces.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
