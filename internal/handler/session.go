package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-invitations/internal/model"
	"github.com/iliyamo/cinema-invitations/internal/service"
)

// SessionHandler serves staff administration of sessions, cinemas and
// movies plus the public session reads.
type SessionHandler struct {
	Svc *service.SessionService
}

func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	if svc == nil {
		panic("nil service passed to NewSessionHandler")
	}
	return &SessionHandler{Svc: svc}
}

type sessionReq struct {
	Code      *uint64 `json:"code"`
	Name      *string `json:"name" validate:"omitempty,max=255"`
	StartDate *string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	StartTime *string `json:"startTime" validate:"omitempty,datetime=15:04"`
	MovieID   *uint64 `json:"movieId" validate:"omitempty,min=1"`
	CinemaID  *uint64 `json:"cinemaId" validate:"omitempty,min=1"`
	Active    *bool   `json:"active"`
}

func (r sessionReq) input() service.SessionInput {
	in := service.SessionInput{
		Code:      r.Code,
		Name:      r.Name,
		StartTime: r.StartTime,
		MovieID:   r.MovieID,
		CinemaID:  r.CinemaID,
		Active:    r.Active,
	}
	if r.StartDate != nil {
		// already checked by the datetime tag
		d, _ := time.Parse("2006-01-02", *r.StartDate)
		in.StartDate = &d
	}
	return in
}

type seatMapResp struct {
	SessionID      uint64       `json:"sessionId"`
	Rows           int          `json:"rows"`
	Cols           int          `json:"cols"`
	SeatsAvailable int          `json:"seatsAvailable"`
	SeatsLayout    model.Layout `json:"seatsLayout"`
}

// CreateSession handles POST /v1/sessions.
func (h *SessionHandler) CreateSession(c echo.Context) error {
	var req sessionReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	s, err := h.Svc.CreateSession(ctx, req.input())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// UpdateSession handles PATCH /v1/sessions/:id.
func (h *SessionHandler) UpdateSession(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req sessionReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	s, err := h.Svc.UpdateSession(ctx, id, req.input())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// DeleteSession handles DELETE /v1/sessions/:id.
func (h *SessionHandler) DeleteSession(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Svc.DeleteSession(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetSession handles GET /v1/sessions/:id.
func (h *SessionHandler) GetSession(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	d, err := h.Svc.GetSession(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// SeatMap handles GET /v1/sessions/:id/seats.
func (h *SessionHandler) SeatMap(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	d, err := h.Svc.GetSession(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, seatMapResp{
		SessionID:      d.ID,
		Rows:           d.SeatsLayout.Rows(),
		Cols:           d.SeatsLayout.Cols(),
		SeatsAvailable: d.SeatsAvailable,
		SeatsLayout:    d.SeatsLayout,
	})
}

type cinemaReq struct {
	Code        uint64  `json:"code" validate:"required"`
	Name        string  `json:"name" validate:"required,max=255"`
	SeatsLayout [][]int `json:"seatsLayout" validate:"required,min=1,dive,min=1,dive,oneof=0 1"`
	Active      *bool   `json:"active"`
}

// CreateCinema handles POST /v1/cinemas.
func (h *SessionHandler) CreateCinema(c echo.Context) error {
	var req cinemaReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	cinema := &model.Cinema{Code: req.Code, Name: req.Name, SeatsLayout: model.Layout(req.SeatsLayout), Active: true}
	if req.Active != nil {
		cinema.Active = *req.Active
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Svc.CreateCinema(ctx, cinema); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, cinema)
}

type movieReq struct {
	Title string `json:"title" validate:"required,max=255"`
}

// CreateMovie handles POST /v1/movies.
func (h *SessionHandler) CreateMovie(c echo.Context) error {
	var req movieReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	m := &model.Movie{Title: req.Title}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Svc.CreateMovie(ctx, m); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}
