package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-invitations/internal/model"
	"github.com/iliyamo/cinema-invitations/internal/service"
)

// ReservationHandler serves the reservation ledger.
type ReservationHandler struct {
	Svc *service.ReservationService
}

func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Svc: svc}
}

type createReservationReq struct {
	SessionID     uint64   `json:"sessionId" validate:"required"`
	Seats         [][]int  `json:"seats" validate:"required,min=1,dive,len=2"`
	Notifications []string `json:"notifications" validate:"required"`
	ReservedSeats *int     `json:"reservedSeats" validate:"omitempty,min=1"`
}

type reservationResp struct {
	Reservation *model.Reservation `json:"reservation"`
	Invitations []model.Invitation `json:"invitations,omitempty"`
}

// Create handles POST /v1/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReservationReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	seats := make([]model.SeatCoord, len(req.Seats))
	for i, s := range req.Seats {
		seats[i] = model.SeatCoord{s[0], s[1]}
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	res, invs, err := h.Svc.Create(ctx, actor, service.CreateReservationInput{
		SessionID:     req.SessionID,
		Seats:         seats,
		Notifications: req.Notifications,
		ReservedSeats: req.ReservedSeats,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, reservationResp{Reservation: res, Invitations: invs})
}

// Cancel handles PATCH /v1/reservations/cancel/:id.  A failed invitation
// cascade is reported as a server error even though the reservation is
// cancelled.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.Svc.Cancel(ctx, actor, id)
	if err != nil {
		if errors.Is(err, service.ErrCascadeFailed) && res != nil {
			status, msg := statusOf(err)
			return c.JSON(status, echo.Map{"error": msg, "reservation": res})
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, reservationResp{Reservation: res})
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.Svc.Get(ctx, actor, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// List handles GET /v1/reservations.
func (h *ReservationHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := h.Svc.List(ctx, actor)
	if err != nil {
		return fail(c, err)
	}
	if items == nil {
		items = []model.Reservation{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Invitations handles GET /v1/reservations/:id/invitations.
func (h *ReservationHandler) Invitations(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := h.Svc.Invitations(ctx, actor, id)
	if err != nil {
		return fail(c, err)
	}
	if items == nil {
		items = []model.Invitation{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
