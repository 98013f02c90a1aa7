package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-invitations/internal/model"
	"github.com/iliyamo/cinema-invitations/internal/service"
)

// InvitationHandler serves check-in and invitation reads.
type InvitationHandler struct {
	Svc *service.InvitationService
}

func NewInvitationHandler(svc *service.InvitationService) *InvitationHandler {
	if svc == nil {
		panic("nil service passed to NewInvitationHandler")
	}
	return &InvitationHandler{Svc: svc}
}

// Checkin handles PATCH /v1/invitations/checkin/:id.
func (h *InvitationHandler) Checkin(c echo.Context) error {
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
	inv, err := h.Svc.Checkin(ctx, actor, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, inv)
}

// Get handles GET /v1/invitations/:id.
func (h *InvitationHandler) Get(c echo.Context) error {
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
	inv, err := h.Svc.Get(ctx, actor, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, inv)
}

// Stats handles GET /v1/invitations/stats.
func (h *InvitationHandler) Stats(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	stats, err := h.Svc.Stats(ctx, actor)
	if err != nil {
		return fail(c, err)
	}
	if stats == nil {
		stats = []model.InvitationStat{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": stats})
}
