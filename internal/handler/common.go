package handler // handler defines the HTTP handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-invitations/internal/logging"
	"github.com/iliyamo/cinema-invitations/internal/middleware"
	"github.com/iliyamo/cinema-invitations/internal/repository"
	"github.com/iliyamo/cinema-invitations/internal/service"
)

// requestTimeout bounds the DB work of a single request.
const requestTimeout = 5 * time.Second

var errNoUser = errors.New("invalid user_id in context")

// getUserID reads the caller's ID set by middleware.JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := c.Get(middleware.CtxUserID).(uint64); ok && id != 0 {
		return id, nil
	}
	return 0, errNoUser
}

// actorFrom builds the service actor of the authenticated caller.
func actorFrom(c echo.Context) (service.Actor, error) {
	id, err := getUserID(c)
	if err != nil {
		return service.Actor{}, err
	}
	role, _ := c.Get(middleware.CtxRole).(string)
	return service.Actor{UserID: id, Role: role}, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// statusOf maps a service or repository error to an HTTP status and a
// message that is safe to show the client.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrReservationNotFound),
		errors.Is(err, repository.ErrInvitationNotFound),
		errors.Is(err, repository.ErrCinemaNotFound),
		errors.Is(err, repository.ErrMovieNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, repository.ErrSeatsUnavailable):
		return http.StatusConflict, "one or more seats are not available"
	case errors.Is(err, service.ErrAlreadyCancelled),
		errors.Is(err, service.ErrAlreadyCheckedIn),
		errors.Is(err, repository.ErrDuplicateCode),
		errors.Is(err, repository.ErrEmailExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrInvitationNotValid):
		return http.StatusGone, err.Error()
	case errors.Is(err, repository.ErrSeatsNotOccupied):
		return http.StatusInternalServerError, "reservation seats are inconsistent"
	case errors.Is(err, service.ErrCascadeFailed):
		return http.StatusInternalServerError, "reservation cancelled but its invitations were not"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// fail writes the mapped error body.  Server errors are logged with the
// request-scoped logger.
func fail(c echo.Context, err error) error {
	status, msg := statusOf(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("request failed",
			"method", c.Request().Method, "path", c.Path(), "err", err)
	}
	return c.JSON(status, echo.Map{"error": msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
