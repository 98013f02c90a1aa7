package router // package router registers the HTTP routes of the API

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-invitations/internal/config"
	"github.com/iliyamo/cinema-invitations/internal/handler"
	"github.com/iliyamo/cinema-invitations/internal/middleware"
	"github.com/iliyamo/cinema-invitations/internal/model"
)

// Deps carries everything the routes need.  Redis may be nil, which
// turns the rate limiter and the session cache into pass-through.
type Deps struct {
	Cfg          config.Config
	RateLimit    config.RateLimitConfig
	Cache        config.CacheConfig
	Redis        *redis.Client
	Log          *slog.Logger
	Health       handler.Pinger
	Auth         *handler.AuthHandler
	Reservations *handler.ReservationHandler
	Invitations  *handler.InvitationHandler
	Sessions     *handler.SessionHandler
}

// New builds the echo instance with global middleware and every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover(), echomw.RequestID(), middleware.RequestLogger(d.Log))

	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterPublic(e, d)
	RegisterReservations(e, d)
	RegisterStaff(e, d)
	return e
}

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.Health))
}

// RegisterAuth registers /v1/auth and the authenticated /v1/me.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/v1/auth")
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/logout", d.Auth.Logout)

	e.GET("/v1/me", d.Auth.Me, middleware.JWTAuth(d.Cfg.JWTSecret))
}

// RegisterPublic registers the unauthenticated session reads behind the
// Redis response cache.
func RegisterPublic(e *echo.Echo, d Deps) {
	g := e.Group("/v1/sessions", middleware.NewSessionCache(d.Cache, d.Redis, d.Log))
	g.GET("/:id", d.Sessions.GetSession)
	g.GET("/:id/seats", d.Sessions.SeatMap)
}

// RegisterReservations registers the endpoints any signed-in user may
// call.  Ownership is checked by the services; elevated roles may act on
// other users' records.  Reservation writes are rate limited per user.
func RegisterReservations(e *echo.Echo, d Deps) {
	g := e.Group("/v1",
		middleware.JWTAuth(d.Cfg.JWTSecret),
		middleware.RequireRole(model.RoleUser, model.RoleTicketAdmin, model.RoleAdmin),
	)
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)

	g.POST("/reservations", d.Reservations.Create, limit)
	g.PATCH("/reservations/cancel/:id", d.Reservations.Cancel, limit)
	g.GET("/reservations", d.Reservations.List)
	g.GET("/reservations/:id", d.Reservations.Get)
	g.GET("/reservations/:id/invitations", d.Reservations.Invitations)

	g.PATCH("/invitations/checkin/:id", d.Invitations.Checkin)
	g.GET("/invitations/stats", d.Invitations.Stats)
	g.GET("/invitations/:id", d.Invitations.Get)
}

// RegisterStaff registers reference data and session administration.
// Only ADMIN may write it.
func RegisterStaff(e *echo.Echo, d Deps) {
	g := e.Group("/v1",
		middleware.JWTAuth(d.Cfg.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/cinemas", d.Sessions.CreateCinema)
	g.POST("/movies", d.Sessions.CreateMovie)
	g.POST("/sessions", d.Sessions.CreateSession)
	g.PATCH("/sessions/:id", d.Sessions.UpdateSession)
	g.DELETE("/sessions/:id", d.Sessions.DeleteSession)
}
