// Package api exposes a read-only HTTP view of the download coordinator.
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/ytget/yt-music-bot/internal/download"
	"github.com/ytget/yt-music-bot/internal/logger"
)

// StatusSource is the part of the download manager the API reads
type StatusSource interface {
	Snapshot(userID int64) download.UserSnapshot
	Users() []int64
}

// NewServer builds the echo instance with all routes registered
func NewServer(source StatusSource, maxParallel int, log *logger.Logger) *echo.Echo {
	e := echo.New()
	RegisterRoutes(e, source, maxParallel, log)
	return e
}

// RegisterRoutes wires the status endpoints into e
func RegisterRoutes(e *echo.Echo, source StatusSource, maxParallel int, log *logger.Logger) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("api")

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	ctrl := &StatusController{Source: source, MaxParallel: maxParallel}

	e.GET("/healthz", ctrl.Health)
	e.GET("/api/users", ctrl.ListUsers)
	e.GET("/api/users/:id", ctrl.GetUser)
}

// StatusController serves coordinator snapshots
type StatusController struct {
	Source      StatusSource
	MaxParallel int
}

// Health reports liveness
func (ctrl *StatusController) Health(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", MaxParallel: ctrl.MaxParallel})
}

// ListUsers returns a snapshot of every user with work in flight
func (ctrl *StatusController) ListUsers(c *echo.Context) error {
	ids := ctrl.Source.Users()
	resp := UsersResponse{Users: make([]download.UserSnapshot, 0, len(ids))}
	for _, id := range ids {
		resp.Users = append(resp.Users, ctrl.Source.Snapshot(id))
	}
	return c.JSON(http.StatusOK, resp)
}

// GetUser returns one user's snapshot. Idle users are 404.
func (ctrl *StatusController) GetUser(c *echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
	}

	snap := ctrl.Source.Snapshot(id)
	if snap.Idle() {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "user has nothing in flight"})
	}
	return c.JSON(http.StatusOK, snap)
}
