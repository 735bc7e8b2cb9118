package api

import (
	"net/http"

	"github.com/kritgpt/matstat/pkg/api/resource"
	"github.com/kritgpt/matstat/pkg/broadcast"
	"github.com/kritgpt/matstat/pkg/storage"
	"github.com/kritgpt/matstat/pkg/training"
	"github.com/labstack/echo"
	log "github.com/sirupsen/logrus"
)

// Handler contains all properties to serve the API
type Handler struct {
	store storage.Interface
	mgr   *training.Manager
	gw    *training.Gateway
	hub   *broadcast.Hub
}

// NewHandler create a new API handler
func NewHandler(store storage.Interface, mgr *training.Manager, gw *training.Gateway, hub *broadcast.Hub) *Handler {
	return &Handler{
		store: store,
		mgr:   mgr,
		gw:    gw,
		hub:   hub,
	}
}

// RegisterRoutes attaches the handlers to the echo web server
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	log.Debug("Register API routes")
	api := e.Group("/api")
	api.POST("/sessions/start", h.handleStartSession)
	api.POST("/sessions/end", h.handleEndSession)
	api.GET("/sessions/active", h.handleGetActiveSession)
	api.GET("/sessions", h.handleFetchSessions)
	api.GET("/sessions/:id", h.handleGetSessionByID)
	api.GET("/sessions/:id/readings", h.handleFetchSessionReadings)
	api.DELETE("/sessions/:id", h.handleDeleteSession)

	api.POST("/sensor_data", h.handleSubmitSensorData)

	e.GET("/realtime", h.realtimeHandler())
}

func httpStatus(err error) int {
	switch training.ReasonOf(err) {
	case training.ErrReasonSessionActive:
		return http.StatusConflict
	case training.ErrReasonNotFound, training.ErrReasonInconsistentState:
		return http.StatusNotFound
	case training.ErrReasonNoActiveSession, training.ErrReasonMalformedBatch, training.ErrReasonEmptyBatch:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorJSON(c echo.Context, err error) error {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		log.Errorf("api: %s %s failed: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, resource.NewError(err))
}
