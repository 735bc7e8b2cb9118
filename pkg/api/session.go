package api

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/kritgpt/matstat/pkg/api/resource"
	"github.com/kritgpt/matstat/pkg/model"
	"github.com/kritgpt/matstat/pkg/storage"
	"github.com/kritgpt/matstat/pkg/training"
	"github.com/labstack/echo"
	"github.com/pkg/errors"
)

func (h *Handler) handleStartSession(c echo.Context) error {
	r := &resource.SessionStartRequest{}

	// The body is optional
	body, err := ioutil.ReadAll(c.Request().Body)
	if err != nil {
		return errorJSON(c, err)
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, r); err != nil {
			return c.JSON(http.StatusBadRequest, resource.NewMessage("Invalid data format"))
		}
	}

	d, err := h.mgr.StartSession(r.TrainingType)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusCreated, resource.NewSessionStarted(d))
}

func (h *Handler) handleEndSession(c echo.Context) error {
	s, err := h.mgr.EndSession()
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, resource.NewSessionEnded(s))
}

func (h *Handler) handleGetActiveSession(c echo.Context) error {
	d, err := h.mgr.GetActiveSession()
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, resource.NewActiveSession(d))
}

func (h *Handler) handleFetchSessions(c echo.Context) error {
	m, err := h.store.Sessions().FetchAll()
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, resource.NewSessionList(m))
}

func (h *Handler) handleGetSessionByID(c echo.Context) error {
	id, err := sessionIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewMessage("Invalid session id"))
	}

	m, err := h.findSession(id)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, resource.NewSession(m))
}

func (h *Handler) handleFetchSessionReadings(c echo.Context) error {
	id, err := sessionIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewMessage("Invalid session id"))
	}

	if _, err := h.findSession(id); err != nil {
		return errorJSON(c, err)
	}

	ms, err := h.store.Readings().FetchBySession(id)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, resource.NewReadingList(id, ms))
}

func (h *Handler) handleDeleteSession(c echo.Context) error {
	id, err := sessionIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewMessage("Invalid session id"))
	}

	if err := h.mgr.DeleteSession(id); err != nil {
		return errorJSON(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) findSession(id int64) (*model.Session, error) {
	m, err := h.store.Sessions().FindByID(id)
	if errors.Cause(err) == storage.ErrNotFound {
		return nil, training.NewNotFoundError(fmt.Sprintf("Session %d not found", id))
	}
	return m, err
}

func sessionIDParam(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
