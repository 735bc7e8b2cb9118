package api

import (
	"io/ioutil"
	"net/http"

	"github.com/kritgpt/matstat/pkg/api/resource"
	"github.com/labstack/echo"
)

func (h *Handler) handleSubmitSensorData(c echo.Context) error {
	body, err := ioutil.ReadAll(c.Request().Body)
	if err != nil {
		return errorJSON(c, err)
	}

	n, err := h.gw.SubmitPayload(body)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusCreated, resource.NewMessage("Received %d sensor readings", n))
}
