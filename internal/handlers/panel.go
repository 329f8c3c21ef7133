package handlers

import (
	"errors"
	"net/http"

	"water_pump_monitor/internal/client"

	"github.com/gin-gonic/gin"
)

const (
	statusOK     = "ok"
	statusQueued = "queued"

	errGetDisplay   = "failed to load display"
	errPressControl = "failed to press control"
	errClientDown   = "telemetry client is not running"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// PressResponse documents the body of an accepted control press.
type PressResponse struct {
	Status  string `json:"status" example:"queued"`
	Control string `json:"control" example:"pumpOnBtn"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Current display
// @Description  The four display regions as last rendered, plus the state of the upstream connection.
// @Tags         display
// @Produce      json
// @Success      200  {object}  service.DisplayState
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/display [get]
func (h *Handler) getDisplay(c *gin.Context) {
	st, err := h.services.Monitoring.Display(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetDisplay, "display_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      List controls
// @Tags         controls
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "controls"
// @Router       /api/v1/controls [get]
func (h *Handler) listControls(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"controls": h.services.Controls.Available()})
}

// @Summary      Press a control
// @Description  Sends the matching command to the device if the connection is open. Nothing is queued while disconnected.
// @Tags         controls
// @Produce      json
// @Param        control  path  string  true  "Control id"  Enums(autoBtn,manualBtn,pumpOnBtn,pumpOffBtn)
// @Success      202  {object}  PressResponse
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/controls/{control} [post]
func (h *Handler) pressControl(c *gin.Context) {
	control := c.Param("control")
	err := h.services.Controls.Press(c.Request.Context(), control)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, PressResponse{Status: statusQueued, Control: control})
	case errors.Is(err, client.ErrUnknownControl):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, client.ErrNotRunning):
		h.logAndJSONError(c, http.StatusServiceUnavailable, errClientDown, "control_press_rejected", err, "control", control)
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errPressControl, "control_press_failed", err, "control", control)
	}
}
