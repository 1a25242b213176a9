package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK        = "ok"
	statusOverride  = "override_set"
	statusReset     = "override_reset"
	statusRefreshed = "refresh_requested"

	errNoSnapshot     = "no snapshot available yet"
	errUnknownRoom    = "unknown room"
	errInvalidBody    = "invalid body: "
	errResetOverrides = "failed to reset overrides"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Request DTO for setting a room override.
type overrideRequest struct {
	Mode        string `json:"mode" binding:"required"` // comfort | eco | frost_guard | off
	DurationMin *int   `json:"duration_min,omitempty"`  // omit for an indefinite override
}

// SetOverrideRequest is an exported model for Swagger docs of the override payload.
type SetOverrideRequest struct {
	// Mode to pin. Allowed: comfort, eco, frost_guard, off
	Mode string `json:"mode" example:"comfort"`
	// Override lifetime in minutes; omit to keep it until reset
	DurationMin *int `json:"duration_min,omitempty" example:"120"`
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

// @Summary      Whole-house heating state
// @Description  Last decision snapshot: occupancy, outdoor temperature and every room's mode, targets and preheat plan.
// @Tags         heating
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string  "engine has not completed a cycle yet"
// @Router       /api/v1/heating/state [get]
// @Security     BearerAuth
func (h *Handler) getHouseState(c *gin.Context) {
	snap, ok := h.services.Monitoring.Snapshot()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errNoSnapshot})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary      Single room state
// @Tags         heating
// @Produce      json
// @Param        id   path      string  true  "Room id"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/heating/rooms/{id} [get]
// @Security     BearerAuth
func (h *Handler) getRoomState(c *gin.Context) {
	if _, ok := h.services.Monitoring.Snapshot(); !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errNoSnapshot})
		return
	}
	d, ok := h.services.Monitoring.Room(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errUnknownRoom})
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary      Room learning statistics
// @Tags         heating
// @Produce      json
// @Param        id   path      string  true  "Room id"
// @Success      200  {object}  map[string]interface{}  "samples, avg_rate, min_rate, max_rate"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/heating/rooms/{id}/learning [get]
// @Security     BearerAuth
func (h *Handler) getRoomLearning(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Learning.Stats(c.Param("id")))
}

// @Summary      Set room override
// @Description  Pins a room's mode ahead of every other signal, optionally for a limited duration.
// @Tags         heating
// @Accept       json
// @Produce      json
// @Param        id    path   string              true  "Room id"
// @Param        body  body   SetOverrideRequest  true  "Override payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/heating/rooms/{id}/override [put]
// @Security     BearerAuth
func (h *Handler) setOverride(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody + err.Error()})
		return
	}
	roomID := c.Param("id")
	if err := h.services.Heating.SetOverride(c.Request.Context(), roomID, req.Mode, req.DurationMin); err != nil {
		if h.log != nil {
			h.log.Errorw("override_set_failed", "err", err, "room", roomID, "mode", req.Mode)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOverride, "room": roomID, "mode": req.Mode})
}

// @Summary      Reset room override
// @Tags         heating
// @Produce      json
// @Param        id   path      string  true  "Room id"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/heating/rooms/{id}/override [delete]
// @Security     BearerAuth
func (h *Handler) resetOverride(c *gin.Context) {
	roomID := c.Param("id")
	if err := h.services.Heating.ResetOverride(c.Request.Context(), roomID); err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, err.Error(), "override_reset_failed", err, "room", roomID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusReset, "room": roomID})
}

// @Summary      Reset all overrides
// @Tags         heating
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/heating/overrides [delete]
// @Security     BearerAuth
func (h *Handler) resetAllOverrides(c *gin.Context) {
	if err := h.services.Heating.ResetOverride(c.Request.Context(), ""); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errResetOverrides, "overrides_reset_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusReset})
}

// @Summary      Force a decision cycle
// @Description  Queues an immediate refresh instead of waiting for the next scheduled tick.
// @Tags         heating
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/heating/refresh [post]
// @Security     BearerAuth
func (h *Handler) requestRefresh(c *gin.Context) {
	h.services.Heating.RequestRefresh()
	c.JSON(http.StatusAccepted, gin.H{"status": statusRefreshed})
}
