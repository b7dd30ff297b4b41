package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Thrusbalda/auto-work-log/internal/model"
	"github.com/Thrusbalda/auto-work-log/internal/service"
)

type TrackerHandler struct {
	trackerService *service.TrackerService
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func NewTrackerHandler(trackerService *service.TrackerService) *TrackerHandler {
	return &TrackerHandler{trackerService: trackerService}
}

func (h *TrackerHandler) GetState(c *gin.Context) {
	state, apiErr := h.trackerService.GetState(c.Request.Context())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TrackerHandler) Toggle(c *gin.Context) {
	result, apiErr := h.trackerService.Toggle(c.Request.Context())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *TrackerHandler) GetHistory(c *gin.Context) {
	limit := 50
	rawLimit := c.Query("limit")
	if rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil {
			limit = parsed
		}
	}

	sessions, apiErr := h.trackerService.History(c.Request.Context(), limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *TrackerHandler) GetSettings(c *gin.Context) {
	settings, apiErr := h.trackerService.GetSettings(c.Request.Context())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *TrackerHandler) UpdateSettings(c *gin.Context) {
	var req model.UserSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidBody(c, "")
		return
	}

	settings, apiErr := h.trackerService.UpdateSettings(c.Request.Context(), req)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *TrackerHandler) SetWorkLocation(c *gin.Context) {
	settings, apiErr := h.trackerService.SetWorkLocationFromCurrent(c.Request.Context())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *TrackerHandler) PushLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Latitude == nil || req.Longitude == nil {
		writeInvalidBody(c, "latitude and longitude are required")
		return
	}

	result, apiErr := h.trackerService.PushLocation(c.Request.Context(), model.Coordinate{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusAccepted, result)
}

func (h *TrackerHandler) GetReport(c *gin.Context) {
	r, apiErr := h.trackerService.Report(c.Request.Context())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": r})
}

func (h *TrackerHandler) Insight(c *gin.Context) {
	text, apiErr := h.trackerService.Insight(c.Request.Context())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"insight": text})
}
