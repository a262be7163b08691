package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-report-card/internal/models"
	"github.com/noah-isme/sma-report-card/pkg/response"
)

type tracker interface {
	RecordOpen(ctx context.Context, id string) error
	ConfirmView(ctx context.Context, id string) (time.Time, error)
	Status(ctx context.Context, id string) (models.TrackingStatus, error)
}

// TrackingHandler serves the open pixel and read confirmation endpoints.
type TrackingHandler struct {
	tracking tracker
}

// NewTrackingHandler constructs handler.
func NewTrackingHandler(tracking tracker) *TrackingHandler {
	return &TrackingHandler{tracking: tracking}
}

type confirmationResponse struct {
	ID          string    `json:"id"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// TrackOpen records an email open and answers with an empty body.
// GET /track_open/:id
func (h *TrackingHandler) TrackOpen(c *gin.Context) {
	if err := h.tracking.RecordOpen(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	response.NoContent(c)
}

// ConfirmView records that the parent has read the report.
// GET /confirm_view/:id
func (h *TrackingHandler) ConfirmView(c *gin.Context) {
	id := c.Param("id")
	at, err := h.tracking.ConfirmView(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, confirmationResponse{ID: id, ConfirmedAt: at})
}

// Status returns open and confirmation details.
// GET /tracking/:id
func (h *TrackingHandler) Status(c *gin.Context) {
	status, err := h.tracking.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}
