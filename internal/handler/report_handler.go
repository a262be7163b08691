package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-report-card/internal/models"
	"github.com/noah-isme/sma-report-card/internal/service"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
	"github.com/noah-isme/sma-report-card/pkg/response"
)

type reportGenerator interface {
	Generate(ctx context.Context, studentID string, opts service.ReportOptions) (*service.GeneratedReport, error)
	Export(ctx context.Context, report *service.GeneratedReport, format models.ReportFormat) (*service.ExportResult, error)
	ResolveDownload(token string) (*service.ReportDownload, error)
}

type reportDeliverer interface {
	Deliver(ctx context.Context, report *service.GeneratedReport, recipient string) (*service.DeliveryOutcome, error)
	Outcome(jobID string) (*service.DeliveryOutcome, error)
}

// ReportHandler exposes report endpoints.
type ReportHandler struct {
	reports  reportGenerator
	delivery reportDeliverer
}

// NewReportHandler constructs handler. delivery may be nil to disable email.
func NewReportHandler(reports reportGenerator, delivery reportDeliverer) *ReportHandler {
	return &ReportHandler{reports: reports, delivery: delivery}
}

type deliverRequest struct {
	Recipient string `json:"recipient" binding:"required,email"`
}

func parseReportOptions(c *gin.Context) (service.ReportOptions, error) {
	var opts service.ReportOptions
	if raw := c.Query("order"); raw != "" {
		order, err := models.ParseSortOrder(raw)
		if err != nil {
			return opts, err
		}
		opts.Order = order
	}
	if raw := c.Query("scale"); raw != "" {
		scale, err := models.ParseGPAScale(raw)
		if err != nil {
			return opts, err
		}
		opts.Scale = scale
	}
	return opts, nil
}

func (h *ReportHandler) generate(c *gin.Context) (*service.GeneratedReport, bool) {
	opts, err := parseReportOptions(c)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	report, err := h.reports.Generate(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return report, true
}

// StudentReport returns the computed report and its text rendering.
// GET /reports/:id?order=ascending|descending&scale=percent|four_point
func (h *ReportHandler) StudentReport(c *gin.Context) {
	report, ok := h.generate(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// ExportReport stores the report in the requested format and returns a signed link.
// POST /reports/:id/export?format=txt|csv|pdf
func (h *ReportHandler) ExportReport(c *gin.Context) {
	format, err := models.ParseReportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	report, ok := h.generate(c)
	if !ok {
		return
	}
	result, err := h.reports.Export(c.Request.Context(), report, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result)
}

// DeliverReport queues the report for email delivery to a parent.
// POST /reports/:id/deliver
func (h *ReportHandler) DeliverReport(c *gin.Context) {
	if h.delivery == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "report delivery disabled"))
		return
	}
	var req deliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "recipient must be a valid email"))
		return
	}
	report, ok := h.generate(c)
	if !ok {
		return
	}
	outcome, err := h.delivery.Deliver(c.Request.Context(), report, req.Recipient)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, outcome)
}

// DeliveryStatus reports the state of a queued delivery.
// GET /deliveries/:id
func (h *ReportHandler) DeliveryStatus(c *gin.Context) {
	if h.delivery == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "report delivery disabled"))
		return
	}
	outcome, err := h.delivery.Outcome(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome)
}

// DownloadReport streams a stored export referenced by a signed token.
// GET /export/:token
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	download, err := h.reports.ResolveDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), download.Format.ContentType(), download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
	})
}
