package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/leadflowhq/leadflow/pkg/api/errors"
	"github.com/leadflowhq/leadflow/pkg/domain"
	"github.com/leadflowhq/leadflow/pkg/models"
)

// FunnelHandler handles funnel reporting operations
type FunnelHandler struct {
	funnel domain.FunnelRecorder
}

// NewFunnelHandler creates a new funnel handler
func NewFunnelHandler(funnel domain.FunnelRecorder) *FunnelHandler {
	return &FunnelHandler{funnel: funnel}
}

// GetReport returns per-phase counts and conversion rates
func (h *FunnelHandler) GetReport(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	days := 30
	if daysStr := c.QueryParam("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed < 1 || parsed > 365 {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_days",
				Message: "days must be between 1 and 365",
			})
		}
		days = parsed
	}

	report, err := h.funnel.Report(ctx, days)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}

	return c.JSON(http.StatusOK, report)
}

// RecordEvent appends a funnel event (e.g. a landing page visit)
func (h *FunnelHandler) RecordEvent(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var req struct {
		Phase         string  `json:"phase"`
		SourceChannel string  `json:"source_channel"`
		LeadID        *string `json:"lead_id,omitempty"`
		Note          *string `json:"note,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, domain.NewValidationError("malformed request body"))
	}

	if err := h.funnel.Record(ctx, req.Phase, req.SourceChannel, req.LeadID, req.Note); err != nil {
		return apierrors.FromDomain(c, err)
	}

	return c.NoContent(http.StatusAccepted)
}
