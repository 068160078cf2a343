package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/leadflowhq/leadflow/pkg/api/errors"
	"github.com/leadflowhq/leadflow/pkg/domain"
	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/pipeline"
)

// AuditRequestHandler exposes the lead conversion pipeline over HTTP.
// It carries no business logic; everything flows through the orchestrator.
type AuditRequestHandler struct {
	pipeline *pipeline.Service
	leads    domain.LeadStore
}

// NewAuditRequestHandler creates a new audit request handler
func NewAuditRequestHandler(p *pipeline.Service, leads domain.LeadStore) *AuditRequestHandler {
	return &AuditRequestHandler{
		pipeline: p,
		leads:    leads,
	}
}

// Submit accepts a new audit request and runs it through the pipeline
func (h *AuditRequestHandler) Submit(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.SubmitLeadRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, domain.NewValidationError("malformed request body"))
	}

	lead, err := h.pipeline.SubmitLead(ctx, req)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}

	return c.JSON(http.StatusCreated, models.SubmitLeadResponse{
		ID:        lead.ID,
		Status:    lead.Status,
		CreatedAt: lead.CreatedAt.Format(time.RFC3339),
	})
}

// Get returns a captured lead by id
func (h *AuditRequestHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	lead, err := h.leads.GetLead(ctx, c.Param("id"))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}

	return c.JSON(http.StatusOK, lead)
}
