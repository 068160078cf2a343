package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/leadflowhq/leadflow/pkg/domain"
	"github.com/leadflowhq/leadflow/pkg/models"
)

// CreateLead inserts a new lead with status "new". Leads are append-only:
// identical submissions produce distinct rows.
func (s *Store) CreateLead(ctx context.Context, lead models.NewLead) (*models.Lead, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO leads (id, contact_name, organization, contact_channel, goal, source_channel, originating_page, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, lead.ContactName, lead.Organization, lead.ContactChannel, lead.Goal,
		lead.SourceChannel, lead.OriginatingPage, models.LeadStatusNew, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert lead: %w", err)
	}

	return &models.Lead{
		ID:              id,
		ContactName:     lead.ContactName,
		Organization:    lead.Organization,
		ContactChannel:  lead.ContactChannel,
		Goal:            lead.Goal,
		SourceChannel:   lead.SourceChannel,
		OriginatingPage: lead.OriginatingPage,
		Status:          models.LeadStatusNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// GetLead fetches a lead by id
func (s *Store) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	var l models.Lead
	err := s.pool.QueryRow(ctx,
		`SELECT id, contact_name, organization, contact_channel, goal, source_channel, originating_page, status, created_at, updated_at
		 FROM leads WHERE id = $1`,
		id,
	).Scan(&l.ID, &l.ContactName, &l.Organization, &l.ContactChannel, &l.Goal,
		&l.SourceChannel, &l.OriginatingPage, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFoundError("lead")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead %s: %w", id, err)
	}
	return &l, nil
}

// UpdateStatus moves a lead forward in its lifecycle. Regressions are
// rejected; attribution fields are never touched.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) (*models.Lead, error) {
	if !models.IsValidLeadStatus(status) {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid lead status %q", status))
	}

	current, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransitionLeadStatus(current.Status, status) {
		return nil, domain.NewValidationError(
			fmt.Sprintf("cannot move lead from %s back to %s", current.Status, status))
	}

	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET status = $1, updated_at = $2 WHERE id = $3`,
		status, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update lead status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.NewNotFoundError("lead")
	}

	current.Status = status
	current.UpdatedAt = now
	return current, nil
}

// ListByStatus returns leads in a given status, newest first
func (s *Store) ListByStatus(ctx context.Context, status string, limit int) ([]models.Lead, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, contact_name, organization, contact_channel, goal, source_channel, originating_page, status, created_at, updated_at
		 FROM leads WHERE status = $1 ORDER BY created_at DESC LIMIT $2`,
		status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		var l models.Lead
		if err := rows.Scan(&l.ID, &l.ContactName, &l.Organization, &l.ContactChannel, &l.Goal,
			&l.SourceChannel, &l.OriginatingPage, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leads: %w", err)
	}
	return leads, nil
}
