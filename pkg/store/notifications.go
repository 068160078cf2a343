package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/leadflowhq/leadflow/pkg/domain"
	"github.com/leadflowhq/leadflow/pkg/models"
)

// uniqueViolation is the SQLSTATE raised by the partial unique index when a
// second pending row for the same (lead, kind) sneaks past the fast-path check.
const uniqueViolation = "23505"

// CreateNotification inserts a notification row. A concurrent duplicate
// pending row surfaces as a duplicate schedule error, not a raw pg error.
func (s *Store) CreateNotification(ctx context.Context, n *models.ScheduledNotification) (*models.ScheduledNotification, error) {
	out := *n
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	if out.Outcome == "" {
		out.Outcome = models.NotificationOutcomePending
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO scheduled_notifications (id, lead_id, kind, recipient, subject, body, send_at, sent_at, outcome, failure_reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		out.ID, out.LeadID, out.Kind, out.Recipient, out.Subject, out.Body,
		out.SendAt, out.SentAt, out.Outcome, out.FailureReason, out.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.NewDuplicateScheduleError(out.LeadID, out.Kind)
		}
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}
	return &out, nil
}

// HasPending reports whether a pending notification exists for (lead, kind)
func (s *Store) HasPending(ctx context.Context, leadID, kind string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM scheduled_notifications WHERE lead_id = $1 AND kind = $2 AND outcome = 'pending')`,
		leadID, kind,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending notification: %w", err)
	}
	return exists, nil
}

// ClaimDue atomically claims pending notifications due at or before now,
// oldest first, moving them to 'sending'. SKIP LOCKED keeps overlapping
// dispatch runs from claiming the same row, so each notification is
// delivered by exactly one worker.
func (s *Store) ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledNotification, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`UPDATE scheduled_notifications SET outcome = 'sending'
		 WHERE id IN (
			SELECT id FROM scheduled_notifications
			WHERE outcome = 'pending' AND send_at <= $1
			ORDER BY send_at ASC LIMIT $2
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, lead_id, kind, recipient, subject, body, send_at, sent_at, outcome, failure_reason, created_at`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query due notifications: %w", err)
	}
	defer rows.Close()

	var due []models.ScheduledNotification
	for rows.Next() {
		var n models.ScheduledNotification
		if err := rows.Scan(&n.ID, &n.LeadID, &n.Kind, &n.Recipient, &n.Subject, &n.Body,
			&n.SendAt, &n.SentAt, &n.Outcome, &n.FailureReason, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		due = append(due, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read due notifications: %w", err)
	}
	return due, nil
}

// MarkSent records a successful delivery for a claimed row
func (s *Store) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scheduled_notifications SET outcome = 'sent', sent_at = $1 WHERE id = $2 AND outcome = 'sending'`,
		sentAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("claimed notification")
	}
	return nil
}

// MarkFailed records a delivery failure for a claimed row. No retry follows.
func (s *Store) MarkFailed(ctx context.Context, id, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scheduled_notifications SET outcome = 'failed', failure_reason = $1 WHERE id = $2 AND outcome = 'sending'`,
		reason, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("claimed notification")
	}
	return nil
}

// ExpireOverdue marks unresolved rows whose send_at is older than the cutoff
// as expired. Rows left in 'sending' by a crashed worker are swept up too.
// Used by the startup and hourly reconciliation sweeps.
func (s *Store) ExpireOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scheduled_notifications SET outcome = 'expired', failure_reason = 'overdue at sweep' WHERE outcome IN ('pending', 'sending') AND send_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire overdue notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListByLead returns all notification rows for a lead, oldest first
func (s *Store) ListByLead(ctx context.Context, leadID string) ([]models.ScheduledNotification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lead_id, kind, recipient, subject, body, send_at, sent_at, outcome, failure_reason, created_at
		 FROM scheduled_notifications WHERE lead_id = $1 ORDER BY created_at ASC`,
		leadID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []models.ScheduledNotification
	for rows.Next() {
		var n models.ScheduledNotification
		if err := rows.Scan(&n.ID, &n.LeadID, &n.Kind, &n.Recipient, &n.Subject, &n.Body,
			&n.SendAt, &n.SentAt, &n.Outcome, &n.FailureReason, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notifications: %w", err)
	}
	return out, nil
}
