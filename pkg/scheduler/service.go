package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/leadflowhq/leadflow/pkg/domain"
	"github.com/leadflowhq/leadflow/pkg/logger"
	"github.com/leadflowhq/leadflow/pkg/metrics"
	"github.com/leadflowhq/leadflow/pkg/models"
)

const dispatchBatchSize = 100

// Service manages durable delayed notifications. Rows live in Postgres, so
// pending schedules survive process restarts; the dispatch worker claims due
// rows and delivers them exactly once, with no retry on failure.
type Service struct {
	store             domain.NotificationStore
	notifier          domain.Notifier
	metrics           *metrics.Metrics
	maxScheduleWindow time.Duration
	expireGrace       time.Duration
	logger            logger.Logger
	now               func() time.Time
}

// NewService creates a new scheduler service
func NewService(store domain.NotificationStore, notifier domain.Notifier, m *metrics.Metrics, maxWindow, expireGrace time.Duration, log logger.Logger) *Service {
	if maxWindow <= 0 {
		maxWindow = 24 * time.Hour
	}
	if expireGrace <= 0 {
		expireGrace = 48 * time.Hour
	}
	return &Service{
		store:             store,
		notifier:          notifier,
		metrics:           m,
		maxScheduleWindow: maxWindow,
		expireGrace:       expireGrace,
		logger:            log,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// ScheduleOnce records a single pending notification for (lead, kind).
// A second pending schedule for the same pair is rejected, and so is any
// send time beyond the configured window. Neither rejection writes a row.
func (s *Service) ScheduleOnce(ctx context.Context, kind, leadID, recipient string, msg models.Message, sendAt time.Time) (*models.ScheduledNotification, error) {
	if leadID == "" {
		return nil, domain.NewValidationError("lead id is required")
	}
	if recipient == "" {
		return nil, domain.NewValidationError("recipient is required")
	}

	now := s.now()
	if sendAt.After(now.Add(s.maxScheduleWindow)) {
		return nil, domain.NewScheduleWindowExceededError(
			fmt.Sprintf("send time %s exceeds the %s scheduling window", sendAt.Format(time.RFC3339), s.maxScheduleWindow))
	}

	// Fast path; the partial unique index catches concurrent racers.
	pending, err := s.store.HasPending(ctx, leadID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to check for pending schedule: %w", err)
	}
	if pending {
		return nil, domain.NewDuplicateScheduleError(leadID, kind)
	}

	n, err := s.store.CreateNotification(ctx, &models.ScheduledNotification{
		LeadID:    leadID,
		Kind:      kind,
		Recipient: recipient,
		Subject:   msg.Subject,
		Body:      msg.Body,
		SendAt:    sendAt,
		Outcome:   models.NotificationOutcomePending,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("notification scheduled",
		"notification_id", n.ID,
		"lead_id", leadID,
		"kind", kind,
		"send_at", sendAt,
	)
	return n, nil
}

// RecordDelivery writes the ledger row for an immediate notification whose
// delivery has already been attempted. A nil sendErr records the row as
// sent; anything else records it as failed with the reason.
func (s *Service) RecordDelivery(ctx context.Context, kind, leadID, recipient string, msg models.Message, sendErr error) (*models.ScheduledNotification, error) {
	if leadID == "" {
		return nil, domain.NewValidationError("lead id is required")
	}
	if recipient == "" {
		return nil, domain.NewValidationError("recipient is required")
	}

	now := s.now()
	n := &models.ScheduledNotification{
		LeadID:    leadID,
		Kind:      kind,
		Recipient: recipient,
		Subject:   msg.Subject,
		Body:      msg.Body,
		SendAt:    now,
	}
	if sendErr != nil {
		reason := sendErr.Error()
		n.Outcome = models.NotificationOutcomeFailed
		n.FailureReason = &reason
	} else {
		sentAt := now
		n.Outcome = models.NotificationOutcomeSent
		n.SentAt = &sentAt
	}

	return s.store.CreateNotification(ctx, n)
}

// DispatchDue claims notifications due now and delivers them. Each row ends
// up sent or failed; failures carry a reason and are never retried.
func (s *Service) DispatchDue(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.store.ClaimDue(ctx, now, dispatchBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim due notifications: %w", err)
	}

	sent := 0
	for _, n := range due {
		msg := models.Message{Subject: n.Subject, Body: n.Body}
		if err := s.notifier.Send(ctx, n.Recipient, msg); err != nil {
			s.logger.Warn("notification delivery failed",
				"notification_id", n.ID,
				"lead_id", n.LeadID,
				"kind", n.Kind,
				"error", err,
			)
			if markErr := s.store.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
				s.logger.Error("failed to mark notification failed", "notification_id", n.ID, "error", markErr)
			}
			continue
		}

		if err := s.store.MarkSent(ctx, n.ID, s.now()); err != nil {
			s.logger.Error("failed to mark notification sent", "notification_id", n.ID, "error", err)
			continue
		}
		sent++
	}

	if len(due) > 0 {
		s.logger.Info("dispatched due notifications", "claimed", len(due), "sent", sent)
	}
	return sent, nil
}

// ExpireOverdue marks pending rows overdue past the grace period as expired.
// Runs at startup and hourly so rows orphaned by a crash don't fire stale.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.expireGrace)
	expired, err := s.store.ExpireOverdue(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.metrics.RecordNotificationsExpired(expired)
		s.logger.Warn("expired overdue notifications", "count", expired, "cutoff", cutoff)
	}
	return expired, nil
}
