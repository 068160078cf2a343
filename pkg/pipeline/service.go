package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/leadflowhq/leadflow/pkg/domain"
	"github.com/leadflowhq/leadflow/pkg/logger"
	"github.com/leadflowhq/leadflow/pkg/metrics"
	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/phone"
)

// Service orchestrates the lead conversion pipeline. Validation and
// persistence are the only fatal steps; everything downstream (funnel
// event, CRM sync, welcome, follow-up) degrades to a logged failure so a
// submitted lead is never lost to a flaky collaborator.
type Service struct {
	leads     domain.LeadStore
	funnel    domain.FunnelRecorder
	crm       domain.CRMSyncer
	composer  domain.Composer
	notifier  domain.Notifier
	scheduler domain.Scheduler
	metrics   *metrics.Metrics
	logger    logger.Logger
	validate  *validator.Validate

	followUpDelay     time.Duration
	sideEffectTimeout time.Duration

	wg sync.WaitGroup
}

// NewService creates a new pipeline orchestrator
func NewService(
	leads domain.LeadStore,
	funnel domain.FunnelRecorder,
	crm domain.CRMSyncer,
	composer domain.Composer,
	notifier domain.Notifier,
	scheduler domain.Scheduler,
	m *metrics.Metrics,
	log logger.Logger,
	followUpDelay, sideEffectTimeout time.Duration,
) *Service {
	if followUpDelay <= 0 {
		followUpDelay = 24 * time.Hour
	}
	if sideEffectTimeout <= 0 {
		sideEffectTimeout = 30 * time.Second
	}
	return &Service{
		leads:             leads,
		funnel:            funnel,
		crm:               crm,
		composer:          composer,
		notifier:          notifier,
		scheduler:         scheduler,
		metrics:           m,
		logger:            log,
		validate:          validator.New(),
		followUpDelay:     followUpDelay,
		sideEffectTimeout: sideEffectTimeout,
	}
}

// SubmitLead captures a lead. On return the lead is durably persisted and
// its funnel event recorded; CRM sync, the welcome message and the follow-up
// schedule continue in the background.
func (s *Service) SubmitLead(ctx context.Context, req models.SubmitLeadRequest) (*models.Lead, error) {
	if err := s.validateRequest(req); err != nil {
		s.metrics.RecordLeadSubmitted(false)
		return nil, err
	}

	lead, err := s.leads.CreateLead(ctx, models.NewLead{
		ContactName:     strings.TrimSpace(req.ContactName),
		Organization:    strings.TrimSpace(req.Organization),
		ContactChannel:  phone.NormalizeContactChannel(strings.TrimSpace(req.ContactChannel)),
		Goal:            strings.TrimSpace(req.Goal),
		SourceChannel:   strings.TrimSpace(req.SourceChannel),
		OriginatingPage: strings.TrimSpace(req.OriginatingPage),
	})
	if err != nil {
		s.metrics.RecordLeadSubmitted(false)
		return nil, domain.NewStorageError("create lead", err)
	}

	s.metrics.RecordLeadSubmitted(true)
	s.logger.Info("lead captured",
		"lead_id", lead.ID,
		"organization", lead.Organization,
		"source_channel", lead.SourceChannel,
	)

	if err := s.funnel.Record(ctx, models.FunnelPhaseLead, lead.SourceChannel, &lead.ID, nil); err != nil {
		s.metrics.RecordAdvisoryFailure("funnel")
		s.logger.Warn("funnel event not recorded", "lead_id", lead.ID, "error", err)
	} else {
		s.metrics.RecordFunnelEvent()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runSideEffects(lead)
	}()

	return lead, nil
}

// Drain waits for in-flight side-effect goroutines. Called on shutdown and
// by tests that need deterministic completion.
func (s *Service) Drain() {
	s.wg.Wait()
}

func (s *Service) validateRequest(req models.SubmitLeadRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return domain.NewValidationError(validationMessage(err))
	}
	if strings.TrimSpace(req.ContactName) == "" {
		return domain.NewValidationError("contact name is required")
	}
	if strings.TrimSpace(req.Organization) == "" {
		return domain.NewValidationError("organization is required")
	}
	if strings.TrimSpace(req.ContactChannel) == "" {
		return domain.NewValidationError("contact channel is required")
	}
	if strings.TrimSpace(req.Goal) == "" {
		return domain.NewValidationError("goal is required")
	}
	return nil
}

// runSideEffects performs the advisory stages after acknowledgement: CRM
// forwarding, immediate welcome, and follow-up scheduling. Every failure is
// logged and counted; none of them surfaces to the submitter.
func (s *Service) runSideEffects(lead *models.Lead) {
	ctx, cancel := context.WithTimeout(context.Background(), s.sideEffectTimeout)
	defer cancel()

	log := s.logger.With("lead_id", lead.ID)

	result := s.crm.SyncLead(ctx, lead)
	s.metrics.RecordCRMSync(result.OK)
	if !result.OK {
		s.metrics.RecordAdvisoryFailure("crm_sync")
		log.Warn("crm sync failed", "reason", result.Reason)
	}

	s.sendWelcome(ctx, lead, log)
	s.scheduleFollowUp(ctx, lead, log)
}

// sendWelcome attempts immediate delivery and records the outcome in the
// notification ledger as a welcome row, sent or failed.
func (s *Service) sendWelcome(ctx context.Context, lead *models.Lead, log logger.Logger) {
	msg, err := s.composer.ComposeWelcome(lead)
	if err != nil {
		s.metrics.RecordAdvisoryFailure("welcome")
		log.Warn("welcome composition failed", "error", err)
		return
	}

	sendErr := s.notifier.Send(ctx, lead.ContactChannel, msg)
	if _, recErr := s.scheduler.RecordDelivery(ctx, models.NotificationKindWelcome, lead.ID, lead.ContactChannel, msg, sendErr); recErr != nil {
		log.Warn("welcome outcome not recorded", "error", recErr)
	}

	if sendErr != nil {
		s.metrics.RecordNotificationSent(models.NotificationKindWelcome, false)
		s.metrics.RecordAdvisoryFailure("welcome")
		log.Warn("welcome delivery failed", "error", sendErr)
		return
	}

	s.metrics.RecordNotificationSent(models.NotificationKindWelcome, true)
	log.Info("welcome sent")
}

func (s *Service) scheduleFollowUp(ctx context.Context, lead *models.Lead, log logger.Logger) {
	msg, err := s.composer.ComposeFollowUp(lead)
	if err != nil {
		s.metrics.RecordAdvisoryFailure("follow_up")
		log.Warn("follow-up composition failed", "error", err)
		return
	}

	sendAt := time.Now().UTC().Add(s.followUpDelay)
	_, err = s.scheduler.ScheduleOnce(ctx, models.NotificationKindFollowUp24, lead.ID, lead.ContactChannel, msg, sendAt)
	switch {
	case err == nil:
		s.metrics.RecordFollowUpScheduled("scheduled")
		log.Info("follow-up scheduled", "send_at", sendAt)
	case domain.IsDuplicateSchedule(err):
		s.metrics.RecordFollowUpScheduled("duplicate")
		log.Info("follow-up already pending")
	default:
		s.metrics.RecordFollowUpScheduled("rejected")
		s.metrics.RecordAdvisoryFailure("follow_up")
		log.Warn("follow-up scheduling failed", "error", err)
	}
}

func validationMessage(err error) string {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("field %s failed validation on %s", fe.Field(), fe.Tag())
	}
	return "invalid submission payload"
}
