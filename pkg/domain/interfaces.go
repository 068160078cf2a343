package domain

import (
	"context"
	"time"

	"github.com/leadflowhq/leadflow/pkg/models"
)

// LeadStore defines data access operations for leads
type LeadStore interface {
	CreateLead(ctx context.Context, lead models.NewLead) (*models.Lead, error)
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Lead, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]models.Lead, error)
}

// FunnelStore defines data access operations for funnel events
type FunnelStore interface {
	AppendEvent(ctx context.Context, phase, sourceChannel string, leadID, note *string) (*models.FunnelEvent, error)
	CountByPhase(ctx context.Context, since time.Time) (map[string]int, error)
}

// NotificationStore defines data access operations for scheduled notifications
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.ScheduledNotification) (*models.ScheduledNotification, error)
	HasPending(ctx context.Context, leadID, kind string) (bool, error)
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledNotification, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id, reason string) error
	ExpireOverdue(ctx context.Context, cutoff time.Time) (int64, error)
	ListByLead(ctx context.Context, leadID string) ([]models.ScheduledNotification, error)
}

// CacheRepository defines caching operations
type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

// SyncResult is the outcome of a CRM forwarding attempt. Failures are
// reported through OK and Reason, never as a Go error.
type SyncResult struct {
	OK       bool
	RemoteID string
	Reason   string
}

// CRMSyncer forwards a captured lead to the external CRM
type CRMSyncer interface {
	SyncLead(ctx context.Context, lead *models.Lead) SyncResult
}

// Notifier delivers a composed message to a recipient
type Notifier interface {
	Send(ctx context.Context, recipient string, msg models.Message) error
}

// Composer builds notification messages from a lead
type Composer interface {
	ComposeWelcome(lead *models.Lead) (models.Message, error)
	ComposeFollowUp(lead *models.Lead) (models.Message, error)
}

// FunnelRecorder appends funnel events and serves stage reports
type FunnelRecorder interface {
	Record(ctx context.Context, phase, sourceChannel string, leadID, note *string) error
	Report(ctx context.Context, days int) (*models.FunnelReport, error)
}

// Scheduler manages the durable notification ledger, both delayed schedules
// and records of immediate deliveries
type Scheduler interface {
	ScheduleOnce(ctx context.Context, kind, leadID, recipient string, msg models.Message, sendAt time.Time) (*models.ScheduledNotification, error)
	RecordDelivery(ctx context.Context, kind, leadID, recipient string, msg models.Message, sendErr error) (*models.ScheduledNotification, error)
	DispatchDue(ctx context.Context) (int, error)
	ExpireOverdue(ctx context.Context) (int64, error)
}
