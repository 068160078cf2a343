package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflowhq/leadflow/pkg/domain"
	"github.com/leadflowhq/leadflow/pkg/logger"
	"github.com/leadflowhq/leadflow/pkg/metrics"
	"github.com/leadflowhq/leadflow/pkg/models"
	"github.com/leadflowhq/leadflow/pkg/notify"
	"github.com/leadflowhq/leadflow/pkg/scheduler"
)

// memLeadStore is an in-memory LeadStore
type memLeadStore struct {
	leads     []models.Lead
	createErr error
}

func (m *memLeadStore) CreateLead(_ context.Context, lead models.NewLead) (*models.Lead, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	now := time.Now().UTC()
	l := models.Lead{
		ID:              fmt.Sprintf("lead-%d", len(m.leads)+1),
		ContactName:     lead.ContactName,
		Organization:    lead.Organization,
		ContactChannel:  lead.ContactChannel,
		Goal:            lead.Goal,
		SourceChannel:   lead.SourceChannel,
		OriginatingPage: lead.OriginatingPage,
		Status:          models.LeadStatusNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	m.leads = append(m.leads, l)
	return &l, nil
}

func (m *memLeadStore) GetLead(_ context.Context, id string) (*models.Lead, error) {
	for i := range m.leads {
		if m.leads[i].ID == id {
			return &m.leads[i], nil
		}
	}
	return nil, domain.NewNotFoundError("lead")
}

func (m *memLeadStore) UpdateStatus(_ context.Context, id, status string) (*models.Lead, error) {
	return nil, errors.New("not used in pipeline tests")
}

func (m *memLeadStore) ListByStatus(_ context.Context, status string, _ int) ([]models.Lead, error) {
	var out []models.Lead
	for _, l := range m.leads {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out, nil
}

// memFunnel records funnel events in memory
type memFunnel struct {
	events    []models.FunnelEvent
	recordErr error
}

func (m *memFunnel) Record(_ context.Context, phase, sourceChannel string, leadID, note *string) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.events = append(m.events, models.FunnelEvent{
		ID:            fmt.Sprintf("ev-%d", len(m.events)+1),
		Phase:         phase,
		SourceChannel: sourceChannel,
		LeadID:        leadID,
		Note:          note,
		CreatedAt:     time.Now().UTC(),
	})
	return nil
}

func (m *memFunnel) Report(_ context.Context, days int) (*models.FunnelReport, error) {
	return &models.FunnelReport{Days: days}, nil
}

// stubCRM returns a fixed SyncResult
type stubCRM struct {
	result domain.SyncResult
	calls  int
}

func (s *stubCRM) SyncLead(_ context.Context, _ *models.Lead) domain.SyncResult {
	s.calls++
	return s.result
}

// failingComposer always fails composition
type failingComposer struct{}

func (failingComposer) ComposeWelcome(_ *models.Lead) (models.Message, error) {
	return models.Message{}, domain.NewTemplateError("welcome template broken")
}

func (failingComposer) ComposeFollowUp(_ *models.Lead) (models.Message, error) {
	return models.Message{}, domain.NewTemplateError("follow-up template broken")
}

// memNotifier records deliveries and can be set to fail
type memNotifier struct {
	sent    []string
	sendErr error
}

func (m *memNotifier) Send(_ context.Context, recipient string, _ models.Message) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, recipient)
	return nil
}

// memNotificationStore backs the real scheduler service in tests
type memNotificationStore struct {
	rows []models.ScheduledNotification
}

func (m *memNotificationStore) CreateNotification(_ context.Context, n *models.ScheduledNotification) (*models.ScheduledNotification, error) {
	out := *n
	out.ID = fmt.Sprintf("n-%d", len(m.rows)+1)
	if out.Outcome == "" {
		out.Outcome = models.NotificationOutcomePending
	}
	if out.Outcome == models.NotificationOutcomePending {
		for _, r := range m.rows {
			if r.LeadID == out.LeadID && r.Kind == out.Kind && r.Outcome == models.NotificationOutcomePending {
				return nil, domain.NewDuplicateScheduleError(out.LeadID, out.Kind)
			}
		}
	}
	m.rows = append(m.rows, out)
	return &out, nil
}

func (m *memNotificationStore) HasPending(_ context.Context, leadID, kind string) (bool, error) {
	for _, r := range m.rows {
		if r.LeadID == leadID && r.Kind == kind && r.Outcome == models.NotificationOutcomePending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memNotificationStore) ClaimDue(_ context.Context, now time.Time, limit int) ([]models.ScheduledNotification, error) {
	return nil, nil
}

func (m *memNotificationStore) MarkSent(_ context.Context, id string, sentAt time.Time) error {
	return nil
}

func (m *memNotificationStore) MarkFailed(_ context.Context, id, reason string) error {
	return nil
}

func (m *memNotificationStore) ExpireOverdue(_ context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (m *memNotificationStore) ListByLead(_ context.Context, leadID string) ([]models.ScheduledNotification, error) {
	var out []models.ScheduledNotification
	for _, r := range m.rows {
		if r.LeadID == leadID {
			out = append(out, r)
		}
	}
	return out, nil
}

type testEnv struct {
	svc           *Service
	leads         *memLeadStore
	funnel        *memFunnel
	crm           *stubCRM
	notifier      *memNotifier
	notifications *memNotificationStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Default()
	env := &testEnv{
		leads:         &memLeadStore{},
		funnel:        &memFunnel{},
		crm:           &stubCRM{result: domain.SyncResult{OK: true, RemoteID: "crm-1"}},
		notifier:      &memNotifier{},
		notifications: &memNotificationStore{},
	}
	sched := scheduler.NewService(env.notifications, env.notifier, metrics.New(), 24*time.Hour, 48*time.Hour, log)
	env.svc = NewService(env.leads, env.funnel, env.crm, notify.NewComposer(), env.notifier,
		sched, metrics.New(), log, 24*time.Hour, 5*time.Second)
	return env
}

// notificationsByKind filters a lead's ledger rows by kind
func notificationsByKind(rows []models.ScheduledNotification, kind string) []models.ScheduledNotification {
	var out []models.ScheduledNotification
	for _, r := range rows {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

func validSubmission() models.SubmitLeadRequest {
	return models.SubmitLeadRequest{
		ContactName:     "Mario Rossi",
		Organization:    "Acme SRL",
		ContactChannel:  "+39 333 111 2233",
		Goal:            "aumentare-vendite",
		SourceChannel:   "facebook",
		OriginatingPage: "landing-fb",
	}
}

func TestSubmitLead_ValidationFailureRunsNothing(t *testing.T) {
	env := newTestEnv(t)

	req := validSubmission()
	req.ContactName = "   "

	_, err := env.svc.SubmitLead(context.Background(), req)
	env.svc.Drain()

	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, env.leads.leads)
	assert.Empty(t, env.funnel.events)
	assert.Zero(t, env.crm.calls)
	assert.Empty(t, env.notifications.rows)
}

func TestSubmitLead_PersistFailureStopsPipeline(t *testing.T) {
	env := newTestEnv(t)
	env.leads.createErr = errors.New("connection refused")

	_, err := env.svc.SubmitLead(context.Background(), validSubmission())
	env.svc.Drain()

	require.Error(t, err)
	assert.True(t, domain.IsStorage(err))
	assert.Empty(t, env.funnel.events)
	assert.Zero(t, env.crm.calls)
	assert.Empty(t, env.notifications.rows)
}

func TestSubmitLead_SucceedsWhenAllDownstreamCollaboratorsFail(t *testing.T) {
	env := newTestEnv(t)
	env.crm.result = domain.SyncResult{OK: false, Reason: "crm down"}
	env.funnel.recordErr = errors.New("funnel store down")

	log := logger.Default()
	sched := scheduler.NewService(env.notifications, env.notifier, metrics.New(), 24*time.Hour, 48*time.Hour, log)
	env.svc = NewService(env.leads, env.funnel, env.crm, failingComposer{}, env.notifier,
		sched, metrics.New(), log, 24*time.Hour, 5*time.Second)

	lead, err := env.svc.SubmitLead(context.Background(), validSubmission())
	env.svc.Drain()

	require.NoError(t, err, "downstream failures must not reach the submitter")
	require.NotNil(t, lead)
	require.Len(t, env.leads.leads, 1)
	assert.Equal(t, models.LeadStatusNew, env.leads.leads[0].Status)
	assert.Empty(t, env.notifier.sent)
	assert.Empty(t, env.notifications.rows)
}

func TestSubmitLead_IdenticalSubmissionsCreateTwoLeads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.SubmitLead(ctx, validSubmission())
	require.NoError(t, err)
	second, err := env.svc.SubmitLead(ctx, validSubmission())
	require.NoError(t, err)
	env.svc.Drain()

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, env.leads.leads, 2)
}

func TestSubmitLead_NormalizesContactChannel(t *testing.T) {
	env := newTestEnv(t)

	lead, err := env.svc.SubmitLead(context.Background(), validSubmission())
	env.svc.Drain()

	require.NoError(t, err)
	assert.Equal(t, "+393331112233", lead.ContactChannel)
}

func TestSubmitLead_KeepsUnparseableContactChannel(t *testing.T) {
	env := newTestEnv(t)

	req := validSubmission()
	req.ContactChannel = "mario@acme.it"

	lead, err := env.svc.SubmitLead(context.Background(), req)
	env.svc.Drain()

	require.NoError(t, err)
	assert.Equal(t, "mario@acme.it", lead.ContactChannel)
}

func TestSubmitLead_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	before := time.Now().UTC()

	lead, err := env.svc.SubmitLead(context.Background(), validSubmission())
	require.NoError(t, err)
	env.svc.Drain()

	// One persisted lead in status new with attribution intact
	require.Len(t, env.leads.leads, 1)
	assert.Equal(t, models.LeadStatusNew, lead.Status)
	assert.Equal(t, "facebook", lead.SourceChannel)
	assert.Equal(t, "landing-fb", lead.OriginatingPage)

	// One funnel event at the lead phase, tagged with the channel
	require.Len(t, env.funnel.events, 1)
	assert.Equal(t, models.FunnelPhaseLead, env.funnel.events[0].Phase)
	assert.Equal(t, "facebook", env.funnel.events[0].SourceChannel)
	require.NotNil(t, env.funnel.events[0].LeadID)
	assert.Equal(t, lead.ID, *env.funnel.events[0].LeadID)

	// CRM got exactly one attempt
	assert.Equal(t, 1, env.crm.calls)

	// Welcome went out immediately and was recorded as sent
	require.Len(t, env.notifier.sent, 1)
	assert.Equal(t, "+393331112233", env.notifier.sent[0])

	rows, err := env.notifications.ListByLead(context.Background(), lead.ID)
	require.NoError(t, err)

	welcomes := notificationsByKind(rows, models.NotificationKindWelcome)
	require.Len(t, welcomes, 1)
	assert.Equal(t, models.NotificationOutcomeSent, welcomes[0].Outcome)
	assert.NotNil(t, welcomes[0].SentAt)

	// One pending follow-up about 24h out
	followUps := notificationsByKind(rows, models.NotificationKindFollowUp24)
	require.Len(t, followUps, 1)
	assert.Equal(t, models.NotificationOutcomePending, followUps[0].Outcome)
	assert.WithinDuration(t, before.Add(24*time.Hour), followUps[0].SendAt, time.Minute)
}

func TestSubmitLead_RecordsFailedWelcomeDelivery(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.sendErr = errors.New("provider unavailable")

	lead, err := env.svc.SubmitLead(context.Background(), validSubmission())
	require.NoError(t, err, "a broken notifier must not fail the submission")
	env.svc.Drain()

	rows, listErr := env.notifications.ListByLead(context.Background(), lead.ID)
	require.NoError(t, listErr)

	welcomes := notificationsByKind(rows, models.NotificationKindWelcome)
	require.Len(t, welcomes, 1)
	assert.Equal(t, models.NotificationOutcomeFailed, welcomes[0].Outcome)
	require.NotNil(t, welcomes[0].FailureReason)
	assert.Equal(t, "provider unavailable", *welcomes[0].FailureReason)

	// The follow-up still gets scheduled; delivery happens later
	followUps := notificationsByKind(rows, models.NotificationKindFollowUp24)
	require.Len(t, followUps, 1)
	assert.Equal(t, models.NotificationOutcomePending, followUps[0].Outcome)
}

func TestSubmitLead_SecondSubmissionDoesNotDoubleScheduleSameLead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	lead, err := env.svc.SubmitLead(ctx, validSubmission())
	require.NoError(t, err)
	env.svc.Drain()

	// Re-running the follow-up stage for the same lead hits the dedup guard
	sched := scheduler.NewService(env.notifications, env.notifier, metrics.New(), 24*time.Hour, 48*time.Hour, logger.Default())
	_, err = sched.ScheduleOnce(ctx, models.NotificationKindFollowUp24, lead.ID, lead.ContactChannel,
		models.Message{Subject: "s", Body: "b"}, time.Now().UTC().Add(12*time.Hour))
	require.Error(t, err)
	assert.True(t, domain.IsDuplicateSchedule(err))

	rows, err := env.notifications.ListByLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Len(t, notificationsByKind(rows, models.NotificationKindFollowUp24), 1)
}
