package crmsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/leadflowhq/leadflow/pkg/domain"
	"github.com/leadflowhq/leadflow/pkg/logger"
	"github.com/leadflowhq/leadflow/pkg/models"
)

// maxResponseBytes caps how much of the CRM response body is read
const maxResponseBytes = 1 << 20

// Service forwards captured leads to the external CRM. Every failure mode
// folds into a SyncResult; nothing escapes to the submission path.
type Service struct {
	endpointURL string
	authToken   string
	httpClient  *http.Client
	logger      logger.Logger
}

// NewService creates a new CRM sync client
func NewService(endpointURL, authToken string, timeout time.Duration, log logger.Logger) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		endpointURL: endpointURL,
		authToken:   authToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

// syncPayload is the wire shape the CRM expects
type syncPayload struct {
	Name      string `json:"name"`
	Company   string `json:"company"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
}

// syncResponse is the CRM acknowledgement body
type syncResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// SyncLead makes exactly one forwarding attempt for the lead. The outcome is
// always a SyncResult: timeouts, non-2xx statuses and malformed bodies become
// failure reasons, never errors or panics.
func (s *Service) SyncLead(ctx context.Context, lead *models.Lead) domain.SyncResult {
	if s.endpointURL == "" {
		return domain.SyncResult{OK: false, Reason: "crm endpoint not configured"}
	}

	payload := syncPayload{
		Name:      lead.ContactName,
		Company:   lead.Organization,
		Phone:     lead.ContactChannel,
		Message:   lead.Goal,
		Source:    lead.SourceChannel,
		CreatedAt: lead.CreatedAt.UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.SyncResult{OK: false, Reason: fmt.Sprintf("failed to marshal payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpointURL, bytes.NewReader(body))
	if err != nil {
		return domain.SyncResult{OK: false, Reason: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.SyncResult{OK: false, Reason: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.SyncResult{OK: false, Reason: fmt.Sprintf("crm returned status %d", resp.StatusCode)}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.SyncResult{OK: false, Reason: fmt.Sprintf("failed to read response: %v", err)}
	}

	var ack syncResponse
	if err := json.Unmarshal(respBody, &ack); err != nil {
		return domain.SyncResult{OK: false, Reason: fmt.Sprintf("malformed crm response: %v", err)}
	}
	if !ack.Success {
		return domain.SyncResult{OK: false, Reason: "crm rejected the lead"}
	}

	s.logger.Debug("lead forwarded to crm", "lead_id", lead.ID, "remote_id", ack.ID)
	return domain.SyncResult{OK: true, RemoteID: ack.ID}
}
