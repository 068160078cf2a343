package funnel

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/leadflowhq/leadflow/pkg/domain"
	"github.com/leadflowhq/leadflow/pkg/logger"
	"github.com/leadflowhq/leadflow/pkg/models"
)

const (
	reportCacheTTL    = 5 * time.Minute
	reportCachePrefix = "funnel:report:"
)

// Service records funnel events and serves stage-conversion reports
type Service struct {
	store  domain.FunnelStore
	cache  domain.CacheRepository
	logger logger.Logger
}

// NewService creates a new funnel metrics service. cache may be nil.
func NewService(store domain.FunnelStore, cache domain.CacheRepository, log logger.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: log,
	}
}

// Record appends a funnel event. Callers treat failure as advisory.
func (s *Service) Record(ctx context.Context, phase, sourceChannel string, leadID, note *string) error {
	if !models.IsValidFunnelPhase(phase) {
		return domain.NewValidationError(fmt.Sprintf("unknown funnel phase %q", phase))
	}

	if _, err := s.store.AppendEvent(ctx, phase, sourceChannel, leadID, note); err != nil {
		return fmt.Errorf("failed to record funnel event: %w", err)
	}

	s.invalidateReports(ctx)
	return nil
}

// Report returns per-phase counts and stage-to-stage conversion rates over
// the trailing window. Results are cached for 5 minutes.
func (s *Service) Report(ctx context.Context, days int) (*models.FunnelReport, error) {
	if days <= 0 {
		days = 30
	}

	cacheKey := fmt.Sprintf("%s%d", reportCachePrefix, days)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			var report models.FunnelReport
			if err := json.Unmarshal([]byte(cached), &report); err == nil {
				return &report, nil
			}
		}
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	counts, err := s.store.CountByPhase(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to build funnel report: %w", err)
	}

	stages := make([]models.FunnelStage, 0, len(models.FunnelPhases))
	prev := 0
	for i, phase := range models.FunnelPhases {
		count := counts[phase]
		rate := 100.0
		if i > 0 {
			rate = calculateRate(count, prev)
		}
		stages = append(stages, models.FunnelStage{
			Phase:          phase,
			Count:          count,
			ConversionRate: rate,
		})
		prev = count
	}

	report := &models.FunnelReport{
		Days:        days,
		Stages:      stages,
		GeneratedAt: time.Now().UTC(),
	}

	if s.cache != nil {
		if data, err := json.Marshal(report); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(data), reportCacheTTL); err != nil {
				s.logger.Warn("failed to cache funnel report", "error", err)
			}
		}
	}

	return report, nil
}

// invalidateReports drops cached reports for the common windows
func (s *Service) invalidateReports(ctx context.Context) {
	if s.cache == nil {
		return
	}
	keys := []string{
		fmt.Sprintf("%s%d", reportCachePrefix, 7),
		fmt.Sprintf("%s%d", reportCachePrefix, 30),
		fmt.Sprintf("%s%d", reportCachePrefix, 90),
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate funnel report cache", "error", err)
	}
}

// calculateRate calculates percentage rate (numerator/denominator * 100)
func calculateRate(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	rate := (float64(numerator) / float64(denominator)) * 100
	return math.Round(rate*100) / 100
}
