package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadflowhq/leadflow/pkg/models"
)

// AppendEvent records an immutable funnel event
func (s *Store) AppendEvent(ctx context.Context, phase, sourceChannel string, leadID, note *string) (*models.FunnelEvent, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO funnel_events (id, phase, source_channel, lead_id, note, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, phase, sourceChannel, leadID, note, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert funnel event: %w", err)
	}

	return &models.FunnelEvent{
		ID:            id,
		Phase:         phase,
		SourceChannel: sourceChannel,
		LeadID:        leadID,
		Note:          note,
		CreatedAt:     now,
	}, nil
}

// CountByPhase returns event counts per phase since the given time
func (s *Store) CountByPhase(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT phase, COUNT(*) FROM funnel_events WHERE created_at >= $1 GROUP BY phase`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count funnel events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var phase string
		var count int
		if err := rows.Scan(&phase, &count); err != nil {
			return nil, fmt.Errorf("failed to scan funnel count: %w", err)
		}
		counts[phase] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read funnel counts: %w", err)
	}
	return counts, nil
}
