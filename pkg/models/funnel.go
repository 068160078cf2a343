package models

import "time"

// Funnel phases, in order
const (
	FunnelPhaseVisitor   = "visitor"
	FunnelPhaseLead      = "lead"
	FunnelPhaseQualified = "qualified"
	FunnelPhaseConverted = "converted"
)

// FunnelPhases lists the phases in funnel order
var FunnelPhases = []string{
	FunnelPhaseVisitor,
	FunnelPhaseLead,
	FunnelPhaseQualified,
	FunnelPhaseConverted,
}

// IsValidFunnelPhase reports whether p is a known funnel phase
func IsValidFunnelPhase(p string) bool {
	for _, phase := range FunnelPhases {
		if phase == p {
			return true
		}
	}
	return false
}

// FunnelEvent is an immutable, timestamped record of a lead moving through
// a funnel phase, tagged with the acquisition channel.
type FunnelEvent struct {
	ID            string    `json:"id"`
	Phase         string    `json:"phase"`
	SourceChannel string    `json:"source_channel"`
	LeadID        *string   `json:"lead_id,omitempty"`
	Note          *string   `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// FunnelStage summarizes one phase within a report window
type FunnelStage struct {
	Phase          string  `json:"phase"`
	Count          int     `json:"count"`
	ConversionRate float64 `json:"conversion_rate"`
}

// FunnelReport aggregates per-phase counts and stage-to-stage conversion
// rates over a trailing window of days.
type FunnelReport struct {
	Days        int           `json:"days"`
	Stages      []FunnelStage `json:"stages"`
	GeneratedAt time.Time     `json:"generated_at"`
}
