package models

import "time"

// Lead statuses. Transitions only move forward: new -> contacted -> converted.
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusConverted = "converted"
)

// leadStatusRank orders statuses for monotonic transition checks
var leadStatusRank = map[string]int{
	LeadStatusNew:       0,
	LeadStatusContacted: 1,
	LeadStatusConverted: 2,
}

// IsValidLeadStatus reports whether s is a known lead status
func IsValidLeadStatus(s string) bool {
	_, ok := leadStatusRank[s]
	return ok
}

// CanTransitionLeadStatus reports whether moving from one status to another
// respects the forward-only lifecycle. Setting the same status is allowed.
func CanTransitionLeadStatus(from, to string) bool {
	fr, ok := leadStatusRank[from]
	if !ok {
		return false
	}
	tr, ok := leadStatusRank[to]
	if !ok {
		return false
	}
	return tr >= fr
}

// Lead is a captured audit request. Rows are never deleted and the
// acquisition attribution (source channel, originating page) never changes.
type Lead struct {
	ID              string    `json:"id"`
	ContactName     string    `json:"contact_name"`
	Organization    string    `json:"organization"`
	ContactChannel  string    `json:"contact_channel"`
	Goal            string    `json:"goal"`
	SourceChannel   string    `json:"source_channel"`
	OriginatingPage string    `json:"originating_page"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewLead carries the fields needed to persist a lead
type NewLead struct {
	ContactName     string
	Organization    string
	ContactChannel  string
	Goal            string
	SourceChannel   string
	OriginatingPage string
}

// SubmitLeadRequest is the intake payload for the conversion pipeline
type SubmitLeadRequest struct {
	ContactName     string `json:"contact_name" validate:"required,max=200"`
	Organization    string `json:"organization" validate:"required,max=200"`
	ContactChannel  string `json:"contact_channel" validate:"required,max=100"`
	Goal            string `json:"goal" validate:"required,max=500"`
	SourceChannel   string `json:"source_channel" validate:"max=100"`
	OriginatingPage string `json:"originating_page" validate:"max=200"`
}
