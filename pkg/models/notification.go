package models

import "time"

// Notification kinds
const (
	NotificationKindWelcome    = "welcome"
	NotificationKindFollowUp24 = "follow_up_24h"
)

// Notification outcomes. Sending marks a row claimed by a dispatch worker;
// rows stuck there after a crash are cleaned up by the expiration sweep.
const (
	NotificationOutcomePending = "pending"
	NotificationOutcomeSending = "sending"
	NotificationOutcomeSent    = "sent"
	NotificationOutcomeFailed  = "failed"
	NotificationOutcomeExpired = "expired"
)

// Message is a composed notification payload
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ScheduledNotification is a durable notification record. Welcome messages
// are written after an immediate delivery attempt; follow-ups sit pending
// until the dispatch worker claims them. At most one pending row may exist
// per (lead, kind).
type ScheduledNotification struct {
	ID            string     `json:"id"`
	LeadID        string     `json:"lead_id"`
	Kind          string     `json:"kind"`
	Recipient     string     `json:"recipient"`
	Subject       string     `json:"subject"`
	Body          string     `json:"body"`
	SendAt        time.Time  `json:"send_at"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	Outcome       string     `json:"outcome"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
