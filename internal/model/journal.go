package model

import "time"

// JournalEntry is an append-only log record. Every Remember produces one;
// Reflect additionally writes digest entries, and checkpoints / flow-mode
// observations are journal-only (no corresponding Memory).
type JournalEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Gate      Gate      `json:"gate"`
	Content   string    `json:"content"`
	Person    string    `json:"person,omitempty"`
	Project   string    `json:"project,omitempty"`
	// Date is the UTC day key (YYYY-MM-DD) for ordinary entries, or the
	// ISO week key (yyyy-Www) for digest entries.
	Date   string `json:"date"`
	UserID string `json:"user_id"`
}

// IdentityCard is the single synthesized prose summary per tenant.
type IdentityCard struct {
	Person      string    `json:"person,omitempty"`
	Project     string    `json:"project,omitempty"`
	Content     string    `json:"content"`
	LastUpdated time.Time `json:"last_updated"`
	UserID      string    `json:"user_id"`
}

// MaxIdentityContentLength is the upper bound on IdentityCard.Content.
const MaxIdentityContentLength = 50_000
