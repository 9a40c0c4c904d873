package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionPhase tracks a caller's progress through order intake.
// A missing session is equivalent to PhaseIdle.
type SessionPhase string

const (
	PhaseIdle                 SessionPhase = "idle"
	PhaseAwaitingItems        SessionPhase = "awaiting_items"
	PhaseAwaitingConfirmation SessionPhase = "awaiting_confirmation"
	PhaseAwaitingFeedback     SessionPhase = "awaiting_feedback"
)

// DraftLine is an order request bound to a concrete catalog item after
// exact/fuzzy matching and stock validation. UnitPrice is captured at
// resolution time and is what gets copied into the order line on commit.
type DraftLine struct {
	CatalogItemID int64           `json:"catalog_item_id"`
	Name          string          `json:"name"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
}

// Session is the per-account conversation state. Exactly one live
// session per account; destroyed on commit, cancel, or feedback
// completion. Sessions are not durable — a restart loses unconfirmed
// drafts (single-instance assumption; use the redis store to scale out).
type Session struct {
	AccountID int64        `json:"account_id"`
	Phase     SessionPhase `json:"phase"`
	Draft     []DraftLine  `json:"draft,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}
