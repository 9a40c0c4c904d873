package model

import "time"

// Feedback is a free-text message recorded via the /feedback flow.
type Feedback struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
