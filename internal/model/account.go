package model

// Account represents a registered reseller permitted to place orders.
// Accounts are provisioned through the admin API; the chat core only
// ever reads them.
type Account struct {
	ID               int64  `json:"id"`
	DisplayName      string `json:"display_name"`
	ExternalIdentity string `json:"external_identity"` // chat transport sender id, unique
	Address          string `json:"address,omitempty"`
}
