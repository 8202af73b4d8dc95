package models

import "time"

// SuggestionEntry registers a user in the global suggestion ledger.
type SuggestionEntry struct {
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Suggestion is a ledger entry resolved for display.
type Suggestion struct {
	Profile
	CreatedAt time.Time `json:"createdAt"`
}
