// Package events defines event payloads published by the insights service.
package events

import "time"

// SelectionChanged is emitted when a user's recommendation toggle actually
// changes value. Repeat writes with the same value emit nothing.
type SelectionChanged struct {
	UserID     string    `json:"user_id"`
	Category   string    `json:"category"`
	Text       string    `json:"text"`
	Selected   bool      `json:"selected"`
	OccurredAt time.Time `json:"occurred_at"`
}
