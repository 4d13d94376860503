// Package events defines the payloads published to Kafka.
package events

import "time"

// ActivityLogged is emitted after an activity record is committed. The rollup
// consumer projects these into the daily emission rollup table. Version marks
// the payload schema revision.
type ActivityLogged struct {
	ActivityID string    `json:"activity_id"`
	UserID     string    `json:"user_id"`
	Category   string    `json:"category"`
	Subtype    string    `json:"subtype"`
	Amount     float64   `json:"amount"`
	Unit       string    `json:"unit"`
	CO2eKg     float64   `json:"co2e_kg"`
	OccurredAt time.Time `json:"occurred_at"`
	LoggedAt   time.Time `json:"logged_at"`
	Version    string    `json:"version"`
}
