package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/ecotrack/internal/events"
)

// RollupStore accumulates per-user daily emission totals.
type RollupStore interface {
	AddToRollup(ctx context.Context, userID string, day time.Time, co2eKg float64) error
}

// RollupHandler projects activity.logged events into the daily emission rollups.
type RollupHandler struct {
	store RollupStore
}

// NewRollupHandler constructs a handler backed by the provided store.
func NewRollupHandler(store RollupStore) *RollupHandler {
	return &RollupHandler{store: store}
}

// Handle folds the event into the rollup for the day the activity occurred.
// Event types other than activity.logged are acknowledged without action so
// the processor commits past them.
func (h *RollupHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != "activity.logged" {
		return nil
	}

	var event events.ActivityLogged
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode activity.logged payload: %w", err)
	}
	if event.UserID == "" {
		return fmt.Errorf("activity.logged event %s missing user_id", event.ActivityID)
	}

	day := event.OccurredAt.UTC().Truncate(24 * time.Hour)
	return h.store.AddToRollup(ctx, event.UserID, day, event.CO2eKg)
}
