package progression

import "time"

type DomainEvent struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

func EventFor(outcome Outcome, state SessionState, at time.Time) DomainEvent {
	payload := map[string]any{
		"phase":   string(state.Phase),
		"version": state.Version,
		"state_after": map[string]any{
			"faith":               state.Resources.Faith,
			"reason":              state.Resources.Reason,
			"civilization_points": state.Resources.CivilizationPoints,
		},
	}
	if outcome.ID != "" {
		payload["id"] = outcome.ID
	}
	if outcome.PointsAwarded > 0 {
		payload["points_awarded"] = outcome.PointsAwarded
	}
	if state.OrderID != "" {
		payload["order_id"] = state.OrderID
	}
	return DomainEvent{
		Type:       string(outcome.Kind),
		OccurredAt: at,
		Payload:    payload,
	}
}
