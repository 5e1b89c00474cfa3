package models

import "time"

// AutoTradingState gates automatic execution.
type AutoTradingState struct {
	Enabled               bool      `json:"enabled"`
	CircuitBreakerTripped bool      `json:"circuit_breaker_tripped"`
	TrippedAt             time.Time `json:"tripped_at,omitempty"`
}

// LossCounter tracks consecutive losing closes for a symbol.
type LossCounter struct {
	Symbol        string    `json:"symbol"`
	Count         int       `json:"count"`
	LastOutcomeAt time.Time `json:"last_outcome_at"`
}
