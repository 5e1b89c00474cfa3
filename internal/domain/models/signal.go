package models

import "time"

// Direction of a trading signal.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// Signal is a directional, confidence-scored trading signal.
// Created once per evaluation and appended to the history log.
type Signal struct {
	Symbol                 string             `json:"symbol"`
	Direction              Direction          `json:"direction"`
	Confidence             float64            `json:"confidence"` // [0,1]
	GeneratedAt            time.Time          `json:"generated_at"`
	ContributingTimeframes []string           `json:"contributing_timeframes,omitempty"`
	Snapshot               *IndicatorSnapshot `json:"snapshot,omitempty"` // short-timeframe snapshot used for sizing
	TrendScore             float64            `json:"trend_score"`
	Multiplier             float64            `json:"multiplier"`
	Score                  float64            `json:"score"`
	Message                string             `json:"message,omitempty"`
}

// Actionable reports whether the signal asks for an entry.
func (s *Signal) Actionable() bool {
	return s.Direction == DirectionBuy || s.Direction == DirectionSell
}

// SignalEvent is the wire form of a Signal on the message bus.
type SignalEvent struct {
	Symbol      string   `json:"symbol"`
	Direction   string   `json:"direction"`
	Confidence  float64  `json:"confidence"`
	Score       float64  `json:"score"`
	GeneratedAt int64    `json:"generated_at"` // unix seconds
	Timeframes  []string `json:"timeframes,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// Event converts a Signal to its bus representation.
func (s *Signal) Event() *SignalEvent {
	return &SignalEvent{
		Symbol:      s.Symbol,
		Direction:   string(s.Direction),
		Confidence:  s.Confidence,
		Score:       s.Score,
		GeneratedAt: s.GeneratedAt.Unix(),
		Timeframes:  s.ContributingTimeframes,
		Message:     s.Message,
	}
}

// Signal converts a bus event back to a Signal.
func (e *SignalEvent) Signal() *Signal {
	return &Signal{
		Symbol:                 e.Symbol,
		Direction:              Direction(e.Direction),
		Confidence:             e.Confidence,
		Score:                  e.Score,
		GeneratedAt:            time.Unix(e.GeneratedAt, 0).UTC(),
		ContributingTimeframes: e.Timeframes,
		Message:                e.Message,
	}
}
