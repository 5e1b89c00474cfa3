package models

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// HourWindow is a half-open UTC hour interval [Start,End). Windows may wrap
// past midnight: [22,2) covers hours 22, 23, 0 and 1.
type HourWindow struct {
	Start int `json:"start" yaml:"start" validate:"gte=0,lte=23"`
	End   int `json:"end" yaml:"end" validate:"gte=0,lte=24"`
}

// Contains reports whether hour (0..23) falls inside the window.
func (w HourWindow) Contains(hour int) bool {
	if w.Start == w.End {
		return false
	}
	if w.Start < w.End {
		return hour >= w.Start && hour < w.End
	}
	// wraps past midnight
	return hour >= w.Start || hour < w.End
}

// TradingSettings holds all tunable trading parameters. Mutated only through
// the settings store, which validates before persisting.
type TradingSettings struct {
	Leverage                 int          `json:"leverage" default:"10" validate:"gte=1,lte=125"`
	RiskPerTrade             float64      `json:"risk_per_trade" default:"0.02" validate:"gt=0,lte=1"`
	AccountBalance           float64      `json:"account_balance" default:"10000" validate:"gt=0"`
	ATRMultiplier            float64      `json:"atr_multiplier" default:"1.5" validate:"gt=0"`
	TPRatio                  float64      `json:"tp_ratio" default:"1.5" validate:"gt=0"`
	VolumeSpikeThreshold     float64      `json:"volume_spike_threshold" default:"2.0" validate:"gt=0"`
	PriceMomentumThreshold   float64      `json:"price_momentum_threshold" default:"0.003" validate:"gt=0"`
	MinSignalIntervalMinutes int          `json:"min_signal_interval_minutes" default:"5" validate:"gte=1"`
	MaxConsecutiveLosses     int          `json:"max_consecutive_losses" default:"3" validate:"gte=1"`
	ActiveHours              []HourWindow `json:"active_hours" validate:"dive"`
	ReenableOnWin            bool         `json:"reenable_on_win" default:"false"`
}

var settingsValidate = validator.New()

// DefaultTradingSettings returns settings populated with defaults.
func DefaultTradingSettings() TradingSettings {
	var s TradingSettings
	_ = defaults.Set(&s)
	s.ActiveHours = []HourWindow{{Start: 9, End: 24}, {Start: 0, End: 2}}
	return s
}

// Validate checks all field ranges.
func (s *TradingSettings) Validate() error {
	if err := settingsValidate.Struct(s); err != nil {
		return fmt.Errorf("settings validation: %w", err)
	}
	return nil
}

// InActiveHours reports whether the given UTC hour is inside at least one
// configured window. Empty configuration means always active.
func (s *TradingSettings) InActiveHours(hour int) bool {
	if len(s.ActiveHours) == 0 {
		return true
	}
	for _, w := range s.ActiveHours {
		if w.Contains(hour) {
			return true
		}
	}
	return false
}
