package models

import "testing"

func TestHourWindowContains(t *testing.T) {
	w := HourWindow{Start: 9, End: 17}
	if !w.Contains(9) || !w.Contains(16) {
		t.Fatalf("expected 9 and 16 inside [9,17)")
	}
	if w.Contains(17) || w.Contains(8) {
		t.Fatalf("expected 17 and 8 outside [9,17)")
	}
}

func TestHourWindowWrapsMidnight(t *testing.T) {
	w := HourWindow{Start: 22, End: 2}
	for _, h := range []int{22, 23, 0, 1} {
		if !w.Contains(h) {
			t.Fatalf("expected %d inside [22,2)", h)
		}
	}
	for _, h := range []int{2, 5, 21} {
		if w.Contains(h) {
			t.Fatalf("expected %d outside [22,2)", h)
		}
	}
}

func TestHourWindowEmpty(t *testing.T) {
	w := HourWindow{Start: 5, End: 5}
	if w.Contains(5) {
		t.Fatalf("equal bounds must match nothing")
	}
}

func TestDefaultTradingSettings(t *testing.T) {
	s := DefaultTradingSettings()
	if s.Leverage != 10 || s.RiskPerTrade != 0.02 || s.MaxConsecutiveLosses != 3 {
		t.Fatalf("defaults = %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if s.ReenableOnWin {
		t.Fatalf("reenable_on_win must default to false")
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	cases := []func(*TradingSettings){
		func(s *TradingSettings) { s.Leverage = 0 },
		func(s *TradingSettings) { s.Leverage = 126 },
		func(s *TradingSettings) { s.RiskPerTrade = 0 },
		func(s *TradingSettings) { s.RiskPerTrade = 1.5 },
		func(s *TradingSettings) { s.AccountBalance = -1 },
		func(s *TradingSettings) { s.ATRMultiplier = 0 },
		func(s *TradingSettings) { s.MinSignalIntervalMinutes = 0 },
		func(s *TradingSettings) { s.MaxConsecutiveLosses = 0 },
		func(s *TradingSettings) { s.ActiveHours = []HourWindow{{Start: -1, End: 5}} },
		func(s *TradingSettings) { s.ActiveHours = []HourWindow{{Start: 0, End: 25}} },
	}
	for i, mutate := range cases {
		s := DefaultTradingSettings()
		mutate(&s)
		if err := s.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestInActiveHoursEmptyAlwaysActive(t *testing.T) {
	s := DefaultTradingSettings()
	s.ActiveHours = nil
	for h := 0; h < 24; h++ {
		if !s.InActiveHours(h) {
			t.Fatalf("hour %d inactive with empty windows", h)
		}
	}
}

func TestInActiveHoursMultipleWindows(t *testing.T) {
	s := DefaultTradingSettings()
	s.ActiveHours = []HourWindow{{Start: 9, End: 12}, {Start: 14, End: 17}}
	if !s.InActiveHours(10) || !s.InActiveHours(15) {
		t.Fatalf("expected 10 and 15 active")
	}
	if s.InActiveHours(13) {
		t.Fatalf("expected 13 inactive between windows")
	}
}
