package models

// Requests for the trading HTTP command surface. Defined in domain for
// consistency and reuse.

type GenerateSignalRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,min=3,alphanum"`
}

type ProcessSignalRequest struct {
	Symbol     string  `json:"symbol" validate:"required,min=3,alphanum"`
	Direction  string  `json:"direction" validate:"required,oneof=BUY SELL"`
	Confidence float64 `json:"confidence" default:"1" validate:"gte=0,lte=1"`
}

type RecentSignalsRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,min=3,alphanum"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type ResetBreakerRequest struct {
	Symbol string `json:"symbol" validate:"required"`
}

type ClosePositionRequest struct {
	Symbol string `json:"symbol" validate:"required"` // symbol or "all"
	Reason string `json:"reason" default:"MANUAL_CLOSE" validate:"oneof=MANUAL_CLOSE ALL_CLOSE STOP_TRIGGERED TP_TRIGGERED"`
}

type ToggleAutoTradingRequest struct {
	Enabled bool `json:"enabled"`
}

type UpdateSettingRequest struct {
	Key   string      `json:"key" validate:"required"`
	Value interface{} `json:"value" validate:"required"`
}

type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1m" validate:"oneof=1m 5m 15m 1h"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1500"`
	From   string `query:"from" json:"from"` // RFC3339 or unix seconds; with To, overrides Limit
	To     string `query:"to" json:"to"`
}
