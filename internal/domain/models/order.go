package models

import "time"

// Side of a position or order.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// CloseReason tags why a position was closed.
type CloseReason string

const (
	CloseReasonStop   CloseReason = "STOP_TRIGGERED"
	CloseReasonTP     CloseReason = "TP_TRIGGERED"
	CloseReasonManual CloseReason = "MANUAL_CLOSE"
	CloseReasonAll    CloseReason = "ALL_CLOSE"
)

// TradeResult classifies a realized close by PnL sign.
type TradeResult string

const (
	TradeResultWin  TradeResult = "WIN"
	TradeResultLoss TradeResult = "LOSS"
)

// OrderPlan is the validated output of risk sizing and the input to order
// execution. StopLossPrice is strictly on the loss side of EntryPrice and
// TakeProfitPrice strictly on the profit side for the given Side.
type OrderPlan struct {
	Symbol          string  `json:"symbol"`
	Side            Side    `json:"side"`
	Size            float64 `json:"size"`
	EntryPrice      float64 `json:"entry_price"`
	StopLossPrice   float64 `json:"stop_loss_price"`
	TakeProfitPrice float64 `json:"take_profit_price"`
	StopDistance    float64 `json:"stop_distance"`
	Leverage        int     `json:"leverage"`
}

// Position is an open exchange position. At most one per symbol.
type Position struct {
	Symbol          string    `json:"symbol"`
	Side            Side      `json:"side"`
	Size            float64   `json:"size"`
	EntryPrice      float64   `json:"entry_price"`
	StopLossPrice   float64   `json:"stop_loss_price"`
	TakeProfitPrice float64   `json:"take_profit_price"`
	UnrealizedPnl   float64   `json:"unrealized_pnl"`
	OpenedAt        time.Time `json:"opened_at"`
}

// PnlAt computes the unrealized PnL of the position at price.
func (p *Position) PnlAt(price float64) float64 {
	if p.Side == SideLong {
		return (price - p.EntryPrice) * p.Size
	}
	return (p.EntryPrice - price) * p.Size
}

// Breached returns the close reason if price crosses the stop or target,
// or "" when the position is still inside its bracket.
func (p *Position) Breached(price float64) CloseReason {
	switch p.Side {
	case SideLong:
		if price <= p.StopLossPrice {
			return CloseReasonStop
		}
		if price >= p.TakeProfitPrice {
			return CloseReasonTP
		}
	case SideShort:
		if price >= p.StopLossPrice {
			return CloseReasonStop
		}
		if price <= p.TakeProfitPrice {
			return CloseReasonTP
		}
	}
	return ""
}

// ClosedTrade records a confirmed close outcome.
type ClosedTrade struct {
	Symbol      string      `json:"symbol"`
	Side        Side        `json:"side"`
	Reason      CloseReason `json:"reason"`
	Result      TradeResult `json:"result"`
	RealizedPnl float64     `json:"realized_pnl"`
	ClosePrice  float64     `json:"close_price"`
	ClosedAt    time.Time   `json:"closed_at"`
}
