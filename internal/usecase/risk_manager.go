package usecase

import (
	"context"
	"fmt"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"

	"github.com/shopspring/decimal"
)

// RiskManager converts an actionable signal plus settings into a validated
// order plan. Any validation failure produces no plan and no side effect.
type RiskManager struct {
	exchange drepo.Exchange
}

// NewRiskManager creates a risk manager using the exchange's precision rules.
func NewRiskManager(exchange drepo.Exchange) *RiskManager {
	return &RiskManager{exchange: exchange}
}

// Plan sizes the position for the signal at entryPrice.
//
//	stopDistance   = atrMultiplier × ATR
//	positionSize   = accountBalance × riskPerTrade × leverage / stopDistance
//	takeProfit     = entry ± tpRatio × stopDistance
func (r *RiskManager) Plan(ctx context.Context, sig *models.Signal, settings models.TradingSettings, entryPrice float64) (*models.OrderPlan, error) {
	if !sig.Actionable() {
		return nil, fmt.Errorf("plan %s: direction %s: %w", sig.Symbol, sig.Direction, ErrInvalidRiskParameters)
	}
	if sig.Snapshot == nil {
		return nil, fmt.Errorf("plan %s: signal carries no indicator snapshot: %w", sig.Symbol, ErrInvalidRiskParameters)
	}

	stopDistance := settings.ATRMultiplier * sig.Snapshot.ATR
	if stopDistance <= 0 {
		return nil, fmt.Errorf("plan %s: stop distance %.8f: %w", sig.Symbol, stopDistance, ErrInvalidRiskParameters)
	}

	side := models.SideLong
	stopLoss := entryPrice - stopDistance
	takeProfit := entryPrice + settings.TPRatio*stopDistance
	if sig.Direction == models.DirectionSell {
		side = models.SideShort
		stopLoss = entryPrice + stopDistance
		takeProfit = entryPrice - settings.TPRatio*stopDistance
	}

	if stopLoss <= 0 || takeProfit <= 0 {
		return nil, fmt.Errorf("plan %s: bracket crosses zero (sl=%.8f tp=%.8f): %w", sig.Symbol, stopLoss, takeProfit, ErrInvalidRiskParameters)
	}
	if (side == models.SideLong && stopLoss >= entryPrice) || (side == models.SideShort && stopLoss <= entryPrice) {
		return nil, fmt.Errorf("plan %s: stop on wrong side of entry: %w", sig.Symbol, ErrInvalidRiskParameters)
	}

	size := settings.AccountBalance * settings.RiskPerTrade * float64(settings.Leverage) / stopDistance
	if size <= 0 {
		return nil, fmt.Errorf("plan %s: position size %.8f: %w", sig.Symbol, size, ErrInvalidRiskParameters)
	}

	filters, err := r.exchange.GetSymbolFilters(ctx, sig.Symbol)
	if err != nil {
		return nil, fmt.Errorf("plan %s: symbol filters: %w", sig.Symbol, err)
	}

	plan := &models.OrderPlan{
		Symbol:          sig.Symbol,
		Side:            side,
		Size:            roundToStep(size, filters.QuantityStep),
		EntryPrice:      entryPrice,
		StopLossPrice:   roundToStep(stopLoss, filters.PriceStep),
		TakeProfitPrice: roundToStep(takeProfit, filters.PriceStep),
		StopDistance:    stopDistance,
		Leverage:        settings.Leverage,
	}

	if plan.Size < filters.MinQuantity || plan.Size <= 0 {
		return nil, fmt.Errorf("plan %s: size %.8f below exchange minimum %.8f: %w",
			sig.Symbol, plan.Size, filters.MinQuantity, ErrInvalidRiskParameters)
	}
	if (side == models.SideLong && plan.StopLossPrice >= entryPrice) ||
		(side == models.SideShort && plan.StopLossPrice <= entryPrice) {
		return nil, fmt.Errorf("plan %s: rounded stop on wrong side of entry: %w", sig.Symbol, ErrInvalidRiskParameters)
	}
	return plan, nil
}

// roundToStep floors v to the nearest multiple of step. Binance rejects
// quantities and prices that are not step-aligned, so flooring keeps the
// plan inside the risk budget.
func roundToStep(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	dv := decimal.NewFromFloat(v)
	ds := decimal.NewFromFloat(step)
	f, _ := dv.Div(ds).Floor().Mul(ds).Float64()
	return f
}
