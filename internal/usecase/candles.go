package usecase

import (
	"context"
	"fmt"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/pkg/util"
)

// CandlesUseCase provides business logic for retrieving stored candles.
type CandlesUseCase struct {
	store drepo.CandleStore
}

func NewCandlesUseCase(store drepo.CandleStore) *CandlesUseCase {
	return &CandlesUseCase{store: store}
}

type GetCandlesParams struct {
	Symbol    string
	Timeframe drepo.Timeframe
	Limit     int

	// From and To select an explicit window instead of the most recent
	// Limit candles. Both must be set; they are aligned to candle
	// boundaries before querying.
	From time.Time
	To   time.Time
}

type GetCandlesResult struct {
	Symbol    string
	Timeframe string
	Count     int
	Candles   []models.Candle
}

func (uc *CandlesUseCase) GetCandles(ctx context.Context, p GetCandlesParams) (*GetCandlesResult, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if !p.Timeframe.IsValid() {
		return nil, fmt.Errorf("invalid timeframe %q", p.Timeframe)
	}
	if p.Limit <= 0 {
		p.Limit = 500
	}
	if p.Limit > 5000 {
		p.Limit = 5000
	}

	var (
		candles []models.Candle
		err     error
	)
	if !p.From.IsZero() && !p.To.IsZero() {
		from, to := util.AlignFromTo(p.From, p.To, string(p.Timeframe))
		if !from.Before(to) {
			return nil, fmt.Errorf("from must precede to")
		}
		candles, err = uc.store.CandlesRange(ctx, p.Symbol, p.Timeframe, from, to)
	} else {
		candles, err = uc.store.Candles(ctx, p.Symbol, p.Timeframe, p.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}

	return &GetCandlesResult{
		Symbol:    p.Symbol,
		Timeframe: string(p.Timeframe),
		Count:     len(candles),
		Candles:   candles,
	}, nil
}
