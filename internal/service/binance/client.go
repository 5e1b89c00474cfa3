package binance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

// Client implements MarketData and Exchange against Binance USDT-M futures.
type Client struct {
	api *futures.Client

	mu       sync.RWMutex
	filters  map[string]*models.SymbolFilters
	leverage map[string]int
}

// New creates a futures client. Testnet switches the base URL.
func New(apiKey, apiSecret string, testnet bool) *Client {
	if testnet {
		futures.UseTestnet = true
	}
	api := futures.NewClient(apiKey, apiSecret)
	return &Client{
		api:      api,
		filters:  make(map[string]*models.SymbolFilters),
		leverage: make(map[string]int),
	}
}

// GetCandles fetches the most recent klines for a symbol/timeframe.
func (c *Client) GetCandles(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	klines, err := c.api.NewKlinesService().
		Symbol(symbol).
		Interval(string(tf)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("klines %s/%s: %w", symbol, tf, err)
	}

	candles := make([]models.Candle, 0, len(klines))
	for i, k := range klines {
		candle := models.Candle{
			Symbol:    symbol,
			Timeframe: string(tf),
			StartTime: msToTime(k.OpenTime),
			EndTime:   msToTime(k.CloseTime),
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
			Volume:    parseFloat(k.Volume),
			// the newest kline is still forming
			IsClosed: i < len(klines)-1,
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// GetLatestPrice returns the current mark price for a symbol.
func (c *Client) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := c.api.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("price %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("price %s: empty response", symbol)
	}
	return parseFloat(prices[0].Price), nil
}

// GetOpenPositions lists positions with non-zero size.
func (c *Client) GetOpenPositions(ctx context.Context) ([]*models.Position, error) {
	risks, err := c.api.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("position risk: %w", err)
	}

	var positions []*models.Position
	for _, r := range risks {
		amt := parseFloat(r.PositionAmt)
		if amt == 0 {
			continue
		}
		side := models.SideLong
		if amt < 0 {
			side = models.SideShort
			amt = -amt
		}
		positions = append(positions, &models.Position{
			Symbol:        r.Symbol,
			Side:          side,
			EntryPrice:    parseFloat(r.EntryPrice),
			Size:          amt,
			UnrealizedPnl: parseFloat(r.UnRealizedProfit),
		})
	}
	return positions, nil
}

// PlaceOrder submits a market order for the plan, setting leverage first.
// Exchange-side rejections are wrapped in ErrOrderRejected.
func (c *Client) PlaceOrder(ctx context.Context, plan *models.OrderPlan) (*drepo.OrderResult, error) {
	if err := c.ensureLeverage(ctx, plan.Symbol, plan.Leverage); err != nil {
		return nil, err
	}

	side := futures.SideTypeBuy
	if plan.Side == models.SideShort {
		side = futures.SideTypeSell
	}

	resp, err := c.api.NewCreateOrderService().
		Symbol(plan.Symbol).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(formatFloat(plan.Size)).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT).
		Do(ctx)
	if err != nil {
		return nil, wrapOrderErr("place order", plan.Symbol, err)
	}

	return &drepo.OrderResult{
		OrderID:   resp.OrderID,
		FillPrice: parseFloat(resp.AvgPrice),
		FilledQty: parseFloat(resp.ExecutedQuantity),
	}, nil
}

// ClosePosition flattens the open position with a reduce-only market order.
func (c *Client) ClosePosition(ctx context.Context, symbol string) (*drepo.OrderResult, error) {
	positions, err := c.GetOpenPositions(ctx)
	if err != nil {
		return nil, err
	}

	var open *models.Position
	for _, p := range positions {
		if p.Symbol == symbol {
			open = p
			break
		}
	}
	if open == nil {
		// nothing to close; treat as confirmed
		return &drepo.OrderResult{}, nil
	}

	side := futures.SideTypeSell
	if open.Side == models.SideShort {
		side = futures.SideTypeBuy
	}

	resp, err := c.api.NewCreateOrderService().
		Symbol(symbol).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(formatFloat(open.Size)).
		ReduceOnly(true).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT).
		Do(ctx)
	if err != nil {
		return nil, wrapOrderErr("close position", symbol, err)
	}

	return &drepo.OrderResult{
		OrderID:   resp.OrderID,
		FillPrice: parseFloat(resp.AvgPrice),
		FilledQty: parseFloat(resp.ExecutedQuantity),
	}, nil
}

// GetSymbolFilters returns precision rules, cached after the first fetch.
func (c *Client) GetSymbolFilters(ctx context.Context, symbol string) (*models.SymbolFilters, error) {
	c.mu.RLock()
	cached, ok := c.filters[symbol]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	info, err := c.api.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("exchange info: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range info.Symbols {
		s := &info.Symbols[i]
		f := &models.SymbolFilters{Symbol: s.Symbol}
		if lot := s.LotSizeFilter(); lot != nil {
			f.MinQuantity = parseFloat(lot.MinQuantity)
			f.QuantityStep = parseFloat(lot.StepSize)
		}
		if pf := s.PriceFilter(); pf != nil {
			f.PriceStep = parseFloat(pf.TickSize)
		}
		c.filters[s.Symbol] = f
	}

	if f, ok := c.filters[symbol]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("symbol %s not found in exchange info", symbol)
}

func (c *Client) ensureLeverage(ctx context.Context, symbol string, leverage int) error {
	c.mu.RLock()
	current := c.leverage[symbol]
	c.mu.RUnlock()
	if current == leverage {
		return nil
	}

	_, err := c.api.NewChangeLeverageService().
		Symbol(symbol).
		Leverage(leverage).
		Do(ctx)
	if err != nil {
		return wrapOrderErr("change leverage", symbol, err)
	}

	c.mu.Lock()
	c.leverage[symbol] = leverage
	c.mu.Unlock()
	return nil
}

// wrapOrderErr classifies API errors: a definitive exchange response is a
// rejection, anything else stays transient and retryable.
func wrapOrderErr(op, symbol string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s %s: %s: %w", op, symbol, apiErr.Message, drepo.ErrOrderRejected)
	}
	return fmt.Errorf("%s %s: %w", op, symbol, err)
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		return s
	}
	return strings.TrimRight(strings.TrimRight(s, "0"), ".")
}

var (
	_ drepo.MarketData = (*Client)(nil)
	_ drepo.Exchange   = (*Client)(nil)
)
