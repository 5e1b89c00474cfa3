package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	pkgch "TradePilot/pkg/clickhouse"
	applogger "TradePilot/pkg/logger"
)

const (
	candlesTable = "tradepilot.candles"
	signalsTable = "tradepilot.signals"
	tradesTable  = "tradepilot.closed_trades"
)

// HistorySchema holds the idempotent DDL for the history tables.
var HistorySchema = []string{
	`CREATE DATABASE IF NOT EXISTS tradepilot`,
	`CREATE TABLE IF NOT EXISTS ` + candlesTable + ` (
        symbol LowCardinality(String),
        timeframe LowCardinality(String),
        start_time DateTime,
        end_time DateTime,
        open Float64,
        high Float64,
        low Float64,
        close Float64,
        volume Float64
    ) ENGINE = ReplacingMergeTree
    ORDER BY (symbol, timeframe, start_time)
    TTL start_time + INTERVAL 30 DAY`,
	`CREATE TABLE IF NOT EXISTS ` + signalsTable + ` (
        symbol LowCardinality(String),
        direction LowCardinality(String),
        confidence Float64,
        score Float64,
        generated_at DateTime,
        timeframes String,
        message String
    ) ENGINE = MergeTree
    ORDER BY (symbol, generated_at)
    TTL generated_at + INTERVAL 90 DAY`,
	`CREATE TABLE IF NOT EXISTS ` + tradesTable + ` (
        symbol LowCardinality(String),
        side LowCardinality(String),
        reason LowCardinality(String),
        result LowCardinality(String),
        realized_pnl Float64,
        close_price Float64,
        closed_at DateTime
    ) ENGINE = MergeTree
    ORDER BY (symbol, closed_at)`,
}

// CHHistory implements CandleStore and SignalHistory backed by ClickHouse.
type CHHistory struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHHistory(ch *pkgch.Client) *CHHistory {
	return &CHHistory{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHHistory) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHHistory) StoreCandle(ctx context.Context, c *models.Candle) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (symbol, timeframe, start_time, end_time, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		candlesTable)
	_, err := s.db.ExecContext(ctx, q,
		c.Symbol, c.Timeframe, c.StartTime, c.EndTime,
		c.Open, c.High, c.Low, c.Close, c.Volume,
	)
	if err != nil {
		return fmt.Errorf("store candle: %w", err)
	}
	return nil
}

func (s *CHHistory) Candles(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT symbol, timeframe, start_time, end_time, open, high, low, close, volume
        FROM %s
        WHERE symbol = ? AND timeframe = ?
        ORDER BY start_time DESC
        LIMIT ?
    `, candlesTable)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(tf), limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse candles query error",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Candle, 0, limit)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &c.StartTime, &c.EndTime,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.IsClosed = true
		tmp = append(tmp, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Info("clickhouse candles ok",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

func (s *CHHistory) CandlesRange(ctx context.Context, symbol string, tf drepo.Timeframe, from, to time.Time) ([]models.Candle, error) {
	q := fmt.Sprintf(`
        SELECT symbol, timeframe, start_time, end_time, open, high, low, close, volume
        FROM %s
        WHERE symbol = ? AND timeframe = ? AND start_time >= ? AND start_time < ?
        ORDER BY start_time ASC
    `, candlesTable)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(tf), from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse candles range query error",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get candles range: %w", err)
	}
	defer rows.Close()

	var out []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &c.StartTime, &c.EndTime,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.IsClosed = true
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHHistory) AppendSignal(ctx context.Context, sig *models.Signal) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (symbol, direction, confidence, score, generated_at, timeframes, message) VALUES (?, ?, ?, ?, ?, ?, ?)",
		signalsTable)
	_, err := s.db.ExecContext(ctx, q,
		sig.Symbol, string(sig.Direction), sig.Confidence, sig.Score,
		sig.GeneratedAt, strings.Join(sig.ContributingTimeframes, ","), sig.Message,
	)
	if err != nil {
		return fmt.Errorf("append signal: %w", err)
	}
	return nil
}

func (s *CHHistory) AppendClosedTrade(ctx context.Context, t *models.ClosedTrade) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (symbol, side, reason, result, realized_pnl, close_price, closed_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		tradesTable)
	_, err := s.db.ExecContext(ctx, q,
		t.Symbol, string(t.Side), string(t.Reason), string(t.Result),
		t.RealizedPnl, t.ClosePrice, t.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("append closed trade: %w", err)
	}
	return nil
}

func (s *CHHistory) RecentSignals(ctx context.Context, symbol string, limit int) ([]*models.Signal, error) {
	q := fmt.Sprintf(`
        SELECT symbol, direction, confidence, score, generated_at, timeframes, message
        FROM %s
        WHERE symbol = ?
        ORDER BY generated_at DESC
        LIMIT ?
    `, signalsTable)
	rows, err := s.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("recent signals: %w", err)
	}
	defer rows.Close()

	var out []*models.Signal
	for rows.Next() {
		var (
			sig models.Signal
			dir string
			tfs string
		)
		if err := rows.Scan(&sig.Symbol, &dir, &sig.Confidence, &sig.Score,
			&sig.GeneratedAt, &tfs, &sig.Message); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.Direction = models.Direction(dir)
		if tfs != "" {
			sig.ContributingTimeframes = strings.Split(tfs, ",")
		}
		out = append(out, &sig)
	}
	return out, rows.Err()
}

func (s *CHHistory) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var (
	_ drepo.CandleStore   = (*CHHistory)(nil)
	_ drepo.SignalHistory = (*CHHistory)(nil)
)
