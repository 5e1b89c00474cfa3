package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Stream implements a CandleStream backed by the Binance futures combined
// kline WebSocket.
type Stream struct {
	baseURL        string
	symbols        []string
	timeframes     []drepo.Timeframe
	reconnectDelay time.Duration
	pingInterval   time.Duration

	// mu guards conn and connected: the ping goroutine, the read loop
	// and Reconnect all touch the connection.
	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// NewStream creates a kline stream for the given symbols and timeframes.
func NewStream(baseURL string, symbols []string, timeframes []drepo.Timeframe, reconnectDelay, pingInterval time.Duration) *Stream {
	return &Stream{
		baseURL:        baseURL,
		symbols:        symbols,
		timeframes:     timeframes,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// streamNames builds the combined-stream path segments,
// e.g. btcusdt@kline_1m.
func (s *Stream) streamNames() []string {
	names := make([]string, 0, len(s.symbols)*len(s.timeframes))
	for _, sym := range s.symbols {
		for _, tf := range s.timeframes {
			names = append(names, fmt.Sprintf("%s@kline_%s", strings.ToLower(sym), tf))
		}
	}
	return names
}

// Connect establishes the WebSocket connection with all streams in the URL.
func (s *Stream) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s/stream?streams=%s", s.baseURL, strings.Join(s.streamNames(), "/"))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("binance stream connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	return nil
}

// current returns the connection under the lock.
func (s *Stream) current() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// Subscribe is a no-op: streams are part of the connection URL.
func (s *Stream) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || !s.connected {
		return fmt.Errorf("binance stream not connected")
	}
	return nil
}

type wsKline struct {
	StartTime int64  `json:"t"`
	EndTime   int64  `json:"T"`
	Symbol    string `json:"s"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Volume    string `json:"v"`
	IsFinal   bool   `json:"x"`
}

type wsKlineEvent struct {
	EventType string  `json:"e"`
	Symbol    string  `json:"s"`
	Kline     wsKline `json:"k"`
}

type wsCombinedFrame struct {
	Stream string       `json:"stream"`
	Data   wsKlineEvent `json:"data"`
}

// Read streams candle updates and errors.
func (s *Stream) Read(ctx context.Context) (<-chan *models.Candle, <-chan error) {
	candles := make(chan *models.Candle, 1024)
	errs := make(chan error, 1)
	done := make(chan struct{})

	// ping loop, stops when the read loop exits so each Read call owns
	// exactly one pinger
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if conn := s.current(); conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(candles)
		defer close(errs)
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				conn := s.current()
				if conn == nil {
					errs <- fmt.Errorf("binance stream conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("binance stream read: %w", err)
					return
				}
				var frame wsCombinedFrame
				if err := json.Unmarshal(b, &frame); err != nil {
					// ignore non-kline frames
					continue
				}
				if frame.Data.EventType != "kline" {
					continue
				}
				k := frame.Data.Kline
				candle := &models.Candle{
					Symbol:    k.Symbol,
					Timeframe: k.Interval,
					StartTime: msToTime(k.StartTime),
					EndTime:   msToTime(k.EndTime),
					Open:      parseFloat(k.Open),
					High:      parseFloat(k.High),
					Low:       parseFloat(k.Low),
					Close:     parseFloat(k.Close),
					Volume:    parseFloat(k.Volume),
					IsClosed:  k.IsFinal,
				}
				select {
				case candles <- candle:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return candles, errs
}

// Reconnect closes and reconnects.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

var _ drepo.CandleStream = (*Stream)(nil)
