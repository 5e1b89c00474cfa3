package di

import (
	"context"
	"fmt"
	"time"

	drepo "TradePilot/internal/domain/repository"
	"TradePilot/internal/handler/api"
	mid "TradePilot/internal/middleware"
	internalrepo "TradePilot/internal/repository"
	"TradePilot/internal/service/binance"
	svccache "TradePilot/internal/service/cache"
	"TradePilot/internal/service/ratelimit"
	"TradePilot/internal/service/symbollock"
	"TradePilot/internal/usecase"
	pkgcache "TradePilot/pkg/cache"
	pkgch "TradePilot/pkg/clickhouse"
	"TradePilot/pkg/config"
	xhttp "TradePilot/pkg/http"
	pkgkafka "TradePilot/pkg/kafka"
	applogger "TradePilot/pkg/logger"
	"TradePilot/pkg/metrics"
	pkgqueue "TradePilot/pkg/queue"
	"TradePilot/pkg/server"

	"github.com/benbjohnson/clock"
	kafkago "github.com/segmentio/kafka-go"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := cfg.Logging.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Logging.Format
	if format == "" {
		if cfg.Environment == "development" {
			format = "console"
		} else {
			format = "json"
		}
	}
	output := cfg.Logging.Output
	if output == "" {
		output = "stdout"
	}
	l, err := applogger.New(&applogger.Config{Level: level, Format: format, Output: output})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// trade history schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.HistorySchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideRedisCache creates the shared Redis connection.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the Kafka consumer for the signal topic.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideClock provides the real wall clock.
func ProvideClock() clock.Clock {
	return clock.New()
}

// ProvideBinanceClient creates the Binance futures REST client.
func ProvideBinanceClient(cfg *config.Config) *binance.Client {
	return binance.New(cfg.Binance.APIKey, cfg.Binance.APISecret, cfg.Binance.Testnet)
}

// ProvideExchange exposes the Binance client as the order exchange.
func ProvideExchange(bc *binance.Client) drepo.Exchange {
	return bc
}

// ProvideMarketData wraps the Binance REST client with the caching and
// throttling pipeline. Candle and price responses go through a layered
// cache (memory over Redis) so restarts and multi-symbol bursts do not
// hammer the exchange.
func ProvideMarketData(bc *binance.Client, rc *pkgcache.RedisCache, m drepo.Metrics, cfg *config.Config) drepo.MarketData {
	opts := []mid.PipelineOption{}
	if cfg.MarketData.CandleTTL > 0 {
		opts = append(opts, mid.WithCandleTTL(cfg.MarketData.CandleTTL))
	}
	if cfg.MarketData.PriceTTL > 0 {
		opts = append(opts, mid.WithPriceTTL(cfg.MarketData.PriceTTL))
	}
	if cfg.MarketData.RateCap > 0 {
		opts = append(opts, mid.WithRateLimit(cfg.MarketData.RateCap, cfg.MarketData.RateRefill))
	}

	layeredOpts := []pkgcache.LayeredOption{}
	if cfg.MarketData.PriceTTL > 0 {
		layeredOpts = append(layeredOpts, pkgcache.WithLayeredPopulateTTL(cfg.MarketData.PriceTTL))
	}
	layered := pkgcache.NewLayeredCache(rc, layeredOpts...)
	return mid.NewMarketDataPipeline(bc, svccache.NewServiceCache(layered), ratelimit.New(), m, opts...)
}

// ProvideCandleStream creates the Binance kline WebSocket stream.
func ProvideCandleStream(cfg *config.Config) drepo.CandleStream {
	timeframes := []drepo.Timeframe{
		drepo.NormalizeTimeframe(cfg.Trading.ShortTimeframe),
		drepo.NormalizeTimeframe(cfg.Trading.TrendTimeframe),
	}
	return binance.NewStream(
		cfg.Binance.WebSocketURL,
		cfg.Trading.Symbols,
		timeframes,
		cfg.Binance.ReconnectDelay,
		cfg.Binance.PingInterval,
	)
}

// ProvideHistory creates the ClickHouse candle and signal history store.
func ProvideHistory(ch *pkgch.Client, l *applogger.Logger) *internalrepo.CHHistory {
	h := internalrepo.NewCHHistory(ch)
	h.SetLogger(l)
	return h
}

// ProvideSettingsStore creates the Redis-backed settings store.
func ProvideSettingsStore(rc *pkgcache.RedisCache) drepo.SettingsStore {
	return internalrepo.NewRedisSettingsStore(rc.Client())
}

// ProvideStateStore creates the Redis-backed runtime state store.
func ProvideStateStore(rc *pkgcache.RedisCache) drepo.StateStore {
	return internalrepo.NewRedisStateStore(rc.Client())
}

// ProvidePublisher creates the Kafka signal publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) drepo.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.SignalTopic)
}

// ProvideLocks creates the per-symbol lock registry shared by the executor
// and the position monitor.
func ProvideLocks(cfg *config.Config) *symbollock.Registry {
	wait := cfg.Trading.SymbolLockWait
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return symbollock.New(wait)
}

// ProvideIndicatorEngine creates the indicator engine with standard windows.
func ProvideIndicatorEngine() *usecase.IndicatorEngine {
	return usecase.NewIndicatorEngine(usecase.DefaultIndicatorWindows())
}

// ProvideSignalGenerator creates the two-timeframe signal generator.
func ProvideSignalGenerator(
	market drepo.MarketData,
	engine *usecase.IndicatorEngine,
	state drepo.StateStore,
	m drepo.Metrics,
	clk clock.Clock,
	cfg *config.Config,
) *usecase.SignalGenerator {
	return usecase.NewSignalGenerator(
		market,
		engine,
		state,
		m,
		clk,
		drepo.NormalizeTimeframe(cfg.Trading.ShortTimeframe),
		drepo.NormalizeTimeframe(cfg.Trading.TrendTimeframe),
	)
}

// ProvideRiskManager creates the position sizing calculator.
func ProvideRiskManager(exchange drepo.Exchange) *usecase.RiskManager {
	return usecase.NewRiskManager(exchange)
}

// ProvideGate creates the auto trading gate.
func ProvideGate(
	settings drepo.SettingsStore,
	state drepo.StateStore,
	m drepo.Metrics,
	l *applogger.Logger,
	clk clock.Clock,
) *usecase.AutoTradingController {
	return usecase.NewAutoTradingController(settings, state, m, l, clk)
}

// ProvideJobQueue creates the Redis job queue and registers the closed
// trade archive job. The executor enqueues through the same instance.
func ProvideJobQueue(l *applogger.Logger, rc *pkgcache.RedisCache, history *internalrepo.CHHistory, cfg *config.Config) *pkgqueue.RedisQueue {
	qc := &pkgqueue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.Size,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}
	q := pkgqueue.NewRedisQueue(l, qc, rc.Client(), pkgqueue.ModeProducerConsumer)
	q.RegisterJob(usecase.NewClosedTradeArchiveJob(history))
	return q
}

// ProvideOrderExecutor creates the order lifecycle executor.
func ProvideOrderExecutor(
	exchange drepo.Exchange,
	state drepo.StateStore,
	jobQueue *pkgqueue.RedisQueue,
	gate *usecase.AutoTradingController,
	m drepo.Metrics,
	locks *symbollock.Registry,
	l *applogger.Logger,
	clk clock.Clock,
) *usecase.OrderExecutor {
	return usecase.NewOrderExecutor(exchange, state, jobQueue, gate, m, locks, l, clk)
}

// ProvidePositionMonitor creates the stop loss and take profit monitor.
func ProvidePositionMonitor(
	market drepo.MarketData,
	state drepo.StateStore,
	executor *usecase.OrderExecutor,
	m drepo.Metrics,
	locks *symbollock.Registry,
	l *applogger.Logger,
	clk clock.Clock,
	cfg *config.Config,
) *usecase.PositionMonitor {
	return usecase.NewPositionMonitor(
		market,
		state,
		executor,
		m,
		locks,
		l,
		clk,
		cfg.Trading.MonitorPeriod,
		cfg.Trading.MonitorWorkers,
	)
}

// ProvideTradingService wires the full decision pipeline.
func ProvideTradingService(
	generator *usecase.SignalGenerator,
	risk *usecase.RiskManager,
	executor *usecase.OrderExecutor,
	gate *usecase.AutoTradingController,
	market drepo.MarketData,
	settings drepo.SettingsStore,
	state drepo.StateStore,
	history *internalrepo.CHHistory,
	publisher drepo.Publisher,
	l *applogger.Logger,
) *usecase.TradingService {
	return usecase.NewTradingService(generator, risk, executor, gate, market, settings, state, history, publisher, l)
}

// ProvideCandlesUseCase creates the candle query use case.
func ProvideCandlesUseCase(history *internalrepo.CHHistory) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(history)
}

// ProvideSignalArchiver creates the Kafka handler persisting published
// signals to ClickHouse.
func ProvideSignalArchiver(cfg *config.Config, history *internalrepo.CHHistory, m drepo.Metrics) *usecase.SignalArchiver {
	return usecase.NewSignalArchiver(cfg.Kafka.SignalTopic, history, m)
}

// ProvideCandleCollector creates the WebSocket candle ingestion loop.
func ProvideCandleCollector(
	stream drepo.CandleStream,
	history *internalrepo.CHHistory,
	trading *usecase.TradingService,
	m drepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.CandleCollector {
	return usecase.NewCandleCollector(
		stream,
		history,
		trading,
		m,
		l,
		drepo.NormalizeTimeframe(cfg.Trading.ShortTimeframe),
	)
}

// ProvideHTTPHandler creates the REST API handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	trading *usecase.TradingService,
	candles *usecase.CandlesUseCase,
	settings drepo.SettingsStore,
) xhttp.Handler {
	return api.NewTradingHandler(l, trading, candles, settings)
}

// ProvideApp creates the application server. Aggregated log shipping is
// attached here because the collector needs the Kafka publisher.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.CandleCollector,
	monitor *usecase.PositionMonitor,
	consumer *pkgkafka.Consumer,
	archiver *usecase.SignalArchiver,
	jobQueue *pkgqueue.RedisQueue,
	publisher drepo.Publisher,
	chClient *pkgch.Client,
	redis *pkgcache.RedisCache,
	m drepo.Metrics,
	handler xhttp.Handler,
) *server.App {
	if cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      publisher,
		})
	}
	if consumer != nil {
		consumer.WithConsumerHook(consumerHook(l, m))
	}
	return server.New(cfg, l, collector, monitor, consumer, archiver, jobQueue, publisher, chClient, redis, handler)
}

// consumerHook instruments archiver message handling with per-topic latency
// and error accounting.
func consumerHook(l *applogger.Logger, m drepo.Metrics) pkgkafka.ConsumerHook {
	timing := pkgkafka.HookFuncs{
		Before: func(ctx context.Context, topic string, km kafkago.Message, data []byte) (context.Context, kafkago.Message, []byte, error) {
			return pkgkafka.WithStartTime(ctx, time.Now()), km, data, nil
		},
		After: func(ctx context.Context, topic string, km kafkago.Message, data []byte, err error) {
			if start, ok := ctx.Value(pkgkafka.CtxStartTime).(time.Time); ok {
				m.RecordLatency("consume_"+topic, time.Since(start).Seconds())
			}
		},
	}
	accounting := pkgkafka.HookFuncs{
		Err: func(ctx context.Context, topic string, km kafkago.Message, data []byte, err error) {
			m.RecordError("kafka_consume")
			l.Warn("kafka message handling failed",
				applogger.String("topic", topic),
				applogger.Error(err),
			)
		},
	}
	return pkgkafka.NewHookChain(timing, accounting)
}
