package di

import (
    "context"
    "fmt"
    "time"

    "PhiTrade/internal/domain/repository"
    domsvc "PhiTrade/internal/domain/service"
    "PhiTrade/internal/handler/api"
    mid "PhiTrade/internal/middleware"
    internalrepo "PhiTrade/internal/repository"
    svccache "PhiTrade/internal/service/cache"
    "PhiTrade/internal/service/marketfeed"
    "PhiTrade/internal/services/decision"
    "PhiTrade/internal/services/encoding"
    "PhiTrade/internal/services/risk"
    "PhiTrade/internal/services/scoring"
    "PhiTrade/internal/services/stability"
    "PhiTrade/internal/usecase"
    pkgcache "PhiTrade/pkg/cache"
    pkgch "PhiTrade/pkg/clickhouse"
    "PhiTrade/pkg/config"
    pkgkafka "PhiTrade/pkg/kafka"
    applogger "PhiTrade/pkg/logger"
    "PhiTrade/pkg/metrics"
    "PhiTrade/pkg/queue"
    "PhiTrade/pkg/server"

    "github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "console"
	if cfg.Environment == "production" {
		format = "json"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client.
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

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
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

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTickStore creates the ClickHouse tick store and ensures its table.
func ProvideTickStore(chClient *pkgch.Client, l *applogger.Logger) (*internalrepo.ClickHouseTickStore, error) {
	store := internalrepo.NewClickHouseTickStore(chClient, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("tick store init: %w", err)
	}
	return store, nil
}

// ProvideStorage exposes the tick store through its domain interface.
func ProvideStorage(store *internalrepo.ClickHouseTickStore) repository.TickStore { return store }

// ProvidePriceStore exposes the tick store as ordered price history.
func ProvidePriceStore(store *internalrepo.ClickHouseTickStore) repository.PriceStore { return store }

// ProvideDecisionStore creates the ClickHouse decision audit store.
func ProvideDecisionStore(chClient *pkgch.Client, l *applogger.Logger) (repository.DecisionStore, error) {
	store := internalrepo.NewClickHouseDecisionStore(chClient, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("decision store init: %w", err)
	}
	return store, nil
}

// ProvidePublisher creates the Kafka publisher for ticks and decisions.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic, cfg.Kafka.DecisionTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
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

// ProvideKafkaTicksHandler registers handler for the ticks topic.
func ProvideKafkaTicksHandler(store repository.TickStore, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaTicksHandler {
	return usecase.NewKafkaTicksHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideMarketStream creates the WebSocket market feed.
func ProvideMarketStream(cfg *config.Config, l *applogger.Logger) repository.MarketStream {
	return marketfeed.New(
		l,
		cfg.MarketFeed.APIKey,
		cfg.MarketFeed.WebSocketURL,
		cfg.MarketFeed.Symbols,
		cfg.MarketFeed.ReconnectDelay,
		cfg.MarketFeed.PingInterval,
	)
}

// ProvideTickProcessor creates the tick processor use case.
func ProvideTickProcessor(
	pub repository.Publisher,
	store repository.TickStore,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.TickProcessor {
	return usecase.NewTickProcessor(
		pub,
		store,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideTickCollector creates the tick collector use case.
func ProvideTickCollector(
    stream repository.MarketStream,
    processor *usecase.TickProcessor,
    metrics repository.Metrics,
) *usecase.TickCollector {
    // Build middleware pipeline between WebSocket and the backend
    pipe := mid.NewRealtimePipeline(processor, metrics,
        mid.WithMaxRPS(50),
        mid.WithBufferSize(2000),
    )
    return usecase.NewTickCollector(stream, processor, metrics, pipe)
}

// ProvideEncoder creates the shared Zeckendorf encoder.
func ProvideEncoder() *encoding.Encoder {
	return encoding.NewEncoder()
}

// ProvideEstimator creates the VaR estimator from the risk section.
func ProvideEstimator(enc *encoding.Encoder, cfg *config.Config, l *applogger.Logger) *risk.Estimator {
	return risk.NewEstimator(enc, risk.Config{
		ConfidenceLevel:      cfg.Risk.ConfidenceLevel,
		TimeHorizonDays:      cfg.Risk.TimeHorizonDays,
		Simulations:          cfg.Risk.Simulations,
		PhiWeighting:         cfg.Risk.PhiWeighting,
		ZeckendorfVolatility: cfg.Risk.ZeckendorfVolatility,
		Seed:                 cfg.Risk.Seed,
	}, l)
}

// ProvideRedisClient creates the Redis client, nil when caching is disabled.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Scoring.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Scoring.Redis.Addr,
		Password: cfg.Scoring.Redis.Password,
		DB:       cfg.Scoring.Redis.DB,
	})
}

// ProvideActionScorer builds the HTTP scorer, wrapped with a Redis cache
// when one is configured.
func ProvideActionScorer(cfg *config.Config) domsvc.ActionScorer {
	scorer := scoring.NewHTTPActionScorer(cfg)
	if cfg.Scoring.Redis.Enabled {
		cache := svccache.NewRedisCache(svccache.RedisConfig{
			Addr:     cfg.Scoring.Redis.Addr,
			Password: cfg.Scoring.Redis.Password,
			DB:       cfg.Scoring.Redis.DB,
		})
		return scoring.NewCachedActionScorer(scorer, cache, cfg.Scoring.CacheTTL.Scores)
	}
	return scorer
}

// ProvideTrajectorySource builds the HTTP trajectory source behind an
// in-process cache that dedupes burst evaluations per symbol.
func ProvideTrajectorySource(cfg *config.Config) domsvc.TrajectorySource {
	source := scoring.NewHTTPTrajectorySource(cfg)
	mem := pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(1024))
	return scoring.NewCachedTrajectorySource(source, mem, cfg.Scoring.CacheTTL.Trajectory)
}

// ProvideEngine creates the decision engine from the decision section.
func ProvideEngine(enc *encoding.Encoder, scorer domsvc.ActionScorer, cfg *config.Config, l *applogger.Logger) *decision.Engine {
	return decision.NewEngine(enc, scorer, decision.Config{
		MinNashConfidence:  cfg.Decision.MinNashConfidence,
		EnableOptions:      cfg.Decision.EnableOptions,
		MaxPositionSizePct: cfg.Decision.MaxPositionSizePct,
		MaxLeverage:        cfg.Decision.MaxLeverage,
		HistoryCap:         cfg.Decision.HistoryCap,
		StartingCash:       cfg.Decision.StartingCash,
	}, l)
}

// ProvideAuditQueue starts the Redis-backed audit queue with the decision
// audit job registered. Returns nil when Redis is not configured; the
// pipeline treats the audit trail as best effort.
func ProvideAuditQueue(
	client *redis.Client,
	store repository.DecisionStore,
	pub repository.Publisher,
	l *applogger.Logger,
) (*queue.RedisQueue, error) {
	if client == nil {
		return nil, nil
	}
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    2,
		QueueSize:  1024,
		RetryLimit: 3,
		RetryDelay: time.Second,
	}, client, queue.ModeProducerConsumer, queue.WithKeyPrefix("phitrade:queue"))
	q.RegisterJob(usecase.NewDecisionAuditJob(store, pub, l))
	if err := q.Start(); err != nil {
		return nil, fmt.Errorf("audit queue start: %w", err)
	}
	return q, nil
}

// ProvidePipeline assembles the per-symbol decision pipeline.
func ProvidePipeline(
	enc *encoding.Encoder,
	estimator *risk.Estimator,
	engine *decision.Engine,
	trajectory domsvc.TrajectorySource,
	prices repository.PriceStore,
	metrics repository.Metrics,
	audit *queue.RedisQueue,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.DecisionPipeline {
	deps := usecase.PipelineDeps{
		Encoder:    enc,
		Estimator:  estimator,
		Engine:     engine,
		Trajectory: trajectory,
		Prices:     prices,
		Metrics:    metrics,
		Logger:     l,
	}
	if audit != nil {
		deps.Audit = audit
	}
	return usecase.NewDecisionPipeline(deps, usecase.PipelineConfig{
		Detector: stability.Config{
			NashThreshold:          cfg.Stability.NashThreshold,
			ConsciousnessThreshold: cfg.Stability.ConsciousnessThreshold,
			LyapunovWindow:         cfg.Stability.LyapunovWindow,
			LucasCheckRange:        cfg.Stability.LucasCheckRange,
			WindowCap:              cfg.Stability.WindowCap,
		},
		HistoryPoints: cfg.Risk.HistoryPoints,
		Timeframe:     cfg.MarketFeed.Timeframe,
		VaRTTL:        cfg.Scoring.CacheTTL.VaR,
	})
}

// ProvideDecisionsHandler creates the HTTP API handler.
func ProvideDecisionsHandler(
	l *applogger.Logger,
	pipeline *usecase.DecisionPipeline,
	decisions repository.DecisionStore,
) *api.DecisionsEchoHandler {
	return api.NewDecisionsEchoHandler(l, pipeline, decisions)
}

// ProvideApp creates the application server.
func ProvideApp(
    cfg *config.Config,
    l *applogger.Logger,
    collector *usecase.TickCollector,
    consumer *pkgkafka.Consumer,
    kh *usecase.KafkaTicksHandler,
    chClient *pkgch.Client,
    handler *api.DecisionsEchoHandler,
    audit *queue.RedisQueue,
) *server.App {
    // Attach hook to consumer: example NoopHook for now; can be replaced via config
    if consumer != nil {
        consumer.WithConsumerHook(pkgkafka.NoopHook{})
    }
    app := server.New(cfg, l, collector, consumer, kh, chClient)
    app.SetHTTPHandler(handler)
    app.SetAuditQueue(audit)
    if collector != nil {
        app.TickProc = collector.Processor()
    }
    return app
}
