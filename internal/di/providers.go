package di

import (
	"fmt"
	"time"

	"PoolWatch/internal/detector"
	"PoolWatch/internal/domain/models"
	"PoolWatch/internal/domain/repository"
	domservice "PoolWatch/internal/domain/service"
	"PoolWatch/internal/handler/api"
	mid "PoolWatch/internal/middleware"
	internalrepo "PoolWatch/internal/repository"
	"PoolWatch/internal/service/breaker"
	"PoolWatch/internal/service/parser"
	"PoolWatch/internal/service/rpcpool"
	"PoolWatch/internal/service/solana"
	"PoolWatch/internal/usecase"
	pkgcache "PoolWatch/pkg/cache"
	"PoolWatch/pkg/config"
	pkgkafka "PoolWatch/pkg/kafka"
	"PoolWatch/pkg/logger"
	"PoolWatch/pkg/metrics"
	"PoolWatch/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return logger.New(&logger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvidePool builds the rate-limited endpoint pool from config.
func ProvidePool(cfg *config.Config, m repository.Metrics) *rpcpool.Pool {
	eps := make([]*rpcpool.Endpoint, 0, len(cfg.RPC.Endpoints))
	for _, ec := range cfg.RPC.Endpoints {
		eps = append(eps, rpcpool.NewEndpoint(ec.Name, ec.URL, ec.Priority, ec.MaxRPS, ec.Burst))
	}
	return rpcpool.New(eps, m)
}

// ProvideBreaker creates the per-operation circuit breaker.
func ProvideBreaker(cfg *config.Config, m repository.Metrics) *breaker.Breaker {
	opts := []breaker.Option{breaker.WithMetrics(m)}
	if cfg.Breaker.MaxFailures > 0 {
		opts = append(opts, breaker.WithMaxFailures(cfg.Breaker.MaxFailures))
	}
	if cfg.Breaker.Cooldown > 0 {
		opts = append(opts, breaker.WithCooldown(cfg.Breaker.Cooldown))
	}
	b := breaker.New(opts...)
	// the RPC operations are critical: an open circuit serves an empty
	// signature page or skips the transaction instead of erroring the loop
	b.RegisterCritical(usecase.OpSignatures, func() any { return []solana.SignatureInfo{} })
	b.RegisterCritical(usecase.OpTransaction, func() any { return (*models.RawTransaction)(nil) })
	return b
}

// ProvideCache builds the shared parse cache, or nil when disabled.
func ProvideCache(cfg *config.Config) (pkgcache.Service, error) {
	switch cfg.Cache.Type {
	case "", "memory":
		return pkgcache.NewMemoryCache(), nil
	case "redis":
		return pkgcache.NewRedisCache(
			pkgcache.WithRedisAddr(cfg.Cache.Redis.Addr),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		)
	case "layered":
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisAddr(cfg.Cache.Redis.Addr),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, err
		}
		return pkgcache.NewLayeredCache(rc), nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Cache.Type)
	}
}

// ProvideParser creates the instruction parser backed by the shared cache.
func ProvideParser(c pkgcache.Service, m repository.Metrics) *parser.Parser {
	return parser.New(parser.WithSharedCache(c), parser.WithMetrics(m))
}

// ProvideSolanaClient creates the pool-routed JSON-RPC client.
func ProvideSolanaClient(cfg *config.Config, pool *rpcpool.Pool, m repository.Metrics) *solana.Client {
	opts := []solana.Option{solana.WithMetrics(m)}
	if cfg.RPC.Commitment != "" {
		opts = append(opts, solana.WithCommitment(cfg.RPC.Commitment))
	}
	return solana.NewClient(pool, opts...)
}

// ProvideFetcher creates the transaction fetcher.
func ProvideFetcher(client *solana.Client, brk *breaker.Breaker, cfg *config.Config, m repository.Metrics, log *logger.Logger) *usecase.Fetcher {
	exchanges := make([]usecase.Exchange, 0, len(cfg.Fetcher.Exchanges))
	for _, ec := range cfg.Fetcher.Exchanges {
		limit := ec.SignatureLimit
		if limit <= 0 {
			limit = 25
		}
		exchanges = append(exchanges, usecase.Exchange{
			Name:           ec.Name,
			ProgramID:      ec.ProgramID,
			SignatureLimit: limit,
		})
	}
	return usecase.NewFetcher(client, brk, exchanges, m, log)
}

// ProvideDetectors registers one detector per supported DEX.
func ProvideDetectors(p *parser.Parser) []domservice.Detector {
	reg := detector.NewRegistry(
		detector.NewRaydium(p),
		detector.NewPumpFun(p),
	)
	return reg.All()
}

// ProvideOrchestrator creates the detector fan-out orchestrator.
func ProvideOrchestrator(detectors []domservice.Detector, brk *breaker.Breaker, cfg *config.Config, m repository.Metrics, log *logger.Logger) *usecase.Orchestrator {
	opts := []usecase.OrchestratorOption{
		usecase.WithDetectorTimeout(cfg.Orchestrator.DetectorTimeout),
		usecase.WithBatchTimeout(cfg.Orchestrator.BatchTimeout),
	}
	if cfg.Orchestrator.MaxLatencyMs > 0 {
		opts = append(opts, usecase.WithTargets(usecase.Targets{
			MaxLatencyMs:          cfg.Orchestrator.MaxLatencyMs,
			MinSuccessRate:        cfg.Orchestrator.MinSuccessRate,
			MinParallelEfficiency: cfg.Orchestrator.MinParallelEfficiency,
		}))
	}
	return usecase.NewOrchestrator(detectors, brk, m, log, opts...)
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

// ProvideEmitter wraps the Kafka emitter with retry buffering.
func ProvideEmitter(producer *pkgkafka.Producer, cfg *config.Config, m repository.Metrics) *mid.BufferedEmitter {
	kafkaEmitter := internalrepo.NewKafkaEmitter(producer, cfg.Kafka.Topic)
	var opts []mid.BufferOption
	if cfg.Emission.BufferSize > 0 {
		opts = append(opts, mid.WithBufferSize(cfg.Emission.BufferSize))
	}
	return mid.NewBufferedEmitter(kafkaEmitter, m, opts...)
}

// ProvideStream creates the push signature stream, or nil when disabled.
func ProvideStream(cfg *config.Config) repository.SignatureStream {
	if !cfg.Stream.Enabled || cfg.Stream.WebSocketURL == "" {
		return nil
	}
	programs := make([]string, 0, len(cfg.Fetcher.Exchanges))
	for _, ec := range cfg.Fetcher.Exchanges {
		programs = append(programs, ec.ProgramID)
	}
	return solana.NewLogStream(
		cfg.Stream.WebSocketURL,
		programs,
		cfg.RPC.Commitment,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
	)
}

// ProvideWatcher creates the ingest loop.
func ProvideWatcher(fetcher *usecase.Fetcher, orch *usecase.Orchestrator, emitter *mid.BufferedEmitter, stream repository.SignatureStream, cfg *config.Config, log *logger.Logger) *usecase.Watcher {
	opts := []usecase.WatcherOption{
		usecase.WithPollInterval(cfg.Fetcher.PollInterval),
		usecase.WithDedupWindow(cfg.Fetcher.DedupWindow),
	}
	if stream != nil {
		opts = append(opts, usecase.WithStream(stream))
	}
	return usecase.NewWatcher(fetcher, orch, emitter, log, opts...)
}

// ProvideStatusHandler creates the ops HTTP handler.
func ProvideStatusHandler(log *logger.Logger, orch *usecase.Orchestrator, fetcher *usecase.Fetcher, brk *breaker.Breaker, pool *rpcpool.Pool, p *parser.Parser, stream repository.SignatureStream) *api.StatusHandler {
	return api.NewStatusHandler(log, orch, fetcher, brk, pool, p, stream)
}

// ProvideApp creates the application server. With a logs topic configured,
// repeated error logs aggregate into Kafka alongside the emission stream.
func ProvideApp(cfg *config.Config, watcher *usecase.Watcher, emitter *mid.BufferedEmitter, handler *api.StatusHandler, producer *pkgkafka.Producer, log *logger.Logger) *server.App {
	if cfg.Kafka.LogsTopic != "" {
		log.AddCollector(&logger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      internalrepo.NewKafkaLogPublisher(producer),
		})
	}
	return server.New(cfg, watcher, emitter, handler, log)
}
