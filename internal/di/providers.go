package di

import (
	"context"
	"fmt"
	"time"

	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/handler/api"
	"StockCast/internal/handler/ws"
	internalrepo "StockCast/internal/repository"
	"StockCast/internal/scheduler"
	"StockCast/internal/service/polygon"
	"StockCast/internal/service/ratelimit"
	"StockCast/internal/usecase"
	"StockCast/pkg/cache"
	pkgch "StockCast/pkg/clickhouse"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	pkgkafka "StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/metrics"
	"StockCast/pkg/queue"
	"StockCast/pkg/server"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideAWSConfig loads the shared AWS configuration.
func ProvideAWSConfig(cfg *config.Config) (aws.Config, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("aws config: %w", err)
	}
	return awsCfg, nil
}

// ProvideBlobStore creates the S3 or filesystem blob store.
func ProvideBlobStore(cfg *config.Config, awsCfg aws.Config, lgr *applogger.Logger) (domrepo.BlobStore, error) {
	if cfg.Storage.Backend == "s3" {
		return internalrepo.NewS3BlobStore(awsCfg, cfg.Storage.Bucket, cfg.Storage.Endpoint, lgr), nil
	}
	store, err := internalrepo.NewFSBlobStore(cfg.Storage.Root, lgr)
	if err != nil {
		return nil, fmt.Errorf("fs blob store: %w", err)
	}
	return store, nil
}

// ProvideClickHouseClient creates a ClickHouse client when it backs the catalog.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Catalog.Backend != "clickhouse" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideCatalog creates the ClickHouse or SQLite catalog and its schema.
func ProvideCatalog(cfg *config.Config, ch *pkgch.Client, lgr *applogger.Logger) (domrepo.Catalog, error) {
	var catalog domrepo.Catalog
	if ch != nil {
		c := internalrepo.NewCHCatalog(ch)
		c.SetLogger(lgr)
		catalog = c
	} else {
		c, err := internalrepo.NewSQLiteCatalog(cfg.Catalog.SQLitePath, lgr)
		if err != nil {
			return nil, fmt.Errorf("sqlite catalog: %w", err)
		}
		catalog = c
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := catalog.Init(ctx); err != nil {
		_ = catalog.Close()
		return nil, fmt.Errorf("catalog schema: %w", err)
	}
	return catalog, nil
}

// ProvideRedisClient creates the Redis client used by the queue, the
// artifact cache and the schedule locks. Nil when Redis is disabled.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideCache creates the layered artifact cache. Redis backs it and its
// locks when available.
func ProvideCache(cfg *config.Config, rdb *redis.Client) cache.Service {
	var remote *cache.RedisCache
	if rdb != nil {
		remote = cache.NewRedisCache(rdb,
			cache.WithRedisPrefix(cfg.Redis.KeyPrefix),
			cache.WithRedisDefaultTTL(cfg.Predict.CacheTTL),
		)
	}
	return cache.NewLayeredCache(remote,
		cache.WithMemoryMaxSize(cfg.Predict.CacheSize),
		cache.WithMemoryDefaultTTL(cfg.Predict.CacheTTL),
	)
}

// ProvideKafkaProducer creates a Kafka producer. Nil when Kafka is disabled.
// The producer also carries the error digest when log collection is on.
func ProvideKafkaProducer(cfg *config.Config, lgr *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Log.Collect {
		lgr.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.FlushInterval,
			CountThreshold: 100,
			Topic:          cfg.Log.CollectTopic,
			Publisher:      producer,
		})
	}
	return producer, nil
}

// ProvideEventPublisher announces processed datasets on Kafka.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.DatasetTopic)
}

// ProvideRunsHub creates the websocket feed of training runs.
func ProvideRunsHub(lgr *applogger.Logger) *ws.RunsHub {
	return ws.NewRunsHub(lgr)
}

// ProvideTrainer creates the in-process trainer.
func ProvideTrainer(
	cfg *config.Config,
	blobs domrepo.BlobStore,
	catalog domrepo.Catalog,
	hub *ws.RunsHub,
	m domrepo.Metrics,
	lgr *applogger.Logger,
) *usecase.Trainer {
	return usecase.NewTrainer(blobs, catalog, hub, m, lgr, usecase.TrainerOptions{
		Window:       cfg.Features.Window,
		TestFraction: cfg.Training.TestFraction,
		Seed:         cfg.Training.Seed,
		MaxDepth:     cfg.Training.TreeMaxDepth,
	})
}

// ProvideQueue creates the Redis training queue. Nil without Redis.
func ProvideQueue(cfg *config.Config, rdb *redis.Client, trainer *usecase.Trainer, lgr *applogger.Logger) *queue.RedisQueue {
	if rdb == nil {
		return nil
	}
	q := queue.NewRedisQueue(lgr, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rdb, queue.WithKeyPrefix(cfg.Queue.KeyPrefix))
	q.RegisterJob(trainer)
	return q
}

// ProvideLocalSubmitter runs in-process training on goroutines when there
// is no queue.
func ProvideLocalSubmitter(cfg *config.Config, q *queue.RedisQueue, trainer *usecase.Trainer, lgr *applogger.Logger) *usecase.LocalSubmitter {
	if q != nil {
		return nil
	}
	return usecase.NewLocalSubmitter(trainer, cfg.Queue.Workers, lgr)
}

// ProvideSageMakerSubmitter creates the delegated submitter. Nil without an
// execution role.
func ProvideSageMakerSubmitter(cfg *config.Config, awsCfg aws.Config, lgr *applogger.Logger) *internalrepo.SageMakerSubmitter {
	if cfg.Training.RoleARN == "" {
		return nil
	}
	return internalrepo.NewSageMakerSubmitter(sagemaker.NewFromConfig(awsCfg), internalrepo.SageMakerResources{
		RoleARN:       cfg.Training.RoleARN,
		InstanceType:  cfg.Training.InstanceType,
		InstanceCount: cfg.Training.InstanceCount,
		VolumeSizeGB:  cfg.Training.VolumeSizeGB,
		MaxRuntime:    cfg.Training.MaxRuntime,
	}, lgr)
}

// ProvideDispatcher wires the family table to the available submitters.
func ProvideDispatcher(
	cfg *config.Config,
	blobs domrepo.BlobStore,
	catalog domrepo.Catalog,
	q *queue.RedisQueue,
	local *usecase.LocalSubmitter,
	sm *internalrepo.SageMakerSubmitter,
	hub *ws.RunsHub,
	m domrepo.Metrics,
	lgr *applogger.Logger,
) *usecase.Dispatcher {
	deps := usecase.DispatcherDeps{
		Families:     cfg.Training.Families,
		Defaults:     cfg.Training.DefaultFamilies,
		WindowLength: cfg.Features.WindowLength,
		Blobs:        blobs,
		Catalog:      catalog,
		Notifier:     hub,
		Metrics:      m,
		Log:          lgr,
	}
	if q != nil {
		deps.InProcess = internalrepo.NewQueueSubmitter(q)
	} else if local != nil {
		deps.InProcess = local
	}
	if sm != nil {
		deps.Delegated = sm
	}
	return usecase.NewDispatcher(deps)
}

// ProvideMarketData creates the aggregates client.
func ProvideMarketData(cfg *config.Config, lgr *applogger.Logger) domrepo.MarketData {
	return polygon.New(lgr, cfg.Polygon.BaseURL, cfg.Polygon.APIKey,
		polygon.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Polygon.Timeout))),
		polygon.WithRequestsPerMinute(cfg.Polygon.RequestsPerMinute),
	)
}

// ProvideIngestor creates the ingestion use case.
func ProvideIngestor(
	cfg *config.Config,
	market domrepo.MarketData,
	blobs domrepo.BlobStore,
	catalog domrepo.Catalog,
	events domrepo.EventPublisher,
	dispatcher *usecase.Dispatcher,
	m domrepo.Metrics,
	lgr *applogger.Logger,
) *usecase.Ingestor {
	return usecase.NewIngestor(market, blobs, catalog, events, dispatcher, m, lgr, usecase.IngestOptions{
		Window:       cfg.Features.Window,
		WindowLength: cfg.Features.WindowLength,
		PresignTTL:   cfg.Storage.PresignTTL,
	})
}

// ProvidePredictor creates the prediction use case.
func ProvidePredictor(cfg *config.Config, blobs domrepo.BlobStore, catalog domrepo.Catalog, artifacts cache.Service, m domrepo.Metrics, lgr *applogger.Logger) *usecase.Predictor {
	return usecase.NewPredictor(blobs, catalog, artifacts, m, lgr, usecase.PredictOptions{
		Window:   cfg.Features.Window,
		CacheTTL: cfg.Predict.CacheTTL,
	})
}

// ProvideEvaluator creates the evaluation use case.
func ProvideEvaluator(blobs domrepo.BlobStore, m domrepo.Metrics, lgr *applogger.Logger) *usecase.Evaluator {
	return usecase.NewEvaluator(blobs, m, lgr)
}

// ProvideKafkaConsumer creates the dataset event consumer. Nil when Kafka is
// disabled.
func ProvideKafkaConsumer(cfg *config.Config, dispatcher *usecase.Dispatcher, lgr *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(lgr,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.TracingHook(),
		pkgkafka.HookFuncs{
			Err: func(ctx context.Context, topic string, km kafka.Message, _ []byte, err error) {
				lgr.Warn("dataset event failed",
					applogger.String("topic", topic),
					applogger.Int64("offset", km.Offset),
					applogger.String("trace_id", pkgkafka.TraceID(ctx)),
					applogger.Error(err))
			},
		},
	))
	consumer.RegisterHandler(usecase.NewDatasetEventHandler(cfg.Kafka.DatasetTopic, dispatcher, lgr))
	return consumer, nil
}

// ProvideScheduler creates the cron ingestion scheduler. Nil when disabled.
func ProvideScheduler(cfg *config.Config, ingestor *usecase.Ingestor, locks cache.Service, lgr *applogger.Logger) *scheduler.Scheduler {
	if !cfg.Schedule.Enabled {
		return nil
	}
	return scheduler.New(ingestor, locks, scheduler.NewTradingCalendar(cfg.Schedule.Market), scheduler.Config{
		Spec:     cfg.Schedule.Cron,
		Symbols:  cfg.Schedule.Symbols,
		Lookback: cfg.Schedule.Lookback,
		Train:    cfg.Schedule.Train,
		LockTTL:  cfg.Schedule.LockTTL,
	}, lgr)
}

// ProvidePipelineHandler creates the /api/v1 routes behind the per-client
// rate limit.
func ProvidePipelineHandler(
	cfg *config.Config,
	lgr *applogger.Logger,
	ingestor *usecase.Ingestor,
	dispatcher *usecase.Dispatcher,
	predictor *usecase.Predictor,
	evaluator *usecase.Evaluator,
	catalog domrepo.Catalog,
) *api.PipelineHandler {
	var mw []echo.MiddlewareFunc
	if cfg.Server.RatePerMinute > 0 {
		mw = append(mw, ratelimit.Middleware(ratelimit.New(cfg.Server.RatePerMinute, cfg.Server.RatePerMinute/4+1)))
	}
	return api.NewPipelineHandler(lgr, ingestor, dispatcher, predictor, evaluator, catalog, mw...)
}

// ProvideHTTPServer creates the Echo server with every route.
func ProvideHTTPServer(cfg *config.Config, lgr *applogger.Logger, pipeline *api.PipelineHandler, hub *ws.RunsHub) *xhttp.Server {
	return xhttp.NewServer(lgr, []xhttp.Handler{pipeline, hub},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORS(!cfg.Server.DisableCORS),
	)
}

// ProvideApp assembles the application lifecycle.
func ProvideApp(
	cfg *config.Config,
	lgr *applogger.Logger,
	httpServer *xhttp.Server,
	hub *ws.RunsHub,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	local *usecase.LocalSubmitter,
	sched *scheduler.Scheduler,
	catalog domrepo.Catalog,
	events domrepo.EventPublisher,
	artifacts cache.Service,
	rdb *redis.Client,
) *server.App {
	return server.New(cfg, lgr, server.Components{
		HTTP:      httpServer,
		Runs:      hub,
		Consumer:  consumer,
		Queue:     q,
		Local:     local,
		Scheduler: sched,
		Catalog:   catalog,
		Events:    events,
		Cache:     artifacts,
		Redis:     rdb,
	})
}
