package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/dago-workflow/internal/application/executor"
	"github.com/aescanero/dago-workflow/internal/application/instructions"
	"github.com/aescanero/dago-workflow/internal/application/optimizer"
	"github.com/aescanero/dago-workflow/internal/application/orchestrator"
	"github.com/aescanero/dago-workflow/internal/application/workers"
	"github.com/aescanero/dago-workflow/internal/config"
	"github.com/aescanero/dago-workflow/internal/tracing"
	"github.com/aescanero/dago-workflow/pkg/adapters/cache/memory"
	rediscache "github.com/aescanero/dago-workflow/pkg/adapters/cache/redis"
	eventsmemory "github.com/aescanero/dago-workflow/pkg/adapters/events/memory"
	eventsredis "github.com/aescanero/dago-workflow/pkg/adapters/events/redis"
	"github.com/aescanero/dago-workflow/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/dago-workflow/pkg/adapters/substrate"
	grpcapi "github.com/aescanero/dago-workflow/pkg/api/grpc"
	httpapi "github.com/aescanero/dago-workflow/pkg/api/http"
	"github.com/aescanero/dago-workflow/pkg/api/websocket"
	"github.com/aescanero/dago-workflow/pkg/ports"
	"github.com/aescanero/dago-workflow/pkg/workflowspec"

	promclient "github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting workflow engine",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("workflow engine failed", zap.Error(err))
	}

	logger.Info("workflow engine shut down complete")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		if err := tracing.Init("dago-workflow", Version, cfg.Tracing.Output); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			if err := tracing.Shutdown(context.Background()); err != nil {
				logger.Error("tracing shutdown error", zap.Error(err))
			}
		}()
	}

	// Redis is only dialled when a backend needs it
	var redisClient *goredis.Client
	if cfg.UsesRedis() {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("Redis close error", zap.Error(err))
			}
		}()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Initialize adapters
	cache, err := newCache(cfg, redisClient, logger)
	if err != nil {
		return err
	}

	eventBus, err := newEventBus(cfg, redisClient, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error("event bus close error", zap.Error(err))
		}
	}()

	metricsCollector := prometheus.NewCollector(promclient.DefaultRegisterer)

	substrates, err := substrate.NewSubstrates(&substrate.Config{
		SkillProvider: cfg.Skill.Provider,
		APIKey:        cfg.Skill.APIKey,
		Model:         cfg.Skill.Model,
		MaxTokens:     cfg.Skill.MaxTokens,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create substrates: %w", err)
	}

	// Initialize application components
	exec := executor.NewExecutor(&executor.Config{
		Cache:      cache,
		Substrates: substrates,
		Metrics:    metricsCollector,
		Logger:     logger,
		CacheTTL:   cfg.Cache.TTL,
		Retry: executor.RetryConfig{
			BaseDelay: cfg.Executor.RetryBaseDelay,
			MaxDelay:  cfg.Executor.RetryMaxDelay,
		},
	})

	workerPool := workers.NewPool(cfg.Workers.PoolSize, cfg.Workers.QueueSize, logger)
	if err := workerPool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	coordinator := orchestrator.NewCoordinator(&orchestrator.Config{
		Normalizer:      instructions.NewNormalizer(instructions.WithDefaultTimeout(cfg.Executor.DefaultTimeout)),
		Executor:        exec,
		Optimizer:       optimizer.New(logger),
		Cache:           cache,
		Pool:            workerPool,
		EventBus:        eventBus,
		Metrics:         metricsCollector,
		Logger:          logger,
		QueueSize:       cfg.Coordinator.QueueSize,
		WorkflowTimeout: cfg.Timeouts.WorkflowExecutionTimeout,
	})

	healthMonitor := orchestrator.NewHealthMonitor(coordinator, cfg.Workers.HealthCheckInterval, logger)
	healthMonitor.Start()
	defer healthMonitor.Stop()

	if err := bootstrap(ctx, cfg.BootstrapWorkflowsFile, coordinator, logger); err != nil {
		return err
	}

	// Initialize API servers
	httpServer := httpapi.NewServer(&httpapi.Config{
		Port:        cfg.HTTPPort,
		Coordinator: coordinator,
		Logger:      logger,
	})
	httpServer.SetupWebSocket(websocket.NewHandler(eventBus, logger))

	grpcServer, err := grpcapi.NewServer(&grpcapi.Config{
		Port:   cfg.GRPCPort,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpServer.Start)
	g.Go(grpcServer.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
		defer cancel()

		grpcServer.SetServing(false)

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", zap.Error(err))
		}
		if err := grpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("gRPC server shutdown error", zap.Error(err))
		}
		if err := coordinator.Shutdown(shutdownCtx); err != nil {
			logger.Error("coordinator shutdown error", zap.Error(err))
		}
		if err := workerPool.Shutdown(shutdownCtx); err != nil {
			logger.Error("worker pool shutdown error", zap.Error(err))
		}
		return nil
	})

	grpcServer.SetServing(true)
	logger.Info("workflow engine started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("events_backend", cfg.Events.Backend),
		zap.String("skill_provider", cfg.Skill.Provider))

	return g.Wait()
}

func newCache(cfg *config.Config, client *goredis.Client, logger *zap.Logger) (ports.InstructionCache, error) {
	if cfg.Cache.Backend == config.BackendRedis {
		return rediscache.NewInstructionCache(client, logger), nil
	}
	cache, err := memory.NewInstructionCache(cfg.Cache.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return cache, nil
}

func newEventBus(cfg *config.Config, client *goredis.Client, logger *zap.Logger) (ports.EventBus, error) {
	if cfg.Events.Backend != config.BackendRedis {
		return eventsmemory.NewInMemoryEventBus(), nil
	}
	bus, err := eventsredis.NewStreamsEventBus(
		client,
		cfg.Events.ConsumerGroup,
		fmt.Sprintf("%s-%d", cfg.Events.ConsumerName, os.Getpid()),
		cfg.Events.StreamMaxLen,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	return bus, nil
}

// bootstrap composes the workflows listed in path. A workflow that fails to
// compose is logged and skipped.
func bootstrap(ctx context.Context, path string, coordinator *orchestrator.Coordinator, logger *zap.Logger) error {
	if path == "" {
		return nil
	}

	specs, err := workflowspec.LoadBootstrapFile(path)
	if err != nil {
		return fmt.Errorf("failed to load bootstrap workflows: %w", err)
	}

	for i := range specs {
		id, err := coordinator.Compose(ctx, &specs[i])
		if err != nil {
			logger.Error("failed to compose bootstrap workflow",
				zap.String("name", specs[i].Name),
				zap.Error(err))
			continue
		}
		logger.Info("bootstrap workflow composed",
			zap.String("name", specs[i].Name),
			zap.String("workflow_id", id))
	}
	return nil
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
