package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Backends selectable for the cache and the event bus
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all configuration for the workflow engine
type Config struct {
	// Server configuration
	HTTPPort int    `env:"DAGO_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"DAGO_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis configuration
	Redis RedisConfig

	// Result cache configuration
	Cache CacheConfig

	// Event bus configuration
	Events EventsConfig

	// Worker configuration
	Workers WorkerConfig

	// Instruction execution configuration
	Executor ExecutorConfig

	// Coordinator configuration
	Coordinator CoordinatorConfig

	// Skill substrate configuration
	Skill SkillConfig

	// Tracing configuration
	Tracing TracingConfig

	// Timeouts
	Timeouts TimeoutConfig

	// BootstrapWorkflowsFile is a YAML file of workflow specs composed at startup
	BootstrapWorkflowsFile string `env:"BOOTSTRAP_WORKFLOWS_FILE"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// CacheConfig holds instruction result cache configuration
type CacheConfig struct {
	Backend    string        `env:"CACHE_BACKEND" envDefault:"memory"`
	TTL        time.Duration `env:"CACHE_TTL" envDefault:"1h"`
	MaxEntries int           `env:"CACHE_MAX_ENTRIES" envDefault:"10000"`
}

// EventsConfig holds event bus configuration
type EventsConfig struct {
	Backend       string `env:"EVENTS_BACKEND" envDefault:"memory"`
	ConsumerGroup string `env:"EVENTS_CONSUMER_GROUP" envDefault:"dago-workflow"`
	ConsumerName  string `env:"EVENTS_CONSUMER_NAME" envDefault:"dago-workflow-1"`
	StreamMaxLen  int64  `env:"EVENTS_STREAM_MAX_LEN" envDefault:"10000"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize            int           `env:"WORKER_POOL_SIZE" envDefault:"5"`
	QueueSize           int           `env:"WORKER_QUEUE_SIZE" envDefault:"100"`
	HealthCheckInterval time.Duration `env:"WORKER_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// ExecutorConfig holds instruction defaults and retry backoff bounds
type ExecutorConfig struct {
	DefaultTimeout time.Duration `env:"INSTRUCTION_DEFAULT_TIMEOUT" envDefault:"30s"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"200ms"`
	RetryMaxDelay  time.Duration `env:"RETRY_MAX_DELAY" envDefault:"10s"`
}

// CoordinatorConfig holds coordinator configuration
type CoordinatorConfig struct {
	QueueSize int `env:"COORDINATOR_QUEUE_SIZE" envDefault:"64"`
}

// SkillConfig selects the skill_invocation substrate
type SkillConfig struct {
	Provider  string `env:"SKILL_PROVIDER" envDefault:"loopback"`
	APIKey    string `env:"SKILL_LLM_API_KEY"`
	Model     string `env:"SKILL_LLM_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
	MaxTokens int64  `env:"SKILL_LLM_MAX_TOKENS" envDefault:"1024"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled bool   `env:"TRACING_ENABLED" envDefault:"false"`
	Output  string `env:"TRACING_OUTPUT"` // empty writes to stdout
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	WorkflowExecutionTimeout time.Duration `env:"TIMEOUT_WORKFLOW_EXECUTION" envDefault:"3600s"` // 1 hour
	ShutdownTimeout          time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// An API key alone switches the skill substrate to the LLM provider.
	if cfg.Skill.APIKey != "" && cfg.Skill.Provider == "loopback" {
		cfg.Skill.Provider = "anthropic"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	if !validBackend(c.Cache.Backend) {
		return fmt.Errorf("invalid cache backend: %s (must be memory or redis)", c.Cache.Backend)
	}
	if !validBackend(c.Events.Backend) {
		return fmt.Errorf("invalid events backend: %s (must be memory or redis)", c.Events.Backend)
	}
	if c.UsesRedis() && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache max entries must be at least 1")
	}

	// Validate skill substrate
	switch c.Skill.Provider {
	case "loopback":
	case "anthropic":
		if c.Skill.APIKey == "" {
			return fmt.Errorf("skill LLM API key is required for provider anthropic")
		}
		if c.Skill.MaxTokens < 1 {
			return fmt.Errorf("skill LLM max tokens must be at least 1")
		}
	default:
		return fmt.Errorf("unsupported skill provider: %s", c.Skill.Provider)
	}

	// Validate worker config
	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}
	if c.Workers.QueueSize < 0 {
		return fmt.Errorf("worker queue size must not be negative")
	}

	if c.Executor.RetryBaseDelay <= 0 || c.Executor.RetryMaxDelay < c.Executor.RetryBaseDelay {
		return fmt.Errorf("retry delays must satisfy 0 < base (%s) <= max (%s)",
			c.Executor.RetryBaseDelay, c.Executor.RetryMaxDelay)
	}
	if c.Coordinator.QueueSize < 1 {
		return fmt.Errorf("coordinator queue size must be at least 1")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// UsesRedis reports whether any backend needs a Redis connection
func (c *Config) UsesRedis() bool {
	return c.Cache.Backend == BackendRedis || c.Events.Backend == BackendRedis
}

func validBackend(b string) bool {
	return b == BackendMemory || b == BackendRedis
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
