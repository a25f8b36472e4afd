package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// Queue backend identifiers.
const (
	QueueBackendMemory = "memory"
	QueueBackendRedis  = "redis"
)

// QueueConfig selects and tunes the work queue hand-off between the
// submission path and the worker pool. The memory backend is a buffered
// in-process channel whose durability comes from startup recovery out
// of the task store; the redis backend delegates durability to the
// broker.
type QueueConfig struct {
	Backend  string `mapstructure:"backend"   validate:"required,oneof=memory redis"`
	Size     int    `mapstructure:"size"      validate:"required,gt=0"`
	RedisURL string `mapstructure:"redis_url" validate:"omitempty,uri"`
}

// WorkerConfig tunes the worker execution engine.
type WorkerConfig struct {
	// Count determines how many concurrent workers process tasks.
	Count int `mapstructure:"count" validate:"required,gt=0"`

	// MaxAttempts bounds the retry policy: a task whose computation
	// keeps failing is marked failed once this many attempts have been
	// made.
	MaxAttempts int `mapstructure:"max_attempts" validate:"required,gt=0"`

	// ComputeDelayMs is the simulated processing delay, in milliseconds,
	// applied by the built-in compute executor. Zero disables the delay;
	// useful in tests.
	ComputeDelayMs int `mapstructure:"compute_delay_ms" validate:"gte=0"`
}
