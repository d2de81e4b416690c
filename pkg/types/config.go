package types

import "time"

// HTTPConfig holds shared HTTP settings used by backends that make network requests.
type HTTPConfig struct {
	// Timeout bounds each external call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "marketing-research/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// AIConfig holds settings for the text generation backend.
type AIConfig struct {
	// Model is the generation model identifier (e.g. "gemini-2.5-flash").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the generation API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retries for structured generation whose
	// output fails schema validation (default 0: fail on first bad payload).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Timeout bounds each generation call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// Temperature is passed to the model when positive.
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
}

// SearchConfig holds settings for the search backends.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Model is the model used for search-grounded generation (defaults to AIConfig.Model).
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// RatePerSecond caps search calls per second across a pass (0 = unlimited).
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second" mapstructure:"rate_per_second"`

	// Burst is the limiter burst size (default 1).
	Burst int `json:"burst" yaml:"burst" mapstructure:"burst"`

	// MaxConcurrent bounds in-flight queries per batch (0 = unbounded).
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent" mapstructure:"max_concurrent"`

	// YouTubeAPIKey authenticates the video search backend.
	YouTubeAPIKey string `json:"youtube_api_key,omitempty" yaml:"youtube_api_key,omitempty" mapstructure:"youtube_api_key"`

	// YouTubeMaxResults is the number of videos fetched per query (default 5).
	YouTubeMaxResults int `json:"youtube_max_results" yaml:"youtube_max_results" mapstructure:"youtube_max_results"`

	// MaxRetries is the number of 429 retries for HTTP backends (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// PipelineConfig bounds the research pass.
type PipelineConfig struct {
	// MinQueries and MaxQueries are the default planner bounds (2 and 7).
	MinQueries int `json:"min_queries" yaml:"min_queries" mapstructure:"min_queries"`
	MaxQueries int `json:"max_queries" yaml:"max_queries" mapstructure:"max_queries"`

	// MaxFollowUps caps evaluator follow-up queries per round (default 7).
	MaxFollowUps int `json:"max_follow_ups" yaml:"max_follow_ups" mapstructure:"max_follow_ups"`

	// MaxRefinementRounds bounds evaluate/refine rounds (default 1).
	MaxRefinementRounds int `json:"max_refinement_rounds" yaml:"max_refinement_rounds" mapstructure:"max_refinement_rounds"`

	// MaxConcurrentStages bounds concurrent research stages (0 = all at once).
	MaxConcurrentStages int `json:"max_concurrent_stages" yaml:"max_concurrent_stages" mapstructure:"max_concurrent_stages"`
}

// StorageConfig locates the artifact database and blob directory.
type StorageConfig struct {
	// ArtifactDB is the sqlite file holding versioned artifacts.
	ArtifactDB string `json:"artifact_db" yaml:"artifact_db" mapstructure:"artifact_db"`

	// BlobDir is the root of the blob store.
	BlobDir string `json:"blob_dir" yaml:"blob_dir" mapstructure:"blob_dir"`
}

// SessionConfig configures pass checkpointing.
type SessionConfig struct {
	// RedisAddr enables Redis checkpoints when set (e.g. "localhost:6379").
	RedisAddr string `json:"redis_addr" yaml:"redis_addr" mapstructure:"redis_addr"`

	// RedisPassword authenticates to Redis.
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty" mapstructure:"redis_password"`

	// TTL is how long a checkpoint lives (default 24h).
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// RenderConfig configures PDF rendering.
type RenderConfig struct {
	// Image is the container image that turns markdown on stdin into a PDF on stdout.
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	// Runtime selects "docker" or "podman"; empty tries docker first.
	Runtime string `json:"runtime" yaml:"runtime" mapstructure:"runtime"`

	// Timeout bounds one render.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "json" or "console".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	// File receives the Prometheus text exposition after a run when set.
	File string `json:"file" yaml:"file" mapstructure:"file"`
}

// Config groups all settings.
type Config struct {
	AI       AIConfig       `json:"ai" yaml:"ai" mapstructure:"ai"`
	Search   SearchConfig   `json:"search" yaml:"search" mapstructure:"search"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Storage  StorageConfig  `json:"storage" yaml:"storage" mapstructure:"storage"`
	Session  SessionConfig  `json:"session" yaml:"session" mapstructure:"session"`
	Render   RenderConfig   `json:"render" yaml:"render" mapstructure:"render"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}
