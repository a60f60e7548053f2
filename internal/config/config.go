package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
	Provider ProviderConfig `mapstructure:"provider" validate:"required"`
	DocParse DocParseConfig `mapstructure:"docparse"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// StorageConfig configures the artifact store that holds uploaded and
// generated files (template images, page renders, exports).
type StorageConfig struct {
	// Root is the directory under which all artifacts are stored.
	Root string `mapstructure:"root" validate:"required"`

	// PublicBaseURL is prepended to stored paths to build the URL at
	// which an artifact is served, e.g. "/files".
	PublicBaseURL string `mapstructure:"public_base_url" validate:"required"`
}

// ProviderConfig contains settings for the generative image provider.
type ProviderConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ImageModel   string `mapstructure:"image_model"    validate:"required"`

	// AspectRatio and Resolution are the defaults applied to generation
	// requests that do not specify their own, e.g. "16:9" and "2K".
	AspectRatio string `mapstructure:"aspect_ratio" validate:"required"`
	Resolution  string `mapstructure:"resolution"   validate:"required"`

	// OutputLanguage is the default language for text rendered into slides.
	OutputLanguage string `mapstructure:"output_language" validate:"required"`

	// CallTimeout bounds a single provider call. Expiry is reported as a
	// task failure, never a hang.
	CallTimeout time.Duration `mapstructure:"call_timeout" validate:"required"`

	// MaxRetries is the number of retry attempts for transient provider
	// errors (rate limiting, temporary unavailability).
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`
}

// DocParseConfig contains settings for the external document-parsing service
// used by the editable-deck export pipeline and reference-file parsing.
type DocParseConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Token        string        `mapstructure:"token"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
}

// TaskConfig contains settings for the background task subsystem.
type TaskConfig struct {
	// WorkerCount is the size of the task runner's worker pool.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`

	// QueueSize is the buffer size of the in-memory task queue. Submissions
	// beyond this are rejected rather than blocking the caller.
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`

	// ExportWorkerCount bounds the clean-background fan-out inside the
	// editable-deck export pipeline. It is independent of WorkerCount.
	ExportWorkerCount int `mapstructure:"export_worker_count" validate:"required,gt=0,lte=8"`
}
