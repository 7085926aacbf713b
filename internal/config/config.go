package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Output   OutputConfig   `mapstructure:"output"   validate:"required"`
	Pipeline PipelineConfig `mapstructure:"pipeline" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// HistoryPageSize is the default page size for the /history endpoint.
	HistoryPageSize int `mapstructure:"history_page_size" validate:"gt=0"`
}

// OutputConfig describes the volume generated images are written to.
type OutputConfig struct {
	// Dir is the directory output PNGs are written to. Created on startup
	// if absent.
	Dir string `mapstructure:"dir" validate:"required"`

	// MinFreeGB is the free-space threshold for the disk guard. When free
	// space on the output volume drops below this many gibibytes, existing
	// output files are deleted largest-and-oldest-first before a new job
	// is admitted.
	MinFreeGB float64 `mapstructure:"min_free_gb" validate:"gte=0"`
}

// PipelineConfig selects and configures the diffusion backend.
type PipelineConfig struct {
	// Backend selects the pipeline implementation: "remote" posts render
	// specs to a diffusion sidecar, "gemini" uses the Gemini image API.
	Backend string `mapstructure:"backend" validate:"required,oneof=remote gemini"`

	// RemoteURL is the base URL of the diffusion sidecar. Required when
	// Backend is "remote".
	RemoteURL string `mapstructure:"remote_url" validate:"required_if=Backend remote,omitempty,url"`

	// GeminiAPIKey authenticates against the Gemini API. Required when
	// Backend is "gemini".
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required_if=Backend gemini"`

	// GeminiModel is the Gemini image model name.
	GeminiModel string `mapstructure:"gemini_model"`
}

// DatabaseConfig contains the optional task-archive database settings.
// When URL is empty the service runs without persistence and /history is
// served from memory only.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}
