package config

// Config holds fable configuration.
// Loaded from ./config.yaml or ~/.fable/config.yaml.
type Config struct {
	Server   ServerCfg   `mapstructure:"server" yaml:"server"`
	Backend  BackendCfg  `mapstructure:"backend" yaml:"backend"`
	Vision   VisionCfg   `mapstructure:"vision" yaml:"vision"`
	Jobs     JobsCfg     `mapstructure:"jobs" yaml:"jobs"`
	Progress ProgressCfg `mapstructure:"progress" yaml:"progress"`

	// StorageRoot overrides the home directory (default ~/.fable).
	StorageRoot string `mapstructure:"storage_root" yaml:"storage_root"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// BackendCfg configures the image generation backend.
type BackendCfg struct {
	Type      string `mapstructure:"type" yaml:"type"`             // "openai", "fallback"
	Model     string `mapstructure:"model" yaml:"model"`           // Image model name
	Size      string `mapstructure:"size" yaml:"size"`             // Requested image size
	Quality   string `mapstructure:"quality" yaml:"quality"`       // Image quality tier
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`     // Optional API base URL override
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per minute
}

// VisionCfg configures reference photo analysis.
type VisionCfg struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Model   string `mapstructure:"model" yaml:"model"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
}

// JobsCfg configures page generation fan-out.
type JobsCfg struct {
	Workers        int `mapstructure:"workers" yaml:"workers"`                 // Concurrent page workers
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"` // Per-job wall clock budget
	RetryAttempts  int `mapstructure:"retry_attempts" yaml:"retry_attempts"`   // Attempts per page
	PageSize       int `mapstructure:"page_size" yaml:"page_size"`             // Page edge in pixels
}

// ProgressCfg selects the progress tracker backing store.
type ProgressCfg struct {
	// RedisURL enables the Redis tracker when set; empty keeps progress
	// in process memory.
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
		},
		Backend: BackendCfg{
			Type:      "openai",
			Model:     "gpt-image-1",
			Size:      "1024x1024",
			Quality:   "high",
			APIKey:    "${OPENAI_API_KEY}",
			RateLimit: 60,
		},
		Vision: VisionCfg{
			Enabled: true,
			Model:   "gpt-4o-mini",
			APIKey:  "${OPENAI_API_KEY}",
		},
		Jobs: JobsCfg{
			Workers:        6,
			TimeoutSeconds: 120,
			RetryAttempts:  3,
			PageSize:       2625,
		},
	}
}

// ResolvedBackendKey returns the backend API key with ${ENV_VAR}
// references expanded.
func (c *Config) ResolvedBackendKey() string {
	return ResolveEnvVars(c.Backend.APIKey)
}

// ResolvedVisionKey returns the vision API key with ${ENV_VAR}
// references expanded, falling back to the backend key when unset.
func (c *Config) ResolvedVisionKey() string {
	if c.Vision.APIKey != "" {
		return ResolveEnvVars(c.Vision.APIKey)
	}
	return c.ResolvedBackendKey()
}
