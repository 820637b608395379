package models

import (
	"time"
)

// Config represents the service configuration
type Config struct {
	// Server config
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// OCR config
	OCR OCRConfig `yaml:"ocr"`

	// AI config
	AI AIConfig `yaml:"ai"`

	// Layout pipeline tuning
	Layout LayoutConfig `yaml:"layout"`

	Sessions SessionConfig `yaml:"sessions"`

	Auth AuthConfig `yaml:"auth"`
	Log  LogConfig  `yaml:"log"`
}

// OCRConfig represents OCR-specific configuration
type OCRConfig struct {
	Engine   string       `yaml:"engine"`   // "tesseract", "vision" or "none"
	Language string       `yaml:"language"` // tesseract languages (default: "eng+rus")
	MaxSide  int          `yaml:"max_side"` // downscale limit before recognition
	Vision   VisionConfig `yaml:"vision"`
}

// VisionConfig for Yandex Vision text detection
type VisionConfig struct {
	APIKey   string   `yaml:"api_key"`
	FolderID string   `yaml:"folder_id"`
	Endpoint string   `yaml:"endpoint,omitempty"`
	Langs    []string `yaml:"languages"`
}

// AIConfig represents classification provider configuration
type AIConfig struct {
	// OpenAI
	OpenAI OpenAIConfig `yaml:"openai"`

	// Gemini
	Gemini GeminiConfig `yaml:"gemini"`

	// Ollama (local)
	Ollama OllamaConfig `yaml:"ollama"`

	// Default provider
	DefaultProvider string `yaml:"default_provider"` // "openai", "gemini", "ollama", "none"

	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// OpenAIConfig for OpenAI/Azure OpenAI
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"` // For custom endpoints
	Model   string `yaml:"model"`              // Default: "gpt-4o-mini"
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: "gemini-1.5-flash"
}

// OllamaConfig for local Ollama
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"` // Default: "http://localhost:11434"
	Model   string `yaml:"model"`    // e.g., "mistral", "llama3"
}

// LayoutConfig holds the geometric constants of the pipeline
type LayoutConfig struct {
	LineTolerance       float64 `yaml:"line_tolerance"`        // fraction of line height
	FramePadding        float64 `yaml:"frame_padding"`         // canvas pixels around an item frame
	ReadingOrderEpsilon float64 `yaml:"reading_order_epsilon"` // pixels; same-row window for the segmenter
	DebounceMillis      int     `yaml:"debounce_ms"`
}

// SessionConfig controls how long idle scan sessions are kept
type SessionConfig struct {
	IdleMinutes  int `yaml:"idle_minutes"`
	SweepSeconds int `yaml:"sweep_seconds"`
}

// AuthConfig enables JWT bearer authentication when JWTSecret is set
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// ApplyDefaults fills every zero value with the service default
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.OCR.Engine == "" {
		c.OCR.Engine = "tesseract"
	}
	if c.OCR.Language == "" {
		c.OCR.Language = "eng+rus"
	}
	if c.OCR.MaxSide == 0 {
		c.OCR.MaxSide = 1400
	}
	if len(c.OCR.Vision.Langs) == 0 {
		c.OCR.Vision.Langs = []string{"ru", "en"}
	}
	if c.AI.DefaultProvider == "" {
		c.AI.DefaultProvider = "none"
	}
	if c.AI.OpenAI.Model == "" {
		c.AI.OpenAI.Model = "gpt-4o-mini"
	}
	if c.AI.Gemini.Model == "" {
		c.AI.Gemini.Model = "gemini-1.5-flash"
	}
	if c.AI.Ollama.BaseURL == "" {
		c.AI.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.AI.TimeoutSeconds == 0 {
		c.AI.TimeoutSeconds = 30
	}
	if c.Layout.LineTolerance == 0 {
		c.Layout.LineTolerance = 0.6
	}
	if c.Layout.FramePadding == 0 {
		c.Layout.FramePadding = 8
	}
	if c.Layout.ReadingOrderEpsilon == 0 {
		c.Layout.ReadingOrderEpsilon = 10
	}
	if c.Layout.DebounceMillis == 0 {
		c.Layout.DebounceMillis = 10
	}
	if c.Sessions.IdleMinutes == 0 {
		c.Sessions.IdleMinutes = 30
	}
	if c.Sessions.SweepSeconds == 0 {
		c.Sessions.SweepSeconds = 60
	}
	if c.Auth.TokenTTLHours == 0 {
		c.Auth.TokenTTLHours = 24
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// AITimeout returns the classification request timeout
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// SessionIdle returns how long a session may stay unused
func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.Sessions.IdleMinutes) * time.Minute
}

// SweepInterval returns how often idle sessions are collected
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Sessions.SweepSeconds) * time.Second
}

// TokenTTL returns the lifetime of issued session tokens
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

// DebounceDelay returns the highlight recomputation delay
func (c *Config) DebounceDelay() time.Duration {
	return time.Duration(c.Layout.DebounceMillis) * time.Millisecond
}
