// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (ANSWERDOCK_* overrides)
//  2. Config file (~/.answerdock/config.yaml or ./config.yaml)
//  3. Default values
//
// Error Handling:
//   - Sentinel errors for Go-idiomatic checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is empty.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidOllamaHost indicates the Ollama host is not a valid URL.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidStoreDir indicates the store directory is empty.
	ErrInvalidStoreDir = errors.New("invalid store directory")

	// ErrInvalidTopK indicates retrieval.top_k is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top_k")

	// ErrInvalidMaxDistance indicates retrieval.max_distance is not positive.
	ErrInvalidMaxDistance = errors.New("invalid retrieval max_distance")

	// ErrInvalidChunking indicates a chunking parameter is out of range.
	ErrInvalidChunking = errors.New("invalid chunking parameter")

	// ErrInvalidSessionCapacity indicates session.capacity is out of range.
	ErrInvalidSessionCapacity = errors.New("invalid session capacity")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Retrieval bounds enforced by Validate.
const (
	MinTopK = 1
	MaxTopK = 50
)

// Retrieval holds k-NN search and relevance-gate settings.
//
// MaxDistance is squared L2 distance over unit-normalized embeddings;
// the default 1.8 was calibrated against that metric and is meaningless
// for any other. Treat it as a tuning parameter, not a constant.
type Retrieval struct {
	TopK        int     `mapstructure:"top_k" json:"top_k"`
	MaxDistance float64 `mapstructure:"max_distance" json:"max_distance"`
}

// Chunking holds the paragraph-chunker settings.
type Chunking struct {
	TargetWords       int `mapstructure:"target_words" json:"target_words"`
	OverlapParagraphs int `mapstructure:"overlap_paragraphs" json:"overlap_paragraphs"`
	MinParagraphWords int `mapstructure:"min_paragraph_words" json:"min_paragraph_words"`
}

// Session holds conversation-memory settings.
type Session struct {
	// Capacity is the number of turns kept per session; oldest evicted first.
	Capacity int `mapstructure:"capacity" json:"capacity"`
}

// Timeouts bounds the external compute calls.
type Timeouts struct {
	Embed    time.Duration `mapstructure:"embed" json:"embed"`
	Generate time.Duration `mapstructure:"generate" json:"generate"`
}

// Config stores application configuration.
type Config struct {
	// AI provider and model configuration
	Provider      string `mapstructure:"provider" json:"provider"` // "ollama" (default), "gemini", "openai"
	ModelName     string `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// StoreDir holds the persisted index and metadata artifacts.
	StoreDir string `mapstructure:"store_dir" json:"store_dir"`

	// HTTPAddr is the serve-mode listen address.
	HTTPAddr string `mapstructure:"http_addr" json:"http_addr"`

	Retrieval Retrieval `mapstructure:"retrieval" json:"retrieval"`
	Chunking  Chunking  `mapstructure:"chunking" json:"chunking"`
	Session   Session   `mapstructure:"session" json:"session"`
	Timeouts  Timeouts  `mapstructure:"timeouts" json:"timeouts"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"` // debug|info|warn|error
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".answerdock")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults(configDir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	viper.SetDefault("provider", ProviderOllama)
	viper.SetDefault("model_name", "llama3.1:8b")
	viper.SetDefault("embedder_model", "all-minilm")
	viper.SetDefault("ollama_host", "http://localhost:11434")

	viper.SetDefault("store_dir", filepath.Join(configDir, "store"))
	viper.SetDefault("http_addr", "127.0.0.1:8080")

	viper.SetDefault("retrieval.top_k", 8)
	viper.SetDefault("retrieval.max_distance", 1.8)

	viper.SetDefault("chunking.target_words", 250)
	viper.SetDefault("chunking.overlap_paragraphs", 1)
	viper.SetDefault("chunking.min_paragraph_words", 30)

	viper.SetDefault("session.capacity", 6)

	viper.SetDefault("timeouts.embed", 30*time.Second)
	viper.SetDefault("timeouts.generate", 120*time.Second)

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds explicit environment overrides.
// GEMINI_API_KEY and OPENAI_API_KEY are read directly by the Genkit
// plugins, not via viper.
func bindEnvVariables() {
	// Hardcoded strings cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "ANSWERDOCK_PROVIDER")
	mustBind("model_name", "ANSWERDOCK_MODEL_NAME")
	mustBind("embedder_model", "ANSWERDOCK_EMBEDDER_MODEL")
	mustBind("ollama_host", "ANSWERDOCK_OLLAMA_HOST")
	mustBind("store_dir", "ANSWERDOCK_STORE_DIR")
	mustBind("http_addr", "ANSWERDOCK_HTTP_ADDR")
	mustBind("retrieval.max_distance", "ANSWERDOCK_MAX_DISTANCE")
	mustBind("log_level", "ANSWERDOCK_LOG_LEVEL")
}

// Validate checks the configuration for invalid values (fail-fast).
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini, ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (must be one of: gemini, ollama, openai)", ErrInvalidProvider, c.Provider)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidEmbedderModel)
	}

	if c.Provider == ProviderOllama {
		if !strings.HasPrefix(c.OllamaHost, "http://") && !strings.HasPrefix(c.OllamaHost, "https://") {
			return fmt.Errorf("%w: %q (must start with http:// or https://)", ErrInvalidOllamaHost, c.OllamaHost)
		}
	}

	if strings.TrimSpace(c.StoreDir) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidStoreDir)
	}

	if c.Retrieval.TopK < MinTopK || c.Retrieval.TopK > MaxTopK {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidTopK, c.Retrieval.TopK, MinTopK, MaxTopK)
	}
	if c.Retrieval.MaxDistance <= 0 {
		return fmt.Errorf("%w: %v (must be positive)", ErrInvalidMaxDistance, c.Retrieval.MaxDistance)
	}

	if c.Chunking.TargetWords <= 0 {
		return fmt.Errorf("%w: target_words %d", ErrInvalidChunking, c.Chunking.TargetWords)
	}
	if c.Chunking.OverlapParagraphs < 0 {
		return fmt.Errorf("%w: overlap_paragraphs %d", ErrInvalidChunking, c.Chunking.OverlapParagraphs)
	}
	if c.Chunking.MinParagraphWords < 0 {
		return fmt.Errorf("%w: min_paragraph_words %d", ErrInvalidChunking, c.Chunking.MinParagraphWords)
	}

	if c.Session.Capacity < 1 {
		return fmt.Errorf("%w: %d (must be at least 1)", ErrInvalidSessionCapacity, c.Session.Capacity)
	}

	return nil
}

// SlogLevel translates LogLevel into a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IndexPath returns the path of the persisted vector index artifact.
func (c *Config) IndexPath() string {
	return filepath.Join(c.StoreDir, "index.bin")
}

// MetadataPath returns the path of the persisted metadata log artifact.
func (c *Config) MetadataPath() string {
	return filepath.Join(c.StoreDir, "chunks.jsonl")
}
