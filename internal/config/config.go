// Package config loads the tutor configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mdsalman850/co-teachers-sub003/internal/rerank"
	"github.com/mdsalman850/co-teachers-sub003/internal/search"
)

// Model providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ChunkerConfig configures how textbook text is split into passages.
type ChunkerConfig struct {
	ChunkSize   int `yaml:"chunk_size"`
	Overlap     int `yaml:"overlap"`
	MinLength   int `yaml:"min_length"`
	MaxKeywords int `yaml:"max_keywords"`
}

// SearchConfig configures retrieval.
type SearchConfig struct {
	TopK            int                 `yaml:"top_k"`
	MaxResults      int                 `yaml:"max_results"`
	MaxContextChars int                 `yaml:"max_context_chars"`
	Weights         search.Weights      `yaml:"weights"`
	FieldWeights    search.FieldWeights `yaml:"field_weights"`
}

// PromptConfig configures prompt assembly.
type PromptConfig struct {
	HistoryWindow   int    `yaml:"history_window"`
	Subject         string `yaml:"subject"`
	MaxExcerptChars int    `yaml:"max_excerpt_chars"`
}

// ModelConfig selects the hosted model and how it is called.
type ModelConfig struct {
	Provider string `yaml:"provider"`

	// Models are tried in order; later ones are fallbacks.
	Models            []string      `yaml:"models"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	BaseURL           string        `yaml:"base_url,omitempty"`
	Temperature       float64       `yaml:"temperature"`
	MaxOutputTokens   int           `yaml:"max_output_tokens"`
	TopK              int           `yaml:"top_k,omitempty"`
	TopP              float64       `yaml:"top_p,omitempty"`
	SafetyThreshold   string        `yaml:"safety_threshold,omitempty"`
	MaxAttempts       int           `yaml:"max_attempts"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`

	// APIKey is read from the APIKeyEnv variable, never from the file.
	APIKey string `yaml:"-"`
}

// HistoryConfig configures conversation storage. An empty Path keeps
// history in memory.
type HistoryConfig struct {
	Path          string        `yaml:"path"`
	MaxMessages   int           `yaml:"max_messages"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// QdrantConfig contains connection details for the chunk archive.
type QdrantConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LibraryConfig points at a GitHub directory of textbook PDFs.
type LibraryConfig struct {
	Owner    string `yaml:"owner"`
	Repo     string `yaml:"repo"`
	BasePath string `yaml:"base_path"`

	Token string `yaml:"-"`
}

// ServerConfig configures the MCP server binary.
type ServerConfig struct {
	Port string `yaml:"port"`
	// HTTP serves MCP over streamable HTTP instead of stdio.
	HTTP bool `yaml:"http"`
	// Textbook is loaded at startup and watched for changes when set.
	Textbook string `yaml:"textbook"`
}

// Config is the root configuration.
type Config struct {
	Chunker  ChunkerConfig  `yaml:"chunker"`
	Search   SearchConfig   `yaml:"search"`
	Rerank   rerank.Weights `yaml:"rerank"`
	Prompt   PromptConfig   `yaml:"prompt"`
	Model    ModelConfig    `yaml:"model"`
	History  HistoryConfig  `yaml:"history"`
	Qdrant   QdrantConfig   `yaml:"qdrant"`
	Library  LibraryConfig  `yaml:"library"`
	Server   ServerConfig   `yaml:"server"`
	LogLevel string         `yaml:"log_level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads a config from path, applies environment overrides and fills
// zero fields with defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	applyDefaults(cfg)
	cfg.Model.APIKey = os.Getenv(cfg.Model.APIKeyEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./tutor.yaml first, then ~/.config/tutor/config.yaml.
// It returns the path it used, or "" when neither exists.
func LoadDefault() (*Config, string, error) {
	candidates := []string{"tutor.yaml"}
	if userPath, err := DefaultUserConfigPath(); err == nil {
		candidates = append(candidates, userPath)
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			cfg, err := Load(path)
			return cfg, path, err
		}
	}
	cfg, err := Load("")
	return cfg, "", err
}

// Save writes cfg to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultUserConfigPath returns ~/.config/tutor/config.yaml.
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tutor", "config.yaml"), nil
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("model.provider: unknown provider %q", c.Model.Provider)
	}
	if len(c.Model.Models) == 0 {
		return fmt.Errorf("model.models: at least one model is required")
	}
	if c.Chunker.Overlap < 0 || c.Chunker.ChunkSize < 0 {
		return fmt.Errorf("chunker: sizes must not be negative")
	}
	return nil
}

func applyDefaults(c *Config) {
	if c.Chunker.ChunkSize == 0 {
		c.Chunker.ChunkSize = 1000
	}
	if c.Chunker.Overlap == 0 {
		c.Chunker.Overlap = 200
	}
	if c.Chunker.MinLength == 0 {
		c.Chunker.MinLength = 50
	}
	if c.Chunker.MaxKeywords == 0 {
		c.Chunker.MaxKeywords = 10
	}

	if c.Search.TopK == 0 {
		c.Search.TopK = search.DefaultTopK
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = search.DefaultMaxResults
	}
	if c.Search.MaxContextChars == 0 {
		c.Search.MaxContextChars = search.DefaultMaxContextChars
	}
	if c.Search.Weights == (search.Weights{}) {
		c.Search.Weights = search.DefaultWeights()
	}
	if c.Search.FieldWeights == (search.FieldWeights{}) {
		c.Search.FieldWeights = search.DefaultFieldWeights()
	}

	if c.Rerank == (rerank.Weights{}) {
		c.Rerank = rerank.DefaultWeights()
	}

	if c.Prompt.HistoryWindow == 0 {
		c.Prompt.HistoryWindow = 6
	}
	if c.Prompt.Subject == "" {
		c.Prompt.Subject = "science"
	}
	if c.Prompt.MaxExcerptChars == 0 {
		c.Prompt.MaxExcerptChars = 2000
	}

	if c.Model.Provider == "" {
		c.Model.Provider = ProviderGemini
	}
	if len(c.Model.Models) == 0 {
		if c.Model.Provider == ProviderOpenAI {
			c.Model.Models = []string{"gpt-4o-mini", "gpt-4o"}
		} else {
			c.Model.Models = []string{"gemini-2.5-flash", "gemini-2.0-flash"}
		}
	}
	if c.Model.APIKeyEnv == "" {
		if c.Model.Provider == ProviderOpenAI {
			c.Model.APIKeyEnv = "OPENAI_API_KEY"
		} else {
			c.Model.APIKeyEnv = "GEMINI_API_KEY"
		}
	}
	if c.Model.Temperature == 0 {
		c.Model.Temperature = 0.3
	}
	if c.Model.MaxOutputTokens == 0 {
		c.Model.MaxOutputTokens = 1024
	}
	if c.Model.MaxAttempts == 0 {
		c.Model.MaxAttempts = 3
	}
	if c.Model.InitialBackoff == 0 {
		c.Model.InitialBackoff = 500 * time.Millisecond
	}
	if c.Model.MaxBackoff == 0 {
		c.Model.MaxBackoff = 10 * time.Second
	}

	if c.History.MaxMessages == 0 {
		c.History.MaxMessages = 50
	}
	if c.History.TTL == 0 {
		c.History.TTL = 30 * time.Minute
	}
	if c.History.SweepInterval == 0 {
		c.History.SweepInterval = 5 * time.Minute
	}

	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost"
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = 6334
	}

	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MODEL_PROVIDER"); v != "" {
		c.Model.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("MODEL_BASE_URL"); v != "" {
		c.Model.BaseURL = v
	}
	if v := os.Getenv("HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("QDRANT_HOST"); v != "" {
		c.Qdrant.Host = v
		c.Qdrant.Enabled = true
	}
	if v := getEnvInt("QDRANT_PORT", 0); v != 0 {
		c.Qdrant.Port = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if os.Getenv("SERVER_MODE") == "true" {
		c.Server.HTTP = true
	}
	if v := os.Getenv("TEXTBOOK"); v != "" {
		c.Server.Textbook = v
	}
	c.Library.Token = os.Getenv("GITHUB_TOKEN")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
