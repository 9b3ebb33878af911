package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for ragdesk
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Chunking  ChunkingConfig  `mapstructure:"chunking"`
	RAG       RAGConfig       `mapstructure:"rag"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Booking   BookingConfig   `mapstructure:"booking"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	APIVersion      string        `mapstructure:"api_version"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AdminConfig holds API authentication configuration
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// StorageConfig holds upload storage configuration
type StorageConfig struct {
	UploadDir        string   `mapstructure:"upload_dir"`
	MaxFileSizeMB    int      `mapstructure:"max_file_size_mb"`
	AllowedFileTypes []string `mapstructure:"allowed_file_types"`
}

// MaxFileSize returns the upload limit in bytes
func (s StorageConfig) MaxFileSize() int64 {
	return int64(s.MaxFileSizeMB) * 1024 * 1024
}

// ChunkingConfig holds text splitting configuration
type ChunkingConfig struct {
	Size            int    `mapstructure:"size"`
	Overlap         int    `mapstructure:"overlap"`
	DefaultStrategy string `mapstructure:"default_strategy"`
}

// RAGConfig holds retrieval configuration
type RAGConfig struct {
	TopK          int `mapstructure:"top_k"`
	HistoryWindow int `mapstructure:"history_window"`
	PromptHistory int `mapstructure:"prompt_history"`
}

// LLMConfig holds the chat completion provider configuration
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// EmbeddingConfig holds the embedding provider configuration
type EmbeddingConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Dimension   int           `mapstructure:"dimension"`
	BatchSize   int           `mapstructure:"batch_size"`
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// QdrantConfig holds vector database configuration
type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
	Collection string `mapstructure:"collection"`
}

// RedisConfig holds the optional history cache configuration
type RedisConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	HistoryTTL time.Duration `mapstructure:"history_ttl"`
	DirtyTTL   time.Duration `mapstructure:"dirty_marker_ttl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds allowed origins
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// BookingConfig holds business hours used by booking validation
type BookingConfig struct {
	OpenHour  int `mapstructure:"open_hour"`
	CloseHour int `mapstructure:"close_hour"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	// A missing .env is fine
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables, e.g. RAGDESK_LLM_API_KEY
	v.SetEnvPrefix("RAGDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindAliases(v); err != nil {
		return nil, err
	}

	// Read config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	return &cfg, nil
}

// bindAliases accepts the provider's conventional variable names as well
func bindAliases(v *viper.Viper) error {
	aliases := map[string][]string{
		"llm.api_key":       {"RAGDESK_LLM_API_KEY", "GROQ_API_KEY"},
		"llm.model":         {"RAGDESK_LLM_MODEL", "GROQ_MODEL"},
		"embedding.api_key": {"RAGDESK_EMBEDDING_API_KEY", "EMBEDDING_API_KEY"},
		"qdrant.host":       {"RAGDESK_QDRANT_HOST", "QDRANT_HOST"},
		"qdrant.api_key":    {"RAGDESK_QDRANT_API_KEY", "QDRANT_API_KEY"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.api_version", "v1")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("admin.api_key", "")

	v.SetDefault("database.path", "./data/ragdesk.db")

	v.SetDefault("storage.upload_dir", "./storage/uploads")
	v.SetDefault("storage.max_file_size_mb", 10)
	v.SetDefault("storage.allowed_file_types", []string{"pdf", "txt"})

	v.SetDefault("chunking.size", 500)
	v.SetDefault("chunking.overlap", 50)
	v.SetDefault("chunking.default_strategy", "recursive")

	v.SetDefault("rag.top_k", 5)
	v.SetDefault("rag.history_window", 10)
	v.SetDefault("rag.prompt_history", 5)

	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "llama-3.1-8b-instant")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_retries", 2)

	v.SetDefault("embedding.base_url", "http://localhost:11434/v1")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.model", "all-minilm")
	v.SetDefault("embedding.dimension", 384)
	v.SetDefault("embedding.batch_size", 32)
	v.SetDefault("embedding.concurrency", 4)
	v.SetDefault("embedding.timeout", 60*time.Second)

	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.api_key", "")
	v.SetDefault("qdrant.use_tls", false)
	v.SetDefault("qdrant.collection", "documents")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.history_ttl", 30*time.Minute)
	v.SetDefault("redis.dirty_marker_ttl", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "./logs")
	v.SetDefault("log.format", "json")

	v.SetDefault("cors.allow_origins", []string{"*"})

	v.SetDefault("booking.open_hour", 9)
	v.SetDefault("booking.close_hour", 17)
}

// normalize cleans up list values that came in as a single comma separated string
func (c *Config) normalize() {
	c.Storage.AllowedFileTypes = splitList(c.Storage.AllowedFileTypes)
	for i, t := range c.Storage.AllowedFileTypes {
		c.Storage.AllowedFileTypes[i] = strings.ToLower(strings.TrimPrefix(t, "."))
	}
	c.CORS.AllowOrigins = splitList(c.CORS.AllowOrigins)
	c.Chunking.DefaultStrategy = strings.ToLower(c.Chunking.DefaultStrategy)
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	problems := c.storageProblems()
	if c.LLM.APIKey == "" {
		problems = append(problems, "llm.api_key is required (set GROQ_API_KEY)")
	}
	return joinProblems(problems)
}

// ValidateStorage checks everything except the LLM credentials. It is enough
// for commands that only touch SQLite and Qdrant.
func (c *Config) ValidateStorage() error {
	return joinProblems(c.storageProblems())
}

func (c *Config) storageProblems() []string {
	var problems []string
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		problems = append(problems, "server.mode must be debug, release or test")
	}
	if c.Chunking.Size <= 0 {
		problems = append(problems, "chunking.size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		problems = append(problems, "chunking.overlap must be between 0 and chunking.size")
	}
	if c.Chunking.DefaultStrategy != "fixed" && c.Chunking.DefaultStrategy != "recursive" {
		problems = append(problems, "chunking.default_strategy must be fixed or recursive")
	}
	if c.Embedding.Dimension <= 0 {
		problems = append(problems, "embedding.dimension must be positive")
	}
	if c.Storage.MaxFileSizeMB <= 0 {
		problems = append(problems, "storage.max_file_size_mb must be positive")
	}
	if len(c.Storage.AllowedFileTypes) == 0 {
		problems = append(problems, "storage.allowed_file_types must not be empty")
	}
	if c.Booking.OpenHour < 0 || c.Booking.CloseHour > 24 || c.Booking.OpenHour >= c.Booking.CloseHour {
		problems = append(problems, "booking hours must satisfy 0 <= open_hour < close_hour <= 24")
	}
	return problems
}

func joinProblems(problems []string) error {
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// APIPrefix returns the versioned route prefix, e.g. /api/v1
func (c *Config) APIPrefix() string {
	return "/api/" + c.Server.APIVersion
}
