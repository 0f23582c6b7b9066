package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Chat model
	LLMProvider string // "openai", "anthropic", "bedrock" or "ollama"
	ChatModel   string
	TitleModel  string // cheaper model used for session titles and reports

	// Provider credentials / endpoints. OpenAI and Anthropic keys are read
	// by langchaingo from the standard env vars; Bedrock uses the default
	// AWS credential chain.
	OllamaHost string
	AWSRegion  string

	// Embeddings
	EmbeddingProvider  string // "ollama" or "openai"
	EmbeddingModel     string
	EmbeddingDimension int

	// Retrieval
	RetrieveK int

	// Timeouts
	GenerateTimeout time.Duration
	StreamTimeout   time.Duration

	// HTTP server
	ListenAddr string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "medichat"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "chat"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider: getEnv("MEDICHAT_LLM_PROVIDER", "openai"),
		ChatModel:   getEnv("MEDICHAT_CHAT_MODEL", "gpt-4o"),
		TitleModel:  getEnv("MEDICHAT_TITLE_MODEL", "gpt-4o-mini"),

		OllamaHost: getEnv("OLLAMA_HOST", "http://localhost:11434"),
		AWSRegion:  getEnv("AWS_REGION", "us-east-1"),

		EmbeddingProvider:  getEnv("MEDICHAT_EMBEDDING_PROVIDER", "ollama"),
		EmbeddingModel:     getEnv("MEDICHAT_EMBEDDING_MODEL", "all-minilm:l6-v2"),
		EmbeddingDimension: getEnvInt("MEDICHAT_EMBEDDING_DIMENSION", 384),

		RetrieveK: getEnvInt("MEDICHAT_RETRIEVE_K", 3),

		GenerateTimeout: getEnvDuration("MEDICHAT_GENERATE_TIMEOUT", 60*time.Second),
		StreamTimeout:   getEnvDuration("MEDICHAT_STREAM_TIMEOUT", 5*time.Minute),

		ListenAddr: getEnv("MEDICHAT_LISTEN_ADDR", ":8080"),

		LogFile:  getEnv("MEDICHAT_LOG_FILE", "/tmp/medichat.log"),
		LogLevel: parseLogLevel(getEnv("MEDICHAT_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
