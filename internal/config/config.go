package config

import (
	"os"
	"strconv"
)

// Indexing mode constants
const (
	ModeStructured = "structured" // single-shot multimodal extraction
	ModeFrames     = "frames"     // frame-sampling pipeline via local model
)

type Config struct {
	Environment  string
	IndexingMode string
	// Generation backend
	DefaultProvider string
	DefaultModel    string
	OpenAIAPIKey    string
	OpenAIBaseURL   string // Optional override for OpenAI-compatible endpoints
	AnthropicAPIKey string
	// Local-model backend (frame-sampling pipeline)
	OllamaBaseURL string
	OllamaModel   string
	// Frame-sampling parameters
	FrameIntervalSeconds int
	MaxFrames            int
	// Debug flags
	Debug bool
	// Optional log file directory; empty means stderr only
	LogDir      string
	LogMaxFiles int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Environment:  env,
		IndexingMode: getEnv("INDEXING_MODE", ModeStructured),
		// Generation backend
		DefaultProvider: getEnv("DEFAULT_PROVIDER", "openai"),
		DefaultModel:    getEnv("DEFAULT_MODEL", "gpt-4o"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		// Local-model backend
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "qwen3-vl:8b"),
		// Frame-sampling parameters
		FrameIntervalSeconds: getEnvInt("FRAME_INTERVAL_SECONDS", 10),
		MaxFrames:            getEnvInt("MAX_FRAMES", 30),
		// Debug flags - default to true in dev/test, false in production
		Debug:       getEnv("DEBUG", getDefaultDebug(env)) == "true",
		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getEnvInt("LOG_MAX_FILES", 10),
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
