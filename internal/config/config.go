package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the environment-driven configuration surface.
type Config struct {
	Port string

	// Generation backend.
	LLMProvider  string // openai | anthropic | gemini (auto-detected when empty)
	LLMModel     string
	OpenAIKey    string
	AnthropicKey string
	GoogleKey    string

	// Observability. Tracing itself is wired externally; the server only
	// reports the configured target at startup.
	EnableTracing  bool
	PhoenixBaseURL string
	PhoenixProject string

	// Web search.
	TavilyAPIKey   string
	SearchK        int
	ScoreThreshold float64

	// Rerank.
	CohereAPIKey string
	RerankModel  string
	RerankTopK   int

	LogLevel string
}

// Load reads configuration from the environment. A .env file in the
// working directory is honored when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:           getEnv("PORT", "8080"),
		LLMProvider:    strings.ToLower(getEnv("LLM_PROVIDER", "")),
		LLMModel:       getEnv("LLM_MODEL", ""),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
		GoogleKey:      os.Getenv("GOOGLE_API_KEY"),
		EnableTracing:  getBool("ENABLE_TRACING", false),
		PhoenixBaseURL: os.Getenv("PHOENIX_ENDPOINT"),
		PhoenixProject: getEnv("PHOENIX_PROJECT_NAME", "default"),
		TavilyAPIKey:   os.Getenv("TAVILY_API_KEY"),
		SearchK:        getInt("TAVILY_K", 3),
		ScoreThreshold: getFloat("SEARCH_SCORE_THRESHOLD", 0.45),
		CohereAPIKey:   os.Getenv("COHERE_API_KEY"),
		RerankModel:    getEnv("RERANK_MODEL", "rerank-v3.5"),
		RerankTopK:     getInt("RERANK_TOP_K", 5),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return def
}
