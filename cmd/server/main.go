package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/haandol/open-perplexity/internal/agents"
	"github.com/haandol/open-perplexity/internal/api"
	"github.com/haandol/open-perplexity/internal/config"
	"github.com/haandol/open-perplexity/internal/evidence"
	"github.com/haandol/open-perplexity/internal/providers/llm"
	"github.com/haandol/open-perplexity/internal/rerank"
	"github.com/haandol/open-perplexity/internal/session"
	"github.com/haandol/open-perplexity/internal/tools"
	"github.com/haandol/open-perplexity/internal/workflow"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if cfg.EnableTracing && cfg.PhoenixBaseURL != "" {
		log.Info().Str("endpoint", cfg.PhoenixBaseURL).Str("project", cfg.PhoenixProject).
			Msg("tracing target configured")
	}

	client := llm.New(context.Background(), llm.Options{
		Provider:     cfg.LLMProvider,
		Model:        cfg.LLMModel,
		OpenAIKey:    cfg.OpenAIKey,
		AnthropicKey: cfg.AnthropicKey,
		GoogleKey:    cfg.GoogleKey,
	})

	registry := tools.NewRegistry()
	registry.Register(&tools.WebSearchTool{
		Searcher:       tools.NewTavilyClient(cfg.TavilyAPIKey),
		MaxResults:     cfg.SearchK,
		ScoreThreshold: cfg.ScoreThreshold,
	})

	server := &api.Server{
		Sessions:   session.NewManager(),
		Hub:        api.NewHub(),
		Quick:      &agents.QuickResponder{Client: client},
		Summarizer: &agents.TaskSummarizer{Client: client},
		Consolidator: &evidence.Consolidator{
			Reranker: rerank.NewCohereClient(cfg.CohereAPIKey, cfg.RerankModel),
			TopK:     cfg.RerankTopK,
		},
		NewMachine: func(onStep func(workflow.StepEvent)) *workflow.Machine {
			return &workflow.Machine{
				Classifier: &agents.Classifier{Client: client, Categories: agents.DefaultCategories()},
				Planner:    &agents.Planner{Client: client, Registry: registry},
				Executor:   &agents.TaskExecutor{Client: client, Registry: registry},
				OnStep:     onStep,
			}
		},
	}

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Msg("server listening")
	if err := http.ListenAndServe(addr, cors(mux)); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)
}

// simple CORS middleware for local dev
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
