package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/capabilities"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/config"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/service/agent"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/service/agent/runtime"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/service/indexer"
	serviceLLM "github.com/takeuchi-kgs/hierarchical-agent-rag/internal/service/llm"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/service/llm/providers/ollama"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stderr
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stderr, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <video-file>\n", os.Args[0])
		os.Exit(2)
	}
	videoPath := os.Args[1]

	logger.Info("videoindex starting",
		"environment", cfg.Environment,
		"indexing_mode", cfg.IndexingMode,
		"model", cfg.DefaultModel,
	)

	// Initialize capability registry
	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}

	// Setup LLM providers
	providerRegistry, err := serviceLLM.SetupProviders(cfg, capabilityRegistry, logger)
	if err != nil {
		log.Fatalf("Failed to setup LLM providers: %v", err)
	}

	videoBytes, err := os.ReadFile(videoPath)
	if err != nil {
		log.Fatalf("Failed to read video file: %v", err)
	}
	logger.Info("video loaded", "path", videoPath, "bytes", len(videoBytes))

	// Pick the indexing strategy
	var idx indexer.Indexer
	switch cfg.IndexingMode {
	case config.ModeStructured:
		provider, err := providerRegistry.GetProvider(cfg.DefaultModel)
		if err != nil {
			log.Fatalf("Failed to resolve indexing provider: %v", err)
		}
		idx = indexer.NewStructuredIndexer(provider, cfg.DefaultModel, logger)
	case config.ModeFrames:
		client := ollama.NewClient(cfg.OllamaBaseURL, cfg.OllamaModel)
		idx = indexer.NewFramePipelineIndexer(
			indexer.NewFFmpegExtractor(),
			indexer.NewOllamaAnalyzer(client, logger),
			cfg.FrameIntervalSeconds,
			cfg.MaxFrames,
			printProgress,
			logger,
		)
	default:
		log.Fatalf("Unknown INDEXING_MODE %q (want %q or %q)", cfg.IndexingMode, config.ModeStructured, config.ModeFrames)
	}

	ctx := context.Background()

	result, err := idx.Index(ctx, videoBytes)
	if err != nil {
		log.Fatalf("Failed to index video: %v", err)
	}
	logger.Info("content tree built", "title", result.VideoTitle, "children", len(result.Children))

	if cfg.Debug {
		tree, err := json.MarshalIndent(result, "", "  ")
		if err == nil {
			fmt.Fprintln(os.Stderr, string(tree))
		}
	}

	// Compile the tree into the agent hierarchy
	rootSpec, err := agent.NewCompiler(cfg.DefaultModel).Compile(result)
	if err != nil {
		log.Fatalf("Failed to compile agent tree: %v", err)
	}

	// Build the runtime and stage the video for the clip hooks
	sessionID := uuid.NewString()
	runner := runtime.NewRunner(rootSpec, providerRegistry, runtime.NewArtifactStore(), runtime.NewSessionStore(), logger)
	if err := runner.Artifacts().SaveArtifact(ctx, sessionID, config.ArtifactVideoName, videoBytes); err != nil {
		log.Fatalf("Failed to store video artifact: %v", err)
	}

	fmt.Printf("Indexed %q (%s - %s). Ask questions, or \"quit\" to exit.\n",
		result.VideoTitle, result.Span().Start, result.Span().End)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "quit" || query == "exit" {
			break
		}

		answer, err := runtime.Ask(ctx, runner, "local", sessionID, query, logger)
		if err != nil {
			logger.Error("query failed", "error", err)
			continue
		}
		fmt.Println(answer)
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}
}

func printProgress(current, total int, message string) {
	fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", current, total, message)
}
