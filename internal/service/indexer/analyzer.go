package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/service/llm/providers/ollama"
)

// analysisTemperature keeps frame descriptions stable across runs.
const analysisTemperature = 0.3

// FrameAnalysis is the structured result of describing one frame.
type FrameAnalysis struct {
	SceneDescription string `json:"scene_description"`
	VisualElements   string `json:"visual_elements"`
	AudioHint        string `json:"audio_hint"`
	IsSceneChange    bool   `json:"is_scene_change"`
	SceneType        string `json:"scene_type"`
}

// FrameAnalyzer describes a single frame given its timestamp and the
// previous frame's description as context.
type FrameAnalyzer interface {
	AnalyzeFrame(ctx context.Context, frame []byte, timestamp, context string) (FrameAnalysis, error)
}

// OllamaAnalyzer implements FrameAnalyzer on the local-model generate
// endpoint.
type OllamaAnalyzer struct {
	client *ollama.Client
	logger *slog.Logger
}

// NewOllamaAnalyzer creates an analyzer backed by the given client.
func NewOllamaAnalyzer(client *ollama.Client, logger *slog.Logger) *OllamaAnalyzer {
	return &OllamaAnalyzer{client: client, logger: logger}
}

// AnalyzeFrame sends the frame and prompt to the local model and parses the
// JSON reply. Malformed output degrades to a default-shaped record rather
// than failing the pipeline; transport faults still propagate.
func (a *OllamaAnalyzer) AnalyzeFrame(ctx context.Context, frame []byte, timestamp, prior string) (FrameAnalysis, error) {
	prompt := buildFramePrompt(timestamp, prior)

	text, err := a.client.Generate(ctx, prompt, [][]byte{frame}, analysisTemperature)
	if err != nil {
		return FrameAnalysis{}, fmt.Errorf("frame analysis at %s failed: %w", timestamp, err)
	}

	analysis, ok := parseFrameAnalysis(text)
	if !ok {
		a.logger.Warn("frame analysis output was not valid JSON, keeping raw text",
			"timestamp", timestamp,
		)
	}
	return analysis, nil
}

// buildFramePrompt asks for a JSON-shaped scene description, threading the
// previous frame's description through as one-step context.
func buildFramePrompt(timestamp, prior string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This frame is from the %s mark of a video.\n\n", timestamp)
	if prior != "" {
		fmt.Fprintf(&b, "Context from the previous scene: %s\n\n", prior)
	}
	b.WriteString(`Reply with the following information in JSON format:
{
    "scene_description": "a detailed description of what is happening in this scene",
    "visual_elements": "the main elements on screen (people, objects, text)",
    "audio_hint": "the audio or dialogue you would expect in this scene (a guess)",
    "is_scene_change": true/false (did the scene change significantly from the previous one),
    "scene_type": "intro/main/transition/conclusion/other"
}

Output only the JSON.`)
	return b.String()
}

// parseFrameAnalysis decodes the model's reply, stripping code fences
// first. On parse failure it returns the default-shaped record carrying the
// raw text as the description, and false.
func parseFrameAnalysis(text string) (FrameAnalysis, bool) {
	payload := strings.TrimSpace(stripCodeFence(text))

	var analysis FrameAnalysis
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return FrameAnalysis{
			SceneDescription: text,
			SceneType:        "other",
		}, false
	}
	return analysis, true
}
