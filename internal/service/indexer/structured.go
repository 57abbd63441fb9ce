package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/config"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain/models/video"
	domainllm "github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain/services/llm"
)

// videoTreeIndexerPrompt is the fixed analysis instruction for single-shot
// structured extraction. The backend performs the segmentation; this
// component only shapes the request and validates the result.
const videoTreeIndexerPrompt = `You are an expert video content analyst.

[Input]
You receive a video file.

[Goal]
Index the video content into a structured content tree, converting the
linear video timeline into logical hierarchical nodes.

[Node structure]
1. Segment (leaf): the smallest meaningful unit. A specific scene, an
   exchange in a conversation, a visual event, a slide in a presentation.
   A segment must always carry a time_span.
2. Chapter (container): a major division of the video, e.g. introduction,
   a main topic change, conclusion.

[Analysis strategy]
- Bottom-up: identify atomic segments first, then group them into chapters
  only where they form a logical unit.
- Flexibility: a sufficiently independent segment may sit directly at the
  root instead of inside a chapter. Avoid unnecessary hierarchy, such as a
  chapter containing a single segment, unless it is structurally important.
- Precision: make sure each segment's start_time and end_time are accurate.`

// StructuredIndexer implements Strategy A: submit the whole video plus the
// analysis instruction to a multimodal backend and request output
// conforming exactly to the AnalysisResult schema.
type StructuredIndexer struct {
	provider domainllm.LLMProvider
	model    string
	logger   *slog.Logger
}

// NewStructuredIndexer creates a structured indexer bound to one provider
// and model.
func NewStructuredIndexer(provider domainllm.LLMProvider, model string, logger *slog.Logger) *StructuredIndexer {
	return &StructuredIndexer{
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// Index performs one schema-constrained generation over the whole video and
// validates that the resulting tree is non-degenerate. Backend faults
// propagate unmodified.
func (s *StructuredIndexer) Index(ctx context.Context, videoBytes []byte) (*video.AnalysisResult, error) {
	req := &domainllm.GenerateRequest{
		Model: s.model,
		Messages: []domainllm.Message{
			{
				Role: "user",
				Parts: []domainllm.ContentPart{
					domainllm.VideoPart(videoBytes, config.VideoMIMEType, domainllm.VideoMetadata{FPS: config.ClipFPS}),
					domainllm.TextPart(videoTreeIndexerPrompt),
				},
			},
		},
		ResponseSchema: analysisResultSchema(),
	}

	resp, err := s.provider.GenerateResponse(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("video analysis call failed: %w", err)
	}

	payload := strings.TrimSpace(stripCodeFence(resp.Text))

	var result video.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, domain.NewValidationError("analysis output is not a valid content tree: %v", err)
	}

	if err := validateResult(&result); err != nil {
		return nil, err
	}

	s.logger.Info("video indexed",
		"strategy", "structured",
		"title", result.VideoTitle,
		"children", len(result.Children),
	)

	return &result, nil
}

// analysisResultSchema is the JSON Schema the backend's output must conform
// to. It mirrors the content-tree model: a root with polymorphic children,
// chapters containing segments, and MM:SS-patterned time spans on leaves.
func analysisResultSchema() map[string]interface{} {
	timeSpan := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"start_time": map[string]interface{}{
				"type":        "string",
				"pattern":     `^\d{2}:\d{2}$`,
				"description": "Start timestamp in MM:SS format",
			},
			"end_time": map[string]interface{}{
				"type":        "string",
				"pattern":     `^\d{2}:\d{2}$`,
				"description": "End timestamp in MM:SS format, strictly after start_time",
			},
		},
		"required": []string{"start_time", "end_time"},
	}

	segment := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"node_type":   map[string]interface{}{"const": "Segment"},
			"title":       map[string]interface{}{"type": "string"},
			"description": map[string]interface{}{"type": "string"},
			"time_span":   timeSpan,
		},
		"required": []string{"node_type", "title", "description", "time_span"},
	}

	chapter := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"node_type": map[string]interface{}{"const": "Chapter"},
			"title":     map[string]interface{}{"type": "string"},
			"summary":   map[string]interface{}{"type": "string"},
			"children": map[string]interface{}{
				"type":  "array",
				"items": segment,
			},
		},
		"required": []string{"node_type", "title", "summary", "children"},
	}

	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"video_title": map[string]interface{}{"type": "string"},
			"overview":    map[string]interface{}{"type": "string"},
			"children": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"anyOf": []interface{}{chapter, segment},
				},
			},
		},
		"required": []string{"video_title", "overview", "children"},
	}
}
