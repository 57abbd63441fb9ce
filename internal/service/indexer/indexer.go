// Package indexer turns raw video bytes into a hierarchical content tree.
//
// Two interchangeable strategies exist: single-shot structured extraction by
// a multimodal backend (StructuredIndexer), and a frame-sampling pipeline
// for less capable local backends (FramePipelineIndexer). Both share the
// same contract: at least one child in the resulting tree, or the indexing
// operation fails outright.
package indexer

import (
	"context"
	"strings"

	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain/models/video"
)

// Indexer produces a content tree from raw video bytes.
type Indexer interface {
	Index(ctx context.Context, videoBytes []byte) (*video.AnalysisResult, error)
}

// validateResult enforces the shared indexing contract: a well-formed tree
// with at least one child. An empty tree means the analysis degenerated or
// failed, and is never repaired.
func validateResult(result *video.AnalysisResult) error {
	if err := result.Validate(); err != nil {
		return err
	}
	if len(result.Children) == 0 {
		return domain.NewValidationError(
			"analysis produced no segments (title: %q, overview: %q); the video may be too short or the analysis may have failed",
			result.VideoTitle, result.Overview)
	}
	return nil
}

// stripCodeFence removes markdown code-fence delimiters around a JSON
// payload. Models frequently wrap structured output in ```json fences even
// when asked not to.
func stripCodeFence(text string) string {
	if strings.Contains(text, "```json") {
		after := strings.SplitN(text, "```json", 2)[1]
		return strings.SplitN(after, "```", 2)[0]
	}
	if strings.Contains(text, "```") {
		parts := strings.SplitN(text, "```", 3)
		if len(parts) >= 2 {
			return parts[1]
		}
	}
	return text
}

// truncate takes the first limit runes of s and appends an ellipsis marker.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes) + "..."
}
