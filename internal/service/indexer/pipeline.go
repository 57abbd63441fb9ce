package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/config"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain/models/video"
)

// ProgressFunc receives coarse pipeline progress. Purely observational; it
// never affects the outcome.
type ProgressFunc func(current, total int, message string)

// analyzedFrame pairs a frame's timestamp with its analysis.
type analyzedFrame struct {
	Timestamp string
	Analysis  FrameAnalysis
}

// FramePipelineIndexer implements Strategy B: sample one frame per
// interval, describe each frame with a local model, and group the
// resulting segments into chapters at scene changes.
//
// Frames are analyzed strictly in temporal order because each frame's
// analysis receives the previous frame's description as context.
type FramePipelineIndexer struct {
	extractor       FrameExtractor
	analyzer        FrameAnalyzer
	intervalSeconds int
	maxFrames       int
	progress        ProgressFunc
	logger          *slog.Logger
}

// NewFramePipelineIndexer creates a frame-sampling indexer. progress may be
// nil.
func NewFramePipelineIndexer(
	extractor FrameExtractor,
	analyzer FrameAnalyzer,
	intervalSeconds int,
	maxFrames int,
	progress ProgressFunc,
	logger *slog.Logger,
) *FramePipelineIndexer {
	return &FramePipelineIndexer{
		extractor:       extractor,
		analyzer:        analyzer,
		intervalSeconds: intervalSeconds,
		maxFrames:       maxFrames,
		progress:        progress,
		logger:          logger,
	}
}

func (p *FramePipelineIndexer) report(current, total int, message string) {
	if p.progress != nil {
		p.progress(current, total, message)
	}
	p.logger.Debug("indexing progress", "current", current, "total", total, "message", message)
}

// extractedFrame pairs a timestamp with raw frame bytes.
type extractedFrame struct {
	Timestamp string
	Data      []byte
}

// Index runs the full pipeline: probe, extract, analyze, build.
func (p *FramePipelineIndexer) Index(ctx context.Context, videoBytes []byte) (*video.AnalysisResult, error) {
	p.report(0, 3, "probing video duration...")
	duration, err := p.extractor.Duration(ctx, videoBytes)
	if err != nil {
		return nil, fmt.Errorf("probe video duration: %w", err)
	}

	p.report(1, 3, fmt.Sprintf("extracting frames (every %d seconds)...", p.intervalSeconds))
	frames, err := p.extractFrames(ctx, videoBytes, duration)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, domain.NewValidationError("no frames could be extracted from the video")
	}

	p.report(2, 3, fmt.Sprintf("extracted %d frames, starting analysis...", len(frames)))

	analyses := make([]analyzedFrame, 0, len(frames))
	prior := ""
	for i, frame := range frames {
		p.report(i+1, len(frames), fmt.Sprintf("analyzing frame %s...", frame.Timestamp))
		analysis, err := p.analyzer.AnalyzeFrame(ctx, frame.Data, frame.Timestamp, prior)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, analyzedFrame{Timestamp: frame.Timestamp, Analysis: analysis})
		// One-step context chain: the next frame only sees this
		// description, keeping context bounded.
		prior = analysis.SceneDescription
	}

	result, err := buildStructure(analyses, duration)
	if err != nil {
		return nil, err
	}
	if err := validateResult(result); err != nil {
		return nil, err
	}

	p.logger.Info("video indexed",
		"strategy", "frames",
		"frames", len(frames),
		"children", len(result.Children),
	)

	return result, nil
}

// extractFrames samples one frame per interval up to maxFrames, skipping
// timestamps at or past the clip end.
func (p *FramePipelineIndexer) extractFrames(ctx context.Context, videoBytes []byte, duration float64) ([]extractedFrame, error) {
	numFrames := int(duration/float64(p.intervalSeconds)) + 1
	if numFrames > p.maxFrames {
		numFrames = p.maxFrames
	}

	frames := make([]extractedFrame, 0, numFrames)
	for i := 0; i < numFrames; i++ {
		timestamp := i * p.intervalSeconds
		if float64(timestamp) >= duration {
			break
		}

		data, err := p.extractor.ExtractFrame(ctx, videoBytes, timestamp)
		if err != nil {
			return nil, fmt.Errorf("extract frame at %ds: %w", timestamp, err)
		}
		frames = append(frames, extractedFrame{
			Timestamp: video.FormatTimestamp(timestamp),
			Data:      data,
		})
	}

	return frames, nil
}

// buildStructure converts ordered frame analyses into the content tree.
//
// Segment spans run from each frame's timestamp to the next frame's, the
// last one to the clip end; zero-length segments are skipped. A chapter
// boundary opens when a frame is flagged as a scene change AND the running
// chapter already holds at least one segment, so a scene-change flag cannot
// fragment an empty chapter. With at most one chapter the root collapses to
// the flat segment list.
func buildStructure(analyses []analyzedFrame, durationSeconds float64) (*video.AnalysisResult, error) {
	if len(analyses) == 0 {
		return nil, domain.NewValidationError("no frame analyses to build a structure from")
	}

	var (
		segments        []*video.Segment
		chapters        []*video.Chapter
		currentChildren []*video.Segment
	)

	flush := func() {
		if len(currentChildren) == 0 {
			return
		}
		chapters = append(chapters, &video.Chapter{
			Title:    fmt.Sprintf("Chapter %d", len(chapters)+1),
			Summary:  truncate(currentChildren[0].Description, config.MaxFrameAnalysisChars),
			Children: currentChildren,
		})
		currentChildren = nil
	}

	for i, frame := range analyses {
		end := video.FormatTimestamp(int(durationSeconds))
		if i+1 < len(analyses) {
			end = analyses[i+1].Timestamp
		}

		// A frame at the very end of the clip produces nothing.
		if frame.Timestamp == end {
			continue
		}

		span, err := video.NewTimeSpan(frame.Timestamp, end)
		if err != nil {
			return nil, err
		}

		segment := &video.Segment{
			Title:       fmt.Sprintf("%s (%s)", titleCase(sceneType(frame.Analysis)), frame.Timestamp),
			Description: frame.Analysis.SceneDescription,
			TimeSpan:    span,
		}

		if frame.Analysis.IsSceneChange && len(currentChildren) > 0 {
			flush()
		}

		currentChildren = append(currentChildren, segment)
		segments = append(segments, segment)
	}

	flush()

	overviewParts := make([]string, 0, config.OverviewSegmentCount)
	for _, seg := range segments {
		if len(overviewParts) == config.OverviewSegmentCount {
			break
		}
		overviewParts = append(overviewParts, seg.Description)
	}
	overview := truncate(strings.Join(overviewParts, " "), config.MaxOverviewChars)

	// Trivial single-chapter runs collapse into a flat structure.
	children := make([]video.Node, 0)
	if len(chapters) > 1 {
		for _, ch := range chapters {
			children = append(children, ch)
		}
	} else {
		for _, seg := range segments {
			children = append(children, seg)
		}
	}

	return &video.AnalysisResult{
		VideoTitle: "Video analysis",
		Overview:   overview,
		Children:   children,
	}, nil
}

func sceneType(a FrameAnalysis) string {
	if a.SceneType == "" {
		return "scene"
	}
	return a.SceneType
}

// titleCase uppercases the first letter only.
func titleCase(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
