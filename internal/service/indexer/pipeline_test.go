package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain/models/video"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeExtractor serves a fixed duration and synthetic frame bytes.
type fakeExtractor struct {
	duration float64
	failAt   int // timestamp that fails extraction, -1 for none
}

func (f *fakeExtractor) Duration(ctx context.Context, videoBytes []byte) (float64, error) {
	return f.duration, nil
}

func (f *fakeExtractor) ExtractFrame(ctx context.Context, videoBytes []byte, timestampSeconds int) ([]byte, error) {
	if f.failAt >= 0 && timestampSeconds == f.failAt {
		return nil, errors.New("ffmpeg exited with status 1")
	}
	return []byte(fmt.Sprintf("frame@%d", timestampSeconds)), nil
}

// scriptedAnalyzer returns pre-scripted analyses keyed by timestamp and
// records the context chain it was given.
type scriptedAnalyzer struct {
	byTimestamp map[string]FrameAnalysis
	contexts    []string
}

func (s *scriptedAnalyzer) AnalyzeFrame(ctx context.Context, frame []byte, timestamp, prior string) (FrameAnalysis, error) {
	s.contexts = append(s.contexts, prior)
	analysis, ok := s.byTimestamp[timestamp]
	if !ok {
		return FrameAnalysis{SceneDescription: "scene at " + timestamp}, nil
	}
	return analysis, nil
}

func TestFramePipeline_ChapterSplitting(t *testing.T) {
	// Frames at t=0,10,20,30 with scene-change flags [false,true,false,true]
	// over a 40s clip. A scene-change flag only opens a new chapter when
	// the running chapter already holds a segment, and the flagged frame's
	// own segment belongs to the new chapter.
	extractor := &fakeExtractor{duration: 40, failAt: -1}
	analyzer := &scriptedAnalyzer{byTimestamp: map[string]FrameAnalysis{
		"00:00": {SceneDescription: "opening titles", SceneType: "intro"},
		"00:10": {SceneDescription: "presenter walks in", SceneType: "main", IsSceneChange: true},
		"00:20": {SceneDescription: "slide one", SceneType: "main"},
		"00:30": {SceneDescription: "closing remarks", SceneType: "conclusion", IsSceneChange: true},
	}}

	p := NewFramePipelineIndexer(extractor, analyzer, 10, 30, nil, testLogger())
	result, err := p.Index(context.Background(), []byte("video"))
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	if len(result.Children) != 3 {
		t.Fatalf("children count = %d, want 3 chapters", len(result.Children))
	}

	wantSpans := [][]string{
		{"00:00-00:10"},
		{"00:10-00:20", "00:20-00:30"},
		{"00:30-00:40"},
	}
	for i, child := range result.Children {
		ch, ok := child.(*video.Chapter)
		if !ok {
			t.Fatalf("child %d is %T, want *video.Chapter", i, child)
		}
		if len(ch.Children) != len(wantSpans[i]) {
			t.Fatalf("chapter %d has %d segments, want %d", i, len(ch.Children), len(wantSpans[i]))
		}
		for j, seg := range ch.Children {
			got := seg.TimeSpan.Start + "-" + seg.TimeSpan.End
			if got != wantSpans[i][j] {
				t.Errorf("chapter %d segment %d span = %s, want %s", i, j, got, wantSpans[i][j])
			}
		}
	}

	// The context chain must thread each description into the next call.
	wantContexts := []string{"", "opening titles", "presenter walks in", "slide one"}
	for i, want := range wantContexts {
		if analyzer.contexts[i] != want {
			t.Errorf("context for frame %d = %q, want %q", i, analyzer.contexts[i], want)
		}
	}
}

func TestFramePipeline_SingleChapterCollapses(t *testing.T) {
	// No scene changes: one trailing chapter gets flushed, and a single
	// chapter collapses into the flat segment list.
	extractor := &fakeExtractor{duration: 30, failAt: -1}
	analyzer := &scriptedAnalyzer{byTimestamp: map[string]FrameAnalysis{}}

	p := NewFramePipelineIndexer(extractor, analyzer, 10, 30, nil, testLogger())
	result, err := p.Index(context.Background(), []byte("video"))
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	if len(result.Children) != 3 {
		t.Fatalf("children count = %d, want 3 flat segments", len(result.Children))
	}
	for i, child := range result.Children {
		if child.Kind() != video.KindSegment {
			t.Errorf("child %d kind = %q, want Segment (flat collapse)", i, child.Kind())
		}
	}
}

func TestFramePipeline_ZeroLengthSegmentSkipped(t *testing.T) {
	// Duration 20 with a 10s interval puts the last frame at t=20, exactly
	// the clip end: extraction skips it. A duration that lands a frame on
	// the end timestamp produces no zero-length segment either way.
	extractor := &fakeExtractor{duration: 20, failAt: -1}
	analyzer := &scriptedAnalyzer{byTimestamp: map[string]FrameAnalysis{}}

	p := NewFramePipelineIndexer(extractor, analyzer, 10, 30, nil, testLogger())
	result, err := p.Index(context.Background(), []byte("video"))
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	if len(result.Children) != 2 {
		t.Fatalf("children count = %d, want 2", len(result.Children))
	}
	last := result.Children[1].Span()
	if last.Start != "00:10" || last.End != "00:20" {
		t.Errorf("last span = %+v, want 00:10-00:20", last)
	}
}

func TestFramePipeline_MaxFramesCap(t *testing.T) {
	extractor := &fakeExtractor{duration: 600, failAt: -1}
	analyzer := &scriptedAnalyzer{byTimestamp: map[string]FrameAnalysis{}}

	p := NewFramePipelineIndexer(extractor, analyzer, 10, 5, nil, testLogger())
	result, err := p.Index(context.Background(), []byte("video"))
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	// 5 frames capped; segments run to the next frame, last to clip end.
	if len(result.Children) != 5 {
		t.Fatalf("children count = %d, want 5", len(result.Children))
	}
	last := result.Children[4].Span()
	if last.Start != "00:40" || last.End != "10:00" {
		t.Errorf("last span = %+v, want 00:40-10:00", last)
	}
}

func TestFramePipeline_SummaryAndOverviewTruncation(t *testing.T) {
	long := strings.Repeat("n", 150)
	extractor := &fakeExtractor{duration: 40, failAt: -1}
	analyzer := &scriptedAnalyzer{byTimestamp: map[string]FrameAnalysis{
		"00:00": {SceneDescription: long},
		"00:10": {SceneDescription: long, IsSceneChange: true},
		"00:20": {SceneDescription: long, IsSceneChange: true},
		"00:30": {SceneDescription: long, IsSceneChange: true},
	}}

	p := NewFramePipelineIndexer(extractor, analyzer, 10, 30, nil, testLogger())
	result, err := p.Index(context.Background(), []byte("video"))
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	ch, ok := result.Children[0].(*video.Chapter)
	if !ok {
		t.Fatalf("child 0 is %T, want chapter", result.Children[0])
	}
	if want := strings.Repeat("n", 100) + "..."; ch.Summary != want {
		t.Errorf("summary = %d chars %q..., want 100 chars plus ellipsis", len(ch.Summary), ch.Summary[:20])
	}
	if len([]rune(result.Overview)) != 203 {
		t.Errorf("overview length = %d, want 200 chars plus ellipsis", len([]rune(result.Overview)))
	}
}

func TestFramePipeline_ProgressReported(t *testing.T) {
	extractor := &fakeExtractor{duration: 20, failAt: -1}
	analyzer := &scriptedAnalyzer{byTimestamp: map[string]FrameAnalysis{}}

	var messages []string
	progress := func(current, total int, message string) {
		messages = append(messages, fmt.Sprintf("[%d/%d] %s", current, total, message))
	}

	p := NewFramePipelineIndexer(extractor, analyzer, 10, 30, progress, testLogger())
	if _, err := p.Index(context.Background(), []byte("video")); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	// Three phase reports plus one per analyzed frame.
	if len(messages) != 5 {
		t.Fatalf("progress calls = %d, want 5: %v", len(messages), messages)
	}
	if !strings.Contains(messages[0], "duration") {
		t.Errorf("first progress message = %q", messages[0])
	}
}

func TestFramePipeline_ExtractionFaultPropagates(t *testing.T) {
	extractor := &fakeExtractor{duration: 40, failAt: 20}
	analyzer := &scriptedAnalyzer{byTimestamp: map[string]FrameAnalysis{}}

	p := NewFramePipelineIndexer(extractor, analyzer, 10, 30, nil, testLogger())
	if _, err := p.Index(context.Background(), []byte("video")); err == nil {
		t.Fatal("Index succeeded despite extraction fault, want error")
	}
}

func TestBuildStructure_Empty(t *testing.T) {
	if _, err := buildStructure(nil, 10); err == nil {
		t.Fatal("buildStructure with no analyses succeeded, want error")
	} else if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error %v does not match domain.ErrValidation", err)
	}
}
