package indexer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/service/llm/providers/ollama"
)

func TestParseFrameAnalysis(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		analysis, ok := parseFrameAnalysis(`{"scene_description":"a desk","visual_elements":"laptop","audio_hint":"typing","is_scene_change":true,"scene_type":"main"}`)
		if !ok {
			t.Fatal("parse reported fallback for valid JSON")
		}
		if analysis.SceneDescription != "a desk" || !analysis.IsSceneChange || analysis.SceneType != "main" {
			t.Errorf("unexpected analysis: %+v", analysis)
		}
	})

	t.Run("json fenced", func(t *testing.T) {
		text := "```json\n{\"scene_description\":\"a hallway\",\"is_scene_change\":false,\"scene_type\":\"transition\"}\n```"
		analysis, ok := parseFrameAnalysis(text)
		if !ok {
			t.Fatal("parse reported fallback for fenced JSON")
		}
		if analysis.SceneDescription != "a hallway" {
			t.Errorf("unexpected analysis: %+v", analysis)
		}
	})

	t.Run("bare fence", func(t *testing.T) {
		text := "```\n{\"scene_description\":\"a street\"}\n```"
		analysis, ok := parseFrameAnalysis(text)
		if !ok {
			t.Fatal("parse reported fallback for fenced JSON")
		}
		if analysis.SceneDescription != "a street" {
			t.Errorf("unexpected analysis: %+v", analysis)
		}
	})

	t.Run("free text falls back to default record", func(t *testing.T) {
		text := "I can see a person presenting slides in a conference room."
		analysis, ok := parseFrameAnalysis(text)
		if ok {
			t.Fatal("parse reported success for free text")
		}
		if analysis.SceneDescription != text {
			t.Errorf("fallback description = %q, want raw text", analysis.SceneDescription)
		}
		if analysis.SceneType != "other" || analysis.IsSceneChange {
			t.Errorf("fallback record not default-shaped: %+v", analysis)
		}
	})
}

func TestOllamaAnalyzer_AnalyzeFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string   `json:"prompt"`
			Images []string `json:"images"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Images) != 1 {
			t.Errorf("images count = %d, want 1", len(req.Images))
		}
		json.NewEncoder(w).Encode(map[string]string{
			"response": `{"scene_description":"city at night","is_scene_change":true,"scene_type":"intro"}`,
		})
	}))
	defer server.Close()

	analyzer := NewOllamaAnalyzer(ollama.NewClient(server.URL, "qwen3-vl:8b"), testLogger())
	analysis, err := analyzer.AnalyzeFrame(context.Background(), []byte("jpeg"), "00:10", "prior scene")
	if err != nil {
		t.Fatalf("AnalyzeFrame failed: %v", err)
	}
	if analysis.SceneDescription != "city at night" || !analysis.IsSceneChange {
		t.Errorf("unexpected analysis: %+v", analysis)
	}
}

func TestBuildFramePrompt_Context(t *testing.T) {
	withContext := buildFramePrompt("01:20", "a speaker on stage")
	if !strings.Contains(withContext, "01:20") || !strings.Contains(withContext, "a speaker on stage") {
		t.Errorf("prompt missing timestamp or context: %q", withContext)
	}

	withoutContext := buildFramePrompt("00:00", "")
	if strings.Contains(withoutContext, "Context from the previous scene") {
		t.Error("prompt for first frame should not mention previous context")
	}
}
