package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/config"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain/models/video"
	domainllm "github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain/services/llm"
)

type fakeArtifacts struct {
	data  map[string][]byte
	err   error
	loads int
}

func (f *fakeArtifacts) LoadArtifact(ctx context.Context, sessionID, name string) ([]byte, error) {
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.data[name]
	if !ok {
		return nil, errors.New("artifact not found: " + name)
	}
	return data, nil
}

func clipRequest() *domainllm.GenerateRequest {
	return &domainllm.GenerateRequest{
		Model: "gpt-4o",
		Messages: []domainllm.Message{
			{Role: "user", Parts: []domainllm.ContentPart{domainllm.TextPart("what happens here?")}},
		},
	}
}

func TestAttachClipHook_AppendsWindowedClip(t *testing.T) {
	artifacts := &fakeArtifacts{data: map[string][]byte{
		config.ArtifactVideoName: []byte("mp4bytes"),
	}}
	call := &CallContext{SessionID: "s1", Artifacts: artifacts}
	hook := AttachClipHook(video.TimeSpan{Start: "01:30", End: "02:45"})

	req := clipRequest()
	if err := hook(context.Background(), call, req); err != nil {
		t.Fatalf("hook failed: %v", err)
	}

	parts := req.Messages[0].Parts
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want text + video", len(parts))
	}
	if parts[0].Type != domainllm.PartTypeText {
		t.Error("existing text part was replaced")
	}

	clip := parts[1]
	if clip.Type != domainllm.PartTypeVideo {
		t.Fatalf("appended part type = %q", clip.Type)
	}
	if string(clip.Data) != "mp4bytes" {
		t.Error("clip does not carry the artifact bytes")
	}
	if clip.Video.StartOffsetSeconds != 90 || clip.Video.EndOffsetSeconds != 165 {
		t.Errorf("offsets = %d-%d, want 90-165", clip.Video.StartOffsetSeconds, clip.Video.EndOffsetSeconds)
	}
	if clip.Video.FPS != config.ClipFPS {
		t.Errorf("fps = %d, want %d", clip.Video.FPS, config.ClipFPS)
	}
}

func TestAttachClipHook_RunsEveryCall(t *testing.T) {
	artifacts := &fakeArtifacts{data: map[string][]byte{
		config.ArtifactVideoName: []byte("mp4bytes"),
	}}
	call := &CallContext{SessionID: "s1", Artifacts: artifacts}
	hook := AttachClipHook(video.TimeSpan{Start: "00:00", End: "00:10"})

	for i := 0; i < 3; i++ {
		req := clipRequest()
		if err := hook(context.Background(), call, req); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
	if artifacts.loads != 3 {
		t.Errorf("artifact loaded %d times, want one load per call", artifacts.loads)
	}
}

func TestAttachClipHook_MissingArtifact(t *testing.T) {
	artifacts := &fakeArtifacts{err: errors.New("no such artifact")}
	call := &CallContext{SessionID: "s1", Artifacts: artifacts}
	hook := AttachClipHook(video.TimeSpan{Start: "00:00", End: "00:10"})

	if err := hook(context.Background(), call, clipRequest()); err == nil {
		t.Fatal("hook succeeded without the artifact")
	}
}
