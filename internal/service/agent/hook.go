package agent

import (
	"context"
	"fmt"

	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/config"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain/models/video"
	domainllm "github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain/services/llm"
)

// ArtifactLoader provides read access to a session's named binary
// artifacts. The runtime's artifact store satisfies this.
type ArtifactLoader interface {
	LoadArtifact(ctx context.Context, sessionID, name string) ([]byte, error)
}

// CallContext carries the per-call state a hook needs: which session the
// call belongs to and where its artifacts live.
type CallContext struct {
	SessionID string
	Artifacts ArtifactLoader
}

// BeforeModelHook mutates a generate request just before it is sent. Hooks
// run once per model call, every call, so state attached by a hook never
// goes stale across turns.
type BeforeModelHook func(ctx context.Context, call *CallContext, req *domainllm.GenerateRequest) error

// AttachClipHook returns a hook that loads the uploaded video from the
// session's artifact store and appends a video part windowed to the given
// span. It always appends, never replaces existing parts, so the user's
// text question stays in the message.
func AttachClipHook(span video.TimeSpan) BeforeModelHook {
	return func(ctx context.Context, call *CallContext, req *domainllm.GenerateRequest) error {
		data, err := call.Artifacts.LoadArtifact(ctx, call.SessionID, config.ArtifactVideoName)
		if err != nil {
			return fmt.Errorf("loading video artifact: %w", err)
		}

		if len(req.Messages) == 0 {
			return fmt.Errorf("clip hook invoked on a request with no messages")
		}

		part := domainllm.VideoPart(data, config.VideoMIMEType, domainllm.VideoMetadata{
			StartOffsetSeconds: span.StartSeconds(),
			EndOffsetSeconds:   span.EndSeconds(),
			FPS:                config.ClipFPS,
		})

		last := &req.Messages[len(req.Messages)-1]
		last.Parts = append(last.Parts, part)
		return nil
	}
}
