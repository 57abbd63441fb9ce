package llm

import (
	"context"
)

// LLMProvider defines the interface every generation backend implements.
// This abstraction lets the indexer and the agent runtime run against
// OpenAI-compatible or Anthropic backends through one consistent surface.
type LLMProvider interface {
	// GenerateResponse performs one blocking request/response generation.
	GenerateResponse(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Name returns the provider name (e.g. "openai", "anthropic").
	Name() string

	// SupportsModel returns true if the provider supports the given model.
	SupportsModel(model string) bool
}

// Part type constants for multimodal content.
const (
	PartTypeText  = "text"
	PartTypeImage = "image"
	PartTypeVideo = "video"
)

// VideoMetadata annotates a video part with the offset window and sampling
// rate the backend should look at.
type VideoMetadata struct {
	StartOffsetSeconds int
	EndOffsetSeconds   int
	FPS                int
}

// ContentPart is one piece of multimodal message content.
type ContentPart struct {
	Type string

	// Text is set for text parts.
	Text string

	// Data and MIMEType are set for image and video parts; Data is raw
	// (not yet base64-encoded) bytes.
	Data     []byte
	MIMEType string

	// Video carries the offset window for video parts.
	Video *VideoMetadata
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartTypeText, Text: text}
}

// ImagePart builds an image content part from raw bytes.
func ImagePart(data []byte, mimeType string) ContentPart {
	return ContentPart{Type: PartTypeImage, Data: data, MIMEType: mimeType}
}

// VideoPart builds a video content part with an offset window.
func VideoPart(data []byte, mimeType string, meta VideoMetadata) ContentPart {
	return ContentPart{Type: PartTypeVideo, Data: data, MIMEType: mimeType, Video: &meta}
}

// Message represents a single message in the conversation.
type Message struct {
	// Role is "user", "assistant", or "tool".
	Role string

	// Parts is the multimodal content of the message.
	Parts []ContentPart

	// ToolCalls is set on assistant messages that requested tool
	// invocations.
	ToolCalls []ToolCall

	// ToolCallID links a "tool" role message back to the call it answers.
	ToolCallID string
}

// ToolDefinition describes a callable tool exposed to the model.
type ToolDefinition struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object.
	Parameters map[string]interface{}
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]interface{}
}

// GenerateRequest contains the parameters for one generation call.
type GenerateRequest struct {
	Model    string
	System   string
	Messages []Message
	Tools    []ToolDefinition

	// ResponseSchema, when set, constrains the output to a JSON document
	// conforming to this JSON Schema object.
	ResponseSchema map[string]interface{}

	Temperature *float32
	MaxTokens   int
}

// GenerateResponse is the backend's reply.
type GenerateResponse struct {
	// Text is the concatenated text content of the reply.
	Text string

	// ToolCalls is non-empty when the model requested tool invocations
	// instead of (or alongside) answering.
	ToolCalls []ToolCall

	Model        string
	StopReason   string
	InputTokens  int
	OutputTokens int
}
