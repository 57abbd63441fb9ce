package anthropic

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	domainllm "github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain/services/llm"
)

// convertToAnthropicMessages converts domain messages to Anthropic SDK format.
func convertToAnthropicMessages(messages []domainllm.Message) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(messages))

	for i, msg := range messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Parts))

		for _, part := range msg.Parts {
			converted, err := convertPart(part)
			if err != nil {
				return nil, fmt.Errorf("message %d: %w", i, err)
			}
			blocks = append(blocks, converted...)
		}

		switch msg.Role {
		case "user":
			result = append(result, anthropic.NewUserMessage(blocks...))

		case "assistant":
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    call.ID,
						Name:  call.Name,
						Input: call.Input,
					},
				})
			}
			result = append(result, anthropic.NewAssistantMessage(blocks...))

		case "tool":
			// Tool results travel as user-role tool_result blocks.
			if len(msg.Parts) != 1 || msg.Parts[0].Type != domainllm.PartTypeText {
				return nil, fmt.Errorf("message %d: tool message must carry exactly one text part", i)
			}
			result = append(result, anthropic.NewUserMessage(anthropic.ContentBlockParamUnion{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: msg.ToolCallID,
					Content: []anthropic.ToolResultBlockParamContentUnion{
						{OfText: &anthropic.TextBlockParam{Text: msg.Parts[0].Text}},
					},
				},
			}))

		default:
			return nil, fmt.Errorf("message %d: unsupported role '%s'", i, msg.Role)
		}
	}

	return result, nil
}

// convertPart maps one content part to Anthropic blocks. The messages API
// has no video block: a video part becomes a text note carrying the offset
// window so the model still knows which slice of the timeline the turn
// concerns.
func convertPart(part domainllm.ContentPart) ([]anthropic.ContentBlockParamUnion, error) {
	switch part.Type {
	case domainllm.PartTypeText:
		return []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(part.Text)}, nil

	case domainllm.PartTypeImage:
		encoded := base64.StdEncoding.EncodeToString(part.Data)
		return []anthropic.ContentBlockParamUnion{
			anthropic.NewImageBlockBase64(part.MIMEType, encoded),
		}, nil

	case domainllm.PartTypeVideo:
		note := "A video attachment is present but this backend accepts no video input."
		if part.Video != nil {
			note = fmt.Sprintf(
				"The session's uploaded video is attached out-of-band. Answer for the window from %ds to %ds (sampled at %d fps).",
				part.Video.StartOffsetSeconds, part.Video.EndOffsetSeconds, part.Video.FPS)
		}
		return []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(note)}, nil

	default:
		return nil, fmt.Errorf("unsupported content part type '%s'", part.Type)
	}
}

// convertTool maps a domain tool definition to the SDK tool union.
func convertTool(tool domainllm.ToolDefinition) anthropic.ToolUnionParam {
	properties := tool.Parameters["properties"]
	var required []string
	if raw, ok := tool.Parameters["required"].([]string); ok {
		required = raw
	}

	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        tool.Name,
			Description: anthropic.String(tool.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   required,
			},
		},
	}
}

// convertFromAnthropicResponse converts an Anthropic response to domain format.
func convertFromAnthropicResponse(msg *anthropic.Message) (*domainllm.GenerateResponse, error) {
	response := &domainllm.GenerateResponse{
		Model:        string(msg.Model),
		StopReason:   string(msg.StopReason),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}

	for _, content := range msg.Content {
		switch content.Type {
		case "text":
			response.Text += content.Text

		case "tool_use":
			input := map[string]interface{}{}
			if len(content.Input) > 0 {
				if err := json.Unmarshal(content.Input, &input); err != nil {
					return nil, fmt.Errorf("parse tool input for %s: %w", content.Name, err)
				}
			}
			response.ToolCalls = append(response.ToolCalls, domainllm.ToolCall{
				ID:    content.ID,
				Name:  content.Name,
				Input: input,
			})

		// Thinking and other block types carry nothing dispatch needs.
		default:
			continue
		}
	}

	return response, nil
}

// appendSchemaInstruction states the expected JSON schema in the system
// prompt for backends without a native response-format constraint.
func appendSchemaInstruction(system string, schema map[string]interface{}) string {
	encoded, err := json.Marshal(schema)
	if err != nil {
		return system
	}
	instruction := fmt.Sprintf(
		"Respond with a single JSON document conforming to this JSON Schema, with no surrounding prose:\n%s",
		string(encoded))
	if system == "" {
		return instruction
	}
	return system + "\n\n" + instruction
}
