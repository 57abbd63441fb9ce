package openai

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	domainllm "github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain/services/llm"
)

// jsonSchema lets a plain schema map satisfy the json.Marshaler the SDK's
// response_format field expects.
type jsonSchema map[string]interface{}

func (s jsonSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(s))
}

// convertToChatRequest converts a domain request to the chat-completions
// wire format.
func convertToChatRequest(req *domainllm.GenerateRequest) (openai.ChatCompletionRequest, error) {
	apiReq := openai.ChatCompletionRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		apiReq.Temperature = *req.Temperature
	}

	if req.System != "" {
		apiReq.Messages = append(apiReq.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for i, msg := range req.Messages {
		converted, err := convertMessage(msg)
		if err != nil {
			return openai.ChatCompletionRequest{}, fmt.Errorf("message %d: %w", i, err)
		}
		apiReq.Messages = append(apiReq.Messages, converted)
	}

	for _, tool := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	if req.ResponseSchema != nil {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "structured_output",
				Schema: jsonSchema(req.ResponseSchema),
				Strict: false,
			},
		}
	}

	return apiReq, nil
}

func convertMessage(msg domainllm.Message) (openai.ChatCompletionMessage, error) {
	switch msg.Role {
	case "tool":
		if len(msg.Parts) != 1 || msg.Parts[0].Type != domainllm.PartTypeText {
			return openai.ChatCompletionMessage{}, fmt.Errorf("tool message must carry exactly one text part")
		}
		return openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    msg.Parts[0].Text,
			ToolCallID: msg.ToolCallID,
		}, nil

	case "assistant":
		converted := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
		for _, part := range msg.Parts {
			if part.Type == domainllm.PartTypeText {
				converted.Content += part.Text
			}
		}
		for _, call := range msg.ToolCalls {
			args, err := json.Marshal(call.Input)
			if err != nil {
				return openai.ChatCompletionMessage{}, fmt.Errorf("marshal tool call input: %w", err)
			}
			converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Name,
					Arguments: string(args),
				},
			})
		}
		return converted, nil

	case "user":
		// A single text part can go through the plain content field;
		// anything multimodal uses multi-content parts.
		if len(msg.Parts) == 1 && msg.Parts[0].Type == domainllm.PartTypeText {
			return openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Parts[0].Text,
			}, nil
		}
		converted := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
		for _, part := range msg.Parts {
			converted.MultiContent = append(converted.MultiContent, convertPart(part)...)
		}
		return converted, nil

	default:
		return openai.ChatCompletionMessage{}, fmt.Errorf("unsupported role '%s'", msg.Role)
	}
}

// convertPart maps one content part to chat-completions parts. Binary
// content travels as a base64 data URL; the chat-completions format has no
// video block, so a video part becomes a data URL plus a text note carrying
// the offset window for backends that cannot honor the URL's MIME type.
func convertPart(part domainllm.ContentPart) []openai.ChatMessagePart {
	switch part.Type {
	case domainllm.PartTypeText:
		return []openai.ChatMessagePart{{
			Type: openai.ChatMessagePartTypeText,
			Text: part.Text,
		}}

	case domainllm.PartTypeImage:
		return []openai.ChatMessagePart{{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: dataURL(part)},
		}}

	case domainllm.PartTypeVideo:
		parts := []openai.ChatMessagePart{}
		if part.Video != nil {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: fmt.Sprintf(
					"The attached video is the session's uploaded video. Consider only the window from %ds to %ds, sampled at %d fps.",
					part.Video.StartOffsetSeconds, part.Video.EndOffsetSeconds, part.Video.FPS),
			})
		}
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: dataURL(part)},
		})
		return parts

	default:
		return nil
	}
}

func dataURL(part domainllm.ContentPart) string {
	return fmt.Sprintf("data:%s;base64,%s",
		part.MIMEType, base64.StdEncoding.EncodeToString(part.Data))
}

// convertFromChatResponse converts an API response to the domain format.
func convertFromChatResponse(resp *openai.ChatCompletionResponse) (*domainllm.GenerateResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai response contained no choices")
	}
	choice := resp.Choices[0]

	result := &domainllm.GenerateResponse{
		Text:         choice.Message.Content,
		Model:        resp.Model,
		StopReason:   string(choice.FinishReason),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}

	for _, call := range choice.Message.ToolCalls {
		input := map[string]interface{}{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &input); err != nil {
				return nil, fmt.Errorf("parse tool call arguments for %s: %w", call.Function.Name, err)
			}
		}
		result.ToolCalls = append(result.ToolCalls, domainllm.ToolCall{
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: input,
		})
	}

	return result, nil
}
