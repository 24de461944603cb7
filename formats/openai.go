package formats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelrelay/modelrelay"
)

// OpenAIAdapter converts between the OpenAI chat-completions wire format and
// the canonical schema, in both client and provider directions, including
// streaming chunks.
type OpenAIAdapter struct{}

// NewOpenAI creates the OpenAI chat-completions adapter.
func NewOpenAI() *OpenAIAdapter {
	return &OpenAIAdapter{}
}

func (a *OpenAIAdapter) FormatType() string {
	return FormatOpenAI
}

// openaiRequestKeys are the top-level fields the canonical shape models.
// Anything else is preserved in provider_params for lossless round-trips.
var openaiRequestKeys = map[string]bool{
	"model": true, "messages": true, "max_tokens": true,
	"max_completion_tokens": true, "temperature": true, "top_p": true,
	"stop": true, "stream": true, "tools": true, "tool_choice": true,
	"functions": true, "function_call": true,
}

// RequestToCanonical translates a client chat-completions request.
func (a *OpenAIAdapter) RequestToCanonical(raw []byte) (*modelrelay.CanonicalRequest, error) {
	var in openaiRequest
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, modelrelay.NewValidationError("openai request: " + err.Error())
	}

	messages := make([]modelrelay.Message, 0, len(in.Messages))
	for i, msg := range in.Messages {
		canonical, err := openaiMessageToCanonical(msg)
		if err != nil {
			return nil, modelrelay.NewValidationError(fmt.Sprintf("messages[%d]: %v", i, err))
		}
		messages = append(messages, canonical)
	}

	req := modelrelay.CanonicalRequest{
		Model:    in.Model,
		Messages: messages,
		Stream:   in.Stream,
	}

	maxTokens := in.MaxTokens
	if maxTokens == nil {
		maxTokens = in.MaxCompletionTokens
	}
	stop, err := decodeStop(in.Stop)
	if err != nil {
		return nil, modelrelay.NewValidationError("stop: " + err.Error())
	}
	if maxTokens != nil || in.Temperature != nil || in.TopP != nil || len(stop) > 0 {
		req.Generation = &modelrelay.GenerationParams{
			MaxTokens:   maxTokens,
			Temperature: in.Temperature,
			TopP:        in.TopP,
			Stop:        stop,
		}
	}

	for _, tool := range in.Tools {
		req.Tools = append(req.Tools, modelrelay.Tool{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			Parameters:  tool.Function.Parameters,
		})
	}
	choice, err := decodeOpenAIToolChoice(in.ToolChoice)
	if err != nil {
		return nil, modelrelay.NewValidationError("tool_choice: " + err.Error())
	}
	req.ToolChoice = choice

	for _, fn := range in.Functions {
		req.Functions = append(req.Functions, modelrelay.Tool{
			Name:        fn.Name,
			Description: fn.Description,
			Parameters:  fn.Parameters,
		})
	}
	fnChoice, err := decodeOpenAIFunctionCall(in.FunctionCall)
	if err != nil {
		return nil, modelrelay.NewValidationError("function_call: " + err.Error())
	}
	req.FunctionCall = fnChoice

	req.ProviderParams = extraParams(raw, openaiRequestKeys)

	return modelrelay.NewCanonicalRequest(req), nil
}

// RequestFromCanonical renders a canonical request as an OpenAI
// chat-completions payload. Used both for clients and for OpenAI-compatible
// providers.
func (a *OpenAIAdapter) RequestFromCanonical(req *modelrelay.CanonicalRequest) ([]byte, error) {
	out := openaiRequest{
		Model:  req.Model,
		Stream: req.Stream,
	}

	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, canonicalMessageToOpenAI(msg)...)
	}

	if g := req.Generation; g != nil {
		out.MaxTokens = g.MaxTokens
		out.Temperature = g.Temperature
		out.TopP = g.TopP
		if len(g.Stop) > 0 {
			stop, err := json.Marshal(g.Stop)
			if err != nil {
				return nil, err
			}
			out.Stop = stop
		}
	}

	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, openaiTool{
			Type: "function",
			Function: openaiFunctionDef{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	if req.ToolChoice != nil {
		choice, err := encodeOpenAIToolChoice(req.ToolChoice)
		if err != nil {
			return nil, err
		}
		out.ToolChoice = choice
	}

	for _, fn := range req.Functions {
		out.Functions = append(out.Functions, openaiFunctionDef{
			Name:        fn.Name,
			Description: fn.Description,
			Parameters:  fn.Parameters,
		})
	}
	if req.FunctionCall != nil {
		choice, err := encodeOpenAIFunctionCall(req.FunctionCall)
		if err != nil {
			return nil, err
		}
		out.FunctionCall = choice
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return mergeExtraParams(data, req.ProviderParams)
}

// openaiFinishToCanonical is the fixed finish-reason lookup table. Unknown
// reasons default to the generic terminal reason rather than failing.
var openaiFinishToCanonical = map[string]modelrelay.FinishReason{
	"stop":           modelrelay.FinishStop,
	"length":         modelrelay.FinishLength,
	"tool_calls":     modelrelay.FinishToolCalls,
	"function_call":  modelrelay.FinishToolCalls,
	"content_filter": modelrelay.FinishContentFilter,
}

var canonicalFinishToOpenAI = map[modelrelay.FinishReason]string{
	modelrelay.FinishStop:          "stop",
	modelrelay.FinishLength:        "length",
	modelrelay.FinishToolCalls:     "tool_calls",
	modelrelay.FinishContentFilter: "content_filter",
	modelrelay.FinishError:         "stop",
}

func mapOpenAIFinish(reason string) modelrelay.FinishReason {
	if mapped, ok := openaiFinishToCanonical[reason]; ok {
		return mapped
	}
	return modelrelay.FinishStop
}

func mapFinishToOpenAI(reason modelrelay.FinishReason) string {
	if mapped, ok := canonicalFinishToOpenAI[reason]; ok {
		return mapped
	}
	return "stop"
}

// ResponseToCanonical translates a provider chat-completions response.
func (a *OpenAIAdapter) ResponseToCanonical(raw []byte) (*modelrelay.CanonicalResponse, error) {
	var in openaiResponse
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, modelrelay.NewValidationError("openai response: " + err.Error())
	}
	if len(in.Choices) == 0 {
		return nil, modelrelay.NewValidationError("openai response: choices must be non-empty")
	}

	choices := make([]modelrelay.Choice, 0, len(in.Choices))
	for _, choice := range in.Choices {
		var blocks []modelrelay.ContentBlock
		if choice.Message.ReasoningContent != "" {
			blocks = append(blocks, modelrelay.ContentBlock{
				Type:     modelrelay.BlockThinking,
				Thinking: choice.Message.ReasoningContent,
			})
		}
		if text := decodeContentText(choice.Message.Content); text != "" {
			blocks = append(blocks, modelrelay.TextBlock(text))
		}
		for _, tc := range choice.Message.ToolCalls {
			blocks = append(blocks, modelrelay.ContentBlock{
				Type: modelrelay.BlockToolUse,
				ToolUse: &modelrelay.ToolUseBlock{
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		if fc := choice.Message.FunctionCall; fc != nil {
			blocks = append(blocks, modelrelay.ContentBlock{
				Type: modelrelay.BlockToolUse,
				ToolUse: &modelrelay.ToolUseBlock{
					ID:        "call_" + uuid.NewString(),
					Name:      fc.Name,
					Arguments: fc.Arguments,
				},
			})
		}
		if len(blocks) == 0 {
			blocks = []modelrelay.ContentBlock{modelrelay.TextBlock("")}
		}
		choices = append(choices, modelrelay.Choice{
			Index:        choice.Index,
			Message:      modelrelay.Message{Role: modelrelay.RoleAssistant, Content: blocks},
			FinishReason: mapOpenAIFinish(choice.FinishReason),
		})
	}

	usage := modelrelay.Usage{
		PromptTokens:     in.Usage.PromptTokens,
		CompletionTokens: in.Usage.CompletionTokens,
		TotalTokens:      in.Usage.TotalTokens,
	}
	if d := in.Usage.PromptTokensDetails; d != nil {
		usage.CacheReadTokens = d.CachedTokens
	}
	if d := in.Usage.CompletionTokensDetails; d != nil {
		usage.ReasoningTokens = d.ReasoningTokens
	}

	return modelrelay.NewCanonicalResponse(modelrelay.CanonicalResponse{
		ID:           in.ID,
		Model:        in.Model,
		Created:      in.Created,
		Choices:      choices,
		Usage:        usage.Normalize(),
		FinishReason: choices[0].FinishReason,
		ProviderRaw:  json.RawMessage(raw),
	}), nil
}

// ResponseFromCanonical renders a canonical response as a chat-completions
// payload for the client.
func (a *OpenAIAdapter) ResponseFromCanonical(resp *modelrelay.CanonicalResponse) ([]byte, error) {
	out := openaiResponse{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: resp.Created,
		Model:   resp.Model,
		Usage: openaiUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if out.ID == "" {
		out.ID = "chatcmpl-" + uuid.NewString()
	}
	if out.Created == 0 {
		out.Created = time.Now().Unix()
	}

	for _, choice := range resp.Choices {
		msg := openaiResponseMessage{Role: "assistant"}
		var text string
		for _, block := range choice.Message.Content {
			switch block.Type {
			case modelrelay.BlockText:
				if text != "" {
					text += "\n\n"
				}
				text += block.Text
			case modelrelay.BlockThinking:
				if msg.ReasoningContent != "" {
					msg.ReasoningContent += "\n\n"
				}
				msg.ReasoningContent += block.Thinking
			case modelrelay.BlockToolUse:
				if block.ToolUse == nil {
					continue
				}
				msg.ToolCalls = append(msg.ToolCalls, openaiToolCall{
					ID:   block.ToolUse.ID,
					Type: "function",
					Function: openaiFunctionCall{
						Name:      block.ToolUse.Name,
						Arguments: block.ToolUse.Arguments,
					},
				})
			}
		}
		msg.Content = encodeContentText(text)

		out.Choices = append(out.Choices, openaiResponseChoice{
			Index:        choice.Index,
			Message:      msg,
			FinishReason: mapFinishToOpenAI(choice.FinishReason),
		})
	}

	return json.Marshal(out)
}

// StreamEventToCanonical translates one chat-completions stream chunk into
// canonical events. A single chunk may yield several events (e.g. a delta
// plus a finish reason).
func (a *OpenAIAdapter) StreamEventToCanonical(raw []byte) ([]modelrelay.CanonicalStreamEvent, error) {
	var chunk openaiStreamChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, modelrelay.NewValidationError("openai stream chunk: " + err.Error())
	}

	var events []modelrelay.CanonicalStreamEvent
	source := json.RawMessage(raw)

	for _, choice := range chunk.Choices {
		if choice.Delta.Role != "" {
			events = append(events, modelrelay.CanonicalStreamEvent{
				Type:      modelrelay.EventMessageStart,
				ID:        chunk.ID,
				Model:     chunk.Model,
				SourceRaw: source,
			})
		}
		if choice.Delta.ReasoningContent != "" {
			events = append(events, modelrelay.CanonicalStreamEvent{
				Type: modelrelay.EventContentDelta,
				Delta: &modelrelay.ContentDelta{
					Index: choice.Index,
					Block: modelrelay.BlockThinking,
					Text:  choice.Delta.ReasoningContent,
				},
				SourceRaw: source,
			})
		}
		if choice.Delta.Content != "" {
			events = append(events, modelrelay.CanonicalStreamEvent{
				Type: modelrelay.EventContentDelta,
				Delta: &modelrelay.ContentDelta{
					Index: choice.Index,
					Block: modelrelay.BlockText,
					Text:  choice.Delta.Content,
				},
				SourceRaw: source,
			})
		}
		for _, tc := range choice.Delta.ToolCalls {
			events = append(events, modelrelay.CanonicalStreamEvent{
				Type: modelrelay.EventToolCall,
				ToolCall: &modelrelay.ToolCallDelta{
					Index:          tc.Index,
					ID:             tc.ID,
					Name:           tc.Function.Name,
					ArgumentsDelta: tc.Function.Arguments,
				},
				SourceRaw: source,
			})
		}
		if choice.FinishReason != "" {
			events = append(events, modelrelay.CanonicalStreamEvent{
				Type:         modelrelay.EventComplete,
				FinishReason: mapOpenAIFinish(choice.FinishReason),
				SourceRaw:    source,
			})
		}
	}

	if chunk.Usage != nil {
		events = append(events, modelrelay.CanonicalStreamEvent{
			Type: modelrelay.EventUsage,
			Usage: &modelrelay.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			},
			SourceRaw: source,
		})
	}

	return events, nil
}

// StreamEventFromCanonical renders one canonical event as a
// chat.completion.chunk payload. Usage events have no dedicated client
// rendering in this format and ride on a bare chunk.
func (a *OpenAIAdapter) StreamEventFromCanonical(ev *modelrelay.CanonicalStreamEvent) ([]byte, error) {
	chunk := openaiStreamChunk{
		ID:     ev.ID,
		Object: "chat.completion.chunk",
		Model:  ev.Model,
	}
	if chunk.ID == "" {
		chunk.ID = "chatcmpl-" + uuid.NewString()
	}

	switch ev.Type {
	case modelrelay.EventMessageStart:
		chunk.Choices = []openaiStreamChoice{{Delta: openaiStreamDelta{Role: "assistant"}}}
	case modelrelay.EventContentDelta:
		if ev.Delta == nil {
			return nil, nil
		}
		delta := openaiStreamDelta{}
		if ev.Delta.Block == modelrelay.BlockThinking {
			delta.ReasoningContent = ev.Delta.Text
		} else {
			delta.Content = ev.Delta.Text
		}
		chunk.Choices = []openaiStreamChoice{{Index: ev.Delta.Index, Delta: delta}}
	case modelrelay.EventToolCall:
		if ev.ToolCall == nil {
			return nil, nil
		}
		chunk.Choices = []openaiStreamChoice{{Delta: openaiStreamDelta{
			ToolCalls: []openaiStreamToolCall{{
				Index: ev.ToolCall.Index,
				ID:    ev.ToolCall.ID,
				Type:  "function",
				Function: openaiFunctionCall{
					Name:      ev.ToolCall.Name,
					Arguments: ev.ToolCall.ArgumentsDelta,
				},
			}},
		}}}
	case modelrelay.EventUsage:
		if ev.Usage == nil {
			return nil, nil
		}
		chunk.Usage = &openaiUsage{
			PromptTokens:     ev.Usage.PromptTokens,
			CompletionTokens: ev.Usage.CompletionTokens,
			TotalTokens:      ev.Usage.TotalTokens,
		}
	case modelrelay.EventComplete:
		reason := mapFinishToOpenAI(ev.FinishReason)
		chunk.Choices = []openaiStreamChoice{{FinishReason: reason}}
		if ev.Usage != nil {
			chunk.Usage = &openaiUsage{
				PromptTokens:     ev.Usage.PromptTokens,
				CompletionTokens: ev.Usage.CompletionTokens,
				TotalTokens:      ev.Usage.TotalTokens,
			}
		}
	case modelrelay.EventError:
		msg := "upstream stream error"
		if ev.Error != nil {
			msg = ev.Error.Message
		}
		return json.Marshal(map[string]any{
			"error": map[string]any{"message": msg, "type": "upstream_error"},
		})
	default:
		return nil, nil
	}

	return json.Marshal(chunk)
}

// ---------------------------------------------------------------------------
// message conversion
// ---------------------------------------------------------------------------

func openaiMessageToCanonical(msg openaiMessage) (modelrelay.Message, error) {
	switch msg.Role {
	case "system", "developer":
		return modelrelay.Message{
			Role:    modelrelay.RoleSystem,
			Content: contentToBlocks(msg.Content),
		}, nil

	case "user":
		return modelrelay.Message{
			Role:    modelrelay.RoleUser,
			Content: contentToBlocks(msg.Content),
		}, nil

	case "assistant":
		var blocks []modelrelay.ContentBlock
		if msg.ReasoningContent != "" {
			blocks = append(blocks, modelrelay.ContentBlock{
				Type:     modelrelay.BlockThinking,
				Thinking: msg.ReasoningContent,
			})
		}
		blocks = append(blocks, contentToBlocks(msg.Content)...)
		for _, tc := range msg.ToolCalls {
			blocks = append(blocks, modelrelay.ContentBlock{
				Type: modelrelay.BlockToolUse,
				ToolUse: &modelrelay.ToolUseBlock{
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		if fc := msg.FunctionCall; fc != nil {
			blocks = append(blocks, modelrelay.ContentBlock{
				Type: modelrelay.BlockToolUse,
				ToolUse: &modelrelay.ToolUseBlock{
					ID:        "call_" + uuid.NewString(),
					Name:      fc.Name,
					Arguments: fc.Arguments,
				},
			})
		}
		if len(blocks) == 0 {
			blocks = []modelrelay.ContentBlock{modelrelay.TextBlock("")}
		}
		return modelrelay.Message{Role: modelrelay.RoleAssistant, Content: blocks}, nil

	case "tool", "function":
		// Tool results have no canonical role of their own; they ride on a
		// user message as a tool_result block, matching turn-style formats.
		return modelrelay.Message{
			Role: modelrelay.RoleUser,
			Content: []modelrelay.ContentBlock{{
				Type: modelrelay.BlockToolResult,
				ToolResult: &modelrelay.ToolResultBlock{
					ToolUseID: msg.ToolCallID,
					Content:   decodeContentText(msg.Content),
				},
			}},
		}, nil

	default:
		return modelrelay.Message{}, fmt.Errorf("unknown role '%s'", msg.Role)
	}
}

// canonicalMessageToOpenAI converts one canonical message. Tool results split
// into dedicated "tool" role messages, so a single canonical message may
// produce several wire messages.
func canonicalMessageToOpenAI(msg modelrelay.Message) []openaiMessage {
	switch msg.Role {
	case modelrelay.RoleSystem:
		return []openaiMessage{{Role: "system", Content: encodeContentText(msg.Text())}}

	case modelrelay.RoleAssistant:
		out := openaiMessage{Role: "assistant"}
		var text string
		for _, block := range msg.Content {
			switch block.Type {
			case modelrelay.BlockText:
				if text != "" {
					text += "\n\n"
				}
				text += block.Text
			case modelrelay.BlockThinking:
				if out.ReasoningContent != "" {
					out.ReasoningContent += "\n\n"
				}
				out.ReasoningContent += block.Thinking
			case modelrelay.BlockToolUse:
				if block.ToolUse == nil {
					continue
				}
				out.ToolCalls = append(out.ToolCalls, openaiToolCall{
					ID:   block.ToolUse.ID,
					Type: "function",
					Function: openaiFunctionCall{
						Name:      block.ToolUse.Name,
						Arguments: block.ToolUse.Arguments,
					},
				})
			}
		}
		out.Content = encodeContentText(text)
		return []openaiMessage{out}

	default: // user
		var out []openaiMessage
		var text string
		for _, block := range msg.Content {
			switch block.Type {
			case modelrelay.BlockText:
				if text != "" {
					text += "\n\n"
				}
				text += block.Text
			case modelrelay.BlockToolResult:
				if block.ToolResult == nil {
					continue
				}
				out = append(out, openaiMessage{
					Role:       "tool",
					ToolCallID: block.ToolResult.ToolUseID,
					Content:    encodeContentText(block.ToolResult.Content),
				})
			}
		}
		if text != "" || len(out) == 0 {
			out = append(out, openaiMessage{Role: "user", Content: encodeContentText(text)})
		}
		return out
	}
}

// contentToBlocks decodes a string-or-array content field into canonical
// blocks. Parts the canonical schema does not model keep their original
// payload in the Raw escape hatch.
func contentToBlocks(content json.RawMessage) []modelrelay.ContentBlock {
	if len(content) == 0 {
		return []modelrelay.ContentBlock{modelrelay.TextBlock("")}
	}

	var text string
	if err := json.Unmarshal(content, &text); err == nil {
		return []modelrelay.ContentBlock{modelrelay.TextBlock(text)}
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(content, &parts); err != nil {
		return []modelrelay.ContentBlock{modelrelay.TextBlock(string(content))}
	}

	blocks := make([]modelrelay.ContentBlock, 0, len(parts))
	for _, part := range parts {
		var typed struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(part, &typed); err == nil && typed.Type == "text" {
			blocks = append(blocks, modelrelay.TextBlock(typed.Text))
			continue
		}
		blocks = append(blocks, modelrelay.ContentBlock{Type: modelrelay.BlockCitation, Raw: part})
	}
	if len(blocks) == 0 {
		blocks = []modelrelay.ContentBlock{modelrelay.TextBlock("")}
	}
	return blocks
}

func decodeContentText(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(content, &text); err == nil {
		return text
	}
	var out string
	for _, block := range contentToBlocks(content) {
		if block.Type != modelrelay.BlockText {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += block.Text
	}
	return out
}

func encodeContentText(text string) json.RawMessage {
	data, _ := json.Marshal(text)
	return data
}

func decodeStop(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("must be a string or array of strings")
	}
	return many, nil
}

// ---------------------------------------------------------------------------
// tool_choice mapping
// ---------------------------------------------------------------------------

func decodeOpenAIToolChoice(raw json.RawMessage) (*modelrelay.ToolChoice, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var mode string
	if err := json.Unmarshal(raw, &mode); err == nil {
		switch mode {
		case "auto":
			return &modelrelay.ToolChoice{Mode: modelrelay.ToolChoiceAuto}, nil
		case "none":
			return &modelrelay.ToolChoice{Mode: modelrelay.ToolChoiceNone}, nil
		case "required":
			return &modelrelay.ToolChoice{Mode: modelrelay.ToolChoiceRequired}, nil
		default:
			return nil, fmt.Errorf("unknown mode '%s'", mode)
		}
	}

	var explicit struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}
	if err := json.Unmarshal(raw, &explicit); err != nil || explicit.Function.Name == "" {
		return nil, fmt.Errorf("must be a mode string or explicit function reference")
	}
	return &modelrelay.ToolChoice{Name: explicit.Function.Name}, nil
}

// encodeOpenAIToolChoice renders a canonical tool choice. The collapse of
// "required" and "any" to "auto" is intentionally lossy: round-tripping
// through this format is not guaranteed to recover them.
func encodeOpenAIToolChoice(choice *modelrelay.ToolChoice) (json.RawMessage, error) {
	if choice.Name != "" {
		return json.Marshal(map[string]any{
			"type":     "function",
			"function": map[string]any{"name": choice.Name},
		})
	}
	switch choice.Mode {
	case modelrelay.ToolChoiceNone:
		return json.Marshal("none")
	case modelrelay.ToolChoiceAuto, modelrelay.ToolChoiceRequired, modelrelay.ToolChoiceAny:
		return json.Marshal("auto")
	default:
		return json.Marshal("auto")
	}
}

func decodeOpenAIFunctionCall(raw json.RawMessage) (*modelrelay.ToolChoice, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var mode string
	if err := json.Unmarshal(raw, &mode); err == nil {
		switch mode {
		case "auto":
			return &modelrelay.ToolChoice{Mode: modelrelay.ToolChoiceAuto}, nil
		case "none":
			return &modelrelay.ToolChoice{Mode: modelrelay.ToolChoiceNone}, nil
		default:
			return nil, fmt.Errorf("unknown mode '%s'", mode)
		}
	}
	var explicit struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &explicit); err != nil || explicit.Name == "" {
		return nil, fmt.Errorf("must be a mode string or {\"name\": ...}")
	}
	return &modelrelay.ToolChoice{Name: explicit.Name}, nil
}

func encodeOpenAIFunctionCall(choice *modelrelay.ToolChoice) (json.RawMessage, error) {
	if choice.Name != "" {
		return json.Marshal(map[string]any{"name": choice.Name})
	}
	if choice.Mode == modelrelay.ToolChoiceNone {
		return json.Marshal("none")
	}
	return json.Marshal("auto")
}

// ---------------------------------------------------------------------------
// provider_params round-trip
// ---------------------------------------------------------------------------

// extraParams collects top-level fields the canonical shape does not model.
func extraParams(raw []byte, known map[string]bool) map[string]any {
	var all map[string]any
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil
	}
	for key := range all {
		if known[key] {
			delete(all, key)
		}
	}
	if len(all) == 0 {
		return nil
	}
	return all
}

// mergeExtraParams re-applies preserved provider params onto an encoded
// payload without overwriting canonical fields.
func mergeExtraParams(data []byte, params map[string]any) ([]byte, error) {
	if len(params) == 0 {
		return data, nil
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for key, value := range params {
		if _, exists := all[key]; !exists {
			all[key] = value
		}
	}
	return json.Marshal(all)
}

// ---------------------------------------------------------------------------
// wire structures
// ---------------------------------------------------------------------------

type openaiRequest struct {
	Model               string              `json:"model"`
	Messages            []openaiMessage     `json:"messages"`
	MaxTokens           *int                `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int                `json:"max_completion_tokens,omitempty"`
	Temperature         *float64            `json:"temperature,omitempty"`
	TopP                *float64            `json:"top_p,omitempty"`
	Stop                json.RawMessage     `json:"stop,omitempty"` // string or []string
	Stream              bool                `json:"stream,omitempty"`
	Tools               []openaiTool        `json:"tools,omitempty"`
	ToolChoice          json.RawMessage     `json:"tool_choice,omitempty"`
	Functions           []openaiFunctionDef `json:"functions,omitempty"`
	FunctionCall        json.RawMessage     `json:"function_call,omitempty"`
}

type openaiMessage struct {
	Role             string              `json:"role"`
	Content          json.RawMessage     `json:"content,omitempty"` // string or content part array
	ToolCalls        []openaiToolCall    `json:"tool_calls,omitempty"`
	ToolCallID       string              `json:"tool_call_id,omitempty"`
	Name             string              `json:"name,omitempty"`
	FunctionCall     *openaiFunctionCall `json:"function_call,omitempty"`
	ReasoningContent string              `json:"reasoning_content,omitempty"`
}

type openaiTool struct {
	Type     string            `json:"type"`
	Function openaiFunctionDef `json:"function"`
}

type openaiFunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type openaiToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openaiFunctionCall `json:"function"`
}

type openaiFunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type openaiResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object,omitempty"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []openaiResponseChoice `json:"choices"`
	Usage   openaiUsage            `json:"usage"`
}

type openaiResponseChoice struct {
	Index        int                   `json:"index"`
	Message      openaiResponseMessage `json:"message"`
	FinishReason string                `json:"finish_reason,omitempty"`
}

type openaiResponseMessage struct {
	Role             string              `json:"role"`
	Content          json.RawMessage     `json:"content"`
	ToolCalls        []openaiToolCall    `json:"tool_calls,omitempty"`
	FunctionCall     *openaiFunctionCall `json:"function_call,omitempty"`
	ReasoningContent string              `json:"reasoning_content,omitempty"`
}

type openaiUsage struct {
	PromptTokens            int                      `json:"prompt_tokens"`
	CompletionTokens        int                      `json:"completion_tokens"`
	TotalTokens             int                      `json:"total_tokens"`
	PromptTokensDetails     *openaiPromptDetails     `json:"prompt_tokens_details,omitempty"`
	CompletionTokensDetails *openaiCompletionDetails `json:"completion_tokens_details,omitempty"`
}

type openaiPromptDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

type openaiCompletionDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

type openaiStreamChunk struct {
	ID      string               `json:"id"`
	Object  string               `json:"object,omitempty"`
	Created int64                `json:"created,omitempty"`
	Model   string               `json:"model,omitempty"`
	Choices []openaiStreamChoice `json:"choices"`
	Usage   *openaiUsage         `json:"usage,omitempty"`
}

type openaiStreamChoice struct {
	Index        int               `json:"index"`
	Delta        openaiStreamDelta `json:"delta"`
	FinishReason string            `json:"finish_reason,omitempty"`
}

type openaiStreamDelta struct {
	Role             string                 `json:"role,omitempty"`
	Content          string                 `json:"content,omitempty"`
	ReasoningContent string                 `json:"reasoning_content,omitempty"`
	ToolCalls        []openaiStreamToolCall `json:"tool_calls,omitempty"`
}

type openaiStreamToolCall struct {
	Index    int                `json:"index"`
	ID       string             `json:"id,omitempty"`
	Type     string             `json:"type,omitempty"`
	Function openaiFunctionCall `json:"function"`
}
