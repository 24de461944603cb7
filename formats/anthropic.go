package formats

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelrelay/modelrelay"
)

// AnthropicAdapter converts between the Anthropic messages wire format and
// the canonical schema, in both directions, including streaming events.
type AnthropicAdapter struct{}

// NewAnthropic creates the Anthropic messages adapter.
func NewAnthropic() *AnthropicAdapter {
	return &AnthropicAdapter{}
}

func (a *AnthropicAdapter) FormatType() string {
	return FormatAnthropic
}

// defaultMaxTokens is used when a canonical request does not set one; the
// messages API rejects requests without max_tokens.
const defaultMaxTokens = 4096

var anthropicRequestKeys = map[string]bool{
	"model": true, "system": true, "messages": true, "max_tokens": true,
	"temperature": true, "top_p": true, "stop_sequences": true,
	"stream": true, "tools": true, "tool_choice": true,
}

// RequestToCanonical translates a client messages-API request. The
// out-of-band system field is folded into the canonical message sequence as
// a leading system-role entry.
func (a *AnthropicAdapter) RequestToCanonical(raw []byte) (*modelrelay.CanonicalRequest, error) {
	var in anthropicRequest
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, modelrelay.NewValidationError("anthropic request: " + err.Error())
	}

	var messages []modelrelay.Message
	if system := decodeAnthropicSystem(in.System); system != "" {
		messages = append(messages, modelrelay.SystemMessage(system))
	}
	for i, msg := range in.Messages {
		blocks, err := anthropicContentToBlocks(msg.Content)
		if err != nil {
			return nil, modelrelay.NewValidationError(fmt.Sprintf("messages[%d].content: %v", i, err))
		}
		role := modelrelay.RoleUser
		if msg.Role == "assistant" {
			role = modelrelay.RoleAssistant
		}
		messages = append(messages, modelrelay.Message{Role: role, Content: blocks})
	}

	req := modelrelay.CanonicalRequest{
		Model:    in.Model,
		Messages: messages,
		Stream:   in.Stream,
	}

	if in.MaxTokens != nil || in.Temperature != nil || in.TopP != nil || len(in.StopSequences) > 0 {
		req.Generation = &modelrelay.GenerationParams{
			MaxTokens:   in.MaxTokens,
			Temperature: in.Temperature,
			TopP:        in.TopP,
			Stop:        in.StopSequences,
		}
	}

	for _, tool := range in.Tools {
		req.Tools = append(req.Tools, modelrelay.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.InputSchema,
		})
	}
	if in.ToolChoice != nil {
		choice, err := decodeAnthropicToolChoice(in.ToolChoice)
		if err != nil {
			return nil, modelrelay.NewValidationError("tool_choice: " + err.Error())
		}
		req.ToolChoice = choice
	}

	req.ProviderParams = extraParams(raw, anthropicRequestKeys)

	return modelrelay.NewCanonicalRequest(req), nil
}

// RequestFromCanonical renders a canonical request as a messages-API payload.
// Canonical system messages are lifted back out into the dedicated system
// field.
func (a *AnthropicAdapter) RequestFromCanonical(req *modelrelay.CanonicalRequest) ([]byte, error) {
	out := anthropicRequest{
		Model:     req.Model,
		Stream:    req.Stream,
		MaxTokens: modelrelay.IntPtr(defaultMaxTokens),
	}

	var system string
	for _, msg := range req.Messages {
		if msg.Role == modelrelay.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Text()
			continue
		}
		content, err := json.Marshal(blocksToAnthropicContent(msg.Content))
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, anthropicMessage{
			Role:    string(msg.Role),
			Content: content,
		})
	}
	if system != "" {
		out.System = encodeContentText(system)
	}

	if g := req.Generation; g != nil {
		if g.MaxTokens != nil {
			out.MaxTokens = g.MaxTokens
		}
		out.Temperature = g.Temperature
		out.TopP = g.TopP
		out.StopSequences = g.Stop
	}

	tools := req.Tools
	if len(tools) == 0 && len(req.Functions) > 0 {
		tools = req.Functions
	}
	for _, tool := range tools {
		out.Tools = append(out.Tools, anthropicTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Parameters,
		})
	}
	choice := req.ToolChoice
	if choice == nil {
		choice = req.FunctionCall
	}
	if choice != nil {
		out.ToolChoice = encodeAnthropicToolChoice(choice)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return mergeExtraParams(data, req.ProviderParams)
}

// anthropicStopToCanonical is the fixed stop-reason lookup table. Unknown
// reasons default to the generic terminal reason.
var anthropicStopToCanonical = map[string]modelrelay.FinishReason{
	"end_turn":      modelrelay.FinishStop,
	"stop_sequence": modelrelay.FinishStop,
	"max_tokens":    modelrelay.FinishLength,
	"tool_use":      modelrelay.FinishToolCalls,
	"refusal":       modelrelay.FinishContentFilter,
}

var canonicalFinishToAnthropic = map[modelrelay.FinishReason]string{
	modelrelay.FinishStop:          "end_turn",
	modelrelay.FinishLength:        "max_tokens",
	modelrelay.FinishToolCalls:     "tool_use",
	modelrelay.FinishContentFilter: "refusal",
	modelrelay.FinishError:         "end_turn",
}

func mapAnthropicStop(reason string) modelrelay.FinishReason {
	if mapped, ok := anthropicStopToCanonical[reason]; ok {
		return mapped
	}
	return modelrelay.FinishStop
}

func mapFinishToAnthropic(reason modelrelay.FinishReason) string {
	if mapped, ok := canonicalFinishToAnthropic[reason]; ok {
		return mapped
	}
	return "end_turn"
}

// ResponseToCanonical translates a provider messages-API response.
func (a *AnthropicAdapter) ResponseToCanonical(raw []byte) (*modelrelay.CanonicalResponse, error) {
	var in anthropicResponse
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, modelrelay.NewValidationError("anthropic response: " + err.Error())
	}

	blocks, err := anthropicContentToBlocks(in.Content)
	if err != nil {
		return nil, modelrelay.NewValidationError("anthropic response content: " + err.Error())
	}
	if len(blocks) == 0 {
		blocks = []modelrelay.ContentBlock{modelrelay.TextBlock("")}
	}

	finish := mapAnthropicStop(in.StopReason)
	usage := modelrelay.Usage{
		InputTokens:         in.Usage.InputTokens,
		OutputTokens:        in.Usage.OutputTokens,
		CacheReadTokens:     in.Usage.CacheReadInputTokens,
		CacheCreationTokens: in.Usage.CacheCreationInputTokens,
	}

	return modelrelay.NewCanonicalResponse(modelrelay.CanonicalResponse{
		ID:    in.ID,
		Model: in.Model,
		Choices: []modelrelay.Choice{{
			Message:      modelrelay.Message{Role: modelrelay.RoleAssistant, Content: blocks},
			FinishReason: finish,
		}},
		Usage:        usage.Normalize(),
		FinishReason: finish,
		ProviderRaw:  json.RawMessage(raw),
	}), nil
}

// ResponseFromCanonical renders a canonical response as a messages-API
// payload for the client. Only the first choice is rendered; the messages
// format has no multi-choice concept.
func (a *AnthropicAdapter) ResponseFromCanonical(resp *modelrelay.CanonicalResponse) ([]byte, error) {
	out := anthropicResponse{
		ID:      resp.ID,
		Type:    "message",
		Role:    "assistant",
		Model:   resp.Model,
		Content: json.RawMessage("[]"),
		Usage: anthropicUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}
	if out.ID == "" {
		out.ID = "msg_" + uuid.NewString()
	}

	finish := resp.FinishReason
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		if choice.FinishReason != "" {
			finish = choice.FinishReason
		}
		content, err := json.Marshal(blocksToAnthropicContent(choice.Message.Content))
		if err != nil {
			return nil, err
		}
		out.Content = content
	}
	out.StopReason = mapFinishToAnthropic(finish)

	return json.Marshal(out)
}

// StreamEventToCanonical translates one messages-API stream event. The
// terminal canonical event is emitted on message_delta, which carries the
// stop reason; the trailing message_stop is skipped so the canonical
// sequence ends with exactly one complete event.
func (a *AnthropicAdapter) StreamEventToCanonical(raw []byte) ([]modelrelay.CanonicalStreamEvent, error) {
	var ev anthropicStreamEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, modelrelay.NewValidationError("anthropic stream event: " + err.Error())
	}

	source := json.RawMessage(raw)

	switch ev.Type {
	case "message_start":
		events := []modelrelay.CanonicalStreamEvent{{
			Type:      modelrelay.EventMessageStart,
			ID:        ev.Message.ID,
			Model:     ev.Message.Model,
			SourceRaw: source,
		}}
		if ev.Message.Usage.InputTokens > 0 {
			usage := modelrelay.Usage{InputTokens: ev.Message.Usage.InputTokens}.Normalize()
			events = append(events, modelrelay.CanonicalStreamEvent{
				Type:      modelrelay.EventUsage,
				Usage:     &usage,
				SourceRaw: source,
			})
		}
		return events, nil

	case "content_block_start":
		if ev.ContentBlock == nil {
			return nil, nil
		}
		switch ev.ContentBlock.Type {
		case "tool_use":
			return []modelrelay.CanonicalStreamEvent{{
				Type: modelrelay.EventToolCall,
				ToolCall: &modelrelay.ToolCallDelta{
					Index: ev.Index,
					ID:    ev.ContentBlock.ID,
					Name:  ev.ContentBlock.Name,
				},
				SourceRaw: source,
			}}, nil
		default:
			return nil, nil
		}

	case "content_block_delta":
		switch ev.Delta.Type {
		case "text_delta":
			return []modelrelay.CanonicalStreamEvent{{
				Type: modelrelay.EventContentDelta,
				Delta: &modelrelay.ContentDelta{
					Index: ev.Index,
					Block: modelrelay.BlockText,
					Text:  ev.Delta.Text,
				},
				SourceRaw: source,
			}}, nil
		case "thinking_delta":
			return []modelrelay.CanonicalStreamEvent{{
				Type: modelrelay.EventContentDelta,
				Delta: &modelrelay.ContentDelta{
					Index: ev.Index,
					Block: modelrelay.BlockThinking,
					Text:  ev.Delta.Thinking,
				},
				SourceRaw: source,
			}}, nil
		case "input_json_delta":
			return []modelrelay.CanonicalStreamEvent{{
				Type: modelrelay.EventToolCall,
				ToolCall: &modelrelay.ToolCallDelta{
					Index:          ev.Index,
					ArgumentsDelta: ev.Delta.PartialJSON,
				},
				SourceRaw: source,
			}}, nil
		default:
			return nil, nil
		}

	case "message_delta":
		var events []modelrelay.CanonicalStreamEvent
		if ev.Usage != nil {
			usage := modelrelay.Usage{OutputTokens: ev.Usage.OutputTokens}.Normalize()
			events = append(events, modelrelay.CanonicalStreamEvent{
				Type:      modelrelay.EventUsage,
				Usage:     &usage,
				SourceRaw: source,
			})
		}
		events = append(events, modelrelay.CanonicalStreamEvent{
			Type:         modelrelay.EventComplete,
			FinishReason: mapAnthropicStop(ev.Delta.StopReason),
			SourceRaw:    source,
		})
		return events, nil

	case "error":
		msg := "upstream stream error"
		if ev.Error != nil {
			msg = ev.Error.Message
		}
		return []modelrelay.CanonicalStreamEvent{{
			Type:      modelrelay.EventError,
			Error:     &modelrelay.StreamError{Message: msg},
			SourceRaw: source,
		}}, nil

	default:
		// ping, content_block_stop, message_stop carry nothing canonical.
		return nil, nil
	}
}

// StreamEventFromCanonical renders one canonical event as a messages-API
// stream payload. The complete event renders as message_delta with the stop
// reason; the transport layer closes the SSE stream after it.
func (a *AnthropicAdapter) StreamEventFromCanonical(ev *modelrelay.CanonicalStreamEvent) ([]byte, error) {
	switch ev.Type {
	case modelrelay.EventMessageStart:
		id := ev.ID
		if id == "" {
			id = "msg_" + uuid.NewString()
		}
		return json.Marshal(map[string]any{
			"type": "message_start",
			"message": map[string]any{
				"id":      id,
				"type":    "message",
				"role":    "assistant",
				"model":   ev.Model,
				"content": []any{},
			},
		})

	case modelrelay.EventContentDelta:
		if ev.Delta == nil {
			return nil, nil
		}
		delta := map[string]any{"type": "text_delta", "text": ev.Delta.Text}
		if ev.Delta.Block == modelrelay.BlockThinking {
			delta = map[string]any{"type": "thinking_delta", "thinking": ev.Delta.Text}
		}
		return json.Marshal(map[string]any{
			"type":  "content_block_delta",
			"index": ev.Delta.Index,
			"delta": delta,
		})

	case modelrelay.EventToolCall:
		if ev.ToolCall == nil {
			return nil, nil
		}
		if ev.ToolCall.ID != "" || ev.ToolCall.Name != "" {
			return json.Marshal(map[string]any{
				"type":  "content_block_start",
				"index": ev.ToolCall.Index,
				"content_block": map[string]any{
					"type": "tool_use",
					"id":   ev.ToolCall.ID,
					"name": ev.ToolCall.Name,
				},
			})
		}
		return json.Marshal(map[string]any{
			"type":  "content_block_delta",
			"index": ev.ToolCall.Index,
			"delta": map[string]any{
				"type":         "input_json_delta",
				"partial_json": ev.ToolCall.ArgumentsDelta,
			},
		})

	case modelrelay.EventUsage:
		if ev.Usage == nil {
			return nil, nil
		}
		return json.Marshal(map[string]any{
			"type":  "message_delta",
			"delta": map[string]any{},
			"usage": map[string]any{"output_tokens": ev.Usage.OutputTokens},
		})

	case modelrelay.EventComplete:
		payload := map[string]any{
			"type":  "message_delta",
			"delta": map[string]any{"stop_reason": mapFinishToAnthropic(ev.FinishReason)},
		}
		if ev.Usage != nil {
			payload["usage"] = map[string]any{"output_tokens": ev.Usage.OutputTokens}
		}
		return json.Marshal(payload)

	case modelrelay.EventError:
		msg := "upstream stream error"
		if ev.Error != nil {
			msg = ev.Error.Message
		}
		return json.Marshal(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "api_error", "message": msg},
		})

	default:
		return nil, nil
	}
}

// ---------------------------------------------------------------------------
// content conversion
// ---------------------------------------------------------------------------

func decodeAnthropicSystem(system json.RawMessage) string {
	if len(system) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(system, &text); err == nil {
		return text
	}
	var blocks []anthropicContent
	if err := json.Unmarshal(system, &blocks); err != nil {
		return ""
	}
	var out string
	for _, block := range blocks {
		if block.Type != "text" {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += block.Text
	}
	return out
}

func anthropicContentToBlocks(content json.RawMessage) ([]modelrelay.ContentBlock, error) {
	if len(content) == 0 {
		return []modelrelay.ContentBlock{modelrelay.TextBlock("")}, nil
	}

	var text string
	if err := json.Unmarshal(content, &text); err == nil {
		return []modelrelay.ContentBlock{modelrelay.TextBlock(text)}, nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(content, &parts); err != nil {
		return nil, fmt.Errorf("must be a string or array of content blocks")
	}

	blocks := make([]modelrelay.ContentBlock, 0, len(parts))
	for _, part := range parts {
		var typed anthropicContent
		if err := json.Unmarshal(part, &typed); err != nil {
			return nil, err
		}
		switch typed.Type {
		case "text":
			blocks = append(blocks, modelrelay.TextBlock(typed.Text))
		case "thinking":
			blocks = append(blocks, modelrelay.ContentBlock{
				Type:      modelrelay.BlockThinking,
				Thinking:  typed.Thinking,
				Signature: typed.Signature,
			})
		case "tool_use":
			args, err := json.Marshal(typed.Input)
			if err != nil {
				args = []byte("{}")
			}
			blocks = append(blocks, modelrelay.ContentBlock{
				Type: modelrelay.BlockToolUse,
				ToolUse: &modelrelay.ToolUseBlock{
					ID:        typed.ID,
					Name:      typed.Name,
					Arguments: string(args),
				},
			})
		case "tool_result":
			blocks = append(blocks, modelrelay.ContentBlock{
				Type: modelrelay.BlockToolResult,
				ToolResult: &modelrelay.ToolResultBlock{
					ToolUseID: typed.ToolUseID,
					Content:   decodeContentText(typed.Content),
					IsError:   typed.IsError,
				},
			})
		case "server_tool_use", "web_search_tool_result":
			blocks = append(blocks, modelrelay.ContentBlock{Type: modelrelay.BlockWebSearch, Raw: part})
		case "code_execution_tool_result":
			blocks = append(blocks, modelrelay.ContentBlock{Type: modelrelay.BlockCodeExecution, Raw: part})
		default:
			blocks = append(blocks, modelrelay.ContentBlock{Type: modelrelay.BlockCitation, Raw: part})
		}
	}
	return blocks, nil
}

func blocksToAnthropicContent(blocks []modelrelay.ContentBlock) []anthropicContent {
	out := make([]anthropicContent, 0, len(blocks))
	for _, block := range blocks {
		switch block.Type {
		case modelrelay.BlockText:
			out = append(out, anthropicContent{Type: "text", Text: block.Text})
		case modelrelay.BlockThinking:
			out = append(out, anthropicContent{
				Type:      "thinking",
				Thinking:  block.Thinking,
				Signature: block.Signature,
			})
		case modelrelay.BlockToolUse:
			if block.ToolUse == nil {
				continue
			}
			input, err := modelrelay.ParseToolArguments(block.ToolUse.Arguments)
			if err != nil {
				input = map[string]any{}
			}
			out = append(out, anthropicContent{
				Type:  "tool_use",
				ID:    block.ToolUse.ID,
				Name:  block.ToolUse.Name,
				Input: input,
			})
		case modelrelay.BlockToolResult:
			if block.ToolResult == nil {
				continue
			}
			out = append(out, anthropicContent{
				Type:      "tool_result",
				ToolUseID: block.ToolResult.ToolUseID,
				Content:   encodeContentText(block.ToolResult.Content),
				IsError:   block.ToolResult.IsError,
			})
		}
	}
	if len(out) == 0 {
		out = append(out, anthropicContent{Type: "text", Text: ""})
	}
	return out
}

// ---------------------------------------------------------------------------
// tool_choice mapping
// ---------------------------------------------------------------------------

func decodeAnthropicToolChoice(raw json.RawMessage) (*modelrelay.ToolChoice, error) {
	var typed struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &typed); err != nil {
		return nil, fmt.Errorf("must be an object with a type field")
	}
	switch typed.Type {
	case "auto":
		return &modelrelay.ToolChoice{Mode: modelrelay.ToolChoiceAuto}, nil
	case "any":
		return &modelrelay.ToolChoice{Mode: modelrelay.ToolChoiceAny}, nil
	case "none":
		return &modelrelay.ToolChoice{Mode: modelrelay.ToolChoiceNone}, nil
	case "tool":
		if typed.Name == "" {
			return nil, fmt.Errorf("tool choice requires a name")
		}
		return &modelrelay.ToolChoice{Name: typed.Name}, nil
	default:
		return nil, fmt.Errorf("unknown type '%s'", typed.Type)
	}
}

// encodeAnthropicToolChoice renders a canonical tool choice. "required" has
// no native equivalent here and collapses to "any", the closest concept;
// the loss is intentional and round-trips are not guaranteed to recover it.
func encodeAnthropicToolChoice(choice *modelrelay.ToolChoice) json.RawMessage {
	var payload map[string]any
	switch {
	case choice.Name != "":
		payload = map[string]any{"type": "tool", "name": choice.Name}
	case choice.Mode == modelrelay.ToolChoiceNone:
		payload = map[string]any{"type": "none"}
	case choice.Mode == modelrelay.ToolChoiceAny, choice.Mode == modelrelay.ToolChoiceRequired:
		payload = map[string]any{"type": "any"}
	default:
		payload = map[string]any{"type": "auto"}
	}
	data, _ := json.Marshal(payload)
	return data
}

// ---------------------------------------------------------------------------
// wire structures
// ---------------------------------------------------------------------------

type anthropicRequest struct {
	Model         string             `json:"model"`
	System        json.RawMessage    `json:"system,omitempty"` // string or content block array
	Messages      []anthropicMessage `json:"messages"`
	MaxTokens     *int               `json:"max_tokens,omitempty"`
	Temperature   *float64           `json:"temperature,omitempty"`
	TopP          *float64           `json:"top_p,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
	Stream        bool               `json:"stream,omitempty"`
	Tools         []anthropicTool    `json:"tools,omitempty"`
	ToolChoice    json.RawMessage    `json:"tool_choice,omitempty"`
}

type anthropicMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"` // string or content block array
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	Signature string          `json:"signature,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     map[string]any  `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type anthropicResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"type,omitempty"`
	Role       string          `json:"role,omitempty"`
	Model      string          `json:"model"`
	Content    json.RawMessage `json:"content"`
	StopReason string          `json:"stop_reason,omitempty"`
	Usage      anthropicUsage  `json:"usage"`
}

type anthropicUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

type anthropicStreamEvent struct {
	Type    string `json:"type"`
	Index   int    `json:"index,omitempty"`
	Message struct {
		ID    string         `json:"id"`
		Model string         `json:"model"`
		Usage anthropicUsage `json:"usage"`
	} `json:"message,omitempty"`
	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"content_block,omitempty"`
	Delta struct {
		Type        string `json:"type,omitempty"`
		Text        string `json:"text,omitempty"`
		Thinking    string `json:"thinking,omitempty"`
		PartialJSON string `json:"partial_json,omitempty"`
		StopReason  string `json:"stop_reason,omitempty"`
	} `json:"delta,omitempty"`
	Usage *anthropicUsage `json:"usage,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
