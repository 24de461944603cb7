package formats

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelrelay/modelrelay"
)

// ResponsesAdapter converts between the OpenAI Responses API wire format and
// the canonical schema. The Responses format keeps system text in a separate
// instructions field and represents assistant output as typed output items
// rather than choices.
type ResponsesAdapter struct{}

// NewResponses creates the Responses API adapter.
func NewResponses() *ResponsesAdapter {
	return &ResponsesAdapter{}
}

func (a *ResponsesAdapter) FormatType() string {
	return FormatResponses
}

var responsesRequestKeys = map[string]bool{
	"model": true, "input": true, "instructions": true,
	"max_output_tokens": true, "temperature": true, "top_p": true,
	"stream": true, "tools": true, "tool_choice": true,
}

// RequestToCanonical translates a client Responses API request. Instructions
// become a leading system message; a plain string input becomes a single user
// message.
func (a *ResponsesAdapter) RequestToCanonical(raw []byte) (*modelrelay.CanonicalRequest, error) {
	var in responsesRequest
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, modelrelay.NewValidationError("responses request: " + err.Error())
	}

	var messages []modelrelay.Message
	if strings.TrimSpace(in.Instructions) != "" {
		messages = append(messages, modelrelay.SystemMessage(in.Instructions))
	}

	inputMessages, err := decodeResponsesInput(in.Input)
	if err != nil {
		return nil, modelrelay.NewValidationError("input: " + err.Error())
	}
	messages = append(messages, inputMessages...)

	req := modelrelay.CanonicalRequest{
		Model:    in.Model,
		Messages: messages,
		Stream:   in.Stream,
	}

	if in.MaxOutputTokens != nil || in.Temperature != nil || in.TopP != nil {
		req.Generation = &modelrelay.GenerationParams{
			MaxTokens:   in.MaxOutputTokens,
			Temperature: in.Temperature,
			TopP:        in.TopP,
		}
	}

	for _, tool := range in.Tools {
		if tool.Type != "" && tool.Type != "function" {
			continue
		}
		req.Tools = append(req.Tools, modelrelay.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		})
	}
	if len(in.ToolChoice) > 0 {
		choice, err := decodeResponsesToolChoice(in.ToolChoice)
		if err != nil {
			return nil, modelrelay.NewValidationError("tool_choice: " + err.Error())
		}
		req.ToolChoice = choice
	}

	req.ProviderParams = extraParams(raw, responsesRequestKeys)

	return modelrelay.NewCanonicalRequest(req), nil
}

// RequestFromCanonical renders a canonical request as a Responses API
// payload. System messages are lifted into instructions; stop sequences have
// no Responses equivalent and are dropped.
func (a *ResponsesAdapter) RequestFromCanonical(req *modelrelay.CanonicalRequest) ([]byte, error) {
	out := responsesRequest{
		Model:  req.Model,
		Stream: req.Stream,
	}

	var instructions []string
	var items []responsesInputItem
	for _, msg := range req.Messages {
		if msg.Role == modelrelay.RoleSystem {
			if text := msg.Text(); text != "" {
				instructions = append(instructions, text)
			}
			continue
		}
		items = append(items, canonicalMessageToResponsesItems(msg)...)
	}
	out.Instructions = strings.Join(instructions, "\n")

	input, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	out.Input = input

	if g := req.Generation; g != nil {
		out.MaxOutputTokens = g.MaxTokens
		out.Temperature = g.Temperature
		out.TopP = g.TopP
	}

	tools := req.Tools
	if len(tools) == 0 && len(req.Functions) > 0 {
		tools = req.Functions
	}
	for _, tool := range tools {
		out.Tools = append(out.Tools, responsesTool{
			Type:        "function",
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		})
	}
	choice := req.ToolChoice
	if choice == nil {
		choice = req.FunctionCall
	}
	if choice != nil {
		out.ToolChoice = encodeResponsesToolChoice(choice)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return mergeExtraParams(data, req.ProviderParams)
}

// Response status maps onto the canonical finish reasons: a completed
// response stopped naturally, an incomplete one hit the output token limit.
func mapResponsesStatus(status string, incompleteReason string) modelrelay.FinishReason {
	switch status {
	case "completed":
		return modelrelay.FinishStop
	case "incomplete":
		if incompleteReason == "content_filter" {
			return modelrelay.FinishContentFilter
		}
		return modelrelay.FinishLength
	case "failed", "cancelled":
		return modelrelay.FinishError
	default:
		return modelrelay.FinishStop
	}
}

// ResponseToCanonical translates a provider Responses API response. Output
// items map to content blocks: message text, function_call tool use, and
// reasoning summaries.
func (a *ResponsesAdapter) ResponseToCanonical(raw []byte) (*modelrelay.CanonicalResponse, error) {
	var in responsesResponse
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, modelrelay.NewValidationError("responses response: " + err.Error())
	}

	if in.Error != nil {
		return nil, modelrelay.NewProviderError("", in.Error.Message)
	}

	blocks := responsesOutputToBlocks(in.Output)
	if len(blocks) == 0 {
		blocks = []modelrelay.ContentBlock{modelrelay.TextBlock(in.OutputText)}
	}

	incompleteReason := ""
	if in.IncompleteDetails != nil {
		incompleteReason = in.IncompleteDetails.Reason
	}
	finish := mapResponsesStatus(in.Status, incompleteReason)
	for _, block := range blocks {
		if block.Type == modelrelay.BlockToolUse && finish == modelrelay.FinishStop {
			finish = modelrelay.FinishToolCalls
		}
	}

	usage := modelrelay.Usage{
		InputTokens:  in.Usage.InputTokens,
		OutputTokens: in.Usage.OutputTokens,
	}
	if in.Usage.OutputTokensDetails != nil {
		usage.ReasoningTokens = in.Usage.OutputTokensDetails.ReasoningTokens
	}

	return modelrelay.NewCanonicalResponse(modelrelay.CanonicalResponse{
		ID:      in.ID,
		Model:   in.Model,
		Created: in.CreatedAt,
		Choices: []modelrelay.Choice{{
			Message:      modelrelay.Message{Role: modelrelay.RoleAssistant, Content: blocks},
			FinishReason: finish,
		}},
		Usage:        usage.Normalize(),
		FinishReason: finish,
		ProviderRaw:  json.RawMessage(raw),
	}), nil
}

// ResponseFromCanonical renders a canonical response as a Responses API
// payload for the client. Only the first choice is rendered.
func (a *ResponsesAdapter) ResponseFromCanonical(resp *modelrelay.CanonicalResponse) ([]byte, error) {
	out := responsesResponse{
		ID:        resp.ID,
		Object:    "response",
		CreatedAt: resp.Created,
		Model:     resp.Model,
		Usage: responsesUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}
	if out.ID == "" {
		out.ID = "resp_" + uuid.NewString()
	}
	if out.CreatedAt == 0 {
		out.CreatedAt = time.Now().Unix()
	}

	finish := resp.FinishReason
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		if choice.FinishReason != "" {
			finish = choice.FinishReason
		}
		out.Output, out.OutputText = blocksToResponsesOutput(choice.Message.Content)
	}

	switch finish {
	case modelrelay.FinishLength, modelrelay.FinishContentFilter:
		out.Status = "incomplete"
		reason := "max_output_tokens"
		if finish == modelrelay.FinishContentFilter {
			reason = "content_filter"
		}
		out.IncompleteDetails = &responsesIncomplete{Reason: reason}
	case modelrelay.FinishError:
		out.Status = "failed"
	default:
		out.Status = "completed"
	}

	return json.Marshal(out)
}

// StreamEventToCanonical translates one Responses API stream event. The
// event name rides inside the payload's type field, so the SSE event line is
// not needed. Lifecycle events with no canonical meaning are skipped.
func (a *ResponsesAdapter) StreamEventToCanonical(raw []byte) ([]modelrelay.CanonicalStreamEvent, error) {
	var ev responsesStreamEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, modelrelay.NewValidationError("responses stream event: " + err.Error())
	}

	source := json.RawMessage(raw)

	switch ev.Type {
	case "response.created":
		return []modelrelay.CanonicalStreamEvent{{
			Type:      modelrelay.EventMessageStart,
			ID:        ev.Response.ID,
			Model:     ev.Response.Model,
			SourceRaw: source,
		}}, nil

	case "response.output_text.delta", "response.refusal.delta":
		return []modelrelay.CanonicalStreamEvent{{
			Type: modelrelay.EventContentDelta,
			Delta: &modelrelay.ContentDelta{
				Index: ev.OutputIndex,
				Block: modelrelay.BlockText,
				Text:  ev.Delta,
			},
			SourceRaw: source,
		}}, nil

	case "response.reasoning_text.delta", "response.reasoning_summary_text.delta":
		return []modelrelay.CanonicalStreamEvent{{
			Type: modelrelay.EventContentDelta,
			Delta: &modelrelay.ContentDelta{
				Index: ev.OutputIndex,
				Block: modelrelay.BlockThinking,
				Text:  ev.Delta,
			},
			SourceRaw: source,
		}}, nil

	case "response.output_item.added":
		if ev.Item == nil || ev.Item.Type != "function_call" {
			return nil, nil
		}
		id := ev.Item.CallID
		if id == "" {
			id = ev.Item.ID
		}
		return []modelrelay.CanonicalStreamEvent{{
			Type: modelrelay.EventToolCall,
			ToolCall: &modelrelay.ToolCallDelta{
				Index: ev.OutputIndex,
				ID:    id,
				Name:  ev.Item.Name,
			},
			SourceRaw: source,
		}}, nil

	case "response.function_call_arguments.delta":
		return []modelrelay.CanonicalStreamEvent{{
			Type: modelrelay.EventToolCall,
			ToolCall: &modelrelay.ToolCallDelta{
				Index:          ev.OutputIndex,
				ArgumentsDelta: ev.Delta,
			},
			SourceRaw: source,
		}}, nil

	case "response.completed", "response.incomplete":
		var events []modelrelay.CanonicalStreamEvent
		if ev.Response.Usage != nil {
			usage := modelrelay.Usage{
				InputTokens:  ev.Response.Usage.InputTokens,
				OutputTokens: ev.Response.Usage.OutputTokens,
			}.Normalize()
			events = append(events, modelrelay.CanonicalStreamEvent{
				Type:      modelrelay.EventUsage,
				Usage:     &usage,
				SourceRaw: source,
			})
		}
		finish := modelrelay.FinishStop
		if ev.Type == "response.incomplete" {
			finish = modelrelay.FinishLength
		}
		events = append(events, modelrelay.CanonicalStreamEvent{
			Type:         modelrelay.EventComplete,
			FinishReason: finish,
			SourceRaw:    source,
		})
		return events, nil

	case "response.failed":
		msg := "response failed"
		if ev.Response.Error != nil {
			msg = ev.Response.Error.Message
		}
		return []modelrelay.CanonicalStreamEvent{{
			Type:      modelrelay.EventError,
			Error:     &modelrelay.StreamError{Message: msg},
			SourceRaw: source,
		}}, nil

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
		// in_progress, output_item.done, content_part.*, *.done and the
		// various built-in tool lifecycle events carry nothing canonical.
		return nil, nil
	}
}

// StreamEventFromCanonical renders one canonical event as a Responses API
// stream payload. Standalone usage events are folded into the terminal
// response.completed payload instead, so they render to nothing here.
func (a *ResponsesAdapter) StreamEventFromCanonical(ev *modelrelay.CanonicalStreamEvent) ([]byte, error) {
	switch ev.Type {
	case modelrelay.EventMessageStart:
		id := ev.ID
		if id == "" {
			id = "resp_" + uuid.NewString()
		}
		return json.Marshal(map[string]any{
			"type": "response.created",
			"response": map[string]any{
				"id":     id,
				"object": "response",
				"model":  ev.Model,
				"status": "in_progress",
			},
		})

	case modelrelay.EventContentDelta:
		if ev.Delta == nil {
			return nil, nil
		}
		eventType := "response.output_text.delta"
		if ev.Delta.Block == modelrelay.BlockThinking {
			eventType = "response.reasoning_summary_text.delta"
		}
		return json.Marshal(map[string]any{
			"type":         eventType,
			"output_index": ev.Delta.Index,
			"delta":        ev.Delta.Text,
		})

	case modelrelay.EventToolCall:
		if ev.ToolCall == nil {
			return nil, nil
		}
		if ev.ToolCall.ID != "" || ev.ToolCall.Name != "" {
			return json.Marshal(map[string]any{
				"type":         "response.output_item.added",
				"output_index": ev.ToolCall.Index,
				"item": map[string]any{
					"type":    "function_call",
					"call_id": ev.ToolCall.ID,
					"name":    ev.ToolCall.Name,
				},
			})
		}
		return json.Marshal(map[string]any{
			"type":         "response.function_call_arguments.delta",
			"output_index": ev.ToolCall.Index,
			"delta":        ev.ToolCall.ArgumentsDelta,
		})

	case modelrelay.EventUsage:
		return nil, nil

	case modelrelay.EventComplete:
		eventType := "response.completed"
		status := "completed"
		if ev.FinishReason == modelrelay.FinishLength {
			eventType = "response.incomplete"
			status = "incomplete"
		}
		response := map[string]any{"status": status}
		if ev.Usage != nil {
			response["usage"] = map[string]any{
				"input_tokens":  ev.Usage.InputTokens,
				"output_tokens": ev.Usage.OutputTokens,
				"total_tokens":  ev.Usage.TotalTokens,
			}
		}
		return json.Marshal(map[string]any{
			"type":     eventType,
			"response": response,
		})

	case modelrelay.EventError:
		msg := "upstream stream error"
		if ev.Error != nil {
			msg = ev.Error.Message
		}
		return json.Marshal(map[string]any{
			"type":  "error",
			"error": map[string]any{"message": msg},
		})

	default:
		return nil, nil
	}
}

// ---------------------------------------------------------------------------
// input / output conversion
// ---------------------------------------------------------------------------

// decodeResponsesInput handles both input shapes: a plain string (one user
// message) or an array of typed input items.
func decodeResponsesInput(input json.RawMessage) ([]modelrelay.Message, error) {
	if len(input) == 0 {
		return nil, nil
	}

	var text string
	if err := json.Unmarshal(input, &text); err == nil {
		return []modelrelay.Message{modelrelay.UserMessage(text)}, nil
	}

	var items []responsesInputItem
	if err := json.Unmarshal(input, &items); err != nil {
		return nil, fmt.Errorf("must be a string or array of input items")
	}

	var messages []modelrelay.Message
	for i, item := range items {
		switch item.Type {
		case "", "message":
			role := modelrelay.RoleUser
			switch item.Role {
			case "assistant":
				role = modelrelay.RoleAssistant
			case "system", "developer":
				role = modelrelay.RoleSystem
			}
			blocks := responsesContentToBlocks(item.Content)
			if len(blocks) == 0 {
				continue
			}
			messages = append(messages, modelrelay.Message{Role: role, Content: blocks})

		case "function_call":
			id := item.CallID
			if id == "" {
				id = item.ID
			}
			messages = append(messages, modelrelay.Message{
				Role: modelrelay.RoleAssistant,
				Content: []modelrelay.ContentBlock{{
					Type: modelrelay.BlockToolUse,
					ToolUse: &modelrelay.ToolUseBlock{
						ID:        id,
						Name:      item.Name,
						Arguments: item.Arguments,
					},
				}},
			})

		case "function_call_output":
			messages = append(messages, modelrelay.Message{
				Role: modelrelay.RoleUser,
				Content: []modelrelay.ContentBlock{{
					Type: modelrelay.BlockToolResult,
					ToolResult: &modelrelay.ToolResultBlock{
						ToolUseID: item.CallID,
						Content:   decodeContentText(item.Output),
					},
				}},
			})

		case "reasoning":
			// Reasoning input items are replayed encrypted state, not
			// client-authored content; carry them in the escape hatch.
			raw, err := json.Marshal(item)
			if err != nil {
				return nil, fmt.Errorf("items[%d]: %v", i, err)
			}
			messages = append(messages, modelrelay.Message{
				Role:    modelrelay.RoleAssistant,
				Content: []modelrelay.ContentBlock{{Type: modelrelay.BlockThinking, Raw: raw}},
			})

		default:
			return nil, fmt.Errorf("items[%d]: unknown type '%s'", i, item.Type)
		}
	}
	return messages, nil
}

func responsesContentToBlocks(items []responsesContentItem) []modelrelay.ContentBlock {
	blocks := make([]modelrelay.ContentBlock, 0, len(items))
	for _, item := range items {
		switch item.Type {
		case "", "input_text", "output_text", "text", "refusal":
			if item.Text == "" && item.Refusal == "" {
				continue
			}
			text := item.Text
			if text == "" {
				text = item.Refusal
			}
			blocks = append(blocks, modelrelay.TextBlock(text))
		}
	}
	return blocks
}

func canonicalMessageToResponsesItems(msg modelrelay.Message) []responsesInputItem {
	var items []responsesInputItem
	var content []responsesContentItem

	textType := "input_text"
	if msg.Role == modelrelay.RoleAssistant {
		textType = "output_text"
	}

	flush := func() {
		if len(content) == 0 {
			return
		}
		items = append(items, responsesInputItem{
			Type:    "message",
			Role:    string(msg.Role),
			Content: content,
		})
		content = nil
	}

	for _, block := range msg.Content {
		switch block.Type {
		case modelrelay.BlockText:
			content = append(content, responsesContentItem{Type: textType, Text: block.Text})
		case modelrelay.BlockToolUse:
			if block.ToolUse == nil {
				continue
			}
			flush()
			items = append(items, responsesInputItem{
				Type:      "function_call",
				CallID:    block.ToolUse.ID,
				Name:      block.ToolUse.Name,
				Arguments: block.ToolUse.Arguments,
			})
		case modelrelay.BlockToolResult:
			if block.ToolResult == nil {
				continue
			}
			flush()
			items = append(items, responsesInputItem{
				Type:   "function_call_output",
				CallID: block.ToolResult.ToolUseID,
				Output: encodeContentText(block.ToolResult.Content),
			})
		}
	}
	flush()
	return items
}

func responsesOutputToBlocks(output []responsesOutputItem) []modelrelay.ContentBlock {
	var blocks []modelrelay.ContentBlock
	for _, item := range output {
		switch item.Type {
		case "message":
			for _, content := range item.Content {
				switch content.Type {
				case "output_text", "text":
					blocks = append(blocks, modelrelay.TextBlock(content.Text))
				case "refusal":
					blocks = append(blocks, modelrelay.TextBlock(content.Refusal))
				}
			}
		case "function_call":
			id := item.CallID
			if id == "" {
				id = item.ID
			}
			blocks = append(blocks, modelrelay.ContentBlock{
				Type: modelrelay.BlockToolUse,
				ToolUse: &modelrelay.ToolUseBlock{
					ID:        id,
					Name:      item.Name,
					Arguments: item.Arguments,
				},
			})
		case "reasoning":
			var parts []string
			for _, summary := range item.Summary {
				if summary.Text != "" {
					parts = append(parts, summary.Text)
				}
			}
			if len(parts) > 0 {
				blocks = append(blocks, modelrelay.ContentBlock{
					Type:     modelrelay.BlockThinking,
					Thinking: strings.Join(parts, "\n"),
				})
			}
		case "web_search_call":
			raw, err := json.Marshal(item)
			if err == nil {
				blocks = append(blocks, modelrelay.ContentBlock{Type: modelrelay.BlockWebSearch, Raw: raw})
			}
		}
	}
	return blocks
}

func blocksToResponsesOutput(blocks []modelrelay.ContentBlock) ([]responsesOutputItem, string) {
	var items []responsesOutputItem
	var content []responsesContentItem
	var outputText strings.Builder

	flush := func() {
		if len(content) == 0 {
			return
		}
		items = append(items, responsesOutputItem{
			ID:      "msg_" + uuid.NewString(),
			Type:    "message",
			Role:    "assistant",
			Status:  "completed",
			Content: content,
		})
		content = nil
	}

	for _, block := range blocks {
		switch block.Type {
		case modelrelay.BlockText:
			content = append(content, responsesContentItem{Type: "output_text", Text: block.Text})
			outputText.WriteString(block.Text)
		case modelrelay.BlockThinking:
			flush()
			item := responsesOutputItem{
				ID:   "rs_" + uuid.NewString(),
				Type: "reasoning",
			}
			if block.Thinking != "" {
				item.Summary = []responsesSummaryItem{{Text: block.Thinking}}
			}
			items = append(items, item)
		case modelrelay.BlockToolUse:
			if block.ToolUse == nil {
				continue
			}
			flush()
			items = append(items, responsesOutputItem{
				ID:        "fc_" + uuid.NewString(),
				Type:      "function_call",
				Status:    "completed",
				CallID:    block.ToolUse.ID,
				Name:      block.ToolUse.Name,
				Arguments: block.ToolUse.Arguments,
			})
		}
	}
	flush()
	return items, outputText.String()
}

// ---------------------------------------------------------------------------
// tool_choice mapping
// ---------------------------------------------------------------------------

func decodeResponsesToolChoice(raw json.RawMessage) (*modelrelay.ToolChoice, error) {
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

	var typed struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &typed); err != nil {
		return nil, fmt.Errorf("must be a string or an object")
	}
	if typed.Type != "function" || typed.Name == "" {
		return nil, fmt.Errorf("object form requires type 'function' and a name")
	}
	return &modelrelay.ToolChoice{Name: typed.Name}, nil
}

// encodeResponsesToolChoice renders a canonical tool choice. "any" has no
// Responses equivalent and collapses to "required", the closest concept.
func encodeResponsesToolChoice(choice *modelrelay.ToolChoice) json.RawMessage {
	if choice.Name != "" {
		data, _ := json.Marshal(map[string]any{"type": "function", "name": choice.Name})
		return data
	}
	mode := "auto"
	switch choice.Mode {
	case modelrelay.ToolChoiceNone:
		mode = "none"
	case modelrelay.ToolChoiceRequired, modelrelay.ToolChoiceAny:
		mode = "required"
	}
	data, _ := json.Marshal(mode)
	return data
}

// ---------------------------------------------------------------------------
// wire structures
// ---------------------------------------------------------------------------

type responsesRequest struct {
	Model           string          `json:"model"`
	Input           json.RawMessage `json:"input,omitempty"` // string or input item array
	Instructions    string          `json:"instructions,omitempty"`
	MaxOutputTokens *int            `json:"max_output_tokens,omitempty"`
	Temperature     *float64        `json:"temperature,omitempty"`
	TopP            *float64        `json:"top_p,omitempty"`
	Stream          bool            `json:"stream,omitempty"`
	Tools           []responsesTool `json:"tools,omitempty"`
	ToolChoice      json.RawMessage `json:"tool_choice,omitempty"`
}

// responsesTool flattens function fields at the top level, unlike the chat
// completions nesting.
type responsesTool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type responsesInputItem struct {
	Type      string                 `json:"type,omitempty"`
	Role      string                 `json:"role,omitempty"`
	Content   []responsesContentItem `json:"content,omitempty"`
	ID        string                 `json:"id,omitempty"`
	CallID    string                 `json:"call_id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Arguments string                 `json:"arguments,omitempty"`
	Output    json.RawMessage        `json:"output,omitempty"`
	Summary   []responsesSummaryItem `json:"summary,omitempty"`
}

type responsesContentItem struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Refusal string `json:"refusal,omitempty"`
}

type responsesSummaryItem struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

type responsesResponse struct {
	ID                string                 `json:"id"`
	Object            string                 `json:"object,omitempty"`
	CreatedAt         int64                  `json:"created_at,omitempty"`
	Model             string                 `json:"model"`
	Status            string                 `json:"status,omitempty"`
	OutputText        string                 `json:"output_text,omitempty"`
	Output            []responsesOutputItem  `json:"output"`
	Usage             responsesUsage         `json:"usage"`
	Error             *responsesError        `json:"error,omitempty"`
	IncompleteDetails *responsesIncomplete   `json:"incomplete_details,omitempty"`
}

type responsesOutputItem struct {
	ID        string                 `json:"id,omitempty"`
	Type      string                 `json:"type"`
	Role      string                 `json:"role,omitempty"`
	Status    string                 `json:"status,omitempty"`
	CallID    string                 `json:"call_id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Arguments string                 `json:"arguments,omitempty"`
	Content   []responsesContentItem `json:"content,omitempty"`
	Summary   []responsesSummaryItem `json:"summary,omitempty"`
}

type responsesUsage struct {
	InputTokens         int                         `json:"input_tokens"`
	OutputTokens        int                         `json:"output_tokens"`
	TotalTokens         int                         `json:"total_tokens"`
	OutputTokensDetails *responsesOutputTokenDetail `json:"output_tokens_details,omitempty"`
}

type responsesOutputTokenDetail struct {
	ReasoningTokens int `json:"reasoning_tokens,omitempty"`
}

type responsesError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type responsesIncomplete struct {
	Reason string `json:"reason,omitempty"`
}

type responsesStreamEvent struct {
	Type        string `json:"type"`
	Delta       string `json:"delta,omitempty"`
	OutputIndex int    `json:"output_index,omitempty"`
	Item        *struct {
		ID     string `json:"id,omitempty"`
		Type   string `json:"type"`
		CallID string `json:"call_id,omitempty"`
		Name   string `json:"name,omitempty"`
	} `json:"item,omitempty"`
	Response struct {
		ID    string          `json:"id,omitempty"`
		Model string          `json:"model,omitempty"`
		Usage *responsesUsage `json:"usage,omitempty"`
		Error *responsesError `json:"error,omitempty"`
	} `json:"response,omitempty"`
	Error *responsesError `json:"error,omitempty"`
}
