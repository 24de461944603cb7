package formats

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelrelay/modelrelay"
)

func TestOpenAIRequestToCanonical(t *testing.T) {
	adapter := NewOpenAI()

	req, err := adapter.RequestToCanonical([]byte(`{
		"model": "gpt-4o",
		"messages": [
			{"role": "developer", "content": "be terse"},
			{"role": "user", "content": [{"type": "text", "text": "hello"}]},
			{"role": "assistant", "content": "hi", "tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "search", "arguments": "{\"q\":1}"}}
			]},
			{"role": "tool", "tool_call_id": "call_1", "content": "result"}
		],
		"max_tokens": 256,
		"temperature": 0.5,
		"stop": "END",
		"tools": [{"type": "function", "function": {"name": "search", "description": "find things"}}],
		"tool_choice": "required",
		"logit_bias": {"50256": -100}
	}`))
	require.NoError(t, err)

	assert.Equal(t, modelrelay.SchemaVersion, req.SchemaVersion)
	assert.Equal(t, "gpt-4o", req.Model)
	require.Len(t, req.Messages, 4)

	assert.Equal(t, modelrelay.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "be terse", req.Messages[0].Text())
	assert.Equal(t, modelrelay.RoleUser, req.Messages[1].Role)
	assert.Equal(t, "hello", req.Messages[1].Text())

	assistant := req.Messages[2]
	assert.Equal(t, modelrelay.RoleAssistant, assistant.Role)
	require.Len(t, assistant.Content, 2)
	assert.Equal(t, "hi", assistant.Content[0].Text)
	require.NotNil(t, assistant.Content[1].ToolUse)
	assert.Equal(t, "call_1", assistant.Content[1].ToolUse.ID)

	toolResult := req.Messages[3]
	assert.Equal(t, modelrelay.RoleUser, toolResult.Role)
	require.NotNil(t, toolResult.Content[0].ToolResult)
	assert.Equal(t, "call_1", toolResult.Content[0].ToolResult.ToolUseID)
	assert.Equal(t, "result", toolResult.Content[0].ToolResult.Content)

	require.NotNil(t, req.Generation)
	assert.Equal(t, 256, *req.Generation.MaxTokens)
	assert.Equal(t, []string{"END"}, req.Generation.Stop)

	require.Len(t, req.Tools, 1)
	assert.Equal(t, "search", req.Tools[0].Name)
	require.NotNil(t, req.ToolChoice)
	assert.Equal(t, modelrelay.ToolChoiceRequired, req.ToolChoice.Mode)

	require.NotNil(t, req.ProviderParams)
	assert.Contains(t, req.ProviderParams, "logit_bias")
}

func TestOpenAIRequestRoundTripPreservesProviderParams(t *testing.T) {
	adapter := NewOpenAI()

	req, err := adapter.RequestToCanonical([]byte(`{
		"model": "gpt-4o",
		"messages": [{"role": "user", "content": "hi"}],
		"seed": 42,
		"logprobs": true
	}`))
	require.NoError(t, err)

	out, err := adapter.RequestFromCanonical(req)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, float64(42), decoded["seed"])
	assert.Equal(t, true, decoded["logprobs"])
	assert.Equal(t, "gpt-4o", decoded["model"])
}

func TestOpenAIToolChoiceLossyCollapse(t *testing.T) {
	// "required" and "any" collapse to "auto" on encode. The loss is
	// intentional and round-trips do not recover the original mode.
	tests := []struct {
		name   string
		choice *modelrelay.ToolChoice
		want   string
	}{
		{"required collapses to auto", &modelrelay.ToolChoice{Mode: modelrelay.ToolChoiceRequired}, `"auto"`},
		{"any collapses to auto", &modelrelay.ToolChoice{Mode: modelrelay.ToolChoiceAny}, `"auto"`},
		{"auto stays auto", &modelrelay.ToolChoice{Mode: modelrelay.ToolChoiceAuto}, `"auto"`},
		{"none stays none", &modelrelay.ToolChoice{Mode: modelrelay.ToolChoiceNone}, `"none"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeOpenAIToolChoice(tt.choice)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}

	explicit, err := encodeOpenAIToolChoice(&modelrelay.ToolChoice{Name: "search"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"function","function":{"name":"search"}}`, string(explicit))
}

func TestOpenAIFinishReasonTable(t *testing.T) {
	assert.Equal(t, modelrelay.FinishStop, mapOpenAIFinish("stop"))
	assert.Equal(t, modelrelay.FinishLength, mapOpenAIFinish("length"))
	assert.Equal(t, modelrelay.FinishToolCalls, mapOpenAIFinish("tool_calls"))
	assert.Equal(t, modelrelay.FinishToolCalls, mapOpenAIFinish("function_call"))
	assert.Equal(t, modelrelay.FinishContentFilter, mapOpenAIFinish("content_filter"))
	// Unknown reasons default to the generic terminal reason.
	assert.Equal(t, modelrelay.FinishStop, mapOpenAIFinish("galaxy_brain"))
}

func TestOpenAIResponseToCanonical(t *testing.T) {
	adapter := NewOpenAI()

	resp, err := adapter.ResponseToCanonical([]byte(`{
		"id": "chatcmpl-123",
		"created": 1700000000,
		"model": "gpt-4o",
		"choices": [{
			"index": 0,
			"message": {
				"role": "assistant",
				"content": "Paris",
				"reasoning_content": "capital question",
				"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "lookup", "arguments": "{}"}}]
			},
			"finish_reason": "tool_calls"
		}],
		"usage": {
			"prompt_tokens": 9,
			"completion_tokens": 20,
			"prompt_tokens_details": {"cached_tokens": 3},
			"completion_tokens_details": {"reasoning_tokens": 5}
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "chatcmpl-123", resp.ID)
	assert.Equal(t, modelrelay.FinishToolCalls, resp.FinishReason)

	require.Len(t, resp.Choices, 1)
	blocks := resp.Choices[0].Message.Content
	require.Len(t, blocks, 3)
	assert.Equal(t, modelrelay.BlockThinking, blocks[0].Type)
	assert.Equal(t, "Paris", blocks[1].Text)
	assert.Equal(t, modelrelay.BlockToolUse, blocks[2].Type)

	// Both alias pairs are populated.
	assert.Equal(t, 9, resp.Usage.PromptTokens)
	assert.Equal(t, 9, resp.Usage.InputTokens)
	assert.Equal(t, 20, resp.Usage.CompletionTokens)
	assert.Equal(t, 20, resp.Usage.OutputTokens)
	assert.Equal(t, 3, resp.Usage.CacheReadTokens)
	assert.Equal(t, 5, resp.Usage.ReasoningTokens)

	assert.NotEmpty(t, resp.ProviderRaw)
}

func TestOpenAIResponseToCanonicalEmptyChoices(t *testing.T) {
	adapter := NewOpenAI()
	_, err := adapter.ResponseToCanonical([]byte(`{"id": "x", "model": "m", "choices": [], "usage": {}}`))
	require.Error(t, err)
	assert.True(t, modelrelay.IsValidationError(err))
}

func TestOpenAIResponseFromCanonical(t *testing.T) {
	adapter := NewOpenAI()

	resp := modelrelay.NewCanonicalResponse(modelrelay.CanonicalResponse{
		ID:    "resp_1",
		Model: "gpt-4o",
		Choices: []modelrelay.Choice{{
			Message: modelrelay.Message{Role: modelrelay.RoleAssistant, Content: []modelrelay.ContentBlock{
				modelrelay.TextBlock("Paris"),
				{Type: modelrelay.BlockToolUse, ToolUse: &modelrelay.ToolUseBlock{ID: "call_1", Name: "lookup", Arguments: "{}"}},
			}},
			FinishReason: modelrelay.FinishToolCalls,
		}},
		Usage: modelrelay.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
	})

	out, err := adapter.ResponseFromCanonical(resp)
	require.NoError(t, err)

	var decoded openaiResponse
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "resp_1", decoded.ID)
	assert.Equal(t, "chat.completion", decoded.Object)
	require.Len(t, decoded.Choices, 1)
	assert.Equal(t, "tool_calls", decoded.Choices[0].FinishReason)
	require.Len(t, decoded.Choices[0].Message.ToolCalls, 1)
	assert.Equal(t, "lookup", decoded.Choices[0].Message.ToolCalls[0].Function.Name)
}

func TestOpenAIStreamTranslationTerminatesOnce(t *testing.T) {
	adapter := NewOpenAI()

	chunks := [][]byte{
		[]byte(`{"id":"c1","model":"gpt-4o","choices":[{"index":0,"delta":{"role":"assistant"}}]}`),
		[]byte(`{"id":"c1","choices":[{"index":0,"delta":{"content":"Hel"}}]}`),
		[]byte(`{"id":"c1","choices":[{"index":0,"delta":{"content":"lo"}}]}`),
		[]byte(`{"id":"c1","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`),
	}

	var events []modelrelay.CanonicalStreamEvent
	for _, chunk := range chunks {
		translated, err := adapter.StreamEventToCanonical(chunk)
		require.NoError(t, err)
		events = append(events, translated...)
	}

	var terminal int
	var deltas []string
	for _, ev := range events {
		if ev.Type.Terminal() {
			terminal++
		}
		if ev.Type == modelrelay.EventContentDelta {
			deltas = append(deltas, ev.Delta.Text)
		}
	}
	assert.Equal(t, 1, terminal, "exactly one terminal event")
	assert.Equal(t, []string{"Hel", "lo"}, deltas, "delta order preserved")
	assert.Equal(t, modelrelay.EventMessageStart, events[0].Type)
	assert.True(t, events[len(events)-1].Type.Terminal())
}

func TestOpenAIStreamToolCallDeltas(t *testing.T) {
	adapter := NewOpenAI()

	events, err := adapter.StreamEventToCanonical([]byte(`{
		"id": "c1",
		"choices": [{"index": 0, "delta": {"tool_calls": [
			{"index": 0, "id": "call_1", "type": "function", "function": {"name": "search", "arguments": "{\"q\""}}
		]}}]
	}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].ToolCall)
	assert.Equal(t, "call_1", events[0].ToolCall.ID)
	assert.Equal(t, "search", events[0].ToolCall.Name)
	assert.Equal(t, `{"q"`, events[0].ToolCall.ArgumentsDelta)
}

func TestOpenAIStreamEventFromCanonical(t *testing.T) {
	adapter := NewOpenAI()

	tests := []struct {
		name string
		ev   modelrelay.CanonicalStreamEvent
		want func(t *testing.T, decoded map[string]any)
	}{
		{
			name: "content delta",
			ev: modelrelay.CanonicalStreamEvent{
				Type:  modelrelay.EventContentDelta,
				ID:    "c1",
				Delta: &modelrelay.ContentDelta{Index: 0, Block: modelrelay.BlockText, Text: "hi"},
			},
			want: func(t *testing.T, decoded map[string]any) {
				choices := decoded["choices"].([]any)
				delta := choices[0].(map[string]any)["delta"].(map[string]any)
				assert.Equal(t, "hi", delta["content"])
			},
		},
		{
			name: "complete carries finish reason",
			ev:   modelrelay.CanonicalStreamEvent{Type: modelrelay.EventComplete, ID: "c1", FinishReason: modelrelay.FinishLength},
			want: func(t *testing.T, decoded map[string]any) {
				choices := decoded["choices"].([]any)
				assert.Equal(t, "length", choices[0].(map[string]any)["finish_reason"])
			},
		},
		{
			name: "error renders error object",
			ev:   modelrelay.CanonicalStreamEvent{Type: modelrelay.EventError, Error: &modelrelay.StreamError{Message: "boom"}},
			want: func(t *testing.T, decoded map[string]any) {
				errObj := decoded["error"].(map[string]any)
				assert.Equal(t, "boom", errObj["message"])
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := adapter.StreamEventFromCanonical(&tt.ev)
			require.NoError(t, err)
			var decoded map[string]any
			require.NoError(t, json.Unmarshal(out, &decoded))
			tt.want(t, decoded)
		})
	}
}
