package formats

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelrelay/modelrelay"
)

func TestAnthropicRequestToCanonical(t *testing.T) {
	adapter := NewAnthropic()

	req, err := adapter.RequestToCanonical([]byte(`{
		"model": "claude-sonnet-4",
		"system": "be helpful",
		"max_tokens": 1024,
		"messages": [
			{"role": "user", "content": "hello"},
			{"role": "assistant", "content": [
				{"type": "thinking", "thinking": "user greeted me", "signature": "sig1"},
				{"type": "text", "text": "hi"},
				{"type": "tool_use", "id": "toolu_1", "name": "search", "input": {"q": "golang"}}
			]},
			{"role": "user", "content": [
				{"type": "tool_result", "tool_use_id": "toolu_1", "content": "found it"}
			]}
		],
		"tools": [{"name": "search", "input_schema": {"type": "object"}}],
		"tool_choice": {"type": "any"},
		"metadata": {"user_id": "u1"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4", req.Model)
	require.Len(t, req.Messages, 4)

	// Out-of-band system becomes a leading system message.
	assert.Equal(t, modelrelay.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "be helpful", req.Messages[0].Text())

	assert.Equal(t, "hello", req.Messages[1].Text())

	assistant := req.Messages[2]
	require.Len(t, assistant.Content, 3)
	assert.Equal(t, modelrelay.BlockThinking, assistant.Content[0].Type)
	assert.Equal(t, "user greeted me", assistant.Content[0].Thinking)
	assert.Equal(t, "sig1", assistant.Content[0].Signature)
	assert.Equal(t, "hi", assistant.Content[1].Text)
	require.NotNil(t, assistant.Content[2].ToolUse)
	assert.Equal(t, "toolu_1", assistant.Content[2].ToolUse.ID)
	assert.JSONEq(t, `{"q":"golang"}`, assistant.Content[2].ToolUse.Arguments)

	result := req.Messages[3]
	require.NotNil(t, result.Content[0].ToolResult)
	assert.Equal(t, "toolu_1", result.Content[0].ToolResult.ToolUseID)
	assert.Equal(t, "found it", result.Content[0].ToolResult.Content)

	require.NotNil(t, req.Generation)
	assert.Equal(t, 1024, *req.Generation.MaxTokens)

	require.NotNil(t, req.ToolChoice)
	assert.Equal(t, modelrelay.ToolChoiceAny, req.ToolChoice.Mode)

	assert.Contains(t, req.ProviderParams, "metadata")
}

func TestAnthropicRequestFromCanonical(t *testing.T) {
	adapter := NewAnthropic()

	req := modelrelay.NewCanonicalRequest(modelrelay.CanonicalRequest{
		Model: "claude-sonnet-4",
		Messages: []modelrelay.Message{
			modelrelay.SystemMessage("be brief"),
			modelrelay.SystemMessage("no emoji"),
			{Role: modelrelay.RoleUser, Content: []modelrelay.ContentBlock{modelrelay.TextBlock("hello")}},
		},
		Generation: &modelrelay.GenerationParams{Temperature: modelrelay.Float64Ptr(0.2)},
	})

	out, err := adapter.RequestFromCanonical(req)
	require.NoError(t, err)

	var decoded anthropicRequest
	require.NoError(t, json.Unmarshal(out, &decoded))

	// System messages are lifted back out into the dedicated field.
	var system string
	require.NoError(t, json.Unmarshal(decoded.System, &system))
	assert.Equal(t, "be brief\n\nno emoji", system)
	require.Len(t, decoded.Messages, 1)
	assert.Equal(t, "user", decoded.Messages[0].Role)

	// The messages API rejects requests without max_tokens, so one is
	// always present.
	require.NotNil(t, decoded.MaxTokens)
	assert.Equal(t, defaultMaxTokens, *decoded.MaxTokens)
	require.NotNil(t, decoded.Temperature)
	assert.Equal(t, 0.2, *decoded.Temperature)
}

func TestAnthropicToolChoiceLossyCollapse(t *testing.T) {
	tests := []struct {
		name   string
		choice *modelrelay.ToolChoice
		want   string
	}{
		{"required collapses to any", &modelrelay.ToolChoice{Mode: modelrelay.ToolChoiceRequired}, `{"type":"any"}`},
		{"any is native", &modelrelay.ToolChoice{Mode: modelrelay.ToolChoiceAny}, `{"type":"any"}`},
		{"none is native", &modelrelay.ToolChoice{Mode: modelrelay.ToolChoiceNone}, `{"type":"none"}`},
		{"auto is the default", &modelrelay.ToolChoice{Mode: modelrelay.ToolChoiceAuto}, `{"type":"auto"}`},
		{"explicit name", &modelrelay.ToolChoice{Name: "search"}, `{"type":"tool","name":"search"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, string(encodeAnthropicToolChoice(tt.choice)))
		})
	}
}

func TestAnthropicStopReasonTable(t *testing.T) {
	assert.Equal(t, modelrelay.FinishStop, mapAnthropicStop("end_turn"))
	assert.Equal(t, modelrelay.FinishStop, mapAnthropicStop("stop_sequence"))
	assert.Equal(t, modelrelay.FinishLength, mapAnthropicStop("max_tokens"))
	assert.Equal(t, modelrelay.FinishToolCalls, mapAnthropicStop("tool_use"))
	assert.Equal(t, modelrelay.FinishContentFilter, mapAnthropicStop("refusal"))
	assert.Equal(t, modelrelay.FinishStop, mapAnthropicStop("pause_turn"))
}

func TestAnthropicResponseToCanonical(t *testing.T) {
	adapter := NewAnthropic()

	resp, err := adapter.ResponseToCanonical([]byte(`{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4",
		"content": [
			{"type": "text", "text": "Paris"},
			{"type": "tool_use", "id": "toolu_1", "name": "lookup", "input": {}}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 12, "output_tokens": 7, "cache_read_input_tokens": 4}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "msg_01", resp.ID)
	assert.Equal(t, modelrelay.FinishToolCalls, resp.FinishReason)
	require.Len(t, resp.Choices, 1)
	require.Len(t, resp.Choices[0].Message.Content, 2)

	// Usage aliases are filled from the native names.
	assert.Equal(t, 12, resp.Usage.InputTokens)
	assert.Equal(t, 12, resp.Usage.PromptTokens)
	assert.Equal(t, 7, resp.Usage.CompletionTokens)
	assert.Equal(t, 19, resp.Usage.TotalTokens)
	assert.Equal(t, 4, resp.Usage.CacheReadTokens)

	assert.NotEmpty(t, resp.ProviderRaw)
}

func TestAnthropicResponseFromCanonical(t *testing.T) {
	adapter := NewAnthropic()

	resp := modelrelay.NewCanonicalResponse(modelrelay.CanonicalResponse{
		Model: "claude-sonnet-4",
		Choices: []modelrelay.Choice{{
			Message:      modelrelay.Message{Role: modelrelay.RoleAssistant, Content: []modelrelay.ContentBlock{modelrelay.TextBlock("Paris")}},
			FinishReason: modelrelay.FinishLength,
		}},
		Usage: modelrelay.Usage{InputTokens: 1, OutputTokens: 2},
	})

	out, err := adapter.ResponseFromCanonical(resp)
	require.NoError(t, err)

	var decoded anthropicResponse
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.True(t, len(decoded.ID) > 4 && decoded.ID[:4] == "msg_")
	assert.Equal(t, "max_tokens", decoded.StopReason)

	var content []anthropicContent
	require.NoError(t, json.Unmarshal(decoded.Content, &content))
	require.Len(t, content, 1)
	assert.Equal(t, "Paris", content[0].Text)
}

func TestAnthropicStreamTranslation(t *testing.T) {
	adapter := NewAnthropic()

	upstream := [][]byte{
		[]byte(`{"type":"message_start","message":{"id":"msg_01","model":"claude-sonnet-4","usage":{"input_tokens":10,"output_tokens":0}}}`),
		[]byte(`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`),
		[]byte(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`),
		[]byte(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}`),
		[]byte(`{"type":"ping"}`),
		[]byte(`{"type":"content_block_stop","index":0}`),
		[]byte(`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":5}}`),
		[]byte(`{"type":"message_stop"}`),
	}

	var events []modelrelay.CanonicalStreamEvent
	for _, raw := range upstream {
		translated, err := adapter.StreamEventToCanonical(raw)
		require.NoError(t, err)
		events = append(events, translated...)
	}

	var terminal, usage int
	var deltas []string
	for _, ev := range events {
		switch {
		case ev.Type.Terminal():
			terminal++
		case ev.Type == modelrelay.EventUsage:
			usage++
		case ev.Type == modelrelay.EventContentDelta:
			deltas = append(deltas, ev.Delta.Text)
		}
	}

	assert.Equal(t, modelrelay.EventMessageStart, events[0].Type)
	assert.Equal(t, []string{"Hel", "lo"}, deltas)
	assert.Equal(t, 2, usage, "input usage at start, output usage at the end")
	assert.Equal(t, 1, terminal, "message_stop must not produce a second terminal event")
	last := events[len(events)-1]
	assert.Equal(t, modelrelay.EventComplete, last.Type)
	assert.Equal(t, modelrelay.FinishStop, last.FinishReason)
}

func TestAnthropicStreamToolUse(t *testing.T) {
	adapter := NewAnthropic()

	start, err := adapter.StreamEventToCanonical([]byte(`{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"search"}}`))
	require.NoError(t, err)
	require.Len(t, start, 1)
	require.NotNil(t, start[0].ToolCall)
	assert.Equal(t, 1, start[0].ToolCall.Index)
	assert.Equal(t, "toolu_1", start[0].ToolCall.ID)
	assert.Equal(t, "search", start[0].ToolCall.Name)

	delta, err := adapter.StreamEventToCanonical([]byte(`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"q\""}}`))
	require.NoError(t, err)
	require.Len(t, delta, 1)
	assert.Equal(t, `{"q"`, delta[0].ToolCall.ArgumentsDelta)
}

func TestAnthropicStreamEventFromCanonical(t *testing.T) {
	adapter := NewAnthropic()

	t.Run("complete carries stop reason", func(t *testing.T) {
		out, err := adapter.StreamEventFromCanonical(&modelrelay.CanonicalStreamEvent{
			Type:         modelrelay.EventComplete,
			FinishReason: modelrelay.FinishToolCalls,
		})
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(out, &decoded))
		assert.Equal(t, "message_delta", decoded["type"])
		delta := decoded["delta"].(map[string]any)
		assert.Equal(t, "tool_use", delta["stop_reason"])
	})

	t.Run("thinking delta", func(t *testing.T) {
		out, err := adapter.StreamEventFromCanonical(&modelrelay.CanonicalStreamEvent{
			Type:  modelrelay.EventContentDelta,
			Delta: &modelrelay.ContentDelta{Index: 0, Block: modelrelay.BlockThinking, Text: "hmm"},
		})
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(out, &decoded))
		delta := decoded["delta"].(map[string]any)
		assert.Equal(t, "thinking_delta", delta["type"])
		assert.Equal(t, "hmm", delta["thinking"])
	})

	t.Run("error", func(t *testing.T) {
		out, err := adapter.StreamEventFromCanonical(&modelrelay.CanonicalStreamEvent{
			Type:  modelrelay.EventError,
			Error: &modelrelay.StreamError{Message: "overloaded"},
		})
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(out, &decoded))
		assert.Equal(t, "error", decoded["type"])
		assert.Equal(t, "overloaded", decoded["error"].(map[string]any)["message"])
	})
}
