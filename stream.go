package modelrelay

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StreamEventType discriminates the canonical stream event union.
type StreamEventType string

const (
	EventMessageStart StreamEventType = "message_start"
	EventContentDelta StreamEventType = "content_delta"
	EventToolCall     StreamEventType = "tool_call"
	EventUsage        StreamEventType = "usage"
	EventComplete     StreamEventType = "complete"
	EventError        StreamEventType = "error"
)

// Terminal reports whether the event type ends a stream. A well-formed stream
// contains exactly one terminal event, as its last element.
func (t StreamEventType) Terminal() bool {
	return t == EventComplete || t == EventError
}

// ContentDelta is an incremental piece of one output block.
type ContentDelta struct {
	Index int       `json:"index"`
	Block BlockType `json:"block,omitempty"`
	Text  string    `json:"text,omitempty"`
}

// ToolCallDelta is an incremental piece of one tool invocation. The first
// delta for an index carries ID and Name; later deltas carry argument bytes.
type ToolCallDelta struct {
	Index          int    `json:"index"`
	ID             string `json:"id,omitempty"`
	Name           string `json:"name,omitempty"`
	ArgumentsDelta string `json:"arguments_delta,omitempty"`
}

// StreamError is the payload of a terminal error event.
type StreamError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// CanonicalStreamEvent is one element of the canonical streaming sequence:
// a tagged variant over {message_start, content_delta, tool_call, usage,
// complete, error}. SourceRaw keeps the untranslated upstream event.
type CanonicalStreamEvent struct {
	Type StreamEventType `json:"type"`

	ID           string          `json:"id,omitempty"`    // message_start
	Model        string          `json:"model,omitempty"` // message_start
	Delta        *ContentDelta   `json:"delta,omitempty"`
	ToolCall     *ToolCallDelta  `json:"tool_call,omitempty"`
	Usage        *Usage          `json:"usage,omitempty"`
	FinishReason FinishReason    `json:"finish_reason,omitempty"` // complete
	Error        *StreamError    `json:"error,omitempty"`
	SourceRaw    json.RawMessage `json:"source_raw,omitempty"`
}

// StreamReader yields canonical stream events in receipt order.
// Implementations must not reorder or buffer beyond one event at a time.
type StreamReader interface {
	// Next returns the next event. After a terminal event it returns that
	// event's type with no further data, or an error.
	Next() (*CanonicalStreamEvent, error)
	// Close aborts the underlying upstream request. Safe to call twice.
	Close() error
}

// ---------------------------------------------------------------------------
// ToolCallAccumulator — tool call reconstruction from streaming deltas
// ---------------------------------------------------------------------------

// ToolCallAccumulator reconstructs complete ToolUseBlock values from streaming
// deltas. Safe for single-goroutine use only.
type ToolCallAccumulator struct {
	order []int
	byIdx map[int]*ToolUseBlock
}

// NewToolCallAccumulator creates an empty accumulator.
func NewToolCallAccumulator() *ToolCallAccumulator {
	return &ToolCallAccumulator{byIdx: make(map[int]*ToolUseBlock)}
}

// Apply processes a single delta, creating or updating the tool call at its
// index. Start deltas (which carry ID/name) and argument deltas merge into
// the same entry because both are keyed by index.
func (a *ToolCallAccumulator) Apply(delta *ToolCallDelta) {
	if delta == nil {
		return
	}

	tc := a.byIdx[delta.Index]
	if tc == nil {
		tc = &ToolUseBlock{ID: delta.ID, Name: delta.Name}
		a.byIdx[delta.Index] = tc
		a.order = append(a.order, delta.Index)
	}

	if delta.ID != "" {
		tc.ID = delta.ID
	}
	if delta.Name != "" {
		tc.Name = delta.Name
	}
	tc.Arguments += delta.ArgumentsDelta
}

// Build returns the completed tool calls in first-seen order.
func (a *ToolCallAccumulator) Build() []ToolUseBlock {
	if len(a.order) == 0 {
		return nil
	}
	result := make([]ToolUseBlock, 0, len(a.order))
	for _, idx := range a.order {
		if tc := a.byIdx[idx]; tc != nil {
			result = append(result, *tc)
		}
	}
	return result
}

// PartialArguments returns a best-effort parse of the accumulated (possibly
// incomplete) arguments for the tool call at the given index. Useful for
// streaming UIs. Returns nil if the index has no accumulated data.
func (a *ToolCallAccumulator) PartialArguments(index int) map[string]any {
	tc := a.byIdx[index]
	if tc == nil || tc.Arguments == "" {
		return nil
	}
	args, err := ParseToolArguments(tc.Arguments)
	if err != nil {
		return nil
	}
	return args
}

// ---------------------------------------------------------------------------
// CollectEvents
// ---------------------------------------------------------------------------

// CollectEvents consumes a StreamReader until its terminal event and folds the
// sequence into a single CanonicalResponse. Callers are responsible for
// closing the stream.
func CollectEvents(stream StreamReader) (*CanonicalResponse, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream cannot be nil")
	}

	var (
		resp    CanonicalResponse
		text    strings.Builder
		think   strings.Builder
		toolAcc = NewToolCallAccumulator()
	)

	for {
		ev, err := stream.Next()
		if err != nil {
			return nil, err
		}
		if ev == nil {
			continue
		}

		switch ev.Type {
		case EventMessageStart:
			resp.ID = ev.ID
			resp.Model = ev.Model
		case EventContentDelta:
			if ev.Delta == nil {
				continue
			}
			if ev.Delta.Block == BlockThinking {
				think.WriteString(ev.Delta.Text)
			} else {
				text.WriteString(ev.Delta.Text)
			}
		case EventToolCall:
			toolAcc.Apply(ev.ToolCall)
		case EventUsage:
			if ev.Usage != nil {
				resp.Usage = ev.Usage.Normalize()
			}
		case EventComplete:
			if ev.FinishReason != "" {
				resp.FinishReason = ev.FinishReason
			}
			if ev.Usage != nil {
				resp.Usage = ev.Usage.Normalize()
			}
		case EventError:
			msg := "stream error"
			if ev.Error != nil {
				msg = ev.Error.Message
			}
			return nil, NewProviderError("", msg)
		}

		if ev.Type.Terminal() {
			break
		}
	}

	var blocks []ContentBlock
	if think.Len() > 0 {
		blocks = append(blocks, ContentBlock{Type: BlockThinking, Thinking: think.String()})
	}
	if text.Len() > 0 {
		blocks = append(blocks, TextBlock(text.String()))
	}
	for _, tc := range toolAcc.Build() {
		use := tc
		blocks = append(blocks, ContentBlock{Type: BlockToolUse, ToolUse: &use})
	}
	if len(blocks) == 0 {
		blocks = []ContentBlock{TextBlock("")}
	}

	if resp.FinishReason == "" {
		resp.FinishReason = FinishStop
	}
	resp.Choices = []Choice{{
		Message:      Message{Role: RoleAssistant, Content: blocks},
		FinishReason: resp.FinishReason,
	}}

	return NewCanonicalResponse(resp), nil
}
