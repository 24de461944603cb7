package modelrelay

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion tags every canonical document produced by this revision of the
// gateway. Bump it whenever the canonical shape changes incompatibly.
const SchemaVersion = "v1"

// Role identifies the author of a canonical message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType discriminates the content block union.
type BlockType string

const (
	BlockText          BlockType = "text"
	BlockThinking      BlockType = "thinking"
	BlockToolUse       BlockType = "tool_use"
	BlockToolResult    BlockType = "tool_result"
	BlockCodeExecution BlockType = "code_execution"
	BlockWebSearch     BlockType = "web_search"
	BlockCitation      BlockType = "citation"
)

// ContentBlock is one typed element of a message's content sequence.
// Providers natively emit heterogeneous content, so canonical content is an
// ordered sequence of tagged blocks rather than a single string. Raw carries
// the original provider payload for block kinds the gateway does not model.
type ContentBlock struct {
	Type       BlockType        `json:"type"`
	Text       string           `json:"text,omitempty"`
	Thinking   string           `json:"thinking,omitempty"`
	Signature  string           `json:"signature,omitempty"`
	ToolUse    *ToolUseBlock    `json:"tool_use,omitempty"`
	ToolResult *ToolResultBlock `json:"tool_result,omitempty"`
	Citation   *CitationBlock   `json:"citation,omitempty"`
	Raw        json.RawMessage  `json:"raw,omitempty"`
}

// ToolUseBlock is a model-initiated tool invocation.
type ToolUseBlock struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// ToolResultBlock carries the caller-supplied result of a prior tool use.
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// CitationBlock references source material backing a span of output.
type CitationBlock struct {
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// TextBlock is a convenience constructor for plain text content.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// Message is a role-tagged entry in the canonical conversation sequence.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// Text flattens the message's text blocks into a single string.
func (m Message) Text() string {
	var out string
	for _, block := range m.Content {
		if block.Type != BlockText {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += block.Text
	}
	return out
}

// UserMessage builds a single-text-block user message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

// SystemMessage builds a single-text-block system message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentBlock{TextBlock(text)}}
}

// AssistantMessage builds a single-text-block assistant message.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentBlock{TextBlock(text)}}
}

// GenerationParams holds the sampling knobs shared by every provider.
type GenerationParams struct {
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// ToolChoiceMode enumerates the non-explicit tool selection strategies.
type ToolChoiceMode string

const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceRequired ToolChoiceMode = "required"
	ToolChoiceAny      ToolChoiceMode = "any"
)

// ToolChoice selects how the model may use tools. When Name is set the choice
// references one explicit tool and Mode is ignored.
type ToolChoice struct {
	Mode ToolChoiceMode `json:"mode,omitempty"`
	Name string         `json:"name,omitempty"`
}

// Tool declares a callable function available to the model.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"` // JSON schema
}

// CanonicalRequest is the provider-agnostic request form all adapters target.
// Invariants: Messages is non-empty and SchemaVersion is always present.
type CanonicalRequest struct {
	SchemaVersion string            `json:"schema_version"`
	Model         string            `json:"model"`
	Messages      []Message         `json:"messages"`
	Stream        bool              `json:"stream,omitempty"`
	Generation    *GenerationParams `json:"generation,omitempty"`
	Tools         []Tool            `json:"tools,omitempty"`
	ToolChoice    *ToolChoice       `json:"tool_choice,omitempty"`

	// Legacy single-function equivalents of Tools/ToolChoice.
	Functions    []Tool      `json:"functions,omitempty"`
	FunctionCall *ToolChoice `json:"function_call,omitempty"`

	// ProviderParams preserves per-provider fields the canonical shape does
	// not model, so a round-trip through the gateway is lossless.
	ProviderParams map[string]any `json:"provider_params,omitempty"`
}

// NewCanonicalRequest stamps the current schema version onto partial request
// data. It performs no validation; use Validator for that.
func NewCanonicalRequest(req CanonicalRequest) *CanonicalRequest {
	req.SchemaVersion = SchemaVersion
	return &req
}

// FinishReason is the normalized terminal reason superset covering both
// stop-style (OpenAI) and turn-style (Anthropic) semantics.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
	FinishError         FinishReason = "error"
)

// Usage carries normalized token counts. Prompt/Completion and Input/Output
// are aliases of each other; Normalize keeps both populated so downstream cost
// accounting is format-agnostic.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`

	CacheReadTokens     int `json:"cache_read_tokens,omitempty"`
	CacheCreationTokens int `json:"cache_creation_tokens,omitempty"`
	ReasoningTokens     int `json:"reasoning_tokens,omitempty"`
}

// Normalize fills whichever alias pair is missing and recomputes the total
// when absent. Whichever of the provider's field names were present win.
func (u Usage) Normalize() Usage {
	if u.PromptTokens == 0 {
		u.PromptTokens = u.InputTokens
	}
	if u.InputTokens == 0 {
		u.InputTokens = u.PromptTokens
	}
	if u.CompletionTokens == 0 {
		u.CompletionTokens = u.OutputTokens
	}
	if u.OutputTokens == 0 {
		u.OutputTokens = u.CompletionTokens
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

// Add accumulates counts from another usage record.
func (u Usage) Add(other Usage) Usage {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheReadTokens += other.CacheReadTokens
	u.CacheCreationTokens += other.CacheCreationTokens
	u.ReasoningTokens += other.ReasoningTokens
	return u
}

// Choice is one alternative completion in a canonical response.
type Choice struct {
	Index        int          `json:"index"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
}

// CanonicalResponse is the provider-agnostic response form. ProviderRaw keeps
// the untouched upstream payload for debugging and lossless replay.
type CanonicalResponse struct {
	SchemaVersion string          `json:"schema_version"`
	ID            string          `json:"id"`
	Model         string          `json:"model"`
	Created       int64           `json:"created"` // unix seconds
	Choices       []Choice        `json:"choices"`
	Usage         Usage           `json:"usage"`
	FinishReason  FinishReason    `json:"finish_reason,omitempty"`
	ProviderRaw   json.RawMessage `json:"provider_raw,omitempty"`
}

// NewCanonicalResponse stamps the schema version, an id and a creation time
// onto partial response data. It performs no validation.
func NewCanonicalResponse(resp CanonicalResponse) *CanonicalResponse {
	resp.SchemaVersion = SchemaVersion
	if resp.ID == "" {
		resp.ID = "resp_" + uuid.NewString()
	}
	if resp.Created == 0 {
		resp.Created = time.Now().Unix()
	}
	return &resp
}

// FirstText returns the text content of the first choice, or "".
func (r *CanonicalResponse) FirstText() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Text()
}
