// Package formats contains the built-in bidirectional wire-format adapters:
// OpenAI chat completions, Anthropic messages, and the OpenAI responses
// variant. Every adapter converts between its format and the canonical
// schema; all of them are pure in-memory transformations.
package formats

import "github.com/modelrelay/modelrelay"

// Format identifiers the built-in adapters register under.
const (
	FormatOpenAI    = "openai"
	FormatAnthropic = "anthropic"
	FormatResponses = "responses"
)

// RegisterAll registers every built-in adapter on the given registry.
// Call it once at startup so adapter lookups never fail at request time.
func RegisterAll(registry *modelrelay.AdapterRegistry) {
	registry.Register(NewOpenAI())
	registry.Register(NewAnthropic())
	registry.Register(NewResponses())
}
