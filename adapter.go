package modelrelay

// FormatAdapter is the base capability every wire-format adapter implements.
// Adapters are pure with respect to network and filesystem: they only
// transform in-memory payloads.
//
// Capabilities beyond FormatType are expressed through interface composition,
// mirroring how providers expose optional features. An adapter implements the
// subset that makes sense for its format; stream rendering in particular is
// optional.
type FormatAdapter interface {
	// FormatType returns the format identifier this adapter is keyed by in
	// the registry, e.g. "openai" or "anthropic".
	FormatType() string
}

// ClientRequestAdapter converts an inbound client payload to canonical form.
type ClientRequestAdapter interface {
	RequestToCanonical(raw []byte) (*CanonicalRequest, error)
}

// ClientResponseAdapter renders a canonical response in the client's format.
type ClientResponseAdapter interface {
	ResponseFromCanonical(resp *CanonicalResponse) ([]byte, error)
}

// ProviderRequestAdapter renders a canonical request in the provider's wire
// format.
type ProviderRequestAdapter interface {
	RequestFromCanonical(req *CanonicalRequest) ([]byte, error)
}

// ProviderResponseAdapter converts a provider reply to canonical form.
type ProviderResponseAdapter interface {
	ResponseToCanonical(raw []byte) (*CanonicalResponse, error)
}

// StreamTranslator converts between provider stream events and canonical
// stream events. One upstream event may expand to several canonical events
// (e.g. a chunk carrying both a delta and a finish reason), hence the slice.
type StreamTranslator interface {
	// StreamEventToCanonical translates one upstream SSE data payload.
	// A nil, nil return means the event carries nothing the canonical
	// sequence models and should be skipped.
	StreamEventToCanonical(raw []byte) ([]CanonicalStreamEvent, error)

	// StreamEventFromCanonical renders one canonical event for the client.
	// A nil, nil return means the event has no client-visible rendering.
	StreamEventFromCanonical(ev *CanonicalStreamEvent) ([]byte, error)
}
